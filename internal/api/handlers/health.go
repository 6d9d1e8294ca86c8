package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pitchlab/eartrain-api/internal/theory"
)

// HealthHandler reports API liveness and catalog readiness
type HealthHandler struct {
	catalog *theory.Catalog
	version string
}

func NewHealthHandler(catalog *theory.Catalog, version string) *HealthHandler {
	return &HealthHandler{catalog: catalog, version: version}
}

// HealthCheck returns the health status of the API
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"version": h.version,
		"catalog": gin.H{
			"pitches":     len(h.catalog.Pitches()),
			"intervals":   len(h.catalog.Intervals()),
			"chords":      len(h.catalog.Chords()),
			"tonalities":  len(h.catalog.Tonalities()),
			"scale_modes": len(h.catalog.ScaleModes()),
		},
	})
}
