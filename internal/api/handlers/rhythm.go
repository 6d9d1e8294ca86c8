package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pitchlab/eartrain-api/internal/exercise"
	"github.com/pitchlab/eartrain-api/internal/logger"
)

// RhythmHandler serves rhythm dictation questions
type RhythmHandler struct {
	svc *exercise.Service
}

func NewRhythmHandler(svc *exercise.Service) *RhythmHandler {
	return &RhythmHandler{svc: svc}
}

// Question generates a four-option rhythm dictation question
func (h *RhythmHandler) Question(c *gin.Context) {
	var req exercise.RhythmQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	question, err := h.svc.GenerateRhythmQuestion(newRNG(), req)
	if errors.Is(err, exercise.ErrUnsupportedCombination) {
		// No template table for this signature: fall back to the
		// default rather than failing the request.
		logger.Warn("⚠️ Unsupported time signature, substituting default", logger.Fields{
			"time_signature": req.TimeSignature,
			"difficulty":     req.Difficulty,
			"default":        exercise.DefaultTimeSignature,
		})
		req.TimeSignature = exercise.DefaultTimeSignature
		question, err = h.svc.GenerateRhythmQuestion(newRNG(), req)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, question)
}
