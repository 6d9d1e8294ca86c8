package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pitchlab/eartrain-api/internal/theory"
)

// PitchHandler serves the pitch knowledge base: the 88-key catalog and
// the interval and chord tables derived from it.
type PitchHandler struct {
	catalog *theory.Catalog
}

func NewPitchHandler(catalog *theory.Catalog) *PitchHandler {
	return &PitchHandler{catalog: catalog}
}

// List returns the keyboard, optionally restricted to a [low, high]
// range of pitch numbers.
func (h *PitchHandler) List(c *gin.Context) {
	low := queryInt(c, "low", 1)
	high := queryInt(c, "high", 88)

	pitches := h.catalog.PitchesInRange(low, high)
	if pitches == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid pitch range"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"pitches": pitches})
}

// ByNumber returns a single pitch by its 1..88 number
func (h *PitchHandler) ByNumber(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Pitch number must be an integer"})
		return
	}

	pitch, err := h.catalog.PitchByNumber(number)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pitch not found"})
		return
	}
	c.JSON(http.StatusOK, pitch)
}

// ByName resolves a scientific pitch name or bare letter class.
// A bare class ("C#") matches every octave; the response carries all
// matches so the client can disambiguate.
func (h *PitchHandler) ByName(c *gin.Context) {
	name := c.Param("name")

	pitch, err := h.catalog.PitchByName(name)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"pitch": pitch})
	case errors.Is(err, theory.ErrAmbiguous):
		c.JSON(http.StatusOK, gin.H{"matches": h.catalog.PitchesByName(name)})
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "Pitch not found"})
	}
}

// Groups returns the keyboard partitioned by octave
func (h *PitchHandler) Groups(c *gin.Context) {
	includeBlackKeys := c.DefaultQuery("black_keys", "true") == "true"
	c.JSON(http.StatusOK, gin.H{
		"groups": h.catalog.Octaves(includeBlackKeys),
	})
}

// Intervals lists the interval table; with ?semitones= it also returns
// every keyboard pair realizing that interval.
func (h *PitchHandler) Intervals(c *gin.Context) {
	if raw := c.Query("semitones"); raw != "" {
		semitones, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "semitones must be an integer"})
			return
		}
		interval, err := h.catalog.IntervalBySemitones(semitones)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Interval not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"interval": interval,
			"pairs":    h.catalog.IntervalPairs(semitones),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"intervals": h.catalog.Intervals()})
}

// Chords lists the chord table; with ?id= it returns that chord's
// voicings, optionally realized at ?root= with ?inversion=.
func (h *PitchHandler) Chords(c *gin.Context) {
	chordID := c.Query("id")
	if chordID == "" {
		c.JSON(http.StatusOK, gin.H{"chords": h.catalog.Chords()})
		return
	}

	chord, err := h.catalog.ChordByID(chordID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Chord not found"})
		return
	}

	if rootRaw := c.Query("root"); rootRaw != "" {
		rootNumber, err := strconv.Atoi(rootRaw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "root must be a pitch number"})
			return
		}
		root, err := h.catalog.PitchByNumber(rootNumber)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Root pitch not found"})
			return
		}
		tones, err := h.catalog.ChordTones(chordID, root)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Chord does not fit the keyboard at this root"})
			return
		}
		if inversion := queryInt(c, "inversion", 0); inversion > 0 {
			tones, err = h.catalog.Invert(tones, inversion)
			if err != nil {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Inversion does not fit the keyboard"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"chord": chord, "root": root, "tones": tones})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"chord":    chord,
		"voicings": h.catalog.ChordVoicings(chordID),
	})
}

// Tonalities lists the supported tonalities and scale modes
func (h *PitchHandler) Tonalities(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"tonalities":  h.catalog.Tonalities(),
		"scale_modes": h.catalog.ScaleModes(),
	})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
