package handlers

import (
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pitchlab/eartrain-api/internal/exercise"
	"github.com/pitchlab/eartrain-api/internal/logger"
)

// ExamHandler serves exam settings and the exam generators
type ExamHandler struct {
	svc *exercise.Service
}

func NewExamHandler(svc *exercise.Service) *ExamHandler {
	return &ExamHandler{svc: svc}
}

// newRNG seeds a fresh generator per request. Handlers run
// concurrently and rand.Rand is not safe for shared use.
func newRNG() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Settings returns the full configuration space clients may request
func (h *ExamHandler) Settings(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Settings())
}

// Generate builds the composite exam: every exercise type in one call
func (h *ExamHandler) Generate(c *gin.Context) {
	var req exercise.ExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	exam, err := h.svc.GenerateExam(newRNG(), req)
	if err != nil {
		logger.Error("❌ Exam generation failed", err, logger.Fields{
			"request_id": c.GetString("request_id"),
		})
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, exam)
}

type singleExamRequest struct {
	PitchLow         int  `json:"pitch_low"`
	PitchHigh        int  `json:"pitch_high"`
	IncludeBlackKeys bool `json:"include_black_keys"`
	GroupSize        int  `json:"group_size"`
	Count            int  `json:"count"`
}

// Single generates pitch-identification questions
func (h *ExamHandler) Single(c *gin.Context) {
	var req singleExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions, err := h.svc.SingleExam(newRNG(), req.PitchLow, req.PitchHigh, req.IncludeBlackKeys, req.Count)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

// Group generates pitch-group identification questions
func (h *ExamHandler) Group(c *gin.Context) {
	var req singleExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions, err := h.svc.GroupExam(newRNG(), req.PitchLow, req.PitchHigh, req.IncludeBlackKeys, req.GroupSize, req.Count)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

type intervalExamRequest struct {
	IntervalIDs []int `json:"interval_ids"`
	Count       int   `json:"count"`
}

// Interval generates interval identification questions
func (h *ExamHandler) Interval(c *gin.Context) {
	var req intervalExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions, err := h.svc.IntervalExam(newRNG(), req.IntervalIDs, req.Count)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}

type chordExamRequest struct {
	ChordIDs       []string `json:"chord_ids"`
	WithInversions bool     `json:"with_inversions"`
	Count          int      `json:"count"`
}

// Chord generates chord identification questions
func (h *ExamHandler) Chord(c *gin.Context) {
	var req chordExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	questions, err := h.svc.ChordExam(newRNG(), req.ChordIDs, req.WithInversions, req.Count)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}
