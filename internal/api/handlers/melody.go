package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pitchlab/eartrain-api/internal/exercise"
	"github.com/pitchlab/eartrain-api/internal/llm"
	"github.com/pitchlab/eartrain-api/internal/logger"
	"github.com/pitchlab/eartrain-api/internal/metrics"
	"github.com/pitchlab/eartrain-api/internal/theory"
)

const sourceAI = "ai"

// MelodyHandler serves melody dictation questions, either generated
// locally or composed by an external model.
type MelodyHandler struct {
	svc       *exercise.Service
	factory   *llm.ProviderFactory
	cwMetrics *metrics.Client
	model     string
	timeout   time.Duration
}

func NewMelodyHandler(svc *exercise.Service, factory *llm.ProviderFactory, cwMetrics *metrics.Client, model string, timeout time.Duration) *MelodyHandler {
	return &MelodyHandler{
		svc:       svc,
		factory:   factory,
		cwMetrics: cwMetrics,
		model:     model,
		timeout:   timeout,
	}
}

// Question generates a four-option melody dictation question.
// With ?source=ai the correct melody is composed by the configured
// provider; distractors are always derived locally.
func (h *MelodyHandler) Question(c *gin.Context) {
	var req exercise.MelodyQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if c.Query("source") == sourceAI {
		h.aiQuestion(c, req)
		return
	}

	question, err := h.svc.GenerateMelodyQuestion(newRNG(), req)
	if errors.Is(err, exercise.ErrUnsupportedCombination) {
		// No rhythm skeleton for this signature: fall back to the
		// default rather than failing the request.
		logger.Warn("⚠️ Unsupported time signature, substituting default", logger.Fields{
			"time_signature": req.TimeSignature,
			"difficulty":     req.Difficulty,
			"default":        exercise.DefaultTimeSignature,
		})
		req.TimeSignature = exercise.DefaultTimeSignature
		question, err = h.svc.GenerateMelodyQuestion(newRNG(), req)
	}
	if err != nil {
		if errors.Is(err, theory.ErrUnsupportedCombination) || errors.Is(err, theory.ErrNotFound) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, question)
}

// QuestionStream composes the correct melody with the configured
// provider and relays its stream events over SSE; the final event
// carries the assembled four-option question.
func (h *MelodyHandler) QuestionStream(c *gin.Context) {
	var req exercise.MelodyQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	provider, err := h.factory.GetProvider(c.Request.Context(), h.model, "")
	if err != nil {
		logger.Error("❌ Provider selection failed", err, logger.Fields{
			"model": h.model,
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "Generation provider unavailable"})
		return
	}

	// Set SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	startTime := time.Now()
	question, err := h.svc.GenerateAIMelodyQuestionStream(
		c.Request.Context(), newRNG(), provider, req, h.model, h.timeout,
		func(event llm.StreamEvent) error {
			writeSSEEvent(c, event)
			return nil
		})
	h.cwMetrics.RecordGenerationDuration(time.Since(startTime), err == nil)
	if err != nil {
		writeSSEEvent(c, llm.StreamEvent{Type: "error", Message: err.Error()})
		return
	}

	writeSSEEvent(c, llm.StreamEvent{
		Type:    "result",
		Message: "Generation complete",
		Data: map[string]interface{}{
			"question": question,
		},
	})
	writeSSEEvent(c, llm.StreamEvent{
		Type:    "done",
		Message: "Stream complete",
		Data: map[string]interface{}{
			"request_id": c.GetString("request_id"),
		},
	})
}

func writeSSEEvent(c *gin.Context, event llm.StreamEvent) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(c.Writer, "data: %s\n\n", eventJSON)
	c.Writer.Flush()
}

func (h *MelodyHandler) aiQuestion(c *gin.Context, req exercise.MelodyQuestionRequest) {
	provider, err := h.factory.GetProvider(c.Request.Context(), h.model, "")
	if err != nil {
		logger.Error("❌ Provider selection failed", err, logger.Fields{
			"model": h.model,
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "Generation provider unavailable"})
		return
	}

	startTime := time.Now()
	question, err := h.svc.GenerateAIMelodyQuestion(c.Request.Context(), newRNG(), provider, req, h.model, h.timeout)
	h.cwMetrics.RecordGenerationDuration(time.Since(startTime), err == nil)
	if err != nil {
		if errors.Is(err, llm.ErrExternalGeneration) {
			c.JSON(http.StatusBadGateway, gin.H{"error": "External melody generation failed"})
			return
		}
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, question)
}
