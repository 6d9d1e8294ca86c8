package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchlab/eartrain-api/internal/config"
	"github.com/pitchlab/eartrain-api/internal/metrics"
	"github.com/pitchlab/eartrain-api/internal/theory"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Environment:     "test",
		Port:            "8080",
		AuthMode:        "none",
		TunerSampleRate: 44100,
		TunerFrameSize:  4096,
		AIMelodyModel:   "gpt-4o-mini",
	}
	cwMetrics, err := metrics.NewClient(context.Background(), cfg.Environment)
	require.NoError(t, err)

	return SetupRouter(theory.NewCatalog(), cfg, cwMetrics, "test")
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRouter_PitchEndpoints(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pitch/49", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var pitch map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pitch))
	assert.Equal(t, "A4", pitch["name"])

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pitch/name/Bb3", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pitch/0", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/pitch?low=40&high=51", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var ranged struct {
		Pitches []map[string]any `json:"pitches"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ranged))
	assert.Len(t, ranged.Pitches, 12)
}

func TestRouter_ExamSettings(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/exam/settings", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var settings map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &settings))
	assert.Contains(t, settings, "time_signatures")
	assert.Contains(t, settings, "tonalities")
	assert.Contains(t, settings, "measure_counts")
}

func TestRouter_RhythmQuestion(t *testing.T) {
	router := newTestRouter(t)

	payload, err := json.Marshal(map[string]any{
		"difficulty":     "MEDIUM",
		"time_signature": "3/4",
		"measures_count": 4,
		"tempo":          80,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/rhythm/question", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var question struct {
		CorrectAnswer string           `json:"correct_answer"`
		Options       []map[string]any `json:"options"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &question))
	assert.Len(t, question.Options, 4)
	assert.Contains(t, []string{"A", "B", "C", "D"}, question.CorrectAnswer)
}

func TestRouter_RhythmQuestionSubstitutesDefaultSignature(t *testing.T) {
	router := newTestRouter(t)

	payload, err := json.Marshal(map[string]any{
		"difficulty":     "LOW",
		"time_signature": "7/8",
		"measures_count": 2,
		"tempo":          60,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/rhythm/question", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	// An unknown signature falls back to 2/4 instead of failing.
	require.Equal(t, http.StatusOK, w.Code)
	var question struct {
		TimeSignature string           `json:"time_signature"`
		Options       []map[string]any `json:"options"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &question))
	assert.Equal(t, "2/4", question.TimeSignature)
	assert.Len(t, question.Options, 4)
}

func TestRouter_MelodyQuestionSubstitutesDefaultSignature(t *testing.T) {
	router := newTestRouter(t)

	payload, err := json.Marshal(map[string]any{
		"difficulty":     "LOW",
		"time_signature": "9/8",
		"measures_count": 2,
		"tempo":          72,
		"tonality":       "C_major",
		"scale_mode":     "natural_major",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/melody/question", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var question struct {
		TimeSignature string           `json:"time_signature"`
		Options       []map[string]any `json:"options"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &question))
	assert.Equal(t, "2/4", question.TimeSignature)
	assert.Len(t, question.Options, 4)
}

func TestRouter_MelodyQuestion(t *testing.T) {
	router := newTestRouter(t)

	payload, err := json.Marshal(map[string]any{
		"difficulty":     "LOW",
		"time_signature": "2/4",
		"measures_count": 4,
		"tempo":          70,
		"tonality":       "C_major",
		"scale_mode":     "natural_major",
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/melody/question", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var question struct {
		Options  []map[string]any `json:"options"`
		Tonality string           `json:"tonality"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &question))
	assert.Len(t, question.Options, 4)
	assert.Equal(t, "C_major", question.Tonality)
}

func TestRouter_SingleExamOmittedCountDefaults(t *testing.T) {
	router := newTestRouter(t)

	payload, err := json.Marshal(map[string]any{
		"pitch_low":  40,
		"pitch_high": 51,
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/exam/single", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Questions []map[string]any `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Questions, 20)
}

func TestRouter_MelodyQuestionStreamWithoutProvider(t *testing.T) {
	router := newTestRouter(t)

	payload, err := json.Marshal(map[string]any{
		"difficulty":     "LOW",
		"time_signature": "2/4",
		"measures_count": 2,
		"tempo":          80,
		"tonality":       "C_major",
		"scale_mode":     "natural_major",
	})
	require.NoError(t, err)

	// No provider API key is configured in tests: selection must fail
	// before any SSE bytes are written.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/melody/question/stream", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRouter_GatewayModeRequiresHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Environment:     "test",
		AuthMode:        "gateway",
		TunerSampleRate: 44100,
		TunerFrameSize:  4096,
	}
	cwMetrics, err := metrics.NewClient(context.Background(), cfg.Environment)
	require.NoError(t, err)
	router := SetupRouter(theory.NewCatalog(), cfg, cwMetrics, "test")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/exam/settings", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/exam/settings", nil)
	req.Header.Set("X-User-ID", "user-123")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_TunerAnalyzeRejectsGarbage(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/tuner/analyze", bytes.NewReader([]byte("not a wav")))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
