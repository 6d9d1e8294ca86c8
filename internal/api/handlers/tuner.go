package handlers

import (
	"errors"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/pitchlab/eartrain-api/internal/api/middleware"
	"github.com/pitchlab/eartrain-api/internal/logger"
	"github.com/pitchlab/eartrain-api/internal/metrics"
	"github.com/pitchlab/eartrain-api/internal/tuner"
	"github.com/pitchlab/eartrain-api/internal/tuner/dsp"
)

// maxAudioUploadBytes caps batch analysis uploads at ~20s of 44.1kHz
// stereo 16-bit audio.
const maxAudioUploadBytes = 4 << 20

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Origin is enforced by the gateway in hosted deployments.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TunerHandler serves batch pitch analysis and the live tuning stream
type TunerHandler struct {
	analyzer  *tuner.Analyzer
	sessions  *tuner.Sessions
	cwMetrics *metrics.Client
}

func NewTunerHandler(analyzer *tuner.Analyzer, sessions *tuner.Sessions, cwMetrics *metrics.Client) *TunerHandler {
	return &TunerHandler{
		analyzer:  analyzer,
		sessions:  sessions,
		cwMetrics: cwMetrics,
	}
}

// Analyze runs the detector ensemble over an uploaded WAV recording.
// Accepts either a multipart "file" field or the raw request body.
func (h *TunerHandler) Analyze(c *gin.Context) {
	data, err := h.readAudioBody(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	samples, sampleRate, err := dsp.DecodeWAV(data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not decode WAV audio"})
		return
	}

	reading, err := h.analyzer.Analyze(samples, sampleRate)
	if err != nil {
		if errors.Is(err, tuner.ErrNoPitchDetected) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "No pitch detected in audio"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reading)
}

func (h *TunerHandler) readAudioBody(c *gin.Context) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		if file.Size > maxAudioUploadBytes {
			return nil, errors.New("audio file too large")
		}
		f, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxAudioUploadBytes))
	}

	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAudioUploadBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty audio body")
	}
	return data, nil
}

// Stream upgrades to a websocket and runs a live tuning session.
// Binary frames carry little-endian float32 samples; each analyzed
// frame pushes one JSON result back to the client.
func (h *TunerHandler) Stream(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok || userID == "" || userID == "anonymous" {
		userID = uuid.New().String()
	}

	conn, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("❌ Websocket upgrade failed", err, logger.Fields{
			"request_id": c.GetString("request_id"),
		})
		return
	}
	defer conn.Close()

	// Concurrent writes: the session worker pushes results while the
	// read loop may send control acknowledgements.
	var writeMu sync.Mutex
	emit := func(result tuner.Result) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(result)
	}

	h.sessions.Register(c.Request.Context(), userID, emit)
	h.cwMetrics.RecordTunerSession("started")
	defer func() {
		if err := h.sessions.Unregister(userID); err == nil {
			h.cwMetrics.RecordTunerSession("closed")
		}
	}()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("⚠️ Tuner stream closed unexpectedly", logger.Fields{
					"user_id": userID,
					"error":   err.Error(),
				})
			}
			return
		}

		switch messageType {
		case websocket.BinaryMessage:
			frame := dsp.DecodeFloat32LE(payload)
			if len(frame) == 0 {
				continue
			}
			if err := h.sessions.Push(userID, frame); err != nil {
				return
			}
		case websocket.TextMessage:
			if string(payload) == "stop" {
				return
			}
		}
	}
}
