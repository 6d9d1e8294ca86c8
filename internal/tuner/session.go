package tuner

import (
	"context"
	"sync"
	"time"

	"github.com/pitchlab/eartrain-api/internal/logger"
)

const (
	// pushTimeout bounds how long Push waits for queue space before
	// dropping the frame. A live tuner prefers fresh audio over
	// complete audio.
	pushTimeout = 100 * time.Millisecond

	frameQueueDepth = 8

	// defaultFrameSize guards against a zero-valued configuration;
	// matches the TUNER_FRAME_SIZE default.
	defaultFrameSize = 4096
)

// Result is one streaming detection delivered to the session callback.
type Result struct {
	Timestamp time.Time `json:"timestamp"`
	Reading
}

// ResultFunc receives each detection. Returning an error tears the
// session down.
type ResultFunc func(Result) error

// session consumes audio frames for a single user and emits readings.
type session struct {
	userID     string
	analyzer   *Analyzer
	sampleRate int
	frameSize  int
	buffer     []float64
	frames     chan []float64
	cancel     context.CancelFunc
	done       chan struct{}
	emit       ResultFunc
}

// Sessions tracks one live tuning session per user.
type Sessions struct {
	mu         sync.Mutex
	analyzer   *Analyzer
	sampleRate int
	frameSize  int
	byUser     map[string]*session
}

func NewSessions(analyzer *Analyzer, sampleRate, frameSize int) *Sessions {
	if frameSize <= 0 {
		frameSize = defaultFrameSize
	}
	return &Sessions{
		analyzer:   analyzer,
		sampleRate: sampleRate,
		frameSize:  frameSize,
		byUser:     map[string]*session{},
	}
}

// Register starts a streaming session for userID, replacing any
// session the user already has.
func (s *Sessions) Register(ctx context.Context, userID string, emit ResultFunc) {
	s.mu.Lock()
	if existing, ok := s.byUser[userID]; ok {
		existing.cancel()
		delete(s.byUser, userID)
		s.mu.Unlock()
		<-existing.done
		s.mu.Lock()
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	sess := &session{
		userID:     userID,
		analyzer:   s.analyzer,
		sampleRate: s.sampleRate,
		frameSize:  s.frameSize,
		frames:     make(chan []float64, frameQueueDepth),
		cancel:     cancel,
		done:       make(chan struct{}),
		emit:       emit,
	}
	s.byUser[userID] = sess
	s.mu.Unlock()

	logger.Info("🎤 Tuner session registered", logger.Fields{
		"user_id":     userID,
		"sample_rate": s.sampleRate,
	})

	go func() {
		sess.run(sessionCtx)
		s.mu.Lock()
		if s.byUser[userID] == sess {
			delete(s.byUser, userID)
		}
		s.mu.Unlock()
	}()
}

// Push offers a frame to the user's session. Frames are dropped when
// the consumer is behind or the session is gone.
func (s *Sessions) Push(userID string, frame []float64) error {
	s.mu.Lock()
	sess, ok := s.byUser[userID]
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	timer := time.NewTimer(pushTimeout)
	defer timer.Stop()
	select {
	case sess.frames <- frame:
		return nil
	case <-sess.done:
		return ErrSessionNotFound
	case <-timer.C:
		logger.Warn("⚠️ Dropping tuner frame, consumer behind", logger.Fields{
			"user_id": userID,
		})
		return nil
	}
}

// Unregister stops the user's session and waits for its worker to
// exit.
func (s *Sessions) Unregister(userID string) error {
	s.mu.Lock()
	sess, ok := s.byUser[userID]
	if ok {
		delete(s.byUser, userID)
	}
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	sess.cancel()
	<-sess.done
	logger.Info("✅ Tuner session closed", logger.Fields{
		"user_id": userID,
	})
	return nil
}

// Active reports whether the user has a live session.
func (s *Sessions) Active(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byUser[userID]
	return ok
}

func (sess *session) run(ctx context.Context) {
	defer close(sess.done)
	for {
		select {
		case <-ctx.Done():
			return
		case chunk := <-sess.frames:
			// Chunks arrive at whatever size the client sends; samples
			// accumulate until a full analysis frame is available, and
			// each pass consumes exactly one frame.
			sess.buffer = append(sess.buffer, chunk...)
			for len(sess.buffer) >= sess.frameSize {
				frame := sess.buffer[:sess.frameSize]
				sess.buffer = append(sess.buffer[:0:0], sess.buffer[sess.frameSize:]...)

				reading, err := sess.analyzer.AnalyzeFast(frame, sess.sampleRate)
				if err != nil {
					// Silence and noise between notes are routine.
					continue
				}
				result := Result{Timestamp: time.Now().UTC(), Reading: reading}
				if err := sess.emit(result); err != nil {
					logger.Warn("⚠️ Tuner session callback failed, closing", logger.Fields{
						"user_id": sess.userID,
						"error":   err.Error(),
					})
					sess.cancel()
					return
				}
			}
		}
	}
}
