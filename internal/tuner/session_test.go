package tuner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchlab/eartrain-api/internal/theory"
)

// collector gathers emitted results safely across goroutines.
type collector struct {
	mu      sync.Mutex
	results []Result
	fail    error
}

func (c *collector) emit(r Result) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.results = append(c.results, r)
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.results)
}

func (c *collector) first() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[0]
}

const testFrameSize = 4096

func newTestSessions(t *testing.T) *Sessions {
	t.Helper()
	return NewSessions(NewAnalyzer(theory.NewCatalog()), testSampleRate, testFrameSize)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func TestSessions_Lifecycle(t *testing.T) {
	sessions := newTestSessions(t)
	col := &collector{}

	sessions.Register(context.Background(), "user-1", col.emit)
	assert.True(t, sessions.Active("user-1"))

	frame := sine(440, testSampleRate, 8192)
	require.NoError(t, sessions.Push("user-1", frame))

	waitFor(t, func() bool { return col.count() > 0 })
	got := col.first()
	assert.Equal(t, "A4", got.NearestPitch.Name)
	assert.False(t, got.Timestamp.IsZero())

	require.NoError(t, sessions.Unregister("user-1"))
	assert.False(t, sessions.Active("user-1"))
}

func TestSessions_PushWithoutSession(t *testing.T) {
	sessions := newTestSessions(t)
	err := sessions.Push("nobody", sine(440, testSampleRate, 8192))
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessions_UnregisterWithoutSession(t *testing.T) {
	sessions := newTestSessions(t)
	assert.ErrorIs(t, sessions.Unregister("nobody"), ErrSessionNotFound)
}

func TestSessions_RegisterReplacesExisting(t *testing.T) {
	sessions := newTestSessions(t)
	first := &collector{}
	second := &collector{}

	sessions.Register(context.Background(), "user-1", first.emit)
	sessions.Register(context.Background(), "user-1", second.emit)

	require.NoError(t, sessions.Push("user-1", sine(440, testSampleRate, 8192)))
	waitFor(t, func() bool { return second.count() > 0 })

	// The replaced session never saw the frame.
	assert.Zero(t, first.count())
	require.NoError(t, sessions.Unregister("user-1"))
}

func TestSessions_CallbackErrorTearsDown(t *testing.T) {
	sessions := newTestSessions(t)
	col := &collector{fail: errors.New("socket closed")}

	sessions.Register(context.Background(), "user-1", col.emit)
	require.NoError(t, sessions.Push("user-1", sine(440, testSampleRate, 8192)))

	waitFor(t, func() bool { return !sessions.Active("user-1") })
	assert.ErrorIs(t, sessions.Push("user-1", nil), ErrSessionNotFound)
}

func TestSessions_AccumulatesChunksToFullFrames(t *testing.T) {
	sessions := newTestSessions(t)
	col := &collector{}

	sessions.Register(context.Background(), "user-1", col.emit)
	tone := sine(440, testSampleRate, 2*testFrameSize)

	// Three sub-frame chunks stay below one frame: nothing may be
	// analyzed yet.
	for i := 0; i < 3; i++ {
		require.NoError(t, sessions.Push("user-1", tone[i*1024:(i+1)*1024]))
	}
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, col.count())

	// Crossing the frame boundary yields exactly one reading, with
	// the overflow carried into the next frame.
	require.NoError(t, sessions.Push("user-1", tone[3*1024:5*1024]))
	waitFor(t, func() bool { return col.count() == 1 })
	assert.Equal(t, "A4", col.first().NearestPitch.Name)

	// Completing the second frame from the carried remainder yields
	// the second reading.
	require.NoError(t, sessions.Push("user-1", tone[5*1024:8*1024]))
	waitFor(t, func() bool { return col.count() == 2 })

	require.NoError(t, sessions.Unregister("user-1"))
}

func TestSessions_SilentFramesEmitNothing(t *testing.T) {
	sessions := newTestSessions(t)
	col := &collector{}

	sessions.Register(context.Background(), "user-1", col.emit)
	require.NoError(t, sessions.Push("user-1", make([]float64, 4096)))

	// Give the worker time to consume the frame.
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, col.count())
	require.NoError(t, sessions.Unregister("user-1"))
}
