package player

import (
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const surfaceOrigin = "https://www.youtube.com"

// fakeTransport records posted command messages.
type fakeTransport struct {
	mu      sync.Mutex
	posts   [][]byte
	postErr error
}

func (f *fakeTransport) Post(message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.postErr != nil {
		return f.postErr
	}
	f.posts = append(f.posts, append([]byte(nil), message...))
	return nil
}

func (f *fakeTransport) Origin() string {
	return surfaceOrigin
}

func (f *fakeTransport) commands() []commandMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]commandMessage, 0, len(f.posts))
	for _, post := range f.posts {
		var msg commandMessage
		if err := json.Unmarshal(post, &msg); err == nil {
			out = append(out, msg)
		}
	}
	return out
}

// fakeClock is an adjustable wall clock safe to read from driver goroutines.
type fakeClock struct {
	nanos atomic.Int64
}

func (c *fakeClock) Now() time.Time {
	return time.Unix(0, c.nanos.Load())
}

func (c *fakeClock) Advance(d time.Duration) {
	c.nanos.Add(int64(d))
}

func newTestDriver() (*Driver, *fakeTransport, *fakeClock) {
	clock := &fakeClock{}
	clock.nanos.Store(int64(time.Hour))
	d := NewDriver(nil)
	d.now = clock.Now
	return d, &fakeTransport{}, clock
}

func statusJSON(event string, info int) []byte {
	return []byte(fmt.Sprintf(`{"event":%q,"info":%d}`, event, info))
}

func TestAttachMovesToLoading(t *testing.T) {
	d, transport, _ := newTestDriver()
	assert.Equal(t, StateNotAttached, d.State())

	d.Attach("dQw4w9WgXcQ", transport, "12:34")
	assert.Equal(t, StateLoading, d.State())
	assert.Equal(t, "dQw4w9WgXcQ", d.VideoID())
	assert.Zero(t, d.Elapsed())
}

func TestReadySignalPromotesLoading(t *testing.T) {
	d, transport, _ := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "")

	d.HandleMessage(surfaceOrigin, statusJSON(eventReady, 0))
	assert.Equal(t, StateReady, d.State())
}

func TestSettleDelayPromotesLoadingWithoutSignal(t *testing.T) {
	d, transport, _ := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "")

	require.Eventually(t, func() bool {
		return d.State() == StateReady
	}, settleDelay+time.Second, 50*time.Millisecond)
}

func TestUntrustedOriginIsDiscarded(t *testing.T) {
	d, transport, _ := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "")

	d.HandleMessage("https://evil.example", statusJSON(eventReady, 0))
	assert.Equal(t, StateLoading, d.State())

	d.HandleMessage("https://evil.example", statusJSON(eventStateChange, surfacePlaying))
	assert.Equal(t, StateLoading, d.State())
}

func TestElapsedDerivesFromClockWhilePlaying(t *testing.T) {
	d, transport, clock := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "10:00")
	d.HandleMessage(surfaceOrigin, statusJSON(eventReady, 0))

	d.HandleMessage(surfaceOrigin, statusJSON(eventStateChange, surfacePlaying))
	assert.Equal(t, StatePlaying, d.State())

	clock.Advance(5 * time.Second)
	assert.Equal(t, 5*time.Second, d.Elapsed())

	// Pausing freezes the derived position.
	d.HandleMessage(surfaceOrigin, statusJSON(eventStateChange, surfacePaused))
	assert.Equal(t, StatePaused, d.State())
	clock.Advance(30 * time.Second)
	assert.Equal(t, 5*time.Second, d.Elapsed())

	// Resuming continues from the frozen position.
	d.HandleMessage(surfaceOrigin, statusJSON(eventStateChange, surfacePlaying))
	clock.Advance(2 * time.Second)
	assert.Equal(t, 7*time.Second, d.Elapsed())
}

func TestPauseBeforePlayLeavesElapsedZero(t *testing.T) {
	d, transport, clock := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "10:00")
	d.HandleMessage(surfaceOrigin, statusJSON(eventReady, 0))

	d.Pause()
	clock.Advance(10 * time.Second)
	assert.Zero(t, d.Elapsed())
	assert.NotEqual(t, StatePlaying, d.State())
}

func TestSeekClampsAtZero(t *testing.T) {
	d, transport, clock := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "10:00")
	d.HandleMessage(surfaceOrigin, statusJSON(eventReady, 0))
	d.HandleMessage(surfaceOrigin, statusJSON(eventStateChange, surfacePlaying))

	clock.Advance(5 * time.Second)
	require.Equal(t, 5*time.Second, d.Elapsed())

	// Rewinding past the start clamps to zero.
	d.Seek(-15)
	assert.Equal(t, time.Duration(0), d.Elapsed())

	commands := transport.commands()
	require.NotEmpty(t, commands)
	seek := commands[len(commands)-1]
	assert.Equal(t, cmdSeek, seek.Func)
	require.Len(t, seek.Args, 2)
	assert.Equal(t, float64(0), seek.Args[0])
}

func TestSeekForwardShiftsElapsed(t *testing.T) {
	d, transport, clock := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "10:00")
	d.HandleMessage(surfaceOrigin, statusJSON(eventReady, 0))
	d.HandleMessage(surfaceOrigin, statusJSON(eventStateChange, surfacePlaying))

	clock.Advance(5 * time.Second)
	d.Seek(15)
	assert.Equal(t, 20*time.Second, d.Elapsed())
}

func TestSeekWhilePausedAdjustsFrozenPosition(t *testing.T) {
	d, transport, clock := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "10:00")
	d.HandleMessage(surfaceOrigin, statusJSON(eventReady, 0))
	d.HandleMessage(surfaceOrigin, statusJSON(eventStateChange, surfacePlaying))
	clock.Advance(30 * time.Second)
	d.HandleMessage(surfaceOrigin, statusJSON(eventStateChange, surfacePaused))

	d.Seek(-10)
	assert.Equal(t, 20*time.Second, d.Elapsed())
}

func TestPlayConvergesViaRetry(t *testing.T) {
	d, transport, _ := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "10:00")
	d.HandleMessage(surfaceOrigin, statusJSON(eventReady, 0))

	d.Play()

	require.Eventually(t, func() bool {
		return d.State() == StatePlaying
	}, 2*time.Second, 10*time.Millisecond)

	commands := transport.commands()
	require.NotEmpty(t, commands)
	assert.Equal(t, cmdPlay, commands[0].Func)
	assert.Equal(t, "command", commands[0].Event)
}

// An intent issued while still Loading must not cancel the settle-delay
// promotion: with the readiness signal lost, the driver still settles to
// Ready and the retried command converges from there.
func TestPlayDuringLoadingStillSettlesAndConverges(t *testing.T) {
	d, transport, _ := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "10:00")

	// Inside the settle window, with no readiness signal ever delivered.
	d.Play()

	require.Eventually(t, func() bool {
		return d.State() == StatePlaying
	}, settleDelay+6*time.Second, 50*time.Millisecond)
}

func TestPauseDuringLoadingStillSettles(t *testing.T) {
	d, transport, _ := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "10:00")

	d.Pause()

	require.Eventually(t, func() bool {
		return d.State() != StateLoading
	}, settleDelay+time.Second, 50*time.Millisecond)
	assert.Zero(t, d.Elapsed())
}

func TestCommandRetryStopsAfterFinalAttempt(t *testing.T) {
	d := NewDriver(nil)
	transport := &fakeTransport{}
	d.mu.Lock()
	d.transport = transport
	d.state = StateLoading
	d.mu.Unlock()

	start := time.Now()
	d.issueWithRetry(d.attachGen, d.intentGen, cmdPlay, true)
	elapsed := time.Since(start)

	assert.Len(t, transport.commands(), maxCommandAttempts)
	// Backoff sleeps run between attempts only, never after the last one.
	var between time.Duration
	for attempt := 0; attempt < maxCommandAttempts-1; attempt++ {
		between += retryBaseDelay + time.Duration(attempt)*retryStepDelay
	}
	assert.Less(t, elapsed, between+time.Second)
}

func TestSeekWhileDetachedIsInert(t *testing.T) {
	d, transport, clock := newTestDriver()

	d.Seek(30)
	assert.Equal(t, StateNotAttached, d.State())
	assert.Zero(t, d.Elapsed())

	d.Attach("dQw4w9WgXcQ", transport, "10:00")
	d.HandleMessage(surfaceOrigin, statusJSON(eventReady, 0))
	d.HandleMessage(surfaceOrigin, statusJSON(eventStateChange, surfacePlaying))
	clock.Advance(5 * time.Second)
	d.Detach()

	posted := len(transport.commands())
	d.Seek(30)
	assert.Zero(t, d.Elapsed())
	assert.Len(t, transport.commands(), posted)
}

func TestEndedFreezesElapsed(t *testing.T) {
	d, transport, clock := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "0:42")
	d.HandleMessage(surfaceOrigin, statusJSON(eventReady, 0))
	d.HandleMessage(surfaceOrigin, statusJSON(eventStateChange, surfacePlaying))

	clock.Advance(42 * time.Second)
	d.HandleMessage(surfaceOrigin, statusJSON(eventStateChange, surfaceEnded))

	assert.Equal(t, StateEnded, d.State())
	assert.Equal(t, 42*time.Second, d.Elapsed())
}

func TestErrorMessageSetsErrorState(t *testing.T) {
	d, transport, _ := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "")

	d.HandleMessage(surfaceOrigin, statusJSON(eventError, errCodeNotEmbeddable))
	assert.Equal(t, StateError, d.State())
	assert.Equal(t, errCodeNotEmbeddable, d.LastErrorCode())
}

func TestNonStatusTrafficIsIgnored(t *testing.T) {
	d, transport, _ := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "")

	d.HandleMessage(surfaceOrigin, []byte("not json"))
	d.HandleMessage(surfaceOrigin, []byte(`{"unrelated":true}`))
	assert.Equal(t, StateLoading, d.State())
}

func TestDetachResetsDriver(t *testing.T) {
	d, transport, clock := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "10:00")
	d.HandleMessage(surfaceOrigin, statusJSON(eventReady, 0))
	d.HandleMessage(surfaceOrigin, statusJSON(eventStateChange, surfacePlaying))
	clock.Advance(5 * time.Second)

	d.Detach()
	assert.Equal(t, StateNotAttached, d.State())
	assert.Empty(t, d.VideoID())
	assert.Zero(t, d.Elapsed())

	// Messages after detach are dropped.
	d.HandleMessage(surfaceOrigin, statusJSON(eventStateChange, surfacePlaying))
	assert.Equal(t, StateNotAttached, d.State())
}

func TestAttachReplacesPreviousVideo(t *testing.T) {
	d, transport, clock := newTestDriver()
	d.Attach("dQw4w9WgXcQ", transport, "10:00")
	d.HandleMessage(surfaceOrigin, statusJSON(eventReady, 0))
	d.HandleMessage(surfaceOrigin, statusJSON(eventStateChange, surfacePlaying))
	clock.Advance(5 * time.Second)

	d.Attach("abc123def45", transport, "3:00")
	assert.Equal(t, StateLoading, d.State())
	assert.Equal(t, "abc123def45", d.VideoID())
	assert.Zero(t, d.Elapsed())
}
