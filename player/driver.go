package player

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// State is the driver's view of the embedded transport.
type State int

const (
	StateNotAttached State = iota
	StateLoading
	StateReady
	StatePlaying
	StatePaused
	StateEnded
	StateError
)

func (s State) String() string {
	switch s {
	case StateNotAttached:
		return "not_attached"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Retry/backoff constants for command issuance. The readiness signal from
// the surface is not reliably delivered, so commands are reissued until an
// acknowledgment-equivalent state change is observed or attempts exhaust.
const (
	maxCommandAttempts = 5
	retryBaseDelay     = 800 * time.Millisecond
	retryStepDelay     = 400 * time.Millisecond

	// settleDelay promotes Loading to Ready when the readiness signal
	// never arrives.
	settleDelay = 2 * time.Second

	// progressInterval is the cadence of progress callbacks while attached.
	progressInterval = time.Second
)

// ProgressFunc receives derived playback progress.
type ProgressFunc func(elapsedSeconds, totalSeconds float64)

// Driver is the remote control for one embedded playback surface. All
// methods are safe for concurrent use; inbound messages and local intents
// serialize on one mutex.
type Driver struct {
	mu sync.Mutex

	transport Transport
	state     State
	videoID   string

	// wantPlaying is the local intent commands converge toward.
	wantPlaying bool

	// attachGen invalidates the settle timer and in-flight command loops
	// whenever the attached video changes. intentGen additionally
	// invalidates competing command loops when the intent changes; the
	// settle timer deliberately ignores it so an early Play or Pause
	// cannot cancel the Loading->Ready promotion.
	attachGen uint64
	intentGen uint64

	// Elapsed time is derived, never queried: while playing it is the
	// wall-clock delta since startInstant; while paused it is frozen in
	// pausedAt.
	startInstant time.Time
	pausedAt     time.Duration

	totalSeconds float64
	lastErrCode  int

	onProgress   ProgressFunc
	progressStop chan struct{}

	now func() time.Time
}

// NewDriver creates a detached driver.
func NewDriver(onProgress ProgressFunc) *Driver {
	return &Driver{
		state:      StateNotAttached,
		onProgress: onProgress,
		now:        time.Now,
	}
}

// State returns the current transport state.
func (d *Driver) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// VideoID returns the attached playable reference, if any.
func (d *Driver) VideoID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.videoID
}

// Attach points the driver at a new playable reference. State moves to
// Loading and elapsed time resets. Readiness comes from the surface's
// out-of-band signal or, failing that, a fixed settle delay.
func (d *Driver) Attach(videoID string, transport Transport, durationLabel string) {
	d.mu.Lock()
	d.attachGen++
	d.intentGen++
	gen := d.attachGen
	d.transport = transport
	d.videoID = videoID
	d.state = StateLoading
	d.wantPlaying = false
	d.startInstant = time.Time{}
	d.pausedAt = 0
	d.lastErrCode = 0
	d.totalSeconds = float64(ParseDurationLabel(durationLabel))
	d.mu.Unlock()

	log.Info().Str("video_id", videoID).Msg("Attaching playback transport")

	time.AfterFunc(settleDelay, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.attachGen == gen && d.state == StateLoading {
			log.Debug().Str("video_id", d.videoID).Msg("Readiness signal not observed, settling to ready")
			d.state = StateReady
		}
	})

	d.startProgressLoop()
}

// Detach drops the transport and stops progress callbacks.
func (d *Driver) Detach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.attachGen++
	d.intentGen++
	d.transport = nil
	d.videoID = ""
	d.state = StateNotAttached
	d.wantPlaying = false
	d.startInstant = time.Time{}
	d.pausedAt = 0
	d.stopProgressLoopLocked()
}

// Play records play intent and converges the surface toward it.
func (d *Driver) Play() {
	d.setIntent(true)
}

// Pause records pause intent. Issuing pause against a surface that never
// started is harmless: elapsed time stays at zero.
func (d *Driver) Pause() {
	d.setIntent(false)
}

func (d *Driver) setIntent(playing bool) {
	d.mu.Lock()
	d.wantPlaying = playing
	d.intentGen++
	attachGen := d.attachGen
	intentGen := d.intentGen
	command := cmdPause
	if playing {
		command = cmdPlay
	}
	d.mu.Unlock()

	go d.issueWithRetry(attachGen, intentGen, command, playing)
}

// issueWithRetry reissues the transport command with backoff until the
// acknowledgment-equivalent state change is observed, the intent changes,
// or attempts exhaust. Commands against a not-yet-attached transport ride
// the same loop and are dropped with a logged advisory at the end.
func (d *Driver) issueWithRetry(attachGen, intentGen uint64, command string, wantPlaying bool) {
	for attempt := 0; attempt < maxCommandAttempts; attempt++ {
		d.mu.Lock()
		if d.attachGen != attachGen || d.intentGen != intentGen {
			d.mu.Unlock()
			return
		}
		if d.acknowledgedLocked(wantPlaying) {
			d.mu.Unlock()
			return
		}
		transport := d.transport
		d.mu.Unlock()

		if transport != nil {
			message, err := encodeCommand(command)
			if err != nil {
				log.Error().Err(err).Str("command", command).Msg("Failed to encode transport command")
				return
			}
			if err := transport.Post(message); err != nil {
				log.Warn().Err(err).Str("command", command).Int("attempt", attempt+1).Msg("Transport post failed")
			} else {
				d.onCommandPosted(attachGen, intentGen, wantPlaying)
			}
		} else {
			log.Debug().Str("command", command).Int("attempt", attempt+1).Msg("Transport not attached, retrying command")
		}

		if attempt < maxCommandAttempts-1 {
			time.Sleep(retryBaseDelay + time.Duration(attempt)*retryStepDelay)
		}
	}

	d.mu.Lock()
	acknowledged := d.attachGen != attachGen || d.intentGen != intentGen || d.acknowledgedLocked(wantPlaying)
	d.mu.Unlock()
	if !acknowledged {
		log.Warn().Str("command", command).Msg("Command attempts exhausted without acknowledgment, dropping")
	}
}

// acknowledgedLocked reports whether the surface state matches the intent.
func (d *Driver) acknowledgedLocked(wantPlaying bool) bool {
	if wantPlaying {
		return d.state == StatePlaying
	}
	return d.state == StatePaused || d.state == StateReady || d.state == StateEnded
}

// onCommandPosted applies the optimistic local transition for a posted
// command; the surface's own state change, when it arrives, confirms it.
func (d *Driver) onCommandPosted(attachGen, intentGen uint64, wantPlaying bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.attachGen != attachGen || d.intentGen != intentGen {
		return
	}
	if wantPlaying && (d.state == StateReady || d.state == StatePaused) {
		d.markPlayingLocked()
	} else if !wantPlaying && d.state == StatePlaying {
		d.markPausedLocked()
	}
}

// Seek shifts elapsed time by delta seconds, clamped at zero, updates the
// local clock optimistically, and issues a one-shot seek command without
// waiting for acknowledgment.
func (d *Driver) Seek(deltaSeconds float64) {
	d.mu.Lock()
	if d.transport == nil {
		d.mu.Unlock()
		return
	}
	elapsed := d.elapsedLocked()
	target := elapsed + time.Duration(deltaSeconds*float64(time.Second))
	if target < 0 {
		target = 0
	}

	if d.state == StatePlaying {
		d.startInstant = d.now().Add(-target)
	} else {
		d.pausedAt = target
	}
	transport := d.transport
	d.mu.Unlock()

	message, err := encodeCommand(cmdSeek, target.Seconds(), true)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode seek command")
		return
	}
	if err := transport.Post(message); err != nil {
		log.Warn().Err(err).Msg("Seek post failed")
	}
}

// Elapsed returns the derived playback position.
func (d *Driver) Elapsed() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.elapsedLocked()
}

func (d *Driver) elapsedLocked() time.Duration {
	if d.state == StatePlaying && !d.startInstant.IsZero() {
		return d.now().Sub(d.startInstant)
	}
	return d.pausedAt
}

// HandleMessage processes one inbound status message from the embedded
// surface. Messages from any origin other than the transport's are
// discarded before parsing.
func (d *Driver) HandleMessage(origin string, data []byte) {
	d.mu.Lock()
	transport := d.transport
	d.mu.Unlock()

	if transport == nil {
		return
	}
	if origin != transport.Origin() {
		log.Warn().Str("origin", origin).Msg("Discarding status message from untrusted origin")
		return
	}

	var status statusMessage
	if err := json.Unmarshal(data, &status); err != nil {
		// The surface also emits non-status traffic; ignore it.
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	switch status.Event {
	case eventReady:
		if d.state == StateLoading {
			log.Debug().Str("video_id", d.videoID).Msg("Transport reported ready")
			d.state = StateReady
		}
	case eventStateChange:
		d.applySurfaceStateLocked(status.Info)
	case eventError:
		d.lastErrCode = status.Info
		d.state = StateError
		log.Error().
			Int("code", status.Info).
			Str("video_id", d.videoID).
			Msg(errorCodeMessage(status.Info))
	}
}

func (d *Driver) applySurfaceStateLocked(code int) {
	switch code {
	case surfacePlaying:
		d.markPlayingLocked()
	case surfacePaused:
		d.markPausedLocked()
	case surfaceEnded:
		d.pausedAt = d.elapsedLocked()
		d.state = StateEnded
	case surfaceBuffering:
		// Buffering keeps the current state; the clock keeps counting
		// only while Playing.
	}
}

func (d *Driver) markPlayingLocked() {
	if d.state == StatePlaying {
		return
	}
	// Resume from the frozen position, or start from zero.
	d.startInstant = d.now().Add(-d.pausedAt)
	d.pausedAt = 0
	d.state = StatePlaying
}

func (d *Driver) markPausedLocked() {
	if d.state != StatePlaying {
		// Pausing a surface that never started leaves elapsed at its
		// frozen value (zero on a fresh attach).
		if d.state == StateReady || d.state == StateLoading {
			d.state = StatePaused
		}
		return
	}
	d.pausedAt = d.elapsedLocked()
	d.startInstant = time.Time{}
	d.state = StatePaused
}

// LastErrorCode returns the most recent surface error code, zero if none.
func (d *Driver) LastErrorCode() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErrCode
}

// startProgressLoop emits progress callbacks at a fixed cadence while a
// transport is attached.
func (d *Driver) startProgressLoop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.onProgress == nil || d.progressStop != nil {
		return
	}

	stop := make(chan struct{})
	d.progressStop = stop

	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				d.mu.Lock()
				elapsed := d.elapsedLocked().Seconds()
				total := d.totalSeconds
				callback := d.onProgress
				d.mu.Unlock()
				if callback != nil {
					callback(elapsed, total)
				}
			}
		}
	}()
}

func (d *Driver) stopProgressLoopLocked() {
	if d.progressStop != nil {
		close(d.progressStop)
		d.progressStop = nil
	}
}
