// Package narration drives page narration audio.
//
// A Transport owns one audio source at a time and moves it through
// Idle → FadingIn → Playing → FadingOut → Idle. Every transition cancels
// the previously scheduled fade timer; timers carry a generation so a
// replaced timer that fires late does nothing.
package narration

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/justyntemme/storybook/internal/apperr"
	"github.com/justyntemme/storybook/internal/clock"
	"github.com/justyntemme/storybook/internal/logging"
)

// State is the transport state.
type State int

const (
	Idle State = iota
	FadingIn
	Playing
	FadingOut
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case FadingIn:
		return "fading-in"
	case Playing:
		return "playing"
	case FadingOut:
		return "fading-out"
	default:
		return "unknown"
	}
}

// Default fade timings.
const (
	DefaultFadeIn    = 500 * time.Millisecond
	DefaultFadeOut   = 300 * time.Millisecond
	DefaultFadeSteps = 10
)

// Sink plays one source at a time. Load replaces whatever is loaded.
type Sink interface {
	Load(url string) error
	Play() error
	Stop() error
	SetVolume(v float64) error
}

// EndReporter is implemented by sinks that report natural end of playback.
type EndReporter interface {
	SetEndHandler(fn func(url string))
}

// ErrorReporter is implemented by sinks that report a source failing
// after it started.
type ErrorReporter interface {
	SetErrorHandler(fn func(url string, err error))
}

// AvailabilityReporter is implemented by sinks that can tell whether a
// player is behind them. Sinks without it are assumed available.
type AvailabilityReporter interface {
	Available() bool
}

// ErrNoPlayer is the cause of play failures when the sink has no player.
var ErrNoPlayer = errors.New("no narration player")

// Transport serializes narration commands onto a single sink.
type Transport struct {
	mu      sync.Mutex
	sink    Sink
	clock   clock.Clock
	logger  *slog.Logger
	fadeIn  time.Duration
	fadeOut time.Duration
	steps   int

	state   State
	url     string
	volume  float64
	timer   clock.Timer
	gen     uint64
	closed  bool
	failed  map[string]bool
	onEnd   func(url string)
	onError func(url string)
}

// Option configures a Transport.
type Option func(*Transport)

// WithClock sets the clock used for fade timers.
func WithClock(c clock.Clock) Option {
	return func(t *Transport) { t.clock = c }
}

// WithLogger sets the transport logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Transport) { t.logger = logger }
}

// WithFades sets fade durations and ramp granularity. Zero values keep
// the defaults.
func WithFades(in, out time.Duration, steps int) Option {
	return func(t *Transport) {
		if in > 0 {
			t.fadeIn = in
		}
		if out > 0 {
			t.fadeOut = out
		}
		if steps > 0 {
			t.steps = steps
		}
	}
}

// NewTransport creates a transport over sink.
func NewTransport(sink Sink, opts ...Option) *Transport {
	t := &Transport{
		sink:    sink,
		clock:   clock.Real(),
		fadeIn:  DefaultFadeIn,
		fadeOut: DefaultFadeOut,
		steps:   DefaultFadeSteps,
		failed:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = logging.OrNop(t.logger)

	if r, ok := sink.(EndReporter); ok {
		r.SetEndHandler(t.handleEnd)
	}
	if r, ok := sink.(ErrorReporter); ok {
		r.SetErrorHandler(t.handleError)
	}
	return t
}

// OnEnd registers fn to be called when the current source plays to its end.
func (t *Transport) OnEnd(fn func(url string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onEnd = fn
}

// OnError registers fn to be called when the current source fails while
// playing. Failed reports true for url by then.
func (t *Transport) OnError(fn func(url string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onError = fn
}

// Available reports whether the sink can play at all.
func (t *Transport) Available() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.available()
}

// State returns the current state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// URL returns the loaded source, empty when idle.
func (t *Transport) URL() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.url
}

// Volume returns the last volume sent to the sink.
func (t *Transport) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

// Failed reports whether loading url has failed during this process.
func (t *Transport) Failed(url string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed[url]
}

// Sync brings playback in line with the active page. With shouldPlay and a
// url it fades url in, replacing any other source; otherwise it fades out
// whatever is playing. Errors are audio errors; the transport is left idle.
func (t *Transport) Sync(url string, shouldPlay bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}

	if shouldPlay && url != "" {
		return t.play(url)
	}

	switch t.state {
	case FadingIn, Playing:
		t.state = FadingOut
		t.logger.Debug("narration: fading out", "url", t.url, "from", t.volume)
		t.ramp(t.volume, 0, t.fadeOut, func() {
			t.stopSink()
			t.reset()
			t.logger.Debug("narration: stopped")
		})
	}
	// Idle has nothing to stop; FadingOut already has its stop scheduled.
	return nil
}

// Stop stops playback immediately and cancels any pending fade.
func (t *Transport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.hardStop()
}

// Close stops playback and releases the sink. Later calls are ignored.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.hardStop()
	t.closed = true
	if c, ok := t.sink.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (t *Transport) play(url string) error {
	if url == t.url && (t.state == FadingIn || t.state == Playing) {
		return nil
	}

	// Never let two sources overlap: whatever is loaded stops first.
	if t.state != Idle {
		t.hardStop()
	}

	if !t.available() {
		return t.fail(url, "play", ErrNoPlayer)
	}

	if err := t.sink.Load(url); err != nil {
		return t.fail(url, "load", err)
	}
	t.setVolume(0)
	if err := t.sink.Play(); err != nil {
		return t.fail(url, "play", err)
	}

	t.url = url
	t.state = FadingIn
	t.logger.Debug("narration: fading in", "url", url)
	t.ramp(0, 1, t.fadeIn, func() {
		t.state = Playing
	})
	return nil
}

func (t *Transport) fail(url, op string, err error) error {
	if t.failed[url] {
		t.logger.Debug("narration: "+op+" failed again", "url", url, "error", err)
	} else {
		t.logger.Warn("narration: "+op+" failed", "url", url, "error", err)
	}
	t.failed[url] = true
	t.stopSink()
	t.reset()
	return apperr.Wrapf(err, apperr.CodeAudio, "%s narration %q", op, url)
}

// ramp steps the volume from -> to over d, then calls done. Must hold mu.
func (t *Transport) ramp(from, to float64, d time.Duration, done func()) {
	steps := t.steps
	interval := d / time.Duration(steps)

	var step func(i int)
	step = func(i int) {
		t.setVolume(from + (to-from)*float64(i)/float64(steps))
		if i == steps {
			done()
			return
		}
		t.schedule(interval, func() { step(i + 1) })
	}
	t.schedule(interval, func() { step(1) })
}

// schedule replaces the pending timer with fn after d. Must hold mu.
func (t *Transport) schedule(d time.Duration, fn func()) {
	t.cancelTimer()
	gen := t.gen
	t.timer = t.clock.AfterFunc(d, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		if t.closed || gen != t.gen {
			return
		}
		t.timer = nil
		fn()
	})
}

func (t *Transport) cancelTimer() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.gen++
}

func (t *Transport) hardStop() {
	t.cancelTimer()
	if t.state != Idle {
		t.stopSink()
		t.logger.Debug("narration: hard stop", "url", t.url, "state", t.state.String())
	}
	t.reset()
}

func (t *Transport) reset() {
	t.cancelTimer()
	t.state = Idle
	t.url = ""
}

func (t *Transport) available() bool {
	if r, ok := t.sink.(AvailabilityReporter); ok {
		return r.Available()
	}
	return true
}

func (t *Transport) setVolume(v float64) {
	t.volume = v
	if err := t.sink.SetVolume(v); err != nil {
		t.logger.Debug("narration: set volume failed", "error", err)
	}
}

func (t *Transport) stopSink() {
	if err := t.sink.Stop(); err != nil {
		t.logger.Warn("narration: stop failed", "error", err)
	}
}

func (t *Transport) handleEnd(url string) {
	t.mu.Lock()
	if t.closed || t.state == Idle || url != t.url {
		t.mu.Unlock()
		return
	}
	t.reset()
	fn := t.onEnd
	t.mu.Unlock()

	t.logger.Debug("narration: ended", "url", url)
	if fn != nil {
		fn(url)
	}
}

func (t *Transport) handleError(url string, err error) {
	t.mu.Lock()
	if t.closed || t.state == Idle || url != t.url {
		t.mu.Unlock()
		return
	}
	t.failed[url] = true
	t.reset()
	fn := t.onError
	t.mu.Unlock()

	t.logger.Warn("narration: playback failed", "url", url, "error", err)
	if fn != nil {
		fn(url)
	}
}
