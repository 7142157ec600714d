package narration

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/storybook/internal/apperr"
	"github.com/justyntemme/storybook/internal/clock"
)

type fakeSink struct {
	mu      sync.Mutex
	calls   []string
	volume  float64
	loaded  string
	playing bool
	loadErr error
	gone    bool
	onEnd   func(string)
	onError func(string, error)
}

func (s *fakeSink) record(c string) {
	s.calls = append(s.calls, c)
}

func (s *fakeSink) Load(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("load " + url)
	if s.loadErr != nil {
		return s.loadErr
	}
	s.loaded = url
	s.playing = false
	return nil
}

func (s *fakeSink) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("play")
	s.playing = true
	return nil
}

func (s *fakeSink) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("stop")
	s.playing = false
	s.loaded = ""
	return nil
}

func (s *fakeSink) SetVolume(v float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = v
	return nil
}

func (s *fakeSink) SetEndHandler(fn func(string)) {
	s.onEnd = fn
}

func (s *fakeSink) SetErrorHandler(fn func(string, error)) {
	s.onError = fn
}

func (s *fakeSink) Available() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.gone
}

func (s *fakeSink) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func newTestTransport(t *testing.T) (*Transport, *fakeSink, *clock.Fake) {
	t.Helper()
	sink := &fakeSink{}
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	return NewTransport(sink, WithClock(clk)), sink, clk
}

func TestSync_FadeInToPlaying(t *testing.T) {
	tr, sink, clk := newTestTransport(t)

	require.NoError(t, tr.Sync("a.mp3", true))
	assert.Equal(t, FadingIn, tr.State())
	assert.Equal(t, []string{"load a.mp3", "play"}, sink.Calls())
	assert.Zero(t, tr.Volume())

	clk.Advance(250 * time.Millisecond)
	assert.Equal(t, FadingIn, tr.State())
	assert.InDelta(t, 0.5, tr.Volume(), 0.001)

	clk.Advance(250 * time.Millisecond)
	assert.Equal(t, Playing, tr.State())
	assert.InDelta(t, 1.0, sink.volume, 0.001)
	assert.Zero(t, clk.Pending())
}

func TestSync_SameURLWhilePlayingIsNoop(t *testing.T) {
	tr, sink, clk := newTestTransport(t)

	require.NoError(t, tr.Sync("a.mp3", true))
	clk.Advance(100 * time.Millisecond)
	require.NoError(t, tr.Sync("a.mp3", true))
	clk.Advance(time.Second)
	require.NoError(t, tr.Sync("a.mp3", true))

	assert.Equal(t, []string{"load a.mp3", "play"}, sink.Calls())
	assert.Equal(t, Playing, tr.State())
}

func TestSync_StopWhileIdleIsIdempotent(t *testing.T) {
	tr, sink, clk := newTestTransport(t)

	require.NoError(t, tr.Sync("a.mp3", false))
	require.NoError(t, tr.Sync("", false))

	assert.Empty(t, sink.Calls())
	assert.Zero(t, clk.Pending(), "no timers scheduled")
	assert.Equal(t, Idle, tr.State())
}

func TestSync_FadeOutStopsExactlyOnce(t *testing.T) {
	tr, sink, clk := newTestTransport(t)

	require.NoError(t, tr.Sync("a.mp3", true))
	clk.Advance(time.Second)
	require.Equal(t, Playing, tr.State())

	require.NoError(t, tr.Sync("a.mp3", false))
	assert.Equal(t, FadingOut, tr.State())

	clk.Advance(150 * time.Millisecond)
	// Re-entering during the fade does not schedule a second stop.
	require.NoError(t, tr.Sync("", false))
	assert.InDelta(t, 0.5, tr.Volume(), 0.001)

	clk.Advance(150 * time.Millisecond)
	assert.Equal(t, Idle, tr.State())
	assert.Empty(t, tr.URL())

	clk.Advance(time.Second)
	assert.Equal(t, []string{"load a.mp3", "play", "stop"}, sink.Calls())
	assert.Zero(t, clk.Pending())
}

func TestSync_FadeOutStartsFromCurrentVolume(t *testing.T) {
	tr, sink, clk := newTestTransport(t)

	require.NoError(t, tr.Sync("a.mp3", true))
	clk.Advance(200 * time.Millisecond)
	require.InDelta(t, 0.4, tr.Volume(), 0.001)

	require.NoError(t, tr.Sync("", false))
	clk.Advance(30 * time.Millisecond)
	assert.InDelta(t, 0.36, tr.Volume(), 0.001)
	assert.Less(t, sink.volume, 0.4)

	clk.Advance(270 * time.Millisecond)
	assert.Equal(t, Idle, tr.State())
	assert.Equal(t, "stop", sink.Calls()[len(sink.Calls())-1])
}

func TestSync_FadeInterruptNeverOverlaps(t *testing.T) {
	tr, sink, clk := newTestTransport(t)

	require.NoError(t, tr.Sync("a.mp3", true))
	clk.Advance(200 * time.Millisecond)
	require.NoError(t, tr.Sync("b.mp3", true))

	assert.Equal(t, []string{"load a.mp3", "play", "stop", "load b.mp3", "play"}, sink.Calls())
	assert.Equal(t, "b.mp3", tr.URL())
	assert.Zero(t, tr.Volume(), "b starts silent")

	// a's remaining ramp steps never fire against b.
	clk.Advance(50 * time.Millisecond)
	assert.InDelta(t, 0.1, tr.Volume(), 0.001)
	clk.Advance(450 * time.Millisecond)
	assert.Equal(t, Playing, tr.State())
}

func TestSync_PlayDuringFadeOutHardStops(t *testing.T) {
	tr, sink, clk := newTestTransport(t)

	require.NoError(t, tr.Sync("a.mp3", true))
	clk.Advance(time.Second)
	require.NoError(t, tr.Sync("", false))
	clk.Advance(100 * time.Millisecond)
	require.Equal(t, FadingOut, tr.State())

	require.NoError(t, tr.Sync("b.mp3", true))
	assert.Equal(t, FadingIn, tr.State())

	// The cancelled fade-out must not stop b later.
	clk.Advance(time.Second)
	assert.Equal(t, Playing, tr.State())
	assert.Equal(t, []string{"load a.mp3", "play", "stop", "load b.mp3", "play"}, sink.Calls())
}

func TestRapidPageFlipsLeaveOneSource(t *testing.T) {
	tr, sink, clk := newTestTransport(t)

	for i := 1; i <= 5; i++ {
		require.NoError(t, tr.Sync(fmt.Sprintf("p%d.mp3", i), true))
		clk.Advance(40 * time.Millisecond)
	}
	clk.Advance(time.Second)

	assert.Equal(t, Playing, tr.State())
	assert.Equal(t, "p5.mp3", tr.URL())
	assert.Equal(t, "p5.mp3", sink.loaded)
	assert.Zero(t, clk.Pending())
}

func TestStop_CancelsTimers(t *testing.T) {
	tr, sink, clk := newTestTransport(t)

	require.NoError(t, tr.Sync("a.mp3", true))
	clk.Advance(100 * time.Millisecond)
	tr.Stop()

	assert.Equal(t, Idle, tr.State())
	assert.Zero(t, clk.Pending())
	assert.False(t, sink.playing)

	// Stop while idle touches nothing.
	n := len(sink.Calls())
	tr.Stop()
	assert.Len(t, sink.Calls(), n)
}

func TestClose_IgnoresLaterCalls(t *testing.T) {
	tr, sink, clk := newTestTransport(t)

	require.NoError(t, tr.Sync("a.mp3", true))
	require.NoError(t, tr.Close())
	n := len(sink.Calls())

	require.NoError(t, tr.Sync("b.mp3", true))
	clk.Advance(time.Second)

	assert.Len(t, sink.Calls(), n)
	assert.Equal(t, Idle, tr.State())
}

func TestSync_LoadFailureIsAudioError(t *testing.T) {
	tr, sink, _ := newTestTransport(t)
	sink.loadErr = errors.New("no such file")

	err := tr.Sync("missing.mp3", true)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrAudio))
	assert.True(t, tr.Failed("missing.mp3"))
	assert.Equal(t, Idle, tr.State())
}

func TestSync_NoPlayerNeverPlays(t *testing.T) {
	clk := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	tr := NewTransport(NopSink{}, WithClock(clk))
	assert.False(t, tr.Available())

	for range 2 {
		err := tr.Sync("a.mp3", true)
		require.Error(t, err)
		assert.True(t, apperr.Is(err, apperr.ErrAudio))
		assert.ErrorIs(t, err, ErrNoPlayer)
		assert.True(t, tr.Failed("a.mp3"))
		assert.Equal(t, Idle, tr.State())
	}

	clk.Advance(time.Second)
	assert.Equal(t, Idle, tr.State())
	assert.Empty(t, tr.URL())
}

func TestSync_PlayerGoneStopsCurrent(t *testing.T) {
	tr, sink, clk := newTestTransport(t)
	require.NoError(t, tr.Sync("a.mp3", true))
	clk.Advance(time.Second)
	require.Equal(t, Playing, tr.State())

	sink.mu.Lock()
	sink.gone = true
	sink.mu.Unlock()

	err := tr.Sync("b.mp3", true)
	assert.ErrorIs(t, err, ErrNoPlayer)
	assert.True(t, tr.Failed("b.mp3"))
	assert.False(t, tr.Failed("a.mp3"))
	assert.Equal(t, Idle, tr.State())
	assert.NotContains(t, sink.Calls(), "load b.mp3")
	assert.False(t, sink.playing)
}

func TestOnError_MarksFailedAndIdles(t *testing.T) {
	tr, sink, clk := newTestTransport(t)

	var failed []string
	tr.OnError(func(url string) { failed = append(failed, url) })

	require.NoError(t, tr.Sync("a.mp3", true))
	clk.Advance(time.Second)

	sink.onError("other.mp3", errors.New("unrecognized file format"))
	assert.Empty(t, failed, "failure of a stale source is ignored")
	assert.Equal(t, Playing, tr.State())

	sink.onError("a.mp3", errors.New("unrecognized file format"))
	assert.Equal(t, []string{"a.mp3"}, failed)
	assert.True(t, tr.Failed("a.mp3"))
	assert.Equal(t, Idle, tr.State())

	// Once idle, a late failure report changes nothing.
	sink.onError("a.mp3", errors.New("again"))
	assert.Len(t, failed, 1)
}

func TestOnEnd_ReturnsToIdle(t *testing.T) {
	tr, sink, clk := newTestTransport(t)

	var ended []string
	tr.OnEnd(func(url string) { ended = append(ended, url) })

	require.NoError(t, tr.Sync("a.mp3", true))
	clk.Advance(time.Second)

	sink.onEnd("other.mp3")
	assert.Empty(t, ended, "end of a stale source is ignored")

	sink.onEnd("a.mp3")
	assert.Equal(t, []string{"a.mp3"}, ended)
	assert.Equal(t, Idle, tr.State())
}

func TestWithFades(t *testing.T) {
	tr, _, clk := newTestTransport(t)
	WithFades(100*time.Millisecond, 0, 4)(tr)

	require.NoError(t, tr.Sync("a.mp3", true))
	clk.Advance(75 * time.Millisecond)
	assert.InDelta(t, 0.75, tr.Volume(), 0.001)
	clk.Advance(25 * time.Millisecond)
	assert.Equal(t, Playing, tr.State())
}
