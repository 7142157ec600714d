package route

import (
	"log/slog"
	"sync"
	"time"

	"github.com/justyntemme/storybook/internal/clock"
	"github.com/justyntemme/storybook/internal/logging"
)

// DefaultConfirmDelay is how long a shallow replace takes to be confirmed.
const DefaultConfirmDelay = 50 * time.Millisecond

// Cause says why the location changed.
type Cause int

const (
	CausePush Cause = iota
	CauseReplace
	CauseBack
	CauseForward
)

func (c Cause) String() string {
	switch c {
	case CausePush:
		return "push"
	case CauseReplace:
		return "replace"
	case CauseBack:
		return "back"
	case CauseForward:
		return "forward"
	default:
		return "unknown"
	}
}

// LocationChangedMsg reports a location change to the UI.
type LocationChangedMsg struct {
	Path  string
	Cause Cause
}

// History is a stack of visited locations with a cursor, like a browser
// session history. Replacements are confirmed asynchronously after a delay;
// confirmations for replaced entries are still delivered, late and in
// order, exactly like a real router would.
type History struct {
	mu      sync.Mutex
	entries []string
	index   int
	clock   clock.Clock
	delay   time.Duration
	logger  *slog.Logger
	changes chan LocationChangedMsg
	timers  map[clock.Timer]struct{}
	closed  bool
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithClock sets the clock used for replace confirmations.
func WithClock(c clock.Clock) HistoryOption {
	return func(h *History) { h.clock = c }
}

// WithConfirmDelay sets the replace confirmation delay.
func WithConfirmDelay(d time.Duration) HistoryOption {
	return func(h *History) {
		if d >= 0 {
			h.delay = d
		}
	}
}

// WithLogger sets the history logger.
func WithLogger(logger *slog.Logger) HistoryOption {
	return func(h *History) { h.logger = logger }
}

// NewHistory creates a history starting at start.
func NewHistory(start string, opts ...HistoryOption) *History {
	h := &History{
		entries: []string{Clean(start)},
		clock:   clock.Real(),
		delay:   DefaultConfirmDelay,
		changes: make(chan LocationChangedMsg, 64),
		timers:  make(map[clock.Timer]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = logging.OrNop(h.logger)
	return h
}

// Changes delivers location changes.
func (h *History) Changes() <-chan LocationChangedMsg {
	return h.changes
}

// Current returns the current location.
func (h *History) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.entries[h.index]
}

// Push adds path after the current entry, dropping forward entries.
// Views that push open the location themselves, so nothing is emitted.
func (h *History) Push(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	path = Clean(path)
	if h.entries[h.index] == path {
		return
	}
	h.entries = append(h.entries[:h.index+1], path)
	h.index++
}

// Navigate pushes path and emits the change.
func (h *History) Navigate(path string) {
	h.Push(path)
	h.emit(LocationChangedMsg{Path: Clean(path), Cause: CausePush})
}

// Replace swaps the current entry for path without reloading. The change
// is confirmed after the confirmation delay.
func (h *History) Replace(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	path = Clean(path)
	h.entries[h.index] = path

	msg := LocationChangedMsg{Path: path, Cause: CauseReplace}
	var t clock.Timer
	t = h.clock.AfterFunc(h.delay, func() {
		h.mu.Lock()
		delete(h.timers, t)
		closed := h.closed
		h.mu.Unlock()
		if !closed {
			h.emit(msg)
		}
	})
	h.timers[t] = struct{}{}
}

// Back moves to the previous entry. It reports false at the start.
func (h *History) Back() bool {
	h.mu.Lock()
	if h.index == 0 || h.closed {
		h.mu.Unlock()
		return false
	}
	h.index--
	path := h.entries[h.index]
	h.mu.Unlock()

	h.emit(LocationChangedMsg{Path: path, Cause: CauseBack})
	return true
}

// Forward moves to the next entry. It reports false at the end.
func (h *History) Forward() bool {
	h.mu.Lock()
	if h.index >= len(h.entries)-1 || h.closed {
		h.mu.Unlock()
		return false
	}
	h.index++
	path := h.entries[h.index]
	h.mu.Unlock()

	h.emit(LocationChangedMsg{Path: path, Cause: CauseForward})
	return true
}

// Entries returns a copy of the history and the current index.
func (h *History) Entries() ([]string, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.entries...), h.index
}

// Close cancels pending confirmations. Later changes are dropped.
func (h *History) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for t := range h.timers {
		t.Stop()
	}
	clear(h.timers)
}

func (h *History) emit(msg LocationChangedMsg) {
	select {
	case h.changes <- msg:
	default:
		h.logger.Warn("route: change dropped, receiver is behind", "path", msg.Path, "cause", msg.Cause.String())
	}
}
