// Package reader owns page navigation for one open book.
//
// The Controller is the only writer of the current page. Local actions
// (keys, drags, click zones, progress restore) apply immediately and are
// projected outward: progress is written, the location is replaced and
// narration is synced. External location changes are read back only
// through OnExternalPageChange, and only once the suppression window since
// the last local action has passed.
package reader

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/justyntemme/storybook/internal/clock"
	"github.com/justyntemme/storybook/internal/logging"
	"github.com/justyntemme/storybook/internal/route"
	"github.com/justyntemme/storybook/pkg/models"
)

// DefaultSuppressionWindow is how long external page changes are ignored
// after a local action.
const DefaultSuppressionWindow = 2 * time.Second

// ProgressStore is the durable slug to page mapping.
type ProgressStore interface {
	LastReadPage(ctx context.Context, slug string) (int, bool, error)
	SetLastReadPage(ctx context.Context, slug string, page int) error
}

// Locator accepts shallow location replacements.
type Locator interface {
	Replace(path string)
}

// Narrator plays the active page's narration.
type Narrator interface {
	Sync(url string, shouldPlay bool) error
	Stop()
}

// PageChange describes a committed page change.
type PageChange struct {
	Page      int
	Direction int
	External  bool
}

// Controller is the navigation state of one reader session.
type Controller struct {
	book     *models.Book
	progress ProgressStore
	locator  Locator
	narrator Narrator
	clock    clock.Clock
	logger   *slog.Logger
	window   time.Duration
	onChange func(PageChange)

	ctx     context.Context
	cancel  context.CancelFunc
	session string

	currentPage       int
	pendingDirection  int
	lastLocalActionAt time.Time
	restored          bool
	mounted           bool
	narrated          bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used for the suppression window.
func WithClock(c clock.Clock) Option {
	return func(ctrl *Controller) { ctrl.clock = c }
}

// WithLogger sets the controller logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ctrl *Controller) { ctrl.logger = logger }
}

// WithSuppressionWindow overrides the suppression window.
func WithSuppressionWindow(d time.Duration) Option {
	return func(ctrl *Controller) {
		if d > 0 {
			ctrl.window = d
		}
	}
}

// WithNarrator attaches the narration transport.
func WithNarrator(n Narrator) Option {
	return func(ctrl *Controller) { ctrl.narrator = n }
}

// WithNarrated sets the initial reading mode.
func WithNarrated(narrated bool) Option {
	return func(ctrl *Controller) { ctrl.narrated = narrated }
}

// WithPageObserver registers fn to be called after every page change.
func WithPageObserver(fn func(PageChange)) Option {
	return func(ctrl *Controller) { ctrl.onChange = fn }
}

// New creates a controller for book. It does nothing until Mount.
func New(book *models.Book, progress ProgressStore, locator Locator, opts ...Option) *Controller {
	c := &Controller{
		book:     book,
		progress: progress,
		locator:  locator,
		clock:    clock.Real(),
		window:   DefaultSuppressionWindow,
		session:  uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger).With("session", c.session, "slug", book.Slug)
	return c
}

// Mount starts the session at initialPage. If a stored page exists, is in
// range and differs, the session resumes there instead. The stored page is
// consulted once per session.
func (c *Controller) Mount(initialPage int) {
	if c.mounted {
		return
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.mounted = true
	c.currentPage = c.clamp(initialPage)
	c.logger.Debug("reader: mounted", "page", c.currentPage)

	if !c.restored {
		c.restored = true
		if stored, ok := c.storedPage(); ok && stored != c.currentPage {
			c.logger.Info("reader: resuming", "from", c.currentPage, "to", stored)
			c.goTo(stored, sign(stored-c.currentPage))
			return
		}
	}
	c.syncNarration()
}

// Unmount ends the session. Later calls are ignored and narration stops.
func (c *Controller) Unmount() {
	if !c.mounted {
		return
	}
	c.mounted = false
	c.cancel()
	if c.narrator != nil {
		c.narrator.Stop()
	}
	c.logger.Debug("reader: unmounted", "page", c.currentPage)
}

// RequestPrev turns back one page. It does nothing on the first page.
func (c *Controller) RequestPrev() {
	if !c.mounted || c.currentPage <= 1 {
		return
	}
	c.goTo(c.currentPage-1, -1)
}

// RequestNext turns forward one page. It does nothing on the last page.
func (c *Controller) RequestNext() {
	if !c.mounted || c.currentPage >= c.book.TotalPages() {
		return
	}
	c.goTo(c.currentPage+1, +1)
}

// GoTo jumps to page as a local action: progress is written and the
// location replaced, like a page turn. Out-of-range and current pages are
// ignored. It reports whether the page changed.
func (c *Controller) GoTo(page int) bool {
	if !c.mounted || page == c.currentPage || page < 1 || page > c.book.TotalPages() {
		return false
	}
	c.goTo(page, sign(page-c.currentPage))
	return true
}

// OnExternalPageChange offers a page from an external location change.
// It is adopted only outside the suppression window, when it differs from
// the current page and is in range. Adopted pages write no progress and
// request no location. It reports whether the page was adopted.
func (c *Controller) OnExternalPageChange(page int) bool {
	if !c.mounted {
		return false
	}
	since := c.clock.Now().Sub(c.lastLocalActionAt)
	if since <= c.window {
		c.logger.Debug("reader: external change suppressed", "page", page, "current", c.currentPage, "since", since)
		return false
	}
	if page == c.currentPage || page < 1 || page > c.book.TotalPages() {
		return false
	}

	c.logger.Debug("reader: external change adopted", "from", c.currentPage, "to", page)
	c.pendingDirection = 0
	c.currentPage = page
	c.syncNarration()
	c.notify(true)
	return true
}

// SetNarrated changes the reading mode and resyncs narration.
func (c *Controller) SetNarrated(narrated bool) {
	if c.narrated == narrated {
		return
	}
	c.narrated = narrated
	if c.mounted {
		c.syncNarration()
	}
}

// Narrated reports the reading mode the controller plays with.
func (c *Controller) Narrated() bool {
	return c.narrated
}

// Book returns the open book.
func (c *Controller) Book() *models.Book {
	return c.book
}

// Session returns the session id used in log lines.
func (c *Controller) Session() string {
	return c.session
}

// CurrentPage returns the page being shown.
func (c *Controller) CurrentPage() int {
	return c.currentPage
}

// TotalPages returns the number of pages in the book.
func (c *Controller) TotalPages() int {
	return c.book.TotalPages()
}

// Direction returns the direction of the last local page change:
// -1, +1, or 0 after an external change.
func (c *Controller) Direction() int {
	return c.pendingDirection
}

// Page returns the active page.
func (c *Controller) Page() models.Page {
	p, _ := c.book.Page(c.currentPage)
	return p
}

// CanPrev reports whether a previous page exists.
func (c *Controller) CanPrev() bool {
	return c.currentPage > 1
}

// CanNext reports whether a next page exists.
func (c *Controller) CanNext() bool {
	return c.currentPage < c.book.TotalPages()
}

// Mounted reports whether the session is live.
func (c *Controller) Mounted() bool {
	return c.mounted
}

// goTo commits target in order: direction, page, timestamp, progress
// write, location replace, narration sync.
func (c *Controller) goTo(target, direction int) {
	c.pendingDirection = direction
	c.currentPage = target
	c.lastLocalActionAt = c.clock.Now()

	if c.progress != nil {
		if err := c.progress.SetLastReadPage(c.ctx, c.book.Slug, target); err != nil {
			c.logger.Warn("reader: progress write failed", "page", target, "error", err)
		}
	}
	if c.locator != nil {
		c.locator.Replace(route.PagePath(c.book.Slug, target))
	}
	c.syncNarration()
	c.notify(false)
}

func (c *Controller) syncNarration() {
	if c.narrator == nil {
		return
	}
	if err := c.narrator.Sync(c.Page().NarrationURL, c.narrated); err != nil {
		c.logger.Warn("reader: narration unavailable", "page", c.currentPage, "error", err)
	}
}

func (c *Controller) notify(external bool) {
	if c.onChange != nil {
		c.onChange(PageChange{Page: c.currentPage, Direction: c.pendingDirection, External: external})
	}
}

func (c *Controller) storedPage() (int, bool) {
	if c.progress == nil {
		return 0, false
	}
	page, ok, err := c.progress.LastReadPage(c.ctx, c.book.Slug)
	if err != nil {
		c.logger.Warn("reader: progress read failed", "error", err)
		return 0, false
	}
	if !ok || page < 1 || page > c.book.TotalPages() {
		return 0, false
	}
	return page, true
}

func (c *Controller) clamp(page int) int {
	switch total := c.book.TotalPages(); {
	case page < 1:
		return 1
	case page > total:
		return total
	default:
		return page
	}
}

func sign(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	default:
		return 0
	}
}
