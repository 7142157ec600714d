package store

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/justyntemme/storybook/internal/logging"
)

// ProgressStore is the durable slug to page mapping.
type ProgressStore interface {
	LastReadPage(ctx context.Context, slug string) (int, bool, error)
	SetLastReadPage(ctx context.Context, slug string, page int) error
}

type progressWrite struct {
	slug string
	page int
	seq  uint64
}

// ProgressWriter applies progress writes on a single goroutine so page
// turns never wait on disk. Only the latest page per slug is kept while a
// write is outstanding; reads see it before it reaches the store.
type ProgressWriter struct {
	store   ProgressStore
	logger  *slog.Logger
	timeout time.Duration

	// wake holds at most one signal; pending is the source of truth.
	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	seq     uint64
	pending map[string]progressWrite
}

// NewProgressWriter starts a writer over store.
func NewProgressWriter(store ProgressStore, logger *slog.Logger) *ProgressWriter {
	w := &ProgressWriter{
		store:   store,
		logger:  logging.OrNop(logger),
		timeout: 5 * time.Second,
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		pending: make(map[string]progressWrite),
	}
	go w.run()
	return w
}

// LastReadPage returns the pending page for slug if there is one,
// otherwise the stored one.
func (w *ProgressWriter) LastReadPage(ctx context.Context, slug string) (int, bool, error) {
	w.mu.Lock()
	wr, ok := w.pending[slug]
	w.mu.Unlock()
	if ok {
		return wr.page, true, nil
	}
	return w.store.LastReadPage(ctx, slug)
}

// SetLastReadPage records the page and returns immediately, however slow
// the store is. Writes after Close are dropped.
func (w *ProgressWriter) SetLastReadPage(_ context.Context, slug string, page int) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Debug("progress: write after close dropped", "slug", slug, "page", page)
		return nil
	}
	w.seq++
	w.pending[slug] = progressWrite{slug: slug, page: page, seq: w.seq}
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

// Close flushes pending writes and stops the writer.
func (w *ProgressWriter) Close() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.stop)
	}
	w.mu.Unlock()
	<-w.done
}

func (w *ProgressWriter) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.flush()
		case <-w.stop:
			w.flush()
			return
		}
	}
}

// flush writes pending pages, oldest first, until none are left.
func (w *ProgressWriter) flush() {
	for {
		w.mu.Lock()
		batch := make([]progressWrite, 0, len(w.pending))
		for _, wr := range w.pending {
			batch = append(batch, wr)
		}
		w.mu.Unlock()
		if len(batch) == 0 {
			return
		}
		slices.SortFunc(batch, func(a, b progressWrite) int { return cmp.Compare(a.seq, b.seq) })

		for _, wr := range batch {
			ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
			err := w.store.SetLastReadPage(ctx, wr.slug, wr.page)
			cancel()
			if err != nil {
				w.logger.Warn("progress: write failed", "slug", wr.slug, "page", wr.page, "error", err)
			}

			w.mu.Lock()
			if w.pending[wr.slug].seq == wr.seq {
				delete(w.pending, wr.slug)
			}
			w.mu.Unlock()
		}
	}
}
