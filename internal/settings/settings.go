// Package settings owns the process-wide preferences record.
//
// The record is read once at start, every change is persisted immediately,
// and subscribers are notified after each change.
package settings

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/justyntemme/storybook/internal/logging"
	"github.com/justyntemme/storybook/pkg/models"
)

// Persister is the durable settings slot.
type Persister interface {
	LoadSettings(ctx context.Context) (models.Settings, bool, error)
	SaveSettings(ctx context.Context, s models.Settings) error
}

// Service holds the current settings.
type Service struct {
	mu      sync.Mutex
	current models.Settings
	store   Persister
	logger  *slog.Logger
	timeout time.Duration

	nextID int
	subs   map[int]func(models.Settings)
}

// New loads the stored settings. A missing record or a failed read yields
// the defaults; read failures are logged.
func New(ctx context.Context, store Persister, logger *slog.Logger) *Service {
	s := &Service{
		current: models.DefaultSettings(),
		store:   store,
		logger:  logging.OrNop(logger),
		timeout: 2 * time.Second,
		subs:    make(map[int]func(models.Settings)),
	}
	if store == nil {
		return s
	}

	stored, ok, err := store.LoadSettings(ctx)
	switch {
	case err != nil:
		s.logger.Warn("settings: load failed, using defaults", "error", err)
	case ok:
		s.current = stored
	}
	return s
}

// Get returns the current settings.
func (s *Service) Get() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Update applies fn to the current settings, persists the result and
// notifies subscribers. Persistence failures are logged; the new value is
// kept for the session either way.
func (s *Service) Update(fn func(*models.Settings)) models.Settings {
	s.mu.Lock()
	next := s.current
	fn(&next)
	changed := next != s.current
	s.current = next
	subs := make([]func(models.Settings), 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	if !changed {
		return next
	}

	if s.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		if err := s.store.SaveSettings(ctx, next); err != nil {
			s.logger.Warn("settings: save failed", "error", err)
		}
		cancel()
	}
	s.logger.Debug("settings: updated", "theme", next.Theme, "reading_mode", next.ReadingMode)

	for _, sub := range subs {
		sub(next)
	}
	return next
}

// SetTheme changes the theme.
func (s *Service) SetTheme(t models.Theme) models.Settings {
	return s.Update(func(st *models.Settings) { st.Theme = t })
}

// SetReadingMode changes the reading mode.
func (s *Service) SetReadingMode(m models.ReadingMode) models.Settings {
	return s.Update(func(st *models.Settings) { st.ReadingMode = m })
}

// ToggleReadingMode switches between narrated and self-read.
func (s *Service) ToggleReadingMode() models.Settings {
	return s.Update(func(st *models.Settings) {
		if st.ReadingMode == models.ReadingModeNarrated {
			st.ReadingMode = models.ReadingModeSelfRead
		} else {
			st.ReadingMode = models.ReadingModeNarrated
		}
	})
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription.
func (s *Service) Subscribe(fn func(models.Settings)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}
