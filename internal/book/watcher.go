package book

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/justyntemme/storybook/internal/logging"
)

// Watch watches the catalog's books directory and reloads it after changes
// settle for debounce. fn (if non-nil) is called after each reload. Watch
// blocks until ctx is cancelled.
func Watch(ctx context.Context, c *Catalog, debounce time.Duration, logger *slog.Logger, fn func()) error {
	logger = logging.OrNop(logger)
	if c.dir == "" {
		<-ctx.Done()
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(c.dir); err != nil {
		return err
	}
	// Per-book directories hold data.json.
	entries, _ := os.ReadDir(c.dir)
	for _, e := range entries {
		if e.IsDir() {
			if err := w.Add(filepath.Join(c.dir, e.Name())); err != nil {
				logger.Warn("watcher: add dir failed", slog.String("path", e.Name()), slog.String("error", err.Error()))
			}
		}
	}

	logger.Info("watcher: started", slog.String("dir", c.dir))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(debounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			if err := c.Reload(); err != nil {
				logger.Warn("watcher: reload failed", slog.String("error", err.Error()))
				continue
			}
			logger.Debug("watcher: catalog reloaded")
			if fn != nil {
				fn()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := w.Add(ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed", slog.String("path", ev.Name), slog.String("error", addErr.Error()))
					}
					scheduleReload()
					continue
				}
			}
			if filepath.Ext(ev.Name) != ".json" && ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			scheduleReload()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
