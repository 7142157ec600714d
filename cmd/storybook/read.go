package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/justyntemme/storybook/internal/assets"
	"github.com/justyntemme/storybook/internal/book"
	"github.com/justyntemme/storybook/internal/config"
	"github.com/justyntemme/storybook/internal/input"
	"github.com/justyntemme/storybook/internal/logging"
	"github.com/justyntemme/storybook/internal/narration"
	"github.com/justyntemme/storybook/internal/route"
	"github.com/justyntemme/storybook/internal/settings"
	"github.com/justyntemme/storybook/internal/store"
	"github.com/justyntemme/storybook/internal/ui"
	"github.com/justyntemme/storybook/internal/ui/terminal"
)

// catalogDebounce is how long the books directory must be quiet before
// the catalog reloads.
const catalogDebounce = 300 * time.Millisecond

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func runRead(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	lock, err := store.AcquireLock(cfg.Data.Dir)
	if err != nil {
		return err
	}
	defer lock.Release()

	// The terminal belongs to the UI, so logs go to a file.
	logFile, err := logging.OpenFile(cfg.LogFile())
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	logger := logging.New(logging.Config{
		Writer: logFile,
		Format: cfg.Log.Format,
		Level:  logging.ParseLevel(cfg.Log.Level),
	})
	slog.SetDefault(logger)
	logger.Info("storybook: starting", "config", cfg.Path(), "books", cfg.Library.BooksDir)

	catalog, err := book.NewCatalog(cfg.Library.BooksDir, book.WithLogger(logger))
	if err != nil {
		return err
	}

	st, err := store.Open(filepath.Join(cfg.Data.Dir, store.DBFile), logger)
	if err != nil {
		return err
	}
	defer st.Close()

	progress := store.NewProgressWriter(st, logger)
	defer progress.Close()

	prefs := settings.New(ctx, st, logger)

	transport := narration.NewTransport(openSink(ctx, cfg, logger),
		narration.WithLogger(logger),
		narration.WithFades(cfg.Narration.FadeIn, cfg.Narration.FadeOut, cfg.Narration.FadeSteps),
	)
	defer transport.Close()

	start := route.LibraryPath
	if loc := cmd.Args().First(); loc != "" {
		start = loc
	}
	history := route.NewHistory(start,
		route.WithConfirmDelay(cfg.Route.ConfirmDelay),
		route.WithLogger(logger),
	)
	defer history.Close()

	// Query the terminal before the program takes over stdin.
	dark := lipgloss.HasDarkBackground()
	imageMode := terminal.DetectTerminalMode()
	logger.Debug("storybook: terminal", "dark", dark, "images", imageMode.String())

	app := ui.NewApp(ui.Options{
		Catalog:           catalog,
		Progress:          progress,
		Settings:          prefs,
		Transport:         transport,
		History:           history,
		Assets:            assets.NewClient(assets.DefaultTimeout, logger),
		Keys:              input.NewKeyMap(cfg.Keys.Prev, cfg.Keys.Next),
		Cell:              input.CellSize{Width: cfg.Input.CellWidth, Height: cfg.Input.CellHeight},
		SuppressionWindow: cfg.Reader.SuppressionWindow,
		Logger:            logger,
		DarkBackground:    dark,
		ImageMode:         imageMode,
	})

	p := tea.NewProgram(app,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	g, gctx := errgroup.WithContext(ctx)
	watchCtx, stopWatch := context.WithCancel(gctx)

	g.Go(func() error {
		defer stopWatch()
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("error running program: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// Without a watcher the library still works; it just won't refresh.
		if err := book.Watch(watchCtx, catalog, catalogDebounce, logger, app.NotifyCatalogReload); err != nil {
			logger.Warn("storybook: catalog watch stopped", "error", err)
		}
		return nil
	})

	err = g.Wait()
	logger.Info("storybook: stopped")
	return err
}

// openSink starts the narration player, falling back to silence.
func openSink(ctx context.Context, cfg *config.Config, logger *slog.Logger) narration.Sink {
	if !cfg.Narration.Enabled {
		return narration.NopSink{}
	}
	sink, err := narration.NewMPVSink(ctx, cfg.Narration.Player, logger)
	if err != nil {
		logger.Warn("storybook: narration disabled", "player", cfg.Narration.Player, "error", err)
		return narration.NopSink{}
	}
	return sink
}
