package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/justyntemme/storybook/internal/apperr"
	"github.com/justyntemme/storybook/internal/book"
	"github.com/justyntemme/storybook/internal/config"
	"github.com/justyntemme/storybook/internal/logging"
	"github.com/justyntemme/storybook/internal/settings"
	"github.com/justyntemme/storybook/internal/store"
	"github.com/justyntemme/storybook/pkg/models"
)

func runValidate(_ context.Context, cmd *cli.Command) error {
	files := cmd.Args().Slice()
	if len(files) == 0 {
		return fmt.Errorf("validate: no files given")
	}
	return validateBooks(os.Stdout, files, colorEnabled(os.Stdout))
}

// validateBooks checks each file and reports one status line per book.
func validateBooks(w io.Writer, files []string, colorize bool) error {
	failed := 0
	for _, path := range files {
		b, err := validateFile(path)
		if err != nil {
			failed++
			fmt.Fprintln(w, renderStatusLine(path, statusError, err.Error(), colorize))
			fields := apperr.FieldErrors(err)
			keys := make([]string, 0, len(fields))
			for k := range fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(w, "%s    %s: %s\n", statusIndent, k, fields[k])
			}
			continue
		}
		fmt.Fprintln(w, renderStatusLine(path, statusOK,
			fmt.Sprintf("%s (%s, %d pages)", b.Title, b.Slug, b.TotalPages()), colorize))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d books invalid", failed, len(files))
	}
	return nil
}

func validateFile(path string) (*models.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.NotFoundf("no such file %s", path)
		}
		return nil, apperr.Wrap(err, apperr.CodeStorage, "read book")
	}
	return book.Parse(data)
}

// openStore opens the progress database without taking the reader lock.
func openStore(cfg *config.Config) (*store.Store, error) {
	return store.Open(filepath.Join(cfg.Data.Dir, store.DBFile), logging.NewNop())
}

func runProgressList(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListProgress(ctx)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No reading progress yet.")
		return nil
	}

	// Titles are best effort; a missing catalog still lists slugs.
	catalog, _ := book.NewCatalog(cfg.Library.BooksDir)
	fmt.Println(progressTable(records, catalog))
	return nil
}

// progressTable renders progress records, newest first as stored.
func progressTable(records []models.ProgressRecord, catalog *book.Catalog) string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		title, pages := "-", "?"
		if catalog != nil {
			if b, err := catalog.Get(r.Slug); err == nil {
				title = b.Title
				pages = strconv.Itoa(b.TotalPages())
			}
		}
		rows = append(rows, []string{
			r.Slug,
			title,
			fmt.Sprintf("%d/%s", r.Page, pages),
			r.UpdatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	return renderTable(
		[]string{"Slug", "Title", "Page", "Updated"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func runProgressClear(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lock, err := store.AcquireLock(cfg.Data.Dir)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	slug := cmd.Args().First()
	n, err := st.ClearProgress(ctx, slug)
	if err != nil {
		return err
	}
	switch {
	case slug == "":
		fmt.Printf("Cleared progress for %d books.\n", n)
	case n == 0:
		fmt.Printf("No progress stored for %s.\n", slug)
	default:
		fmt.Printf("Cleared progress for %s.\n", slug)
	}
	return nil
}

func runSettingsShow(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	s := settings.New(ctx, st, nil).Get()
	fmt.Printf("theme: %s\nmode:  %s\n", s.Theme, s.ReadingMode)
	return nil
}

func runSettingsSet(ctx context.Context, cmd *cli.Command) error {
	change, err := parseSettingArgs(cmd.Args().Slice())
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	lock, err := store.AcquireLock(cfg.Data.Dir)
	if err != nil {
		return err
	}
	defer lock.Release()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	s := settings.New(ctx, st, nil).Update(change)
	fmt.Printf("theme: %s\nmode:  %s\n", s.Theme, s.ReadingMode)
	return nil
}

// parseSettingArgs parses key=value pairs into a settings change.
func parseSettingArgs(args []string) (func(*models.Settings), error) {
	if len(args) == 0 {
		return nil, apperr.Validationf("expected theme=... or mode=...")
	}

	var (
		theme    models.Theme
		mode     models.ReadingMode
		setTheme bool
		setMode  bool
	)
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, apperr.Validationf("expected key=value, got %q", arg)
		}
		var err error
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "theme":
			theme, err = models.ParseTheme(v)
			setTheme = true
		case "mode", "reading_mode", "reading-mode":
			mode, err = models.ParseReadingMode(v)
			setMode = true
		default:
			return nil, apperr.Validationf("unknown setting %q", k)
		}
		if err != nil {
			return nil, err
		}
	}

	return func(s *models.Settings) {
		if setTheme {
			s.Theme = theme
		}
		if setMode {
			s.ReadingMode = mode
		}
	}, nil
}

func runConfigInit(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil && !cmd.Bool("force") {
		return apperr.Conflictf("%s already exists, use --force to overwrite", path)
	}

	cfg := config.NewDefaultConfig()
	cfg.SetPath(path)
	if err := cfg.Save(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("Wrote %s\n", path)
	return nil
}
