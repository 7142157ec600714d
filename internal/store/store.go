// Package store persists reading progress and settings in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/justyntemme/storybook/internal/apperr"
	"github.com/justyntemme/storybook/internal/logging"
	"github.com/justyntemme/storybook/pkg/models"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// DBFile is the database file name inside the data directory.
const DBFile = "storybook.db"

// Store provides SQLite-backed persistence for progress and settings.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open creates a new SQLite store at the given path.
// It configures WAL mode, sets pragmas, and runs the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "create data directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "open sqlite")
	}

	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, apperr.Wrap(fmt.Errorf("exec pragma %q: %w", pragma, err), apperr.CodeStorage, "configure sqlite")
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, apperr.Wrap(err, apperr.CodeStorage, "exec schema")
	}

	return &Store{db: db, logger: logging.OrNop(logger), now: time.Now}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// LastReadPage returns the stored page for slug. ok is false when the book
// has no record.
func (s *Store) LastReadPage(ctx context.Context, slug string) (int, bool, error) {
	var page int
	err := s.db.QueryRowContext(ctx, `SELECT page FROM progress WHERE slug = ?`, slug).Scan(&page)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, apperr.Wrapf(err, apperr.CodeStorage, "read progress for %q", slug)
	}
	return page, true, nil
}

// SetLastReadPage records page as the last page read in slug. Last write wins.
func (s *Store) SetLastReadPage(ctx context.Context, slug string, page int) error {
	if page < 1 {
		return apperr.Validationf("page must be positive, got %d", page)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO progress (slug, page, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(slug) DO UPDATE SET page = excluded.page, updated_at = excluded.updated_at`,
		slug, page, s.now().UnixNano())
	if err != nil {
		return apperr.Wrapf(err, apperr.CodeStorage, "write progress for %q", slug)
	}
	return nil
}

// ListProgress returns every progress record, most recently updated first.
func (s *Store) ListProgress(ctx context.Context) ([]models.ProgressRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slug, page, updated_at FROM progress ORDER BY updated_at DESC, slug`)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "list progress")
	}
	defer rows.Close()

	var records []models.ProgressRecord
	for rows.Next() {
		var (
			r  models.ProgressRecord
			ns int64
		)
		if err := rows.Scan(&r.Slug, &r.Page, &ns); err != nil {
			return nil, apperr.Wrap(err, apperr.CodeStorage, "scan progress")
		}
		r.UpdatedAt = time.Unix(0, ns)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorage, "list progress")
	}
	return records, nil
}

// ClearProgress deletes the record for slug, or every record when slug is empty.
// It returns the number of records removed.
func (s *Store) ClearProgress(ctx context.Context, slug string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if slug == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM progress`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM progress WHERE slug = ?`, slug)
	}
	if err != nil {
		return 0, apperr.Wrap(err, apperr.CodeStorage, "clear progress")
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// LoadSettings returns the stored settings. ok is false when nothing has
// been saved yet; the caller applies defaults.
func (s *Store) LoadSettings(ctx context.Context) (models.Settings, bool, error) {
	var theme, mode string
	err := s.db.QueryRowContext(ctx, `SELECT theme, reading_mode FROM settings WHERE id = 1`).Scan(&theme, &mode)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Settings{}, false, nil
	}
	if err != nil {
		return models.Settings{}, false, apperr.Wrap(err, apperr.CodeStorage, "read settings")
	}

	settings := models.DefaultSettings()
	if t, err := models.ParseTheme(theme); err == nil {
		settings.Theme = t
	} else {
		s.logger.Warn("store: stored theme ignored", "theme", theme)
	}
	if m, err := models.ParseReadingMode(mode); err == nil {
		settings.ReadingMode = m
	} else {
		s.logger.Warn("store: stored reading mode ignored", "mode", mode)
	}
	return settings, true, nil
}

// SaveSettings replaces the stored settings.
func (s *Store) SaveSettings(ctx context.Context, settings models.Settings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (id, theme, reading_mode, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET theme = excluded.theme, reading_mode = excluded.reading_mode, updated_at = excluded.updated_at`,
		string(settings.Theme), string(settings.ReadingMode), s.now().UnixNano())
	if err != nil {
		return apperr.Wrap(err, apperr.CodeStorage, "write settings")
	}
	return nil
}
