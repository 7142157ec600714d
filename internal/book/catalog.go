package book

import (
	"embed"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/justyntemme/storybook/internal/apperr"
	"github.com/justyntemme/storybook/internal/logging"
	"github.com/justyntemme/storybook/pkg/models"
)

//go:embed builtin/*.json
var builtinFS embed.FS

// Catalog holds every loadable book keyed by slug.
type Catalog struct {
	mu      sync.RWMutex
	dir     string
	builtin fs.FS
	books   map[string]*models.Book
	logger  *slog.Logger
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithBuiltins replaces the embedded sample books. Pass nil to disable them.
func WithBuiltins(fsys fs.FS) CatalogOption {
	return func(c *Catalog) { c.builtin = fsys }
}

// WithLogger sets the catalog logger.
func WithLogger(logger *slog.Logger) CatalogOption {
	return func(c *Catalog) { c.logger = logger }
}

// NewCatalog creates a catalog over the books directory and loads it.
// dir may be empty, in which case only built-in books are available.
func NewCatalog(dir string, opts ...CatalogOption) (*Catalog, error) {
	builtin, err := fs.Sub(builtinFS, "builtin")
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal, "open built-in books")
	}
	c := &Catalog{dir: dir, builtin: builtin}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrNop(c.logger)

	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the books directory.
func (c *Catalog) Dir() string {
	return c.dir
}

// Get returns the book with the given slug.
func (c *Catalog) Get(slug string) (*models.Book, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, ok := c.books[slug]
	if !ok {
		return nil, apperr.NotFoundf("book %q not found", slug)
	}
	return b, nil
}

// List returns all books sorted by title.
func (c *Catalog) List() []*models.Book {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*models.Book, 0, len(c.books))
	for _, b := range c.books {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title == out[j].Title {
			return out[i].Slug < out[j].Slug
		}
		return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
	})
	return out
}

// Reload rereads built-in books and the books directory. Invalid documents
// are logged and skipped. A directory book replaces a built-in with the
// same slug; within the directory the first one found wins.
func (c *Catalog) Reload() error {
	books := make(map[string]*models.Book)

	if c.builtin != nil {
		entries, err := fs.ReadDir(c.builtin, ".")
		if err != nil {
			return apperr.Wrap(err, apperr.CodeInternal, "read built-in books")
		}
		for _, e := range entries {
			if e.IsDir() || path.Ext(e.Name()) != ".json" {
				continue
			}
			data, err := fs.ReadFile(c.builtin, e.Name())
			if err != nil {
				c.logger.Warn("catalog: read built-in failed", "file", e.Name(), "error", err)
				continue
			}
			b, err := Parse(data)
			if err != nil {
				c.logger.Warn("catalog: invalid built-in book", "file", e.Name(), "error", err, "fields", apperr.FieldErrors(err))
				continue
			}
			dir := ""
			if c.dir != "" {
				dir = filepath.Join(c.dir, b.Slug)
			}
			books[b.Slug] = withDir(b, dir, "builtin:"+e.Name())
		}
	}

	fromDir := make(map[string]bool)
	for _, p := range c.candidates() {
		data, err := os.ReadFile(p)
		if err != nil {
			c.logger.Warn("catalog: read failed", "path", p, "error", err)
			continue
		}
		b, err := Parse(data)
		if err != nil {
			c.logger.Warn("catalog: invalid book skipped", "path", p, "error", err, "fields", apperr.FieldErrors(err))
			continue
		}
		if fromDir[b.Slug] {
			c.logger.Warn("catalog: duplicate slug ignored", "slug", b.Slug, "path", p)
			continue
		}
		fromDir[b.Slug] = true
		books[b.Slug] = withDir(b, filepath.Dir(p), p)
	}

	c.mu.Lock()
	c.books = books
	c.mu.Unlock()

	c.logger.Debug("catalog: loaded", "books", len(books), "dir", c.dir)
	return nil
}

// candidates lists <dir>/*.json followed by <dir>/*/data.json, each sorted.
func (c *Catalog) candidates() []string {
	if c.dir == "" {
		return nil
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("catalog: read books dir failed", "dir", c.dir, "error", err)
		}
		return nil
	}

	var flat, nested []string
	for _, e := range entries {
		switch {
		case e.IsDir():
			p := filepath.Join(c.dir, e.Name(), "data.json")
			if _, err := os.Stat(p); err == nil {
				nested = append(nested, p)
			}
		case filepath.Ext(e.Name()) == ".json":
			flat = append(flat, filepath.Join(c.dir, e.Name()))
		}
	}
	return append(flat, nested...)
}
