// Package book loads and validates storybook documents.
//
// A book is one JSON document. Documents that fail validation never reach
// the catalog, so routes to them resolve as not found.
package book

import (
	"bytes"
	"encoding/json"
	"net/url"
	"path/filepath"

	"github.com/justyntemme/storybook/internal/apperr"
	"github.com/justyntemme/storybook/pkg/models"
)

var defaultValidator = NewValidator()

// Parse decodes and validates a book document.
func Parse(data []byte) (*models.Book, error) {
	var b models.Book
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&b); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeValidation, "decode book")
	}
	if err := defaultValidator.Validate(&b); err != nil {
		return nil, err
	}
	return &b, nil
}

// resolveNarration makes relative narration paths absolute against dir.
// URLs with a scheme and absolute paths are returned unchanged.
func resolveNarration(ref, dir string) string {
	if ref == "" || filepath.IsAbs(ref) {
		return ref
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		return ref
	}
	if dir == "" {
		return ref
	}
	return filepath.Join(dir, filepath.FromSlash(ref))
}

// withDir returns a copy of b with its narration paths resolved against dir.
func withDir(b *models.Book, dir, source string) *models.Book {
	out := *b
	out.Dir = dir
	out.Source = source
	out.Pages = make([]models.Page, len(b.Pages))
	for i, p := range b.Pages {
		p.NarrationURL = resolveNarration(p.NarrationURL, dir)
		out.Pages[i] = p
	}
	return &out
}
