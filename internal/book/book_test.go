package book

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/storybook/internal/apperr"
	"github.com/justyntemme/storybook/pkg/models"
)

const validDoc = `{
  "slug": "fox",
  "title": "The Quiet Fox",
  "author": "A. Writer",
  "pages": [
    {"pageNumber": 1, "text": "Once.", "illustration": "https://example.com/1.png"},
    {"pageNumber": 2, "text": "Twice.", "mood": "tense", "narrationUrl": "audio/2.mp3"}
  ]
}`

func TestParse_Valid(t *testing.T) {
	b, err := Parse([]byte(validDoc))
	require.NoError(t, err)

	assert.Equal(t, "fox", b.Slug)
	assert.Equal(t, 2, b.TotalPages())
	p, ok := b.Page(2)
	require.True(t, ok)
	assert.Equal(t, models.MoodTense, p.Mood)
	p1, _ := b.Page(1)
	assert.Equal(t, models.MoodCalm, p1.MoodOrDefault())
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		doc   string
		field string
	}{
		{"missing slug", `{"title":"t","author":"a","pages":[{"pageNumber":1,"text":"x"}]}`, "slug"},
		{"empty title", `{"slug":"s","title":"","author":"a","pages":[{"pageNumber":1,"text":"x"}]}`, "title"},
		{"no pages", `{"slug":"s","title":"t","author":"a","pages":[]}`, "pages"},
		{"empty text", `{"slug":"s","title":"t","author":"a","pages":[{"pageNumber":1,"text":""}]}`, "pages[0].text"},
		{"zero page number", `{"slug":"s","title":"t","author":"a","pages":[{"pageNumber":0,"text":"x"}]}`, "pages[0].pageNumber"},
		{"gap in numbering", `{"slug":"s","title":"t","author":"a","pages":[{"pageNumber":1,"text":"x"},{"pageNumber":3,"text":"y"}]}`, "pages[1].pageNumber"},
		{"relative illustration", `{"slug":"s","title":"t","author":"a","pages":[{"pageNumber":1,"text":"x","illustration":"img/1.png"}]}`, "pages[0].illustration"},
		{"unknown mood", `{"slug":"s","title":"t","author":"a","pages":[{"pageNumber":1,"text":"x","mood":"angry"}]}`, "pages[0].mood"},
		{"slash in slug", `{"slug":"a/b","title":"t","author":"a","pages":[{"pageNumber":1,"text":"x"}]}`, "slug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			require.Error(t, err)
			assert.True(t, apperr.Is(err, apperr.ErrValidation))
			assert.Contains(t, apperr.FieldErrors(err), tt.field)
		})
	}
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"slug":`))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.ErrValidation))
}

func TestCatalog_BuiltinSlimey(t *testing.T) {
	c, err := NewCatalog("")
	require.NoError(t, err)

	b, err := c.Get("slimey")
	require.NoError(t, err)
	assert.Equal(t, 3, b.TotalPages())
	assert.True(t, b.HasNarration())

	_, err = c.Get("missing")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound))
}

func TestCatalog_Directory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fox.json"), []byte(validDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"slug":"broken"}`), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "slimey"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slimey", "data.json"), []byte(`{
	  "slug":"slimey","title":"Slimey Local","author":"me",
	  "pages":[{"pageNumber":1,"text":"only page","narrationUrl":"one.mp3"}]}`), 0o644))

	c, err := NewCatalog(dir)
	require.NoError(t, err)

	_, err = c.Get("broken")
	assert.True(t, apperr.Is(err, apperr.ErrNotFound), "invalid documents are skipped")

	local, err := c.Get("slimey")
	require.NoError(t, err)
	assert.Equal(t, "Slimey Local", local.Title, "directory wins over built-in")
	p, _ := local.Page(1)
	assert.Equal(t, filepath.Join(dir, "slimey", "one.mp3"), p.NarrationURL)

	fox, err := c.Get("fox")
	require.NoError(t, err)
	p2, _ := fox.Page(2)
	assert.Equal(t, filepath.Join(dir, "audio", "2.mp3"), p2.NarrationURL)

	list := c.List()
	require.Len(t, list, 2)
	assert.Equal(t, "Slimey Local", list[0].Title)
	assert.Equal(t, "The Quiet Fox", list[1].Title)
}

func TestCatalog_BuiltinNarrationResolvesAgainstBooksDir(t *testing.T) {
	dir := t.TempDir()
	fsys := fstest.MapFS{"fox.json": {Data: []byte(validDoc)}}

	c, err := NewCatalog(dir, WithBuiltins(fsys))
	require.NoError(t, err)

	b, err := c.Get("fox")
	require.NoError(t, err)
	p, _ := b.Page(2)
	assert.Equal(t, filepath.Join(dir, "fox", "audio", "2.mp3"), p.NarrationURL)
}

func TestResolveNarration_KeepsURLs(t *testing.T) {
	assert.Equal(t, "https://cdn.example.com/a.mp3", resolveNarration("https://cdn.example.com/a.mp3", "/books"))
	assert.Equal(t, "/abs/a.mp3", resolveNarration("/abs/a.mp3", "/books"))
	assert.Equal(t, "", resolveNarration("", "/books"))
}

func TestWatch_ReloadsOnNewBook(t *testing.T) {
	dir := t.TempDir()
	c, err := NewCatalog(dir, WithBuiltins(nil))
	require.NoError(t, err)
	assert.Empty(t, c.List())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, c, 20*time.Millisecond, nil, func() {
			select {
			case reloaded <- struct{}{}:
			default:
			}
		})
	}()

	// Give the watcher time to register the directory.
	require.Eventually(t, func() bool {
		if err := os.WriteFile(filepath.Join(dir, "fox.json"), []byte(validDoc), 0o644); err != nil {
			return false
		}
		select {
		case <-reloaded:
			return true
		case <-time.After(100 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	_, err = c.Get("fox")
	assert.NoError(t, err)

	cancel()
	assert.NoError(t, <-done)
}
