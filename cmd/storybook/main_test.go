package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/storybook/internal/apperr"
	"github.com/justyntemme/storybook/internal/book"
	"github.com/justyntemme/storybook/pkg/models"
)

const goodBook = `{
  "slug": "owl",
  "title": "The Sleepy Owl",
  "author": "M. Fern",
  "pages": [
    {"pageNumber": 1, "text": "The owl yawned."},
    {"pageNumber": 2, "text": "And went to sleep.", "mood": "calm"}
  ]
}`

const badBook = `{
  "slug": "owl",
  "title": "The Sleepy Owl",
  "pages": [
    {"pageNumber": 1, "text": "The owl yawned."},
    {"pageNumber": 3, "text": ""}
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestValidateBooks(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.json", goodBook)
	bad := writeFile(t, dir, "bad.json", badBook)

	t.Run("valid", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, validateBooks(&out, []string{good}, false))
		assert.Contains(t, out.String(), "[OK] "+good)
		assert.Contains(t, out.String(), "The Sleepy Owl (owl, 2 pages)")
	})

	t.Run("field errors", func(t *testing.T) {
		var out bytes.Buffer
		err := validateBooks(&out, []string{good, bad}, false)
		require.Error(t, err)
		assert.Equal(t, "1 of 2 books invalid", err.Error())

		s := out.String()
		assert.Contains(t, s, "[FAIL] "+bad)
		assert.Contains(t, s, "author: is required")
		assert.Contains(t, s, "pages[1].text: is required")
		assert.Contains(t, s, "pages[1].pageNumber: must be 2")
	})

	t.Run("missing file", func(t *testing.T) {
		var out bytes.Buffer
		err := validateBooks(&out, []string{filepath.Join(dir, "nope.json")}, false)
		require.Error(t, err)
		assert.Contains(t, out.String(), "no such file")
	})

	t.Run("color", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, validateBooks(&out, []string{good}, true))
		assert.Contains(t, out.String(), ansiGreen)
	})
}

func TestParseSettingArgs(t *testing.T) {
	t.Run("both", func(t *testing.T) {
		change, err := parseSettingArgs([]string{"theme=Light", "mode=narrated"})
		require.NoError(t, err)

		s := models.DefaultSettings()
		change(&s)
		assert.Equal(t, models.ThemeLight, s.Theme)
		assert.Equal(t, models.ReadingModeNarrated, s.ReadingMode)
	})

	t.Run("one leaves the other", func(t *testing.T) {
		change, err := parseSettingArgs([]string{"mode=narrated"})
		require.NoError(t, err)

		s := models.Settings{Theme: models.ThemeDark, ReadingMode: models.ReadingModeSelfRead}
		change(&s)
		assert.Equal(t, models.ThemeDark, s.Theme)
		assert.Equal(t, models.ReadingModeNarrated, s.ReadingMode)
	})

	for _, args := range [][]string{
		nil,
		{"theme"},
		{"volume=11"},
		{"theme=sepia"},
		{"mode=loud"},
	} {
		_, err := parseSettingArgs(args)
		assert.Error(t, err, "%v", args)
	}

	_, err := parseSettingArgs([]string{"volume=11"})
	assert.True(t, apperr.Is(err, apperr.ErrValidation))
}

func TestProgressTable(t *testing.T) {
	catalog, err := book.NewCatalog("")
	require.NoError(t, err)

	out := progressTable([]models.ProgressRecord{
		{Slug: "slimey", Page: 2, UpdatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
		{Slug: "gone", Page: 5, UpdatedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)},
	}, catalog)

	assert.Contains(t, out, "SLUG")
	assert.Contains(t, out, "Slimey and the Puddle Parade")
	assert.Contains(t, out, "2/3")
	assert.Contains(t, out, "5/?")
}

func TestRenderTable_Empty(t *testing.T) {
	assert.Empty(t, renderTable(nil, nil, nil))
}
