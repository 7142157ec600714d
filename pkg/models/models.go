package models

import (
	"fmt"
	"strings"
	"time"
)

// Mood constants
const (
	MoodCalm   Mood = "calm"
	MoodTense  Mood = "tense"
	MoodJoyful Mood = "joyful"
)

// Mood tints the page presentation
type Mood string

// Page is one page of a book. Pages are 1-indexed and never mutated after load.
type Page struct {
	PageNumber   int    `json:"pageNumber" validate:"gt=0"`
	Text         string `json:"text" validate:"required"`
	Illustration string `json:"illustration,omitempty" validate:"omitempty,url"`
	Mask         string `json:"mask,omitempty"`
	NarrationURL string `json:"narrationUrl,omitempty"`
	Mood         Mood   `json:"mood,omitempty" validate:"omitempty,oneof=calm tense joyful"`
}

// MoodOrDefault returns the page mood, calm when unset
func (p Page) MoodOrDefault() Mood {
	if p.Mood == "" {
		return MoodCalm
	}
	return p.Mood
}

// HasNarration returns true if the page carries a narration track
func (p Page) HasNarration() bool {
	return p.NarrationURL != ""
}

// Book represents a storybook
type Book struct {
	Slug   string `json:"slug" validate:"required,excludesall=/"`
	Title  string `json:"title" validate:"required"`
	Author string `json:"author" validate:"required"`
	Pages  []Page `json:"pages" validate:"required,min=1,dive"`

	// Dir is the directory relative narration paths resolve against.
	Dir string `json:"-"`
	// Source is where the book was loaded from, for log lines.
	Source string `json:"-"`
}

// TotalPages returns the number of pages in the book
func (b *Book) TotalPages() int {
	return len(b.Pages)
}

// Page returns page n (1-indexed)
func (b *Book) Page(n int) (Page, bool) {
	if n < 1 || n > len(b.Pages) {
		return Page{}, false
	}
	return b.Pages[n-1], true
}

// HasNarration returns true if any page is narrated
func (b *Book) HasNarration() bool {
	for _, p := range b.Pages {
		if p.HasNarration() {
			return true
		}
	}
	return false
}

// Theme constants
const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

// Theme is the display theme preference
type Theme string

// ParseTheme parses a theme name
func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return t, nil
	}
	return "", fmt.Errorf("unknown theme %q (want light, dark or system)", s)
}

// ReadingMode constants
const (
	ReadingModeSelfRead ReadingMode = "self-read"
	ReadingModeNarrated ReadingMode = "narrated"
)

// ReadingMode selects narrated playback or silent reading
type ReadingMode string

// ParseReadingMode parses a reading mode name
func ParseReadingMode(s string) (ReadingMode, error) {
	switch m := ReadingMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ReadingModeSelfRead, ReadingModeNarrated:
		return m, nil
	}
	return "", fmt.Errorf("unknown reading mode %q (want self-read or narrated)", s)
}

// Settings is the process-wide preferences record
type Settings struct {
	Theme       Theme       `json:"theme"`
	ReadingMode ReadingMode `json:"readingMode"`
}

// DefaultSettings returns the settings used before the user changes anything
func DefaultSettings() Settings {
	return Settings{Theme: ThemeSystem, ReadingMode: ReadingModeSelfRead}
}

// Narrated returns true if pages should play their narration
func (s Settings) Narrated() bool {
	return s.ReadingMode == ReadingModeNarrated
}

// ProgressRecord is the last page read in a book
type ProgressRecord struct {
	Slug      string    `json:"slug"`
	Page      int       `json:"page"`
	UpdatedAt time.Time `json:"updated_at"`
}
