// Package styles holds the lipgloss styles shared by the views.
package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"

	"github.com/justyntemme/storybook/pkg/models"
)

// Colors and styles of the active theme. ApplyTheme sets them.
var (
	// Colors
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Success    lipgloss.Color
	Warning    lipgloss.Color
	Error      lipgloss.Color
	Muted      lipgloss.Color
	Background lipgloss.Color
	Foreground lipgloss.Color
	Border     lipgloss.Color

	// Title bar
	TitleBar lipgloss.Style

	// Footer with key help
	FooterBar lipgloss.Style

	// Help text
	Help    lipgloss.Style
	HelpKey lipgloss.Style

	// Disabled controls at a book boundary
	Disabled lipgloss.Style

	MutedText     lipgloss.Style
	SecondaryText lipgloss.Style

	ErrorStyle   lipgloss.Style
	SuccessStyle lipgloss.Style

	// Input field
	InputLabel        lipgloss.Style
	InputField        lipgloss.Style
	InputFieldFocused lipgloss.Style

	// List styles
	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style

	// Reader styles
	ReaderText     lipgloss.Style
	ReaderHeader   lipgloss.Style
	ReaderProgress lipgloss.Style

	// Dialog/Modal styles
	Dialog      lipgloss.Style
	DialogTitle lipgloss.Style

	// Button styles
	Button        lipgloss.Style
	ButtonFocused lipgloss.Style

	// Book info styles
	BookTitle  lipgloss.Style
	BookAuthor lipgloss.Style
	Badge      lipgloss.Style
)

// PageFrame returns the border drawn around a page, tinted by its mood.
func PageFrame(mood models.Mood) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MoodColor(mood)).
		Padding(1, 2)
}

// TruncateText shortens s to width cells, ending with an ellipsis
func TruncateText(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	return truncate.StringWithTail(s, uint(width), "…")
}

// Dimensions returns styled content with proper dimensions
func Dimensions(width, height int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Height(height)
}
