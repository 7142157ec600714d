package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/justyntemme/storybook/pkg/models"
)

// Theme is a palette for the reader chrome and page frames
type Theme struct {
	Name string

	// Brand
	Primary    lipgloss.Color
	Secondary  lipgloss.Color
	Background lipgloss.Color
	Foreground lipgloss.Color

	// Status
	Success lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
	Muted   lipgloss.Color

	// Chrome
	Border        lipgloss.Color
	Selection     lipgloss.Color
	SelectionText lipgloss.Color
	Badge         lipgloss.Color
	BadgeText     lipgloss.Color

	// Page moods
	MoodCalm   lipgloss.Color
	MoodTense  lipgloss.Color
	MoodJoyful lipgloss.Color
}

// Palettes selectable from settings
var (
	// DarkTheme is used on dark terminals
	DarkTheme = Theme{
		Name:          "dark",
		Primary:       lipgloss.Color("#7C3AED"),
		Secondary:     lipgloss.Color("#06B6D4"),
		Background:    lipgloss.Color("#1F2937"),
		Foreground:    lipgloss.Color("#F9FAFB"),
		Success:       lipgloss.Color("#10B981"),
		Warning:       lipgloss.Color("#F59E0B"),
		Error:         lipgloss.Color("#EF4444"),
		Muted:         lipgloss.Color("#6B7280"),
		Border:        lipgloss.Color("#374151"),
		Selection:     lipgloss.Color("#7C3AED"),
		SelectionText: lipgloss.Color("#F9FAFB"),
		Badge:         lipgloss.Color("#10B981"),
		BadgeText:     lipgloss.Color("#1F2937"),
		MoodCalm:      lipgloss.Color("#60A5FA"),
		MoodTense:     lipgloss.Color("#F87171"),
		MoodJoyful:    lipgloss.Color("#FBBF24"),
	}

	// LightTheme is used on light terminals
	LightTheme = Theme{
		Name:          "light",
		Primary:       lipgloss.Color("#7C3AED"),
		Secondary:     lipgloss.Color("#0891B2"),
		Background:    lipgloss.Color("#FFFFFF"),
		Foreground:    lipgloss.Color("#1F2937"),
		Success:       lipgloss.Color("#059669"),
		Warning:       lipgloss.Color("#D97706"),
		Error:         lipgloss.Color("#DC2626"),
		Muted:         lipgloss.Color("#9CA3AF"),
		Border:        lipgloss.Color("#E5E7EB"),
		Selection:     lipgloss.Color("#7C3AED"),
		SelectionText: lipgloss.Color("#FFFFFF"),
		Badge:         lipgloss.Color("#059669"),
		BadgeText:     lipgloss.Color("#FFFFFF"),
		MoodCalm:      lipgloss.Color("#2563EB"),
		MoodTense:     lipgloss.Color("#B91C1C"),
		MoodJoyful:    lipgloss.Color("#B45309"),
	}

	// palette in use
	currentTheme = DarkTheme
)

// Resolve picks the theme for a preference. The system preference follows
// the terminal background.
func Resolve(pref models.Theme, darkBackground bool) Theme {
	switch pref {
	case models.ThemeLight:
		return LightTheme
	case models.ThemeDark:
		return DarkTheme
	default:
		if darkBackground {
			return DarkTheme
		}
		return LightTheme
	}
}

// CurrentTheme returns the applied palette
func CurrentTheme() Theme {
	return currentTheme
}

// SetTheme resolves and applies a theme preference
func SetTheme(pref models.Theme, darkBackground bool) Theme {
	currentTheme = Resolve(pref, darkBackground)
	ApplyTheme(currentTheme)
	return currentTheme
}

// MoodColor returns the accent color for a page mood
func MoodColor(mood models.Mood) lipgloss.Color {
	switch mood {
	case models.MoodTense:
		return currentTheme.MoodTense
	case models.MoodJoyful:
		return currentTheme.MoodJoyful
	default:
		return currentTheme.MoodCalm
	}
}

// ApplyTheme rebuilds the package colors and styles from theme
func ApplyTheme(theme Theme) {
	Primary = theme.Primary
	Secondary = theme.Secondary
	Success = theme.Success
	Warning = theme.Warning
	Error = theme.Error
	Muted = theme.Muted
	Background = theme.Background
	Foreground = theme.Foreground
	Border = theme.Border

	// Styles derive from the colors above
	TitleBar = lipgloss.NewStyle().
		Foreground(theme.SelectionText).
		Background(theme.Primary).
		Padding(0, 1).
		Bold(true)

	FooterBar = lipgloss.NewStyle().
		Foreground(theme.Muted).
		Padding(0, 1)

	Help = lipgloss.NewStyle().
		Foreground(theme.Muted)

	HelpKey = lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true)

	Disabled = lipgloss.NewStyle().
		Foreground(theme.Border).
		Strikethrough(true)

	MutedText = lipgloss.NewStyle().
		Foreground(theme.Muted)

	SecondaryText = lipgloss.NewStyle().
		Foreground(theme.Secondary)

	ErrorStyle = lipgloss.NewStyle().
		Foreground(theme.Error).
		Bold(true).
		Padding(0, 1)

	SuccessStyle = lipgloss.NewStyle().
		Foreground(theme.Success).
		Bold(true).
		Padding(0, 1)

	InputLabel = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Bold(true)

	InputField = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1)

	InputFieldFocused = InputField.
		BorderForeground(theme.Primary)

	ListItem = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Padding(0, 2)

	ListItemSelected = lipgloss.NewStyle().
		Foreground(theme.SelectionText).
		Background(theme.Selection).
		Padding(0, 2).
		Bold(true)

	ReaderText = lipgloss.NewStyle().
		Foreground(theme.Foreground)

	ReaderHeader = lipgloss.NewStyle().
		Foreground(theme.SelectionText).
		Background(theme.Primary).
		Padding(0, 1).
		Bold(true)

	ReaderProgress = lipgloss.NewStyle().
		Foreground(theme.Secondary)

	Dialog = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Primary).
		Padding(1, 2)

	DialogTitle = lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		MarginBottom(1)

	Button = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Background(theme.Border).
		Padding(0, 2).
		MarginRight(1)

	ButtonFocused = lipgloss.NewStyle().
		Foreground(theme.SelectionText).
		Background(theme.Primary).
		Padding(0, 2).
		MarginRight(1).
		Bold(true)

	BookTitle = lipgloss.NewStyle().
		Foreground(theme.Foreground).
		Bold(true)

	BookAuthor = lipgloss.NewStyle().
		Foreground(theme.Secondary)

	Badge = lipgloss.NewStyle().
		Foreground(theme.BadgeText).
		Background(theme.Badge).
		Padding(0, 1).
		Bold(true)
}

// dark until settings are applied
func init() {
	ApplyTheme(DarkTheme)
}
