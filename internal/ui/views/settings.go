package views

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justyntemme/storybook/internal/ui/styles"
	"github.com/justyntemme/storybook/pkg/models"
)

var (
	themeChoices = []models.Theme{models.ThemeSystem, models.ThemeLight, models.ThemeDark}
	modeChoices  = []models.ReadingMode{models.ReadingModeSelfRead, models.ReadingModeNarrated}
)

// settings dialog rows
const (
	rowTheme = iota
	rowMode
	rowCount
)

// SettingsView is the preferences dialog. Changes apply immediately.
type SettingsView struct {
	settings Preferences
	row      int

	// Dimensions
	width  int
	height int
}

// NewSettingsView creates a new settings dialog
func NewSettingsView(settings Preferences) *SettingsView {
	return &SettingsView{
		settings: settings,
		width:    80,
		height:   24,
	}
}

// Init implements View
func (v *SettingsView) Init() tea.Cmd {
	v.row = rowTheme
	return nil
}

// Update implements View
func (v *SettingsView) Update(msg tea.Msg) (View, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return v, nil
	}

	switch keyMsg.String() {
	case "esc", "q", "enter", "s":
		return v, CloseDialog()
	case "j", "down", "tab":
		v.row = (v.row + 1) % rowCount
	case "k", "up", "shift+tab":
		v.row = (v.row + rowCount - 1) % rowCount
	case "l", "right", " ", "space":
		v.cycle(1)
	case "h", "left":
		v.cycle(-1)
	}
	return v, nil
}

// cycle moves the selected row to its next or previous value
func (v *SettingsView) cycle(delta int) {
	current := v.settings.Get()
	switch v.row {
	case rowTheme:
		v.settings.SetTheme(themeChoices[step(indexOf(themeChoices, current.Theme), delta, len(themeChoices))])
	case rowMode:
		v.settings.SetReadingMode(modeChoices[step(indexOf(modeChoices, current.ReadingMode), delta, len(modeChoices))])
	}
}

// View implements View
func (v *SettingsView) View() string {
	current := v.settings.Get()

	var b strings.Builder
	b.WriteString(styles.DialogTitle.Render("Settings") + "\n")
	b.WriteString(v.renderRow(rowTheme, "Theme", choiceNames(themeChoices), string(current.Theme)) + "\n")
	b.WriteString(v.renderRow(rowMode, "Reading", choiceNames(modeChoices), string(current.ReadingMode)) + "\n\n")

	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" select"),
		styles.HelpKey.Render("h/l") + styles.Help.Render(" change"),
		styles.HelpKey.Render("esc") + styles.Help.Render(" close"),
	}
	b.WriteString(strings.Join(help, "  "))

	return lipgloss.Place(
		v.width,
		v.height,
		lipgloss.Center,
		lipgloss.Center,
		styles.Dialog.Width(min(60, max(20, v.width-4))).Render(b.String()),
	)
}

func (v *SettingsView) renderRow(row int, label string, choices []string, selected string) string {
	labelStyle := styles.InputLabel.Width(10)
	if row == v.row {
		labelStyle = labelStyle.Foreground(styles.Primary)
	}

	parts := make([]string, len(choices))
	for i, c := range choices {
		if c == selected {
			parts[i] = styles.ButtonFocused.Render(c)
		} else {
			parts[i] = styles.Button.Render(c)
		}
	}
	return labelStyle.Render(label) + " " + strings.Join(parts, "")
}

// SetSize implements View
func (v *SettingsView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func indexOf[T comparable](items []T, item T) int {
	for i, it := range items {
		if it == item {
			return i
		}
	}
	return 0
}

func step(i, delta, n int) int {
	return ((i+delta)%n + n) % n
}

func choiceNames[T ~string](items []T) []string {
	names := make([]string, len(items))
	for i, it := range items {
		names[i] = string(it)
	}
	return names
}
