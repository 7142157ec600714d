package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justyntemme/storybook/internal/reader"
	"github.com/justyntemme/storybook/internal/route"
	"github.com/justyntemme/storybook/internal/ui/styles"
	"github.com/justyntemme/storybook/pkg/models"
)

// Books lists the books in the catalog.
type Books interface {
	List() []*models.Book
}

// LibraryView displays the book library
type LibraryView struct {
	catalog  Books
	progress reader.ProgressStore

	// Books
	books    []*models.Book
	filtered []*models.Book
	pages    map[string]int
	cursor   int
	offset   int // For scrolling

	// State
	loading     bool
	searchMode  bool
	searchInput textinput.Model

	// Dimensions
	width  int
	height int
}

// NewLibraryView creates a new library view
func NewLibraryView(catalog Books, progress reader.ProgressStore) *LibraryView {
	searchInput := textinput.New()
	searchInput.Placeholder = "Filter by title or author..."
	searchInput.CharLimit = 100
	searchInput.Width = 40

	return &LibraryView{
		catalog:     catalog,
		progress:    progress,
		pages:       map[string]int{},
		searchInput: searchInput,
		width:       80,
		height:      24,
	}
}

// libraryLoadedMsg is sent when the catalog and progress are read
type libraryLoadedMsg struct {
	books []*models.Book
	pages map[string]int
}

// Init implements View
func (v *LibraryView) Init() tea.Cmd {
	return v.Refresh()
}

// Refresh reloads the book list and resume badges
func (v *LibraryView) Refresh() tea.Cmd {
	v.loading = true
	return v.loadBooks()
}

// TextFocused reports whether the filter input has focus
func (v *LibraryView) TextFocused() bool {
	return v.searchMode
}

// Update implements View
func (v *LibraryView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Handle search mode
		if v.searchMode {
			switch msg.String() {
			case "esc":
				v.searchMode = false
				v.searchInput.Blur()
				v.searchInput.SetValue("")
				v.applyFilter()
				return v, nil
			case "enter":
				v.searchMode = false
				v.searchInput.Blur()
				return v, nil
			default:
				var cmd tea.Cmd
				v.searchInput, cmd = v.searchInput.Update(msg)
				v.applyFilter()
				return v, cmd
			}
		}

		switch msg.String() {
		case "j", "down":
			v.moveCursor(1)
		case "k", "up":
			v.moveCursor(-1)
		case "g", "home":
			v.cursor = 0
			v.offset = 0
		case "G", "end":
			v.cursor = max(0, len(v.filtered)-1)
			v.updateOffset()
		case "ctrl+d", "pgdown":
			v.moveCursor(v.visibleLines() / 2)
		case "ctrl+u", "pgup":
			v.moveCursor(-v.visibleLines() / 2)
		case "/":
			v.searchMode = true
			v.searchInput.Focus()
			return v, textinput.Blink
		case "enter":
			if book := v.selected(); book != nil {
				return v, Navigate(route.LandingPath(book.Slug))
			}
		case "r":
			// Resume straight into the last page read
			if book := v.selected(); book != nil {
				if page, ok := v.pages[book.Slug]; ok {
					return v, Navigate(route.PagePath(book.Slug, page))
				}
				return v, Navigate(route.PagePath(book.Slug, 1))
			}
		case "R":
			return v, v.Refresh()
		case "s":
			return v, SwitchTo(ViewSettings)
		case "q":
			return v, tea.Quit
		}

	case libraryLoadedMsg:
		v.loading = false
		v.books = msg.books
		v.pages = msg.pages
		v.applyFilter()
		return v, nil
	}

	return v, nil
}

// View implements View
func (v *LibraryView) View() string {
	var b strings.Builder

	b.WriteString(v.renderHeader() + "\n")

	if v.searchMode {
		b.WriteString(styles.InputFieldFocused.Render(v.searchInput.View()) + "\n")
	}

	switch {
	case v.loading:
		b.WriteString(v.placeholder(styles.MutedText.Render("Loading books...")))
		return b.String()
	case len(v.books) == 0:
		b.WriteString(v.placeholder(styles.MutedText.Render("No books found")))
		return b.String()
	case len(v.filtered) == 0:
		b.WriteString(v.placeholder(styles.MutedText.Render("No books match " + fmt.Sprintf("%q", v.searchInput.Value()))))
		return b.String()
	}

	visibleLines := v.visibleLines()
	for i := v.offset; i < min(v.offset+visibleLines, len(v.filtered)); i++ {
		b.WriteString(v.renderBookLine(v.filtered[i], i == v.cursor) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(v.renderFooter())

	return b.String()
}

// SetSize implements View
func (v *LibraryView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.searchInput.Width = max(10, min(40, width-10))
}

func (v *LibraryView) placeholder(content string) string {
	return lipgloss.Place(v.width, max(1, v.height-4), lipgloss.Center, lipgloss.Center, content)
}

// renderHeader renders the header bar
func (v *LibraryView) renderHeader() string {
	title := styles.TitleBar.Render(" Library ")

	searchInfo := ""
	if !v.searchMode && v.searchInput.Value() != "" {
		searchInfo = styles.SecondaryText.Render(fmt.Sprintf(" [Filter: %s]", v.searchInput.Value()))
	}

	count := styles.Help.Render(fmt.Sprintf(" %d/%d books ", len(v.filtered), len(v.books)))

	left := title + searchInfo
	gap := max(0, v.width-lipgloss.Width(left)-lipgloss.Width(count))
	return left + strings.Repeat(" ", gap) + count
}

// renderBookLine renders a single book line
func (v *LibraryView) renderBookLine(book *models.Book, selected bool) string {
	badge := ""
	if page, ok := v.pages[book.Slug]; ok {
		badge = " " + styles.Badge.Render(fmt.Sprintf("page %d of %d", page, book.TotalPages()))
	}

	maxWidth := v.width - 6 - lipgloss.Width(badge)
	line := styles.TruncateText(fmt.Sprintf("%s - %s", book.Title, book.Author), maxWidth)

	if selected {
		return styles.ListItemSelected.Width(v.width).Render("▸ " + line + badge)
	}
	return styles.ListItem.Render("  " + line + badge)
}

// renderFooter renders the footer help
func (v *LibraryView) renderFooter() string {
	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" nav"),
		styles.HelpKey.Render("enter") + styles.Help.Render(" open"),
		styles.HelpKey.Render("r") + styles.Help.Render(" resume"),
		styles.HelpKey.Render("/") + styles.Help.Render(" filter"),
		styles.HelpKey.Render("s") + styles.Help.Render(" settings"),
		styles.HelpKey.Render("q") + styles.Help.Render(" quit"),
	}
	themeIndicator := styles.MutedText.Render(" [Theme: " + styles.CurrentTheme().Name + "] ")

	helpText := strings.Join(help, "  ")
	gap := max(0, v.width-lipgloss.Width(helpText)-lipgloss.Width(themeIndicator))
	return helpText + strings.Repeat(" ", gap) + themeIndicator
}

// loadBooks reads the catalog and each book's stored page
func (v *LibraryView) loadBooks() tea.Cmd {
	catalog, progress := v.catalog, v.progress
	return func() tea.Msg {
		books := catalog.List()
		pages := make(map[string]int, len(books))
		if progress != nil {
			for _, b := range books {
				page, ok, err := progress.LastReadPage(context.Background(), b.Slug)
				if err != nil || !ok || page < 1 || page > b.TotalPages() {
					continue
				}
				pages[b.Slug] = page
			}
		}
		return libraryLoadedMsg{books: books, pages: pages}
	}
}

// applyFilter narrows the list to books matching the filter text
func (v *LibraryView) applyFilter() {
	query := strings.ToLower(strings.TrimSpace(v.searchInput.Value()))
	v.filtered = v.filtered[:0]
	for _, b := range v.books {
		if query == "" ||
			strings.Contains(strings.ToLower(b.Title), query) ||
			strings.Contains(strings.ToLower(b.Author), query) {
			v.filtered = append(v.filtered, b)
		}
	}
	if v.cursor >= len(v.filtered) {
		v.cursor = max(0, len(v.filtered)-1)
	}
	v.updateOffset()
}

func (v *LibraryView) selected() *models.Book {
	if v.cursor < 0 || v.cursor >= len(v.filtered) {
		return nil
	}
	return v.filtered[v.cursor]
}

// moveCursor moves the cursor by delta
func (v *LibraryView) moveCursor(delta int) {
	v.cursor = max(0, min(v.cursor+delta, len(v.filtered)-1))
	v.updateOffset()
}

// updateOffset ensures the cursor is visible
func (v *LibraryView) updateOffset() {
	visibleLines := v.visibleLines()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+visibleLines {
		v.offset = v.cursor - visibleLines + 1
	}
}

// visibleLines returns the number of visible book lines
func (v *LibraryView) visibleLines() int {
	// Account for header, footer, and margins
	lines := v.height - 5
	if v.searchMode {
		lines -= 3
	}
	return max(1, lines)
}
