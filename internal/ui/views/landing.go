package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justyntemme/storybook/internal/narration"
	"github.com/justyntemme/storybook/internal/reader"
	"github.com/justyntemme/storybook/internal/route"
	"github.com/justyntemme/storybook/internal/ui/styles"
	"github.com/justyntemme/storybook/pkg/models"
)

// Prober reports whether a narration reference can be played.
type Prober func(ctx context.Context, ref string) narration.Availability

// landingChoice is an action offered on the landing page
type landingChoice int

const (
	choiceResume landingChoice = iota
	choiceStart
)

// LandingView displays a book's landing page
type LandingView struct {
	progress reader.ProgressStore
	probe    Prober

	// Book being displayed
	book *models.Book

	// Stored page (0 when never read), loaded async
	storedPage int

	// Narration availability, loaded async
	narrationProbed bool
	narratedPages   int
	narrationLength time.Duration

	choice landingChoice

	// Dimensions
	width  int
	height int
}

// NewLandingView creates a new landing view
func NewLandingView(progress reader.ProgressStore, probe Prober) *LandingView {
	if probe == nil {
		probe = narration.Probe
	}
	return &LandingView{
		progress: progress,
		probe:    probe,
		width:    80,
		height:   24,
	}
}

// SetBook sets the book to display
func (v *LandingView) SetBook(book *models.Book) {
	v.book = book
	v.storedPage = 0
	v.narrationProbed = false
	v.narratedPages = 0
	v.narrationLength = 0
	v.choice = choiceStart
}

// Book returns the book on display
func (v *LandingView) Book() *models.Book {
	return v.book
}

// landingProgressMsg is sent when the stored page is loaded
type landingProgressMsg struct {
	slug string
	page int
}

// landingNarrationMsg is sent when the narration probe finishes
type landingNarrationMsg struct {
	slug   string
	pages  int
	length time.Duration
}

// Init implements View
func (v *LandingView) Init() tea.Cmd {
	if v.book == nil {
		return nil
	}
	return tea.Batch(
		v.loadProgress(),
		v.probeNarration(),
	)
}

// Update implements View
func (v *LandingView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc", "q":
			return v, Navigate(route.LibraryPath)
		case "left", "right", "tab", "h", "l":
			if v.storedPage > 0 {
				if v.choice == choiceResume {
					v.choice = choiceStart
				} else {
					v.choice = choiceResume
				}
			}
		case "enter":
			return v, v.choose(v.choice)
		case "r":
			if v.storedPage > 0 {
				return v, v.choose(choiceResume)
			}
		case "b":
			return v, v.choose(choiceStart)
		}

	case landingProgressMsg:
		if v.book != nil && msg.slug == v.book.Slug && msg.page > 0 {
			v.storedPage = msg.page
			v.choice = choiceResume
		}

	case landingNarrationMsg:
		if v.book != nil && msg.slug == v.book.Slug {
			v.narrationProbed = true
			v.narratedPages = msg.pages
			v.narrationLength = msg.length
		}
	}

	return v, nil
}

// choose opens the book. Starting over records page 1 first so the
// reader does not resume at the stored page.
func (v *LandingView) choose(c landingChoice) tea.Cmd {
	if v.book == nil {
		return nil
	}
	if c == choiceResume && v.storedPage > 0 {
		return Navigate(route.PagePath(v.book.Slug, v.storedPage))
	}
	if v.storedPage > 1 && v.progress != nil {
		if err := v.progress.SetLastReadPage(context.Background(), v.book.Slug, 1); err != nil {
			return SendError(err)
		}
	}
	return Navigate(route.PagePath(v.book.Slug, 1))
}

// View implements View
func (v *LandingView) View() string {
	if v.book == nil {
		return "No book selected"
	}

	var b strings.Builder

	b.WriteString(styles.DialogTitle.Render(v.book.Title) + "\n")
	b.WriteString(v.renderField("Author", v.book.Author))
	b.WriteString(v.renderField("Pages", fmt.Sprintf("%d", v.book.TotalPages())))
	b.WriteString(v.renderField("Narration", v.narrationSummary()))
	b.WriteString("\n")

	b.WriteString(styles.HelpKey.Render("Reading Progress") + "\n")
	if v.storedPage > 0 {
		b.WriteString(v.renderField("Last read", fmt.Sprintf("page %d of %d", v.storedPage, v.book.TotalPages())))
	} else {
		b.WriteString(styles.MutedText.Render("  Not started") + "\n")
	}
	b.WriteString("\n")

	b.WriteString(v.renderChoices() + "\n\n")
	b.WriteString(v.renderFooter())

	return lipgloss.Place(
		v.width,
		v.height,
		lipgloss.Center,
		lipgloss.Center,
		styles.Dialog.Width(min(60, max(20, v.width-4))).Render(b.String()),
	)
}

func (v *LandingView) narrationSummary() string {
	switch {
	case !v.book.HasNarration():
		return "none"
	case !v.narrationProbed:
		return "checking..."
	case v.narratedPages == 0:
		return "unavailable"
	case v.narrationLength > 0:
		return fmt.Sprintf("%d of %d pages, %s", v.narratedPages, v.book.TotalPages(), formatDuration(v.narrationLength))
	default:
		return fmt.Sprintf("%d of %d pages", v.narratedPages, v.book.TotalPages())
	}
}

func (v *LandingView) renderChoices() string {
	if v.storedPage == 0 {
		return styles.ButtonFocused.Render("Start reading")
	}
	resume, start := styles.Button, styles.Button
	if v.choice == choiceResume {
		resume = styles.ButtonFocused
	} else {
		start = styles.ButtonFocused
	}
	return resume.Render(fmt.Sprintf("Resume at page %d", v.storedPage)) + start.Render("Start over")
}

// renderField renders a label-value pair
func (v *LandingView) renderField(label, value string) string {
	labelStyle := styles.MutedText.Width(12)
	return labelStyle.Render(label+":") + " " + styles.BookTitle.UnsetBold().Render(value) + "\n"
}

// renderFooter renders the footer help
func (v *LandingView) renderFooter() string {
	help := []string{
		styles.HelpKey.Render("enter") + styles.Help.Render(" read"),
	}
	if v.storedPage > 0 {
		help = append(help,
			styles.HelpKey.Render("tab")+styles.Help.Render(" choose"),
			styles.HelpKey.Render("b")+styles.Help.Render(" from the beginning"),
		)
	}
	help = append(help, styles.HelpKey.Render("esc/q")+styles.Help.Render(" library"))
	return strings.Join(help, "  ")
}

// SetSize implements View
func (v *LandingView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// loadProgress loads the stored page for the book
func (v *LandingView) loadProgress() tea.Cmd {
	book, progress := v.book, v.progress
	return func() tea.Msg {
		if progress == nil {
			return landingProgressMsg{slug: book.Slug}
		}
		page, ok, err := progress.LastReadPage(context.Background(), book.Slug)
		if err != nil || !ok || page > book.TotalPages() {
			return landingProgressMsg{slug: book.Slug}
		}
		return landingProgressMsg{slug: book.Slug, page: page}
	}
}

// probeNarration checks every page's narration
func (v *LandingView) probeNarration() tea.Cmd {
	book, probe := v.book, v.probe
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		msg := landingNarrationMsg{slug: book.Slug}
		for _, p := range book.Pages {
			if !p.HasNarration() {
				continue
			}
			if a := probe(ctx, p.NarrationURL); a.Available {
				msg.pages++
				msg.length += a.Duration
			}
		}
		return msg
	}
}

// formatDuration renders d as m:ss
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}
