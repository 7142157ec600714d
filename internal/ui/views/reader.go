package views

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/justyntemme/storybook/internal/assets"
	"github.com/justyntemme/storybook/internal/clock"
	"github.com/justyntemme/storybook/internal/input"
	"github.com/justyntemme/storybook/internal/logging"
	"github.com/justyntemme/storybook/internal/narration"
	"github.com/justyntemme/storybook/internal/reader"
	"github.com/justyntemme/storybook/internal/route"
	"github.com/justyntemme/storybook/internal/ui/styles"
	"github.com/justyntemme/storybook/internal/ui/terminal"
	"github.com/justyntemme/storybook/pkg/models"
)

// Narrator is the narration transport as the reader shows it.
type Narrator interface {
	reader.Narrator
	Failed(url string) bool
	State() narration.State
}

// Navigator moves through location history.
type Navigator interface {
	Back() bool
	Forward() bool
}

// Preferences is the settings record the views change.
type Preferences interface {
	Get() models.Settings
	SetTheme(t models.Theme) models.Settings
	SetReadingMode(m models.ReadingMode) models.Settings
	ToggleReadingMode() models.Settings
}

// ReaderOptions configures the reader view
type ReaderOptions struct {
	Progress          reader.ProgressStore
	Locator           reader.Locator
	Narrator          Narrator
	Settings          Preferences
	History           Navigator
	Assets            *assets.Client
	Probe             Prober
	Keys              input.KeyMap
	Cell              input.CellSize
	SuppressionWindow time.Duration
	Clock             clock.Clock
	Logger            *slog.Logger
	ImageMode         terminal.TermImageMode
}

// ReaderView displays one page at a time
type ReaderView struct {
	opts   ReaderOptions
	logger *slog.Logger

	ctrl     *reader.Controller
	narrated bool
	drag     input.Drag

	// Narration probes by url
	narration map[string]narration.Availability
	// url whose narration played to its end
	ended string

	// Illustration state
	illustrationRef string
	illustration    image.Image
	illustrationErr error
	rendered        renderedImage

	// Go-to-page prompt
	gotoMode  bool
	gotoInput textinput.Model

	notice string

	// Dimensions
	width  int
	height int
}

type renderedImage struct {
	ref        string
	cols, rows int
	out        string
}

// NewReaderView creates a new reader view
func NewReaderView(opts ReaderOptions) *ReaderView {
	if opts.Probe == nil {
		opts.Probe = narration.Probe
	}
	if len(opts.Keys.Prev.Keys()) == 0 {
		opts.Keys = input.DefaultKeyMap()
	}

	gotoInput := textinput.New()
	gotoInput.Placeholder = "page"
	gotoInput.CharLimit = 5
	gotoInput.Width = 8

	narrated := false
	if opts.Settings != nil {
		narrated = opts.Settings.Get().Narrated()
	}

	return &ReaderView{
		opts:      opts,
		logger:    logging.OrNop(opts.Logger),
		narrated:  narrated,
		narration: make(map[string]narration.Availability),
		gotoInput: gotoInput,
		width:     80,
		height:    24,
	}
}

// illustrationLoadedMsg is sent when a page illustration is fetched
type illustrationLoadedMsg struct {
	ref string
	img image.Image
	err error
}

// narrationProbedMsg is sent when a page's narration is probed
type narrationProbedMsg struct {
	url   string
	avail narration.Availability
}

// Open starts a reader session for book at page. Any previous session
// is closed first.
func (v *ReaderView) Open(book *models.Book, page int) tea.Cmd {
	v.Close()

	opts := []reader.Option{
		reader.WithLogger(v.opts.Logger),
		reader.WithSuppressionWindow(v.opts.SuppressionWindow),
		reader.WithNarrated(v.narrated),
		reader.WithPageObserver(v.pageChanged),
	}
	if v.opts.Clock != nil {
		opts = append(opts, reader.WithClock(v.opts.Clock))
	}
	if v.opts.Narrator != nil {
		opts = append(opts, reader.WithNarrator(v.opts.Narrator))
	}

	v.ctrl = reader.New(book, v.opts.Progress, v.opts.Locator, opts...)
	v.ctrl.Mount(page)
	return v.pageCmds()
}

// Close ends the reader session
func (v *ReaderView) Close() {
	if v.ctrl == nil {
		return
	}
	v.ctrl.Unmount()
	v.ctrl = nil
	v.drag.Cancel()
	v.gotoMode = false
	v.gotoInput.Blur()
	v.notice = ""
	v.ended = ""
	v.illustrationRef = ""
	v.illustration = nil
	v.illustrationErr = nil
	v.rendered = renderedImage{}
	terminal.ClearImagesFunc(os.Stdout, v.opts.ImageMode)()
}

// Book returns the open book, or nil
func (v *ReaderView) Book() *models.Book {
	if v.ctrl == nil {
		return nil
	}
	return v.ctrl.Book()
}

// Controller returns the session controller, or nil
func (v *ReaderView) Controller() *reader.Controller {
	return v.ctrl
}

// TextFocused reports whether the go-to prompt has focus
func (v *ReaderView) TextFocused() bool {
	return v.gotoMode
}

// ExternalPage offers a page from a location change to the session.
func (v *ReaderView) ExternalPage(page int, cause route.Cause) tea.Cmd {
	if v.ctrl == nil {
		return nil
	}
	if !v.ctrl.OnExternalPageChange(page) {
		if cause != route.CauseReplace && page != v.ctrl.CurrentPage() {
			v.notice = fmt.Sprintf("page %d ignored, a page was just turned", page)
		}
		return nil
	}
	return v.pageCmds()
}

// SetNarrated changes the reading mode of the session
func (v *ReaderView) SetNarrated(narrated bool) {
	v.narrated = narrated
	if v.ctrl != nil {
		v.ctrl.SetNarrated(narrated)
	}
}

// NarrationEnded records that url played to its end
func (v *ReaderView) NarrationEnded(url string) {
	if v.ctrl != nil && url == v.ctrl.Page().NarrationURL {
		v.ended = url
	}
}

// Init implements View
func (v *ReaderView) Init() tea.Cmd {
	return nil
}

// Update implements View
func (v *ReaderView) Update(msg tea.Msg) (View, tea.Cmd) {
	if v.ctrl == nil {
		return v, nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case tea.MouseMsg:
		return v, v.handleMouseMsg(msg)

	case illustrationLoadedMsg:
		// Ignore results for pages no longer shown
		if msg.ref == v.ctrl.Page().Illustration {
			v.illustrationRef = msg.ref
			v.illustration = msg.img
			v.illustrationErr = msg.err
			v.rendered = renderedImage{}
			if msg.err != nil {
				v.logger.Warn("reader: illustration unavailable", "ref", msg.ref, "error", msg.err)
			}
		}

	case narrationProbedMsg:
		v.narration[msg.url] = msg.avail
	}

	return v, nil
}

// handleKeyMsg processes key presses
func (v *ReaderView) handleKeyMsg(msg tea.KeyMsg) (View, tea.Cmd) {
	if v.gotoMode {
		switch msg.String() {
		case "esc":
			v.gotoMode = false
			v.gotoInput.Blur()
			return v, nil
		case "enter":
			v.gotoMode = false
			v.gotoInput.Blur()
			page, err := strconv.Atoi(strings.TrimSpace(v.gotoInput.Value()))
			if err != nil || page < 1 || page > v.ctrl.TotalPages() {
				v.notice = fmt.Sprintf("no page %q", v.gotoInput.Value())
				return v, nil
			}
			if !v.ctrl.GoTo(page) {
				return v, nil
			}
			return v, v.pageCmds()
		default:
			var cmd tea.Cmd
			v.gotoInput, cmd = v.gotoInput.Update(msg)
			return v, cmd
		}
	}

	v.notice = ""
	switch msg.String() {
	case "m":
		if v.opts.Settings != nil {
			v.SetNarrated(v.opts.Settings.ToggleReadingMode().Narrated())
		} else {
			v.SetNarrated(!v.narrated)
		}
		return v, nil
	case "[":
		if v.opts.History != nil && !v.opts.History.Back() {
			v.notice = "no earlier location"
		}
		return v, nil
	case "]":
		if v.opts.History != nil && !v.opts.History.Forward() {
			v.notice = "no later location"
		}
		return v, nil
	case "g":
		v.gotoMode = true
		v.gotoInput.SetValue("")
		v.gotoInput.Focus()
		return v, textinput.Blink
	case "s":
		return v, SwitchTo(ViewSettings)
	}

	return v, v.apply(v.opts.Keys.Translate(msg, v.gotoMode))
}

// handleMouseMsg feeds the drag adapter; taps hit the click zones
func (v *ReaderView) handleMouseMsg(msg tea.MouseMsg) tea.Cmd {
	x, y := v.opts.Cell.ToPixels(msg.X, msg.Y)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			v.drag.Press(x, y)
		}
	case tea.MouseActionMotion:
		if v.drag.Active() {
			return v.apply(v.drag.Move(x, y, v.bounds()))
		}
	case tea.MouseActionRelease:
		if !v.drag.Active() {
			return nil
		}
		intent, tap := v.drag.Release(x, y, v.bounds())
		if tap {
			intent = input.Zone(msg.X, v.width, v.bounds())
		}
		return v.apply(intent)
	}
	return nil
}

// apply turns an intent into a navigation request
func (v *ReaderView) apply(intent input.Intent) tea.Cmd {
	switch intent {
	case input.Prev:
		if !v.ctrl.CanPrev() {
			return nil
		}
		v.ctrl.RequestPrev()
		return v.pageCmds()
	case input.Next:
		if !v.ctrl.CanNext() {
			return nil
		}
		v.ctrl.RequestNext()
		return v.pageCmds()
	case input.Exit:
		return Navigate(route.LibraryPath)
	}
	return nil
}

func (v *ReaderView) bounds() input.Bounds {
	return input.Bounds{IsFirst: !v.ctrl.CanPrev(), IsLast: !v.ctrl.CanNext()}
}

// pageChanged resets per-page state after every committed change
func (v *ReaderView) pageChanged(reader.PageChange) {
	v.ended = ""
	v.rendered = renderedImage{}
}

// pageCmds loads what the active page needs
func (v *ReaderView) pageCmds() tea.Cmd {
	page := v.ctrl.Page()
	var cmds []tea.Cmd

	if url := page.NarrationURL; url != "" {
		if _, ok := v.narration[url]; !ok {
			probe := v.opts.Probe
			cmds = append(cmds, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return narrationProbedMsg{url: url, avail: probe(ctx, url)}
			})
		}
	}

	if ref := page.Illustration; ref != "" && ref != v.illustrationRef && v.opts.Assets != nil {
		client := v.opts.Assets
		cmds = append(cmds, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), assets.DefaultTimeout)
			defer cancel()
			img, err := client.Image(ctx, ref)
			return illustrationLoadedMsg{ref: ref, img: img, err: err}
		})
	}

	return tea.Batch(cmds...)
}

// View implements View
func (v *ReaderView) View() string {
	if v.ctrl == nil {
		return "No book open"
	}

	var b strings.Builder
	b.WriteString(v.renderHeader() + "\n")

	page := v.ctrl.Page()
	textWidth := max(10, v.width-8)

	if art := v.renderIllustration(page); art != "" {
		b.WriteString(art + "\n")
	}

	body := styles.ReaderText.Render(wordwrap.String(page.Text, textWidth))
	if hint := v.slideHint(); hint != "" {
		body = styles.MutedText.Render(hint) + "\n\n" + body
	}
	b.WriteString(styles.PageFrame(page.MoodOrDefault()).Width(max(14, v.width-2)).Render(body) + "\n")

	if v.gotoMode {
		b.WriteString(styles.InputLabel.Render("Go to page: ") + styles.InputFieldFocused.Render(v.gotoInput.View()) + "\n")
	}
	b.WriteString(v.renderFooter())

	return b.String()
}

// renderHeader renders the title and page indicator
func (v *ReaderView) renderHeader() string {
	right := styles.ReaderProgress.Render(fmt.Sprintf(" Page %d of %d ", v.ctrl.CurrentPage(), v.ctrl.TotalPages())) +
		v.narrationIndicator()

	maxTitle := max(4, v.width-lipgloss.Width(right)-4)
	title := styles.ReaderHeader.Render(styles.TruncateText(v.ctrl.Book().Title, maxTitle))

	gap := max(0, v.width-lipgloss.Width(title)-lipgloss.Width(right))
	return title + strings.Repeat(" ", gap) + right
}

// narrationIndicator describes the active page's narration
func (v *ReaderView) narrationIndicator() string {
	page := v.ctrl.Page()
	if !page.HasNarration() {
		return styles.Disabled.Render("♪ none")
	}
	avail, probed := v.narration[page.NarrationURL]
	if (probed && !avail.Available) || v.failed(page.NarrationURL) {
		return styles.Disabled.Render("♪ unavailable")
	}

	length := ""
	if avail.Duration > 0 {
		length = " " + formatDuration(avail.Duration)
	}

	if !v.narrated {
		return styles.MutedText.Render("♪ off" + length)
	}
	if v.ended == page.NarrationURL {
		return styles.SuccessStyle.UnsetPadding().Render("♪ finished" + length)
	}
	state := narration.Idle
	if v.opts.Narrator != nil {
		state = v.opts.Narrator.State()
	}
	switch state {
	case narration.FadingIn, narration.Playing:
		return styles.SecondaryText.Render("♪ playing" + length)
	case narration.FadingOut:
		return styles.MutedText.Render("♪ stopping")
	default:
		return styles.MutedText.Render("♪ on" + length)
	}
}

func (v *ReaderView) failed(url string) bool {
	return v.opts.Narrator != nil && v.opts.Narrator.Failed(url)
}

// canPlay reports whether the play control is enabled for the page
func (v *ReaderView) canPlay() bool {
	page := v.ctrl.Page()
	if !page.HasNarration() || v.failed(page.NarrationURL) {
		return false
	}
	avail, probed := v.narration[page.NarrationURL]
	return !probed || avail.Available
}

// slideHint shows which way the last local page turn went
func (v *ReaderView) slideHint() string {
	switch v.ctrl.Direction() {
	case -1:
		return "« back"
	case 1:
		return "forward »"
	default:
		return ""
	}
}

// renderIllustration renders the page illustration, or its reference when
// the terminal cannot draw images
func (v *ReaderView) renderIllustration(page models.Page) string {
	ref := page.Illustration
	if ref == "" {
		return ""
	}
	if v.opts.ImageMode == terminal.TermModeNone || v.opts.Assets == nil {
		return styles.MutedText.Render("[illustration: " + ref + "]")
	}
	if v.illustrationRef != ref {
		return styles.MutedText.Render("Loading illustration...")
	}
	if v.illustrationErr != nil || v.illustration == nil {
		return styles.MutedText.Render("[illustration unavailable: " + ref + "]")
	}

	cols, rows := max(1, v.width-4), max(1, (v.height-8)/2)
	if v.rendered.ref == ref && v.rendered.cols == cols && v.rendered.rows == rows {
		return v.rendered.out
	}
	img := terminal.FitCells(v.illustration, cols, rows, v.opts.Cell)
	out, err := terminal.RenderImageToString(img, v.opts.ImageMode, terminal.IllustrationImageID)
	if err != nil {
		v.logger.Warn("reader: render illustration failed", "ref", ref, "error", err)
		return styles.MutedText.Render("[illustration: " + ref + "]")
	}
	v.rendered = renderedImage{ref: ref, cols: cols, rows: rows, out: out}
	return out
}

// renderFooter renders the key help; controls at a boundary are disabled
func (v *ReaderView) renderFooter() string {
	keys := v.opts.Keys
	item := func(enabled bool, k, desc string) string {
		if !enabled {
			return styles.Disabled.Render(k + " " + desc)
		}
		return styles.HelpKey.Render(k) + styles.Help.Render(" "+desc)
	}

	mode := "narrate"
	if v.narrated {
		mode = "silent"
	}
	help := []string{
		item(v.ctrl.CanPrev(), keys.Prev.Help().Key, "prev"),
		item(v.ctrl.CanNext(), keys.Next.Help().Key, "next"),
		item(v.canPlay(), "m", mode),
		item(true, "[/]", "history"),
		item(true, "g", "go to"),
		item(true, keys.Exit.Help().Key, "library"),
	}

	footer := strings.Join(help, "  ")
	if v.notice != "" {
		footer += "  " + styles.SecondaryText.Render(v.notice)
	}
	return styles.FooterBar.Width(v.width).Render(footer)
}

// SetSize implements View
func (v *ReaderView) SetSize(width, height int) {
	v.width = width
	v.height = height
}
