// Package ui is the storybook terminal interface.
package ui

import (
	"log/slog"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/justyntemme/storybook/internal/assets"
	"github.com/justyntemme/storybook/internal/clock"
	"github.com/justyntemme/storybook/internal/input"
	"github.com/justyntemme/storybook/internal/logging"
	"github.com/justyntemme/storybook/internal/narration"
	"github.com/justyntemme/storybook/internal/reader"
	"github.com/justyntemme/storybook/internal/route"
	"github.com/justyntemme/storybook/internal/ui/styles"
	"github.com/justyntemme/storybook/internal/ui/terminal"
	"github.com/justyntemme/storybook/internal/ui/views"
	"github.com/justyntemme/storybook/pkg/models"
)

// Catalog is the book catalog as the app uses it.
type Catalog interface {
	route.Catalog
	views.Books
}

// Settings is the preferences service.
type Settings interface {
	views.Preferences
	Subscribe(fn func(models.Settings)) (unsubscribe func())
}

// Options wires the application.
type Options struct {
	Catalog   Catalog
	Progress  reader.ProgressStore
	Settings  Settings
	Transport *narration.Transport
	History   *route.History
	Assets    *assets.Client
	Probe     views.Prober

	Keys              input.KeyMap
	Cell              input.CellSize
	SuppressionWindow time.Duration
	Clock             clock.Clock
	Logger            *slog.Logger

	// DarkBackground resolves the system theme.
	DarkBackground bool
	ImageMode      terminal.TermImageMode
}

// narrationEndedMsg is sent when narration plays to its end, or fails
// while playing
type narrationEndedMsg struct {
	url    string
	failed bool
}

// catalogReloadedMsg is sent after the books directory changed
type catalogReloadedMsg struct{}

// App is the main application model
type App struct {
	opts     Options
	keys     KeyMap
	logger   *slog.Logger
	resolver *route.Resolver
	history  *route.History

	narrationEnds chan narrationEndedMsg
	reloads       chan struct{}
	unsubscribe   func()

	// Current view state
	currentView views.ViewType
	prevView    views.ViewType

	// Window dimensions
	width  int
	height int

	// View models
	libraryView  *views.LibraryView
	landingView  *views.LandingView
	readerView   *views.ReaderView
	settingsView *views.SettingsView

	// Error message
	err      error
	showHelp bool
}

// NewApp creates a new application instance
func NewApp(opts Options) *App {
	logger := logging.OrNop(opts.Logger)
	history := opts.History
	if history == nil {
		history = route.NewHistory(route.LibraryPath, route.WithLogger(logger))
	}

	var narrator views.Narrator
	if opts.Transport != nil {
		narrator = opts.Transport
	}

	app := &App{
		opts:          opts,
		keys:          DefaultKeyMap(),
		logger:        logger,
		resolver:      route.NewResolver(opts.Catalog),
		history:       history,
		narrationEnds: make(chan narrationEndedMsg, 8),
		reloads:       make(chan struct{}, 1),
		currentView:   views.ViewLibrary,
		width:         80,
		height:        24,
	}

	app.libraryView = views.NewLibraryView(opts.Catalog, opts.Progress)
	app.landingView = views.NewLandingView(opts.Progress, opts.Probe)
	app.readerView = views.NewReaderView(views.ReaderOptions{
		Progress:          opts.Progress,
		Locator:           history,
		Narrator:          narrator,
		Settings:          opts.Settings,
		History:           history,
		Assets:            opts.Assets,
		Probe:             opts.Probe,
		Keys:              opts.Keys,
		Cell:              opts.Cell,
		SuppressionWindow: opts.SuppressionWindow,
		Clock:             opts.Clock,
		Logger:            logger,
		ImageMode:         opts.ImageMode,
	})
	app.settingsView = views.NewSettingsView(opts.Settings)

	if opts.Transport != nil {
		opts.Transport.OnEnd(func(url string) { app.notifyNarration(narrationEndedMsg{url: url}) })
		opts.Transport.OnError(func(url string) { app.notifyNarration(narrationEndedMsg{url: url, failed: true}) })
	}
	if opts.Settings != nil {
		app.applySettings(opts.Settings.Get())
		app.unsubscribe = opts.Settings.Subscribe(app.applySettings)
	}

	return app
}

// NotifyCatalogReload tells the app the catalog changed. Safe to call
// from any goroutine.
func (a *App) NotifyCatalogReload() {
	select {
	case a.reloads <- struct{}{}:
	default:
	}
}

func (a *App) notifyNarration(msg narrationEndedMsg) {
	select {
	case a.narrationEnds <- msg:
	default:
	}
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.SetWindowTitle("storybook"),
		a.waitForLocation(),
		a.waitForNarrationEnd(),
		a.waitForReload(),
		a.open(a.history.Current()),
	)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Propagate to all views
		a.libraryView.SetSize(msg.Width, msg.Height)
		a.landingView.SetSize(msg.Width, msg.Height)
		a.readerView.SetSize(msg.Width, msg.Height)
		a.settingsView.SetSize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		// Global key handling
		switch {
		case key.Matches(msg, a.keys.Quit):
			return a, a.quit()

		case a.showHelp && (key.Matches(msg, a.keys.Help) || key.Matches(msg, a.keys.Escape)):
			a.showHelp = false
			return a, nil

		case key.Matches(msg, a.keys.Help) && !a.textFocused():
			a.showHelp = true
			return a, nil
		}

	case route.LocationChangedMsg:
		return a, tea.Batch(a.handleLocation(msg), a.waitForLocation())

	case narrationEndedMsg:
		// A failure needs no state here; the indicator asks the transport.
		if !msg.failed {
			a.readerView.NarrationEnded(msg.url)
		}
		return a, a.waitForNarrationEnd()

	case catalogReloadedMsg:
		cmds := []tea.Cmd{a.waitForReload()}
		if a.currentView == views.ViewLibrary {
			cmds = append(cmds, a.libraryView.Refresh())
		}
		return a, tea.Batch(cmds...)

	case views.NavigateMsg:
		a.err = nil
		a.history.Navigate(msg.Path)
		return a, nil

	case views.ErrorMsg:
		a.err = msg.Err
		return a, nil

	case views.ClearErrorMsg:
		a.err = nil
		return a, nil

	case views.SwitchViewMsg:
		if msg.View == views.ViewSettings && a.currentView != views.ViewSettings {
			a.prevView = a.currentView
			a.currentView = views.ViewSettings
			return a, a.settingsView.Init()
		}
		return a, nil

	case views.CloseDialogMsg:
		if a.currentView == views.ViewSettings {
			a.currentView = a.prevView
		}
		return a, nil
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.currentView {
	case views.ViewLibrary:
		_, cmd = a.libraryView.Update(msg)
	case views.ViewLanding:
		_, cmd = a.landingView.Update(msg)
	case views.ViewReader:
		_, cmd = a.readerView.Update(msg)
	case views.ViewSettings:
		_, cmd = a.settingsView.Update(msg)
		// Async results still belong to the view underneath
		if _, isKey := msg.(tea.KeyMsg); !isKey && a.prevView == views.ViewReader {
			var readerCmd tea.Cmd
			_, readerCmd = a.readerView.Update(msg)
			cmd = tea.Batch(cmd, readerCmd)
		}
	}
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	if a.showHelp {
		return a.renderHelp()
	}

	var content string
	switch a.currentView {
	case views.ViewLibrary:
		content = a.libraryView.View()
	case views.ViewLanding:
		content = a.landingView.View()
	case views.ViewReader:
		content = a.readerView.View()
	case views.ViewSettings:
		content = a.settingsView.View()
	default:
		content = "Unknown view"
	}

	// Add error bar if there's an error
	if a.err != nil {
		errorBar := styles.ErrorStyle.Render("Error: " + a.err.Error())
		content = lipgloss.JoinVertical(lipgloss.Left, content, errorBar)
	}
	return content
}

// CurrentView returns the view on screen
func (a *App) CurrentView() views.ViewType {
	return a.currentView
}

// Err returns the error shown in the error bar
func (a *App) Err() error {
	return a.err
}

// handleLocation routes a location change. Page changes for the open book
// go to the reader session; anything else opens a view.
func (a *App) handleLocation(msg route.LocationChangedMsg) tea.Cmd {
	a.logger.Debug("ui: location changed", "path", msg.Path, "cause", msg.Cause.String())

	loc, err := a.resolver.Resolve(msg.Path)
	if err != nil {
		if msg.Cause == route.CauseReplace {
			return nil
		}
		a.logger.Warn("ui: location not found", "path", msg.Path, "error", err)
		a.err = err
		return a.show(route.Location{Kind: route.KindLibrary, Path: route.LibraryPath})
	}

	if open := a.readerView.Book(); open != nil && loc.Kind == route.KindPage && loc.Slug == open.Slug {
		return a.readerView.ExternalPage(loc.Page, msg.Cause)
	}
	if msg.Cause == route.CauseReplace {
		return nil
	}
	return a.show(loc)
}

// open resolves path and shows it
func (a *App) open(path string) tea.Cmd {
	loc, err := a.resolver.Resolve(path)
	if err != nil {
		a.logger.Warn("ui: location not found", "path", path, "error", err)
		a.err = err
		loc = route.Location{Kind: route.KindLibrary, Path: route.LibraryPath}
	}
	return a.show(loc)
}

// show switches to the view for loc
func (a *App) show(loc route.Location) tea.Cmd {
	a.showHelp = false
	switch loc.Kind {
	case route.KindLanding:
		a.readerView.Close()
		a.landingView.SetBook(loc.Book)
		a.currentView = views.ViewLanding
		return a.landingView.Init()
	case route.KindPage:
		a.currentView = views.ViewReader
		return a.readerView.Open(loc.Book, loc.Page)
	default:
		a.readerView.Close()
		a.currentView = views.ViewLibrary
		return a.libraryView.Init()
	}
}

// applySettings applies a settings record to the interface
func (a *App) applySettings(s models.Settings) {
	styles.SetTheme(s.Theme, a.opts.DarkBackground)
	a.readerView.SetNarrated(s.Narrated())
}

func (a *App) textFocused() bool {
	switch a.currentView {
	case views.ViewLibrary:
		return a.libraryView.TextFocused()
	case views.ViewReader:
		return a.readerView.TextFocused()
	}
	return false
}

// quit closes the session and exits
func (a *App) quit() tea.Cmd {
	a.readerView.Close()
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
	return tea.Quit
}

func (a *App) waitForLocation() tea.Cmd {
	changes := a.history.Changes()
	return func() tea.Msg {
		return <-changes
	}
}

func (a *App) waitForNarrationEnd() tea.Cmd {
	return func() tea.Msg {
		return <-a.narrationEnds
	}
}

func (a *App) waitForReload() tea.Cmd {
	return func() tea.Msg {
		<-a.reloads
		return catalogReloadedMsg{}
	}
}

// renderHelp renders the help overlay
func (a *App) renderHelp() string {
	keys := a.opts.Keys
	if len(keys.Prev.Keys()) == 0 {
		keys = input.DefaultKeyMap()
	}
	help := styles.Dialog.Width(min(60, max(20, a.width-4))).Render(
		styles.DialogTitle.Render("Keyboard Shortcuts") + "\n\n" +
			styles.HelpKey.Render("Library") + "\n" +
			"  j/k     Move\n" +
			"  /       Filter\n" +
			"  Enter   Open book\n" +
			"  r       Resume reading\n" +
			"  s       Settings\n\n" +
			styles.HelpKey.Render("Reader") + "\n" +
			"  " + keys.Prev.Help().Key + "  Previous page\n" +
			"  " + keys.Next.Help().Key + "  Next page\n" +
			"  m       Narrated / self-read\n" +
			"  [ ]     Back / forward\n" +
			"  g       Go to page\n" +
			"  drag    Swipe pages, drag down for the library\n" +
			"  click   Left or right third turns the page\n\n" +
			styles.HelpKey.Render("General") + "\n" +
			"  Esc/q   Back\n" +
			"  ?       Toggle help\n" +
			"  Ctrl+c  Quit\n",
	)

	return lipgloss.Place(
		a.width,
		a.height,
		lipgloss.Center,
		lipgloss.Center,
		help,
	)
}
