package views

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justyntemme/storybook/internal/book"
	"github.com/justyntemme/storybook/internal/clock"
	"github.com/justyntemme/storybook/internal/input"
	"github.com/justyntemme/storybook/internal/narration"
	"github.com/justyntemme/storybook/internal/route"
	"github.com/justyntemme/storybook/pkg/models"
)

type memProgress struct {
	pages map[string]int
}

func newMemProgress() *memProgress {
	return &memProgress{pages: map[string]int{}}
}

func (m *memProgress) LastReadPage(_ context.Context, slug string) (int, bool, error) {
	p, ok := m.pages[slug]
	return p, ok, nil
}

func (m *memProgress) SetLastReadPage(_ context.Context, slug string, page int) error {
	m.pages[slug] = page
	return nil
}

type recLocator struct {
	paths []string
}

func (r *recLocator) Replace(path string) {
	r.paths = append(r.paths, path)
}

type syncCall struct {
	url  string
	play bool
}

type fakeNarrator struct {
	syncs  []syncCall
	stops  int
	failed map[string]bool
	state  narration.State
}

func (n *fakeNarrator) Sync(url string, play bool) error {
	n.syncs = append(n.syncs, syncCall{url, play})
	if play && url != "" {
		n.state = narration.Playing
	} else {
		n.state = narration.Idle
	}
	return nil
}

func (n *fakeNarrator) Stop()                  { n.stops++ }
func (n *fakeNarrator) Failed(url string) bool { return n.failed[url] }
func (n *fakeNarrator) State() narration.State { return n.state }

type fakeHistory struct {
	backs, forwards int
}

func (h *fakeHistory) Back() bool    { h.backs++; return true }
func (h *fakeHistory) Forward() bool { h.forwards++; return false }

type memSettings struct {
	current models.Settings
}

func (s *memSettings) Get() models.Settings { return s.current }

func (s *memSettings) SetTheme(t models.Theme) models.Settings {
	s.current.Theme = t
	return s.current
}

func (s *memSettings) SetReadingMode(m models.ReadingMode) models.Settings {
	s.current.ReadingMode = m
	return s.current
}

func (s *memSettings) ToggleReadingMode() models.Settings {
	if s.current.ReadingMode == models.ReadingModeNarrated {
		s.current.ReadingMode = models.ReadingModeSelfRead
	} else {
		s.current.ReadingMode = models.ReadingModeNarrated
	}
	return s.current
}

func noAudio(context.Context, string) narration.Availability {
	return narration.Availability{Available: true, Duration: 42 * time.Second}
}

func slimey(t *testing.T) *models.Book {
	t.Helper()
	c, err := book.NewCatalog("")
	require.NoError(t, err)
	b, err := c.Get("slimey")
	require.NoError(t, err)
	return b
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

type readerFixture struct {
	view     *ReaderView
	progress *memProgress
	locator  *recLocator
	narrator *fakeNarrator
	history  *fakeHistory
	settings *memSettings
	clock    *clock.Fake
}

func newReaderFixture(t *testing.T) *readerFixture {
	t.Helper()
	f := &readerFixture{
		progress: newMemProgress(),
		locator:  &recLocator{},
		narrator: &fakeNarrator{},
		history:  &fakeHistory{},
		settings: &memSettings{current: models.DefaultSettings()},
		clock:    clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
	}
	f.view = NewReaderView(ReaderOptions{
		Progress: f.progress,
		Locator:  f.locator,
		Narrator: f.narrator,
		Settings: f.settings,
		History:  f.history,
		Probe:    noAudio,
		Cell:     input.CellSize{Width: 8, Height: 16},
		Clock:    f.clock,
	})
	f.view.SetSize(90, 30)
	return f
}

// navigateTarget runs cmd and returns the path it navigates to.
func navigateTarget(t *testing.T, cmd tea.Cmd) string {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(NavigateMsg)
	require.True(t, ok, "command does not navigate")
	return msg.Path
}

func TestReaderView_SlimeyEndToEnd(t *testing.T) {
	f := newReaderFixture(t)
	f.view.Open(slimey(t), 1)

	ctrl := f.view.Controller()
	require.NotNil(t, ctrl)
	assert.Equal(t, 1, ctrl.CurrentPage())
	assert.Contains(t, f.view.View(), "Page 1 of 3")

	f.view.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 2, ctrl.CurrentPage())
	assert.Equal(t, 2, f.progress.pages["slimey"])
	assert.Equal(t, []string{"/slimey/2"}, f.locator.paths)
	assert.Contains(t, f.view.View(), "Page 2 of 3")

	f.view.Update(keyRunes("l"))
	assert.Equal(t, 3, ctrl.CurrentPage())

	// The last page does not advance.
	f.view.Update(tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 3, ctrl.CurrentPage())
	assert.Len(t, f.locator.paths, 2)

	_, cmd := f.view.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "/", navigateTarget(t, cmd))
}

func TestReaderView_ResumesStoredPage(t *testing.T) {
	f := newReaderFixture(t)
	f.progress.pages["slimey"] = 3

	f.view.Open(slimey(t), 1)

	assert.Equal(t, 3, f.view.Controller().CurrentPage())
	assert.Equal(t, []string{"/slimey/3"}, f.locator.paths)
}

func TestReaderView_ToggleReadingMode(t *testing.T) {
	f := newReaderFixture(t)
	b := slimey(t)
	f.view.Open(b, 1)
	page1 := b.Pages[0].NarrationURL

	f.view.Update(keyRunes("m"))

	assert.Equal(t, models.ReadingModeNarrated, f.settings.current.ReadingMode)
	assert.Equal(t, syncCall{page1, true}, f.narrator.syncs[len(f.narrator.syncs)-1])
	assert.Contains(t, f.view.View(), "playing")

	f.view.Update(keyRunes("m"))
	assert.Equal(t, syncCall{page1, false}, f.narrator.syncs[len(f.narrator.syncs)-1])
}

func TestReaderView_NarrationIndicator(t *testing.T) {
	f := newReaderFixture(t)
	b := slimey(t)
	f.view.Open(b, 1)
	url := b.Pages[0].NarrationURL

	f.view.Update(narrationProbedMsg{url: url, avail: narration.Availability{Available: true, Duration: 42 * time.Second}})
	assert.Contains(t, f.view.View(), "♪ off 0:42")

	f.view.SetNarrated(true)
	f.view.NarrationEnded(url)
	assert.Contains(t, f.view.View(), "finished")

	f.narrator.failed = map[string]bool{url: true}
	assert.Contains(t, f.view.View(), "unavailable")
	assert.False(t, f.view.canPlay())
}

func TestReaderView_DragAndTap(t *testing.T) {
	f := newReaderFixture(t)
	f.view.Open(slimey(t), 1)
	ctrl := f.view.Controller()

	press := func(x, y int) {
		f.view.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	}
	move := func(x, y int) {
		f.view.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	}
	release := func(x, y int) {
		f.view.Update(tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	}

	// Swipe left 10 cells (80px): next page, once per press.
	press(50, 10)
	move(40, 10)
	move(30, 10)
	release(30, 10)
	assert.Equal(t, 2, ctrl.CurrentPage())

	// Jitter below the threshold is a tap; the middle third is inert.
	press(45, 10)
	release(45, 10)
	assert.Equal(t, 2, ctrl.CurrentPage())

	// Tap in the left third turns back.
	press(5, 10)
	release(5, 10)
	assert.Equal(t, 1, ctrl.CurrentPage())

	// Tap in the left third on the first page does nothing.
	press(5, 10)
	release(5, 10)
	assert.Equal(t, 1, ctrl.CurrentPage())
}

func TestReaderView_DragDownExits(t *testing.T) {
	f := newReaderFixture(t)
	f.view.Open(slimey(t), 2)

	f.view.Update(tea.MouseMsg{X: 40, Y: 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	_, cmd := f.view.Update(tea.MouseMsg{X: 40, Y: 9, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	assert.Equal(t, "/", navigateTarget(t, cmd))
}

func TestReaderView_HistoryKeys(t *testing.T) {
	f := newReaderFixture(t)
	f.view.Open(slimey(t), 1)

	f.view.Update(keyRunes("["))
	f.view.Update(keyRunes("]"))

	assert.Equal(t, 1, f.history.backs)
	assert.Equal(t, 1, f.history.forwards)
	assert.Equal(t, "no later location", f.view.notice)
}

func TestReaderView_GotoPromptBlocksPageKeys(t *testing.T) {
	f := newReaderFixture(t)
	f.view.Open(slimey(t), 1)

	f.view.Update(keyRunes("g"))
	require.True(t, f.view.TextFocused())

	// Page keys type into the prompt instead of turning pages.
	f.view.Update(keyRunes("l"))
	assert.Equal(t, 1, f.view.Controller().CurrentPage())

	f.view.gotoInput.SetValue("3")
	f.view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, f.view.TextFocused())
	assert.Equal(t, 3, f.view.Controller().CurrentPage())
}

func TestReaderView_GotoIsAPageTurn(t *testing.T) {
	f := newReaderFixture(t)
	f.view.Open(slimey(t), 1)

	gotoPage := func(page string) {
		f.view.Update(keyRunes("g"))
		f.view.gotoInput.SetValue(page)
		f.view.Update(tea.KeyMsg{Type: tea.KeyEnter})
	}

	gotoPage("3")
	assert.Equal(t, 3, f.view.Controller().CurrentPage())
	assert.Equal(t, 3, f.progress.pages["slimey"])
	assert.Equal(t, "/slimey/3", f.locator.paths[len(f.locator.paths)-1])

	// A jump right after a page turn is not suppressed.
	f.view.Update(tea.KeyMsg{Type: tea.KeyLeft})
	require.Equal(t, 2, f.view.Controller().CurrentPage())
	gotoPage("1")
	assert.Equal(t, 1, f.view.Controller().CurrentPage())
	assert.Equal(t, 1, f.progress.pages["slimey"])
	assert.Equal(t, "/slimey/1", f.locator.paths[len(f.locator.paths)-1])

	gotoPage("9")
	assert.Equal(t, 1, f.view.Controller().CurrentPage())
	assert.Equal(t, `no page "9"`, f.view.notice)
}

func TestReaderView_ExternalPage(t *testing.T) {
	f := newReaderFixture(t)
	f.view.Open(slimey(t), 1)
	f.view.Update(tea.KeyMsg{Type: tea.KeyRight})

	f.clock.Advance(time.Second)
	f.view.ExternalPage(1, route.CausePush)
	assert.Equal(t, 2, f.view.Controller().CurrentPage())
	assert.Contains(t, f.view.notice, "ignored")

	// Echoes of our own replaces never raise a notice.
	f.view.notice = ""
	f.view.ExternalPage(1, route.CauseReplace)
	assert.Empty(t, f.view.notice)

	f.clock.Advance(2 * time.Second)
	f.view.ExternalPage(1, route.CauseBack)
	assert.Equal(t, 1, f.view.Controller().CurrentPage())
}

func TestReaderView_CloseUnmounts(t *testing.T) {
	f := newReaderFixture(t)
	f.view.Open(slimey(t), 1)
	ctrl := f.view.Controller()

	f.view.Close()

	assert.Nil(t, f.view.Book())
	assert.False(t, ctrl.Mounted())
	assert.Equal(t, 1, f.narrator.stops)
}

func TestLibraryView_ListFilterAndOpen(t *testing.T) {
	c, err := book.NewCatalog("")
	require.NoError(t, err)
	progress := newMemProgress()
	progress.pages["slimey"] = 2

	v := NewLibraryView(c, progress)
	v.SetSize(90, 30)

	cmd := v.Init()
	require.NotNil(t, cmd)
	v.Update(cmd())

	out := v.View()
	assert.Contains(t, out, "Slimey and the Puddle Parade")
	assert.Contains(t, out, "page 2 of 3")

	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "/book/slimey", navigateTarget(t, cmd))

	_, cmd = v.Update(keyRunes("r"))
	assert.Equal(t, "/slimey/2", navigateTarget(t, cmd))

	v.Update(keyRunes("/"))
	require.True(t, v.TextFocused())
	for _, r := range "zzz" {
		v.Update(keyRunes(string(r)))
	}
	assert.Empty(t, v.filtered)
	assert.Contains(t, v.View(), "No books match")

	v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, v.TextFocused())
	assert.Len(t, v.filtered, 1)
}

func TestLandingView_StartAndResume(t *testing.T) {
	progress := newMemProgress()
	progress.pages["slimey"] = 3
	b := slimey(t)

	v := NewLandingView(progress, noAudio)
	v.SetBook(b)
	v.Update(v.loadProgress()())
	v.Update(v.probeNarration()())

	out := v.View()
	assert.Contains(t, out, "Resume at page 3")
	assert.Contains(t, out, "3 of 3 pages")

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "/slimey/3", navigateTarget(t, cmd))

	// Starting over records page 1 so the reader does not jump ahead.
	_, cmd = v.Update(keyRunes("b"))
	assert.Equal(t, "/slimey/1", navigateTarget(t, cmd))
	assert.Equal(t, 1, progress.pages["slimey"])

	_, cmd = v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "/", navigateTarget(t, cmd))
}

func TestLandingView_NotStarted(t *testing.T) {
	v := NewLandingView(newMemProgress(), func(context.Context, string) narration.Availability {
		return narration.Availability{}
	})
	v.SetBook(slimey(t))
	v.Update(v.loadProgress()())
	v.Update(v.probeNarration()())

	out := v.View()
	assert.Contains(t, out, "Start reading")
	assert.Contains(t, out, "unavailable")
}

func TestSettingsView_CyclesValues(t *testing.T) {
	s := &memSettings{current: models.DefaultSettings()}
	v := NewSettingsView(s)
	v.Init()

	v.Update(keyRunes("l"))
	assert.Equal(t, models.ThemeLight, s.current.Theme)
	v.Update(keyRunes("h"))
	v.Update(keyRunes("h"))
	assert.Equal(t, models.ThemeDark, s.current.Theme)

	v.Update(keyRunes("j"))
	v.Update(keyRunes("l"))
	assert.Equal(t, models.ReadingModeNarrated, s.current.ReadingMode)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseDialogMsg{}, cmd())
}
