package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

var middle = Bounds{}

func TestDrag_JitterIsIgnored(t *testing.T) {
	var d Drag
	d.Press(100, 100)

	assert.Equal(t, None, d.Move(109, 100, middle))
	intent, tap := d.Release(105, 103, middle)
	assert.Equal(t, None, intent)
	assert.True(t, tap, "a press that never moves 10px is a tap")
}

func TestDrag_Swipes(t *testing.T) {
	tests := []struct {
		name   string
		dx, dy int
		bounds Bounds
		want   Intent
	}{
		{"right swipe is prev", 60, 10, middle, Prev},
		{"left swipe is next", -60, 10, middle, Next},
		{"exactly 50 is not enough", 50, 0, middle, None},
		{"prev disabled on first page", 80, 0, Bounds{IsFirst: true}, None},
		{"next disabled on last page", -80, 0, Bounds{IsLast: true}, None},
		{"mostly vertical is not a page turn", 60, 70, middle, None},
		{"pull down exits", 20, 120, middle, Exit},
		{"pull down exits on any page", 0, 101, Bounds{IsFirst: true, IsLast: true}, Exit},
		{"pull up does nothing", 0, -150, middle, None},
		{"exactly 100 down is not enough", 0, 100, middle, None},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Drag
			d.Press(200, 200)
			got := d.Move(200+tt.dx, 200+tt.dy, tt.bounds)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDrag_OneIntentPerPress(t *testing.T) {
	var d Drag
	d.Press(0, 0)

	assert.Equal(t, None, d.Move(-30, 0, middle))
	assert.Equal(t, Next, d.Move(-60, 0, middle))
	assert.Equal(t, None, d.Move(-200, 0, middle), "drag is cancelled after firing")

	intent, tap := d.Release(-300, 0, middle)
	assert.Equal(t, None, intent)
	assert.False(t, tap)
	assert.False(t, d.Active())
}

func TestDrag_ReleaseEvaluatesFinalPosition(t *testing.T) {
	var d Drag
	d.Press(0, 0)
	intent, tap := d.Release(70, 5, middle)
	assert.Equal(t, Prev, intent)
	assert.False(t, tap)
}

func TestDrag_ReleaseWithoutPress(t *testing.T) {
	var d Drag
	intent, tap := d.Release(10, 10, middle)
	assert.Equal(t, None, intent)
	assert.False(t, tap)
}

func TestCellSize_ToPixels(t *testing.T) {
	x, y := DefaultCellSize.ToPixels(7, 7)
	assert.Equal(t, 56, x)
	assert.Equal(t, 112, y)

	x, y = CellSize{}.ToPixels(1, 1)
	assert.Equal(t, 8, x)
	assert.Equal(t, 16, y)
}

func TestZone(t *testing.T) {
	assert.Equal(t, Prev, Zone(0, 90, middle))
	assert.Equal(t, Prev, Zone(29, 90, middle))
	assert.Equal(t, None, Zone(30, 90, middle))
	assert.Equal(t, None, Zone(59, 90, middle))
	assert.Equal(t, Next, Zone(60, 90, middle))
	assert.Equal(t, Next, Zone(89, 90, middle))

	assert.Equal(t, None, Zone(0, 90, Bounds{IsFirst: true}))
	assert.Equal(t, None, Zone(89, 90, Bounds{IsLast: true}))
	assert.Equal(t, None, Zone(95, 90, middle))
	assert.Equal(t, None, Zone(0, 0, middle))
}

func TestKeyMap_Translate(t *testing.T) {
	k := DefaultKeyMap()

	assert.Equal(t, Prev, k.Translate(tea.KeyMsg{Type: tea.KeyLeft}, false))
	assert.Equal(t, Prev, k.Translate(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("h")}, false))
	assert.Equal(t, Next, k.Translate(tea.KeyMsg{Type: tea.KeyRight}, false))
	assert.Equal(t, Next, k.Translate(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}, false))
	assert.Equal(t, Exit, k.Translate(tea.KeyMsg{Type: tea.KeyEsc}, false))
	assert.Equal(t, None, k.Translate(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")}, false))
}

func TestKeyMap_TextFocusBlocks(t *testing.T) {
	k := DefaultKeyMap()
	assert.Equal(t, None, k.Translate(tea.KeyMsg{Type: tea.KeyRight}, true))
	assert.Equal(t, None, k.Translate(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")}, true))
}

func TestNewKeyMap_Custom(t *testing.T) {
	k := NewKeyMap([]string{"a"}, []string{"space"})

	assert.Equal(t, Prev, k.Translate(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}, false))
	assert.Equal(t, None, k.Translate(tea.KeyMsg{Type: tea.KeyLeft}, false))
	assert.Equal(t, Next, k.Translate(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")}, false))
	assert.Equal(t, "a", k.Prev.Help().Key)
	assert.Equal(t, "space", k.Next.Help().Key)
}
