// Package input translates raw mouse and keyboard events into reader
// intents. Translators hold no page state; callers pass the page bounds.
package input

// Intent is a navigation request produced by an adapter.
type Intent int

const (
	None Intent = iota
	Prev
	Next
	Exit
)

func (i Intent) String() string {
	switch i {
	case Prev:
		return "prev"
	case Next:
		return "next"
	case Exit:
		return "exit"
	default:
		return "none"
	}
}

// Bounds tells an adapter whether the current page is at either end.
type Bounds struct {
	IsFirst bool
	IsLast  bool
}

// CellSize is the pixel size of one terminal cell.
type CellSize struct {
	Width  int
	Height int
}

// DefaultCellSize is used when the terminal does not report its cell size.
var DefaultCellSize = CellSize{Width: 8, Height: 16}

// ToPixels converts a cell position to pixels.
func (c CellSize) ToPixels(col, row int) (int, int) {
	w, h := c.Width, c.Height
	if w <= 0 {
		w = DefaultCellSize.Width
	}
	if h <= 0 {
		h = DefaultCellSize.Height
	}
	return col * w, row * h
}
