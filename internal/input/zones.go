package input

// Zone returns the intent for a tap at column x of a page area width
// columns wide: the left third turns back, the right third turns forward.
// A zone at its boundary is inert.
func Zone(x, width int, b Bounds) Intent {
	if width <= 0 || x < 0 || x >= width {
		return None
	}
	third := width / 3
	switch {
	case x < third:
		if b.IsFirst {
			return None
		}
		return Prev
	case x >= width-third:
		if b.IsLast {
			return None
		}
		return Next
	default:
		return None
	}
}
