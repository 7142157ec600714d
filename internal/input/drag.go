package input

// Drag thresholds in pixels.
const (
	JitterThreshold = 10
	SwipeThreshold  = 50
	ExitThreshold   = 100
)

// Drag tracks one pointer press. At most one intent fires per press; a
// press released before moving JitterThreshold pixels is a tap.
type Drag struct {
	active bool
	moved  bool
	fired  bool
	x0, y0 int
}

// Press starts tracking at (x, y).
func (d *Drag) Press(x, y int) {
	*d = Drag{active: true, x0: x, y0: y}
}

// Active reports whether a press is being tracked.
func (d *Drag) Active() bool {
	return d.active
}

// Move updates the pointer position and returns an intent when the drag
// crosses a threshold.
func (d *Drag) Move(x, y int, b Bounds) Intent {
	if !d.active || d.fired {
		return None
	}
	mx, my := x-d.x0, y-d.y0
	if !d.moved {
		if max(abs(mx), abs(my)) < JitterThreshold {
			return None
		}
		d.moved = true
	}

	intent := classify(mx, my, b)
	if intent != None {
		d.fired = true
	}
	return intent
}

// Release ends the press. tap is true when the pointer never left the
// jitter threshold; taps never navigate.
func (d *Drag) Release(x, y int, b Bounds) (intent Intent, tap bool) {
	if !d.active {
		return None, false
	}
	intent = d.Move(x, y, b)
	tap = !d.moved
	*d = Drag{}
	return intent, tap
}

// Cancel drops the current press.
func (d *Drag) Cancel() {
	*d = Drag{}
}

func classify(mx, my int, b Bounds) Intent {
	ax, ay := abs(mx), abs(my)
	if ax > SwipeThreshold && ax > ay {
		switch {
		case mx > 0 && !b.IsFirst:
			return Prev
		case mx < 0 && !b.IsLast:
			return Next
		}
	}
	if my > ExitThreshold && ay > ax {
		return Exit
	}
	return None
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
