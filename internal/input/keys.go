package input

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap holds the page-turn bindings.
type KeyMap struct {
	Prev key.Binding
	Next key.Binding
	Exit key.Binding
}

// Default page-turn keys.
var (
	DefaultPrevKeys = []string{"left", "h", "p"}
	DefaultNextKeys = []string{"right", "l", "n", "space"}
	DefaultExitKeys = []string{"esc", "q"}
)

// DefaultKeyMap returns the default bindings.
func DefaultKeyMap() KeyMap {
	return NewKeyMap(nil, nil)
}

// NewKeyMap builds bindings, falling back to the defaults for empty lists.
func NewKeyMap(prev, next []string) KeyMap {
	if len(prev) == 0 {
		prev = DefaultPrevKeys
	}
	if len(next) == 0 {
		next = DefaultNextKeys
	}
	return KeyMap{
		Prev: key.NewBinding(
			key.WithKeys(normalizeKeys(prev)...),
			key.WithHelp(helpKeys(prev), "previous page"),
		),
		Next: key.NewBinding(
			key.WithKeys(normalizeKeys(next)...),
			key.WithHelp(helpKeys(next), "next page"),
		),
		Exit: key.NewBinding(
			key.WithKeys(DefaultExitKeys...),
			key.WithHelp("esc/q", "library"),
		),
	}
}

// Translate maps a key press to an intent. Nothing fires while a text
// input has focus.
func (k KeyMap) Translate(msg tea.KeyMsg, textFocused bool) Intent {
	if textFocused {
		return None
	}
	switch {
	case key.Matches(msg, k.Prev):
		return Prev
	case key.Matches(msg, k.Next):
		return Next
	case key.Matches(msg, k.Exit):
		return Exit
	}
	return None
}

func helpKeys(keys []string) string {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		switch k {
		case "left":
			names = append(names, "←")
		case "right":
			names = append(names, "→")
		default:
			names = append(names, k)
		}
	}
	return strings.Join(names, "/")
}

// normalizeKeys binds the space bar under both names bubbletea has used
// for it.
func normalizeKeys(keys []string) []string {
	out := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		if strings.EqualFold(k, "space") || k == " " {
			out = append(out, " ", "space")
			continue
		}
		out = append(out, k)
	}
	return out
}
