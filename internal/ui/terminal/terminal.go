// Package terminal draws illustrations with terminal image protocols.
package terminal

import (
	"bytes"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"io"

	"github.com/BourgeoisBear/rasterm"

	"github.com/justyntemme/storybook/internal/assets"
	"github.com/justyntemme/storybook/internal/input"
)

// TermImageMode is the image protocol used for illustrations
type TermImageMode int

const (
	// TermModeNone shows the illustration reference as text
	TermModeNone TermImageMode = iota
	// TermModeKitty uses the Kitty graphics protocol
	TermModeKitty
	// TermModeIterm uses iTerm2 inline images
	TermModeIterm
	// TermModeSixel uses Sixel
	TermModeSixel
)

// IllustrationImageID is a stable ID for the page illustration (for Kitty protocol)
const IllustrationImageID uint32 = 1989

// String names the protocol for logs
func (m TermImageMode) String() string {
	switch m {
	case TermModeKitty:
		return "Kitty"
	case TermModeIterm:
		return "iTerm2"
	case TermModeSixel:
		return "Sixel"
	default:
		return "None"
	}
}

// DetectTerminalMode probes the terminal for an image protocol, best first
func DetectTerminalMode() TermImageMode {
	if rasterm.IsKittyCapable() {
		return TermModeKitty
	}
	if rasterm.IsItermCapable() {
		return TermModeIterm
	}
	if capable, _ := rasterm.IsSixelCapable(); capable {
		return TermModeSixel
	}
	return TermModeNone
}

// ImageToPaletted quantizes img to the Plan 9 palette for Sixel
func ImageToPaletted(img image.Image) *image.Paletted {
	bounds := img.Bounds()
	paletted := image.NewPaletted(bounds, palette.Plan9)
	draw.Draw(paletted, bounds, img, bounds.Min, draw.Src)
	return paletted
}

// FitCells scales img to fit a cols x rows cell area.
func FitCells(img image.Image, cols, rows int, cell input.CellSize) image.Image {
	w, h := cell.ToPixels(cols, rows)
	return assets.Fit(img, w, h)
}

// RenderImageToString encodes img for mode. A Kitty image ID lets the
// illustration be replaced in place.
func RenderImageToString(img image.Image, mode TermImageMode, kittyID ...uint32) (string, error) {
	var buf bytes.Buffer
	var renderErr error

	switch mode {
	case TermModeKitty:
		opts := rasterm.KittyImgOpts{}
		if len(kittyID) > 0 {
			opts.ImageId = kittyID[0]
		}
		renderErr = rasterm.KittyWriteImage(&buf, img, opts)
	case TermModeIterm:
		renderErr = rasterm.ItermWriteImage(&buf, img)
	case TermModeSixel:
		// bubbletea owns stdout; the sequence goes into the view string
		renderErr = rasterm.SixelWriteImage(&buf, ImageToPaletted(img))
	default:
		return "", nil
	}

	if renderErr != nil {
		return "", renderErr
	}
	return buf.String(), nil
}

// ClearIllustration returns the escape sequence that removes the page
// illustration without a full screen clear.
func ClearIllustration(mode TermImageMode) string {
	switch mode {
	case TermModeKitty:
		return fmt.Sprintf("\x1b_Ga=d,i=%d\x1b\\", IllustrationImageID)
	case TermModeIterm, TermModeSixel:
		// Images live in the character grid: clear below the header.
		return "\x1b[2;1H\x1b[J"
	default:
		return ""
	}
}

// ClearImages returns the sequence that removes every drawn image
func ClearImages(mode TermImageMode) string {
	switch mode {
	case TermModeKitty:
		// delete all placements
		return "\x1b_Ga=d,d=A\x1b\\"
	case TermModeIterm, TermModeSixel:
		return "\x1b[2J\x1b[H"
	default:
		return ""
	}
}

// ClearImagesFunc returns a func that clears terminal images on w.
// Call it before leaving a view that displayed images.
func ClearImagesFunc(w io.Writer, mode TermImageMode) func() {
	return func() {
		if seq := ClearImages(mode); seq != "" {
			_, _ = io.WriteString(w, seq)
		}
	}
}
