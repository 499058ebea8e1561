// Package colorutil provides shared color utilities for the plate scanner.
package colorutil

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Overlay marker colors.
var (
	Red    = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Green  = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Yellow = color.RGBA{R: 255, G: 255, B: 0, A: 255}
)

// ParseHex parses a "#rrggbb" or "#rgb" color into an opaque RGBA.
func ParseHex(s string) (color.RGBA, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
