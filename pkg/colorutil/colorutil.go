// Package colorutil provides shared color utilities for annotation styles.
package colorutil

import (
	"fmt"
	"image/color"
	"strings"
)

// Common annotation colors.
var (
	Black  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White  = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red    = color.RGBA{R: 220, G: 38, B: 38, A: 255}
	Blue   = color.RGBA{R: 37, G: 99, B: 235, A: 255}
	Green  = color.RGBA{R: 22, G: 163, B: 74, A: 255}
	Yellow = color.RGBA{R: 255, G: 235, B: 59, A: 255}
)

// ParseHex parses a "#rrggbb" or "#rgb" color string into an opaque RGBA.
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")

	var r, g, b uint8
	switch len(s) {
	case 6:
		if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
	case 3:
		if _, err := fmt.Sscanf(s, "%1x%1x%1x", &r, &g, &b); err != nil {
			return color.RGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
		}
		r, g, b = r*17, g*17, b*17
	default:
		return color.RGBA{}, fmt.Errorf("invalid hex color %q", s)
	}

	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}

// ParseHexDefault parses a hex color, falling back to def on error or
// empty input.
func ParseHexDefault(s string, def color.RGBA) color.RGBA {
	if strings.TrimSpace(s) == "" {
		return def
	}
	c, err := ParseHex(s)
	if err != nil {
		return def
	}
	return c
}

// ToHex formats a color as "#rrggbb", discarding alpha.
func ToHex(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// WithOpacity returns the color with its alpha set from a 0..1 opacity
// factor. The result is non-premultiplied so translucent fills composite
// correctly.
func WithOpacity(c color.RGBA, opacity float64) color.NRGBA {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(opacity*255 + 0.5)}
}
