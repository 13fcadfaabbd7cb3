// Package colorutil provides shared colors and hex color parsing.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Common overlay colors used throughout the application.
var (
	Black       = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	White       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	Red         = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	Cyan        = color.RGBA{R: 0, G: 255, B: 255, A: 255}
	Magenta     = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	Green       = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Transparent = color.RGBA{}

	// Mesh is the keypoint and contour color of the face mesh overlay.
	Mesh = color.RGBA{R: 0x32, G: 0xee, B: 0xdb, A: 255}
)

// ParseHex parses "#rgb", "#rrggbb" or "#rrggbbaa". The leading '#' is
// optional. An empty string yields transparent.
func ParseHex(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if s == "" {
		return Transparent, nil
	}
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) == 6 {
		s += "ff"
	}
	if len(s) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// Hex formats c as "#rrggbb", or "#rrggbbaa" when not opaque.
func Hex(c color.Color) string {
	n := color.RGBAModel.Convert(c).(color.RGBA)
	if n.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", n.R, n.G, n.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", n.R, n.G, n.B, n.A)
}
