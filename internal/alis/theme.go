package alis

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"
)

// Theme format discriminator bytes.
const (
	themeFormatNone      byte = 0x00
	themeFormatPalette8  byte = 0x08
	themeFormatPalette16 byte = 0x10
)

// Theme carries the foreground/background colors and palette used by
// Init's theme field. Colors are "#RRGGBB" strings.
type Theme struct {
	Fg      string
	Bg      string
	Palette []string
}

// RGB is three raw color bytes.
type RGB [3]byte

// ParseHexColor validates and converts a "#RRGGBB" string to RGB using
// github.com/lucasb-eyer/go-colorful instead of a hand-rolled hex parser.
// termenv (used for the CLI's colorized banner) has no plain hex-to-RGB
// conversion of its own; go-colorful already ships as its color-math
// dependency, so this package imports it directly rather than duplicating
// hex parsing by hand.
func ParseHexColor(hex string) (RGB, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return RGB{}, fmt.Errorf("alis: invalid color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return RGB{r, g, b}, nil
}

// EncodeTheme encodes theme as: none (1 byte), 8-palette
// (1 + 2*3 + 8*3 = 31 bytes), or 16-palette (1 + 2*3 + 16*3 = 55 bytes).
// A palette longer than 8 upgrades to the 16-entry format, truncated to
// 16; a nil theme or empty palette encodes as "no theme data".
func EncodeTheme(theme *Theme) ([]byte, error) {
	if theme == nil || len(theme.Palette) == 0 {
		return []byte{themeFormatNone}, nil
	}

	fg, err := ParseHexColor(theme.Fg)
	if err != nil {
		return nil, err
	}
	bg, err := ParseHexColor(theme.Bg)
	if err != nil {
		return nil, err
	}

	size := 8
	format := themeFormatPalette8
	if len(theme.Palette) > 8 {
		size = 16
		format = themeFormatPalette16
	}

	out := make([]byte, 0, 1+6+size*3)
	out = append(out, format)
	out = append(out, fg[:]...)
	out = append(out, bg[:]...)

	for i := 0; i < size; i++ {
		if i < len(theme.Palette) {
			rgb, err := ParseHexColor(theme.Palette[i])
			if err != nil {
				return nil, err
			}
			out = append(out, rgb[:]...)
		} else {
			out = append(out, 0, 0, 0)
		}
	}

	return out, nil
}
