// Package color parses the CSS colour notations used in token values.
package color

import (
	"fmt"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/mazznoer/csscolorparser"
)

// Keywords that are valid CSS colours but have no fixed RGB value.
var keywords = map[string]struct{}{
	"transparent":  {},
	"currentcolor": {},
	"inherit":      {},
	"initial":      {},
	"unset":        {},
}

// IsKeyword reports colour keywords such as transparent or currentColor.
func IsKeyword(value string) bool {
	_, ok := keywords[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// Valid reports whether value is a CSS colour, keywords included.
func Valid(value string) bool {
	if IsKeyword(value) {
		return true
	}
	_, err := Parse(value)
	return err == nil
}

// Parse converts any CSS colour csscolorparser understands (hex, named
// colours, rgb(), hsl(), hwb(), lab(), lch(), oklab(), oklch()) into a
// colorful.Color. Alpha is discarded and keywords are rejected.
func Parse(value string) (colorful.Color, error) {
	v := strings.TrimSpace(value)
	if IsKeyword(v) {
		return colorful.Color{}, fmt.Errorf("color: %q has no fixed value", value)
	}
	c, err := csscolorparser.Parse(v)
	if err != nil {
		return colorful.Color{}, fmt.Errorf("color: %w", err)
	}
	return colorful.Color{R: c.R, G: c.G, B: c.B}, nil
}

// Hex returns the #rrggbb form of value, or false if it is not parseable.
func Hex(value string) (string, bool) {
	c, err := Parse(value)
	if err != nil {
		return "", false
	}
	return c.Clamped().Hex(), true
}

// Contrasting picks black or white, whichever reads better on top of c.
func Contrasting(c colorful.Color) string {
	l, _, _ := c.Clamped().Lab()
	if l > 0.6 {
		return "#000000"
	}
	return "#ffffff"
}
