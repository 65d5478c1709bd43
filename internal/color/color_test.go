package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHex(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#fff", "#ffffff"},
		{"#FF8800", "#ff8800"},
		{"#ff880080", "#ff8800"},
		{"#fff8", "#ffffff"},
		{"rgb(255, 0, 0)", "#ff0000"},
		{"rgba(0, 128, 255, 0.5)", "#0080ff"},
		{"rgb(0 128 255 / 50%)", "#0080ff"},
		{"rgb(100%, 0%, 0%)", "#ff0000"},
		{"hsl(0, 100%, 50%)", "#ff0000"},
		{"hsl(0deg 0% 100%)", "#ffffff"},
		{"hsla(0, 0%, 0%, 0.4)", "#000000"},
		{"white", "#ffffff"},
		{"navy", "#000080"},
		{"RebeccaPurple", "#663399"},
	}
	for _, test := range tests {
		t.Run(test.in, func(t *testing.T) {
			got, ok := Hex(test.in)
			require.True(t, ok)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "#12", "rgb(1, 2)", "var(--sando-color)", "16px", "notacolour"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
		assert.False(t, Valid(in), in)
	}
}

func TestKeywordsAreValid(t *testing.T) {
	assert.True(t, Valid("transparent"))
	assert.True(t, Valid("currentColor"))
	_, ok := Hex("transparent")
	assert.False(t, ok, "keywords have no swatch")
}

func TestModernNotationsAreValid(t *testing.T) {
	for _, in := range []string{"oklch(70% 0.1 200)", "hwb(120 0% 0%)", "lab(50% 40 59.5)"} {
		assert.True(t, Valid(in), in)
	}
}

func TestContrasting(t *testing.T) {
	white, err := Parse("#ffffff")
	require.NoError(t, err)
	black, err := Parse("#000000")
	require.NoError(t, err)
	assert.Equal(t, "#000000", Contrasting(white))
	assert.Equal(t, "#ffffff", Contrasting(black))
}

func TestParseSandoOrange(t *testing.T) {
	c, err := Parse("hsl(24, 95%, 53%)")
	require.NoError(t, err)
	assert.Greater(t, c.R, c.G)
	assert.Greater(t, c.G, c.B)
}
