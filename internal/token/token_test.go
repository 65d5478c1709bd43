package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		in   string
		want Path
	}{
		{"color.orange.500", Path{"color", "orange", "500"}},
		{"{color.orange.500.value}", Path{"color", "orange", "500", "value"}},
		{" a . b ", Path{"a", "b"}},
		{"", nil},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, ParsePath(test.in), test.in)
	}
}

func TestPathTrimValueAndPrefix(t *testing.T) {
	p := ParsePath("a.b.value")
	assert.Equal(t, Path{"a", "b"}, p.TrimValue())
	assert.Equal(t, Path{"a", "b"}, Path{"a", "b"}.TrimValue())

	own := Path{"a", "b"}
	assert.True(t, own.HasPrefix(Path{"a", "b"}))
	assert.True(t, own.HasPrefix(Path{"a"}))
	assert.False(t, own.HasPrefix(Path{"a", "b", "c"}))
	assert.False(t, own.HasPrefix(Path{"b"}))
	assert.True(t, own.Equal(Path{"a", "b"}))
	assert.False(t, own.Equal(Path{"a"}))
}

func TestTypeValid(t *testing.T) {
	for _, typ := range []Type{TypeColor, TypeDimension, TypeFontFamily, TypeFontWeight, TypeDuration, TypeCubicBezier, TypeNumber, TypeShadow} {
		assert.True(t, typ.Valid(), string(typ))
	}
	assert.False(t, Type("colour").Valid())
	assert.False(t, Type("").Valid())
}

func TestTokenText(t *testing.T) {
	root, err := Parse("inline", []byte(`{
		"weight": {"value": 600, "type": "fontWeight"},
		"ratio": {"value": 1.25, "type": "number"},
		"shadow": {"value": {"x": "0px"}, "type": "shadow"},
		"empty": {"value": "  "}
	}`))
	require.NoError(t, err)

	weight, ok := root.Resolve(Path{"weight"})
	require.True(t, ok)
	text, ok := weight.Text()
	require.True(t, ok)
	assert.Equal(t, "600", text)

	ratio, _ := root.Resolve(Path{"ratio"})
	text, _ = ratio.Text()
	assert.Equal(t, "1.25", text)

	shadow, _ := root.Resolve(Path{"shadow"})
	_, ok = shadow.Text()
	assert.False(t, ok)

	empty, _ := root.Resolve(Path{"empty"})
	assert.True(t, empty.IsEmpty())
	assert.False(t, weight.IsEmpty())
}
