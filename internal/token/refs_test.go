package token

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindReferencesExtractsEveryOccurrence(t *testing.T) {
	root, err := Parse("inline", []byte(`{
		"font": {
			"size": {
				"fluid": {"value": "clamp({font.size.sm.value}, 2vw, {font.size.lg})", "type": "dimension"},
				"plain": {"value": "16px", "type": "dimension"}
			}
		},
		"weight": {"value": 400, "type": "fontWeight"}
	}`))
	require.NoError(t, err)

	refs := FindReferences(root)
	require.Len(t, refs, 2)
	assert.Equal(t, Path{"font", "size", "fluid"}, refs[0].Token)
	assert.Equal(t, Path{"font", "size", "sm", "value"}, refs[0].Target)
	assert.Equal(t, "{font.size.sm.value}", refs[0].Raw)
	assert.Equal(t, Path{"font", "size", "lg"}, refs[1].Target)
}

func TestExtractReferences(t *testing.T) {
	assert.Equal(t, []string{"a.b", "c.d.value"}, ExtractReferences("{a.b} {c.d.value}"))
	assert.Nil(t, ExtractReferences("plain"))
	assert.True(t, HasReference("x {y} z"))
	assert.False(t, HasReference("{}"))
}

func TestReplaceReferences(t *testing.T) {
	out, err := ReplaceReferences("calc({a} * {b.value})", func(target string) (string, error) {
		return "<" + ParsePath(target).TrimValue().String() + ">", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "calc(<a> * <b>)", out)

	boom := errors.New("boom")
	_, err = ReplaceReferences("{a}", func(string) (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
}

func TestGroupResolve(t *testing.T) {
	root, err := Parse("inline", []byte(`{"color": {"orange": {"500": {"value": "hsl(24, 95%, 53%)", "type": "color"}}}}`))
	require.NoError(t, err)

	_, ok := root.Resolve(ParsePath("color.orange.500.value"))
	assert.True(t, ok)
	_, ok = root.Resolve(ParsePath("color.orange.500"))
	assert.True(t, ok)
	_, ok = root.Resolve(ParsePath("color.orange"))
	assert.False(t, ok, "groups are not values")
	_, ok = root.Resolve(ParsePath("color.orange.600"))
	assert.False(t, ok)
	_, ok = root.Resolve(ParsePath("color.orange.500.value.extra"))
	assert.False(t, ok)
}
