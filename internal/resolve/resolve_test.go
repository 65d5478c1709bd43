package resolve

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/sando/internal/token"
)

func parse(t *testing.T, doc string) *token.Group {
	t.Helper()
	g, err := token.Parse(t.Name(), []byte(doc))
	require.NoError(t, err)
	return g
}

func values(t *testing.T, g *token.Group) map[string]any {
	t.Helper()
	out := map[string]any{}
	require.NoError(t, g.Walk(func(path token.Path, tok *token.Token) error {
		out[path.String()] = tok.Value
		return nil
	}))
	return out
}

func TestTreeSubstitutesAcrossLayers(t *testing.T) {
	ingredients := parse(t, `{"color": {"orange": {"500": {"value": "hsl(24, 95%, 53%)", "type": "color"}}}, "size": {"sm": {"value": "0.875rem"}, "lg": {"value": "1.25rem"}}}`)
	flavor := parse(t, `{
		"action": {"primary": {"default": {"value": "{color.orange.500.value}", "type": "color"}}},
		"text": {"fluid": {"value": "clamp({size.sm}, 2vw, {size.lg.value})", "type": "dimension"}}
	}`)

	res, err := Tree(flavor, ingredients, Options{})
	require.NoError(t, err)
	assert.Empty(t, res.Unresolved)

	want := map[string]any{
		"action.primary.default": "hsl(24, 95%, 53%)",
		"text.fluid":             "clamp(0.875rem, 2vw, 1.25rem)",
	}
	if diff := cmp.Diff(want, values(t, res.Root)); diff != "" {
		t.Fatalf("resolved values mismatch (-want +got):\n%s", diff)
	}

	original, _ := flavor.Resolve(token.ParsePath("action.primary.default"))
	assert.Equal(t, "{color.orange.500.value}", original.Value, "input tree must not be modified")
}

func TestTreeFollowsAliasChainsInsideLayer(t *testing.T) {
	ingredients := parse(t, `{"weight": {"bold": {"value": 700, "type": "fontWeight"}}}`)
	recipes := parse(t, `{
		"button": {"label": {"weight": {"value": "{heading.weight}"}}},
		"heading": {"weight": {"value": "{weight.bold}"}}
	}`)
	res, err := Tree(recipes, ingredients, Options{})
	require.NoError(t, err)
	got := values(t, res.Root)
	assert.Equal(t, json.Number("700"), got["button.label.weight"])
	assert.Equal(t, got["button.label.weight"], got["heading.weight"])
}

func TestTreeReportsSelfReferenceAsCycle(t *testing.T) {
	root := parse(t, `{"a": {"b": {"value": "{a.b.value}"}}}`)
	_, err := Tree(root, nil, Options{})
	var cycle *CycleError
	require.True(t, errors.As(err, &cycle), "want CycleError, got %v", err)
	assert.Equal(t, []token.Path{{"a", "b"}, {"a", "b"}}, cycle.Chain)
}

func TestTreeReportsLongerCycles(t *testing.T) {
	root := parse(t, `{
		"a": {"value": "{b}"},
		"b": {"value": "{c}"},
		"c": {"value": "1px solid {a}"}
	}`)
	_, err := Tree(root, nil, Options{})
	var cycle *CycleError
	require.True(t, errors.As(err, &cycle), "want CycleError, got %v", err)
	assert.Equal(t, "resolve: reference cycle a -> b -> c -> a", cycle.Error())
}

func TestTreeUnresolved(t *testing.T) {
	root := parse(t, `{"a": {"value": "{missing.token}"}, "b": {"value": "{a}"}}`)

	_, err := Tree(root, nil, Options{})
	var unresolved *UnresolvedError
	require.True(t, errors.As(err, &unresolved), "want UnresolvedError, got %v", err)
	assert.Equal(t, token.Path{"missing", "token"}, unresolved.Target)

	res, err := Tree(root, nil, Options{KeepUnresolved: true})
	require.NoError(t, err)
	require.Len(t, res.Unresolved, 1)
	assert.Equal(t, map[string]any{"a": "{missing.token}", "b": "{missing.token}"}, values(t, res.Root))
}

func TestTreeOutputReferences(t *testing.T) {
	flavors := parse(t, `{"action": {"primary": {"default": {"value": "#f97316", "type": "color"}}}}`)
	recipes := parse(t, `{"button": {"bg": {"value": "{action.primary.default.value}"}, "ring": {"value": "0 0 0 2px {action.primary.default}"}}}`)

	res, err := Tree(recipes, flavors, Options{OutputReferences: true, Prefix: "sando"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"button.bg":   "var(--sando-action-primary-default)",
		"button.ring": "0 0 0 2px var(--sando-action-primary-default)",
	}, values(t, res.Root))

	_, err = Tree(parse(t, `{"x": {"value": "{nope}"}}`), flavors, Options{OutputReferences: true})
	assert.Error(t, err, "targets must exist even when emitting var()")
}

func TestTreeRejectsInliningCompositeValues(t *testing.T) {
	lower := parse(t, `{"shadow": {"value": {"x": "1px"}, "type": "shadow"}}`)
	root := parse(t, `{"card": {"value": "inset {shadow}"}}`)
	_, err := Tree(root, lower, Options{})
	assert.Error(t, err)
}
