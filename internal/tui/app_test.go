package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/sando/internal/build"
	"github.com/kingrea/sando/internal/resolve"
	"github.com/kingrea/sando/internal/token"
)

func mustParse(t *testing.T, src string) *token.Group {
	t.Helper()
	g, err := token.Parse("test.json", []byte(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return g
}

func newTestResolved(t *testing.T) *build.Resolved {
	t.Helper()
	flavorSource := mustParse(t, `{"color": {"primary": {"value": "{color.orange.500}"}}}`)
	return &build.Resolved{
		Ingredients: mustParse(t, `{"color": {"$type": "color", "orange": {"500": {"value": "#ff7a00"}}}, "space": {"1": {"value": "4px"}}}`),
		Flavors: map[string]*token.Group{
			"original": mustParse(t, `{"color": {"primary": {"value": "#ff7a00"}}}`),
			"dark":     mustParse(t, `{"color": {"primary": {"value": "#000000"}}}`),
		},
		FlavorOrder:   []string{"dark", "original"},
		DefaultFlavor: "original",
		Recipes:       mustParse(t, `{"button": {"background": {"value": "{color.missing}"}}}`),
		Unresolved: []*resolve.UnresolvedError{
			{Token: token.ParsePath("button.background"), Target: token.ParsePath("color.missing")},
		},
		Source: &token.Set{
			Flavors: []token.Flavor{{Name: "original", Tree: &token.Tree{Root: flavorSource}}},
		},
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTabsFollowLayerOrder(t *testing.T) {
	app := NewApp(newTestResolved(t))
	want := []string{"ingredients", "flavors/dark", "flavors/original", "recipes"}
	got := app.TabNames()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("tabs = %v, want %v", got, want)
	}
	if app.Active() != "ingredients" {
		t.Fatalf("expected ingredients first, got %s", app.Active())
	}
	if n := len(app.list.Items()); n != 2 {
		t.Fatalf("expected 2 ingredient items, got %d", n)
	}
}

func TestTabCyclesLayers(t *testing.T) {
	app := NewApp(newTestResolved(t))
	app.Update(key("tab"))
	if app.Active() != "flavors/dark" {
		t.Fatalf("tab should move to flavors/dark, got %s", app.Active())
	}
	app.Update(key("shift+tab"))
	app.Update(key("shift+tab"))
	if app.Active() != "recipes" {
		t.Fatalf("shift+tab should wrap to recipes, got %s", app.Active())
	}
}

func TestSelectLayer(t *testing.T) {
	app := NewApp(newTestResolved(t))
	cases := map[string]string{
		"recipes":          "recipes",
		"original":         "flavors/original",
		"flavors":          "flavors/dark",
		"flavors/original": "flavors/original",
		"INGREDIENTS":      "ingredients",
	}
	for input, want := range cases {
		if err := app.SelectLayer(input); err != nil {
			t.Fatalf("SelectLayer(%q): %v", input, err)
		}
		if app.Active() != want {
			t.Fatalf("SelectLayer(%q) activated %s, want %s", input, app.Active(), want)
		}
	}
	if err := app.SelectLayer("sauces"); err == nil {
		t.Fatalf("expected error for unknown layer")
	}
}

func TestItemsCarryRawValueAndSwatch(t *testing.T) {
	app := NewApp(newTestResolved(t))
	if err := app.SelectLayer("original"); err != nil {
		t.Fatal(err)
	}
	items := app.list.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	item := items[0].(tokenItem)
	if item.raw != "{color.orange.500}" || item.value != "#ff7a00" {
		t.Fatalf("unexpected item %+v", item)
	}
	if item.hex != "#ff7a00" || item.contrast != "#000000" {
		t.Fatalf("unexpected swatch colours %q/%q", item.hex, item.contrast)
	}
	if !strings.Contains(item.Description(), "← {color.orange.500}") {
		t.Fatalf("description should show the reference: %s", item.Description())
	}
	if !strings.Contains(item.Title(), "color.primary") {
		t.Fatalf("title missing path: %s", item.Title())
	}
}

func TestUnresolvedItemsAreFlagged(t *testing.T) {
	app := NewApp(newTestResolved(t))
	if err := app.SelectLayer("recipes"); err != nil {
		t.Fatal(err)
	}
	item := app.list.Items()[0].(tokenItem)
	if !item.broken {
		t.Fatalf("button.background should be flagged unresolved")
	}
	if item.hex != "" {
		t.Fatalf("a reference must not get a swatch")
	}
}

func TestQuitKeys(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		app := NewApp(newTestResolved(t))
		_, cmd := app.Update(key(k))
		if cmd == nil {
			t.Fatalf("%s: expected quit command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("%s: expected tea.QuitMsg", k)
		}
	}
}

func TestFilteringSwallowsShortcuts(t *testing.T) {
	app := NewApp(newTestResolved(t))
	app.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	app.Update(key("/"))
	if app.list.FilterState() != list.Filtering {
		t.Fatalf("expected filtering state, got %v", app.list.FilterState())
	}
	_, cmd := app.Update(key("q"))
	if cmd != nil {
		if _, quit := cmd().(tea.QuitMsg); quit {
			t.Fatalf("q must type into the filter while filtering")
		}
	}
	if app.Active() != "ingredients" {
		t.Fatalf("layer changed while filtering")
	}
}

func TestViewRendersTabsAndEmptyState(t *testing.T) {
	app := NewApp(newTestResolved(t))
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	view := app.View()
	for _, want := range []string{"SANDO", "ingredients (2)", "flavors/original * (1)", "q: quit"} {
		if !strings.Contains(view, want) {
			t.Fatalf("view missing %q:\n%s", want, view)
		}
	}

	empty := NewApp(&build.Resolved{Ingredients: token.NewGroup(), Recipes: token.NewGroup()})
	if !strings.Contains(empty.View(), "No tokens in this layer.") {
		t.Fatalf("empty layer hint missing:\n%s", empty.View())
	}
}
