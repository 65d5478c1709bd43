// internal/tui/app.go
//
// The token browser behind `sando browse`. It uses bubbletea, which follows
// The Elm Architecture: key presses arrive as messages, Update switches the
// active layer or forwards the message to the list, View renders it.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/sando/internal/build"
	"github.com/kingrea/sando/internal/color"
	"github.com/kingrea/sando/internal/token"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B"))
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#5B8DEF")).
			Padding(0, 1)
	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#AAAAAA")).
			Padding(0, 1)
	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
	unresolvedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

// tokenItem implements list.Item for one resolved token.
type tokenItem struct {
	path     string
	value    string
	raw      string
	typ      token.Type
	hex      string
	contrast string
	broken   bool
}

func (i tokenItem) Title() string {
	if i.hex == "" {
		return i.path
	}
	return swatch(i.hex, i.contrast) + " " + i.path
}

func (i tokenItem) Description() string {
	desc := i.value
	if i.raw != "" && i.raw != i.value {
		desc = fmt.Sprintf("%s ← %s", i.value, i.raw)
	}
	if i.broken {
		desc = unresolvedStyle.Render(desc + "  (unresolved)")
	}
	if i.typ != "" {
		desc = fmt.Sprintf("[%s] %s", i.typ, desc)
	}
	return desc
}

func (i tokenItem) FilterValue() string { return i.path + " " + i.value }

func swatch(hex, contrast string) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(hex)).
		Foreground(lipgloss.Color(contrast)).
		Render(" ■ ")
}

// layerTab is one browsable tree: ingredients, a single flavor or recipes.
type layerTab struct {
	name  string
	items []list.Item
}

// App is the browser model.
type App struct {
	tabs   []layerTab
	active int
	list   list.Model
	title  string

	width  int
	height int
}

// AppOption customizes App construction.
type AppOption func(*App)

// WithTitle replaces the header text.
func WithTitle(title string) AppOption {
	return func(a *App) {
		if strings.TrimSpace(title) != "" {
			a.title = title
		}
	}
}

// NewApp builds one tab per layer of resolved: ingredients, every flavor
// in load order, then recipes.
func NewApp(resolved *build.Resolved, opts ...AppOption) *App {
	app := &App{title: "◆ SANDO"}
	if resolved != nil {
		app.tabs = buildTabs(resolved)
	}
	delegate := list.NewDefaultDelegate()
	app.list = list.New(nil, delegate, 0, 0)
	app.list.SetShowTitle(false)
	app.list.SetShowStatusBar(true)
	app.list.SetFilteringEnabled(true)
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.selectTab(0)
	return app
}

func buildTabs(resolved *build.Resolved) []layerTab {
	unresolved := map[string]bool{}
	for _, u := range resolved.Unresolved {
		unresolved[u.Token.String()] = true
	}
	source := resolved.Source

	tabs := []layerTab{{
		name:  string(token.LayerIngredients),
		items: items(resolved.Ingredients, sourceRoot(source, token.LayerIngredients, ""), unresolved),
	}}
	for _, name := range resolved.FlavorOrder {
		label := "flavors/" + name
		if name == resolved.DefaultFlavor {
			label += " *"
		}
		tabs = append(tabs, layerTab{
			name:  label,
			items: items(resolved.Flavors[name], sourceRoot(source, token.LayerFlavors, name), unresolved),
		})
	}
	return append(tabs, layerTab{
		name:  string(token.LayerRecipes),
		items: items(resolved.Recipes, sourceRoot(source, token.LayerRecipes, ""), unresolved),
	})
}

func sourceRoot(set *token.Set, layer token.Layer, flavor string) *token.Group {
	if set == nil {
		return nil
	}
	var tree *token.Tree
	switch layer {
	case token.LayerIngredients:
		tree = set.Ingredients
	case token.LayerRecipes:
		tree = set.Recipes
	case token.LayerFlavors:
		if f, ok := set.Flavor(flavor); ok {
			tree = f.Tree
		}
	}
	if tree == nil {
		return nil
	}
	return tree.Root
}

// items lists every token of root. Unresolved paths are shared across
// layers, so a flag only counts when the raw value still holds that
// reference.
func items(root, source *token.Group, unresolved map[string]bool) []list.Item {
	if root == nil {
		return nil
	}
	var out []list.Item
	_ = root.Walk(func(p token.Path, tok *token.Token) error {
		value, _ := tok.Text()
		item := tokenItem{path: p.String(), value: value, typ: tok.Type}
		if raw, ok := source.Resolve(p); ok {
			item.raw, _ = raw.Text()
		}
		item.broken = unresolved[item.path] && token.HasReference(value)
		if c, err := color.Parse(value); err == nil {
			item.hex = c.Clamped().Hex()
			item.contrast = color.Contrasting(c)
		}
		out = append(out, item)
		return nil
	})
	return out
}

// SelectLayer activates the tab whose name matches layer. "flavors" picks
// the first flavor; a bare flavor name works as well.
func (a *App) SelectLayer(layer string) error {
	want := strings.TrimSpace(strings.ToLower(layer))
	if want == "" {
		return nil
	}
	for i, tab := range a.tabs {
		name := strings.TrimSuffix(tab.name, " *")
		if name == want || strings.TrimPrefix(name, "flavors/") == want ||
			(want == string(token.LayerFlavors) && strings.HasPrefix(name, "flavors/")) {
			a.selectTab(i)
			return nil
		}
	}
	return fmt.Errorf("tui: unknown layer %q (have %s)", layer, strings.Join(a.TabNames(), ", "))
}

// TabNames lists the tabs in display order.
func (a *App) TabNames() []string {
	names := make([]string, len(a.tabs))
	for i, tab := range a.tabs {
		names[i] = strings.TrimSuffix(tab.name, " *")
	}
	return names
}

// Active returns the name of the visible tab.
func (a *App) Active() string {
	if len(a.tabs) == 0 {
		return ""
	}
	return strings.TrimSuffix(a.tabs[a.active].name, " *")
}

func (a *App) selectTab(i int) {
	if len(a.tabs) == 0 {
		return
	}
	a.active = (i%len(a.tabs) + len(a.tabs)) % len(a.tabs)
	a.list.ResetFilter()
	a.list.SetItems(a.tabs[a.active].items)
	a.list.ResetSelected()
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return nil
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.list.SetSize(max(0, msg.Width-2), max(0, msg.Height-6))
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		// While typing a filter every key belongs to the list.
		if a.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "q":
				return a, tea.Quit
			case "tab", "right":
				a.selectTab(a.active + 1)
				return a, nil
			case "shift+tab", "left":
				a.selectTab(a.active - 1)
				return a, nil
			}
		}
	}

	var cmd tea.Cmd
	a.list, cmd = a.list.Update(msg)
	return a, cmd
}

// View renders the header, the layer tabs, the token list and key hints.
func (a *App) View() string {
	tabs := make([]string, len(a.tabs))
	for i, tab := range a.tabs {
		label := fmt.Sprintf("%s (%d)", tab.name, len(tab.items))
		if i == a.active {
			tabs[i] = activeTabStyle.Render(label)
		} else {
			tabs[i] = tabStyle.Render(label)
		}
	}
	body := a.list.View()
	if len(a.tabs) == 0 || len(a.tabs[a.active].items) == 0 {
		body = hintStyle.Render("No tokens in this layer.")
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(a.title),
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		"",
		body,
		hintStyle.Render("tab/shift+tab: switch layer · /: filter · q: quit"),
	)
}
