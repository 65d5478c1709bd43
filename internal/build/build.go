// Package build runs the token pipeline for one project: load the three
// layers, validate their references, resolve values and write CSS.
package build

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kingrea/sando/internal/config"
	"github.com/kingrea/sando/internal/emit"
	"github.com/kingrea/sando/internal/logging"
	"github.com/kingrea/sando/internal/resolve"
	"github.com/kingrea/sando/internal/token"
	"github.com/kingrea/sando/internal/validate"
)

// ErrValidationFailed is returned by Build in strict mode when the report
// holds errors. Nothing is written in that case.
var ErrValidationFailed = errors.New("build: validation failed")

// LayerSummary describes one loaded layer (or flavor).
type LayerSummary struct {
	Layer  token.Layer `json:"layer"`
	Flavor string      `json:"flavor,omitempty"`
	Files  int         `json:"files"`
	Tokens int         `json:"tokens"`
}

// Result is the outcome of a build.
type Result struct {
	Layers        []LayerSummary   `json:"layers"`
	FilesWritten  []string         `json:"filesWritten"`
	TokensEmitted int              `json:"tokensEmitted"`
	Report        *validate.Report `json:"report"`
	Duration      time.Duration    `json:"duration"`
	Manifest      *emit.Manifest   `json:"-"`
	Resolved      *Resolved        `json:"-"`
}

// Resolved holds every layer with references substituted.
type Resolved struct {
	Ingredients   *token.Group
	Flavors       map[string]*token.Group
	FlavorOrder   []string
	DefaultFlavor string
	Recipes       *token.Group
	Unresolved    []*resolve.UnresolvedError
	// Source is the set as loaded, before substitution.
	Source *token.Set
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithHistory records every run in the project's build history.
func WithHistory(history *logging.History) Option {
	return func(b *Builder) {
		b.history = history
	}
}

// WithClock overrides the time source used for durations.
func WithClock(clock func() time.Time) Option {
	return func(b *Builder) {
		if clock != nil {
			b.now = clock
		}
	}
}

// Builder runs the pipeline for a project configuration. Builds are
// serialized: the watcher and the preview server may share one Builder.
type Builder struct {
	mu      sync.Mutex
	cfg     *config.Config
	logger  *zap.Logger
	history *logging.History
	now     func() time.Time
}

// New returns a builder for cfg.
func New(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{
		cfg:    cfg,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Config returns the configuration the builder was created with.
func (b *Builder) Config() *config.Config {
	return b.cfg
}

// Build loads, validates, resolves and emits. A non-nil Result is returned
// alongside ErrValidationFailed so callers can print the report.
func (b *Builder) Build(ctx context.Context) (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	start := b.now()
	result, err := b.build(ctx)
	if result != nil {
		result.Duration = b.now().Sub(start)
	}
	b.record("build", result, err)
	return result, err
}

func (b *Builder) build(ctx context.Context) (*Result, error) {
	set, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	result := &Result{Layers: summarize(set)}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result.Report = validate.Validate(set)
	b.logger.Debug("validated tokens", zap.String("summary", result.Report.Summary()))
	if !result.Report.IsValid() && b.cfg.Strict() {
		return result, fmt.Errorf("%w: %s", ErrValidationFailed, result.Report.Summary())
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resolved, err := b.resolve(set, !b.cfg.Strict())
	if err != nil {
		return result, err
	}
	result.Resolved = resolved
	for _, unresolved := range resolved.Unresolved {
		b.logger.Warn("reference left unresolved",
			zap.Stringer("token", unresolved.Token),
			zap.Stringer("target", unresolved.Target))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sheets := b.sheets(resolved)
	result.Manifest = manifest(resolved)
	written, err := emit.NewWriter(b.cfg.OutputDir(), b.logger).Write(sheets, result.Manifest)
	if err != nil {
		return result, fmt.Errorf("build: %w", err)
	}
	result.FilesWritten = written
	for _, sheet := range sheets {
		result.TokensEmitted += len(sheet.Variables)
	}
	b.logger.Info("build finished",
		zap.Int("files", len(written)),
		zap.Int("tokens", result.TokensEmitted),
		zap.String("output", b.cfg.OutputDir()))
	return result, nil
}

// Validate loads the sources and returns the validation report without
// writing anything.
func (b *Builder) Validate(ctx context.Context) (*validate.Report, error) {
	set, err := b.load(ctx)
	if err != nil {
		b.record("validate", nil, err)
		return nil, err
	}
	report := validate.Validate(set)
	b.record("validate", &Result{Report: report}, nil)
	return report, nil
}

// Resolve loads the sources and resolves every layer, leaving broken
// references in place. It never writes output.
func (b *Builder) Resolve(ctx context.Context) (*Resolved, *validate.Report, error) {
	set, err := b.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	report := validate.Validate(set)
	resolved, err := b.resolve(set, true)
	if err != nil {
		return nil, report, err
	}
	return resolved, report, nil
}

func (b *Builder) load(ctx context.Context) (*token.Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	set, err := token.LoadSet(b.cfg.SourceDir())
	if err != nil {
		return nil, fmt.Errorf("build: load: %w", err)
	}
	b.logger.Debug("loaded token sources",
		zap.String("source", b.cfg.SourceDir()),
		zap.Strings("flavors", set.FlavorNames()))
	return set, nil
}

func (b *Builder) resolve(set *token.Set, keepUnresolved bool) (*Resolved, error) {
	opts := resolve.Options{
		OutputReferences: b.cfg.Project.OutputReferences,
		Prefix:           b.cfg.Prefix(),
		KeepUnresolved:   keepUnresolved,
		VarName:          emit.VariableName,
	}
	out := &Resolved{
		Flavors:       map[string]*token.Group{},
		FlavorOrder:   set.FlavorNames(),
		DefaultFlavor: b.defaultFlavor(set),
		Source:        set,
	}

	// Ingredients hold literals, so they are always inlined.
	ingredientOpts := opts
	ingredientOpts.OutputReferences = false
	ingredients, err := resolve.Tree(rootOf(set.Ingredients), token.NewGroup(), ingredientOpts)
	if err != nil {
		return nil, fmt.Errorf("build: ingredients: %w", err)
	}
	out.Ingredients = ingredients.Root
	out.Unresolved = append(out.Unresolved, ingredients.Unresolved...)

	for _, flavor := range set.Flavors {
		res, err := resolve.Tree(rootOf(flavor.Tree), out.Ingredients, opts)
		if err != nil {
			return nil, fmt.Errorf("build: flavor %s: %w", flavor.Name, err)
		}
		out.Flavors[flavor.Name] = res.Root
		out.Unresolved = append(out.Unresolved, res.Unresolved...)
	}

	lower := token.NewGroup()
	if flavor, ok := out.Flavors[out.DefaultFlavor]; ok {
		lower = flavor
	}
	recipes, err := resolve.Tree(rootOf(set.Recipes), lower, opts)
	if err != nil {
		return nil, fmt.Errorf("build: recipes: %w", err)
	}
	out.Recipes = recipes.Root
	out.Unresolved = append(out.Unresolved, recipes.Unresolved...)
	return out, nil
}

// defaultFlavor is the configured default when it exists, otherwise the
// first flavor in load order.
func (b *Builder) defaultFlavor(set *token.Set) string {
	if _, ok := set.Flavor(b.cfg.DefaultFlavor()); ok {
		return b.cfg.DefaultFlavor()
	}
	if names := set.FlavorNames(); len(names) > 0 {
		return names[0]
	}
	return ""
}

func (b *Builder) selector(flavor, defaultFlavor string) string {
	if flavor == defaultFlavor {
		return ":root"
	}
	return b.cfg.FlavorSelector(flavor)
}

func (b *Builder) sheets(resolved *Resolved) []emit.Sheet {
	prefix := b.cfg.Prefix()
	sheets := emit.Sheets(token.LayerIngredients, "", ":root", resolved.Ingredients, prefix)
	for _, name := range resolved.FlavorOrder {
		selector := b.selector(name, resolved.DefaultFlavor)
		sheets = append(sheets, emit.Sheets(token.LayerFlavors, name, selector, resolved.Flavors[name], prefix)...)
	}
	sheets = append(sheets, emit.Sheets(token.LayerRecipes, "", b.recipeSelector(resolved), resolved.Recipes, prefix)...)
	return sheets
}

// recipeSelector returns :root, plus every flavor scope when recipes point
// at flavor variables: a custom property is computed where it is declared,
// so recipes must be redeclared inside each flavor scope to pick it up.
func (b *Builder) recipeSelector(resolved *Resolved) string {
	if !b.cfg.Project.OutputReferences {
		return ":root"
	}
	selectors := []string{":root"}
	for _, name := range resolved.FlavorOrder {
		if name == resolved.DefaultFlavor {
			continue
		}
		selectors = append(selectors, b.selector(name, resolved.DefaultFlavor))
	}
	return strings.Join(selectors, ", ")
}

func (b *Builder) record(action string, result *Result, err error) {
	if b.history == nil {
		return
	}
	switch {
	case errors.Is(err, ErrValidationFailed):
		b.history.Warn("%s rejected: %s", action, result.Report.Summary())
	case err != nil:
		b.history.Error("%s failed: %v", action, err)
	case action == "build":
		b.history.Info("build ok: %d tokens, %d files, %s in %s",
			result.TokensEmitted, len(result.FilesWritten), result.Report.Summary(), result.Duration.Round(time.Millisecond))
	default:
		b.history.Info("%s ok: %s", action, result.Report.Summary())
	}
}

func manifest(resolved *Resolved) *emit.Manifest {
	m := &emit.Manifest{
		DefaultFlavor: resolved.DefaultFlavor,
		Ingredients:   emit.Values(resolved.Ingredients),
		Flavors:       make(map[string]map[string]string, len(resolved.Flavors)),
		Recipes:       emit.Values(resolved.Recipes),
	}
	for name, root := range resolved.Flavors {
		m.Flavors[name] = emit.Values(root)
	}
	return m
}

func summarize(set *token.Set) []LayerSummary {
	layers := []LayerSummary{summary(token.LayerIngredients, "", set.Ingredients)}
	for _, flavor := range set.Flavors {
		layers = append(layers, summary(token.LayerFlavors, flavor.Name, flavor.Tree))
	}
	return append(layers, summary(token.LayerRecipes, "", set.Recipes))
}

func summary(layer token.Layer, flavor string, tree *token.Tree) LayerSummary {
	s := LayerSummary{Layer: layer, Flavor: flavor}
	if tree != nil {
		s.Files = len(tree.Files)
		s.Tokens = rootOf(tree).Count()
	}
	return s
}

func rootOf(tree *token.Tree) *token.Group {
	if tree == nil || tree.Root == nil {
		return token.NewGroup()
	}
	return tree.Root
}
