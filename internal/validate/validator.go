package validate

import (
	"fmt"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/kingrea/sando/internal/color"
	"github.com/kingrea/sando/internal/token"
)

// Validate checks every layer of set and returns the combined report.
// Recipes are checked against each flavor in turn.
func Validate(set *token.Set) *Report {
	report := newReport()
	if set == nil {
		return report
	}
	ingredients := rootOf(set.Ingredients)
	recipes := rootOf(set.Recipes)

	CheckIngredients(report, ingredients)
	for _, flavor := range set.Flavors {
		CheckFlavor(report, flavor.Name, flavor.Root, ingredients)
	}
	CheckRecipes(report, recipes, set.Flavors, ingredients)
	report.Sort()
	return report
}

func rootOf(tree *token.Tree) *token.Group {
	if tree == nil || tree.Root == nil {
		return token.NewGroup()
	}
	return tree.Root
}

// CheckIngredients verifies the primitive layer: every value is present and
// none contains reference syntax. A reference back to the token itself is
// also reported as circular.
func CheckIngredients(report *Report, root *token.Group) {
	refs := referencesByToken(root)
	_ = root.Walk(func(path token.Path, tok *token.Token) error {
		report.Checked[token.LayerIngredients]++
		base := Issue{Layer: token.LayerIngredients, Token: path}
		if !checkToken(report, base, tok) {
			return nil
		}
		for _, ref := range refs[path.String()] {
			report.References[token.LayerIngredients]++
			issue := base
			issue.Reference = ref.Target.String()
			issue.Kind = KindIngredientReference
			issue.Message = fmt.Sprintf("ingredients must hold primitive values, found reference %s", ref.Raw)
			report.add(issue)
			if IsCircular(path, ref.Target) {
				issue.Kind = KindCircularReference
				issue.Message = fmt.Sprintf("%s points at itself or an ancestor", ref.Raw)
				report.add(issue)
			}
		}
		return nil
	})
}

// CheckFlavor verifies that every reference in a flavor resolves in the
// ingredients tree.
func CheckFlavor(report *Report, name string, root, ingredients *token.Group) {
	candidates := newSuggester(ingredients)
	refs := referencesByToken(root)
	_ = root.Walk(func(path token.Path, tok *token.Token) error {
		report.Checked[token.LayerFlavors]++
		base := Issue{Layer: token.LayerFlavors, Flavor: name, Token: path}
		if !checkToken(report, base, tok) {
			return nil
		}
		for _, ref := range refs[path.String()] {
			report.References[token.LayerFlavors]++
			issue := base
			issue.Reference = ref.Target.String()
			if IsCircular(path, ref.Target) {
				issue.Kind = KindCircularReference
				issue.Message = fmt.Sprintf("%s points at itself or an ancestor", ref.Raw)
				report.add(issue)
				continue
			}
			if _, ok := ingredients.Resolve(ref.Target); ok {
				continue
			}
			if _, ok := root.Resolve(ref.Target); ok {
				issue.Kind = KindSameLayerReference
				issue.Message = fmt.Sprintf("%s resolves inside the flavor itself; flavors may only reference ingredients", ref.Raw)
				report.add(issue)
				continue
			}
			issue.Kind = KindBrokenReference
			issue.Message = fmt.Sprintf("%s does not resolve in ingredients", ref.Raw)
			issue.Suggestion = candidates.suggest(ref.Target)
			report.add(issue)
		}
		return nil
	})
}

// CheckRecipes verifies that every recipe reference resolves in each
// flavor. A reference that misses the flavors but hits the ingredients is
// reported as a layer skip.
func CheckRecipes(report *Report, root *token.Group, flavors []token.Flavor, ingredients *token.Group) {
	suggesters := make(map[string]*suggester, len(flavors))
	for _, flavor := range flavors {
		suggesters[flavor.Name] = newSuggester(flavor.Root)
	}
	refs := referencesByToken(root)
	_ = root.Walk(func(path token.Path, tok *token.Token) error {
		report.Checked[token.LayerRecipes]++
		base := Issue{Layer: token.LayerRecipes, Token: path}
		if !checkToken(report, base, tok) {
			return nil
		}
		for _, ref := range refs[path.String()] {
			report.References[token.LayerRecipes]++
			issue := base
			issue.Reference = ref.Target.String()
			if IsCircular(path, ref.Target) {
				issue.Kind = KindCircularReference
				issue.Message = fmt.Sprintf("%s points at itself or an ancestor", ref.Raw)
				report.add(issue)
				continue
			}
			if len(flavors) == 0 {
				if _, ok := ingredients.Resolve(ref.Target); ok {
					issue.Kind = KindLayerSkip
					issue.Message = fmt.Sprintf("%s resolves in ingredients; recipes must reference flavors", ref.Raw)
				} else {
					issue.Kind = KindBrokenReference
					issue.Message = fmt.Sprintf("%s does not resolve: no flavors are defined", ref.Raw)
				}
				report.add(issue)
				continue
			}
			for _, flavor := range flavors {
				if _, ok := flavor.Root.Resolve(ref.Target); ok {
					continue
				}
				missing := issue
				missing.Flavor = flavor.Name
				if _, ok := ingredients.Resolve(ref.Target); ok {
					missing.Kind = KindLayerSkip
					missing.Message = fmt.Sprintf("%s resolves in ingredients, not in flavor %q; recipes must reference flavors", ref.Raw, flavor.Name)
				} else {
					missing.Kind = KindBrokenReference
					missing.Message = fmt.Sprintf("%s does not resolve in flavor %q", ref.Raw, flavor.Name)
					missing.Suggestion = suggesters[flavor.Name].suggest(ref.Target)
				}
				report.add(missing)
			}
		}
		return nil
	})
}

// IsCircular reports whether target, with any trailing ".value" removed,
// equals own or is one of its ancestors. This is a structural check: it
// only catches self and ancestor references, not longer cycles.
func IsCircular(own, target token.Path) bool {
	trimmed := target.TrimValue()
	if len(trimmed) == 0 {
		return false
	}
	return own.HasPrefix(trimmed)
}

// referencesByToken groups the references found in root by the dotted path
// of the token that holds them.
func referencesByToken(root *token.Group) map[string][]token.Reference {
	out := map[string][]token.Reference{}
	for _, ref := range token.FindReferences(root) {
		key := ref.Token.String()
		out[key] = append(out[key], ref)
	}
	return out
}

// checkToken runs the per-token structural checks shared by all layers. It
// returns false when the value is unusable and reference checks should be
// skipped.
func checkToken(report *Report, base Issue, tok *token.Token) bool {
	if tok.Type != "" && !tok.Type.Valid() {
		issue := base
		issue.Kind = KindInvalidType
		issue.Message = fmt.Sprintf("unknown type %q", tok.Type)
		report.add(issue)
	}
	if tok.IsEmpty() {
		issue := base
		issue.Kind = KindEmptyValue
		issue.Message = "value is empty"
		report.add(issue)
		return false
	}
	if _, ok := tok.Text(); !ok {
		issue := base
		issue.Kind = KindInvalidValue
		issue.Message = fmt.Sprintf("value of kind %T cannot be emitted as CSS", tok.Value)
		report.add(issue)
		return false
	}
	if tok.Type == token.TypeColor {
		if value, ok := tok.StringValue(); ok && !token.HasReference(value) && !color.Valid(value) {
			issue := base
			issue.Kind = KindInvalidColor
			issue.Severity = SeverityWarning
			issue.Message = fmt.Sprintf("%q is not a recognised CSS colour", value)
			report.add(issue)
		}
	}
	return true
}

type suggester struct {
	paths []string
}

func newSuggester(root *token.Group) *suggester {
	return &suggester{paths: root.Paths()}
}

// suggest returns the closest existing token path, or "" when nothing is
// similar enough.
func (s *suggester) suggest(target token.Path) string {
	if s == nil || len(s.paths) == 0 {
		return ""
	}
	ranks := fuzzy.RankFindNormalizedFold(target.TrimValue().String(), s.paths)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return ranks[0].Target
}
