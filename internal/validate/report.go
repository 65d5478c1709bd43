package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kingrea/sando/internal/token"
)

// Severity separates failures from advisory findings.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Kind classifies an issue.
type Kind string

const (
	KindEmptyValue          Kind = "empty-value"
	KindInvalidType         Kind = "invalid-type"
	KindInvalidValue        Kind = "invalid-value"
	KindIngredientReference Kind = "ingredient-reference"
	KindBrokenReference     Kind = "broken-reference"
	KindCircularReference   Kind = "circular-reference"
	KindLayerSkip           Kind = "layer-skip"
	KindSameLayerReference  Kind = "same-layer-reference"
	KindInvalidColor        Kind = "invalid-color"
)

// Issue is a single validation finding.
type Issue struct {
	Kind     Kind        `json:"kind"`
	Severity Severity    `json:"severity"`
	Layer    token.Layer `json:"layer"`
	// Flavor is set for flavor tokens and for recipe references checked
	// against a particular flavor.
	Flavor     string     `json:"flavor,omitempty"`
	Token      token.Path `json:"token"`
	Reference  string     `json:"reference,omitempty"`
	Message    string     `json:"message"`
	Suggestion string     `json:"suggestion,omitempty"`
}

// Location renders layer[/flavor]:token.path.
func (i Issue) Location() string {
	layer := string(i.Layer)
	if i.Flavor != "" {
		layer += "/" + i.Flavor
	}
	return layer + ":" + i.Token.String()
}

func (i Issue) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s [%s]: %s", i.Severity, i.Location(), i.Kind, i.Message)
	if i.Suggestion != "" {
		fmt.Fprintf(&b, " (did you mean {%s}?)", i.Suggestion)
	}
	return b.String()
}

// Report collects the issues found in one validation pass.
type Report struct {
	Issues []Issue `json:"issues"`
	// Checked counts the tokens inspected per layer.
	Checked map[token.Layer]int `json:"checked"`
	// References counts the references inspected per layer.
	References map[token.Layer]int `json:"references"`
}

func newReport() *Report {
	return &Report{
		Checked:    map[token.Layer]int{},
		References: map[token.Layer]int{},
	}
}

func (r *Report) add(issue Issue) {
	if issue.Severity == "" {
		issue.Severity = SeverityError
	}
	r.Issues = append(r.Issues, issue)
}

// IsValid reports whether the pass found no errors. Warnings do not count.
func (r *Report) IsValid() bool {
	return r != nil && len(r.Errors()) == 0
}

// Errors returns the issues of error severity.
func (r *Report) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns the issues of warning severity.
func (r *Report) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

// ByKind returns the issues of one kind.
func (r *Report) ByKind(kind Kind) []Issue {
	if r == nil {
		return nil
	}
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			out = append(out, issue)
		}
	}
	return out
}

func (r *Report) filter(sev Severity) []Issue {
	if r == nil {
		return nil
	}
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity == sev {
			out = append(out, issue)
		}
	}
	return out
}

// Sort orders issues by layer, flavor, token path and kind so output is
// stable across runs.
func (r *Report) Sort() {
	rank := map[token.Layer]int{token.LayerIngredients: 0, token.LayerFlavors: 1, token.LayerRecipes: 2}
	sort.SliceStable(r.Issues, func(i, j int) bool {
		a, b := r.Issues[i], r.Issues[j]
		if rank[a.Layer] != rank[b.Layer] {
			return rank[a.Layer] < rank[b.Layer]
		}
		if a.Flavor != b.Flavor {
			return a.Flavor < b.Flavor
		}
		if pa, pb := a.Token.String(), b.Token.String(); pa != pb {
			return pa < pb
		}
		return a.Kind < b.Kind
	})
}

// Summary is a one-line description of the report.
func (r *Report) Summary() string {
	if r == nil {
		return "no report"
	}
	total := 0
	for _, n := range r.Checked {
		total += n
	}
	return fmt.Sprintf("%d tokens checked, %d errors, %d warnings", total, len(r.Errors()), len(r.Warnings()))
}
