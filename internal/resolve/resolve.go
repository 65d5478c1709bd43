package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/sando/internal/token"
)

// CycleError reports references that loop back on themselves.
type CycleError struct {
	Chain []token.Path
}

func (e *CycleError) Error() string {
	parts := make([]string, len(e.Chain))
	for i, p := range e.Chain {
		parts[i] = p.String()
	}
	return "resolve: reference cycle " + strings.Join(parts, " -> ")
}

// UnresolvedError reports a reference whose target exists in neither the
// lower layer nor the layer being resolved.
type UnresolvedError struct {
	Token  token.Path
	Target token.Path
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("resolve: %s references {%s} which does not exist", e.Token, e.Target)
}

// Options tunes substitution.
type Options struct {
	// OutputReferences rewrites {a.b} as var(--<Prefix>-a-b) instead of
	// substituting the literal value. Targets must still exist.
	OutputReferences bool
	// Prefix is the custom property prefix used by OutputReferences.
	Prefix string
	// KeepUnresolved leaves unknown references as written instead of
	// failing. Cycles are always fatal.
	KeepUnresolved bool
	// VarName builds the custom property name for a path. When nil,
	// references are rendered as --<Prefix>-<segments>.
	VarName func(prefix string, path token.Path) string
}

// Result is a resolved copy of a tree plus any references left in place.
type Result struct {
	Root       *token.Group
	Unresolved []*UnresolvedError
}

// Tree substitutes every reference in root. Targets are looked up in lower
// first and then in root itself, so alias chains inside a layer work; lower
// is expected to be resolved already. The input trees are not modified.
func Tree(root, lower *token.Group, opts Options) (*Result, error) {
	r := &resolver{
		source:   root,
		lower:    lower,
		out:      root.Clone(),
		opts:     opts,
		done:     map[string]bool{},
		visiting: map[string]bool{},
	}
	if r.out == nil {
		r.out = token.NewGroup()
	}
	err := root.Walk(func(path token.Path, _ *token.Token) error {
		_, err := r.resolve(path, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Result{Root: r.out, Unresolved: r.unresolved}, nil
}

type resolver struct {
	source *token.Group
	lower  *token.Group
	out    *token.Group
	opts   Options

	done       map[string]bool
	visiting   map[string]bool
	unresolved []*UnresolvedError
}

// resolve returns the resolved token at path inside the layer being
// processed, substituting its references on first visit. chain holds the
// paths currently being resolved, for cycle reporting.
func (r *resolver) resolve(path token.Path, chain []token.Path) (*token.Token, error) {
	key := path.String()
	node, _ := r.out.Lookup(path)
	tok, _ := node.(*token.Token)
	if tok == nil {
		return nil, nil
	}
	if r.done[key] {
		return tok, nil
	}
	chain = append(chain, path)
	if r.visiting[key] {
		return nil, &CycleError{Chain: append([]token.Path(nil), chain...)}
	}
	value, ok := tok.StringValue()
	if !ok || !token.HasReference(value) {
		r.done[key] = true
		return tok, nil
	}
	r.visiting[key] = true
	defer delete(r.visiting, key)

	whole := wholeReference(value)
	var replaced any
	text, err := token.ReplaceReferences(value, func(target string) (string, error) {
		targetPath := token.ParsePath(target)
		found, err := r.lookup(path, targetPath, chain)
		if err != nil {
			return "", err
		}
		if found == nil {
			unresolved := &UnresolvedError{Token: path, Target: targetPath.TrimValue()}
			if !r.opts.KeepUnresolved {
				return "", unresolved
			}
			r.unresolved = append(r.unresolved, unresolved)
			return "{" + target + "}", nil
		}
		if r.opts.OutputReferences {
			return "var(" + r.varName(targetPath.TrimValue()) + ")", nil
		}
		if whole {
			replaced = found.Value
		}
		s, ok := found.Text()
		if !ok {
			return "", fmt.Errorf("resolve: %s references {%s} whose value cannot be inlined", path, target)
		}
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	if replaced != nil {
		// A value that is exactly one reference keeps the target's JSON
		// kind, so numbers stay numbers.
		tok.Value = replaced
	} else {
		tok.Value = text
	}
	r.done[key] = true
	return tok, nil
}

func (r *resolver) lookup(from, target token.Path, chain []token.Path) (*token.Token, error) {
	if found, ok := r.lower.Resolve(target); ok {
		return found, nil
	}
	if _, ok := r.source.Resolve(target); !ok {
		return nil, nil
	}
	found, err := r.resolve(target.TrimValue(), chain)
	if err != nil {
		var cycle *CycleError
		if errors.As(err, &cycle) {
			return nil, err
		}
		return nil, fmt.Errorf("resolve: %s: %w", from, err)
	}
	return found, nil
}

func (r *resolver) varName(path token.Path) string {
	if r.opts.VarName != nil {
		return r.opts.VarName(r.opts.Prefix, path)
	}
	name := "--"
	if r.opts.Prefix != "" {
		name += r.opts.Prefix + "-"
	}
	return name + strings.Join(path, "-")
}

func wholeReference(value string) bool {
	refs := token.ExtractReferences(value)
	return len(refs) == 1 && strings.TrimSpace(value) == "{"+refs[0]+"}"
}
