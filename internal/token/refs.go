package token

import "regexp"

var referencePattern = regexp.MustCompile(`\{([^}]+)\}`)

// Reference is one {dotted.path} occurrence inside a token value.
type Reference struct {
	// Token is the path of the token whose value holds the reference.
	Token Path
	// Target is the referenced path as written, including any ".value".
	Target Path
	// Raw is the matched text with braces.
	Raw string
}

// ExtractReferences returns the inner text of every {...} in value, in
// order of appearance.
func ExtractReferences(value string) []string {
	matches := referencePattern.FindAllStringSubmatch(value, -1)
	if len(matches) == 0 {
		return nil
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, m[1])
	}
	return out
}

// HasReference reports whether value contains reference syntax.
func HasReference(value string) bool {
	return referencePattern.MatchString(value)
}

// ReplaceReferences calls fn for each {...} in value and substitutes its
// result. fn receives the inner path text.
func ReplaceReferences(value string, fn func(target string) (string, error)) (string, error) {
	var firstErr error
	out := referencePattern.ReplaceAllStringFunc(value, func(match string) string {
		if firstErr != nil {
			return match
		}
		inner := match[1 : len(match)-1]
		replacement, err := fn(inner)
		if err != nil {
			firstErr = err
			return match
		}
		return replacement
	})
	if firstErr != nil {
		return "", firstErr
	}
	return out, nil
}

// FindReferences lists every reference in the tree. Only string values
// are inspected; nothing is resolved.
func FindReferences(root *Group) []Reference {
	var refs []Reference
	_ = root.Walk(func(path Path, tok *Token) error {
		value, ok := tok.StringValue()
		if !ok {
			return nil
		}
		for _, m := range referencePattern.FindAllStringSubmatch(value, -1) {
			refs = append(refs, Reference{
				Token:  path,
				Target: ParsePath(m[1]),
				Raw:    m[0],
			})
		}
		return nil
	})
	return refs
}
