package token

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Type is the DTCG type tag carried by a token.
type Type string

const (
	TypeColor       Type = "color"
	TypeDimension   Type = "dimension"
	TypeFontFamily  Type = "fontFamily"
	TypeFontWeight  Type = "fontWeight"
	TypeDuration    Type = "duration"
	TypeCubicBezier Type = "cubicBezier"
	TypeNumber      Type = "number"
	TypeShadow      Type = "shadow"
)

var knownTypes = map[Type]struct{}{
	TypeColor:       {},
	TypeDimension:   {},
	TypeFontFamily:  {},
	TypeFontWeight:  {},
	TypeDuration:    {},
	TypeCubicBezier: {},
	TypeNumber:      {},
	TypeShadow:      {},
}

// Valid reports whether t is one of the supported DTCG types.
func (t Type) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// Path addresses a node inside a tree, one segment per nesting level.
type Path []string

// ParsePath splits a dotted path. Surrounding braces are tolerated so raw
// reference text can be passed straight through.
func ParsePath(s string) Path {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "{")
	s = strings.TrimSuffix(s, "}")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ".")
	out := make(Path, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// MarshalText renders the dotted form so paths read naturally in JSON.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses the dotted form.
func (p *Path) UnmarshalText(text []byte) error {
	*p = ParsePath(string(text))
	return nil
}

// TrimValue drops a trailing "value" segment, so {a.b.value} and {a.b}
// address the same token.
func (p Path) TrimValue() Path {
	if n := len(p); n > 0 && (p[n-1] == "value" || p[n-1] == "$value") {
		return p[:n-1]
	}
	return p
}

// HasPrefix reports whether prefix matches p segment by segment. A path is
// a prefix of itself.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Equal reports segment-wise equality.
func (p Path) Equal(other Path) bool {
	return len(p) == len(other) && p.HasPrefix(other)
}

// Child returns a copy of p extended by key.
func (p Path) Child(key string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = key
	return out
}

// Node is either a *Token or a *Group.
type Node interface {
	node()
}

// Token is a leaf carrying a value. Value holds the decoded JSON scalar:
// a string, a json.Number, a bool, or for composite values a []any or
// map[string]any.
type Token struct {
	Value       any
	Type        Type
	Description string
}

func (*Token) node() {}

// StringValue returns the value when it is a JSON string.
func (t *Token) StringValue() (string, bool) {
	if t == nil {
		return "", false
	}
	s, ok := t.Value.(string)
	return s, ok
}

// IsEmpty reports a missing or blank value.
func (t *Token) IsEmpty() bool {
	if t == nil || t.Value == nil {
		return true
	}
	if s, ok := t.Value.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// Text renders the value the way it appears in a stylesheet. Composite
// values are not representable and report ok=false.
func (t *Token) Text() (string, bool) {
	if t == nil {
		return "", false
	}
	switch v := t.Value.(type) {
	case string:
		return v, true
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case int:
		return strconv.Itoa(v), true
	case bool:
		return strconv.FormatBool(v), true
	default:
		return "", false
	}
}

// Clone returns a shallow copy; scalar values are immutable.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	cp := *t
	return &cp
}

func (t *Token) String() string {
	text, ok := t.Text()
	if !ok {
		text = fmt.Sprintf("%v", t.Value)
	}
	if t.Type == "" {
		return text
	}
	return fmt.Sprintf("%s (%s)", text, t.Type)
}
