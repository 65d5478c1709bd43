package token

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseError reports a token document that is not valid JSON or not a
// JSON object.
type ParseError struct {
	Path   string
	Offset int64
	Err    error
}

func (e *ParseError) Error() string {
	if e.Offset > 0 {
		return fmt.Sprintf("token: parse %s (offset %d): %v", e.Path, e.Offset, e.Err)
	}
	return fmt.Sprintf("token: parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// object is an order-preserving decoded JSON object.
type object struct {
	keys   []string
	values map[string]any
}

func (o *object) get(keys ...string) (any, bool) {
	for _, key := range keys {
		if v, ok := o.values[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Parse decodes a token document. name is only used for error messages.
func Parse(name string, data []byte) (*Group, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &ParseError{Path: name, Err: errors.New("document is empty")}
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	root, err := decodeValue(dec)
	if err != nil {
		return nil, &ParseError{Path: name, Offset: syntaxOffset(err, dec), Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Path: name, Offset: dec.InputOffset(), Err: errors.New("unexpected data after top-level object")}
	}
	obj, ok := root.(*object)
	if !ok {
		return nil, &ParseError{Path: name, Err: fmt.Errorf("top-level value must be an object, got %s", describe(root))}
	}
	return buildGroup(obj), nil
}

func syntaxOffset(err error, dec *json.Decoder) int64 {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return syntaxErr.Offset
	}
	return dec.InputOffset()
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	switch delim := tok.(type) {
	case json.Delim:
		switch delim {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", delim)
		}
	default:
		return tok, nil
	}
}

func decodeObject(dec *json.Decoder) (*object, error) {
	obj := &object{values: map[string]any{}}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("object key must be a string, got %v", keyTok)
		}
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		if _, dup := obj.values[key]; !dup {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = value
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder) ([]any, error) {
	out := []any{}
	for dec.More() {
		value, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

func describe(v any) string {
	switch v.(type) {
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case nil:
		return "null"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// isToken mirrors the duck-typed check used by the tooling that consumes
// these files: an object is a token iff it carries a value key.
func isToken(obj *object) bool {
	_, ok := obj.get("value", "$value")
	return ok
}

func buildGroup(obj *object) *Group {
	g := NewGroup()
	for _, key := range obj.keys {
		value := obj.values[key]
		if strings.HasPrefix(key, "$") {
			applyGroupMeta(g, key, value)
			continue
		}
		child, ok := value.(*object)
		if !ok {
			// Stray scalars next to groups are not tokens; DTCG ignores them.
			continue
		}
		if isToken(child) {
			g.Set(key, buildToken(child))
		} else {
			g.Set(key, buildGroup(child))
		}
	}
	return g
}

func applyGroupMeta(g *Group, key string, value any) {
	s, _ := value.(string)
	switch key {
	case "$type":
		g.Type = Type(s)
	case "$description":
		g.Description = s
	}
}

func buildToken(obj *object) *Token {
	value, _ := obj.get("value", "$value")
	tok := &Token{Value: plain(value)}
	if t, ok := obj.get("type", "$type"); ok {
		if s, ok := t.(string); ok {
			tok.Type = Type(s)
		}
	}
	if d, ok := obj.get("description", "$description"); ok {
		if s, ok := d.(string); ok {
			tok.Description = s
		}
	}
	return tok
}

// plain converts nested ordered objects of composite values into ordinary
// maps; only tree structure needs ordering.
func plain(v any) any {
	switch val := v.(type) {
	case *object:
		out := make(map[string]any, len(val.keys))
		for _, key := range val.keys {
			out[key] = plain(val.values[key])
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plain(item)
		}
		return out
	default:
		return v
	}
}
