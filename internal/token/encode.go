package token

import (
	"bytes"
	"encoding/json"
)

// MarshalJSON encodes the group with keys in insertion order.
func (g *Group) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	field := func(key string, value any) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(v)
		return nil
	}
	if g != nil {
		if g.Type != "" {
			if err := field("$type", g.Type); err != nil {
				return nil, err
			}
		}
		if g.Description != "" {
			if err := field("$description", g.Description); err != nil {
				return nil, err
			}
		}
		for _, key := range g.keys {
			if err := field(key, g.children[key]); err != nil {
				return nil, err
			}
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type tokenJSON struct {
	Value       any    `json:"value"`
	Type        Type   `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// MarshalJSON encodes the token in the value/type shape the loader reads.
func (t *Token) MarshalJSON() ([]byte, error) {
	return json.Marshal(tokenJSON{Value: t.Value, Type: t.Type, Description: t.Description})
}

// Marshal renders g as indented JSON terminated by a newline.
func Marshal(g *Group) ([]byte, error) {
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
