package token

// Group is an ordered mapping of keys to nodes. Insertion order follows the
// source document so emitted output is stable.
type Group struct {
	// Type is the DTCG $type declared on the group; it is inherited by
	// descendant tokens that do not declare their own.
	Type        Type
	Description string

	keys     []string
	children map[string]Node
}

func (*Group) node() {}

// NewGroup returns an empty group.
func NewGroup() *Group {
	return &Group{children: map[string]Node{}}
}

// Len returns the number of direct children.
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.keys)
}

// Keys returns the child keys in insertion order.
func (g *Group) Keys() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.keys...)
}

// Get returns the direct child stored under key.
func (g *Group) Get(key string) (Node, bool) {
	if g == nil {
		return nil, false
	}
	n, ok := g.children[key]
	return n, ok
}

// Set stores node under key. Replacing an existing key keeps its original
// position.
func (g *Group) Set(key string, n Node) {
	if g.children == nil {
		g.children = map[string]Node{}
	}
	if _, exists := g.children[key]; !exists {
		g.keys = append(g.keys, key)
	}
	g.children[key] = n
}

// Delete removes key if present.
func (g *Group) Delete(key string) {
	if g == nil {
		return
	}
	if _, ok := g.children[key]; !ok {
		return
	}
	delete(g.children, key)
	for i, k := range g.keys {
		if k == key {
			g.keys = append(g.keys[:i], g.keys[i+1:]...)
			break
		}
	}
}

// Lookup walks path key by key and returns the node it ends on.
func (g *Group) Lookup(path Path) (Node, bool) {
	if g == nil || len(path) == 0 {
		return nil, false
	}
	var current Node = g
	for _, segment := range path {
		group, ok := current.(*Group)
		if !ok {
			return nil, false
		}
		next, ok := group.Get(segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// Resolve strips an optional trailing "value" segment and returns the token
// at path. It fails when the walk ends on a group or leaves the tree.
func (g *Group) Resolve(path Path) (*Token, bool) {
	n, ok := g.Lookup(path.TrimValue())
	if !ok {
		return nil, false
	}
	tok, ok := n.(*Token)
	if !ok || tok.Value == nil {
		return nil, false
	}
	return tok, true
}

// WalkFunc is called for every token in a tree. The Token's effective type
// (including group inheritance) has already been applied to tok.Type.
type WalkFunc func(path Path, tok *Token) error

// Walk visits every token depth-first in insertion order and stops at the
// first error fn returns. The token passed to fn is a copy when an
// inherited type had to be filled in.
func (g *Group) Walk(fn WalkFunc) error {
	return g.walk(nil, "", fn)
}

func (g *Group) walk(prefix Path, inherited Type, fn WalkFunc) error {
	if g == nil {
		return nil
	}
	if g.Type != "" {
		inherited = g.Type
	}
	for _, key := range g.keys {
		path := prefix.Child(key)
		switch n := g.children[key].(type) {
		case *Token:
			tok := n
			if tok.Type == "" && inherited != "" {
				tok = n.Clone()
				tok.Type = inherited
			}
			if err := fn(path, tok); err != nil {
				return err
			}
		case *Group:
			if err := n.walk(path, inherited, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Paths returns the dotted path of every token in walk order.
func (g *Group) Paths() []string {
	var out []string
	_ = g.Walk(func(path Path, _ *Token) error {
		out = append(out, path.String())
		return nil
	})
	return out
}

// Count returns the number of tokens below g.
func (g *Group) Count() int {
	n := 0
	_ = g.Walk(func(Path, *Token) error {
		n++
		return nil
	})
	return n
}

// Clone returns a deep copy of the group structure. Tokens are copied so
// callers may rewrite values without touching the source tree.
func (g *Group) Clone() *Group {
	if g == nil {
		return nil
	}
	out := &Group{
		Type:        g.Type,
		Description: g.Description,
		keys:        append([]string(nil), g.keys...),
		children:    make(map[string]Node, len(g.children)),
	}
	for key, child := range g.children {
		switch n := child.(type) {
		case *Token:
			out.children[key] = n.Clone()
		case *Group:
			out.children[key] = n.Clone()
		}
	}
	return out
}

// Merge copies every top-level key of src into g, replacing existing keys
// wholesale. Nested groups are not merged.
func (g *Group) Merge(src *Group) {
	if src == nil {
		return
	}
	for _, key := range src.keys {
		g.Set(key, src.children[key])
	}
}
