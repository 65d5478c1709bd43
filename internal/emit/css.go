package emit

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
	"unicode"

	"github.com/kingrea/sando/internal/token"
)

// Header is written at the top of every generated stylesheet.
const Header = "/* Generated by sando. Do not edit. */"

// Variable is one CSS custom property.
type Variable struct {
	Name  string     `json:"name"`
	Value string     `json:"value"`
	Path  token.Path `json:"path"`
	Type  token.Type `json:"type,omitempty"`
}

// VariableName turns a token path into a custom property name:
// --<prefix>-<kebab-cased segments>.
func VariableName(prefix string, p token.Path) string {
	var b strings.Builder
	b.WriteString("--")
	if prefix = sanitize(prefix); prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('-')
	}
	for i, segment := range p {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(sanitize(segment))
	}
	return b.String()
}

// sanitize kebab-cases camelCase and replaces anything outside
// [a-z0-9_-] with a dash.
func sanitize(segment string) string {
	var b strings.Builder
	runes := []rune(strings.TrimSpace(segment))
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1])) {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	return b.String()
}

// Flatten lists every token below root as a custom property, in tree order.
// Tokens whose value cannot be written as CSS are skipped.
func Flatten(root *token.Group, prefix string) []Variable {
	var vars []Variable
	_ = root.Walk(func(p token.Path, tok *token.Token) error {
		text, ok := tok.Text()
		if !ok {
			return nil
		}
		vars = append(vars, Variable{
			Name:  VariableName(prefix, p),
			Value: text,
			Path:  p,
			Type:  tok.Type,
		})
		return nil
	})
	return vars
}

// Sheet is one generated stylesheet: the variables of a single top-level
// group of a layer, scoped to a selector.
type Sheet struct {
	Layer     token.Layer
	Flavor    string
	Group     string
	Selector  string
	Variables []Variable
}

// RelPath is the sheet's location below the output directory, always
// slash-separated.
func (s Sheet) RelPath() string {
	name := sanitize(s.Group) + ".css"
	if s.Flavor != "" {
		return path.Join("css", string(s.Layer), sanitize(s.Flavor), name)
	}
	return path.Join("css", string(s.Layer), name)
}

// Sheets splits root into one sheet per top-level group. Tokens sitting
// directly at the root go into a sheet named after the layer.
func Sheets(layer token.Layer, flavor, selector string, root *token.Group, prefix string) []Sheet {
	var sheets []Sheet
	loose := token.NewGroup()
	for _, key := range root.Keys() {
		node, _ := root.Get(key)
		switch n := node.(type) {
		case *token.Group:
			wrapped := token.NewGroup()
			wrapped.Type = root.Type
			wrapped.Set(key, n)
			vars := Flatten(wrapped, prefix)
			if len(vars) == 0 {
				continue
			}
			sheets = append(sheets, Sheet{Layer: layer, Flavor: flavor, Group: key, Selector: selector, Variables: vars})
		case *token.Token:
			loose.Set(key, n)
		}
	}
	if loose.Len() > 0 {
		loose.Type = root.Type
		if vars := Flatten(loose, prefix); len(vars) > 0 {
			sheets = append(sheets, Sheet{Layer: layer, Flavor: flavor, Group: string(layer), Selector: selector, Variables: vars})
		}
	}
	return sheets
}

// Render writes sheet as a CSS rule block.
func Render(w io.Writer, sheet Sheet) error {
	selector := sheet.Selector
	if strings.TrimSpace(selector) == "" {
		selector = ":root"
	}
	var buf bytes.Buffer
	fmt.Fprintln(&buf, Header)
	fmt.Fprintf(&buf, "%s {\n", selector)
	for _, v := range sheet.Variables {
		fmt.Fprintf(&buf, "  %s: %s;\n", v.Name, v.Value)
	}
	buf.WriteString("}\n")
	_, err := w.Write(buf.Bytes())
	return err
}

// RenderIndex writes an @import for every sheet, in the given order.
func RenderIndex(w io.Writer, sheets []Sheet) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, Header)
	for _, sheet := range sheets {
		rel := strings.TrimPrefix(sheet.RelPath(), "css/")
		fmt.Fprintf(&buf, "@import %q;\n", "./"+rel)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
