// Package token models design tokens and loads them from disk. A layer
// directory holds any number of DTCG-shaped JSON documents which are
// shallow-merged into a single ordered tree; references between tokens are
// written as {dotted.path} inside string values.
package token
