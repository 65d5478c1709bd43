// Package emit flattens resolved token trees into CSS custom properties and
// writes them as one stylesheet per top-level group.
package emit
