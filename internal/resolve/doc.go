// Package resolve substitutes {dotted.path} references with the values they
// point at, layer by layer: flavors against resolved ingredients, recipes
// against a resolved flavor.
package resolve
