// Package validate checks the layering discipline of a token set:
// ingredients hold primitives, flavors reference ingredients, recipes
// reference flavors. Problems are collected into a Report rather than
// returned as errors.
package validate
