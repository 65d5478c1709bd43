package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	noStrict = false
	historyLines = 20
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeTokens(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestInitBuildValidateHistory(t *testing.T) {
	dir := t.TempDir()

	out, err := run(t, "-C", dir, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "sando.yaml")
	assert.DirExists(t, filepath.Join(dir, "src", "flavors", "original"))

	writeTokens(t, dir, "src/ingredients/color.json", `{"color": {"orange": {"500": {"value": "#ff7a00"}}}}`)
	writeTokens(t, dir, "src/flavors/original/color.json", `{"color": {"primary": {"value": "{color.orange.500}"}}}`)
	writeTokens(t, dir, "src/recipes/button.json", `{"button": {"background": {"value": "{color.primary}"}}}`)

	out, err = run(t, "-C", dir, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "3 tokens checked, 0 errors, 0 warnings")

	out, err = run(t, "-C", dir, "build")
	require.NoError(t, err)
	assert.Contains(t, out, "3 tokens")
	css, err := os.ReadFile(filepath.Join(dir, "dist", "sando-tokens", "css", "recipes", "button.css"))
	require.NoError(t, err)
	assert.Contains(t, string(css), "--sando-button-background: #ff7a00;")

	out, err = run(t, "-C", dir, "history", "-n", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "build ok")
	assert.Contains(t, out, "1 of 2 entries")
}

func TestBuildRejectsLayerSkip(t *testing.T) {
	dir := t.TempDir()
	writeTokens(t, dir, "src/ingredients/color.json", `{"color": {"orange": {"500": {"value": "#ff7a00"}}}}`)
	writeTokens(t, dir, "src/flavors/original/color.json", `{"color": {"primary": {"value": "{color.orange.500}"}}}`)
	writeTokens(t, dir, "src/recipes/button.json", `{"button": {"background": {"value": "{color.orange.500}"}}}`)

	out, err := run(t, "-C", dir, "build")
	require.True(t, errors.Is(err, errReported), "unexpected error %v", err)
	assert.Contains(t, out, "layer-skip")
	assert.NoDirExists(t, filepath.Join(dir, "dist"))

	out, err = run(t, "-C", dir, "build", "--no-strict")
	require.NoError(t, err)
	assert.Contains(t, out, "layer-skip")
	assert.Contains(t, out, "button.background")
	assert.Contains(t, out, "references left unresolved")

	_, err = run(t, "-C", dir, "validate")
	assert.True(t, errors.Is(err, errReported))
}

func TestNoStrictBuildListsErrors(t *testing.T) {
	dir := t.TempDir()
	writeTokens(t, dir, "src/ingredients/color.json", `{"color": {"blue": {"value": "#0050ff"}}}`)
	writeTokens(t, dir, "src/flavors/original/color.json", `{"action": {"value": "{color.blue}"}, "link": {"value": "{action}"}}`)

	out, err := run(t, "-C", dir, "build", "--no-strict")
	require.NoError(t, err)
	assert.Contains(t, out, "same-layer-reference")
	assert.Contains(t, out, "link")
	assert.Contains(t, out, "Built")
}

func TestBrowseRejectsUnknownLayer(t *testing.T) {
	dir := t.TempDir()
	_, err := run(t, "-C", dir, "browse", "sauces")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown layer"), err.Error())
}
