package token

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Layer names the three tiers of the token system.
type Layer string

const (
	LayerIngredients Layer = "ingredients"
	LayerFlavors     Layer = "flavors"
	LayerRecipes     Layer = "recipes"
)

// Tree is the merged content of one layer directory.
type Tree struct {
	Dir   string
	Root  *Group
	Files []string
	// Origins maps each top-level key to the file that last defined it.
	Origins map[string]string
}

// Flavor is one theme below src/flavors.
type Flavor struct {
	Name string
	*Tree
}

// Set holds every layer of a token source directory.
type Set struct {
	Ingredients *Tree
	Flavors     []Flavor
	Recipes     *Tree
}

// Flavor returns the named flavor.
func (s *Set) Flavor(name string) (Flavor, bool) {
	if s == nil {
		return Flavor{}, false
	}
	for _, f := range s.Flavors {
		if f.Name == name {
			return f, true
		}
	}
	return Flavor{}, false
}

// FlavorNames lists the loaded flavors in load order.
func (s *Set) FlavorNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Flavors))
	for _, f := range s.Flavors {
		names = append(names, f.Name)
	}
	return names
}

// LoadFile parses a single token document.
func LoadFile(path string) (*Group, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("token: read %s: %w", path, err)
	}
	return Parse(filepath.Clean(path), data)
}

// LoadLayer reads every .json file below dir, recursively, in lexical path
// order and shallow-merges their top-level keys. A later file replaces an
// earlier file's key wholesale. A missing directory yields an empty tree.
func LoadLayer(dir string) (*Tree, error) {
	tree := &Tree{Dir: filepath.Clean(dir), Root: NewGroup(), Origins: map[string]string{}}
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return tree, nil
	}
	files, err := jsonFiles(trimmed)
	if err != nil {
		return nil, err
	}
	for _, path := range files {
		group, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		for _, key := range group.Keys() {
			tree.Origins[key] = path
		}
		tree.Root.Merge(group)
		tree.Files = append(tree.Files, path)
	}
	return tree, nil
}

func jsonFiles(dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("token: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("token: %s is not a directory", dir)
	}
	var files []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsTokenFile(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("token: walk %s: %w", dir, err)
	}
	sort.Slice(files, func(i, j int) bool {
		return filepath.ToSlash(files[i]) < filepath.ToSlash(files[j])
	})
	return files, nil
}

// IsTokenFile reports whether name looks like a token document.
func IsTokenFile(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".json") && !strings.HasPrefix(lower, ".")
}

// LoadFlavors loads one tree per immediate sub-directory of dir, sorted by
// name. JSON files sitting directly in dir belong to no flavor and are
// ignored.
func LoadFlavors(dir string) ([]Flavor, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(trimmed)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("token: read %s: %w", trimmed, err)
	}
	var flavors []Flavor
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		tree, err := LoadLayer(filepath.Join(trimmed, entry.Name()))
		if err != nil {
			return nil, err
		}
		flavors = append(flavors, Flavor{Name: entry.Name(), Tree: tree})
	}
	sort.Slice(flavors, func(i, j int) bool { return flavors[i].Name < flavors[j].Name })
	return flavors, nil
}

// LoadSet loads src/ingredients, every src/flavors/<name> and src/recipes.
func LoadSet(srcDir string) (*Set, error) {
	ingredients, err := LoadLayer(filepath.Join(srcDir, string(LayerIngredients)))
	if err != nil {
		return nil, err
	}
	flavors, err := LoadFlavors(filepath.Join(srcDir, string(LayerFlavors)))
	if err != nil {
		return nil, err
	}
	recipes, err := LoadLayer(filepath.Join(srcDir, string(LayerRecipes)))
	if err != nil {
		return nil, err
	}
	return &Set{Ingredients: ingredients, Flavors: flavors, Recipes: recipes}, nil
}
