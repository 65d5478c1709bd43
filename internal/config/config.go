// internal/config/config.go
//
// This package handles the sando.yaml project file and the .sando state
// directory. Every project that uses sando has a sando.yaml next to its
// token sources; when it is missing the defaults below apply.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// FileName is the project configuration file looked up in the project dir.
	FileName = "sando.yaml"

	// StateDir holds logs and build history.
	StateDir = ".sando"

	defaultSource   = "src"
	defaultOutput   = "dist/sando-tokens"
	defaultPrefix   = "sando"
	defaultFlavor   = "original"
	defaultSelector = `[flavor="%s"]`

	DefaultPreviewHost = "127.0.0.1"
	DefaultPreviewPort = 6006
)

const defaultProjectConfigYAML = `# sando project configuration
version: 1

# Token sources: <source>/ingredients, <source>/flavors/<name>, <source>/recipes
source: src

# Generated CSS lands in <output>/css, the flat token map in <output>/tokens.json
output: dist/sando-tokens

# Custom property prefix: --sando-color-orange-500
prefix: sando

flavors:
  # The default flavor is emitted under :root; the others under the selector.
  default: original
  selector: '[flavor="%s"]'

# Emit var(--sando-...) for references instead of inlining resolved values.
output_references: false

# Refuse to write CSS when validation reports errors.
strict: true

preview:
  host: 127.0.0.1
  port: 6006
`

// FlavorConfig selects the default flavor and how the others are scoped.
type FlavorConfig struct {
	Default  string `yaml:"default"`
	Selector string `yaml:"selector"`
}

// PreviewConfig configures the preview HTTP server.
type PreviewConfig struct {
	Host string `yaml:"host,omitempty"`
	Port int    `yaml:"port,omitempty"`
}

// ProjectConfig models sando.yaml.
type ProjectConfig struct {
	Version          int           `yaml:"version"`
	Source           string        `yaml:"source"`
	Output           string        `yaml:"output"`
	Prefix           string        `yaml:"prefix"`
	Flavors          FlavorConfig  `yaml:"flavors"`
	OutputReferences bool          `yaml:"output_references"`
	Strict           *bool         `yaml:"strict,omitempty"`
	Preview          PreviewConfig `yaml:"preview"`
}

// Config holds the runtime configuration for one project.
type Config struct {
	// ProjectDir is the directory sando was pointed at
	ProjectDir string

	// StateDir is ProjectDir/.sando
	StateDir string

	Project ProjectConfig
}

// Init writes a default sando.yaml (unless one exists) and creates the
// source layout:
//
//	sando.yaml
//	src/
//	├── ingredients/
//	├── flavors/
//	│   └── original/
//	└── recipes/
//	.sando/
//	└── logs/
func Init(projectDir string) (*Config, error) {
	if err := ensureProjectConfig(filepath.Join(projectDir, FileName)); err != nil {
		return nil, fmt.Errorf("config: write %s: %w", FileName, err)
	}
	cfg, err := Load(projectDir)
	if err != nil {
		return nil, err
	}
	dirs := []string{
		cfg.IngredientsDir(),
		cfg.FlavorDir(cfg.DefaultFlavor()),
		cfg.RecipesDir(),
		cfg.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("config: create %s: %w", dir, err)
		}
	}
	return cfg, nil
}

// Load reads sando.yaml from projectDir, falling back to defaults when the
// file does not exist, and applies environment overrides.
func Load(projectDir string) (*Config, error) {
	abs, err := filepath.Abs(projectDir)
	if err != nil {
		return nil, fmt.Errorf("config: resolve project dir: %w", err)
	}
	cfg := &Config{
		ProjectDir: abs,
		StateDir:   filepath.Join(abs, StateDir),
		Project:    defaultProjectConfig(),
	}
	if err := cfg.loadProjectConfig(); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	return cfg, nil
}

// ProjectConfigPath returns the on-disk location of sando.yaml.
func (c *Config) ProjectConfigPath() string {
	return filepath.Join(c.ProjectDir, FileName)
}

// SourceDir is the root of the token sources.
func (c *Config) SourceDir() string {
	return c.Project.Source
}

// IngredientsDir returns <source>/ingredients.
func (c *Config) IngredientsDir() string {
	return filepath.Join(c.Project.Source, "ingredients")
}

// FlavorsDir returns <source>/flavors.
func (c *Config) FlavorsDir() string {
	return filepath.Join(c.Project.Source, "flavors")
}

// FlavorDir returns the directory of one flavor.
func (c *Config) FlavorDir(name string) string {
	return filepath.Join(c.FlavorsDir(), name)
}

// RecipesDir returns <source>/recipes.
func (c *Config) RecipesDir() string {
	return filepath.Join(c.Project.Source, "recipes")
}

// OutputDir is where generated files are written.
func (c *Config) OutputDir() string {
	return c.Project.Output
}

// LogsDir returns the path to the logs directory
func (c *Config) LogsDir() string {
	return filepath.Join(c.StateDir, "logs")
}

// HistoryPath returns the build history file.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.StateDir, "history.log")
}

// Prefix is the custom property prefix.
func (c *Config) Prefix() string {
	return c.Project.Prefix
}

// DefaultFlavor is the flavor emitted under :root and used to resolve recipes.
func (c *Config) DefaultFlavor() string {
	return c.Project.Flavors.Default
}

// FlavorSelector returns the CSS selector scoping the given flavor.
func (c *Config) FlavorSelector(name string) string {
	if name == c.DefaultFlavor() {
		return ":root"
	}
	selector := c.Project.Flavors.Selector
	if strings.Contains(selector, "%s") {
		return fmt.Sprintf(selector, name)
	}
	return selector
}

// Strict reports whether validation errors block emission.
func (c *Config) Strict() bool {
	return c.Project.Strict == nil || *c.Project.Strict
}

// SetStrict overrides strictness for this run.
func (c *Config) SetStrict(strict bool) {
	c.Project.Strict = &strict
}

func (c *Config) loadProjectConfig() error {
	path := c.ProjectConfigPath()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.Project.normalize(c.ProjectDir)
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed ProjectConfig
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	parsed.applyDefaults()
	parsed.normalize(c.ProjectDir)
	if err := parsed.validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	c.Project = parsed
	return nil
}

func (c *Config) applyEnvOverrides() {
	if value := strings.TrimSpace(os.Getenv("SANDO_STRICT")); value != "" {
		if strict, err := strconv.ParseBool(value); err == nil {
			c.SetStrict(strict)
		}
	}
	if value := strings.TrimSpace(os.Getenv("SANDO_OUTPUT")); value != "" {
		c.Project.Output = resolvePath(c.ProjectDir, value)
	}
}

func defaultProjectConfig() ProjectConfig {
	return ProjectConfig{
		Version: 1,
		Source:  defaultSource,
		Output:  defaultOutput,
		Prefix:  defaultPrefix,
		Flavors: FlavorConfig{
			Default:  defaultFlavor,
			Selector: defaultSelector,
		},
		Preview: PreviewConfig{
			Host: DefaultPreviewHost,
			Port: DefaultPreviewPort,
		},
	}
}

func (pc *ProjectConfig) applyDefaults() {
	defaults := defaultProjectConfig()
	if pc.Version == 0 {
		pc.Version = defaults.Version
	}
	if strings.TrimSpace(pc.Source) == "" {
		pc.Source = defaults.Source
	}
	if strings.TrimSpace(pc.Output) == "" {
		pc.Output = defaults.Output
	}
	if strings.TrimSpace(pc.Flavors.Default) == "" {
		pc.Flavors.Default = defaults.Flavors.Default
	}
	if strings.TrimSpace(pc.Flavors.Selector) == "" {
		pc.Flavors.Selector = defaults.Flavors.Selector
	}
	if strings.TrimSpace(pc.Preview.Host) == "" {
		pc.Preview.Host = defaults.Preview.Host
	}
	if pc.Preview.Port == 0 {
		pc.Preview.Port = defaults.Preview.Port
	}
}

func (pc *ProjectConfig) normalize(base string) {
	pc.Source = resolvePath(base, pc.Source)
	pc.Output = resolvePath(base, pc.Output)
	pc.Prefix = strings.TrimSpace(pc.Prefix)
	pc.Flavors.Default = strings.TrimSpace(pc.Flavors.Default)
	pc.Flavors.Selector = strings.TrimSpace(pc.Flavors.Selector)
	pc.Preview.Host = strings.TrimSpace(pc.Preview.Host)
}

func (pc *ProjectConfig) validate() error {
	if pc.Version != 1 {
		return fmt.Errorf("unsupported config version %d", pc.Version)
	}
	if pc.Source == pc.Output {
		return fmt.Errorf("source and output must differ")
	}
	if strings.ContainsAny(pc.Prefix, " .{}:;") {
		return fmt.Errorf("prefix %q contains characters not allowed in a custom property", pc.Prefix)
	}
	if strings.ContainsAny(pc.Flavors.Default, `/\`) {
		return fmt.Errorf("flavors.default must be a directory name, got %q", pc.Flavors.Default)
	}
	if strings.Count(pc.Flavors.Selector, "%s") > 1 {
		return fmt.Errorf("flavors.selector may contain at most one %%s")
	}
	if pc.Preview.Port < 0 || pc.Preview.Port > 65535 {
		return fmt.Errorf("preview.port %d out of range", pc.Preview.Port)
	}
	return nil
}

func resolvePath(base, candidate string) string {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return ""
	}
	if filepath.IsAbs(trimmed) {
		return filepath.Clean(trimmed)
	}
	return filepath.Clean(filepath.Join(base, trimmed))
}

func ensureProjectConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultProjectConfigYAML), 0644)
}
