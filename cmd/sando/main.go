// cmd/sando/main.go
//
// Entry point for the sando CLI. Every command works on one project
// directory (the current one unless -C is given) that holds sando.yaml and
// the src/ token tree.

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kingrea/sando/internal/build"
	"github.com/kingrea/sando/internal/config"
	"github.com/kingrea/sando/internal/logging"
)

var (
	projectDir string
	verbose    bool

	cfg     *config.Config
	logger  *logging.Logger
	history *logging.History
)

// errReported signals a failure that has already been printed.
var errReported = errors.New("reported")

// consoleAnnotation marks long-running commands whose log lines should also
// go to stderr.
const consoleAnnotation = "console"

var rootCmd = &cobra.Command{
	Use:   "sando",
	Short: "sando - layered design tokens to CSS custom properties",
	Long: `sando compiles a three-layer design token tree into CSS custom properties.

  src/ingredients/   primitive values (colours, sizes)
  src/flavors/<name> themes that reference ingredients
  src/recipes/       component tokens that reference flavors

Run "sando init" to scaffold a project, then "sando build".`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "init" || cmd.Name() == "help" {
			return nil
		}
		return setup(cmd.Annotations[consoleAnnotation] == "true")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project", "C", ".", "project directory containing sando.yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(initCmd, buildCmd, validateCmd, watchCmd, serveCmd, browseCmd, historyCmd)
}

// setup loads the project configuration and opens the log and history files.
func setup(console bool) error {
	var err error
	cfg, err = config.Load(projectDir)
	if err != nil {
		return err
	}
	logger, err = logging.New(cfg.LogsDir(), logging.Options{Verbose: verbose, Console: console || verbose})
	if err != nil {
		return err
	}
	history, err = logging.NewHistory(cfg.HistoryPath())
	if err != nil {
		return err
	}
	logger.Debug("config loaded",
		zap.String("project", cfg.ProjectDir),
		zap.String("source", cfg.SourceDir()),
		zap.String("output", cfg.OutputDir()))
	return nil
}

func newBuilder() *build.Builder {
	return build.New(cfg,
		build.WithLogger(logger.Logger),
		build.WithHistory(history))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("error:"), err)
		}
		os.Exit(1)
	}
}

var (
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	warningStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F5A623"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF"))
)
