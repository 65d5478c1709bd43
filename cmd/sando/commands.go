package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/sando/internal/build"
	"github.com/kingrea/sando/internal/config"
	"github.com/kingrea/sando/internal/preview"
	"github.com/kingrea/sando/internal/tui"
	"github.com/kingrea/sando/internal/watch"
)

var (
	noStrict     bool
	historyLines int
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create sando.yaml and the src/ layer directories",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Init(projectDir)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", okStyle.Render("Initialised"), c.ProjectDir)
		for _, dir := range []string{c.ProjectConfigPath(), c.IngredientsDir(), c.FlavorDir(c.DefaultFlavor()), c.RecipesDir()} {
			rel, err := filepath.Rel(c.ProjectDir, dir)
			if err != nil {
				rel = dir
			}
			fmt.Fprintf(out, "  %s\n", dimStyle.Render(rel))
		}
		return nil
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Validate the token tree and write CSS custom properties",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if noStrict {
			cfg.SetStrict(false)
		}
		result, err := newBuilder().Build(cmd.Context())
		if errors.Is(err, build.ErrValidationFailed) {
			printReport(cmd.ErrOrStderr(), result.Report)
			return errReported
		}
		if err != nil {
			return err
		}
		printResult(cmd.OutOrStdout(), result, cfg.OutputDir())
		return nil
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every reference without writing output",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		report, err := newBuilder().Validate(cmd.Context())
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), report)
		if !report.IsValid() {
			return errReported
		}
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:         "watch",
	Short:       "Build, then rebuild whenever a token file changes",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{consoleAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		builder := newBuilder()
		rebuild := func(ctx context.Context) {
			result, err := builder.Build(ctx)
			reportBuild(cmd, result, err)
		}
		rebuild(ctx)

		w, err := watch.New(cfg.SourceDir(), func(ctx context.Context, paths []string) {
			rebuild(ctx)
		}, watch.WithLogger(logger.Logger))
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer w.Stop()
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", accentStyle.Render("Watching"), cfg.SourceDir())
		<-ctx.Done()
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Serve the built CSS and token map, rebuilding on change",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{consoleAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		builder := newBuilder()
		server := preview.NewServer(preview.SettingsFromConfig(cfg),
			preview.WithBuilder(builder),
			preview.WithLogger(logger.Logger))
		rebuild := func(ctx context.Context) {
			result, err := builder.Build(ctx)
			server.Publish(result, err)
			reportBuild(cmd, result, err)
		}
		rebuild(ctx)

		w, err := watch.New(cfg.SourceDir(), func(ctx context.Context, paths []string) {
			rebuild(ctx)
		}, watch.WithLogger(logger.Logger))
		if err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Run(ctx)
		})
		g.Go(func() error {
			if err := w.Start(ctx); err != nil {
				return err
			}
			<-ctx.Done()
			w.Stop()
			return nil
		})
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", accentStyle.Render("Serving"), preview.SettingsFromConfig(cfg).URL())
		return g.Wait()
	},
}

var browseCmd = &cobra.Command{
	Use:   "browse [layer]",
	Short: "Browse resolved tokens in the terminal",
	Long: `Browse every token with its resolved value. The optional layer selects
the first tab: ingredients, recipes, flavors, or a flavor name.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved, _, err := newBuilder().Resolve(cmd.Context())
		if err != nil {
			return err
		}
		app := tui.NewApp(resolved, tui.WithTitle("◆ SANDO · "+filepath.Base(cfg.ProjectDir)))
		if len(args) == 1 {
			if err := app.SelectLayer(args[0]); err != nil {
				return err
			}
		}
		p := tea.NewProgram(app, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("browse: %w", err)
		}
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent builds",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, total := history.Tail(historyLines)
		out := cmd.OutOrStdout()
		if total == 0 {
			fmt.Fprintln(out, dimStyle.Render("No builds recorded yet."))
			return nil
		}
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
		fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%d of %d entries · %s", len(lines), total, history.Path())))
		return nil
	},
}

func init() {
	buildCmd.Flags().BoolVar(&noStrict, "no-strict", false, "write output even when validation reports errors")
	historyCmd.Flags().IntVarP(&historyLines, "lines", "n", 20, "number of entries to show")
}

// reportBuild prints the outcome of a rebuild in watch and serve mode.
// Failures are printed, never returned, so the loop keeps running.
func reportBuild(cmd *cobra.Command, result *build.Result, err error) {
	switch {
	case errors.Is(err, build.ErrValidationFailed):
		printReport(cmd.ErrOrStderr(), result.Report)
	case errors.Is(err, context.Canceled):
		// shutting down
	case err != nil:
		logger.Error("build failed", zap.Error(err))
		fmt.Fprintln(cmd.ErrOrStderr(), errorStyle.Render("error:"), err)
	default:
		printResult(cmd.OutOrStdout(), result, cfg.OutputDir())
	}
}
