// Package main is the entry point for ctreport.
// ctreport turns a CherryTree notebook into an OSCP exam report.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verustcode/ctreport/consts"
	"github.com/verustcode/ctreport/internal/check"
	"github.com/verustcode/ctreport/internal/config"
	"github.com/verustcode/ctreport/internal/configfiles"
	"github.com/verustcode/ctreport/internal/report"
	"github.com/verustcode/ctreport/pkg/errors"
	"github.com/verustcode/ctreport/pkg/logger"
	"github.com/verustcode/ctreport/pkg/telemetry"
)

// Build information - set via ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func init() {
	consts.Version = Version
	consts.BuildTime = BuildTime
	consts.GitCommit = GitCommit
}

// configPath holds the path to the configuration file
var configPath string

var rootCmd = &cobra.Command{
	Use:   "ctreport",
	Short: "ctreport - OSCP exam report generator for CherryTree notebooks",
	Long: `ctreport reads a CherryTree .ctb notebook and writes an OSCP exam
report in pandoc markdown, then renders it to PDF.

First time setup:
  ctreport init

Then generate the report:
  ctreport generate notes.ctb`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate <notebook.ctb>",
	Short: "Generate the report from a notebook",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

var checkCmd = &cobra.Command{
	Use:   "check [notebook.ctb]",
	Short: "Check the configuration, templates and render toolchain",
	Long: `Check the environment before generating a report. By default missing
files are offered for creation. With a notebook argument the report is also
assembled in memory to find structural problems in the notes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default configuration, templates and render script",
	RunE:  runInit,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("%s %s\n", consts.ProjectName, Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: "+config.DefaultConfigPath+")")

	rootCmd.AddCommand(generateCmd, checkCmd, initCmd, versionCmd)

	generateCmd.Flags().StringP("output", "o", "", "report directory (overrides config)")
	generateCmd.Flags().String("images", "", "image directory (overrides config)")
	generateCmd.Flags().String("render", "", "render mode: script, chrome or none (overrides config)")
	generateCmd.Flags().Bool("no-render", false, "only write the markdown")
	generateCmd.Flags().Bool("watch", false, "regenerate whenever the notebook changes")
	generateCmd.Flags().Duration("debounce", 2*time.Second, "quiet period before regenerating in watch mode")
	generateCmd.Flags().Bool("debug", false, "enable debug logging")

	checkCmd.Flags().Bool("non-interactive", false, "never prompt or create files")

	initCmd.Flags().Bool("force", false, "overwrite existing files without asking")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("Error:"), err)
		if appErr, ok := errors.AsAppError(err); ok {
			os.Exit(appErr.ExitCode())
		}
		os.Exit(errors.ExitCodeFailure)
	}
}

// loadConfig reads the configuration. The default path is optional; an
// explicit --config must exist.
func loadConfig() (*config.Config, error) {
	path := configPath
	required := path != ""
	if path == "" {
		path = config.DefaultConfigPath
	}
	return config.LoadOrDefault(path, required)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	consts.SetStartedAt(time.Now())
	notebook := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetString("output"); v != "" {
		cfg.Output.Dir = v
	}
	if v, _ := cmd.Flags().GetString("images"); v != "" {
		cfg.Output.ImagesDir = v
	}
	if v, _ := cmd.Flags().GetString("render"); v != "" {
		cfg.Render.Mode = v
	}
	if noRender, _ := cmd.Flags().GetBool("no-render"); noRender {
		cfg.Render.Mode = config.RenderModeNone
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Logging.Level = "debug"
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return errors.Wrap(errors.ErrCodeConfigInvalid, "failed to initialize logger", err)
	}
	defer logger.Sync()

	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to initialize telemetry", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown telemetry", zap.Error(err))
		}
	}()

	opts := []report.GeneratorOption{}
	if tel.IsEnabled() {
		opts = append(opts, report.WithGeneratorMetrics(telemetry.GetMetrics()))
	}
	gen, err := report.NewGenerator(cfg, opts...)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Starting ctreport", zap.String("version", Version))

	generate := func(ctx context.Context) error {
		out, err := gen.Generate(ctx, notebook)
		if err != nil {
			return err
		}
		printOutput(out)
		return nil
	}

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		debounce, _ := cmd.Flags().GetDuration("debounce")
		if err := generate(ctx); err != nil {
			logger.Error("Report generation failed", zap.Error(err))
		}
		return watchNotebook(ctx, notebook, debounce, func(ctx context.Context) {
			if err := generate(ctx); err != nil {
				logger.Error("Report generation failed", zap.Error(err))
			}
		})
	}
	return generate(ctx)
}

func printOutput(out *report.Output) {
	green := color.New(color.FgGreen, color.Bold)
	green.Printf("✓ Report generated in %s\n", out.Duration.Round(time.Millisecond))
	fmt.Printf("  Markdown: %s\n", out.MarkdownPath)
	if out.PDFPath != "" {
		fmt.Printf("  PDF:      %s\n", out.PDFPath)
	}
	fmt.Printf("  Hosts:    %d\n", len(out.Hosts))
	fmt.Printf("  Images:   %d\n", len(out.Images))
}

func runCheck(cmd *cobra.Command, args []string) error {
	var opts []check.Option
	if len(args) == 1 {
		opts = append(opts, check.WithNotebook(args[0]))
	}
	checker := check.NewChecker(configPath, opts...)

	nonInteractive, _ := cmd.Flags().GetBool("non-interactive")
	if nonInteractive || !interactiveTerminal() {
		result := checker.RunNonInteractive()
		check.PrintCheckResult(os.Stdout, result)
		if !result.Success {
			return errors.New(errors.ErrCodeInvalidInput, "environment check failed")
		}
		return nil
	}

	if err := checker.Run(); err != nil {
		return err
	}
	if checker.Report().Summary().HasErrors {
		return errors.New(errors.ErrCodeInvalidInput, "environment check failed")
	}
	return nil
}

// interactiveTerminal reports whether prompts can be shown
func interactiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func runInit(cmd *cobra.Command, args []string) error {
	force, _ := cmd.Flags().GetBool("force")

	path := configPath
	if path == "" {
		path = config.DefaultConfigPath
	}

	cfg := config.DefaultConfig()
	if config.Exists(path) {
		existing, err := config.Load(path)
		if err == nil {
			cfg = existing
		}
		if !force {
			if !interactiveTerminal() {
				return errors.New(errors.ErrCodeInvalidInput, path+" already exists; use --force to overwrite")
			}
			overwrite := false
			err := huh.NewConfirm().
				Title(fmt.Sprintf("%s already exists. Overwrite it and the templates?", path)).
				Affirmative("Yes").
				Negative("No").
				Value(&overwrite).
				Run()
			if err != nil {
				return errors.Wrap(errors.ErrCodeInternal, "failed to get user confirmation", err)
			}
			force = overwrite
		}
	}

	green := color.New(color.FgGreen)
	if force || !config.Exists(path) {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return errors.Wrap(errors.ErrCodeWrite, "failed to create config directory", err)
		}
		if err := config.WriteConfig(path, cfg); err != nil {
			return err
		}
		green.Printf("  ✓ %s\n", path)
	}

	script := ""
	if cfg.Render.Mode == config.RenderModeScript {
		script = cfg.Render.Script
	}
	written, err := configfiles.Install(cfg.Output.TemplateDir, script, force)
	if err != nil {
		return errors.Wrap(errors.ErrCodeWrite, "failed to install templates", err)
	}
	for _, f := range written {
		green.Printf("  ✓ %s\n", f)
	}
	fmt.Printf("\nWrote %d file(s). Run 'ctreport check' to verify the setup.\n", len(written))
	return nil
}
