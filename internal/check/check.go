// Package check provides interactive environment checking and initialization.
// It verifies the configuration, the report templates, the render toolchain
// and optionally a notebook before a report is generated.
package check

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/verustcode/ctreport/internal/config"
)

// CheckResult represents the result of a non-interactive environment check
type CheckResult struct {
	// Success indicates whether all required checks passed
	Success bool
	// Errors contains problems that prevent report generation
	Errors []string
	// Warnings contains non-critical issues
	Warnings []string
	// Suggestions contains helpful tips for fixing issues
	Suggestions []string
}

func newCheckResult() *CheckResult {
	return &CheckResult{
		Success:     true,
		Errors:      make([]string, 0),
		Warnings:    make([]string, 0),
		Suggestions: make([]string, 0),
	}
}

func (r *CheckResult) fail(format string, args ...any) {
	r.Success = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *CheckResult) warn(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ConfirmFunc asks the user a yes/no question
type ConfirmFunc func(question string) (bool, error)

// Checker handles environment checking and initialization
type Checker struct {
	// configPath is the ctreport configuration file
	configPath string
	// notebook is checked when set
	notebook string
	// report collects check results for final output
	report  *Report
	out     io.Writer
	confirm ConfirmFunc
	// lookPath resolves executables; replaced in tests
	lookPath func(string) (string, error)
}

// Option configures a Checker
type Option func(*Checker)

// WithNotebook also checks the notebook at path
func WithNotebook(path string) Option {
	return func(c *Checker) { c.notebook = path }
}

// WithOutput redirects the printed report
func WithOutput(w io.Writer) Option {
	return func(c *Checker) { c.out = w }
}

// WithConfirm replaces the interactive prompt
func WithConfirm(fn ConfirmFunc) Option {
	return func(c *Checker) { c.confirm = fn }
}

// NewChecker creates a new environment checker for the configuration at configPath
func NewChecker(configPath string, opts ...Option) *Checker {
	if configPath == "" {
		configPath = config.DefaultConfigPath
	}
	c := &Checker{
		configPath: configPath,
		report:     NewReport(),
		out:        os.Stdout,
		confirm:    confirmCreate,
		lookPath:   execLookPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Report returns the collected results
func (c *Checker) Report() *Report {
	return c.report
}

// Run executes the full interactive check. Missing files are offered for
// creation from the embedded defaults.
func (c *Checker) Run() error {
	c.printHeader()

	fmt.Fprintln(c.out)
	c.printSection("Checking configuration files")
	if err := c.checkFiles(); err != nil {
		return fmt.Errorf("file check failed: %w", err)
	}

	cfg, err := config.LoadOrDefault(c.configPath, false)
	if err != nil {
		c.report.AddValidationResult(ValidationResult{Path: c.configPath, Error: err})
		fmt.Fprintln(c.out)
		c.report.Print(c.out)
		return fmt.Errorf("config validation failed: %w", err)
	}

	fmt.Fprintln(c.out)
	c.printSection("Checking report templates")
	if err := c.checkTemplateFiles(cfg); err != nil {
		return fmt.Errorf("template check failed: %w", err)
	}

	fmt.Fprintln(c.out)
	c.printSection("Validating configuration")
	for _, result := range c.validate(cfg) {
		c.report.AddValidationResult(result)
		c.printValidationResult(result)
	}

	fmt.Fprintln(c.out)
	c.report.Print(c.out)
	return nil
}

// validate runs every non-interactive validation in order
func (c *Checker) validate(cfg *config.Config) []ValidationResult {
	results := []ValidationResult{
		c.validateConfig(cfg),
		c.validateTemplates(cfg),
		c.validateRenderer(cfg),
	}
	if c.notebook != "" {
		results = append(results, c.validateNotebook(cfg))
	}
	return results
}

// RunNonInteractive performs the check without prompting or creating files
func (c *Checker) RunNonInteractive() *CheckResult {
	result := newCheckResult()

	if !fileExists(c.configPath) {
		result.warn("Configuration file not found: %s (using defaults)", c.configPath)
	}
	cfg, err := config.LoadOrDefault(c.configPath, false)
	if err != nil {
		result.fail("Invalid configuration %s: %v", c.configPath, err)
		result.Suggestions = append(result.Suggestions,
			"Run 'ctreport init --force' to write a fresh configuration")
		return result
	}

	for _, v := range c.validate(cfg) {
		if !v.Valid {
			result.fail("%s: %v", v.Path, v.Error)
		}
		result.Warnings = append(result.Warnings, v.Warnings...)
	}

	if !result.Success {
		result.Suggestions = append(result.Suggestions,
			"Run 'ctreport check' to interactively create missing files",
		)
	}
	return result
}

// printHeader prints the welcome header
func (c *Checker) printHeader() {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		MarginBottom(1)

	fmt.Fprintln(c.out, titleStyle.Render("ctreport environment check"))
}

// printSection prints a section header
func (c *Checker) printSection(title string) {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("15"))
	fmt.Fprintln(c.out, style.Render(title+"..."))
}

// confirmCreate asks user to confirm file creation
func confirmCreate(question string) (bool, error) {
	var confirm bool
	err := huh.NewConfirm().
		Title(question).
		Affirmative("Yes").
		Negative("No").
		Value(&confirm).
		WithTheme(huh.ThemeCharm()).
		Run()
	if err != nil {
		return false, err
	}
	return confirm, nil
}

// fileExists checks if a file exists
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// PrintCheckResult prints the check result in a formatted way
func PrintCheckResult(w io.Writer, result *CheckResult) {
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	if len(result.Errors) > 0 {
		fmt.Fprintln(w)
		red.Fprintln(w, "[ERROR] Environment check failed")
		fmt.Fprintln(w)
		for _, err := range result.Errors {
			red.Fprintf(w, "  ✗ %s\n", err)
		}
	}

	if len(result.Warnings) > 0 {
		fmt.Fprintln(w)
		yellow.Fprintln(w, "[WARNING] Configuration warnings:")
		fmt.Fprintln(w)
		for _, warn := range result.Warnings {
			yellow.Fprintf(w, "  ⚠ %s\n", warn)
		}
	}

	if len(result.Suggestions) > 0 {
		cyan.Fprintln(w, "\nTo fix these issues:")
		for _, suggestion := range result.Suggestions {
			fmt.Fprintf(w, "  → %s\n", suggestion)
		}
	}

	fmt.Fprintln(w)
}
