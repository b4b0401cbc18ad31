package check

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fatih/color"

	"github.com/verustcode/ctreport/internal/advisory"
	"github.com/verustcode/ctreport/internal/config"
	"github.com/verustcode/ctreport/internal/database"
	"github.com/verustcode/ctreport/internal/model"
	"github.com/verustcode/ctreport/internal/report"
	"github.com/verustcode/ctreport/internal/richtext"
	"github.com/verustcode/ctreport/internal/store"
)

// templatePattern matches every file the template directory may hold
const templatePattern = "**/*.{md,yml,yaml,tmpl}"

// chromeCandidates are looked up when no chrome_path is configured
var chromeCandidates = []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"}

var execLookPath = exec.LookPath

// ValidationResult represents the result of one validation
type ValidationResult struct {
	Path  string
	Valid bool
	// Count is what the validation found: templates, hosts
	Count    int
	Unit     string
	Error    error
	Warnings []string
}

// samplePersonal fills templates during validation
var samplePersonal = &model.Personal{
	Name:     "Jane Doe",
	ExamDate: "01-02-2006",
	OSID:     "OS-00000",
	Email:    "jane@example.com",
}

// validateConfig validates the loaded configuration values
func (c *Checker) validateConfig(cfg *config.Config) ValidationResult {
	result := ValidationResult{Path: c.configPath}
	if err := config.Validate(cfg); err != nil {
		result.Error = err
		return result
	}
	result.Valid = true
	return result
}

// validateTemplates renders the title and every configured section with
// sample data. Files on disk that no section references are reported.
func (c *Checker) validateTemplates(cfg *config.Config) ValidationResult {
	dir := cfg.Output.TemplateDir
	result := ValidationResult{Path: dir, Unit: "templates"}

	var onDisk []string
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		onDisk, err = doublestar.Glob(os.DirFS(dir), templatePattern)
		if err != nil {
			result.Error = fmt.Errorf("failed to list templates: %w", err)
			return result
		}
		sort.Strings(onDisk)
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s not found, using the built-in templates", dir))
	}
	result.Count = len(onDisk)

	tpl := report.NewTemplates(cfg.Output.TitleTemplate, cfg.Output.StaticDir, report.DefaultLayers(dir)...)
	if _, err := tpl.Title(samplePersonal, nil); err != nil {
		result.Error = fmt.Errorf("title %s: %w", cfg.Output.TitleTemplate, err)
		return result
	}

	used := map[string]bool{cfg.Output.TitleTemplate: true}
	for _, s := range append(append([]config.SectionConfig{}, cfg.Sections...), cfg.Trailing...) {
		used[path.Join(cfg.Output.StaticDir, s.File)] = true
		if _, err := tpl.Section(s, samplePersonal, []string{"10.0.0.1"}); err != nil {
			result.Error = fmt.Errorf("section %s: %w", s.File, err)
			return result
		}
	}

	for _, name := range onDisk {
		if !used[name] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s is not used by any section", name))
		}
	}

	result.Valid = true
	return result
}

// validateRenderer checks that the selected render mode can run
func (c *Checker) validateRenderer(cfg *config.Config) ValidationResult {
	result := ValidationResult{Path: "render: " + cfg.Render.Mode}

	switch cfg.Render.Mode {
	case config.RenderModeScript:
		if _, err := c.lookPath(cfg.Render.Shell); err != nil {
			result.Error = fmt.Errorf("shell %s not found", cfg.Render.Shell)
			return result
		}
		if !fileExists(cfg.Render.Script) {
			result.Error = fmt.Errorf("render script %s not found", cfg.Render.Script)
			return result
		}
		if _, err := c.lookPath("docker"); err != nil {
			result.Warnings = append(result.Warnings, "docker not found; the default render script needs it")
		}
	case config.RenderModeChrome:
		if cfg.Render.ChromePath != "" {
			if !fileExists(cfg.Render.ChromePath) {
				result.Error = fmt.Errorf("chrome %s not found", cfg.Render.ChromePath)
				return result
			}
			break
		}
		if !c.anyExecutable(chromeCandidates) {
			result.Warnings = append(result.Warnings, "no Chrome or Chromium found in PATH")
		}
	case config.RenderModeNone:
		result.Warnings = append(result.Warnings, "rendering is disabled; only markdown is written")
	default:
		result.Error = fmt.Errorf("unknown render mode %q", cfg.Render.Mode)
		return result
	}

	result.Valid = true
	return result
}

func (c *Checker) anyExecutable(names []string) bool {
	for _, name := range names {
		if _, err := c.lookPath(name); err == nil {
			return true
		}
	}
	return false
}

// validateNotebook assembles the report in memory without network access,
// so every structural problem a real run would hit is found here.
func (c *Checker) validateNotebook(cfg *config.Config) ValidationResult {
	result := ValidationResult{Path: c.notebook, Unit: "hosts"}
	ctx := context.Background()

	db, err := database.Open(c.notebook, database.Options{ReadOnly: true})
	if err != nil {
		result.Error = err
		return result
	}
	defer database.Close(db)

	st := store.NewStore(db)
	if err := st.CheckSchema(); err != nil {
		result.Error = err
		return result
	}

	nodes := st.Nodes()
	tpl := report.NewTemplates(cfg.Output.TitleTemplate, cfg.Output.StaticDir, report.DefaultLayers(cfg.Output.TemplateDir)...)
	asm := report.NewAssembler(nodes, richtext.New(nodes, richtext.NewMemorySink()), offlineLookuper{}, tpl, report.Options{
		Sections: cfg.Sections,
		Trailing: cfg.Trailing,
		MaxDepth: cfg.Store.MaxDepth,
	}, nil)

	assembled, err := asm.Assemble(ctx)
	if err != nil {
		result.Error = err
		return result
	}
	result.Count = len(assembled.Hosts)
	if result.Count == 0 {
		result.Warnings = append(result.Warnings, "the Hosts node has no children")
	}

	result.Valid = true
	return result
}

// offlineLookuper answers every CVE lookup with the bare identifier
type offlineLookuper struct{}

func (offlineLookuper) Lookup(_ context.Context, id string) (*advisory.Advisory, error) {
	return &advisory.Advisory{ID: id}, nil
}

// printValidationResult prints a single validation result
func (c *Checker) printValidationResult(result ValidationResult) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	switch {
	case result.Valid && result.Unit != "":
		green.Fprintf(c.out, "  ✓ %s (%d %s)\n", result.Path, result.Count, result.Unit)
	case result.Valid:
		green.Fprintf(c.out, "  ✓ %s\n", result.Path)
	default:
		red.Fprintf(c.out, "  ✗ %s: %v\n", result.Path, result.Error)
	}

	for _, warning := range result.Warnings {
		yellow.Fprintf(c.out, "    └─ %s\n", warning)
	}
}
