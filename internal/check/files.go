package check

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/verustcode/ctreport/internal/config"
	"github.com/verustcode/ctreport/internal/configfiles"
)

// FileCheckResult represents the result of a file check
type FileCheckResult struct {
	Path        string
	Exists      bool
	Created     bool
	Description string
	Error       error
}

// checkFiles checks the configuration file and offers to write the defaults
func (c *Checker) checkFiles() error {
	result := c.ensureFile(c.configPath, "ctreport configuration", func() error {
		return config.WriteConfig(c.configPath, config.DefaultConfig())
	})
	c.report.AddFileResult(result)
	return result.Error
}

// checkTemplateFiles checks the template directory and the render script.
// Missing templates fall back to the embedded defaults, so declining
// creation is not an error.
func (c *Checker) checkTemplateFiles(cfg *config.Config) error {
	dir := cfg.Output.TemplateDir
	result := c.ensureFile(dir, "report templates", func() error {
		written, err := configfiles.Install(dir, "", false)
		if err == nil {
			color.New(color.FgGreen).Fprintf(c.out, "  ✓ Installed %d template(s) in %s\n", len(written), dir)
		}
		return err
	})
	c.report.AddFileResult(result)
	if result.Error != nil {
		return result.Error
	}

	if cfg.Render.Mode != config.RenderModeScript {
		return nil
	}
	script := filepath.Clean(cfg.Render.Script)
	result = c.ensureFile(script, "render script", func() error {
		data, err := configfiles.GetRenderScript()
		if err != nil {
			return err
		}
		if err := ensureDir(script); err != nil {
			return err
		}
		return os.WriteFile(script, data, 0755)
	})
	c.report.AddFileResult(result)
	return result.Error
}

// ensureFile reports whether path exists and, if not, asks to create it
func (c *Checker) ensureFile(path, description string, create func() error) FileCheckResult {
	result := FileCheckResult{
		Path:        path,
		Description: description,
	}

	if fileExists(path) {
		result.Exists = true
		c.printFileStatus(path, true, false)
		return result
	}

	c.printFileStatus(path, false, false)

	confirm, err := c.confirm(fmt.Sprintf("Create %s (%s) from the defaults?", path, description))
	if err != nil {
		result.Error = fmt.Errorf("failed to get user confirmation: %w", err)
		return result
	}
	if !confirm {
		return result
	}

	if err := create(); err != nil {
		result.Error = fmt.Errorf("failed to create %s: %w", path, err)
		return result
	}

	result.Exists = true
	result.Created = true
	c.printFileStatus(path, true, true)
	return result
}

// ensureDir creates the parent directory of path if it doesn't exist
func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// printFileStatus prints the status of a file check
func (c *Checker) printFileStatus(path string, exists, created bool) {
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	switch {
	case created:
		green.Fprintf(c.out, "  ✓ %s (created)\n", path)
	case exists:
		green.Fprintf(c.out, "  ✓ %s\n", path)
	default:
		yellow.Fprintf(c.out, "  ⚠ %s does not exist\n", path)
	}
}
