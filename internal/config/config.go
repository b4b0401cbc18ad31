// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verustcode/ctreport/consts"
	"github.com/verustcode/ctreport/pkg/errors"
	"github.com/verustcode/ctreport/pkg/logger"
	"github.com/verustcode/ctreport/pkg/telemetry"
)

// DefaultConfigPath is read when no --config flag is given. The file is optional.
const DefaultConfigPath = "ctreport.yaml"

// Render modes
const (
	RenderModeScript = "script"
	RenderModeChrome = "chrome"
	RenderModeNone   = "none"
)

// Config is the complete ctreport configuration
type Config struct {
	Store     StoreConfig      `yaml:"store"`
	Output    OutputConfig     `yaml:"output"`
	Sections  []SectionConfig  `yaml:"sections"`
	Trailing  []SectionConfig  `yaml:"trailing"`
	Advisory  AdvisoryConfig   `yaml:"advisory"`
	Render    RenderConfig     `yaml:"render"`
	Logging   logger.Config    `yaml:"logging"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// StoreConfig controls how the notebook is read
type StoreConfig struct {
	// MaxDepth bounds tree loading and rendering recursion
	MaxDepth int `yaml:"max_depth"`
}

// OutputConfig controls where the report and its inputs live
type OutputConfig struct {
	// Dir receives <exam_date>/OSCP-<osid>-Exam-Report.md
	Dir string `yaml:"dir"`
	// ImagesDir receives extracted images and is used in image references
	ImagesDir string `yaml:"images_dir"`
	// TemplateDir holds the title template and the static sections
	TemplateDir string `yaml:"template_dir"`
	// TitleTemplate is relative to TemplateDir
	TitleTemplate string `yaml:"title_template"`
	// StaticDir is relative to TemplateDir
	StaticDir string `yaml:"static_dir"`
}

// SectionConfig is one static prose section
type SectionConfig struct {
	// File is relative to the static directory. Files ending in .tmpl are
	// rendered with text/template; others use positional {} substitution.
	File string `yaml:"file"`
	// Args are personal field keys substituted in order
	Args           []string `yaml:"args,omitempty"`
	PageBreakAfter bool     `yaml:"page_break_after,omitempty"`
}

// AdvisoryConfig configures the CVE lookup service
type AdvisoryConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// RateLimit caps lookups per second; 0 disables the limit
	RateLimit float64 `yaml:"rate_limit"`
}

// RenderConfig configures the step that turns the markdown into a PDF
type RenderConfig struct {
	// Mode is script, chrome or none
	Mode string `yaml:"mode"`
	// Script and Shell run as: <shell> <script> <osid> <exam_date>
	Script string `yaml:"script"`
	Shell  string `yaml:"shell"`
	// ChromePath overrides the browser used by the chrome renderer
	ChromePath string        `yaml:"chrome_path"`
	Timeout    time.Duration `yaml:"timeout"`
	// Language is a BCP 47 tag written to the HTML rendition
	Language string `yaml:"language"`
	// Verify checks the generated PDF and that every host name appears in it
	Verify bool `yaml:"verify"`
}

// DefaultSections returns the static sections placed before the host list
func DefaultSections() []SectionConfig {
	return []SectionConfig{
		{File: "header1.md"},
		{File: "introduction.md", Args: []string{"osid", "exam_date_long"}},
		{File: "hl-summary.md"},
		{File: "methodologies.md", PageBreakAfter: true},
		{File: "information-gathering.md"},
	}
}

// DefaultTrailing returns the static sections placed after the hosts
func DefaultTrailing() []SectionConfig {
	return []SectionConfig{
		{File: "housecleaning.md"},
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			MaxDepth: 64,
		},
		Output: OutputConfig{
			Dir:           "report",
			ImagesDir:     "images",
			TemplateDir:   "report-sections",
			TitleTemplate: "title.yml",
			StaticDir:     "static",
		},
		Sections: DefaultSections(),
		Trailing: DefaultTrailing(),
		Advisory: AdvisoryConfig{
			BaseURL:   "https://olbat.github.io/nvdcve/",
			Timeout:   30 * time.Second,
			RateLimit: 5,
		},
		Render: RenderConfig{
			Mode:     RenderModeScript,
			Script:   "docker_run.sh",
			Shell:    "/bin/sh",
			Timeout:  10 * time.Minute,
			Language: "en",
			Verify:   true,
		},
		Logging: logger.Config{
			Level:      "info",
			Format:     "text",
			MaxSize:    20,
			MaxAge:     7,
			MaxBackups: 3,
		},
		Telemetry: telemetry.Config{
			Enabled:     false,
			ServiceName: consts.ServiceName,
			OTLP: telemetry.OTLPConfig{
				Enabled:  false,
				Endpoint: "localhost:4317",
				Insecure: true,
			},
		},
	}
}

// Load reads path over the defaults, expands ${VAR} references and applies
// CTR_* environment overrides. A missing file is ErrCodeConfigNotFound.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeConfigNotFound, fmt.Sprintf("config file %s not found", path))
		}
		return nil, errors.Wrap(errors.ErrCodeConfigParse, "failed to read config", err)
	}

	expanded := expandEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeConfigParse, fmt.Sprintf("failed to parse %s", path), err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadOrDefault loads path. When the file is missing and required is false
// the defaults (with environment overrides) are returned instead.
func LoadOrDefault(path string, required bool) (*Config, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, nil
	}
	if !required && errors.Is(err, errors.ErrCodeConfigNotFound) {
		cfg = DefaultConfig()
		applyEnvOverrides(cfg)
		return cfg, nil
	}
	return nil, err
}

// Exists checks if a configuration file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteConfig writes cfg to path with the explanatory header
func WriteConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to marshal config", err)
	}
	if err := os.WriteFile(path, []byte(configHeader+string(data)), 0644); err != nil {
		return errors.Wrap(errors.ErrCodeWrite, "failed to write config", err)
	}
	return nil
}

// configHeader is the comment header for ctreport.yaml
const configHeader = `# ctreport configuration
#
# Environment Variable Support:
#   - Use ${VAR_NAME} or ${VAR_NAME:-default} in values to reference environment variables
#   - Or use CTR_* environment variables to override:
#     CTR_OUTPUT_DIR, CTR_IMAGES_DIR, CTR_TEMPLATE_DIR, CTR_MAX_DEPTH
#     CTR_ADVISORY_BASE_URL, CTR_ADVISORY_TIMEOUT
#     CTR_RENDER_MODE, CTR_RENDER_SCRIPT, CTR_CHROME_PATH, CTR_RENDER_LANGUAGE
#     CTR_LOG_LEVEL, CTR_LOG_FORMAT, CTR_LOG_FILE
#     CTR_TELEMETRY_ENABLED, CTR_OTLP_ENABLED, CTR_OTLP_ENDPOINT, CTR_METRICS_FILE
#

`

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with environment variable values.
// ${VAR_NAME:-default} falls back to default when the variable is unset or empty.
func expandEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		parts := strings.SplitN(match[2:len(match)-1], ":-", 2)
		if value := os.Getenv(parts[0]); value != "" {
			return value
		}
		if len(parts) > 1 {
			return parts[1]
		}
		return ""
	})
}

// applyEnvOverrides applies CTR_* environment variable overrides
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CTR_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("CTR_IMAGES_DIR"); v != "" {
		cfg.Output.ImagesDir = v
	}
	if v := os.Getenv("CTR_TEMPLATE_DIR"); v != "" {
		cfg.Output.TemplateDir = v
	}
	if v := os.Getenv("CTR_MAX_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.MaxDepth = n
		}
	}

	if v := os.Getenv("CTR_ADVISORY_BASE_URL"); v != "" {
		cfg.Advisory.BaseURL = v
	}
	if v := os.Getenv("CTR_ADVISORY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Advisory.Timeout = d
		}
	}

	if v := os.Getenv("CTR_RENDER_MODE"); v != "" {
		cfg.Render.Mode = v
	}
	if v := os.Getenv("CTR_RENDER_SCRIPT"); v != "" {
		cfg.Render.Script = v
	}
	if v := os.Getenv("CTR_CHROME_PATH"); v != "" {
		cfg.Render.ChromePath = v
	}
	if v := os.Getenv("CTR_RENDER_LANGUAGE"); v != "" {
		cfg.Render.Language = v
	}

	if v := os.Getenv("CTR_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CTR_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CTR_LOG_FILE"); v != "" {
		cfg.Logging.File = v
	}

	if v := os.Getenv("CTR_TELEMETRY_ENABLED"); v != "" {
		cfg.Telemetry.Enabled = parseBool(v)
	}
	if v := os.Getenv("CTR_OTLP_ENABLED"); v != "" {
		cfg.Telemetry.OTLP.Enabled = parseBool(v)
	}
	if v := os.Getenv("CTR_OTLP_ENDPOINT"); v != "" {
		cfg.Telemetry.OTLP.Endpoint = v
	}
	if v := os.Getenv("CTR_METRICS_FILE"); v != "" {
		cfg.Telemetry.MetricsFile = v
	}
}

// parseBool parses a boolean string value
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}
