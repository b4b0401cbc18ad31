package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/verustcode/ctreport/internal/model"
	"github.com/verustcode/ctreport/pkg/errors"
)

var validLogLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// Validate checks the configuration and reports every problem at once
func Validate(cfg *Config) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if cfg.Store.MaxDepth <= 0 {
		add("store.max_depth must be positive, got %d", cfg.Store.MaxDepth)
	}

	if cfg.Output.Dir == "" {
		add("output.dir is required")
	}
	if cfg.Output.ImagesDir == "" {
		add("output.images_dir is required")
	}
	if cfg.Output.TemplateDir == "" {
		add("output.template_dir is required")
	}
	if cfg.Output.TitleTemplate == "" {
		add("output.title_template is required")
	}

	validateSections(cfg.Sections, "sections", add)
	validateSections(cfg.Trailing, "trailing", add)

	if u, err := url.Parse(cfg.Advisory.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("advisory.base_url %q must be an absolute http(s) URL", cfg.Advisory.BaseURL)
	}
	if cfg.Advisory.Timeout < 0 {
		add("advisory.timeout must not be negative")
	}
	if cfg.Advisory.RateLimit < 0 {
		add("advisory.rate_limit must not be negative")
	}

	switch cfg.Render.Mode {
	case RenderModeScript:
		if cfg.Render.Script == "" || cfg.Render.Shell == "" {
			add("render.script and render.shell are required in script mode")
		}
	case RenderModeChrome, RenderModeNone:
	default:
		add("render.mode %q must be one of %s, %s, %s", cfg.Render.Mode, RenderModeScript, RenderModeChrome, RenderModeNone)
	}
	if cfg.Render.Timeout < 0 {
		add("render.timeout must not be negative")
	}
	if _, err := ParseLanguage(cfg.Render.Language); err != nil {
		add("render.language %q is not a valid language tag", cfg.Render.Language)
	}

	if !validLogLevels[strings.ToLower(cfg.Logging.Level)] {
		add("logging.level %q must be debug, info, warn or error", cfg.Logging.Level)
	}
	if f := cfg.Logging.Format; f != "text" && f != "json" {
		add("logging.format %q must be text or json", f)
	}

	if cfg.Telemetry.Enabled && cfg.Telemetry.OTLP.Enabled && cfg.Telemetry.OTLP.Endpoint == "" {
		add("telemetry.otlp.endpoint is required when OTLP export is enabled")
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New(errors.ErrCodeConfigInvalid, "invalid configuration: "+strings.Join(problems, "; ")).
		WithDetails(problems)
}

func validateSections(sections []SectionConfig, key string, add func(string, ...any)) {
	for i, s := range sections {
		if s.File == "" {
			add("%s[%d].file is required", key, i)
			continue
		}
		if filepath.IsAbs(s.File) || strings.HasPrefix(filepath.Clean(s.File), "..") {
			add("%s[%d].file %q must be relative to the static directory", key, i, s.File)
		}
		for _, arg := range s.Args {
			if !model.IsPersonalField(arg) {
				add("%s[%d] references unknown field %q (known: %s)", key, i, arg, strings.Join(model.PersonalFields, ", "))
			}
		}
	}
}
