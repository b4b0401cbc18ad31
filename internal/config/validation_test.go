package config

import (
	"strings"
	"testing"

	"github.com/verustcode/ctreport/pkg/errors"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"zero depth", func(c *Config) { c.Store.MaxDepth = 0 }, "store.max_depth"},
		{"no output dir", func(c *Config) { c.Output.Dir = "" }, "output.dir"},
		{"relative base url", func(c *Config) { c.Advisory.BaseURL = "nvdcve/" }, "advisory.base_url"},
		{"ftp base url", func(c *Config) { c.Advisory.BaseURL = "ftp://example.com/" }, "advisory.base_url"},
		{"unknown render mode", func(c *Config) { c.Render.Mode = "latex" }, "render.mode"},
		{"script mode without script", func(c *Config) { c.Render.Script = "" }, "render.script"},
		{"none mode without script", func(c *Config) { c.Render.Mode = RenderModeNone; c.Render.Script = "" }, ""},
		{"bad language", func(c *Config) { c.Render.Language = "not a language" }, "render.language"},
		{"bad log level", func(c *Config) { c.Logging.Level = "trace" }, "logging.level"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"section without file", func(c *Config) { c.Sections = append(c.Sections, SectionConfig{}) }, "sections[5].file"},
		{"section escaping static dir", func(c *Config) { c.Trailing[0].File = "../secret.md" }, "trailing[0].file"},
		{"unknown section arg", func(c *Config) { c.Sections[1].Args = []string{"osid", "birthday"} }, `unknown field "birthday"`},
		{
			"otlp without endpoint",
			func(c *Config) {
				c.Telemetry.Enabled = true
				c.Telemetry.OTLP.Enabled = true
				c.Telemetry.OTLP.Endpoint = ""
			},
			"telemetry.otlp.endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)

			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error = %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q", tt.wantErr)
			}
			if !errors.Is(err, errors.ErrCodeConfigInvalid) {
				t.Errorf("Validate() error code = %v, want ConfigInvalid", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.MaxDepth = -1
	cfg.Render.Mode = "bogus"

	err := Validate(cfg)
	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %v", err)
	}
	problems, ok := appErr.Details.([]string)
	if !ok {
		t.Fatalf("Details = %T, want []string", appErr.Details)
	}
	if len(problems) != 2 {
		t.Errorf("len(problems) = %d, want 2: %v", len(problems), problems)
	}
}
