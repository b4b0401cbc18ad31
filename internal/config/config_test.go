package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/verustcode/ctreport/pkg/errors"
)

// TestDefaultConfig tests the DefaultConfig function
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Store.MaxDepth != 64 {
		t.Errorf("Store.MaxDepth = %v, want 64", cfg.Store.MaxDepth)
	}
	if cfg.Output.Dir != "report" {
		t.Errorf("Output.Dir = %v, want report", cfg.Output.Dir)
	}
	if cfg.Output.ImagesDir != "images" {
		t.Errorf("Output.ImagesDir = %v, want images", cfg.Output.ImagesDir)
	}
	if cfg.Output.TemplateDir != "report-sections" {
		t.Errorf("Output.TemplateDir = %v, want report-sections", cfg.Output.TemplateDir)
	}
	if cfg.Advisory.BaseURL != "https://olbat.github.io/nvdcve/" {
		t.Errorf("Advisory.BaseURL = %v", cfg.Advisory.BaseURL)
	}
	if cfg.Render.Mode != RenderModeScript {
		t.Errorf("Render.Mode = %v, want script", cfg.Render.Mode)
	}
	if cfg.Render.Shell != "/bin/sh" || cfg.Render.Script != "docker_run.sh" {
		t.Errorf("Render = %s %s, want /bin/sh docker_run.sh", cfg.Render.Shell, cfg.Render.Script)
	}

	wantFiles := []string{"header1.md", "introduction.md", "hl-summary.md", "methodologies.md", "information-gathering.md"}
	if len(cfg.Sections) != len(wantFiles) {
		t.Fatalf("len(Sections) = %d, want %d", len(cfg.Sections), len(wantFiles))
	}
	for i, f := range wantFiles {
		if cfg.Sections[i].File != f {
			t.Errorf("Sections[%d].File = %s, want %s", i, cfg.Sections[i].File, f)
		}
	}
	if !cfg.Sections[3].PageBreakAfter {
		t.Error("methodologies.md should be followed by a page break")
	}
	if got := cfg.Sections[1].Args; len(got) != 2 || got[0] != "osid" || got[1] != "exam_date_long" {
		t.Errorf("introduction args = %v", got)
	}
	if len(cfg.Trailing) != 1 || cfg.Trailing[0].File != "housecleaning.md" {
		t.Errorf("Trailing = %v", cfg.Trailing)
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("CTR_TEST_OSCP_MIRROR", "https://mirror.example/nvd/")

	path := filepath.Join(t.TempDir(), "ctreport.yaml")
	content := `
output:
  dir: out
advisory:
  base_url: ${CTR_TEST_OSCP_MIRROR}
  timeout: 5s
render:
  mode: none
  language: ${CTR_TEST_UNSET_LANG:-de}
sections:
  - file: intro.md.tmpl
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Output.Dir != "out" {
		t.Errorf("Output.Dir = %v, want out", cfg.Output.Dir)
	}
	// unspecified values keep their defaults
	if cfg.Output.ImagesDir != "images" {
		t.Errorf("Output.ImagesDir = %v, want images", cfg.Output.ImagesDir)
	}
	if cfg.Advisory.BaseURL != "https://mirror.example/nvd/" {
		t.Errorf("Advisory.BaseURL = %v", cfg.Advisory.BaseURL)
	}
	if cfg.Advisory.Timeout != 5*time.Second {
		t.Errorf("Advisory.Timeout = %v, want 5s", cfg.Advisory.Timeout)
	}
	if cfg.Render.Mode != RenderModeNone {
		t.Errorf("Render.Mode = %v, want none", cfg.Render.Mode)
	}
	if cfg.Render.Language != "de" {
		t.Errorf("Render.Language = %v, want de", cfg.Render.Language)
	}
	if len(cfg.Sections) != 1 || cfg.Sections[0].File != "intro.md.tmpl" {
		t.Errorf("Sections = %v", cfg.Sections)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CTR_OUTPUT_DIR", "/tmp/reports")
	t.Setenv("CTR_RENDER_MODE", "chrome")
	t.Setenv("CTR_MAX_DEPTH", "12")
	t.Setenv("CTR_ADVISORY_TIMEOUT", "2s")
	t.Setenv("CTR_TELEMETRY_ENABLED", "yes")
	t.Setenv("CTR_LOG_LEVEL", "debug")

	path := filepath.Join(t.TempDir(), "ctreport.yaml")
	if err := os.WriteFile(path, []byte("output:\n  dir: ignored\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Output.Dir != "/tmp/reports" {
		t.Errorf("Output.Dir = %v, want /tmp/reports", cfg.Output.Dir)
	}
	if cfg.Render.Mode != RenderModeChrome {
		t.Errorf("Render.Mode = %v, want chrome", cfg.Render.Mode)
	}
	if cfg.Store.MaxDepth != 12 {
		t.Errorf("Store.MaxDepth = %v, want 12", cfg.Store.MaxDepth)
	}
	if cfg.Advisory.Timeout != 2*time.Second {
		t.Errorf("Advisory.Timeout = %v, want 2s", cfg.Advisory.Timeout)
	}
	if !cfg.Telemetry.Enabled {
		t.Error("Telemetry.Enabled should be true")
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %v, want debug", cfg.Logging.Level)
	}
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	if !errors.Is(err, errors.ErrCodeConfigNotFound) {
		t.Errorf("missing file: got %v, want ConfigNotFound", err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(bad, []byte("store: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = Load(bad)
	if !errors.Is(err, errors.ErrCodeConfigParse) {
		t.Errorf("bad yaml: got %v, want ConfigParse", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := LoadOrDefault(missing, false)
	if err != nil {
		t.Fatalf("optional config: %v", err)
	}
	if cfg.Output.Dir != "report" {
		t.Errorf("Output.Dir = %v, want report", cfg.Output.Dir)
	}

	if _, err := LoadOrDefault(missing, true); err == nil {
		t.Error("required config should fail when missing")
	}
}

func TestWriteConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ctreport.yaml")
	want := DefaultConfig()
	want.Render.Mode = RenderModeChrome

	if err := WriteConfig(path, want); err != nil {
		t.Fatalf("WriteConfig() error = %v", err)
	}
	if !Exists(path) {
		t.Fatal("config file should exist")
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Render.Mode != RenderModeChrome {
		t.Errorf("Render.Mode = %v, want chrome", got.Render.Mode)
	}
	if got.Advisory.Timeout != want.Advisory.Timeout {
		t.Errorf("Advisory.Timeout = %v, want %v", got.Advisory.Timeout, want.Advisory.Timeout)
	}
	if len(got.Sections) != len(want.Sections) {
		t.Errorf("len(Sections) = %d, want %d", len(got.Sections), len(want.Sections))
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("CTR_TEST_VALUE", "set")

	tests := []struct {
		input    string
		expected string
	}{
		{"a: ${CTR_TEST_VALUE}", "a: set"},
		{"a: ${CTR_TEST_MISSING}", "a: "},
		{"a: ${CTR_TEST_MISSING:-fallback}", "a: fallback"},
		{"a: ${CTR_TEST_VALUE:-fallback}", "a: set"},
		{"a: $CTR_TEST_VALUE", "a: $CTR_TEST_VALUE"},
	}
	for _, tt := range tests {
		if got := expandEnvVars(tt.input); got != tt.expected {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "1", "YES", " on "} {
		if !parseBool(v) {
			t.Errorf("parseBool(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"", "false", "0", "no"} {
		if parseBool(v) {
			t.Errorf("parseBool(%q) = true, want false", v)
		}
	}
}
