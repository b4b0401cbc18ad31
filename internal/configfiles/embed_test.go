package configfiles

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestListTemplates tests that every default section is embedded
func TestListTemplates(t *testing.T) {
	names := ListTemplates()

	want := []string{
		"static/header1.md",
		"static/hl-summary.md",
		"static/housecleaning.md",
		"static/information-gathering.md",
		"static/introduction.md",
		"static/methodologies.md",
		"title.yml",
	}
	if len(names) != len(want) {
		t.Fatalf("ListTemplates() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("ListTemplates()[%d] = %s, want %s", i, names[i], want[i])
		}
	}
}

// TestGetTemplate_Title tests the title template placeholders
func TestGetTemplate_Title(t *testing.T) {
	content, err := GetTemplate("title.yml")
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	for _, placeholder := range []string{"{0}", "{1}", "{2}", "{3}"} {
		if !strings.Contains(string(content), placeholder) {
			t.Errorf("title.yml is missing %s", placeholder)
		}
	}
}

// TestGetTemplate_Introduction tests the positional slots used by the default config
func TestGetTemplate_Introduction(t *testing.T) {
	content, err := GetTemplate("static/introduction.md")
	if err != nil {
		t.Fatalf("GetTemplate failed: %v", err)
	}
	if got := strings.Count(string(content), "{}"); got != 2 {
		t.Errorf("introduction.md has %d {} slots, want 2", got)
	}
}

func TestGetTemplate_Missing(t *testing.T) {
	if _, err := GetTemplate("static/nope.md"); err == nil {
		t.Error("expected error for a missing template")
	}
}

func TestInstall(t *testing.T) {
	dir := t.TempDir()
	templateDir := filepath.Join(dir, "report-sections")
	script := filepath.Join(dir, RenderScript)

	written, err := Install(templateDir, script, false)
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if len(written) != len(ListTemplates())+1 {
		t.Errorf("Install wrote %d files, want %d", len(written), len(ListTemplates())+1)
	}

	info, err := os.Stat(script)
	if err != nil {
		t.Fatalf("render script not written: %v", err)
	}
	if info.Mode().Perm()&0100 == 0 {
		t.Error("render script should be executable")
	}

	// existing files are kept
	custom := filepath.Join(templateDir, "static", "header1.md")
	if err := os.WriteFile(custom, []byte("# Custom\n"), 0644); err != nil {
		t.Fatal(err)
	}
	written, err = Install(templateDir, script, false)
	if err != nil {
		t.Fatalf("second Install failed: %v", err)
	}
	if len(written) != 0 {
		t.Errorf("second Install wrote %v, want nothing", written)
	}
	data, _ := os.ReadFile(custom)
	if string(data) != "# Custom\n" {
		t.Errorf("custom header was overwritten: %q", data)
	}

	// overwrite restores the defaults
	if _, err := Install(templateDir, "", true); err != nil {
		t.Fatalf("overwrite Install failed: %v", err)
	}
	data, _ = os.ReadFile(custom)
	if string(data) == "# Custom\n" {
		t.Error("overwrite should replace the custom header")
	}
}
