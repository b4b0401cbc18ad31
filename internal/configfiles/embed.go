// Package configfiles provides the embedded report templates and render script.
// They are the fallback for any template missing from the configured
// template directory and the content written by "ctreport init".
package configfiles

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
)

// SectionsRoot is the directory holding the embedded report templates
const SectionsRoot = "report-sections"

// RenderScript is the name of the embedded pandoc render script
const RenderScript = "docker_run.sh"

//go:embed docker_run.sh
//go:embed all:report-sections
var configFS embed.FS

// ReportSections returns the embedded templates rooted at report-sections,
// laid out like a template directory (title.yml, static/*.md).
func ReportSections() fs.FS {
	sub, err := fs.Sub(configFS, SectionsRoot)
	if err != nil {
		// SectionsRoot is embedded above, Sub cannot fail
		panic(err)
	}
	return sub
}

// GetTemplate returns one embedded template by its path relative to report-sections
func GetTemplate(name string) ([]byte, error) {
	return configFS.ReadFile(path.Join(SectionsRoot, filepath.ToSlash(name)))
}

// GetRenderScript returns the embedded render script
func GetRenderScript() ([]byte, error) {
	return configFS.ReadFile(RenderScript)
}

// ListTemplates returns the slash-separated paths of all embedded templates
func ListTemplates() []string {
	var names []string
	_ = fs.WalkDir(ReportSections(), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, p)
		}
		return nil
	})
	sort.Strings(names)
	return names
}

// Install copies the embedded templates into templateDir and the render
// script into scriptPath. Existing files are kept unless overwrite is set.
// It returns the files that were written.
func Install(templateDir, scriptPath string, overwrite bool) ([]string, error) {
	var written []string

	for _, name := range ListTemplates() {
		data, err := GetTemplate(name)
		if err != nil {
			return written, err
		}
		dest := filepath.Join(templateDir, filepath.FromSlash(name))
		ok, err := writeFile(dest, data, 0644, overwrite)
		if err != nil {
			return written, err
		}
		if ok {
			written = append(written, dest)
		}
	}

	if scriptPath != "" {
		data, err := GetRenderScript()
		if err != nil {
			return written, err
		}
		ok, err := writeFile(scriptPath, data, 0755, overwrite)
		if err != nil {
			return written, err
		}
		if ok {
			written = append(written, scriptPath)
		}
	}
	return written, nil
}

func writeFile(dest string, data []byte, perm os.FileMode, overwrite bool) (bool, error) {
	if !overwrite {
		if _, err := os.Stat(dest); err == nil {
			return false, nil
		}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return false, err
	}
	if err := os.WriteFile(dest, data, perm); err != nil {
		return false, err
	}
	return true, nil
}
