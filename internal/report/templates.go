package report

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/verustcode/ctreport/internal/config"
	"github.com/verustcode/ctreport/internal/configfiles"
	"github.com/verustcode/ctreport/internal/model"
	"github.com/verustcode/ctreport/pkg/errors"
)

// templateExt marks files rendered with text/template instead of positional
// substitution
const templateExt = ".tmpl"

// Templates reads the title template and the static sections from a stack
// of file systems. The first layer holding a file wins.
type Templates struct {
	layers    []fs.FS
	title     string
	staticDir string
}

// NewTemplates creates a template set. title and staticDir are slash paths
// relative to each layer.
func NewTemplates(title, staticDir string, layers ...fs.FS) *Templates {
	return &Templates{
		layers:    layers,
		title:     title,
		staticDir: staticDir,
	}
}

// DefaultLayers returns dir on top of the embedded defaults. An empty dir
// leaves only the defaults.
func DefaultLayers(dir string) []fs.FS {
	var layers []fs.FS
	if dir != "" {
		layers = append(layers, os.DirFS(dir))
	}
	return append(layers, configfiles.ReportSections())
}

// templateData is the value passed to .tmpl sections
type templateData struct {
	Name         string
	ExamDate     string
	ExamDateLong string
	OSID         string
	Email        string
	Hosts        []string
}

// Title renders the title template. The positional values are name,
// exam date, OSID and email.
func (t *Templates) Title(p *model.Personal, hosts []string) (string, error) {
	content, err := t.read(t.title)
	if err != nil {
		return "", err
	}
	if strings.HasSuffix(t.title, templateExt) {
		return execute(t.title, content, newTemplateData(p, hosts))
	}
	out, err := formatPositional(content, []string{p.Name, p.ExamDate, p.OSID, p.Email})
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeTemplate, fmt.Sprintf("failed to render %s", t.title), err)
	}
	return out, nil
}

// Section renders one static section. Without args the file is used as is.
func (t *Templates) Section(s config.SectionConfig, p *model.Personal, hosts []string) (string, error) {
	name := path.Join(t.staticDir, s.File)
	content, err := t.read(name)
	if err != nil {
		return "", err
	}

	if strings.HasSuffix(s.File, templateExt) {
		return execute(name, content, newTemplateData(p, hosts))
	}
	if len(s.Args) == 0 {
		return content, nil
	}

	args := make([]string, 0, len(s.Args))
	for _, key := range s.Args {
		v, ok := p.Field(key)
		if !ok {
			return "", errors.New(errors.ErrCodeTemplate,
				fmt.Sprintf("section %s references unknown or invalid field %q", s.File, key))
		}
		args = append(args, v)
	}
	out, err := formatPositional(content, args)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeTemplate, fmt.Sprintf("failed to render %s", name), err)
	}
	return out, nil
}

// Exists reports whether name resolves in any layer
func (t *Templates) Exists(name string) bool {
	_, err := t.read(name)
	return err == nil
}

func (t *Templates) read(name string) (string, error) {
	for _, layer := range t.layers {
		data, err := fs.ReadFile(layer, name)
		if err == nil {
			return string(data), nil
		}
		if !stderrors.Is(err, fs.ErrNotExist) {
			return "", errors.Wrap(errors.ErrCodeTemplate, fmt.Sprintf("failed to read template %s", name), err)
		}
	}
	return "", errors.ErrNotFound("template " + name)
}

func newTemplateData(p *model.Personal, hosts []string) templateData {
	long, _ := p.LongExamDate()
	return templateData{
		Name:         p.Name,
		ExamDate:     p.ExamDate,
		ExamDateLong: long,
		OSID:         p.OSID,
		Email:        p.Email,
		Hosts:        hosts,
	}
}

func execute(name, content string, data templateData) (string, error) {
	tmpl, err := template.New(path.Base(name)).
		Funcs(sprig.TxtFuncMap()).
		Option("missingkey=error").
		Parse(content)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeTemplate, fmt.Sprintf("failed to parse %s", name), err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", errors.Wrap(errors.ErrCodeTemplate, fmt.Sprintf("failed to execute %s", name), err)
	}
	return buf.String(), nil
}

// formatPositional replaces {} and {N} placeholders with args. {{ and }}
// yield literal braces. Automatic and explicit numbering cannot be mixed.
func formatPositional(tmpl string, args []string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))

	next := 0
	auto, manual := false, false
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch c {
		case '{':
			if i+1 < len(tmpl) && tmpl[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(tmpl[i+1:], '}')
			if end < 0 {
				return "", fmt.Errorf("unclosed '{' at offset %d", i)
			}
			field := tmpl[i+1 : i+1+end]

			var idx int
			if field == "" {
				if manual {
					return "", fmt.Errorf("cannot switch from explicit to automatic numbering at offset %d", i)
				}
				auto = true
				idx = next
				next++
			} else {
				n, err := strconv.Atoi(field)
				if err != nil || n < 0 {
					return "", fmt.Errorf("unsupported placeholder {%s} at offset %d", field, i)
				}
				if auto {
					return "", fmt.Errorf("cannot switch from automatic to explicit numbering at offset %d", i)
				}
				manual = true
				idx = n
			}
			if idx >= len(args) {
				return "", fmt.Errorf("placeholder %d has no value (%d given)", idx, len(args))
			}
			b.WriteString(args[idx])
			i += end + 1
		case '}':
			if i+1 < len(tmpl) && tmpl[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", fmt.Errorf("single '}' at offset %d", i)
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}
