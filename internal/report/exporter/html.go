package exporter

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/verustcode/ctreport/internal/document"
	"github.com/verustcode/ctreport/pkg/errors"
)

// HTMLOptions configures the HTML exporter
type HTMLOptions struct {
	// Lang is written to the lang attribute of the page
	Lang language.Tag
	// BaseDir resolves relative image paths. Images are referenced with
	// file:// URLs when set so a browser loading the page from a temporary
	// location still finds them.
	BaseDir string
}

// HTMLExporter renders the document as one printable HTML page. The LaTeX
// commands embedded in the markdown are mapped to their HTML counterparts.
type HTMLExporter struct {
	options HTMLOptions
	md      goldmark.Markdown
}

// NewHTMLExporter creates a new HTML exporter
func NewHTMLExporter(opts HTMLOptions) *HTMLExporter {
	if opts.Lang == language.Und {
		opts.Lang = language.English
	}
	return &HTMLExporter{
		options: opts,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
}

// Name returns the human-readable name of this exporter
func (e *HTMLExporter) Name() string {
	return "HTML"
}

// FileExtension returns the file extension for HTML files
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// Export renders the document to a complete HTML page
func (e *HTMLExporter) Export(doc *document.Document) ([]byte, error) {
	var src bytes.Buffer
	w := markdownWriter{buf: &src, text: latexToHTML}
	title := "Report"

	for _, b := range doc.Blocks() {
		switch b.Kind {
		case document.KindFrontMatter:
			meta, err := parseFrontMatter(b.Text)
			if err != nil {
				return nil, err
			}
			if t := meta.Title; t != "" {
				title = t
			}
			src.WriteString("\n\n" + meta.render() + "\n\n")
		case document.KindPageBreak:
			src.WriteString("\n\n" + pageBreakHTML + "\n\n")
		default:
			w.block(b)
		}
	}

	var body bytes.Buffer
	if err := e.md.Convert(src.Bytes(), &body); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, "failed to convert markdown", err)
	}

	page := fmt.Sprintf(pageTemplate, html.EscapeString(title), printCSS, body.String())
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, "failed to parse generated html", err)
	}
	e.rewrite(root)

	var out bytes.Buffer
	if err := html.Render(&out, root); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, "failed to render html", err)
	}
	return out.Bytes(), nil
}

const pageBreakHTML = `<div class="page-break"></div>`

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>%s</title>
<style>%s</style>
</head>
<body>
%s
</body>
</html>`

const printCSS = `
body { font-family: "DejaVu Sans", system-ui, sans-serif; font-size: 10pt; line-height: 1.5; color: #1a1a1a; }
h1, h2, h3, h4 { color: #1e40af; page-break-after: avoid; }
.page-break { page-break-after: always; }
.title-page { text-align: center; padding-top: 30%; page-break-after: always; }
.title-page .title { font-size: 24pt; }
.title-page .subtitle { font-size: 14pt; color: #475569; }
.toc ul { list-style: none; padding-left: 1.2em; }
.toc .toc-h1 { font-weight: 600; padding-left: 0; }
table { border-collapse: collapse; width: 100%; }
th, td { border: 1px solid #cbd5e1; padding: 4px 8px; font-size: 8pt; word-break: break-all; }
pre { background: #f1f5f9; padding: 8px; white-space: pre-wrap; font-size: 8pt; }
img { max-width: 100%; }
.severity { padding: 1px 6px; border-radius: 3px; color: #fff; }
`

// severityCSS maps the xcolor names used in severity boxes to CSS colors
var severityCSS = map[string]string{
	"Red":         "#d32f2f",
	"RedOrange":   "#f4511e",
	"Orange":      "#fb8c00",
	"GreenYellow": "#afb42b",
	"Green":       "#388e3c",
}

var (
	sectionPattern  = regexp.MustCompile(`\\section\{([^}]*)\}`)
	colorboxPattern = regexp.MustCompile(`\\colorbox\{([A-Za-z]+)\}\{([^}]*)\}`)
	dropPattern     = regexp.MustCompile(`\\setcounter\{[^}]*\}\{[^}]*\}|\\appendix|\\footnotesize\s*`)
)

// latexToHTML maps the LaTeX commands the report uses onto markdown or HTML.
// Commands without a visual counterpart are dropped.
func latexToHTML(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	s = strings.ReplaceAll(s, PageBreakCommand, pageBreakHTML)
	s = strings.ReplaceAll(s, `\tableofcontents`, `<nav id="toc" class="toc"></nav>`)
	s = sectionPattern.ReplaceAllString(s, "\n\n# $1\n\n")
	s = colorboxPattern.ReplaceAllStringFunc(s, func(m string) string {
		parts := colorboxPattern.FindStringSubmatch(m)
		color, ok := severityCSS[parts[1]]
		if !ok {
			color = severityCSS["Green"]
		}
		return fmt.Sprintf(`<span class="severity" style="background-color:%s">%s</span>`, color, html.EscapeString(parts[2]))
	})
	return dropPattern.ReplaceAllString(s, "")
}

// titleMeta is the subset of the pandoc title block shown on the HTML title page
type titleMeta struct {
	Title    string    `yaml:"title"`
	Subtitle string    `yaml:"subtitle"`
	Author   yamlNames `yaml:"author"`
	Date     string    `yaml:"date"`
}

// yamlNames accepts either a single string or a list of strings
type yamlNames []string

// UnmarshalYAML implements yaml.Unmarshaler
func (n *yamlNames) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*n = yamlNames{value.Value}
		return nil
	}
	var list []string
	if err := value.Decode(&list); err != nil {
		return err
	}
	*n = list
	return nil
}

func parseFrontMatter(text string) (*titleMeta, error) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "---" || trimmed == "..." {
			continue
		}
		lines = append(lines, line)
	}

	var meta titleMeta
	if err := yaml.Unmarshal([]byte(strings.Join(lines, "\n")), &meta); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTemplate, "invalid title block", err)
	}
	return &meta, nil
}

func (m *titleMeta) render() string {
	var b strings.Builder
	b.WriteString(`<section class="title-page">`)
	if m.Title != "" {
		b.WriteString(`<div class="title">` + html.EscapeString(m.Title) + `</div>`)
	}
	if m.Subtitle != "" {
		b.WriteString(`<div class="subtitle">` + html.EscapeString(m.Subtitle) + `</div>`)
	}
	for _, a := range m.Author {
		b.WriteString(`<div class="author">` + html.EscapeString(a) + `</div>`)
	}
	if m.Date != "" {
		b.WriteString(`<div class="date">` + html.EscapeString(m.Date) + `</div>`)
	}
	b.WriteString(`</section>`)
	return b.String()
}

// rewrite sets the page language, resolves image paths and fills the
// table of contents from the rendered headings.
func (e *HTMLExporter) rewrite(root *html.Node) {
	var toc *html.Node
	var headings []*html.Node

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Html:
				setAttr(n, "lang", e.options.Lang.String())
			case atom.Img:
				if src := getAttr(n, "src"); src != "" && e.options.BaseDir != "" && isRelative(src) {
					setAttr(n, "src", "file://"+filepath.ToSlash(filepath.Join(e.options.BaseDir, src)))
				}
			case atom.Nav:
				if getAttr(n, "id") == "toc" && toc == nil {
					toc = n
				}
			case atom.Section:
				if getAttr(n, "class") == "title-page" {
					return
				}
			case atom.H1, atom.H2:
				if getAttr(n, "id") != "" {
					headings = append(headings, n)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	if toc != nil {
		fillTOC(toc, headings)
	}
}

func fillTOC(toc *html.Node, headings []*html.Node) {
	list := &html.Node{Type: html.ElementNode, Data: "ul", DataAtom: atom.Ul}
	for _, h := range headings {
		li := &html.Node{Type: html.ElementNode, Data: "li", DataAtom: atom.Li}
		setAttr(li, "class", "toc-"+h.Data)
		a := &html.Node{Type: html.ElementNode, Data: "a", DataAtom: atom.A}
		setAttr(a, "href", "#"+getAttr(h, "id"))
		a.AppendChild(&html.Node{Type: html.TextNode, Data: textContent(h)})
		li.AppendChild(a)
		list.AppendChild(li)
	}
	toc.AppendChild(list)
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func getAttr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func isRelative(src string) bool {
	if strings.Contains(src, "://") || strings.HasPrefix(src, "data:") {
		return false
	}
	return !filepath.IsAbs(src)
}
