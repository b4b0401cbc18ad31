package exporter

import (
	"bytes"
	"strings"

	"github.com/verustcode/ctreport/internal/document"
)

// PageBreakCommand is the LaTeX command pandoc passes through to force a new page
const PageBreakCommand = `\newpage`

// MarkdownExporter writes the LaTeX-flavoured markdown consumed by pandoc.
// Every primitive is rendered with a fixed separator so the output is
// byte-stable for a given document.
type MarkdownExporter struct{}

// NewMarkdownExporter creates a new markdown exporter
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{}
}

// Export renders the document
func (e *MarkdownExporter) Export(doc *document.Document) ([]byte, error) {
	var buf bytes.Buffer
	w := markdownWriter{buf: &buf, text: identity}
	for _, b := range doc.Blocks() {
		w.block(b)
	}
	return buf.Bytes(), nil
}

// Name returns the human-readable name of this exporter
func (e *MarkdownExporter) Name() string {
	return "Markdown"
}

// FileExtension returns the file extension for markdown files
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

func identity(s string) string { return s }

// markdownWriter renders blocks as markdown. text is applied to every piece
// of prose; code blocks and image paths are written untouched.
type markdownWriter struct {
	buf  *bytes.Buffer
	text func(string) string
}

func (w *markdownWriter) block(b document.Block) {
	switch b.Kind {
	case document.KindHeader:
		w.buf.WriteString("\n" + strings.Repeat("#", b.Level) + " " + w.text(b.Text) + "\n")
	case document.KindParagraph:
		w.buf.WriteString("\n\n" + w.text(b.Text))
	case document.KindFrontMatter:
		w.buf.WriteString("\n\n" + b.Text)
	case document.KindRaw:
		w.buf.WriteString(w.text(b.Text))
	case document.KindNewLine:
		w.buf.WriteString("\n" + w.text(b.Text))
	case document.KindImage:
		w.buf.WriteString("\n![" + b.Alt + "](" + imageDestination(b.Path) + ")")
	case document.KindCode:
		w.buf.WriteString("\n\n```" + b.Lang + "\n" + b.Text + "\n```")
	case document.KindPageBreak:
		w.buf.WriteString("\n\n" + PageBreakCommand + "\n")
	case document.KindTable:
		w.table(b)
	case document.KindList:
		w.buf.WriteString("\n\n")
		for _, item := range b.Items {
			w.buf.WriteString(b.Marker + " " + w.text(item) + "\n")
		}
	}
}

func (w *markdownWriter) table(b document.Block) {
	if b.Columns <= 0 {
		return
	}
	w.buf.WriteString("\n\n")
	for i := 0; i < len(b.Cells); i += b.Columns {
		end := i + b.Columns
		if end > len(b.Cells) {
			end = len(b.Cells)
		}
		w.buf.WriteString("|")
		for _, cell := range b.Cells[i:end] {
			w.buf.WriteString(" " + w.text(tableCell(cell)) + " |")
		}
		w.buf.WriteString("\n")
		if i == 0 {
			w.buf.WriteString("|" + strings.Repeat(" :---: |", b.Columns) + "\n")
		}
	}
}

// imageDestination wraps path in angle brackets so node names with spaces
// stay a single link destination for pandoc and goldmark.
func imageDestination(path string) string {
	return "<" + destinationEscaper.Replace(path) + ">"
}

var destinationEscaper = strings.NewReplacer(`<`, `\<`, `>`, `\>`, "\n", " ")

// tableCell keeps a cell on one line and escapes the column separator
func tableCell(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
