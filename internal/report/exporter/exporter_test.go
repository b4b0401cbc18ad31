package exporter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/verustcode/ctreport/internal/document"
	"github.com/verustcode/ctreport/pkg/errors"
)

// ====================
// Markdown
// ====================

func TestMarkdownExporter_Primitives(t *testing.T) {
	doc := document.New().
		Paragraph("a").
		Header(1, "H").
		PageBreak().
		Image("", "images/x-1.png").
		Code("id", "").
		List("-", []string{"h1", "h2"}).
		Table(2, []string{"**IP**", "**proof**", "10.0.0.1", "a|b"})

	out, err := NewMarkdownExporter().Export(doc)
	require.NoError(t, err)

	expected := "\n\na" +
		"\n# H\n" +
		"\n\n\\newpage\n" +
		"\n![](<images/x-1.png>)" +
		"\n\n```\nid\n```" +
		"\n\n- h1\n- h2\n" +
		"\n\n| **IP** | **proof** |\n| :---: | :---: |\n| 10.0.0.1 | a\\|b |\n"
	assert.Equal(t, expected, string(out))
}

func TestMarkdownExporter_RawAndNewLine(t *testing.T) {
	doc := document.New().
		Paragraph("**Summary**: ").
		Write("text").
		NewLine(`\section{Notes}`)

	out, err := NewMarkdownExporter().Export(doc)
	require.NoError(t, err)
	assert.Equal(t, "\n\n**Summary**: text\n\\section{Notes}", string(out))
}

func TestTableCell(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"abc", "abc"},
		{"  abc\n", "abc"},
		{"a\nb", "a b"},
		{"a\r\nb", "a b"},
		{"a|b", `a\|b`},
	}
	for _, tt := range tests {
		if got := tableCell(tt.input); got != tt.expected {
			t.Errorf("tableCell(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

// ====================
// HTML
// ====================

func TestLatexToHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "nothing to map", "nothing to map"},
		{"page break", `\newpage`, pageBreakHTML},
		{"toc", `\tableofcontents`, `<nav id="toc" class="toc"></nav>`},
		{"section", `\section{Notes}`, "\n\n# Notes\n\n"},
		{"counter", `\setcounter{tocdepth}{4}`, ""},
		{"appendix", `\appendix`, ""},
		{"footnotesize", `\footnotesize abc`, "abc"},
		{
			"colorbox",
			`\colorbox{Red}{9.8 critical}`,
			`<span class="severity" style="background-color:#d32f2f">9.8 critical</span>`,
		},
		{
			"unknown color",
			`\colorbox{Purple}{1.0 none}`,
			`<span class="severity" style="background-color:#388e3c">1.0 none</span>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, latexToHTML(tt.input))
		})
	}
}

func TestParseFrontMatter(t *testing.T) {
	meta, err := parseFrontMatter("---\ntitle: \"Exam Report\"\nauthor: \"Jane\"\ndate: \"01-02-2020\"\ncode-block-font-size: \\scriptsize\n...")
	require.NoError(t, err)
	assert.Equal(t, "Exam Report", meta.Title)
	assert.Equal(t, []string{"Jane"}, []string(meta.Author))
	assert.Equal(t, "01-02-2020", meta.Date)

	meta, err = parseFrontMatter("author: [\"Jane\", \"OSID: 1234\"]")
	require.NoError(t, err)
	assert.Equal(t, []string{"Jane", "OSID: 1234"}, []string(meta.Author))

	_, err = parseFrontMatter("title: [unclosed")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeTemplate))
}

func TestHTMLExporter_Export(t *testing.T) {
	doc := document.New().
		FrontMatter("---\ntitle: \"OSCP Exam Report\"\nauthor: [\"Jane\", \"OSID: 1234\"]\ndate: \"01-02-2020\"\n---").
		Paragraph(`\tableofcontents`).
		PageBreak().
		Header(1, "10.10.10.5").
		Paragraph(`**CVSS 3.x Severity**: \colorbox{Red}{9.8 critical}`).
		Image("", "images/a-1.png").
		Code("<b>not html</b>", "")

	e := NewHTMLExporter(HTMLOptions{Lang: language.MustParse("de"), BaseDir: "/work"})
	out, err := e.Export(doc)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, `<html lang="de">`)
	assert.Contains(t, page, `<title>OSCP Exam Report</title>`)
	assert.Contains(t, page, `class="title-page"`)
	assert.Contains(t, page, `OSID: 1234`)
	assert.Contains(t, page, pageBreakHTML)
	assert.Contains(t, page, `src="file:///work/images/a-1.png"`)
	assert.Contains(t, page, `<span class="severity" style="background-color:#d32f2f">9.8 critical</span>`)
	assert.Contains(t, page, `<li class="toc-h1"><a href="#`)
	assert.Contains(t, page, `">10.10.10.5</a></li>`)
	assert.Contains(t, page, `&lt;b&gt;not html&lt;/b&gt;`)
}

func TestHTMLExporter_DefaultsToEnglish(t *testing.T) {
	out, err := NewHTMLExporter(HTMLOptions{}).Export(document.New().Paragraph("x"))
	require.NoError(t, err)
	assert.Contains(t, string(out), `<html lang="en">`)
}

func TestMarkdownExporter_ImageDestination(t *testing.T) {
	doc := document.New().Image("", "images/Initial access-1.png").Image("", "images/a<b>-1.png")
	out, err := NewMarkdownExporter().Export(doc)
	require.NoError(t, err)
	assert.Equal(t, "\n![](<images/Initial access-1.png>)\n![](<images/a\\<b\\>-1.png>)", string(out))
}

func TestHTMLExporter_ImagePathWithSpaces(t *testing.T) {
	doc := document.New().Paragraph("before").Image("", "images/Initial access-1.png")
	out, err := NewHTMLExporter(HTMLOptions{BaseDir: "/work"}).Export(doc)
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, "<img")
	assert.Contains(t, page, `src="file:///work/images/Initial%20access-1.png"`)
	assert.NotContains(t, page, "![](")
}

func TestHTMLExporter_KeepsAbsoluteImages(t *testing.T) {
	doc := document.New().Image("", "https://example.com/a.png")
	out, err := NewHTMLExporter(HTMLOptions{BaseDir: "/work"}).Export(doc)
	require.NoError(t, err)
	assert.Contains(t, string(out), `src="https://example.com/a.png"`)
}

// ====================
// Manager and helpers
// ====================

func TestExportManager(t *testing.T) {
	m := NewExportManager()
	m.Register(ExportFormatMarkdown, NewMarkdownExporter())
	m.Register(ExportFormatHTML, NewHTMLExporter(HTMLOptions{}))

	assert.Equal(t, []ExportFormat{ExportFormatHTML, ExportFormatMarkdown}, m.SupportedFormats())

	_, err := m.GetExporter(ExportFormatPDF)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))

	path := filepath.Join(t.TempDir(), "report", "01-02-2020", "OSCP-1234-Exam-Report.md")
	require.NoError(t, m.ExportToFile(document.New().Paragraph("hello"), path, ExportFormatMarkdown))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\n\nhello", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestReplaceExtension(t *testing.T) {
	assert.Equal(t, "report/a.pdf", ReplaceExtension("report/a.md", ".pdf"))
	assert.Equal(t, "report/a.html", ReplaceExtension("report/a", ".html"))
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.input); got != tt.expected {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

// ====================
// PDF
// ====================

func TestVerifyPDF_RejectsGarbage(t *testing.T) {
	_, err := VerifyPDF([]byte("not a pdf"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeRender))
}

func TestPDFExporter_Chrome(t *testing.T) {
	if os.Getenv("CTR_TEST_CHROME") == "" {
		t.Skip("set CTR_TEST_CHROME=1 to run against a local Chrome")
	}

	doc := document.New().Header(1, "10.10.10.5").Paragraph("enumeration notes").PageBreak().Header(1, "10.10.10.6")
	e := NewPDFExporter(NewHTMLExporter(HTMLOptions{}), DefaultPDFOptions())
	data, err := e.Export(doc)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(data), "%PDF"))

	check, err := VerifyPDF(data, []string{"10.10.10.5"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, check.Pages, 2)
}
