package report

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verustcode/ctreport/internal/advisory"
	"github.com/verustcode/ctreport/internal/config"
	"github.com/verustcode/ctreport/internal/document"
	"github.com/verustcode/ctreport/internal/model"
	"github.com/verustcode/ctreport/internal/report/exporter"
	"github.com/verustcode/ctreport/internal/richtext"
	"github.com/verustcode/ctreport/internal/store"
	"github.com/verustcode/ctreport/pkg/errors"
)

const personalJSON = `{"name": "Jane Doe", "exam_date": "03-15-2024", "osid": "OS-12345", "email": "jane@example.com"}`

// fakeLookuper serves canned advisories and records requested ids
type fakeLookuper struct {
	advisories map[string]*advisory.Advisory
	calls      []string
}

func (f *fakeLookuper) Lookup(_ context.Context, id string) (*advisory.Advisory, error) {
	f.calls = append(f.calls, id)
	if a, ok := f.advisories[id]; ok {
		return a, nil
	}
	return nil, errors.ErrLookupFailed(id, fmt.Errorf("unknown"))
}

func newFakeLookuper() *fakeLookuper {
	return &fakeLookuper{advisories: map[string]*advisory.Advisory{
		"CVE-2021-41773": {
			ID:       "CVE-2021-41773",
			Summary:  "Path traversal in Apache HTTP Server 2.4.49",
			Weakness: "CWE-22",
			Score:    9.8,
			Severity: "CRITICAL",
		},
	}}
}

func testTemplates() *Templates {
	return NewTemplates("title.yml", "static", fstest.MapFS{
		"title.yml":           {Data: []byte("---\nauthor: [\"{0}\", \"OSID: {2}\"]\ndate: \"{1}\"\n---")},
		"static/intro.md":     {Data: []byte("Exam by {} on {}.")},
		"static/hosts.md":     {Data: []byte("Exam network:")},
		"static/cleanup.md":   {Data: []byte("# House Cleaning")},
		"static/methods.md":   {Data: []byte("# Methodologies")},
		"static/unused.md":    {Data: []byte("unused")},
		"static/header.md":    {Data: []byte("# Report")},
		"static/summary.md":   {Data: []byte("# High-Level Summary")},
		"static/gathering.md": {Data: []byte("## Information Gathering")},
	})
}

func testOptions() Options {
	return Options{
		Sections: []config.SectionConfig{
			{File: "header.md"},
			{File: "intro.md", Args: []string{"osid", "exam_date_long"}},
			{File: "methods.md", PageBreakAfter: true},
			{File: "hosts.md"},
		},
		Trailing: []config.SectionConfig{{File: "cleanup.md"}},
		MaxDepth: 16,
	}
}

// addFlags adds local.txt and proof.txt below parent
func addFlags(f *store.Fixture, parent int64, local, proof string) {
	l := f.AddNode(parent, "local.txt", "")
	f.AddNode(l, "contents", local)
	p := f.AddNode(parent, "proof.txt", "")
	f.AddNode(p, "contents", proof)
}

// buildNotebook creates a simple host 10.10.10.5 and a structured host 10.10.10.6
func buildNotebook(t *testing.T) *store.Fixture {
	f := store.NewFixture(t)

	f.AddNode(0, "Personal", personalJSON)
	hosts := f.AddNode(0, "Hosts", "")

	simple := f.AddNode(hosts, "10.10.10.5", "Simple host notes")
	nmap := f.AddNode(simple, "Nmap", "22/tcp open ssh")
	f.AddCodebox(nmap, 4, "nmap -sC -sV 10.10.10.5")
	proofNode := f.AddNode(simple, "Proof", "never rendered")
	addFlags(f, proofNode, "  abc123\n", "")
	appendix := f.AddNode(simple, "Appendix", "")
	f.AddNode(appendix, "Loot", "found creds")

	structured := f.AddNode(hosts, "10.10.10.6", "")
	overview := f.AddNode(structured, "Overview", "")
	f.AddNode(overview, "Host IP", "10.10.10.6\n")
	f.AddNode(overview, "Hostname", " web01 ")
	f.AddNode(overview, "High level summary", "Apache path traversal to root")
	enum := f.AddNode(structured, "Service enumeration", "Ports 22 and 80")
	f.AddNode(enum, "Port 80", "Apache 2.4.49")

	exploit := f.AddNode(structured, "Exploitation", "")
	initial := f.AddNode(exploit, "Initial access", "")
	f.AddNode(initial, "CVE-ID", " cve-2021-41773 ")
	f.AddNode(initial, "Vulnerability Explanation", "Path traversal")
	f.AddNode(exploit, "Steps", "curl the cgi-bin")

	privesc := f.AddNode(structured, "Privilege escalation", "")
	root := f.AddNode(privesc, "Root", "")
	f.AddNode(root, "CVE-ID", "")
	f.AddNode(root, "Vulnerability Explanation", "sudo misconfiguration")
	f.AddNode(privesc, "Sudo abuse", "sudo -l")

	flags := f.AddNode(structured, "Proof", "")
	addFlags(f, flags, "loc6", "prf6")

	return f
}

func assemble(t *testing.T, f *store.Fixture, lookup advisory.Lookuper) (*Result, string) {
	t.Helper()
	nodes := f.Store().Nodes()
	rich := richtext.New(nodes, richtext.NewMemorySink())
	asm := NewAssembler(nodes, rich, lookup, testTemplates(), testOptions(), nil)

	result, err := asm.Assemble(context.Background())
	require.NoError(t, err)

	md, err := exporter.NewMarkdownExporter().Export(result.Doc)
	require.NoError(t, err)
	return result, string(md)
}

// assertOrder checks that every marker appears in md after the previous one
func assertOrder(t *testing.T, md string, markers ...string) {
	t.Helper()
	pos := 0
	for _, m := range markers {
		i := strings.Index(md[pos:], m)
		if i < 0 {
			t.Fatalf("%q not found after offset %d", m, pos)
		}
		pos += i + len(m)
	}
}

func TestAssemble_Report(t *testing.T) {
	lookup := newFakeLookuper()
	result, md := assemble(t, buildNotebook(t), lookup)

	assert.Equal(t, "OS-12345", result.Personal.OSID)
	assert.Equal(t, []string{"10.10.10.5", "10.10.10.6"}, result.HostNames())
	assert.Equal(t, []string{"CVE-2021-41773"}, lookup.calls)

	assertOrder(t, md,
		`author: ["Jane Doe", "OSID: OS-12345"]`,
		"\n\n\\newpage\n\n\\tableofcontents\n\n\\setcounter{tocdepth}{4}\n\n\\setcounter{secnumdepth}{3}\n\n\\newpage",
		"# Report",
		"Exam by OS-12345 on Friday, March 15, 2024.",
		"# Methodologies\n\n\\newpage\n",
		"Exam network:",
		"- 10.10.10.5\n- 10.10.10.6\n",
		"\n# 10.10.10.5\n",
		"\n# System IP: 10.10.10.6 (web01)\n",
		"\n## Exploitation\n",
		"\n## Privilege escalation\n",
		"# House Cleaning",
		`\appendix`,
		`\section{Overview local and proof contents}`,
		`\section{Loot}`,
		"found creds",
	)
}

func TestAssemble_SimpleHost(t *testing.T) {
	result, md := assemble(t, buildNotebook(t), newFakeLookuper())

	assert.Equal(t, []string{"10.10.10.5", "System IP: 10.10.10.6 (web01)"}, result.Doc.Headers(1))
	assert.Contains(t, result.Doc.Headers(2), "Nmap")
	assert.Contains(t, md, "\n\n\\newpage\n\n\n# 10.10.10.5\n\n\nSimple host notes")
	assert.Contains(t, md, "\n\n```sh\nnmap -sC -sV 10.10.10.5\n```")
}

func TestAssemble_SkippedNodesNeverRender(t *testing.T) {
	result, md := assemble(t, buildNotebook(t), newFakeLookuper())

	for level := 1; level <= maxHeaderLevel; level++ {
		for _, h := range result.Doc.Headers(level) {
			switch h {
			case "Proof", "Appendix", "local.txt", "proof.txt", "contents", "Loot":
				t.Errorf("heading %q at level %d should not be rendered", h, level)
			}
		}
	}
	assert.NotContains(t, md, "never rendered")
}

func TestAssemble_StructuredHost(t *testing.T) {
	result, md := assemble(t, buildNotebook(t), newFakeLookuper())

	assert.Equal(t, []string{"Nmap", "Summary", "Service enumeration", "Exploitation", "Privilege escalation"},
		result.Doc.Headers(2))
	assert.ElementsMatch(t, []string{"Port 80", "Steps", "Sudo abuse"}, result.Doc.Headers(3))

	assertOrder(t, md,
		"\n## Summary\n",
		"Apache path traversal to root",
		"\n## Service enumeration\n",
		"\n### Port 80\n",
		"\n## Exploitation\n",
		"**CVE-ID**: CVE-2021-41773",
		"**Summary**: Path traversal in Apache HTTP Server 2.4.49",
		"**CWE-ID**: CWE-22",
		`**CVSS 3.x Severity**: \colorbox{Red}{9.8 critical}`,
		"**Vendor advisory**: -",
		"**Vulnerability Explanation**: Path traversal",
		"\\newpage",
		"\n### Steps\n",
		"\n## Privilege escalation\n",
		"**Vulnerability Explanation**: sudo misconfiguration",
		"\n### Sudo abuse\n",
	)
	// summary nodes are consumed by the summary block
	assert.NotContains(t, md, "Initial access")
	assert.NotContains(t, md, "# Root")
}

func TestAssemble_ProofTable(t *testing.T) {
	result, md := assemble(t, buildNotebook(t), newFakeLookuper())

	assert.Contains(t, md, "| **IP** | **local.txt contents** | **proof.txt contents** |")
	assert.Contains(t, md, `| 10.10.10.5 | \footnotesize abc123 | \footnotesize - |`)
	assert.Contains(t, md, `| 10.10.10.6 | \footnotesize loc6 | \footnotesize prf6 |`)

	var tables int
	for _, b := range result.Doc.Blocks() {
		if b.Kind == document.KindTable {
			tables++
			assert.Equal(t, 3, b.Columns)
			assert.Len(t, b.Cells, 9)
		}
	}
	assert.Equal(t, 1, tables)
}

func TestAssemble_Errors(t *testing.T) {
	tests := []struct {
		name  string
		build func(f *store.Fixture)
		code  errors.ErrorCode
	}{
		{
			name:  "no personal node",
			build: func(f *store.Fixture) { f.AddNode(0, "Hosts", "") },
			code:  errors.ErrCodeNotFound,
		},
		{
			name: "malformed personal node",
			build: func(f *store.Fixture) {
				f.AddNode(0, "Personal", "name: Jane")
				f.AddNode(0, "Hosts", "")
			},
			code: errors.ErrCodeMalformedContent,
		},
		{
			name: "bad exam date",
			build: func(f *store.Fixture) {
				f.AddNode(0, "Personal", `{"osid": "OS-1", "exam_date": "2024-03-15"}`)
				f.AddNode(0, "Hosts", "")
			},
			code: errors.ErrCodeMalformedContent,
		},
		{
			name:  "no hosts node",
			build: func(f *store.Fixture) { f.AddNode(0, "Personal", personalJSON) },
			code:  errors.ErrCodeNotFound,
		},
		{
			name: "host without flags",
			build: func(f *store.Fixture) {
				f.AddNode(0, "Personal", personalJSON)
				hosts := f.AddNode(0, "Hosts", "")
				f.AddNode(hosts, "10.0.0.1", "notes")
			},
			code: errors.ErrCodeNotFound,
		},
		{
			name: "structured host without exploitation",
			build: func(f *store.Fixture) {
				f.AddNode(0, "Personal", personalJSON)
				hosts := f.AddNode(0, "Hosts", "")
				h := f.AddNode(hosts, "10.0.0.1", "")
				ov := f.AddNode(h, "Overview", "")
				f.AddNode(ov, "Host IP", "10.0.0.1")
				f.AddNode(ov, "Hostname", "box")
				f.AddNode(ov, "High level summary", "s")
				f.AddNode(h, "Service enumeration", "e")
				addFlags(f, h, "a", "b")
			},
			code: errors.ErrCodeNotFound,
		},
		{
			name: "exploitation without summary node",
			build: func(f *store.Fixture) {
				f.AddNode(0, "Personal", personalJSON)
				hosts := f.AddNode(0, "Hosts", "")
				h := f.AddNode(hosts, "10.0.0.1", "")
				ov := f.AddNode(h, "Overview", "")
				f.AddNode(ov, "Host IP", "10.0.0.1")
				f.AddNode(ov, "Hostname", "box")
				f.AddNode(ov, "High level summary", "s")
				f.AddNode(h, "Service enumeration", "e")
				f.AddNode(h, "Exploitation", "")
				pe := f.AddNode(h, "Privilege escalation", "")
				f.AddNode(pe, "Root", "")
				addFlags(f, h, "a", "b")
			},
			code: errors.ErrCodeInvalidInput,
		},
		{
			name: "unknown advisory",
			build: func(f *store.Fixture) {
				f.AddNode(0, "Personal", personalJSON)
				hosts := f.AddNode(0, "Hosts", "")
				h := f.AddNode(hosts, "10.0.0.1", "")
				ov := f.AddNode(h, "Overview", "")
				f.AddNode(ov, "Host IP", "10.0.0.1")
				f.AddNode(ov, "Hostname", "box")
				f.AddNode(ov, "High level summary", "s")
				f.AddNode(h, "Service enumeration", "e")
				ex := f.AddNode(h, "Exploitation", "")
				sum := f.AddNode(ex, "Initial", "")
				f.AddNode(sum, "CVE-ID", "CVE-1999-0001")
				pe := f.AddNode(h, "Privilege escalation", "")
				f.AddNode(pe, "Root", "")
				addFlags(f, h, "a", "b")
			},
			code: errors.ErrCodeLookupFailed,
		},
		{
			name: "flag without contents",
			build: func(f *store.Fixture) {
				f.AddNode(0, "Personal", personalJSON)
				hosts := f.AddNode(0, "Hosts", "")
				h := f.AddNode(hosts, "10.0.0.1", "notes")
				f.AddNode(h, "local.txt", "")
				p := f.AddNode(h, "proof.txt", "")
				f.AddNode(p, "contents", "b")
			},
			code: errors.ErrCodeNotFound,
		},
		{
			name: "malformed cve id",
			build: func(f *store.Fixture) {
				f.AddNode(0, "Personal", personalJSON)
				hosts := f.AddNode(0, "Hosts", "")
				h := f.AddNode(hosts, "10.0.0.1", "")
				ov := f.AddNode(h, "Overview", "")
				f.AddNode(ov, "Host IP", "10.0.0.1")
				f.AddNode(ov, "Hostname", "box")
				f.AddNode(ov, "High level summary", "s")
				f.AddNode(h, "Service enumeration", "e")
				ex := f.AddNode(h, "Exploitation", "")
				sum := f.AddNode(ex, "Initial", "")
				f.AddNode(sum, "CVE-ID", "MS17-010")
				pe := f.AddNode(h, "Privilege escalation", "")
				f.AddNode(pe, "Root", "")
				addFlags(f, h, "a", "b")
			},
			code: errors.ErrCodeLookupFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := store.NewFixture(t)
			tt.build(f)

			nodes := f.Store().Nodes()
			asm := NewAssembler(nodes, richtext.New(nodes, richtext.NewMemorySink()), newFakeLookuper(),
				testTemplates(), testOptions(), nil)
			_, err := asm.Assemble(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.code), "got %v, want %s", err, tt.code)
		})
	}
}

func TestAssemble_EmptyCVESkipsLookup(t *testing.T) {
	lookup := newFakeLookuper()
	_, md := assemble(t, buildNotebook(t), lookup)

	// the privilege escalation summary has an empty CVE-ID node
	assert.Len(t, lookup.calls, 1)
	assert.Equal(t, 1, strings.Count(md, "**CVE-ID**:"))
}

func TestAssemble_MissingAppendixIsOptional(t *testing.T) {
	f := store.NewFixture(t)
	f.AddNode(0, "Personal", personalJSON)
	hosts := f.AddNode(0, "Hosts", "")
	h := f.AddNode(hosts, "10.0.0.1", "notes")
	addFlags(f, h, "", "")

	_, md := assemble(t, f, newFakeLookuper())
	assert.Contains(t, md, `| 10.0.0.1 | \footnotesize - | \footnotesize - |`)
	assert.NotContains(t, md, `\section{Loot}`)
}

func TestAssemble_NoHosts(t *testing.T) {
	f := store.NewFixture(t)
	f.AddNode(0, "Personal", personalJSON)
	f.AddNode(0, "Hosts", "")

	result, md := assemble(t, f, newFakeLookuper())
	assert.Empty(t, result.Hosts)
	assert.Contains(t, md, "| **IP** | **local.txt contents** | **proof.txt contents** |")
}

func TestAssemble_ReadsNodesByRichText(t *testing.T) {
	f := store.NewFixture(t)
	f.AddNode(0, "Personal", personalJSON)
	hosts := f.AddNode(0, "Hosts", "")
	h := f.AddNode(hosts, "10.0.0.1", `<?xml version="1.0" ?><node><rich_text>rich notes</rich_text></node>`)
	f.AddImage(h, 4, []byte("png"))
	addFlags(f, h, "a", "b")

	nodes := f.Store().Nodes()
	sink := richtext.NewMemorySink()
	asm := NewAssembler(nodes, richtext.New(nodes, sink), newFakeLookuper(), testTemplates(), testOptions(), nil)
	result, err := asm.Assemble(context.Background())
	require.NoError(t, err)

	md, err := exporter.NewMarkdownExporter().Export(result.Doc)
	require.NoError(t, err)
	assert.Contains(t, string(md), "\n\nrich\n![](<images/10.0.0.1-1.png>)\n\n notes")
	assert.Equal(t, []string{"10.0.0.1-1.png"}, sink.Names())
}

func TestWalk(t *testing.T) {
	f := store.NewFixture(t)
	nodes := f.Store().Nodes()
	asm := NewAssembler(nodes, richtext.New(nodes, richtext.NewMemorySink()), newFakeLookuper(),
		testTemplates(), Options{MaxDepth: 3}, nil)
	ctx := context.Background()

	leaf := &model.Node{ID: 100, Name: "Leaf", Text: "leaf"}
	mid := &model.Node{ID: 101, Name: "Mid", Text: "mid", Children: []*model.Node{
		leaf,
		{ID: 102, Name: "Proof", Text: "hidden", Children: []*model.Node{{ID: 103, Name: "Inner"}}},
	}}

	t.Run("page break below level 3", func(t *testing.T) {
		doc := document.New()
		require.NoError(t, asm.walk(ctx, doc, mid, 2, walkOptions{}, 0))
		blocks := doc.Blocks()
		assert.Equal(t, document.KindPageBreak, blocks[0].Kind)
		assert.Equal(t, []string{"Mid"}, doc.Headers(2))
		assert.Equal(t, []string{"Leaf"}, doc.Headers(3))
		assert.Empty(t, doc.Headers(4))
		var breaks int
		for _, b := range blocks {
			if b.Kind == document.KindPageBreak {
				breaks++
			}
		}
		assert.Equal(t, 1, breaks)
	})

	t.Run("no header means no page break", func(t *testing.T) {
		doc := document.New()
		require.NoError(t, asm.walk(ctx, doc, mid, 2, walkOptions{noHeader: true}, 0))
		assert.Equal(t, document.KindNewLine, doc.Blocks()[0].Kind)
		assert.Empty(t, doc.Headers(2))
		assert.Equal(t, []string{"Leaf"}, doc.Headers(3))
	})

	t.Run("skip parent", func(t *testing.T) {
		doc := document.New()
		require.NoError(t, asm.walk(ctx, doc, mid, 2, walkOptions{skipParent: true}, 0))
		assert.Empty(t, doc.Headers(2))
		assert.Equal(t, []string{"Leaf"}, doc.Headers(3))
	})

	t.Run("skipped root", func(t *testing.T) {
		doc := document.New()
		require.NoError(t, asm.walk(ctx, doc, mid.Children[1], 1, walkOptions{}, 0))
		assert.Equal(t, 0, doc.Len())
	})

	t.Run("depth guard", func(t *testing.T) {
		deep := &model.Node{ID: 1, Name: "n0"}
		cur := deep
		for i := 1; i <= 5; i++ {
			next := &model.Node{ID: int64(i + 1), Name: fmt.Sprintf("n%d", i)}
			cur.Children = []*model.Node{next}
			cur = next
		}
		err := asm.walk(ctx, document.New(), deep, 1, walkOptions{}, 0)
		assert.True(t, errors.Is(err, errors.ErrCodeTreeTooDeep), "got %v", err)
	})
}

func TestHeaderLevel(t *testing.T) {
	tests := map[int]int{0: 1, 1: 1, 3: 3, 6: 6, 7: 6, 12: 6}
	for in, want := range tests {
		if got := headerLevel(in); got != want {
			t.Errorf("headerLevel(%d) = %d, want %d", in, got, want)
		}
	}
}
