// Package report assembles the exam report from a notebook and writes it.
package report

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/verustcode/ctreport/consts"
	"github.com/verustcode/ctreport/internal/advisory"
	"github.com/verustcode/ctreport/internal/config"
	"github.com/verustcode/ctreport/internal/document"
	"github.com/verustcode/ctreport/internal/model"
	"github.com/verustcode/ctreport/internal/richtext"
	"github.com/verustcode/ctreport/internal/store"
	"github.com/verustcode/ctreport/internal/tree"
	"github.com/verustcode/ctreport/pkg/errors"
	"github.com/verustcode/ctreport/pkg/logger"
	"github.com/verustcode/ctreport/pkg/telemetry"
)

// Host rendering modes
const (
	ModeSimple     = "simple"
	ModeStructured = "structured"
)

// maxHeaderLevel is the deepest markdown heading
const maxHeaderLevel = 6

// titleCommands follow the title block
var titleCommands = []string{
	`\newpage`,
	`\tableofcontents`,
	`\setcounter{tocdepth}{4}`,
	`\setcounter{secnumdepth}{3}`,
	`\newpage`,
}

// proofColumns head the local.txt/proof.txt overview table
var proofColumns = []string{"**IP**", "**local.txt contents**", "**proof.txt contents**"}

// skippedNodes are never rendered by the walk, nor is anything below them
var skippedNodes = map[string]bool{
	consts.NodeProof:    true,
	consts.NodeAppendix: true,
}

// Options control the layout of the assembled document
type Options struct {
	Sections []config.SectionConfig
	Trailing []config.SectionConfig
	// MaxDepth bounds tree loading and the walk
	MaxDepth int
}

// Result is an assembled report
type Result struct {
	Doc      *document.Document
	Personal *model.Personal
	Hosts    []*model.Node
}

// HostNames returns the host names in notebook order
func (r *Result) HostNames() []string {
	return hostNames(r.Hosts)
}

// Assembler builds the report document
type Assembler struct {
	nodes      store.NodeStore
	rich       *richtext.Reconstructor
	advisories advisory.Lookuper
	templates  *Templates
	opts       Options
	metrics    *telemetry.Metrics
}

// NewAssembler creates an assembler. metrics may be nil.
func NewAssembler(nodes store.NodeStore, rich *richtext.Reconstructor, advisories advisory.Lookuper,
	templates *Templates, opts Options, metrics *telemetry.Metrics) *Assembler {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = tree.DefaultMaxDepth
	}
	if metrics == nil {
		metrics = &telemetry.Metrics{}
	}
	return &Assembler{
		nodes:      nodes,
		rich:       rich,
		advisories: advisories,
		templates:  templates,
		opts:       opts,
		metrics:    metrics,
	}
}

// Assemble reads the Personal and Hosts nodes and builds the whole report.
// Any failure aborts the run; the caller persists nothing in that case.
func (a *Assembler) Assemble(ctx context.Context) (result *Result, err error) {
	ctx, span := telemetry.StartSpan(ctx, "report.assemble")
	defer telemetry.EndSpan(span, &err)

	personal, err := a.personal(ctx)
	if err != nil {
		return nil, err
	}

	root, err := tree.Load(ctx, a.nodes, consts.NodeHosts, a.opts.MaxDepth)
	if err != nil {
		return nil, err
	}
	a.metrics.RecordNodesLoaded(ctx, root.Count())
	hosts := root.Children
	names := hostNames(hosts)

	logger.Info("Assembling report",
		zap.String("osid", personal.OSID),
		zap.Int("hosts", len(hosts)),
	)

	doc := document.New()
	if err := a.titlePage(doc, personal, names); err != nil {
		return nil, err
	}
	if err := a.staticSections(doc, a.opts.Sections, personal, names); err != nil {
		return nil, err
	}
	doc.List("-", names)

	for _, h := range hosts {
		if err := a.host(ctx, doc, h); err != nil {
			return nil, err
		}
	}

	doc.PageBreak()
	if err := a.staticSections(doc, a.opts.Trailing, personal, names); err != nil {
		return nil, err
	}

	if err := a.appendices(ctx, doc, hosts); err != nil {
		return nil, err
	}

	return &Result{Doc: doc, Personal: personal, Hosts: hosts}, nil
}

func (a *Assembler) personal(ctx context.Context) (*model.Personal, error) {
	n, err := a.nodes.GetByName(ctx, consts.NodePersonal)
	if err != nil {
		return nil, err
	}
	p, err := model.ParsePersonal(n.Text)
	if err != nil {
		return nil, errors.ErrMalformedContent(consts.NodePersonal, err)
	}
	if _, err := p.ExamTime(); err != nil {
		return nil, errors.ErrMalformedContent(consts.NodePersonal, err)
	}
	return p, nil
}

func (a *Assembler) titlePage(doc *document.Document, p *model.Personal, hosts []string) error {
	title, err := a.templates.Title(p, hosts)
	if err != nil {
		return err
	}
	doc.FrontMatter(title)
	for _, cmd := range titleCommands {
		doc.Paragraph(cmd)
	}
	return nil
}

func (a *Assembler) staticSections(doc *document.Document, sections []config.SectionConfig, p *model.Personal, hosts []string) error {
	for _, s := range sections {
		text, err := a.templates.Section(s, p, hosts)
		if err != nil {
			return err
		}
		doc.Paragraph(text)
		if s.PageBreakAfter {
			doc.PageBreak()
		}
	}
	return nil
}

// host renders one host. A host with an Overview descendant uses the
// structured layout, anything else is rendered as one simple section.
func (a *Assembler) host(ctx context.Context, doc *document.Document, h *model.Node) (err error) {
	mode := ModeSimple
	if tree.HasDescendant(h, consts.NodeOverview) {
		mode = ModeStructured
	}

	ctx, span := telemetry.StartSpan(ctx, "report.host", trace.WithAttributes(
		telemetry.AttrHostName.String(h.Name),
		telemetry.AttrHostMode.String(mode),
	))
	defer telemetry.EndSpan(span, &err)

	logger.Debug("Rendering host", zap.String(logger.FieldHost, h.Name), zap.String("mode", mode))

	if mode == ModeSimple {
		doc.PageBreak()
		err = a.walk(ctx, doc, h, 1, walkOptions{}, 0)
	} else {
		err = a.structuredHost(ctx, doc, h)
	}
	if err != nil {
		return err
	}
	a.metrics.RecordHost(ctx, mode)
	return nil
}

func (a *Assembler) structuredHost(ctx context.Context, doc *document.Document, h *model.Node) error {
	overview, err := tree.FindDescendant(h, consts.NodeOverview)
	if err != nil {
		return err
	}
	ip, err := tree.FindDescendant(overview, consts.NodeHostIP)
	if err != nil {
		return err
	}
	hostname, err := tree.FindDescendant(overview, consts.NodeHostname)
	if err != nil {
		return err
	}
	summary, err := tree.FindDescendant(overview, consts.NodeHLSummary)
	if err != nil {
		return err
	}

	// resolve every section up front so a broken host emits nothing
	enum, err := tree.FindDescendant(h, consts.NodeServiceEnum)
	if err != nil {
		return err
	}
	var phases []*model.Node
	for _, name := range []string{consts.NodeExploitation, consts.NodePrivEsc} {
		n, err := tree.FindDescendant(h, name)
		if err != nil {
			return err
		}
		if len(n.Children) == 0 {
			return errors.New(errors.ErrCodeInvalidInput,
				fmt.Sprintf("%q of host %q has no summary node", name, h.Name))
		}
		phases = append(phases, n)
	}

	doc.PageBreak()
	doc.Header(1, fmt.Sprintf("System IP: %s (%s)", strings.TrimSpace(ip.Text), strings.TrimSpace(hostname.Text)))
	doc.Header(2, "Summary")
	doc.Paragraph(summary.Text)
	doc.PageBreak()

	if err := a.walk(ctx, doc, enum, 2, walkOptions{}, 0); err != nil {
		return err
	}

	for _, phase := range phases {
		doc.PageBreak()
		doc.Header(2, phase.Name)
		if err := a.summary(ctx, doc, phase.Children[0]); err != nil {
			return err
		}
		if err := a.walk(ctx, doc, tree.Without(phase, 0), 2, walkOptions{skipParent: true}, 0); err != nil {
			return err
		}
	}
	return nil
}

// summary writes the advisory lines of the first CVE-ID descendant, then
// every other child as labelled rich content.
func (a *Assembler) summary(ctx context.Context, doc *document.Document, n *model.Node) error {
	if cve, err := tree.FindDescendant(n, consts.NodeCVEID); err == nil {
		if err := a.advisoryLines(ctx, doc, cve.Text); err != nil {
			return err
		}
	}

	for _, child := range n.Children {
		if child.Name == consts.NodeCVEID {
			continue
		}
		if err := a.rich.Render(ctx, doc, child, fmt.Sprintf("**%s**: ", child.Name)); err != nil {
			return err
		}
	}

	doc.PageBreak()
	return nil
}

func (a *Assembler) advisoryLines(ctx context.Context, doc *document.Document, raw string) error {
	if strings.TrimSpace(raw) == "" {
		logger.Debug("Empty CVE-ID node, skipping advisory lookup")
		return nil
	}
	id, err := advisory.NormalizeID(raw)
	if err != nil {
		return err
	}
	adv, err := a.advisories.Lookup(ctx, id)
	if err != nil {
		return err
	}
	for _, f := range advisory.Fields(adv) {
		doc.Paragraph(fmt.Sprintf("**%s**: %s", f.Label, f.Text))
	}
	return nil
}

// appendices writes the local/proof overview table followed by every child
// of each host's Appendix node.
func (a *Assembler) appendices(ctx context.Context, doc *document.Document, hosts []*model.Node) error {
	doc.PageBreak()
	doc.Write(`\appendix`)
	doc.NewLine("")
	doc.Write(`\section{Overview local and proof contents}`)

	cells := append([]string(nil), proofColumns...)
	for _, h := range hosts {
		local, err := flagContents(h, consts.NodeLocalTxt)
		if err != nil {
			return err
		}
		proof, err := flagContents(h, consts.NodeProofTxt)
		if err != nil {
			return err
		}
		cells = append(cells, h.Name, footnote(local), footnote(proof))
	}
	doc.Table(len(proofColumns), cells)

	for _, h := range hosts {
		appendix, err := tree.FindDescendant(h, consts.NodeAppendix)
		if err != nil {
			logger.Debug("Host has no appendix", zap.String(logger.FieldHost, h.Name))
			continue
		}
		for _, child := range appendix.Children {
			doc.PageBreak()
			doc.Write(fmt.Sprintf(`\section{%s}`, child.Name))
			if err := a.walk(ctx, doc, child, 2, walkOptions{noHeader: true}, 0); err != nil {
				return err
			}
		}
	}
	return nil
}

// flagContents returns the trimmed text of the contents node below the
// named flag node of a host
func flagContents(h *model.Node, flag string) (string, error) {
	n, err := tree.FindDescendant(h, flag)
	if err != nil {
		return "", err
	}
	contents, err := tree.FindDescendant(n, consts.NodeContents)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(contents.Text), nil
}

func footnote(s string) string {
	if s == "" {
		s = consts.EmptyPlaceholder
	}
	return `\footnotesize ` + s
}

func hostNames(hosts []*model.Node) []string {
	names := make([]string, len(hosts))
	for i, h := range hosts {
		names[i] = h.Name
	}
	return names
}
