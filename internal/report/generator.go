package report

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/verustcode/ctreport/consts"
	"github.com/verustcode/ctreport/internal/advisory"
	"github.com/verustcode/ctreport/internal/config"
	"github.com/verustcode/ctreport/internal/database"
	"github.com/verustcode/ctreport/internal/model"
	"github.com/verustcode/ctreport/internal/report/exporter"
	"github.com/verustcode/ctreport/internal/richtext"
	"github.com/verustcode/ctreport/internal/store"
	"github.com/verustcode/ctreport/pkg/idgen"
	"github.com/verustcode/ctreport/pkg/logger"
	"github.com/verustcode/ctreport/pkg/telemetry"
)

// Output describes a finished run
type Output struct {
	RunID        string
	MarkdownPath string
	// PDFPath is empty when rendering was skipped or its output is unknown
	PDFPath  string
	Hosts    []string
	Images   []string
	Duration time.Duration
}

// Generator runs one report build: read the notebook, assemble the
// document, write the markdown and images, then render.
type Generator struct {
	cfg        *config.Config
	advisories advisory.Lookuper
	renderer   Renderer
	templates  *Templates
	metrics    *telemetry.Metrics
}

// GeneratorOption configures a Generator
type GeneratorOption func(*Generator)

// WithLookuper replaces the advisory client
func WithLookuper(l advisory.Lookuper) GeneratorOption {
	return func(g *Generator) { g.advisories = l }
}

// WithRenderer replaces the renderer selected by the configuration
func WithRenderer(r Renderer) GeneratorOption {
	return func(g *Generator) { g.renderer = r }
}

// WithTemplates replaces the template set
func WithTemplates(t *Templates) GeneratorOption {
	return func(g *Generator) { g.templates = t }
}

// WithGeneratorMetrics records run metrics
func WithGeneratorMetrics(m *telemetry.Metrics) GeneratorOption {
	return func(g *Generator) { g.metrics = m }
}

// NewGenerator creates a generator from cfg
func NewGenerator(cfg *config.Config, opts ...GeneratorOption) (*Generator, error) {
	g := &Generator{cfg: cfg}
	for _, opt := range opts {
		opt(g)
	}

	if g.metrics == nil {
		g.metrics = &telemetry.Metrics{}
	}
	if g.advisories == nil {
		client := advisory.NewClient(cfg.Advisory.BaseURL, cfg.Advisory.Timeout,
			advisory.WithRateLimit(cfg.Advisory.RateLimit))
		g.advisories = advisory.NewCache(client, g.metrics)
	}
	if g.templates == nil {
		g.templates = NewTemplates(cfg.Output.TitleTemplate, cfg.Output.StaticDir, DefaultLayers(cfg.Output.TemplateDir)...)
	}
	if g.renderer == nil {
		r, err := NewRenderer(cfg.Render)
		if err != nil {
			return nil, err
		}
		g.renderer = r
	}
	return g, nil
}

// ReportPath returns <dir>/<exam_date>/OSCP-<osid>-Exam-Report.md
func ReportPath(dir string, p *model.Personal) string {
	return filepath.Join(dir, p.ExamDate, fmt.Sprintf(consts.ReportFilePattern, p.OSID)+".md")
}

// Generate builds the report for the notebook at storePath. Images and the
// markdown file are written only after the whole document was assembled.
func (g *Generator) Generate(ctx context.Context, storePath string) (out *Output, err error) {
	runID := idgen.NewRunID()
	log := logger.ForRun(runID)
	start := time.Now()

	ctx, span := telemetry.StartSpan(ctx, "report.generate", telemetry.WithRunAttributes(runID, storePath))
	defer telemetry.EndSpan(span, &err)

	log.Info("Generating report", zap.String(logger.FieldPath, storePath))

	db, err := database.Open(storePath, database.Options{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer database.Close(db)

	st := store.NewStore(db)
	if err := st.CheckSchema(); err != nil {
		return nil, err
	}

	sink := richtext.NewMemorySink()
	var result *Result
	err = g.stage(ctx, "assemble", func() error {
		return st.Snapshot(ctx, func(tx store.Store) error {
			rich := richtext.New(tx.Nodes(), sink,
				richtext.WithImagesRef(filepath.ToSlash(g.cfg.Output.ImagesDir)),
				richtext.WithMetrics(g.metrics),
			)
			asm := NewAssembler(tx.Nodes(), rich, g.advisories, g.templates, Options{
				Sections: g.cfg.Sections,
				Trailing: g.cfg.Trailing,
				MaxDepth: g.cfg.Store.MaxDepth,
			}, g.metrics)

			var err error
			result, err = asm.Assemble(ctx)
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	out = &Output{
		RunID:        runID,
		MarkdownPath: ReportPath(g.cfg.Output.Dir, result.Personal),
		Hosts:        result.HostNames(),
		Images:       sink.Names(),
	}
	span.SetAttributes(telemetry.AttrOutput.String(out.MarkdownPath))
	if replaced := sink.Replaced(); len(replaced) > 0 {
		log.Warn("Some images were overwritten by nodes with the same name",
			zap.Strings("images", replaced),
		)
	}

	err = g.stage(ctx, "write", func() error {
		dir := richtext.NewDirSink(g.cfg.Output.ImagesDir)
		for _, name := range out.Images {
			data, _ := sink.Get(name)
			if err := dir.WriteImage(name, data); err != nil {
				return err
			}
		}

		manager := exporter.NewExportManager()
		manager.Register(exporter.ExportFormatMarkdown, exporter.NewMarkdownExporter())
		return manager.ExportToFile(result.Doc, out.MarkdownPath, exporter.ExportFormatMarkdown)
	})
	if err != nil {
		return nil, err
	}
	log.Info("Report written",
		zap.String(logger.FieldPath, out.MarkdownPath),
		zap.Int("images", len(out.Images)),
	)

	err = g.stage(ctx, "render", func() error {
		rctx, rspan := telemetry.StartSpan(ctx, "report.render",
			trace.WithAttributes(telemetry.AttrRenderer.String(g.renderer.Name())))
		var rerr error
		defer telemetry.EndSpan(rspan, &rerr)

		out.PDFPath, rerr = g.renderer.Render(rctx, RenderJob{
			Doc:          result.Doc,
			MarkdownPath: out.MarkdownPath,
			Personal:     result.Personal,
			Hosts:        out.Hosts,
		})
		return rerr
	})
	if err != nil {
		return nil, err
	}

	out.Duration = time.Since(start)
	log.Info("Report generated",
		zap.String("renderer", g.renderer.Name()),
		zap.String("pdf", out.PDFPath),
		zap.Duration("duration", out.Duration),
	)
	return out, nil
}

// stage times fn and records the duration
func (g *Generator) stage(ctx context.Context, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	g.metrics.RecordStage(ctx, name, time.Since(start).Seconds())
	return err
}
