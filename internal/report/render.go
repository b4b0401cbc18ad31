package report

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/verustcode/ctreport/internal/config"
	"github.com/verustcode/ctreport/internal/document"
	"github.com/verustcode/ctreport/internal/model"
	"github.com/verustcode/ctreport/internal/report/exporter"
	"github.com/verustcode/ctreport/pkg/errors"
	"github.com/verustcode/ctreport/pkg/logger"
)

// RenderJob describes a written report to turn into a PDF
type RenderJob struct {
	Doc          *document.Document
	MarkdownPath string
	Personal     *model.Personal
	Hosts        []string
}

// Renderer produces the final PDF from a written report
type Renderer interface {
	Name() string
	// Render returns the path of the produced file, or "" when the renderer
	// does not know it
	Render(ctx context.Context, job RenderJob) (string, error)
}

// NewRenderer creates the renderer selected by cfg.Mode
func NewRenderer(cfg config.RenderConfig) (Renderer, error) {
	switch cfg.Mode {
	case config.RenderModeScript:
		return NewScriptRenderer(cfg.Shell, cfg.Script, cfg.Timeout), nil
	case config.RenderModeChrome:
		lang, err := config.ParseLanguage(cfg.Language)
		if err != nil {
			return nil, err
		}
		base, err := filepath.Abs(".")
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, "failed to resolve working directory", err)
		}
		opts := exporter.DefaultPDFOptions()
		opts.ChromePath = cfg.ChromePath
		if cfg.Timeout > 0 {
			opts.Timeout = cfg.Timeout
		}
		htmlExporter := exporter.NewHTMLExporter(exporter.HTMLOptions{Lang: lang.Tag(), BaseDir: base})
		return NewChromeRenderer(exporter.NewPDFExporter(htmlExporter, opts), cfg.Verify), nil
	case config.RenderModeNone:
		return NoneRenderer{}, nil
	}
	return nil, errors.New(errors.ErrCodeConfigInvalid, fmt.Sprintf("unknown render mode %q", cfg.Mode))
}

// ScriptRenderer runs <shell> <script> <osid> <exam_date>
type ScriptRenderer struct {
	shell   string
	script  string
	timeout time.Duration
}

// NewScriptRenderer creates a script renderer. A zero timeout disables the limit.
func NewScriptRenderer(shell, script string, timeout time.Duration) *ScriptRenderer {
	return &ScriptRenderer{shell: shell, script: script, timeout: timeout}
}

// Name implements Renderer
func (r *ScriptRenderer) Name() string { return config.RenderModeScript }

// Render implements Renderer
func (r *ScriptRenderer) Render(ctx context.Context, job RenderJob) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.shell, r.script, job.Personal.OSID, job.Personal.ExamDate)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	logger.Info("Running render script",
		zap.String("shell", r.shell),
		zap.String("script", r.script),
	)
	start := time.Now()
	err := cmd.Run()
	logOutput(out.Bytes())
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeRender, fmt.Sprintf("render script %s failed", r.script), err).
			WithDetails(map[string]any{"output": tail(out.String(), 2048)})
	}
	logger.Info("Render script finished", zap.Duration("duration", time.Since(start)))

	pdf := exporter.ReplaceExtension(job.MarkdownPath, ".pdf")
	if _, err := os.Stat(pdf); err != nil {
		return "", nil
	}
	return pdf, nil
}

func logOutput(out []byte) {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		logger.Debug("render: " + sc.Text())
	}
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

// ChromeRenderer prints the HTML rendition of the document with headless
// Chrome and writes the PDF next to the markdown file
type ChromeRenderer struct {
	pdf    *exporter.PDFExporter
	verify bool
}

// NewChromeRenderer creates a chrome renderer. With verify set the PDF is
// validated and searched for every host name.
func NewChromeRenderer(pdf *exporter.PDFExporter, verify bool) *ChromeRenderer {
	return &ChromeRenderer{pdf: pdf, verify: verify}
}

// Name implements Renderer
func (r *ChromeRenderer) Name() string { return config.RenderModeChrome }

// Render implements Renderer
func (r *ChromeRenderer) Render(ctx context.Context, job RenderJob) (string, error) {
	data, err := r.pdf.ExportContext(ctx, job.Doc)
	if err != nil {
		return "", err
	}

	if r.verify {
		check, err := exporter.VerifyPDF(data, job.Hosts)
		if err != nil {
			return "", err
		}
		logger.Info("Verified PDF", zap.Int("pages", check.Pages))
		if len(check.Missing) > 0 {
			logger.Warn("PDF text is missing host names", zap.Strings("missing", check.Missing))
		}
	}

	path := exporter.ReplaceExtension(job.MarkdownPath, ".pdf")
	if err := exporter.WriteFile(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// NoneRenderer leaves the markdown as the final output
type NoneRenderer struct{}

// Name implements Renderer
func (NoneRenderer) Name() string { return config.RenderModeNone }

// Render implements Renderer
func (NoneRenderer) Render(context.Context, RenderJob) (string, error) { return "", nil }
