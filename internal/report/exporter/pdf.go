package exporter

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/verustcode/ctreport/internal/document"
	"github.com/verustcode/ctreport/pkg/errors"
	"github.com/verustcode/ctreport/pkg/logger"
)

// PDFOptions contains configuration for PDF generation
type PDFOptions struct {
	// Paper dimensions in inches (A4: 8.27 x 11.69)
	PaperWidth  float64
	PaperHeight float64

	// Margins in inches
	MarginTop    float64
	MarginBottom float64
	MarginLeft   float64
	MarginRight  float64

	// DisplayHeaderFooter prints the report title and page numbers
	DisplayHeaderFooter bool
	HeaderText          string

	// Print background colors and images
	PrintBackground bool

	// ChromePath overrides the browser binary. CHROME_PATH is used when empty.
	ChromePath string

	// Timeout for PDF generation
	Timeout time.Duration
}

// DefaultPDFOptions returns default PDF options for A4 paper
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		PaperWidth:  8.27,
		PaperHeight: 11.69,

		MarginTop:    0.71, // ~18mm
		MarginBottom: 0.59, // ~15mm
		MarginLeft:   0.79, // ~20mm
		MarginRight:  0.79, // ~20mm

		DisplayHeaderFooter: true,
		PrintBackground:     true,
		Timeout:             120 * time.Second,
	}
}

// PDFExporter prints the HTML rendition of a document through headless Chrome
type PDFExporter struct {
	html    *HTMLExporter
	options PDFOptions
}

// NewPDFExporter creates a new PDF exporter on top of an HTML exporter
func NewPDFExporter(htmlExporter *HTMLExporter, opts PDFOptions) *PDFExporter {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPDFOptions().Timeout
	}
	return &PDFExporter{
		html:    htmlExporter,
		options: opts,
	}
}

// Name returns the human-readable name of this exporter
func (e *PDFExporter) Name() string {
	return "PDF"
}

// FileExtension returns the file extension for PDF files
func (e *PDFExporter) FileExtension() string {
	return ".pdf"
}

// Export renders the document to PDF bytes
func (e *PDFExporter) Export(doc *document.Document) ([]byte, error) {
	return e.ExportContext(context.Background(), doc)
}

// ExportContext renders the document to PDF bytes. The configured timeout is
// applied on top of ctx.
func (e *PDFExporter) ExportContext(ctx context.Context, doc *document.Document) ([]byte, error) {
	startTime := time.Now()

	htmlData, err := e.html.Export(doc)
	if err != nil {
		return nil, err
	}
	logger.Debug("[PDF Export] HTML generated", zap.String("size", formatBytes(len(htmlData))))

	// Chrome loads the page from a file to avoid data URL size limits
	tmpFile, err := os.CreateTemp("", "ctreport-pdf-*.html")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, "failed to create temp file", err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(htmlData); err != nil {
		tmpFile.Close()
		return nil, errors.Wrap(errors.ErrCodeRender, "failed to write temp file", err)
	}
	tmpFile.Close()

	ctx, cancel := context.WithTimeout(ctx, e.options.Timeout)
	defer cancel()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("headless", true),
		chromedp.WSURLReadTimeout(60*time.Second),
	)
	chromePath := e.options.ChromePath
	if chromePath == "" {
		chromePath = os.Getenv("CHROME_PATH")
	}
	if chromePath != "" {
		opts = append(opts, chromedp.ExecPath(chromePath))
		logger.Debug("[PDF Export] Using custom Chrome path", zap.String("chrome_path", chromePath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf("[PDF Export] chromedp: "+format, args...))
		}),
	)
	defer browserCancel()

	header, footer := e.headerFooter()
	var pdfData []byte
	chromeStartTime := time.Now()
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("file://"+tmpPath),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = page.PrintToPDF().
				WithPaperWidth(e.options.PaperWidth).
				WithPaperHeight(e.options.PaperHeight).
				WithMarginTop(e.options.MarginTop).
				WithMarginBottom(e.options.MarginBottom).
				WithMarginLeft(e.options.MarginLeft).
				WithMarginRight(e.options.MarginRight).
				WithDisplayHeaderFooter(e.options.DisplayHeaderFooter).
				WithHeaderTemplate(header).
				WithFooterTemplate(footer).
				WithPrintBackground(e.options.PrintBackground).
				WithPreferCSSPageSize(false).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		logger.Error("[PDF Export] Failed to generate PDF",
			zap.Error(err),
			zap.Duration("chrome_duration", time.Since(chromeStartTime)),
		)
		return nil, errors.Wrap(errors.ErrCodeRender, "failed to generate PDF", err)
	}

	logger.Info("[PDF Export] PDF export completed",
		zap.String("pdf_size", formatBytes(len(pdfData))),
		zap.Duration("chrome_duration", time.Since(chromeStartTime)),
		zap.Duration("total_duration", time.Since(startTime)),
	)
	return pdfData, nil
}

// headerFooter creates the header and footer templates. Chrome fills the
// elements with the pageNumber and totalPages classes.
func (e *PDFExporter) headerFooter() (header, footer string) {
	header = fmt.Sprintf(`<div style="width:100%%; padding:0 20px; font-size:8px; font-family:sans-serif; color:#666;">%s</div>`,
		html.EscapeString(e.options.HeaderText))
	footer = `<div style="width:100%; padding:0 20px; font-size:8px; font-family:sans-serif; color:#666; text-align:right;">` +
		`Page <span class="pageNumber"></span> of <span class="totalPages"></span></div>`
	return header, footer
}
