// Package exporter turns an assembled document into output files.
package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/verustcode/ctreport/internal/document"
	"github.com/verustcode/ctreport/pkg/errors"
	"github.com/verustcode/ctreport/pkg/logger"
)

// ExportFormat represents the export format type
type ExportFormat string

const (
	// ExportFormatMarkdown represents LaTeX-flavoured markdown
	ExportFormatMarkdown ExportFormat = "markdown"
	// ExportFormatHTML represents a standalone HTML page
	ExportFormatHTML ExportFormat = "html"
	// ExportFormatPDF represents PDF printed through headless Chrome
	ExportFormatPDF ExportFormat = "pdf"
)

// DocumentExporter defines the interface for document exporters
type DocumentExporter interface {
	// Export renders a document to bytes
	Export(doc *document.Document) ([]byte, error)
	// Name returns the human-readable name of the exporter
	Name() string
	// FileExtension returns the file extension including the dot
	FileExtension() string
}

// ExportManager manages all registered exporters
type ExportManager struct {
	exporters map[ExportFormat]DocumentExporter
	mu        sync.RWMutex
}

// NewExportManager creates a new export manager
func NewExportManager() *ExportManager {
	return &ExportManager{
		exporters: make(map[ExportFormat]DocumentExporter),
	}
}

// Register registers an exporter for a specific format
func (m *ExportManager) Register(format ExportFormat, exporter DocumentExporter) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exporters[format] = exporter
	logger.Debug("Registered document exporter",
		zap.String("format", string(format)),
		zap.String("name", exporter.Name()),
	)
}

// GetExporter returns the exporter for a specific format
func (m *ExportManager) GetExporter(format ExportFormat) (DocumentExporter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	exporter, ok := m.exporters[format]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, fmt.Sprintf("no exporter registered for format: %s", format))
	}
	return exporter, nil
}

// Export renders a document using the specified format
func (m *ExportManager) Export(doc *document.Document, format ExportFormat) ([]byte, error) {
	exporter, err := m.GetExporter(format)
	if err != nil {
		return nil, err
	}

	logger.Debug("Exporting document",
		zap.String("format", string(format)),
		zap.Int("blocks", doc.Len()),
	)

	content, err := exporter.Export(doc)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, fmt.Sprintf("%s export failed", exporter.Name()), err)
	}
	return content, nil
}

// ExportToFile renders a document and writes it to outputPath. Nothing is
// written when rendering fails.
func (m *ExportManager) ExportToFile(doc *document.Document, outputPath string, format ExportFormat) error {
	content, err := m.Export(doc, format)
	if err != nil {
		return err
	}
	if err := WriteFile(outputPath, content); err != nil {
		return err
	}

	logger.Info("Document exported to file",
		zap.String("format", string(format)),
		zap.String(logger.FieldPath, outputPath),
		zap.String("size", formatBytes(len(content))),
	)
	return nil
}

// SupportedFormats returns the registered formats in name order
func (m *ExportManager) SupportedFormats() []ExportFormat {
	m.mu.RLock()
	defer m.mu.RUnlock()

	formats := make([]ExportFormat, 0, len(m.exporters))
	for format := range m.exporters {
		formats = append(formats, format)
	}
	sort.Slice(formats, func(i, j int) bool { return formats[i] < formats[j] })
	return formats
}

// WriteFile creates the parent directory and writes content atomically
// through a temporary file in the same directory.
func WriteFile(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeWrite, "failed to create output directory", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return errors.Wrap(errors.ErrCodeWrite, "failed to create temp file", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeWrite, "failed to write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeWrite, "failed to close temp file", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeWrite, "failed to set file mode", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(errors.ErrCodeWrite, "failed to move file into place", err)
	}
	return nil
}

// ReplaceExtension swaps the extension of path for ext
func ReplaceExtension(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// formatBytes converts bytes to human-readable format
func formatBytes(bytes int) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := int64(bytes) / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
