package check

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// Report collects and displays check results
type Report struct {
	FileResults       []FileCheckResult
	ValidationResults []ValidationResult
}

// NewReport creates a new report
func NewReport() *Report {
	return &Report{
		FileResults:       make([]FileCheckResult, 0),
		ValidationResults: make([]ValidationResult, 0),
	}
}

// AddFileResult adds a file check result
func (r *Report) AddFileResult(result FileCheckResult) {
	r.FileResults = append(r.FileResults, result)
}

// AddValidationResult adds a validation result
func (r *Report) AddValidationResult(result ValidationResult) {
	r.ValidationResults = append(r.ValidationResults, result)
}

// ReportSummary holds the summary statistics
type ReportSummary struct {
	TotalFiles       int
	FilesExist       int
	FilesCreated     int
	FilesMissing     int
	TotalValidations int
	ValidationsValid int
	ValidationErrors int
	HasErrors        bool
	HasWarnings      bool
}

// Summary calculates the summary from all results
func (r *Report) Summary() ReportSummary {
	summary := ReportSummary{TotalFiles: len(r.FileResults)}

	for _, result := range r.FileResults {
		switch {
		case result.Created:
			summary.FilesCreated++
			summary.FilesExist++
		case result.Exists:
			summary.FilesExist++
		default:
			summary.FilesMissing++
		}
		if result.Error != nil {
			summary.HasErrors = true
		}
	}

	summary.TotalValidations = len(r.ValidationResults)
	for _, result := range r.ValidationResults {
		if result.Valid {
			summary.ValidationsValid++
		} else {
			summary.ValidationErrors++
			summary.HasErrors = true
		}
		if len(result.Warnings) > 0 {
			summary.HasWarnings = true
		}
	}

	return summary
}

// Print prints the separator and the final status line
func (r *Report) Print(w io.Writer) {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	fmt.Fprintln(w, style.Render(strings.Repeat("─", 50)))

	summary := r.Summary()
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	switch {
	case summary.HasErrors:
		red.Fprint(w, "✗ Check completed")
	case summary.HasWarnings || summary.FilesMissing > 0:
		yellow.Fprint(w, "⚠ Check completed")
	default:
		green.Fprint(w, "✓ Check completed")
	}

	if details := summary.details(); len(details) > 0 {
		fmt.Fprintf(w, " (%s)\n", strings.Join(details, ", "))
	} else {
		fmt.Fprintln(w, " - All checks passed")
	}
}

func (s ReportSummary) details() []string {
	var details []string
	if s.FilesCreated > 0 {
		details = append(details, fmt.Sprintf("%d file(s) created", s.FilesCreated))
	}
	if s.FilesMissing > 0 {
		details = append(details, fmt.Sprintf("%d file(s) missing", s.FilesMissing))
	}
	if s.ValidationErrors > 0 {
		details = append(details, fmt.Sprintf("%d validation error(s)", s.ValidationErrors))
	}
	return details
}
