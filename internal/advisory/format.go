package advisory

import (
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/verustcode/ctreport/consts"
)

// Field is one labelled advisory line
type Field struct {
	Label string
	Text  string
}

// Field labels in display order
const (
	LabelID       = "CVE-ID"
	LabelSummary  = "Summary"
	LabelWeakness = "CWE-ID"
	LabelSeverity = "CVSS 3.x Severity"
	LabelAdvisory = "Vendor advisory"
)

var lower = cases.Lower(language.Und)

// severityColors maps lower-cased CVSS severities to xcolor names
var severityColors = map[string]string{
	"critical": "Red",
	"high":     "RedOrange",
	"medium":   "Orange",
	"low":      "GreenYellow",
}

// SeverityColor returns the box color for a severity label. Matching ignores
// case; unknown labels are Green.
func SeverityColor(label string) string {
	if c, ok := severityColors[lower.String(label)]; ok {
		return c
	}
	return "Green"
}

// FormatSeverity renders the colored severity box
func FormatSeverity(score float64, label string) string {
	return fmt.Sprintf(`\colorbox{%s}{%s %s}`, SeverityColor(label), formatScore(score), lower.String(label))
}

// formatScore always keeps one decimal for whole scores ("10.0")
func formatScore(score float64) string {
	if score == math.Trunc(score) {
		return strconv.FormatFloat(score, 'f', 1, 64)
	}
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// Fields returns the advisory lines in display order. Missing optional
// values are shown as a dash.
func Fields(a *Advisory) []Field {
	return []Field{
		{Label: LabelID, Text: a.ID},
		{Label: LabelSummary, Text: a.Summary},
		{Label: LabelWeakness, Text: orPlaceholder(a.Weakness)},
		{Label: LabelSeverity, Text: FormatSeverity(a.Score, a.Severity)},
		{Label: LabelAdvisory, Text: orPlaceholder(a.AdvisoryURL)},
	}
}

func orPlaceholder(s string) string {
	if s == "" {
		return consts.EmptyPlaceholder
	}
	return s
}
