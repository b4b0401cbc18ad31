package exporter

import (
	"bytes"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/verustcode/ctreport/pkg/errors"
)

// PDFCheck is the outcome of VerifyPDF
type PDFCheck struct {
	Pages int
	// Missing lists expected strings not found in the extracted text
	Missing []string
}

// VerifyPDF validates the structure of a generated PDF, counts its pages and
// looks for each expected string in the extracted text. A structurally
// invalid file is an error; missing text is reported in the result since
// text extraction depends on the fonts Chrome embedded.
func VerifyPDF(data []byte, expect []string) (*PDFCheck, error) {
	rs := bytes.NewReader(data)
	if err := pdfapi.Validate(rs, nil); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, "generated PDF is invalid", err)
	}
	if _, err := rs.Seek(0, 0); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, "failed to rewind PDF", err)
	}
	pages, err := pdfapi.PageCount(rs, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeRender, "failed to count PDF pages", err)
	}

	check := &PDFCheck{Pages: pages}
	if len(expect) == 0 {
		return check, nil
	}

	text, err := extractText(data)
	if err != nil {
		check.Missing = append(check.Missing, expect...)
		return check, nil
	}
	for _, s := range expect {
		if !strings.Contains(text, s) {
			check.Missing = append(check.Missing, s)
		}
	}
	return check, nil
}

func extractText(data []byte) (string, error) {
	reader, err := pdflib.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var buf strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		buf.WriteString(text)
		buf.WriteString("\f")
	}
	return buf.String(), nil
}
