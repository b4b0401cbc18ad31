package store

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const xmlDeclPrefix = "<?xml"

// NormalizeText returns the plain text of a node. Rich-text nodes are stored
// as an XML document; only the character data inside its root element is
// kept. Anything else is returned unchanged.
func NormalizeText(raw string) (string, error) {
	if !strings.HasPrefix(raw, xmlDeclPrefix) {
		return raw, nil
	}

	dec := xml.NewDecoder(strings.NewReader(raw))
	var (
		b       strings.Builder
		depth   int
		sawRoot bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse rich text: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			sawRoot = true
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth > 0 {
				b.Write(t)
			}
		}
	}
	if !sawRoot {
		return "", fmt.Errorf("parse rich text: no root element")
	}
	return b.String(), nil
}
