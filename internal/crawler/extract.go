package crawler

import (
	"bytes"
	"strings"

	"github.com/antchfx/htmlquery"
)

// textXPath selects body text nodes that are not inside page chrome or
// non-content elements.
const textXPath = `//body//text()[not(` +
	`ancestor::script or ancestor::style or ancestor::nav or ` +
	`ancestor::header or ancestor::footer or ancestor::aside or ` +
	`ancestor::iframe or ancestor::noscript)]`

// ExtractText parses an HTML body and returns its visible text: trimmed,
// non-empty fragments joined with single spaces. An empty result is valid and
// signals a page with no extractable body text (e.g. a JavaScript app shell).
// No length limit is applied; truncation is the analysis layer's concern.
func ExtractText(body []byte) (string, error) {
	doc, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return "", err
	}

	nodes := htmlquery.Find(doc, textXPath)

	parts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if t := strings.TrimSpace(n.Data); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " "), nil
}
