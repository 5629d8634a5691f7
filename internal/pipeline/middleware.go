package pipeline

import (
	"html"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/compscout/internal/types"
)

// HTMLSanitizeMiddleware strips markup from free-text product fields.
// The parsed API output occasionally carries raw HTML in descriptions and titles.
type HTMLSanitizeMiddleware struct{}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(p *types.Product) (*types.Product, error) {
	p.Title = plainText(p.Title)
	p.Description = plainText(p.Description)
	p.Brand = plainText(p.Brand)
	return p, nil
}

// plainText returns the text content of s with whitespace collapsed.
func plainText(s string) string {
	if s == "" {
		return s
	}
	if strings.ContainsAny(s, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(s)); err == nil {
			s = doc.Text()
		} else {
			s = html.UnescapeString(s)
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
