package fetcher

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

// Document is a fetched page parsed for CSS-selector queries. Relative
// hrefs resolve against the page's final URL.
type Document struct {
	*goquery.Document
	base *url.URL
}

// NewDocument parses the markup of a fetched page.
func NewDocument(page *plugin.PageData) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML()))
	if err != nil {
		return nil, err
	}

	base, err := url.Parse(page.FinalURL)
	if err != nil || page.FinalURL == "" {
		base, _ = url.Parse(page.URL)
	}

	return &Document{Document: doc, base: base}, nil
}

// Links returns every element matching selector that carries a usable href,
// in document order. The label is the element's title attribute, falling
// back to its trimmed text.
func (d *Document) Links(selector string) []plugin.LinkRef {
	var links []plugin.LinkRef

	d.Find(selector).Each(func(_ int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}

		// Skip fragments, javascript:, mailto:, tel:
		trimmed := strings.TrimSpace(href)
		if trimmed == "" ||
			strings.HasPrefix(trimmed, "#") ||
			strings.HasPrefix(trimmed, "javascript:") ||
			strings.HasPrefix(trimmed, "mailto:") ||
			strings.HasPrefix(trimmed, "tel:") {
			return
		}

		resolved := d.Resolve(trimmed)
		if resolved == "" {
			return
		}

		label, ok := s.Attr("title")
		if !ok {
			label = strings.TrimSpace(s.Text())
		}

		links = append(links, plugin.LinkRef{Label: label, URL: resolved})
	})

	return links
}

// Resolve resolves a potentially relative URL against the document URL.
func (d *Document) Resolve(raw string) string {
	if d.base == nil {
		return raw
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return d.base.ResolveReference(ref).String()
}
