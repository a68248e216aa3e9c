package extractor

import (
	"strings"

	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

const forwardNavigationLabel = "next page"

// isForwardNavigationLink reports whether a pager link is the "next page"
// control rather than a numbered page. Its target is always also linked by
// number.
func isForwardNavigationLink(link plugin.LinkRef) bool {
	return strings.TrimSpace(link.Label) == forwardNavigationLabel
}

// ResolvePages returns the additional listing pages linked from a pager, in
// pager order, without the forward-navigation control, duplicates or the
// current page itself.
func ResolvePages(pager []plugin.LinkRef, current string) []string {
	seen := map[string]bool{current: true}
	var pages []string
	for _, link := range pager {
		if isForwardNavigationLink(link) || seen[link.URL] {
			continue
		}
		seen[link.URL] = true
		pages = append(pages, link.URL)
	}
	return pages
}
