package crawler

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/ramkansal/hacico-crawler/internal/fetcher"
	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

// fakeSite serves canned pages by absolute URL.
type fakeSite struct {
	mu     sync.Mutex
	pages  map[string]string
	hits   map[string]int
	jitter time.Duration
}

func newFakeSite() *fakeSite {
	return &fakeSite{pages: make(map[string]string), hits: make(map[string]int)}
}

func (s *fakeSite) Name() string { return "fake" }

func (s *fakeSite) Fetch(ctx context.Context, url string) (*plugin.PageData, error) {
	s.mu.Lock()
	s.hits[url]++
	body, ok := s.pages[url]
	jitter := s.jitter
	s.mu.Unlock()

	if jitter > 0 {
		time.Sleep(time.Duration(rand.Int63n(int64(jitter))))
	}
	if !ok {
		return nil, &fetcher.FetchError{URL: url, StatusCode: 404}
	}
	return &plugin.PageData{URL: url, FinalURL: url, StatusCode: 200, RawHTML: body}, nil
}

func (s *fakeSite) Close() error { return nil }

func (s *fakeSite) set(url, body string) { s.pages[url] = body }

func (s *fakeSite) hitCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[url]
}

func countryIndex(links map[string]string, order ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="meineListe">`)
	for _, name := range order {
		fmt.Fprintf(&b, `<div><a href="%s" title="%s">%s cigars</a></div>`, links[name], name, name)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func categoryIndex(hrefs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="list_left">`)
	for i, href := range hrefs {
		fmt.Fprintf(&b, `<div><a href="%s">Brand %d</a></div>`, href, i)
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

type pagerLink struct {
	title string
	href  string
}

func listingPage(products []string, pager ...pagerLink) string {
	var b strings.Builder
	b.WriteString(`<html><body>`)
	for _, href := range products {
		fmt.Fprintf(&b, `<div class="product_listing_box_name"><a href="%s">product</a></div>`, href)
	}
	b.WriteString(`<div class="centerbox">`)
	for _, p := range pager {
		fmt.Fprintf(&b, `<a class="pageResults" href="%s" title="%s">%s</a> `, p.href, p.title, strings.TrimSpace(p.title))
	}
	b.WriteString(`</div></body></html>`)
	return b.String()
}

type offer struct {
	typ   string
	price string
	buy   bool
}

const robustoPanel = `Fabrikformat: Robusto<br/>Länge in cm: 12,7<br/>Durchmesser in cm: 1,98<br/>`

func productPage(name, img string, offers ...offer) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="product_info_box">`)
	fmt.Fprintf(&b, `<div class="product_info_box_middle_left"><h1>%s</h1><img src="%s"></div>`, name, img)
	fmt.Fprintf(&b, `<div class="product_info_box_middle_right"><div><div>%s</div></div></div>`, robustoPanel)
	b.WriteString(`</div><table>`)
	for _, o := range offers {
		cells := make([]string, 11)
		cells[3] = o.typ
		cells[6] = "<b>" + o.price + "</b>"
		if o.buy {
			cells[10] = `<input type="submit">`
		}
		b.WriteString(`<tr class="tableListingI">`)
		for _, c := range cells {
			fmt.Fprintf(&b, "<td>%s</td>", c)
		}
		b.WriteString(`</tr>`)
	}
	b.WriteString(`</table></body></html>`)
	return b.String()
}
