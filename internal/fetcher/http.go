package fetcher

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

// HTTPFetcher uses Colly for fast, efficient HTTP-only page fetching.
type HTTPFetcher struct {
	collector *colly.Collector
	retry     int
	headers   http.Header
}

// HTTPFetcherConfig holds configuration for the HTTP fetcher.
type HTTPFetcherConfig struct {
	Parallelism     int
	RateLimit       time.Duration
	UserAgent       string
	RespectRobots   bool
	AllowedDomain   string
	Timeout         time.Duration
	Retry           int
	MaxResponseSize int
	Proxy           string
	CustomHeaders   []string
}

// NewHTTPFetcher creates a new Colly-based HTTP fetcher.
func NewHTTPFetcher(cfg HTTPFetcherConfig) *HTTPFetcher {
	opts := []colly.CollectorOption{
		colly.Async(false), // We control concurrency externally
		colly.AllowURLRevisit(),
	}

	if cfg.AllowedDomain != "" {
		opts = append(opts, colly.AllowedDomains(
			cfg.AllowedDomain,
			"www."+strings.TrimPrefix(cfg.AllowedDomain, "www."),
		))
	}

	c := colly.NewCollector(opts...)
	c.DetectCharset = true

	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}

	// Rate limiting
	if cfg.RateLimit > 0 {
		parallelism := cfg.Parallelism
		if parallelism < 1 {
			parallelism = 1
		}
		_ = c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: parallelism,
			Delay:       cfg.RateLimit,
		})
	}

	c.IgnoreRobotsTxt = !cfg.RespectRobots

	if cfg.Timeout > 0 {
		c.SetRequestTimeout(cfg.Timeout)
	}

	if cfg.Proxy != "" {
		_ = c.SetProxy(cfg.Proxy)
	}

	if cfg.MaxResponseSize > 0 {
		c.MaxBodySize = cfg.MaxResponseSize
	}

	retry := cfg.Retry
	if retry < 0 {
		retry = 0
	}

	return &HTTPFetcher{
		collector: c,
		retry:     retry,
		headers:   parseHeaders(cfg.CustomHeaders),
	}
}

func (f *HTTPFetcher) Name() string { return "http" }

// Fetch performs a GET and fails with a *FetchError on transport errors or
// non-success status. Transport errors and 5xx responses are retried.
func (f *HTTPFetcher) Fetch(ctx context.Context, targetURL string) (*plugin.PageData, error) {
	var (
		page *plugin.PageData
		err  error
	)
	for attempt := 0; attempt <= f.retry; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, &FetchError{URL: targetURL, Err: ctxErr}
		}
		page, err = f.fetchOnce(ctx, targetURL)
		if err == nil || !retryable(err) {
			break
		}
	}
	return page, err
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, targetURL string) (*plugin.PageData, error) {
	start := time.Now()

	page := &plugin.PageData{
		URL:         targetURL,
		FinalURL:    targetURL,
		FetcherUsed: "http",
		FetchedAt:   start,
	}

	// Clone the collector for this individual fetch so we get clean state
	c := f.collector.Clone()
	c.Context = ctx

	// Clones carry no callbacks, so headers are set per fetch.
	if len(f.headers) > 0 {
		c.OnRequest(func(r *colly.Request) {
			for key, values := range f.headers {
				r.Headers.Del(key)
				for _, v := range values {
					r.Headers.Add(key, v)
				}
			}
		})
	}

	c.OnResponse(func(r *colly.Response) {
		page.StatusCode = r.StatusCode
		page.RawHTML = string(r.Body)
		page.ResponseSize = len(r.Body)
		page.FinalURL = r.Request.URL.String()
		page.ContentType = r.Headers.Get("Content-Type")

		page.Headers = make(http.Header)
		for key, values := range *r.Headers {
			for _, v := range values {
				page.Headers.Add(key, v)
			}
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			page.StatusCode = r.StatusCode
			if r.Request != nil {
				page.FinalURL = r.Request.URL.String()
			}
		}
		page.Error = err.Error()
	})

	err := c.Visit(targetURL)
	c.Wait()
	page.FetchDuration = time.Since(start)

	if err != nil {
		page.Error = err.Error()
		return page, &FetchError{URL: targetURL, StatusCode: page.StatusCode, Err: err}
	}
	if page.StatusCode < 200 || page.StatusCode > 299 {
		return page, &FetchError{URL: targetURL, StatusCode: page.StatusCode}
	}

	return page, nil
}

// parseHeaders reads "Key: Value" lines, ignoring malformed ones.
func parseHeaders(lines []string) http.Header {
	h := make(http.Header)
	for _, line := range lines {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" {
			continue
		}
		h.Add(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	}
	return h
}

func (f *HTTPFetcher) Close() error {
	return nil
}
