package fetcher

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ramkansal/hacico-crawler/pkg/plugin"
	"golang.org/x/time/rate"
)

// BrowserFetcher uses Rod (headless Chrome) for JS-rendered page fetching.
type BrowserFetcher struct {
	browser     *rod.Browser
	limiter     *rate.Limiter
	timeout     time.Duration
	pageTimeout time.Duration
	userAgent   string
}

// BrowserFetcherConfig holds configuration for the browser fetcher.
type BrowserFetcherConfig struct {
	Timeout     time.Duration
	PageTimeout time.Duration
	RateLimit   time.Duration
	UserAgent   string
	Headless    bool
}

// NewBrowserFetcher creates a new Rod-based browser fetcher.
func NewBrowserFetcher(cfg BrowserFetcherConfig) (*BrowserFetcher, error) {
	u, err := launcher.New().
		Headless(cfg.Headless).
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Launch()
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return nil, err
	}

	return &BrowserFetcher{
		browser:     browser,
		limiter:     newLimiter(cfg.RateLimit),
		timeout:     orDefault(cfg.Timeout, 30*time.Second),
		pageTimeout: orDefault(cfg.PageTimeout, 15*time.Second),
		userAgent:   cfg.UserAgent,
	}, nil
}

func (f *BrowserFetcher) Name() string { return "browser" }

func (f *BrowserFetcher) Fetch(ctx context.Context, targetURL string) (*plugin.PageData, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &FetchError{URL: targetURL, Err: err}
	}

	start := time.Now()

	page := &plugin.PageData{
		URL:         targetURL,
		FinalURL:    targetURL,
		FetcherUsed: "browser",
		FetchedAt:   start,
	}

	fail := func(err error) (*plugin.PageData, error) {
		page.Error = err.Error()
		page.FetchDuration = time.Since(start)
		return page, &FetchError{URL: targetURL, Err: err}
	}

	rodPage, err := f.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return fail(err)
	}
	defer rodPage.Close()

	rodPage = rodPage.Context(ctx).Timeout(f.timeout)

	if f.userAgent != "" {
		_ = rodPage.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: f.userAgent,
		})
	}

	// The document response carries the status code the DOM cannot tell us.
	var status int
	wait := rodPage.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type == proto.NetworkResourceTypeDocument {
			status = e.Response.Status
			return true
		}
		return false
	})

	if err := rodPage.Navigate(targetURL); err != nil {
		return fail(err)
	}
	wait()

	if err := rodPage.WaitStable(f.pageTimeout); err != nil {
		// Page may not fully stabilize but we can still get content
		if !strings.Contains(err.Error(), "context canceled") {
			page.Error = "page did not fully stabilize: " + err.Error()
		}
	}

	if info, err := rodPage.Info(); err == nil {
		page.FinalURL = info.URL
	}

	page.StatusCode = status
	if page.StatusCode == 0 {
		page.StatusCode = http.StatusOK
	}
	page.Headers = make(http.Header)
	page.ContentType = "text/html"

	html, err := rodPage.HTML()
	if err != nil {
		return fail(err)
	}
	page.RenderedHTML = html
	page.RawHTML = html
	page.ResponseSize = len(html)
	page.FetchDuration = time.Since(start)

	if page.StatusCode < 200 || page.StatusCode > 299 {
		return page, &FetchError{URL: targetURL, StatusCode: page.StatusCode}
	}
	return page, nil
}

func (f *BrowserFetcher) Close() error {
	if f.browser != nil {
		return f.browser.Close()
	}
	return nil
}

// newLimiter allows one request per interval; zero means no limit.
func newLimiter(every time.Duration) *rate.Limiter {
	if every <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(every), 1)
}

func orDefault(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return d
}
