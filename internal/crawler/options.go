package crawler

import (
	"time"

	"github.com/ramkansal/hacico-crawler/internal/extractor"
)

// CrawlConfig holds all configuration for a crawl session.
type CrawlConfig struct {
	// Target
	SeedURL string

	// Site structure
	Selectors       Selectors
	Product         extractor.ProductRules
	VariantKeywords []string

	// Crawl control
	Parallelism int
	RateLimit   time.Duration

	// Request options
	UserAgent       string
	Timeout         time.Duration
	Retry           int
	MaxResponseSize int
	Proxy           string
	CustomHeaders   []string
	RespectRobots   bool
	FetcherMode     FetcherMode

	// Browser fetcher
	BrowserTimeout time.Duration
	PageTimeout    time.Duration
}

// Selectors locate the links of each catalog level.
type Selectors struct {
	Countries  string `mapstructure:"countries"`
	Categories string `mapstructure:"categories"`
	Products   string `mapstructure:"products"`
	Pager      string `mapstructure:"pager"`
}

// FetcherMode controls which fetcher to use.
type FetcherMode string

const (
	FetcherHTTP    FetcherMode = "http"
	FetcherBrowser FetcherMode = "browser"
)

// DefaultConfig returns the configuration for crawling hacico.de.
func DefaultConfig() *CrawlConfig {
	return &CrawlConfig{
		SeedURL: "https://www.hacico.de/en/Cigars",
		Selectors: Selectors{
			Countries:  ".meineListe > div > a",
			Categories: ".list_left > div > a",
			Products:   ".product_listing_box_name a",
			Pager:      ".centerbox .pageResults",
		},
		Product:         extractor.DefaultProductRules(),
		VariantKeywords: extractor.DefaultVariantKeywords(),
		Parallelism:     1,
		RateLimit:       500 * time.Millisecond,
		UserAgent:       "hacico-crawler/1.0",
		Timeout:         30 * time.Second,
		Retry:           1,
		MaxResponseSize: 4194304, // 4MB
		RespectRobots:   true,
		FetcherMode:     FetcherHTTP,
		BrowserTimeout:  30 * time.Second,
		PageTimeout:     15 * time.Second,
	}
}
