// Package plugin defines the public interfaces for the catalog crawler.
// External tools can import this package to plug in custom fetchers or
// record sinks without forking the project.
package plugin

import (
	"context"
	"net/http"
	"time"
)

// ---------- Core Data Types ----------

// PageData represents a fully fetched web page.
type PageData struct {
	URL           string        `json:"url"`
	FinalURL      string        `json:"final_url"`
	StatusCode    int           `json:"status_code"`
	Headers       http.Header   `json:"-"`
	RawHTML       string        `json:"-"`
	RenderedHTML  string        `json:"-"`
	ContentType   string        `json:"content_type"`
	FetchedAt     time.Time     `json:"fetched_at"`
	FetchDuration time.Duration `json:"fetch_duration"`
	FetcherUsed   string        `json:"fetcher_used"`
	Error         string        `json:"error,omitempty"`
	ResponseSize  int           `json:"response_size"`
}

// HTML returns the rendered markup when available, the raw response otherwise.
func (p *PageData) HTML() string {
	if p.RenderedHTML != "" {
		return p.RenderedHTML
	}
	return p.RawHTML
}

// LinkRef is a link found by a page scan: its label and resolved href.
type LinkRef struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// RecordFields is the fixed column order of every record sink.
var RecordFields = []string{
	"title",
	"type",
	"price",
	"in_stock",
	"image",
	"size",
	"length",
	"diameter",
	"url",
	"country",
}

// Record is one accepted purchasable unit of a product.
type Record struct {
	Title    string  `json:"title"`
	Type     string  `json:"type"`
	Price    float64 `json:"price"`
	InStock  bool    `json:"in_stock"`
	Image    string  `json:"image"`
	Size     string  `json:"size"`
	Length   float64 `json:"length"`
	Diameter float64 `json:"diameter"`
	URL      string  `json:"url"`
	Country  string  `json:"country"`
}

// CrawlSummary is the final aggregated output of the entire crawl.
type CrawlSummary struct {
	CrawlID    string        `json:"crawl_id"`
	SeedURL    string        `json:"seed_url"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Stats      CrawlStats    `json:"stats"`
}

// ---------- Event Types ----------

// CrawlEvent represents a real-time event emitted by the crawler.
type CrawlEvent struct {
	Type    EventType
	URL     string
	Record  *Record
	Reason  string
	Error   error
	Stats   *CrawlStats
	Message string
}

// EventType identifies the kind of event.
type EventType int

const (
	EventCrawlStarted EventType = iota
	EventPageStarted
	EventPageDone
	EventPageError
	EventRecord
	EventSkip
	EventCrawlFinished
)

// CrawlStats holds real-time crawl statistics.
type CrawlStats struct {
	PagesFetched   int            `json:"pages_fetched"`
	PagesErrored   int            `json:"pages_errored"`
	ProductsSeen   int            `json:"products_seen"`
	RecordsWritten int            `json:"records_written"`
	SkipsByReason  map[string]int `json:"skips_by_reason"`
	Elapsed        time.Duration  `json:"elapsed"`
	PagesPerSec    float64        `json:"pages_per_sec"`
}

// ---------- Plugin Interfaces ----------

// Fetcher defines how pages are retrieved.
type Fetcher interface {
	// Name returns a human-readable identifier for this fetcher.
	Name() string

	// Fetch retrieves the page at the given URL.
	Fetch(ctx context.Context, url string) (*PageData, error)

	// Close releases any resources held by the fetcher.
	Close() error
}

// RecordSink defines how accepted records are persisted. Sinks are
// append-only: a header once, then records in the order received.
type RecordSink interface {
	// Name returns a human-readable identifier for this sink.
	Name() string

	// WriteHeader declares the column order before the first record.
	WriteHeader(fields []string) error

	// WriteRecord appends a single record.
	WriteRecord(record Record) error

	// Close flushes and releases resources.
	Close() error
}
