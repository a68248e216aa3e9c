package crawler

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ramkansal/hacico-crawler/internal/extractor"
	"github.com/ramkansal/hacico-crawler/internal/fetcher"
	"github.com/ramkansal/hacico-crawler/internal/metrics"
	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

// Crawler walks countries, their categories, every listing page of a
// category and finally each product detail page, forwarding accepted
// records to the sink. A Crawler runs once.
type Crawler struct {
	config    *CrawlConfig
	fetch     plugin.Fetcher
	extractor *extractor.ProductExtractor
	filter    *extractor.VariantFilter
	sink      plugin.RecordSink
	metrics   *metrics.Collector
	logger    zerolog.Logger
	events    chan plugin.CrawlEvent
	crawlID   string

	// Stats
	stats     plugin.CrawlStats
	statsMu   sync.Mutex
	startTime time.Time

	// Control
	stopped bool
	stopMu  sync.Mutex
}

// Option customizes a Crawler.
type Option func(*Crawler)

// WithFetcher replaces the fetcher Init would build.
func WithFetcher(f plugin.Fetcher) Option {
	return func(c *Crawler) { c.fetch = f }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Crawler) { c.logger = l }
}

func WithMetrics(m *metrics.Collector) Option {
	return func(c *Crawler) { c.metrics = m }
}

// WithCrawlID sets the run id stamped on log lines; a random UUID otherwise.
func WithCrawlID(id string) Option {
	return func(c *Crawler) { c.crawlID = id }
}

// New creates a Crawler writing accepted records to sink.
func New(config *CrawlConfig, sink plugin.RecordSink, opts ...Option) *Crawler {
	c := &Crawler{
		config:    config,
		sink:      sink,
		extractor: extractor.NewProductExtractor(config.Product),
		filter:    extractor.NewVariantFilter(config.VariantKeywords),
		logger:    zerolog.Nop(),
		events:    make(chan plugin.CrawlEvent, 1000),
		stats: plugin.CrawlStats{
			SkipsByReason: make(map[string]int),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.crawlID == "" {
		c.crawlID = uuid.NewString()
	}
	c.logger = c.logger.With().Str("component", "crawler").Str("crawl_id", c.crawlID).Logger()
	return c
}

// Events returns the event channel for the CLI or other consumers. It is
// closed when Run returns.
func (c *Crawler) Events() <-chan plugin.CrawlEvent {
	return c.events
}

// CrawlID identifies this run.
func (c *Crawler) CrawlID() string { return c.crawlID }

// Init builds the fetcher unless one was injected.
func (c *Crawler) Init() error {
	parsedURL, err := url.Parse(c.config.SeedURL)
	if err != nil || parsedURL.Hostname() == "" {
		return fmt.Errorf("invalid seed URL %q", c.config.SeedURL)
	}
	if c.fetch != nil {
		return nil
	}

	if c.config.FetcherMode == FetcherBrowser {
		bf, err := fetcher.NewBrowserFetcher(fetcher.BrowserFetcherConfig{
			Timeout:     c.config.BrowserTimeout,
			PageTimeout: c.config.PageTimeout,
			RateLimit:   c.config.RateLimit,
			UserAgent:   c.config.UserAgent,
			Headless:    true,
		})
		if err == nil {
			c.fetch = bf
			return nil
		}
		c.logger.Warn().Err(err).Msg("browser fetcher unavailable, falling back to HTTP")
		c.config.FetcherMode = FetcherHTTP
	}

	c.fetch = fetcher.NewHTTPFetcher(fetcher.HTTPFetcherConfig{
		Parallelism:     c.config.Parallelism,
		RateLimit:       c.config.RateLimit,
		UserAgent:       c.config.UserAgent,
		RespectRobots:   c.config.RespectRobots,
		AllowedDomain:   parsedURL.Hostname(),
		Timeout:         c.config.Timeout,
		Retry:           c.config.Retry,
		MaxResponseSize: c.config.MaxResponseSize,
		Proxy:           c.config.Proxy,
		CustomHeaders:   c.config.CustomHeaders,
	})
	return nil
}

// Run performs the crawl and blocks until it completes or is stopped.
// Only a failing seed page or a failing sink abort the run; every other
// failure skips the affected page or subtree.
func (c *Crawler) Run(ctx context.Context) (*plugin.CrawlSummary, error) {
	defer close(c.events)

	if c.fetch == nil {
		if err := c.Init(); err != nil {
			return nil, err
		}
	}

	c.startTime = time.Now()
	c.emit(plugin.CrawlEvent{
		Type:    plugin.EventCrawlStarted,
		URL:     c.config.SeedURL,
		Message: fmt.Sprintf("Starting crawl of %s", c.config.SeedURL),
	})
	c.logger.Info().Str("seed", c.config.SeedURL).Str("fetcher", c.fetch.Name()).
		Str("sink", c.sink.Name()).Int("parallelism", c.config.Parallelism).Msg("crawl started")

	if err := c.sink.WriteHeader(plugin.RecordFields); err != nil {
		return c.finish(), fmt.Errorf("write header: %w", err)
	}

	seed, err := c.document(ctx, c.config.SeedURL)
	if err != nil {
		return c.finish(), fmt.Errorf("fetch seed page: %w", err)
	}

	countries := seed.Links(c.config.Selectors.Countries)
	c.logger.Info().Int("countries", len(countries)).Msg("countries discovered")

	for _, country := range countries {
		if c.halted(ctx) {
			break
		}
		if err := c.crawlCountry(ctx, country); err != nil {
			return c.finish(), err
		}
	}

	summary := c.finish()
	return summary, ctx.Err()
}

// Stop signals the crawler to stop after the products in flight.
func (c *Crawler) Stop() {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()
	c.stopped = true
}

func (c *Crawler) isStopped() bool {
	c.stopMu.Lock()
	defer c.stopMu.Unlock()
	return c.stopped
}

func (c *Crawler) halted(ctx context.Context) bool {
	return ctx.Err() != nil || c.isStopped()
}

func (c *Crawler) crawlCountry(ctx context.Context, country plugin.LinkRef) error {
	log := c.logger.With().Str("country", country.Label).Logger()

	doc, err := c.document(ctx, country.URL)
	if err != nil {
		log.Error().Err(err).Str("url", country.URL).Msg("country page failed, skipping its categories")
		return nil
	}

	categories := doc.Links(c.config.Selectors.Categories)
	log.Info().Int("categories", len(categories)).Msg("categories discovered")

	for _, category := range categories {
		if c.halted(ctx) {
			return nil
		}
		if err := c.crawlCategory(ctx, country, category); err != nil {
			return err
		}
	}
	return nil
}

// crawlCategory parses the first listing page, then every additional page
// its pager links to.
func (c *Crawler) crawlCategory(ctx context.Context, country, category plugin.LinkRef) error {
	log := c.logger.With().Str("country", country.Label).Str("category", category.Label).Logger()

	first, err := c.document(ctx, category.URL)
	if err != nil {
		log.Error().Err(err).Str("url", category.URL).Msg("category page failed, skipping category")
		return nil
	}

	pages := extractor.ResolvePages(first.Links(c.config.Selectors.Pager), category.URL)
	log.Debug().Int("extra_pages", len(pages)).Msg("pagination resolved")

	if err := c.crawlListing(ctx, country, first); err != nil {
		return err
	}

	for _, pageURL := range pages {
		if c.halted(ctx) {
			return nil
		}
		doc, err := c.document(ctx, pageURL)
		if err != nil {
			log.Error().Err(err).Str("url", pageURL).Msg("listing page failed, skipping page")
			continue
		}
		if err := c.crawlListing(ctx, country, doc); err != nil {
			return err
		}
	}
	return nil
}

// crawlListing processes the products of one listing page with up to
// Parallelism workers. Outcomes are written in link order, so the output
// does not depend on the degree of parallelism.
func (c *Crawler) crawlListing(ctx context.Context, country plugin.LinkRef, doc *fetcher.Document) error {
	links := doc.Links(c.config.Selectors.Products)
	outcomes := make([]Outcome, len(links))

	var g errgroup.Group
	g.SetLimit(max(1, c.config.Parallelism))
	for i, link := range links {
		if c.halted(ctx) {
			break
		}
		g.Go(func() error {
			outcomes[i] = c.processProduct(ctx, country.Label, link.URL)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		if o.URL == "" {
			continue // never started
		}
		if err := c.handleOutcome(o); err != nil {
			return err
		}
	}
	return nil
}

// processProduct turns one detail page into records or a skip. It never
// fails the crawl.
func (c *Crawler) processProduct(ctx context.Context, country, pageURL string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = skip(pageURL, SkipExtraction, fmt.Errorf("panic: %v", r))
		}
	}()

	c.statsMu.Lock()
	c.stats.ProductsSeen++
	c.statsMu.Unlock()

	doc, err := c.document(ctx, pageURL)
	if err != nil {
		return skip(pageURL, SkipFetch, err)
	}

	fields, err := c.extractor.Extract(doc.Document)
	if err != nil {
		return skip(pageURL, classify(err), err)
	}
	if len(fields) == 0 {
		return skip(pageURL, SkipNotPurchasable, nil)
	}

	if keyword, ok := c.filter.Match(fields[0].Name); ok {
		return skip(pageURL, SkipFiltered, fmt.Errorf("name %q contains %q", fields[0].Name, keyword))
	}

	records := make([]plugin.Record, 0, len(fields))
	for _, f := range fields {
		record, err := c.extractor.Record(f, pageURL, country)
		if err != nil {
			return skip(pageURL, classify(err), err)
		}
		records = append(records, record)
	}
	return Outcome{URL: pageURL, Records: records}
}

// handleOutcome runs on the crawl goroutine only, so the sink sees a
// single writer.
func (c *Crawler) handleOutcome(o Outcome) error {
	if o.Skipped() {
		c.statsMu.Lock()
		c.stats.SkipsByReason[string(o.Skip)]++
		c.statsMu.Unlock()
		if c.metrics != nil {
			c.metrics.ProductSkipped(string(o.Skip))
		}

		ev := c.logger.Warn()
		if o.Skip == SkipFiltered || o.Skip == SkipNotPurchasable {
			ev = c.logger.Debug()
		}
		ev.Err(o.Err).Str("url", o.URL).Str("reason", string(o.Skip)).Msg("product skipped")

		c.emit(plugin.CrawlEvent{
			Type:   plugin.EventSkip,
			URL:    o.URL,
			Reason: string(o.Skip),
			Error:  o.Err,
		})
		return nil
	}

	for i := range o.Records {
		record := o.Records[i]
		if err := c.sink.WriteRecord(record); err != nil {
			return fmt.Errorf("write record for %s: %w", o.URL, err)
		}

		c.statsMu.Lock()
		c.stats.RecordsWritten++
		c.statsMu.Unlock()
		if c.metrics != nil {
			c.metrics.RecordWritten()
		}

		c.logger.Debug().Str("title", record.Title).Str("type", record.Type).
			Float64("price", record.Price).Str("url", o.URL).Msg("record written")
		c.emit(plugin.CrawlEvent{
			Type:    plugin.EventRecord,
			URL:     o.URL,
			Record:  &record,
			Message: record.Title + " " + record.Type + " parsed.",
		})
	}
	return nil
}

// document fetches and parses one page, keeping page statistics.
func (c *Crawler) document(ctx context.Context, pageURL string) (*fetcher.Document, error) {
	c.emit(plugin.CrawlEvent{
		Type: plugin.EventPageStarted,
		URL:  pageURL,
	})

	doc, err := c.fetchDocument(ctx, pageURL)
	if err != nil {
		c.statsMu.Lock()
		c.stats.PagesErrored++
		c.statsMu.Unlock()
		if c.metrics != nil {
			c.metrics.PageFetched(false)
		}

		c.emit(plugin.CrawlEvent{
			Type:    plugin.EventPageError,
			URL:     pageURL,
			Error:   err,
			Message: fmt.Sprintf("Error fetching %s: %v", pageURL, err),
		})
		return nil, err
	}

	c.statsMu.Lock()
	c.stats.PagesFetched++
	elapsed := time.Since(c.startTime)
	c.stats.Elapsed = elapsed
	if elapsed.Seconds() > 0 {
		c.stats.PagesPerSec = float64(c.stats.PagesFetched) / elapsed.Seconds()
	}
	c.statsMu.Unlock()
	if c.metrics != nil {
		c.metrics.PageFetched(true)
	}

	c.emit(plugin.CrawlEvent{
		Type:  plugin.EventPageDone,
		URL:   pageURL,
		Stats: c.getStats(),
	})
	return doc, nil
}

func (c *Crawler) fetchDocument(ctx context.Context, pageURL string) (*fetcher.Document, error) {
	page, err := c.fetch.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := fetcher.NewDocument(page)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// emit sends an event to the event channel (non-blocking).
func (c *Crawler) emit(event plugin.CrawlEvent) {
	select {
	case c.events <- event:
	default:
		// Drop event if channel is full, the consumer is too slow
	}
}

// getStats returns a copy of the current stats.
func (c *Crawler) getStats() *plugin.CrawlStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()

	statsCopy := c.stats
	byReason := make(map[string]int, len(c.stats.SkipsByReason))
	for k, v := range c.stats.SkipsByReason {
		byReason[k] = v
	}
	statsCopy.SkipsByReason = byReason
	return &statsCopy
}

// finish emits the final event and builds the summary.
func (c *Crawler) finish() *plugin.CrawlSummary {
	c.statsMu.Lock()
	c.stats.Elapsed = time.Since(c.startTime)
	c.statsMu.Unlock()

	stats := c.getStats()
	summary := &plugin.CrawlSummary{
		CrawlID:    c.crawlID,
		SeedURL:    c.config.SeedURL,
		StartedAt:  c.startTime,
		FinishedAt: time.Now(),
		Duration:   stats.Elapsed,
		Stats:      *stats,
	}

	c.logger.Info().Int("pages", stats.PagesFetched).Int("page_errors", stats.PagesErrored).
		Int("products", stats.ProductsSeen).Int("records", stats.RecordsWritten).
		Interface("skips", stats.SkipsByReason).Dur("elapsed", stats.Elapsed).Msg("crawl finished")

	c.emit(plugin.CrawlEvent{
		Type:    plugin.EventCrawlFinished,
		Stats:   stats,
		Message: fmt.Sprintf("Crawl complete. %d pages, %d records written.", stats.PagesFetched, stats.RecordsWritten),
	})
	return summary
}

// Close releases the fetcher. The sink belongs to the caller.
func (c *Crawler) Close() error {
	if c.fetch != nil {
		return c.fetch.Close()
	}
	return nil
}
