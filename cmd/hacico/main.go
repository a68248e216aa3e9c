package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ramkansal/hacico-crawler/internal/config"
	"github.com/ramkansal/hacico-crawler/internal/crawler"
	"github.com/ramkansal/hacico-crawler/internal/logging"
	"github.com/ramkansal/hacico-crawler/internal/metrics"
	"github.com/ramkansal/hacico-crawler/internal/output"
	"github.com/ramkansal/hacico-crawler/pkg/plugin"
)

var (
	version = "dev"
	commit  = "none"
)

var rootCmd = &cobra.Command{
	Use:   "hacico [seed-url]",
	Short: "Crawl the hacico.de cigar catalog into CSV or Postgres",
	Long: `hacico walks the cigar catalog country by country, follows every
category and listing page and writes one record per purchasable product
variant. Single-cigar and sampler variants are filtered out by name.`,
	Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runCrawl,
}

func init() {
	f := rootCmd.Flags()
	f.String("config", "", "path to hacico.yaml")

	f.StringP("output", "o", "", "CSV output path (default \"hacico.csv\")")
	f.String("sink", "", "record sink: csv, postgres (default \"csv\")")
	f.String("dsn", "", "postgres connection string for the postgres sink")

	f.IntP("concurrency", "c", 0, "product pages fetched in parallel (default 1)")
	f.Duration("rate-limit", 0, "delay between requests (default 500ms)")
	f.StringP("fetcher", "f", "", "fetcher mode: http, browser (default \"http\")")
	f.Duration("timeout", 0, "per-request timeout (default 30s)")
	f.Int("retry", 0, "retries for failed requests (default 1)")
	f.String("user-agent", "", "custom user-agent string")
	f.String("proxy", "", "http/socks5 proxy to use")
	f.StringArrayP("header", "H", nil, "custom header in \"Key: Value\" format (repeatable)")

	f.String("log-level", "", "log level: debug, info, warn, error (default \"info\")")
	f.String("log-format", "", "log format: console, json (default \"console\")")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	f.BoolP("silent", "s", false, "print nothing but errors")
	f.BoolP("verbose", "v", false, "print every record and skip")
	f.Bool("no-color", false, "disable colored output")
}

func main() {
	enableANSI()
	if err := rootCmd.Execute(); err != nil {
		fatal("%v", err)
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	silent, _ := flags.GetBool("silent")
	verbose, _ := flags.GetBool("verbose")
	noColor, _ = flags.GetBool("no-color")

	cfg, err := config.Load(configPath, flags)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		cfg.Crawler.SeedURL = normalizeSeed(args[0])
	}
	if verbose && !flags.Changed("log-level") {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	crawlID := uuid.NewString()
	logger = logger.With().Str("crawl_id", crawlID).Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink, err := openSink(ctx, cfg, crawlID)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logger.Error().Err(err).Str("sink", sink.Name()).Msg("closing sink")
		}
	}()

	collector := metrics.New()
	if cfg.Metrics.Addr != "" {
		go func() {
			logger.Info().Str("addr", cfg.Metrics.Addr).Msg("serving metrics")
			if err := collector.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Error().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	crawlCfg := cfg.CrawlConfig()
	c := crawler.New(crawlCfg, sink,
		crawler.WithLogger(logger),
		crawler.WithMetrics(collector),
		crawler.WithCrawlID(crawlID),
	)
	if err := c.Init(); err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}
	defer c.Close()

	// First Ctrl+C finishes the products in flight, the second aborts.
	sig := make(chan os.Signal, 2)
	registerSignals(sig)
	go func() {
		<-sig
		fmt.Fprintf(os.Stderr, "\n%s Interrupt received, stopping...\n", clr("yellow", "!"))
		c.Stop()
		<-sig
		cancel()
	}()

	return run(ctx, c, cfg, silent, verbose, logger)
}

func run(ctx context.Context, c *crawler.Crawler, cfg *config.Config, silent, verbose bool, logger zerolog.Logger) error {
	if !silent {
		printBanner()
		fmt.Printf("\n  %s %s\n", clr("cyan", "Seed:"), cfg.Crawler.SeedURL)
		fmt.Printf("  %s %d  %s %s  %s %s  %s %s\n\n",
			clr("dim", "Threads:"), cfg.Crawler.Parallelism,
			clr("dim", "Fetcher:"), cfg.Crawler.Fetcher,
			clr("dim", "Sink:"), cfg.Output.Sink,
			clr("dim", "Crawl:"), c.CrawlID(),
		)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range c.Events() {
			if silent {
				continue
			}
			handleEvent(event, cfg, verbose)
		}
	}()

	summary, err := c.Run(ctx)
	<-done

	if summary != nil {
		logger.Debug().Time("started", summary.StartedAt).Time("finished", summary.FinishedAt).
			Msg("summary")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("crawl error: %w", err)
	}
	return nil
}

func openSink(ctx context.Context, cfg *config.Config, crawlID string) (plugin.RecordSink, error) {
	switch cfg.Output.Sink {
	case "postgres":
		return output.NewPostgresSink(ctx, output.PostgresConfig{
			DSN:      cfg.Output.DSN,
			Table:    cfg.Output.Table,
			MaxConns: cfg.Output.MaxConns,
		}, crawlID)
	default:
		return output.CreateCSVFile(cfg.Output.Path)
	}
}

// normalizeSeed adds a scheme to bare hosts.
func normalizeSeed(raw string) string {
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		return "https://" + raw
	}
	return raw
}

func handleEvent(event plugin.CrawlEvent, cfg *config.Config, verbose bool) {
	switch event.Type {
	case plugin.EventPageDone:
		if verbose {
			fmt.Printf("  %s %s\n", clr("dim", "●"), clr("dim", event.URL))
		}

	case plugin.EventRecord:
		if event.Record == nil {
			return
		}
		r := event.Record
		fmt.Printf("  %s %s %s %s\n",
			clr("green", "●"),
			r.Title,
			clr("dim", r.Type),
			clr("cyan", fmt.Sprintf("%.2f", r.Price)),
		)

	case plugin.EventSkip:
		if !verbose {
			return
		}
		fmt.Printf("  %s %s %s\n", clr("yellow", "-"), event.URL, clr("dim", "("+event.Reason+")"))

	case plugin.EventPageError:
		fmt.Printf("  %s %s\n", clr("red", "✗"), event.Message)

	case plugin.EventCrawlFinished:
		if event.Stats == nil {
			return
		}
		s := event.Stats
		fmt.Println()
		fmt.Printf("  %s\n", strings.Repeat("─", 50))
		fmt.Printf("  %s Crawl complete\n", clr("green", "✓"))
		fmt.Printf("    Pages:    %s fetched, %s errors\n",
			clr("cyan", fmt.Sprintf("%d", s.PagesFetched)),
			clr("red", fmt.Sprintf("%d", s.PagesErrored)),
		)
		fmt.Printf("    Records:  %s from %d products in %s (%.1f pages/sec)\n",
			clr("yellow", fmt.Sprintf("%d", s.RecordsWritten)),
			s.ProductsSeen,
			fmtDur(s.Elapsed),
			s.PagesPerSec,
		)
		if len(s.SkipsByReason) > 0 {
			fmt.Printf("    Skipped:  ")
			first := true
			for _, reason := range []crawler.SkipReason{
				crawler.SkipFetch, crawler.SkipNoData, crawler.SkipExtraction,
				crawler.SkipFormat, crawler.SkipFiltered, crawler.SkipNotPurchasable,
			} {
				if count := s.SkipsByReason[string(reason)]; count > 0 {
					if !first {
						fmt.Printf(", ")
					}
					fmt.Printf("%s:%s", clr("dim", string(reason)), clr("cyan", fmt.Sprintf("%d", count)))
					first = false
				}
			}
			fmt.Println()
		}
		if cfg.Output.Sink == "csv" {
			fmt.Printf("    Output:   %s\n", clr("green", cfg.Output.Path))
		}
		fmt.Println()
	}
}

func printBanner() {
	fmt.Println(clr("cyan", "  hacico-crawler"))
	fmt.Printf("  %s  %s\n", clr("dim", "cigar catalog to CSV"), clr("dim", version))
	fmt.Printf("  %s\n", clr("dim", strings.Repeat("─", 40)))
}

func fmtDur(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm%ds", m, s)
}

var noColor bool

var colorCodes = map[string]string{
	"red":    "\033[31m",
	"green":  "\033[32m",
	"yellow": "\033[33m",
	"cyan":   "\033[36m",
	"dim":    "\033[2m",
	"reset":  "\033[0m",
}

func clr(color, text string) string {
	code, ok := colorCodes[color]
	if noColor || !ok {
		return text
	}
	return code + text + colorCodes["reset"]
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "\n  %s %s\n\n", clr("red", "ERROR:"), fmt.Sprintf(format, args...))
	os.Exit(1)
}
