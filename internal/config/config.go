package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/ramkansal/hacico-crawler/internal/crawler"
	"github.com/ramkansal/hacico-crawler/internal/extractor"
)

// Config holds all application configuration
type Config struct {
	// Crawl control and request options
	Crawler CrawlerConfig `mapstructure:"crawler"`

	// Site structure: selectors, product rules, variant keywords
	Site SiteConfig `mapstructure:"site"`

	// Record sink
	Output OutputConfig `mapstructure:"output"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`

	// Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// CrawlerConfig holds crawler-specific configuration
type CrawlerConfig struct {
	SeedURL         string        `mapstructure:"seed_url"`
	Parallelism     int           `mapstructure:"parallelism"`
	RateLimit       time.Duration `mapstructure:"rate_limit"`
	UserAgent       string        `mapstructure:"user_agent"`
	Timeout         time.Duration `mapstructure:"timeout"`
	Retry           int           `mapstructure:"retry"`
	MaxResponseSize int           `mapstructure:"max_response_size"`
	Proxy           string        `mapstructure:"proxy"`
	Headers         []string      `mapstructure:"headers"`
	RespectRobots   bool          `mapstructure:"respect_robots"`
	Fetcher         string        `mapstructure:"fetcher"`
	BrowserTimeout  time.Duration `mapstructure:"browser_timeout"`
	PageTimeout     time.Duration `mapstructure:"page_timeout"`
}

// SiteConfig describes where the data lives on the site
type SiteConfig struct {
	Selectors       crawler.Selectors      `mapstructure:"selectors"`
	Product         extractor.ProductRules `mapstructure:"product"`
	VariantKeywords []string               `mapstructure:"variant_keywords"`
}

// OutputConfig selects and configures the record sink
type OutputConfig struct {
	Sink     string `mapstructure:"sink"` // "csv" or "postgres"
	Path     string `mapstructure:"path"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// MetricsConfig holds the Prometheus listener address; empty disables it
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// flagKeys binds CLI flag names to configuration keys.
var flagKeys = map[string]string{
	"output":       "output.path",
	"sink":         "output.sink",
	"dsn":          "output.dsn",
	"concurrency":  "crawler.parallelism",
	"rate-limit":   "crawler.rate_limit",
	"user-agent":   "crawler.user_agent",
	"timeout":      "crawler.timeout",
	"retry":        "crawler.retry",
	"proxy":        "crawler.proxy",
	"header":       "crawler.headers",
	"fetcher":      "crawler.fetcher",
	"log-level":    "logging.level",
	"log-format":   "logging.format",
	"metrics-addr": "metrics.addr",
}

// Load reads defaults, an optional YAML file, .env, HACICO_* environment
// variables and finally any changed flags, in increasing precedence.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	// A missing .env is normal
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("hacico")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.hacico")
	}

	setDefaults(v)

	v.SetEnvPrefix("HACICO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is not an error, we'll use defaults and env
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}

// setDefaults mirrors crawler.DefaultConfig so a bare run crawls hacico.de.
func setDefaults(v *viper.Viper) {
	def := crawler.DefaultConfig()

	v.SetDefault("crawler.seed_url", def.SeedURL)
	v.SetDefault("crawler.parallelism", def.Parallelism)
	v.SetDefault("crawler.rate_limit", def.RateLimit)
	v.SetDefault("crawler.user_agent", def.UserAgent)
	v.SetDefault("crawler.timeout", def.Timeout)
	v.SetDefault("crawler.retry", def.Retry)
	v.SetDefault("crawler.max_response_size", def.MaxResponseSize)
	v.SetDefault("crawler.proxy", "")
	v.SetDefault("crawler.headers", []string{})
	v.SetDefault("crawler.respect_robots", def.RespectRobots)
	v.SetDefault("crawler.fetcher", string(def.FetcherMode))
	v.SetDefault("crawler.browser_timeout", def.BrowserTimeout)
	v.SetDefault("crawler.page_timeout", def.PageTimeout)

	v.SetDefault("site.selectors.countries", def.Selectors.Countries)
	v.SetDefault("site.selectors.categories", def.Selectors.Categories)
	v.SetDefault("site.selectors.products", def.Selectors.Products)
	v.SetDefault("site.selectors.pager", def.Selectors.Pager)

	p := def.Product
	v.SetDefault("site.product.info_block", p.InfoBlock)
	v.SetDefault("site.product.photo", p.Photo)
	v.SetDefault("site.product.heading", p.Heading)
	v.SetDefault("site.product.info_panel", p.InfoPanel)
	v.SetDefault("site.product.rows", p.Rows)
	v.SetDefault("site.product.type_cell", p.TypeCell)
	v.SetDefault("site.product.price_cell", p.PriceCell)
	v.SetDefault("site.product.buy_cell", p.BuyCell)
	v.SetDefault("site.product.price_element", p.PriceElement)
	v.SetDefault("site.product.buy_control", p.BuyControl)
	v.SetDefault("site.product.labels", p.Labels)
	v.SetDefault("site.product.currency", p.Currency)
	v.SetDefault("site.product.image_base_url", p.ImageBaseURL)
	v.SetDefault("site.variant_keywords", def.VariantKeywords)

	v.SetDefault("output.sink", "csv")
	v.SetDefault("output.path", "hacico.csv")
	v.SetDefault("output.dsn", "")
	v.SetDefault("output.table", "hacico_products")
	v.SetDefault("output.max_conns", 4)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("metrics.addr", "")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	u, err := url.Parse(c.Crawler.SeedURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("crawler.seed_url must be an absolute http(s) URL, got %q", c.Crawler.SeedURL)
	}
	if c.Crawler.Parallelism <= 0 {
		return fmt.Errorf("crawler.parallelism must be positive")
	}
	if c.Crawler.RateLimit < 0 {
		return fmt.Errorf("crawler.rate_limit must not be negative")
	}
	switch crawler.FetcherMode(c.Crawler.Fetcher) {
	case crawler.FetcherHTTP, crawler.FetcherBrowser:
	default:
		return fmt.Errorf("crawler.fetcher must be %q or %q", crawler.FetcherHTTP, crawler.FetcherBrowser)
	}

	switch c.Output.Sink {
	case "csv":
		if c.Output.Path == "" {
			return fmt.Errorf("output.path is required for the csv sink")
		}
	case "postgres":
		if c.Output.DSN == "" {
			return fmt.Errorf("output.dsn is required for the postgres sink")
		}
	default:
		return fmt.Errorf("output.sink must be \"csv\" or \"postgres\", got %q", c.Output.Sink)
	}

	p := c.Site.Product
	for field := range map[string]bool{extractor.FieldLength: true, extractor.FieldDiameter: true, extractor.FieldSize: true} {
		if p.Labels[field] == "" {
			return fmt.Errorf("site.product.labels.%s is required", field)
		}
	}
	if p.TypeCell < 0 || p.PriceCell < 0 || p.BuyCell < 0 {
		return fmt.Errorf("site.product cell indexes must not be negative")
	}

	return nil
}

// CrawlConfig converts the loaded configuration for the crawl engine.
func (c *Config) CrawlConfig() *crawler.CrawlConfig {
	cfg := crawler.DefaultConfig()
	cfg.SeedURL = c.Crawler.SeedURL
	cfg.Selectors = c.Site.Selectors
	cfg.Product = c.Site.Product
	cfg.VariantKeywords = c.Site.VariantKeywords
	cfg.Parallelism = c.Crawler.Parallelism
	cfg.RateLimit = c.Crawler.RateLimit
	cfg.UserAgent = c.Crawler.UserAgent
	cfg.Timeout = c.Crawler.Timeout
	cfg.Retry = c.Crawler.Retry
	cfg.MaxResponseSize = c.Crawler.MaxResponseSize
	cfg.Proxy = c.Crawler.Proxy
	cfg.CustomHeaders = c.Crawler.Headers
	cfg.RespectRobots = c.Crawler.RespectRobots
	cfg.FetcherMode = crawler.FetcherMode(c.Crawler.Fetcher)
	cfg.BrowserTimeout = c.Crawler.BrowserTimeout
	cfg.PageTimeout = c.Crawler.PageTimeout
	return cfg
}
