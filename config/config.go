package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces the environment overrides, e.g. SCRAPER_OUTPUT.
const EnvPrefix = "SCRAPER"

// Config holds crawler configuration.
type Config struct {
	BaseURL       string        `envconfig:"BASE_URL"`
	StartPath     string        `envconfig:"START_PATH"`
	MaxPages      int           `envconfig:"PAGES"`
	Parallelism   int           `envconfig:"PARALLEL"`
	Delay         time.Duration `envconfig:"DELAY"`
	RandomDelay   time.Duration `envconfig:"RANDOM_DELAY"`
	Timeout       time.Duration `envconfig:"TIMEOUT"`
	OutputFile    string        `envconfig:"OUTPUT"`
	OutputFormat  string        `envconfig:"FORMAT"` // csv, json, or dual
	UserAgent     string        `envconfig:"USER_AGENT"`
	DedupeMaxSize int           `envconfig:"DEDUPE_MAX_SIZE"`
	MetricsAddr   string        `envconfig:"METRICS_ADDR"`
	Verbose       bool          `envconfig:"VERBOSE"`
}

// MinDedupeSize is the smallest accepted de-duplication window. The window
// must hold every item URL of a crawl, otherwise an evicted URL can be
// written twice; the demo catalog lists 1000 books.
const MinDedupeSize = 1000

// DefaultConfig returns the settings for a full sequential crawl of the demo
// catalog.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "https://books.toscrape.com/",
		StartPath:     "catalogue/page-1.html",
		MaxPages:      0,
		Parallelism:   1,
		Delay:         0,
		RandomDelay:   0,
		Timeout:       10 * time.Second,
		OutputFile:    "data/books.csv",
		OutputFormat:  "csv",
		UserAgent:     "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		DedupeMaxSize: 100000,
		Verbose:       false,
	}
}

// Load returns the defaults overlaid with an optional .env file and SCRAPER_*
// environment variables. Missing dotenv files are ignored.
func Load(dotenvFiles ...string) (*Config, error) {
	if len(dotenvFiles) > 0 {
		if err := godotenv.Load(dotenvFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load dotenv: %w", err)
		}
	}

	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	cfg.OutputFormat = strings.ToLower(cfg.OutputFormat)
	return cfg, nil
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("base URL scheme must be http or https")
	}

	if _, err := url.Parse(c.StartPath); err != nil {
		return fmt.Errorf("invalid start path: %w", err)
	}
	if c.MaxPages < 0 {
		return fmt.Errorf("max pages cannot be negative")
	}
	if c.Parallelism <= 0 {
		return fmt.Errorf("parallelism must be positive")
	}
	if c.Delay < 0 {
		return fmt.Errorf("delay cannot be negative")
	}
	if c.RandomDelay < 0 {
		return fmt.Errorf("random delay cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.DedupeMaxSize < MinDedupeSize {
		return fmt.Errorf("dedupe max size must be at least %d", MinDedupeSize)
	}

	return nil
}

// SiteBase returns the parsed base URL with a trailing slash so relative
// paths resolve beneath it.
func (c *Config) SiteBase() (*url.URL, error) {
	base, err := url.Parse(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base, nil
}

// CatalogueBase returns the directory item and pagination links are relative to.
func (c *Config) CatalogueBase() (*url.URL, error) {
	base, err := c.SiteBase()
	if err != nil {
		return nil, err
	}
	return base.ResolveReference(&url.URL{Path: "catalogue/"}), nil
}

// StartURL returns the absolute locator of the first index page.
func (c *Config) StartURL() (string, error) {
	base, err := c.SiteBase()
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(c.StartPath)
	if err != nil {
		return "", fmt.Errorf("parse start path: %w", err)
	}
	return base.ResolveReference(ref).String(), nil
}
