package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"time"
)

// Config holds scraper configuration.
type Config struct {
	Source          string
	ListingURL      string
	StateFile       string
	YearFrom        int
	YearTo          int
	MaxListingPages int

	Parallelism       int
	Delay             time.Duration
	RandomDelay       time.Duration
	Timeout           time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	RetryBackoffMax   time.Duration
	RequestsPerSecond float64
	Fetcher           string // colly or resty
	RetryEmpty        bool

	OutputFile         string
	OutputFormat       string // csv, json, dual, or sqlite
	BatchSize          int
	PipelineBufferSize int
	DedupeMaxSize      int

	UserAgent        string
	Verbose          bool
	RespectRobotsTxt bool
	MetricsAddr      string
}

// DefaultConfig returns conservative defaults: up to eight lot fetches in
// flight per catalogue page and a one second pause between pages and before
// each lot.
func DefaultConfig() *Config {
	return &Config{
		Source:             "menzies",
		ListingURL:         "",
		StateFile:          "",
		YearFrom:           2015,
		YearTo:             2025,
		MaxListingPages:    1,
		Parallelism:        8,
		Delay:              time.Second,
		RandomDelay:        0,
		Timeout:            30 * time.Second,
		MaxRetries:         2,
		RetryBackoff:       500 * time.Millisecond,
		RetryBackoffMax:    5 * time.Second,
		RequestsPerSecond:  0,
		Fetcher:            "colly",
		RetryEmpty:         false,
		OutputFile:         "output/auctions.csv",
		OutputFormat:       "csv",
		BatchSize:          64,
		PipelineBufferSize: 512,
		DedupeMaxSize:      100000,
		UserAgent:          "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Verbose:            false,
		RespectRobotsTxt:   false,
		MetricsAddr:        "",
	}
}

// ResolveDefaults fills values derived from other fields.
func (c *Config) ResolveDefaults() {
	if c.StateFile == "" && c.Source != "" {
		c.StateFile = filepath.Join("output", c.Source+"_auctions.json")
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source cannot be empty")
	}
	if c.ListingURL != "" {
		parsedURL, err := url.Parse(c.ListingURL)
		if err != nil {
			return fmt.Errorf("invalid listing URL: %w", err)
		}
		if parsedURL.Host == "" {
			return fmt.Errorf("listing URL must include a host")
		}
	}
	if c.StateFile == "" {
		return fmt.Errorf("state file cannot be empty")
	}
	if c.YearFrom <= 0 || c.YearTo <= 0 {
		return fmt.Errorf("year range must be positive")
	}
	if c.YearFrom > c.YearTo {
		return fmt.Errorf("year range is inverted: %d > %d", c.YearFrom, c.YearTo)
	}
	if c.MaxListingPages <= 0 {
		return fmt.Errorf("max listing pages must be positive")
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
	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	if c.RetryBackoff < 0 {
		return fmt.Errorf("retry backoff cannot be negative")
	}
	if c.RetryBackoffMax < 0 {
		return fmt.Errorf("retry backoff max cannot be negative")
	}
	if c.RetryBackoffMax > 0 && c.RetryBackoff > c.RetryBackoffMax {
		return fmt.Errorf("retry backoff (%s) cannot exceed retry backoff max (%s)", c.RetryBackoff, c.RetryBackoffMax)
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second cannot be negative")
	}
	if c.Fetcher != "colly" && c.Fetcher != "resty" {
		return fmt.Errorf("fetcher must be colly or resty")
	}
	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch c.OutputFormat {
	case "csv", "json", "dual", "sqlite":
	default:
		return fmt.Errorf("output format must be csv, json, dual, or sqlite")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.PipelineBufferSize <= 0 {
		return fmt.Errorf("pipeline buffer size must be positive")
	}
	if c.DedupeMaxSize <= 0 {
		return fmt.Errorf("dedupe max size must be positive")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}
