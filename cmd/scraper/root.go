package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-auctions/config"
	"github.com/spf13/cobra"
)

// app carries state shared by every command once flags are parsed.
type app struct {
	configPath string
	flags      flagValues

	cfg    *config.Config
	logger *slog.Logger
}

// flagValues mirrors the config fields that can be set on the command line.
// Only flags the user actually set override the file and environment layers.
type flagValues struct {
	source          string
	listingURL      string
	stateFile       string
	fetcher         string
	userAgent       string
	metricsAddr     string
	verbose         bool
	yearFrom        int
	yearTo          int
	listingPages    int
	parallel        int
	maxRetries      int
	delay           time.Duration
	randomDelay     time.Duration
	timeout         time.Duration
	retryBackoff    time.Duration
	retryBackoffMax time.Duration
	rps             float64
	retryEmpty      bool
	respectRobots   bool
	output          string
	format          string
	batchSize       int
	bufferSize      int
	dedupeSize      int
}

func newRootCmd() *cobra.Command {
	a := &app{}
	defaults := config.DefaultConfig()

	root := &cobra.Command{
		Use:           "scraper",
		Short:         "scraper crawls art auction results and resumes where it stopped.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load(cmd.Flags().Changed)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "auctions.json5", "Config file (JSON5); <name>.local.<ext> is merged over it")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Enable verbose logging")
	pf.StringVar(&a.flags.source, "source", defaults.Source, "Auction house to crawl (see the sources command)")
	pf.StringVar(&a.flags.listingURL, "listing-url", "", "Override the source's results page")
	pf.StringVar(&a.flags.stateFile, "state", "", "Snapshot file (default output/<source>_auctions.json)")
	pf.StringVar(&a.flags.fetcher, "fetcher", defaults.Fetcher, "HTTP client: colly or resty")
	pf.StringVar(&a.flags.userAgent, "user-agent", defaults.UserAgent, "User-Agent header")
	pf.StringVar(&a.flags.metricsAddr, "metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	pf.IntVar(&a.flags.yearFrom, "year-from", defaults.YearFrom, "First auction year to keep")
	pf.IntVar(&a.flags.yearTo, "year-to", defaults.YearTo, "Last auction year to keep")
	pf.IntVar(&a.flags.listingPages, "listing-pages", defaults.MaxListingPages, "Maximum results pages to follow")
	pf.IntVar(&a.flags.parallel, "parallel", defaults.Parallelism, "Concurrent lot fetches per page")
	pf.IntVar(&a.flags.maxRetries, "max-retries", defaults.MaxRetries, "Maximum retry attempts per URL")
	pf.DurationVar(&a.flags.delay, "delay", defaults.Delay, "Pause before each lot fetch and between pages")
	pf.DurationVar(&a.flags.randomDelay, "random-delay", defaults.RandomDelay, "Random jitter added to each request")
	pf.DurationVar(&a.flags.timeout, "timeout", defaults.Timeout, "Per-request timeout")
	pf.DurationVar(&a.flags.retryBackoff, "retry-backoff", defaults.RetryBackoff, "Initial retry backoff")
	pf.DurationVar(&a.flags.retryBackoffMax, "retry-backoff-max", defaults.RetryBackoffMax, "Maximum retry backoff")
	pf.Float64Var(&a.flags.rps, "rps", defaults.RequestsPerSecond, "Requests per second per host (0 disables)")
	pf.BoolVar(&a.flags.retryEmpty, "retry-empty", defaults.RetryEmpty, "Re-fetch auctions that completed without lots")
	pf.BoolVar(&a.flags.respectRobots, "respect-robots", defaults.RespectRobotsTxt, "Respect robots.txt directives")
	pf.StringVar(&a.flags.output, "output", defaults.OutputFile, "Export file path")
	pf.StringVar(&a.flags.format, "format", defaults.OutputFormat, "Export format: csv, json, dual, or sqlite")
	pf.IntVar(&a.flags.batchSize, "batch-size", defaults.BatchSize, "Rows per export write")
	pf.IntVar(&a.flags.bufferSize, "buffer", defaults.PipelineBufferSize, "Export pipeline buffer size")
	pf.IntVar(&a.flags.dedupeSize, "dedupe-size", defaults.DedupeMaxSize, "Lot URLs remembered for export dedupe")

	root.AddCommand(
		newCrawlCmd(a),
		newAuctionCmd(a),
		newExportCmd(a),
		newSourcesCmd(a),
	)
	return root
}

// load builds the configuration and the logger for the running command.
func (a *app) load(changed func(name string) bool) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.flags.applyTo(cfg, changed)
	cfg.ResolveDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (v *flagValues) applyTo(cfg *config.Config, changed func(name string) bool) {
	set := func(name string, apply func()) {
		if changed(name) {
			apply()
		}
	}

	set("source", func() { cfg.Source = v.source })
	set("listing-url", func() { cfg.ListingURL = v.listingURL })
	set("state", func() { cfg.StateFile = v.stateFile })
	set("fetcher", func() { cfg.Fetcher = strings.ToLower(v.fetcher) })
	set("user-agent", func() { cfg.UserAgent = v.userAgent })
	set("metrics-addr", func() { cfg.MetricsAddr = v.metricsAddr })
	set("verbose", func() { cfg.Verbose = v.verbose })
	set("year-from", func() { cfg.YearFrom = v.yearFrom })
	set("year-to", func() { cfg.YearTo = v.yearTo })
	set("listing-pages", func() { cfg.MaxListingPages = v.listingPages })
	set("parallel", func() { cfg.Parallelism = v.parallel })
	set("max-retries", func() { cfg.MaxRetries = v.maxRetries })
	set("delay", func() { cfg.Delay = v.delay })
	set("random-delay", func() { cfg.RandomDelay = v.randomDelay })
	set("timeout", func() { cfg.Timeout = v.timeout })
	set("retry-backoff", func() { cfg.RetryBackoff = v.retryBackoff })
	set("retry-backoff-max", func() { cfg.RetryBackoffMax = v.retryBackoffMax })
	set("rps", func() { cfg.RequestsPerSecond = v.rps })
	set("retry-empty", func() { cfg.RetryEmpty = v.retryEmpty })
	set("respect-robots", func() { cfg.RespectRobotsTxt = v.respectRobots })
	set("output", func() { cfg.OutputFile = v.output })
	set("format", func() { cfg.OutputFormat = strings.ToLower(v.format) })
	set("batch-size", func() { cfg.BatchSize = v.batchSize })
	set("buffer", func() { cfg.PipelineBufferSize = v.bufferSize })
	set("dedupe-size", func() { cfg.DedupeMaxSize = v.dedupeSize })
}
