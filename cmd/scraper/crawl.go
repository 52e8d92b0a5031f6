package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/go-scrape-auctions/models"
	"github.com/aluiziolira/go-scrape-auctions/parser"
	"github.com/aluiziolira/go-scrape-auctions/scraper"
	"github.com/aluiziolira/go-scrape-auctions/store"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newCrawlCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Discover new auctions and fetch the lots of every pending one.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, stop, err := a.newScraper()
			if err != nil {
				return err
			}
			defer stop()

			a.logger.Info("starting crawl",
				slog.String("source", a.cfg.Source),
				slog.String("listing_url", a.cfg.ListingURL),
				slog.String("state", a.cfg.StateFile),
				slog.Int("year_from", a.cfg.YearFrom),
				slog.Int("year_to", a.cfg.YearTo),
			)

			result, err := s.Run(cmd.Context())
			if errors.Is(err, context.Canceled) {
				a.logger.Info("crawl interrupted, progress saved", slog.String("state", a.cfg.StateFile))
				err = nil
			}
			if result != nil {
				printRunSummary(cmd, result, a.cfg.StateFile)
			}
			return err
		},
	}
}

// newScraper wires the fetcher, extractor and store for the configured
// source. The returned stop func shuts the metrics server down.
func (a *app) newScraper() (*scraper.Scraper, func(), error) {
	src, err := parser.Lookup(a.cfg.Source)
	if err != nil {
		return nil, nil, err
	}
	if a.cfg.ListingURL == "" {
		a.cfg.ListingURL = src.ListingURL
	}

	metrics := scraper.NewMetrics()
	fetcher, err := scraper.NewFetcher(a.cfg, metrics, a.logger)
	if err != nil {
		return nil, nil, err
	}
	st := store.NewFileStore(a.cfg.StateFile, a.logger)

	stop := serveMetrics(a.cfg.MetricsAddr, metrics, a.logger)
	return scraper.New(a.cfg, fetcher, src.Extractor, st, metrics, a.logger), stop, nil
}

func serveMetrics(addr string, metrics *scraper.Metrics, logger *slog.Logger) func() {
	if addr == "" || metrics == nil {
		return func() {}
	}

	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()
	logger.Info("metrics server enabled", slog.String("addr", addr))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.Error("metrics server shutdown failed", slog.Any("error", err))
		}
	}
}

func printRunSummary(cmd *cobra.Command, result *models.RunResult, stateFile string) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetTitle("Crawl complete")
	t.AppendRows([]table.Row{
		{"Auctions in snapshot", result.TotalAuctions},
		{"Newly discovered", result.Discovered},
		{"Processed", result.Processed},
		{"Succeeded", result.Succeeded},
		{"Failed", result.Failed},
		{"Skipped (complete)", result.Skipped},
		{"Lots fetched", result.LotCount},
		{"Checkpoint errors", result.CheckpointErrors},
	})
	if len(result.ErrorsByType) > 0 {
		t.AppendRow(table.Row{"Errors by type", fmt.Sprint(result.ErrorsByType)})
	}
	t.AppendSeparator()
	t.AppendRow(table.Row{"Duration", result.EndTime.Sub(result.StartTime).Round(time.Millisecond)})
	t.AppendRow(table.Row{"State file", stateFile})
	t.SetStyle(table.StyleRounded)
	t.Render()

	for _, u := range result.FailedAuctionURLs {
		fmt.Fprintf(cmd.OutOrStdout(), "failed: %s\n", u)
	}
}
