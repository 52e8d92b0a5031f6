// Package scraper crawls auction listings and their lots and checkpoints
// progress so an interrupted run can resume.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-auctions/config"
	"github.com/aluiziolira/go-scrape-auctions/models"
	"github.com/aluiziolira/go-scrape-auctions/parser"
	"github.com/aluiziolira/go-scrape-auctions/store"
)

// Scraper drives discovery and the detail stage for one source.
type Scraper struct {
	cfg       *config.Config
	fetcher   Fetcher
	extractor parser.Extractor
	store     store.Store
	metrics   *Metrics
	logger    *slog.Logger

	mu           sync.Mutex
	errorsByType map[string]int
}

// New wires a scraper. metrics may be nil; a nil logger uses slog.Default.
func New(cfg *config.Config, fetcher Fetcher, extractor parser.Extractor, st store.Store, metrics *Metrics, logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		cfg:          cfg,
		fetcher:      fetcher,
		extractor:    extractor,
		store:        st,
		metrics:      metrics,
		logger:       logger,
		errorsByType: make(map[string]int),
	}
}

// Run loads the snapshot, discovers new auctions from the listing and fills
// every pending auction in order, saving after each one. It returns
// ctx.Err() when interrupted, together with the partial result.
func (s *Scraper) Run(ctx context.Context) (*models.RunResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	result := &models.RunResult{StartTime: time.Now()}

	records := s.store.Load()
	known := store.KnownURLs(records)

	discovered := s.Discover(ctx, s.cfg.ListingURL, known)
	result.Discovered = len(discovered)
	records = append(records, discovered...)
	sortByYearDesc(records)
	s.logger.Info("discovery finished",
		slog.Int("new", len(discovered)),
		slog.Int("total", len(records)),
	)
	s.checkpoint(records, result)

	for i, auction := range records {
		if ctx.Err() != nil {
			break
		}
		if !s.needsLots(auction) {
			result.Skipped++
			continue
		}

		result.Processed++
		s.logger.Info("processing auction",
			slog.Int("index", i+1),
			slog.Int("total", len(records)),
			slog.String("title", auction.Title),
			slog.String("url", auction.URL),
		)

		ok := s.FillLots(ctx, auction)
		switch {
		case ok:
			result.Succeeded++
			result.LotCount += len(auction.Lots)
			s.metrics.IncAuction(string(auction.Status))
			s.logger.Info("auction done",
				slog.String("url", auction.URL),
				slog.String("status", string(auction.Status)),
				slog.Int("lots", len(auction.Lots)),
			)
		case ctx.Err() != nil:
			s.metrics.IncAuction("interrupted")
			s.logger.Warn("auction interrupted, left pending", slog.String("url", auction.URL))
		default:
			result.Failed++
			result.FailedAuctionURLs = append(result.FailedAuctionURLs, auction.URL)
			s.metrics.IncAuction("failed")
		}
		s.checkpoint(records, result)
	}

	result.TotalAuctions = len(records)
	result.ErrorsByType = s.snapshotErrors()
	result.EndTime = time.Now()
	return result, ctx.Err()
}

// RunAuction fills one auction given by the caller and merges it into the
// snapshot. An auction already in the snapshot is reused as stored.
func (s *Scraper) RunAuction(ctx context.Context, auction *models.AuctionRecord) (*models.AuctionRecord, bool, error) {
	if auction == nil || auction.URL == "" {
		return nil, false, fmt.Errorf("auction url is required")
	}

	records := s.store.Load()
	target := auction
	for _, r := range records {
		if r.URL == auction.URL {
			target = r
			break
		}
	}
	if target == auction {
		if auction.Status == "" {
			auction.Status = models.StatusPending
		}
		auction.ApplyDefaults()
		records = append(records, auction)
		sortByYearDesc(records)
	}

	ok := s.FillLots(ctx, target)
	if ok {
		s.metrics.IncAuction(string(target.Status))
	} else {
		s.metrics.IncAuction("failed")
	}
	if err := s.store.Save(records); err != nil {
		s.metrics.IncCheckpoint("error")
		return target, ok, fmt.Errorf("checkpoint: %w", err)
	}
	s.metrics.IncCheckpoint("ok")
	return target, ok, nil
}

// ErrorsByType returns fetch and extract error counts by type.
func (s *Scraper) ErrorsByType() map[string]int {
	return s.snapshotErrors()
}

func (s *Scraper) checkpoint(records []*models.AuctionRecord, result *models.RunResult) {
	if err := s.store.Save(records); err != nil {
		result.CheckpointErrors++
		s.metrics.IncCheckpoint("error")
		s.logger.Error("checkpoint failed", slog.Any("error", err))
		return
	}
	s.metrics.IncCheckpoint("ok")
}

func (s *Scraper) recordError(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	category := errorTypeLabel(err)
	// fetchers count their own failures
	if category == "extract" {
		s.metrics.IncError(category)
	}
	s.mu.Lock()
	s.errorsByType[category]++
	s.mu.Unlock()
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}
