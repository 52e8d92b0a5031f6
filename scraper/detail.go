package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aluiziolira/go-scrape-auctions/models"
	"github.com/aluiziolira/go-scrape-auctions/parser"
	"golang.org/x/sync/errgroup"
)

// lotResult is the outcome of one lot task. A nil lot with a nil err means
// the lot did not sell.
type lotResult struct {
	url string
	lot *models.LotRecord
	err error
}

// FillLots fetches the catalogue pages of auction and stores its sold lots.
// It returns false, leaving the auction pending, when the first page cannot
// be read or ctx is cancelled. Completed auctions are left untouched.
func (s *Scraper) FillLots(ctx context.Context, auction *models.AuctionRecord) bool {
	if !s.needsLots(auction) {
		return true
	}

	lots := []models.LotRecord{}
	taken := make(map[string]struct{})
	listed := make(map[string]struct{})

	for page := 1; ; page++ {
		if ctx.Err() != nil {
			return false
		}

		pageURL := parser.DetailPageURL(s.extractor, auction.URL, page)
		markup, err := s.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			if ctx.Err() != nil {
				return false
			}
			s.recordError(err)
			if page == 1 {
				s.logger.Error("auction fetch failed", slog.String("url", pageURL), slog.Any("error", err))
				return false
			}
			s.logger.Warn("catalogue page fetch failed, keeping earlier pages",
				slog.String("url", pageURL),
				slog.Int("page", page),
				slog.Any("error", err),
			)
			break
		}

		detail, err := safeExtract(func() (models.DetailPage, error) {
			return s.extractor.ExtractDetailPage(markup, pageURL, page)
		})
		if err != nil {
			s.recordError(ErrExtract{Err: err})
			if page == 1 {
				s.logger.Error("auction extract failed", slog.String("url", pageURL), slog.Any("error", err))
				return false
			}
			s.logger.Warn("catalogue page extract failed", slog.String("url", pageURL), slog.Any("error", err))
			break
		}
		if len(detail.Rows) == 0 {
			break
		}

		targets, fresh := s.lotTargets(detail.Rows, taken, listed)
		if page > 1 && fresh == 0 {
			s.logger.Debug("catalogue page repeats earlier lots, stopping", slog.String("url", pageURL))
			break
		}

		for _, res := range s.fetchLots(ctx, auction.URL, targets) {
			if res.lot != nil {
				lots = append(lots, *res.lot)
			}
		}
		if ctx.Err() != nil {
			return false
		}

		s.logger.Debug("catalogue page done",
			slog.String("url", pageURL),
			slog.Int("rows", len(detail.Rows)),
			slog.Int("lots", len(lots)),
		)

		if !detail.HasNextPage {
			break
		}
		if err := sleepWithContext(ctx, s.cfg.Delay); err != nil {
			return false
		}
	}

	auction.Lots = lots
	if len(lots) > 0 {
		auction.Status = models.StatusCompletedWithLots
	} else {
		auction.Status = models.StatusCompletedEmpty
	}
	s.metrics.AddLots(len(lots))
	return true
}

func (s *Scraper) needsLots(auction *models.AuctionRecord) bool {
	if len(auction.Lots) > 0 {
		return false
	}
	switch auction.Status {
	case models.StatusCompletedWithLots:
		return false
	case models.StatusCompletedEmpty:
		return s.cfg.RetryEmpty
	}
	return true
}

// lotTargets returns the lot URLs worth fetching from rows, in row order.
// fresh counts rows, sold or not, whose URL no earlier row listed; a later
// page with none is a repeat of pages already read.
func (s *Scraper) lotTargets(rows []models.DetailRow, taken, listed map[string]struct{}) ([]string, int) {
	var targets []string
	fresh := 0
	for _, row := range rows {
		if row.LotURL != "" {
			if _, ok := listed[row.LotURL]; !ok {
				listed[row.LotURL] = struct{}{}
				fresh++
			}
		}
		if row.Unsold {
			s.metrics.IncLotDropped("unsold")
			continue
		}
		if row.LotURL == "" {
			s.logger.Debug("lot row without url")
			s.metrics.IncLotDropped("no_url")
			continue
		}
		if _, ok := taken[row.LotURL]; ok {
			continue
		}
		taken[row.LotURL] = struct{}{}
		targets = append(targets, row.LotURL)
	}
	return targets, fresh
}

// fetchLots runs one task per URL, at most Parallelism at a time. Tasks
// never cancel each other; results keep the order of urls.
func (s *Scraper) fetchLots(ctx context.Context, auctionURL string, urls []string) []lotResult {
	results := make([]lotResult, len(urls))

	var g errgroup.Group
	g.SetLimit(max(1, s.cfg.Parallelism))
	for i, lotURL := range urls {
		g.Go(func() error {
			results[i] = s.fetchLot(ctx, auctionURL, lotURL)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scraper) fetchLot(ctx context.Context, auctionURL, lotURL string) (res lotResult) {
	res.url = lotURL
	defer func() {
		if r := recover(); r != nil {
			res = lotResult{url: lotURL, err: ErrExtract{Err: fmt.Errorf("panic: %v", r)}}
			s.recordError(res.err)
			s.metrics.IncLotDropped("error")
			s.logger.Error("lot extraction panicked", slog.String("url", lotURL), slog.Any("panic", r))
		}
	}()

	if err := sleepWithContext(ctx, s.cfg.Delay); err != nil {
		res.err = err
		return res
	}

	markup, err := s.fetcher.Fetch(ctx, lotURL)
	if err != nil {
		res.err = err
		if ctx.Err() == nil {
			s.recordError(err)
			s.metrics.IncLotDropped("error")
			s.logger.Warn("lot fetch failed", slog.String("url", lotURL), slog.Any("error", err))
		}
		return res
	}

	candidate, err := s.extractor.ExtractLot(markup, lotURL)
	if err != nil {
		res.err = ErrExtract{Err: err}
		s.recordError(res.err)
		s.metrics.IncLotDropped("error")
		s.logger.Warn("lot extract failed", slog.String("url", lotURL), slog.Any("error", err))
		return res
	}

	if strings.TrimSpace(candidate.Price) == "" {
		s.metrics.IncLotDropped("not_sold")
		s.logger.Debug("lot not sold", slog.String("url", lotURL))
		return res
	}

	lot := parser.LotFromCandidate(candidate, lotURL, auctionURL)
	if err := parser.ValidateLot(&lot); err != nil {
		res.err = err
		s.metrics.IncLotDropped("invalid")
		s.logger.Warn("lot rejected", slog.String("url", lotURL), slog.Any("error", err))
		return res
	}
	res.lot = &lot
	return res
}
