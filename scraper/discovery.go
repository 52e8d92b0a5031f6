package scraper

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-auctions/models"
)

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Discover walks the listing pages starting at listingURL and returns new
// pending auctions inside the configured year range, newest first. URLs in
// known are skipped. A failed first page yields an empty result.
func (s *Scraper) Discover(ctx context.Context, listingURL string, known map[string]struct{}) []*models.AuctionRecord {
	found := []*models.AuctionRecord{}
	emitted := make(map[string]struct{})
	visited := make(map[string]struct{})

	pageURL := listingURL
	for page := 1; pageURL != "" && page <= s.cfg.MaxListingPages; page++ {
		if ctx.Err() != nil {
			break
		}
		if _, ok := visited[pageURL]; ok {
			break
		}
		visited[pageURL] = struct{}{}

		markup, err := s.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			s.recordError(err)
			s.logger.Error("listing fetch failed",
				slog.String("url", pageURL),
				slog.Int("page", page),
				slog.Any("error", err),
			)
			break
		}
		listing, err := safeExtract(func() (models.ListingPage, error) {
			return s.extractor.ExtractListing(markup, pageURL)
		})
		if err != nil {
			s.recordError(ErrExtract{Err: err})
			s.logger.Error("listing extract failed", slog.String("url", pageURL), slog.Any("error", err))
			break
		}

		before := len(found)
		for _, entry := range listing.Entries {
			if record, ok := s.admit(entry, known, emitted); ok {
				found = append(found, record)
			}
		}
		s.logger.Info("listing page scanned",
			slog.String("url", pageURL),
			slog.Int("entries", len(listing.Entries)),
			slog.Int("new", len(found)-before),
		)

		pageURL = listing.NextURL
		if pageURL != "" && page < s.cfg.MaxListingPages {
			if err := sleepWithContext(ctx, s.cfg.Delay); err != nil {
				break
			}
		}
	}

	sortByYearDesc(found)
	return found
}

func (s *Scraper) admit(entry models.ListingEntry, known, emitted map[string]struct{}) (*models.AuctionRecord, bool) {
	year := resolveYear(entry)
	if year == 0 {
		s.logger.Debug("skipping auction without year", slog.String("title", entry.Title), slog.String("url", entry.DetailURL))
		return nil, false
	}
	if year < s.cfg.YearFrom || year > s.cfg.YearTo {
		s.logger.Debug("skipping auction outside year range", slog.String("title", entry.Title), slog.Int("year", year))
		return nil, false
	}
	if entry.DetailURL == "" {
		s.logger.Warn("skipping auction without detail url", slog.String("title", entry.Title), slog.Int("year", year))
		return nil, false
	}
	if _, ok := known[entry.DetailURL]; ok {
		return nil, false
	}
	if _, ok := emitted[entry.DetailURL]; ok {
		return nil, false
	}
	emitted[entry.DetailURL] = struct{}{}

	record := &models.AuctionRecord{
		URL:        entry.DetailURL,
		Title:      strings.TrimSpace(entry.Title),
		Year:       models.Year(year),
		Date:       strings.TrimSpace(entry.DateText),
		Location:   strings.TrimSpace(entry.Location),
		SaleNumber: strings.TrimSpace(entry.SaleNumber),
		SaleTotal:  strings.TrimSpace(entry.SaleTotal),
		Status:     models.StatusPending,
	}
	record.ApplyDefaults()
	return record, true
}

// resolveYear reads the year from the labeled date first, then from each
// hint in order. It returns 0 when nothing matches.
func resolveYear(entry models.ListingEntry) int {
	if y := findYear(entry.DateText); y != 0 {
		return y
	}
	for _, hint := range entry.YearHints {
		if y := findYear(hint); y != 0 {
			return y
		}
	}
	return 0
}

func findYear(text string) int {
	match := yearPattern.FindString(text)
	if match == "" {
		return 0
	}
	y, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return y
}

// sortByYearDesc orders records newest first, keeping discovery order on ties.
func sortByYearDesc(records []*models.AuctionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Year > records[j].Year
	})
}
