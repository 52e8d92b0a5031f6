// Package parser turns auction-house markup into records. Everything here is
// a pure function of its input: no network, no persistence.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aluiziolira/go-scrape-auctions/models"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Defaults used when a lot page does not expose a field.
const (
	UnknownArtist = "Unknown Artist"
	UnknownTitle  = "Unknown Title"
	UnknownMedium = "Unknown Medium"
	NotSpecified  = "Not specified"
	NoSignage     = "No signage found"
)

// Extractor pulls structured data out of one source site's markup.
type Extractor interface {
	ExtractListing(markup, pageURL string) (models.ListingPage, error)
	ExtractDetailPage(markup, pageURL string, page int) (models.DetailPage, error)
	ExtractLot(markup, pageURL string) (models.LotCandidate, error)
}

// Paginator is implemented by extractors whose detail pages are not
// addressed with ?page=N.
type Paginator interface {
	PageURL(auctionURL string, page int) string
}

var pricePrinter = message.NewPrinter(language.English)

// FormatPrice renders whole dollars with thousands separators: 1200 -> "$1,200".
func FormatPrice(amount int) string {
	return pricePrinter.Sprintf("$%d", amount)
}

// ParsePrice reads a whole-dollar amount such as "1,200" or "$ 1,200".
func ParsePrice(text string) (int, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "$")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("empty price")
	}
	amount, err := strconv.Atoi(cleaned)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", text, err)
	}
	return amount, nil
}

// NormalizePrice trims and collapses whitespace in an already formatted price.
func NormalizePrice(price string) string {
	return strings.Join(strings.Fields(price), " ")
}

// ValidateLot ensures a lot carries its identity and a resolved price.
func ValidateLot(l *models.LotRecord) error {
	if l == nil {
		return fmt.Errorf("lot is nil")
	}
	if strings.TrimSpace(l.URL) == "" {
		return fmt.Errorf("lot missing url")
	}
	if strings.TrimSpace(l.Price) == "" {
		return fmt.Errorf("lot missing price for %s", l.URL)
	}
	if strings.TrimSpace(l.AuctionURL) == "" {
		return fmt.Errorf("lot missing auction url for %s", l.URL)
	}
	return nil
}

// ValidateRow ensures an export row has the fields every consumer relies on.
func ValidateRow(r *models.ExportRow) error {
	if r == nil {
		return fmt.Errorf("row is nil")
	}
	if strings.TrimSpace(r.AuctionURL) == "" {
		return fmt.Errorf("row missing auction url")
	}
	if strings.TrimSpace(r.LotURL) == "" {
		return fmt.Errorf("row missing lot url")
	}
	if strings.TrimSpace(r.Price) == "" {
		return fmt.Errorf("row missing price for %s", r.LotURL)
	}
	return nil
}

// LotFromCandidate fills sentinel defaults and stamps identity fields.
func LotFromCandidate(c models.LotCandidate, lotURL, auctionURL string) models.LotRecord {
	return models.LotRecord{
		Artist:     orDefault(c.Artist, UnknownArtist),
		Title:      orDefault(c.Title, UnknownTitle),
		Medium:     orDefault(c.Medium, UnknownMedium),
		Size:       orDefault(c.Size, NotSpecified),
		Signage:    c.Signage,
		Provenance: c.Provenance,
		Condition:  c.Condition,
		Price:      NormalizePrice(c.Price),
		URL:        lotURL,
		AuctionURL: auctionURL,
	}
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// DetailPageURL addresses page n (1-based) of an auction's lot listing.
// Page 1 is the auction URL itself.
func DetailPageURL(e Extractor, auctionURL string, page int) string {
	if p, ok := e.(Paginator); ok {
		return p.PageURL(auctionURL, page)
	}
	if page <= 1 {
		return auctionURL
	}
	return withQuery(auctionURL, "page", strconv.Itoa(page))
}
