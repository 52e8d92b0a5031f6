package parser

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-auctions/models"
)

// DeutscherHackett extracts records from deutscherandhackett.com (Drupal views).
type DeutscherHackett struct{}

// ExtractListing walks the past-auctions page, where each h3 year heading is
// followed by the .views-row auctions held that year.
func (DeutscherHackett) ExtractListing(markup, pageURL string) (models.ListingPage, error) {
	doc, err := newDocument(markup)
	if err != nil {
		return models.ListingPage{}, err
	}

	var page models.ListingPage
	doc.Find("h3").Each(func(_ int, heading *goquery.Selection) {
		year := selText(heading)
		heading.NextUntil("h3").Filter(".views-row").Each(func(_ int, row *goquery.Selection) {
			link := row.Find("a[href]").First()
			href, _ := link.Attr("href")
			if strings.Contains(href, "/auctions/past") {
				return
			}
			page.Entries = append(page.Entries, models.ListingEntry{
				Title:      selText(link),
				DateText:   selText(row.Find("div.field-name-field-auction-date span.date-display-single").First()),
				YearHints:  []string{year},
				DetailURL:  resolveURL(pageURL, href),
				Location:   selText(row.Find("div.field-name-field-auction-location div.field-item").First()),
				SaleNumber: selText(row.Find("div.field-name-field-auction-number div.field-item").First()),
			})
		})
	})
	page.NextURL = nextLink(doc, pageURL)
	return page, nil
}

// ExtractDetailPage lists the lot rows of an auction. Rows without a
// field-price-sold block passed in and are marked unsold.
func (DeutscherHackett) ExtractDetailPage(markup, pageURL string, _ int) (models.DetailPage, error) {
	doc, err := newDocument(markup)
	if err != nil {
		return models.DetailPage{}, err
	}

	var out models.DetailPage
	doc.Find("div.views-row").Each(func(_ int, row *goquery.Selection) {
		href, _ := row.Find("a[href*='/auction/lot/']").First().Attr("href")
		out.Rows = append(out.Rows, models.DetailRow{
			LotURL: resolveURL(pageURL, href),
			Unsold: row.Find("div.field-price-sold").Length() == 0,
		})
	})
	out.HasNextPage = doc.Find("li.pager-next a, li.pager__item--next a").Length() > 0
	return out, nil
}

// PageURL follows the Drupal pager, which counts pages from zero.
func (DeutscherHackett) PageURL(auctionURL string, page int) string {
	if page <= 1 {
		return auctionURL
	}
	return withQuery(auctionURL, "page", strconv.Itoa(page-1))
}

// ExtractLot reads a lot page. The sold block reads like
// "Sold for $12,000 inc. BP"; everything before "in" is kept.
func (DeutscherHackett) ExtractLot(markup, pageURL string) (models.LotCandidate, error) {
	doc, err := newDocument(markup)
	if err != nil {
		return models.LotCandidate{}, err
	}

	field := func(name, fallback string) string {
		return orDefault(selText(doc.Find("div."+name+" p").First()), fallback)
	}

	lot := models.LotCandidate{
		Artist:     field("field-name-field-lot-artist", UnknownArtist),
		Title:      orDefault(selText(doc.Find("div.field-lot-title").First()), UnknownTitle),
		Medium:     field("field-name-field-lot-medium", UnknownMedium),
		Size:       field("field-name-field-lot-size", NotSpecified),
		Signage:    field("field-name-field-lot-signed", NoSignage),
		Provenance: field("field-name-field-lot-provenance", NotSpecified),
		Condition:  field("field-name-field-lot-condition", NotSpecified),
	}

	if sold := doc.Find("div.field-price-sold").First(); sold.Length() > 0 {
		before, _, _ := strings.Cut(selText(sold), "in")
		lot.Price = strings.TrimSpace(strings.Replace(before, "Sold for", "", 1))
	}
	return lot, nil
}
