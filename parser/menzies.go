package parser

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/aluiziolira/go-scrape-auctions/models"
)

var (
	yearAnchorID = regexp.MustCompile(`^year-\d+$`)
	menziesItem  = regexp.MustCompile(`/items/\d+`)
)

// Menzies extracts records from menziesartbrands.com.
type Menzies struct{}

// ExtractListing reads the auction results page. Each div.pageCatalogue is
// one auction; year fallbacks are the closest preceding year anchor, h2 and
// h3 in that order, then the catalogue's own text.
func (Menzies) ExtractListing(markup, pageURL string) (models.ListingPage, error) {
	doc, err := newDocument(markup)
	if err != nil {
		return models.ListingPage{}, err
	}

	var page models.ListingPage
	var lastAnchor, lastH2, lastH3 string
	doc.Find("a[id^='year-'], h2, h3, div.pageCatalogue").Each(func(_ int, s *goquery.Selection) {
		switch {
		case s.Is("div.pageCatalogue"):
			hints := []string{lastAnchor, lastH2, lastH3, selText(s)}
			page.Entries = append(page.Entries, menziesEntry(s, pageURL, hints))
		case goquery.NodeName(s) == "a":
			if id, _ := s.Attr("id"); yearAnchorID.MatchString(id) {
				lastAnchor = id
			}
		case goquery.NodeName(s) == "h2":
			lastH2 = selText(s)
		case goquery.NodeName(s) == "h3":
			lastH3 = selText(s)
		}
	})
	page.NextURL = nextLink(doc, pageURL)
	return page, nil
}

func menziesEntry(catalogue *goquery.Selection, pageURL string, hints []string) models.ListingEntry {
	entry := models.ListingEntry{YearHints: hints}

	entry.DateText = selText(catalogue.Find("p.pageCatDesc").First())

	title := catalogue.Find("h3.pageCatTitle").First()
	if title.Length() == 0 {
		title = catalogue.Find("h4").First()
	}
	if title.Length() == 0 {
		title = catalogue.Find("h2").First()
	}
	entry.Title = selText(title)

	catalogue.Find("li, p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := selText(s)
		if !strings.Contains(strings.ToLower(text), "sale total:") {
			return true
		}
		_, total, _ := strings.Cut(text, ":")
		entry.SaleTotal = strings.TrimSpace(total)
		return false
	})

	link := catalogue.Find("a.buTTon[href]").First()
	if link.Length() == 0 {
		link = catalogue.Find("a[href*='/catalogue-details/']").First()
	}
	if href, ok := link.Attr("href"); ok {
		entry.DetailURL = resolveURL(pageURL, href)
	}
	return entry
}

// ExtractDetailPage reads one page of an auction catalogue. The next page
// exists when the pager links to page+1.
func (Menzies) ExtractDetailPage(markup, pageURL string, page int) (models.DetailPage, error) {
	doc, err := newDocument(markup)
	if err != nil {
		return models.DetailPage{}, err
	}

	var out models.DetailPage
	doc.Find("div.pageListing").Each(func(_ int, row *goquery.Selection) {
		var lotURL string
		row.Find("a.buTTon[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if !menziesItem.MatchString(href) {
				return true
			}
			lotURL = resolveURL(pageURL, href)
			return false
		})
		out.Rows = append(out.Rows, models.DetailRow{LotURL: lotURL})
	})

	want := strconv.Itoa(page + 1)
	doc.Find("div.pageListingNav a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		u, err := url.Parse(href)
		if err != nil {
			return true
		}
		if u.Query().Get("page") == want {
			out.HasNextPage = true
			return false
		}
		return true
	})
	return out, nil
}

// ExtractLot reads a lot page. The price comes from "Sold For:" in the lot
// details, falling back to "Result Hammer:" in the description. An empty
// Price means the lot passed in.
func (Menzies) ExtractLot(markup, pageURL string) (models.LotCandidate, error) {
	doc, err := newDocument(markup)
	if err != nil {
		return models.LotCandidate{}, err
	}

	lot := models.LotCandidate{
		Artist: UnknownArtist,
		Title:  UnknownTitle,
		Medium: UnknownMedium,
		Size:   NotSpecified,
	}

	description := doc.Find("div.pageLotDescriptionTxt").First()
	paragraphs := description.Find("p")
	if p := paragraphs.Eq(0); p.Length() > 0 {
		lot.Artist = orDefault(selText(p), UnknownArtist)
	}
	if p := paragraphs.Eq(1); p.Length() > 0 {
		lot.Title = orDefault(selText(p.Find("i").First()), UnknownTitle)
	}
	if p := paragraphs.Eq(2); p.Length() > 0 {
		lines := textLines(p)
		if len(lines) > 0 {
			lot.Medium = lines[0]
		}
		if len(lines) > 1 {
			lot.Size = lines[1]
		}
	}

	lot.Price = labelledPrice(doc.Find("div.pageLotDetails").First(), "sold for:")
	if lot.Price == "" {
		lot.Price = labelledPrice(description, "result hammer:")
	}
	return lot, nil
}

// labelledPrice finds the first <p> whose <strong> carries label and formats
// the first span.price inside it. Only the first labelled paragraph counts.
func labelledPrice(scope *goquery.Selection, label string) string {
	var price string
	scope.Find("p").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(selText(p.Find("strong"))), label) {
			return true
		}
		span := p.Find("span.price").First()
		if span.Length() == 0 {
			return false
		}
		if amount, err := ParsePrice(selText(span)); err == nil {
			price = FormatPrice(amount)
		}
		return false
	})
	return price
}
