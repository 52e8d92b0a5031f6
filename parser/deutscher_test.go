package parser

import "testing"

const dhListing = `<html><body><div class="view-content">
<h3>2019</h3>
<div class="views-row">
  <a href="/auction/important-fine-art-2019">Important Australian and International Fine Art</a>
  <div class="field-name-field-auction-date"><span class="date-display-single">Wednesday 28 August 2019</span></div>
  <div class="field-name-field-auction-location"><div class="field-item">Melbourne</div></div>
  <div class="field-name-field-auction-number"><div class="field-item">58</div></div>
</div>
<div class="views-row"><a href="/auctions/past?year=2019">More</a></div>
<h3>2018</h3>
<div class="views-row">
  <a href="/auction/fine-art-2018">Fine Art</a>
</div>
</div></body></html>`

func TestDeutscherHackettExtractListing(t *testing.T) {
	page, err := DeutscherHackett{}.ExtractListing(dhListing, "https://www.deutscherandhackett.com/auctions/past")
	if err != nil {
		t.Fatalf("extract listing: %v", err)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("entries=%d, want 2", len(page.Entries))
	}

	first := page.Entries[0]
	if first.Title != "Important Australian and International Fine Art" {
		t.Fatalf("title=%q", first.Title)
	}
	if first.DetailURL != "https://www.deutscherandhackett.com/auction/important-fine-art-2019" {
		t.Fatalf("url=%q", first.DetailURL)
	}
	if first.DateText != "Wednesday 28 August 2019" || first.Location != "Melbourne" || first.SaleNumber != "58" {
		t.Fatalf("fields=%+v", first)
	}
	if len(first.YearHints) != 1 || first.YearHints[0] != "2019" {
		t.Fatalf("hints=%v", first.YearHints)
	}
	if page.Entries[1].YearHints[0] != "2018" {
		t.Fatalf("second heading=%v", page.Entries[1].YearHints)
	}
}

const dhDetail = `<html><body>
<div class="views-row">
  <a href="/auction/lot/101">Lot 1</a>
  <div class="field-price-sold">Sold for $12,000 inc. BP</div>
</div>
<div class="views-row">
  <a href="/auction/lot/102">Lot 2</a>
</div>
<ul class="pager"><li class="pager-next"><a href="?page=1">next</a></li></ul>
</body></html>`

func TestDeutscherHackettExtractDetailPage(t *testing.T) {
	page, err := DeutscherHackett{}.ExtractDetailPage(dhDetail, "https://www.deutscherandhackett.com/auction/fine-art-2018", 1)
	if err != nil {
		t.Fatalf("extract detail: %v", err)
	}
	if len(page.Rows) != 2 {
		t.Fatalf("rows=%d, want 2", len(page.Rows))
	}
	if page.Rows[0].Unsold || !page.Rows[1].Unsold {
		t.Fatalf("unsold flags=%v/%v", page.Rows[0].Unsold, page.Rows[1].Unsold)
	}
	if page.Rows[1].LotURL != "https://www.deutscherandhackett.com/auction/lot/102" {
		t.Fatalf("url=%q", page.Rows[1].LotURL)
	}
	if !page.HasNextPage {
		t.Fatalf("expected pager-next")
	}
}

func TestDeutscherHackettExtractLot(t *testing.T) {
	markup := `<html><body>
<div class="field-name-field-lot-artist"><p>SIDNEY NOLAN</p></div>
<div class="field-lot-title">Ned Kelly</div>
<div class="field-name-field-lot-medium"><p>enamel on board</p></div>
<div class="field-name-field-lot-signed"><p>signed lower right</p></div>
<div class="field-price-sold">Sold for $12,000 inc. BP</div>
</body></html>`

	lot, err := DeutscherHackett{}.ExtractLot(markup, "https://www.deutscherandhackett.com/auction/lot/101")
	if err != nil {
		t.Fatalf("extract lot: %v", err)
	}
	if lot.Artist != "SIDNEY NOLAN" || lot.Title != "Ned Kelly" || lot.Medium != "enamel on board" {
		t.Fatalf("lot=%+v", lot)
	}
	if lot.Size != NotSpecified || lot.Provenance != NotSpecified {
		t.Fatalf("defaults=%+v", lot)
	}
	if lot.Signage != "signed lower right" {
		t.Fatalf("signage=%q", lot.Signage)
	}
	if lot.Price != "$12,000" {
		t.Fatalf("price=%q", lot.Price)
	}

	unsold, err := DeutscherHackett{}.ExtractLot(`<div class="field-lot-title">X</div>`, "")
	if err != nil {
		t.Fatalf("extract lot: %v", err)
	}
	if unsold.Price != "" {
		t.Fatalf("unsold price=%q", unsold.Price)
	}
}
