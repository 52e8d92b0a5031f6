package models

// ListingEntry is one auction candidate found on a listing page.
// YearHints are fallback year signals in priority order.
type ListingEntry struct {
	Title      string
	DateText   string
	YearHints  []string
	DetailURL  string
	Location   string
	SaleNumber string
	SaleTotal  string
}

// ListingPage is the extracted content of one listing page.
type ListingPage struct {
	Entries []ListingEntry
	NextURL string
}

// DetailRow is one lot row on an auction detail page.
type DetailRow struct {
	LotURL string
	Unsold bool
}

// DetailPage is the extracted content of one auction detail page.
type DetailPage struct {
	Rows        []DetailRow
	HasNextPage bool
}

// LotCandidate is what a lot page yields. An empty Price means the lot did not sell.
type LotCandidate struct {
	Artist     string
	Title      string
	Medium     string
	Size       string
	Signage    string
	Provenance string
	Condition  string
	Price      string
}

// ExportRow is one flattened auction x lot row.
type ExportRow struct {
	AuctionURL   string `csv:"auction_url" json:"auction_url"`
	AuctionTitle string `csv:"auction_title" json:"auction_title"`
	Year         Year   `csv:"year" json:"year"`
	Location     string `csv:"location" json:"location"`
	Date         string `csv:"date" json:"date"`
	SaleNumber   string `csv:"sale_number" json:"sale_number"`
	SaleTotal    string `csv:"sale_total" json:"sale_total"`
	Artist       string `csv:"artist" json:"artist"`
	Title        string `csv:"title" json:"title"`
	Medium       string `csv:"medium" json:"medium"`
	Size         string `csv:"size" json:"size"`
	Signage      string `csv:"signage" json:"signage"`
	Provenance   string `csv:"provenance" json:"provenance"`
	Condition    string `csv:"condition" json:"condition"`
	Price        string `csv:"price" json:"price"`
	LotURL       string `csv:"lot_url" json:"lot_url"`
}
