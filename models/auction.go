// Package models defines data structures for the scraper.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Sentinel values for auction fields a source does not expose.
const (
	NoTitle      = "No title found"
	NoDate       = "No date found"
	NoLocation   = "No location found"
	NoSaleNumber = "No sale number found"
	NoSaleTotal  = "No sale total found"
)

// Status tracks how far the detail stage got for an auction.
type Status string

const (
	StatusPending           Status = "pending"
	StatusCompletedEmpty    Status = "completed_empty"
	StatusCompletedWithLots Status = "completed_with_lots"
)

var embeddedYear = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// Year is a resolved four digit year. The zero value means unresolved.
// It decodes from a JSON number, a numeric string or null.
type Year int

// MarshalJSON writes null for an unresolved year.
func (y Year) MarshalJSON() ([]byte, error) {
	if y == 0 {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(y))), nil
}

// UnmarshalJSON accepts 2016, "2016" and null. Other strings decode to the
// year they contain, or to unresolved.
func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*y = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*y = 0
			return nil
		}
		if n, err := strconv.Atoi(s); err == nil {
			*y = Year(n)
			return nil
		}
		// headings like "2016 Auctions" or "Upcoming"
		if m := embeddedYear.FindString(s); m != "" {
			n, _ := strconv.Atoi(m)
			*y = Year(n)
			return nil
		}
		*y = 0
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("year: %w", err)
	}
	*y = Year(n)
	return nil
}

// AuctionRecord is one auction and, once the detail stage has run, its sold lots.
// URL is the identity used for resume and dedupe.
type AuctionRecord struct {
	URL        string      `json:"url"`
	Title      string      `json:"title"`
	Year       Year        `json:"year"`
	Date       string      `json:"date"`
	Location   string      `json:"location,omitempty"`
	SaleNumber string      `json:"sale_number,omitempty"`
	SaleTotal  string      `json:"sale_total,omitempty"`
	Status     Status      `json:"status,omitempty"`
	Lots       []LotRecord `json:"lots"`
}

// ApplyDefaults fills missing optional fields with their sentinels and
// derives a status for records written before statuses existed.
func (a *AuctionRecord) ApplyDefaults() {
	if strings.TrimSpace(a.Title) == "" {
		a.Title = NoTitle
	}
	if strings.TrimSpace(a.Date) == "" {
		a.Date = NoDate
	}
	if a.Location == "" {
		a.Location = NoLocation
	}
	if a.SaleNumber == "" {
		a.SaleNumber = NoSaleNumber
	}
	if a.SaleTotal == "" {
		a.SaleTotal = NoSaleTotal
	}
	if a.Lots == nil {
		a.Lots = []LotRecord{}
	}
	switch {
	case len(a.Lots) > 0:
		a.Status = StatusCompletedWithLots
	case a.Status == "" || a.Status == StatusCompletedWithLots:
		a.Status = StatusPending
	}
}

// Complete reports whether the detail stage finished for this auction.
func (a *AuctionRecord) Complete() bool {
	return len(a.Lots) > 0 || a.Status == StatusCompletedWithLots || a.Status == StatusCompletedEmpty
}

// LotRecord is a sold lot. Price is always set; unsold lots are never recorded.
type LotRecord struct {
	Artist     string `json:"artist"`
	Title      string `json:"title"`
	Medium     string `json:"medium"`
	Size       string `json:"size"`
	Signage    string `json:"signage,omitempty"`
	Provenance string `json:"provenance,omitempty"`
	Condition  string `json:"condition,omitempty"`
	Price      string `json:"price"`
	URL        string `json:"url"`
	AuctionURL string `json:"auctionUrl"`
}

// RunResult summarises one crawl run.
type RunResult struct {
	StartTime         time.Time
	EndTime           time.Time
	Discovered        int
	Processed         int
	Succeeded         int
	Failed            int
	Skipped           int
	LotCount          int
	CheckpointErrors  int
	TotalAuctions     int
	ErrorsByType      map[string]int
	FailedAuctionURLs []string
}
