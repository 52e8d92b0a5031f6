package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-auctions/models"
)

// fakeFetcher serves canned markup keyed by URL and records every call.
type fakeFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	errs    map[string]error
	delays  map[string]time.Duration
	calls   map[string]int
	onFetch func(url string)
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		pages:  make(map[string]string),
		errs:   make(map[string]error),
		delays: make(map[string]time.Duration),
		calls:  make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls[url]++
	body, ok := f.pages[url]
	err := f.errs[url]
	delay := f.delays[url]
	hook := f.onFetch
	f.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if delay > 0 {
		if serr := sleepWithContext(ctx, delay); serr != nil {
			return "", serr
		}
	}
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotFound{Err: fmt.Errorf("no page for %s", url)}
	}
	return body, nil
}

func (f *fakeFetcher) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
}

// fakeSite pairs a fetcher with an extractor whose markup is simply the
// page URL, so tests describe pages as structs.
type fakeSite struct {
	fetcher  *fakeFetcher
	listings map[string]models.ListingPage
	details  map[string]models.DetailPage
	lots     map[string]models.LotCandidate
	panics   map[string]bool
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		fetcher:  newFakeFetcher(),
		listings: make(map[string]models.ListingPage),
		details:  make(map[string]models.DetailPage),
		lots:     make(map[string]models.LotCandidate),
		panics:   make(map[string]bool),
	}
}

func (x *fakeSite) listing(url string, page models.ListingPage) {
	x.fetcher.pages[url] = url
	x.listings[url] = page
}

func (x *fakeSite) detail(url string, hasNext bool, lotURLs ...string) {
	page := models.DetailPage{HasNextPage: hasNext}
	for _, u := range lotURLs {
		page.Rows = append(page.Rows, models.DetailRow{LotURL: u})
	}
	x.fetcher.pages[url] = url
	x.details[url] = page
}

func (x *fakeSite) lot(url, price string) {
	x.fetcher.pages[url] = url
	x.lots[url] = models.LotCandidate{
		Artist: "Artist of " + url,
		Title:  "Title of " + url,
		Medium: "oil on canvas",
		Size:   "10 x 10 cm",
		Price:  price,
	}
}

func (x *fakeSite) ExtractListing(markup, pageURL string) (models.ListingPage, error) {
	if x.panics[markup] {
		panic("unexpected markup")
	}
	return x.listings[markup], nil
}

func (x *fakeSite) ExtractDetailPage(markup, pageURL string, page int) (models.DetailPage, error) {
	if x.panics[markup] {
		panic("unexpected markup")
	}
	return x.details[markup], nil
}

func (x *fakeSite) ExtractLot(markup, pageURL string) (models.LotCandidate, error) {
	if x.panics[markup] {
		panic("unexpected markup")
	}
	c, ok := x.lots[markup]
	if !ok {
		return models.LotCandidate{}, errors.New("no lot fields")
	}
	return c, nil
}

// memStore round-trips through JSON like the file store does.
type memStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
	fail  bool
}

func (m *memStore) Load() []*models.AuctionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	records := []*models.AuctionRecord{}
	if m.data == nil {
		return records
	}
	if err := json.Unmarshal(m.data, &records); err != nil {
		panic(err)
	}
	for _, r := range records {
		r.ApplyDefaults()
	}
	return records
}

func (m *memStore) Save(records []*models.AuctionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.fail {
		return errors.New("disk full")
	}
	data, err := json.Marshal(records)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
