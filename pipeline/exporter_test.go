package pipeline

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/aluiziolira/go-scrape-auctions/config"
	"github.com/aluiziolira/go-scrape-auctions/models"
	"github.com/google/go-cmp/cmp"
)

func snapshot() []*models.AuctionRecord {
	return []*models.AuctionRecord{
		{
			URL: "http://example.test/auction/2016", Title: "Fine Art", Year: 2016, Date: "2016",
			Location: "Sydney", SaleNumber: "58", SaleTotal: "$1m",
			Status: models.StatusCompletedWithLots,
			Lots: []models.LotRecord{
				{Artist: "A", Title: "One", Medium: "oil", Size: "1", Price: "$1,200", URL: "http://example.test/items/1", AuctionURL: "http://example.test/auction/2016"},
				{Artist: "B", Title: "Two", Medium: "ink", Size: "2", Price: "$300", URL: "http://example.test/items/2", AuctionURL: "http://example.test/auction/2016"},
			},
		},
		{URL: "http://example.test/auction/pending", Title: "Pending", Year: 2017, Status: models.StatusPending, Lots: []models.LotRecord{}},
		{
			URL: "http://example.test/auction/2015", Title: "Works on Paper", Year: 2015,
			Status: models.StatusCompletedWithLots,
			Lots: []models.LotRecord{
				{Artist: "C", Title: "Three", Price: "$50", URL: "http://example.test/items/3", AuctionURL: "http://example.test/auction/2015"},
				{Artist: "dup", Title: "dup", Price: "$50", URL: "http://example.test/items/1", AuctionURL: "http://example.test/auction/2015"},
			},
		},
	}
}

func TestFlatten(t *testing.T) {
	rows := Flatten(snapshot())

	var got []string
	for _, r := range rows {
		got = append(got, r.LotURL)
	}
	want := []string{
		"http://example.test/items/1",
		"http://example.test/items/2",
		"http://example.test/items/3",
		"http://example.test/items/1",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
	if rows[0].AuctionTitle != "Fine Art" || rows[0].Location != "Sydney" || rows[0].Year != 2016 {
		t.Fatalf("auction fields not repeated: %+v", rows[0])
	}
	if rows[2].AuctionURL != "http://example.test/auction/2015" {
		t.Fatalf("auction url=%q", rows[2].AuctionURL)
	}
}

func TestExportCSV(t *testing.T) {
	cfg := config.DefaultConfig()
	path := filepath.Join(t.TempDir(), "out", "auctions.csv")

	writer, err := NewWriter("csv", path)
	if err != nil {
		t.Fatalf("new writer: %v", err)
	}
	exporter := NewExporter(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	result, err := exporter.Export(context.Background(), snapshot(), writer)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if result.Rows != 4 || result.Written != 3 {
		t.Fatalf("result=%+v, want 4 rows and 3 written", result)
	}
	if result.ValidationErrors["duplicate_url"] != 1 {
		t.Fatalf("validation=%v", result.ValidationErrors)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}

	var lots []string
	for _, rec := range records[1:] {
		lots = append(lots, rec[len(rec)-1])
	}
	want := []string{"http://example.test/items/1", "http://example.test/items/2", "http://example.test/items/3"}
	if diff := cmp.Diff(want, lots); diff != "" {
		t.Fatalf("csv rows mismatch (-want +got):\n%s", diff)
	}
}

func TestExportEmptySnapshot(t *testing.T) {
	writer := &mockWriter{validateErr: os.ErrNotExist}
	exporter := NewExporter(config.DefaultConfig(), nil)

	result, err := exporter.Export(context.Background(), nil, writer)
	if err != nil {
		t.Fatalf("export of nothing should not validate output: %v", err)
	}
	if result.Rows != 0 || writer.totalWritten() != 0 {
		t.Fatalf("result=%+v", result)
	}
}
