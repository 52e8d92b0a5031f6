package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-auctions/config"
	"github.com/aluiziolira/go-scrape-auctions/models"
	"github.com/aluiziolira/go-scrape-auctions/store"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.json5")}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFlagsOverrideOnlyWhenChanged(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.YearFrom = 2019
	cfg.Delay = 3 * time.Second

	v := flagValues{yearFrom: 2015, delay: 250 * time.Millisecond, format: "SQLite"}
	changed := map[string]bool{"delay": true, "format": true}
	v.applyTo(cfg, func(name string) bool { return changed[name] })

	if cfg.YearFrom != 2019 {
		t.Fatalf("year from=%d, unset flag must not override", cfg.YearFrom)
	}
	if cfg.Delay != 250*time.Millisecond {
		t.Fatalf("delay=%s, want flag value", cfg.Delay)
	}
	if cfg.OutputFormat != "sqlite" {
		t.Fatalf("format=%q, want lowercased flag value", cfg.OutputFormat)
	}
}

func TestSourcesCommand(t *testing.T) {
	out, err := execute(t, "sources", "--source", "deutscherandhackett")
	if err != nil {
		t.Fatalf("sources: %v", err)
	}
	for _, want := range []string{"menzies", "deutscherandhackett *", "menziesartbrands.com"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestInvalidConfigurationFails(t *testing.T) {
	_, err := execute(t, "sources", "--year-from", "2020", "--year-to", "2010")
	if err == nil || !strings.Contains(err.Error(), "invalid configuration") {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCrawlUnknownSource(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "crawl", "--source", "christies", "--state", filepath.Join(dir, "state.json"))
	if err == nil || !strings.Contains(err.Error(), "unknown source") {
		t.Fatalf("expected unknown source error, got %v", err)
	}
}

func TestExportCommand(t *testing.T) {
	dir := t.TempDir()
	state := filepath.Join(dir, "state.json")
	output := filepath.Join(dir, "out", "auctions.csv")

	records := []*models.AuctionRecord{{
		URL:    "http://example.test/auction/1",
		Title:  "Fine Art",
		Year:   2016,
		Status: models.StatusCompletedWithLots,
		Lots: []models.LotRecord{{
			Artist:     "JOHN OLSEN",
			Title:      "Frog Pond",
			Price:      "$1,200",
			URL:        "http://example.test/items/1",
			AuctionURL: "http://example.test/auction/1",
		}},
	}}
	if err := store.NewFileStore(state, nil).Save(records); err != nil {
		t.Fatalf("seed state: %v", err)
	}

	out, err := execute(t, "export", "--state", state, "--output", output, "--format", "csv")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if !strings.Contains(out, "Export complete") {
		t.Fatalf("summary missing:\n%s", out)
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !strings.Contains(string(data), "http://example.test/items/1") || !strings.Contains(string(data), `"$1,200"`) {
		t.Fatalf("unexpected csv:\n%s", data)
	}
}
