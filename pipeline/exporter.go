package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-auctions/config"
	"github.com/aluiziolira/go-scrape-auctions/models"
)

// ExportResult summarises one export.
type ExportResult struct {
	Auctions         int
	Rows             int
	Written          int64
	ValidationErrors map[string]int
}

// Exporter writes a stored auction collection through a Pipeline.
type Exporter struct {
	cfg    *config.Config
	logger *slog.Logger
}

// NewExporter returns an exporter sized from cfg. A nil logger uses slog.Default.
func NewExporter(cfg *config.Config, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{cfg: cfg, logger: logger}
}

// Flatten returns one row per lot with its auction's fields repeated.
// Auctions without lots produce no rows.
func Flatten(records []*models.AuctionRecord) []*models.ExportRow {
	var rows []*models.ExportRow
	for _, a := range records {
		if a == nil {
			continue
		}
		for _, lot := range a.Lots {
			rows = append(rows, &models.ExportRow{
				AuctionURL:   a.URL,
				AuctionTitle: a.Title,
				Year:         a.Year,
				Location:     a.Location,
				Date:         a.Date,
				SaleNumber:   a.SaleNumber,
				SaleTotal:    a.SaleTotal,
				Artist:       lot.Artist,
				Title:        lot.Title,
				Medium:       lot.Medium,
				Size:         lot.Size,
				Signage:      lot.Signage,
				Provenance:   lot.Provenance,
				Condition:    lot.Condition,
				Price:        lot.Price,
				LotURL:       lot.URL,
			})
		}
	}
	return rows
}

// Export flattens records and writes them with writer. A single worker
// keeps rows in snapshot order. The writer is validated but not closed.
func (e *Exporter) Export(ctx context.Context, records []*models.AuctionRecord, writer OutputWriter) (*ExportResult, error) {
	rows := Flatten(records)
	result := &ExportResult{Auctions: len(records), Rows: len(rows)}

	p := NewPipeline(ctx, writer, e.cfg)
	p.Start(1)
	if e.cfg.Verbose {
		p.StartMetricsReporting(e.logger, 10*time.Second)
	}

	if err := p.Process(rows...); err != nil {
		_ = p.Close()
		return result, fmt.Errorf("process rows: %w", err)
	}
	if err := p.Close(); err != nil {
		return result, fmt.Errorf("close pipeline: %w", err)
	}

	stats := p.Stats()
	result.Written = stats.Accepted
	result.ValidationErrors = stats.Rejected
	for kind, n := range result.ValidationErrors {
		e.logger.Warn("rows rejected", slog.String("reason", kind), slog.Int("count", n))
	}

	if result.Written > 0 {
		if err := writer.Validate(); err != nil {
			return result, fmt.Errorf("validate output: %w", err)
		}
	}
	e.logger.Info("export finished",
		slog.Int("auctions", result.Auctions),
		slog.Int("rows", result.Rows),
		slog.Int64("written", result.Written),
	)
	return result, nil
}

// NewWriter builds the writer for format. The dual format writes filename
// as CSV and a sibling .jsonl file.
func NewWriter(format, filename string) (OutputWriter, error) {
	switch format {
	case "json":
		return NewJSONWriter(filename)
	case "csv":
		return NewCSVWriter(filename)
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".jsonl"
		return NewDualWriter(filename, jsonFilename)
	case "sqlite":
		return NewSQLiteWriter(filename)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}
