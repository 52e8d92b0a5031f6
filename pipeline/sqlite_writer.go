package pipeline

import (
	"database/sql"
	_ "embed"
	"fmt"
	"sync"

	"github.com/aluiziolira/go-scrape-auctions/models"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var sqliteSchema string

// SQLiteWriter stores rows in an auctions table and a lots table.
// Re-exporting into the same file replaces rows with the same URL.
type SQLiteWriter struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteWriter opens (or creates) filename and applies the schema.
func NewSQLiteWriter(filename string) (*SQLiteWriter, error) {
	if err := ensureDir(filename); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteWriter{db: db}, nil
}

// Write inserts rows in a single transaction.
func (sw *SQLiteWriter) Write(rows []*models.ExportRow) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	tx, err := sw.db.Begin()
	if err != nil {
		return fmt.Errorf("begin sqlite tx: %w", err)
	}
	defer tx.Rollback()

	auctionStmt, err := tx.Prepare(`INSERT OR REPLACE INTO auctions
		(url, title, year, date, location, sale_number, sale_total)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare auction insert: %w", err)
	}
	defer auctionStmt.Close()

	lotStmt, err := tx.Prepare(`INSERT OR REPLACE INTO lots
		(url, auction_url, artist, title, medium, size, signage, provenance, condition, price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare lot insert: %w", err)
	}
	defer lotStmt.Close()

	for _, row := range rows {
		year := sql.NullInt64{Int64: int64(row.Year), Valid: row.Year != 0}
		if _, err := auctionStmt.Exec(row.AuctionURL, row.AuctionTitle, year, row.Date, row.Location, row.SaleNumber, row.SaleTotal); err != nil {
			return fmt.Errorf("insert auction %s: %w", row.AuctionURL, err)
		}
		if _, err := lotStmt.Exec(row.LotURL, row.AuctionURL, row.Artist, row.Title, row.Medium, row.Size, row.Signage, row.Provenance, row.Condition, row.Price); err != nil {
			return fmt.Errorf("insert lot %s: %w", row.LotURL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit sqlite tx: %w", err)
	}
	return nil
}

// Close closes the database.
func (sw *SQLiteWriter) Close() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.db.Close()
}

// Validate ensures at least one lot was stored.
func (sw *SQLiteWriter) Validate() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	var count int
	if err := sw.db.QueryRow(`SELECT COUNT(*) FROM lots`).Scan(&count); err != nil {
		return fmt.Errorf("count lots: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("sqlite lots table is empty")
	}
	return nil
}
