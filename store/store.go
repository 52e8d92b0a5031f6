// Package store persists the auction collection between runs.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aluiziolira/go-scrape-auctions/models"
)

// Store loads and checkpoints the auction collection.
type Store interface {
	Load() []*models.AuctionRecord
	Save(records []*models.AuctionRecord) error
}

// FileStore keeps one JSON array of auctions per source on disk.
type FileStore struct {
	path   string
	logger *slog.Logger
}

// NewFileStore returns a store backed by path. A nil logger uses slog.Default.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{path: path, logger: logger}
}

// Path returns the snapshot location.
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored collection. It never fails: a missing snapshot
// starts fresh and a corrupt one is moved to <path>.corrupt first.
func (s *FileStore) Load() []*models.AuctionRecord {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("no snapshot found, starting fresh", slog.String("path", s.path))
		return []*models.AuctionRecord{}
	}
	if err != nil {
		s.logger.Error("read snapshot", slog.String("path", s.path), slog.Any("error", err))
		return []*models.AuctionRecord{}
	}

	records, err := decode(data)
	if err != nil {
		aside := s.path + ".corrupt"
		s.logger.Error("corrupt snapshot, moving aside",
			slog.String("path", s.path),
			slog.String("moved_to", aside),
			slog.Any("error", err),
		)
		if rerr := os.Rename(s.path, aside); rerr != nil {
			s.logger.Error("move corrupt snapshot", slog.String("path", s.path), slog.Any("error", rerr))
		}
		return []*models.AuctionRecord{}
	}

	s.logger.Info("snapshot loaded", slog.String("path", s.path), slog.Int("auctions", len(records)))
	return records
}

func decode(data []byte) ([]*models.AuctionRecord, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []*models.AuctionRecord{}, nil
	}
	var records []*models.AuctionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	out := records[:0]
	for _, r := range records {
		if r == nil || r.URL == "" {
			continue
		}
		r.ApplyDefaults()
		out = append(out, r)
	}
	return out, nil
}

// Save writes the full collection to a temp file and renames it over the
// previous snapshot.
func (s *FileStore) Save(records []*models.AuctionRecord) error {
	if records == nil {
		records = []*models.AuctionRecord{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	if err := writeAtomic(s.path, data); err != nil {
		return fmt.Errorf("save snapshot %s: %w", s.path, err)
	}
	return nil
}

func writeAtomic(dest string, data []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	_ = syncDir(dir)
	return nil
}

// syncDir is best effort; not every platform supports fsync on directories.
func syncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}

// KnownURLs returns the identity set of records.
func KnownURLs(records []*models.AuctionRecord) map[string]struct{} {
	known := make(map[string]struct{}, len(records))
	for _, r := range records {
		if r != nil {
			known[r.URL] = struct{}{}
		}
	}
	return known
}
