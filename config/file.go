package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// File is the on-disk configuration. Durations are Go duration strings.
// Pointer fields distinguish "unset" from an explicit zero.
type File struct {
	Source            string   `json:"source"`
	ListingURL        string   `json:"listing_url"`
	StateFile         string   `json:"state_file"`
	YearFrom          int      `json:"year_from"`
	YearTo            int      `json:"year_to"`
	MaxListingPages   int      `json:"max_listing_pages"`
	Parallelism       int      `json:"parallelism"`
	Delay             string   `json:"delay"`
	RandomDelay       string   `json:"random_delay"`
	Timeout           string   `json:"timeout"`
	MaxRetries        *int     `json:"max_retries"`
	RetryBackoff      string   `json:"retry_backoff"`
	RetryBackoffMax   string   `json:"retry_backoff_max"`
	RequestsPerSecond *float64 `json:"requests_per_second"`
	Fetcher           string   `json:"fetcher"`
	RetryEmpty        *bool    `json:"retry_empty"`
	OutputFile        string   `json:"output_file"`
	OutputFormat      string   `json:"output_format"`
	UserAgent         string   `json:"user_agent"`
	RespectRobotsTxt  *bool    `json:"respect_robots_txt"`
	MetricsAddr       string   `json:"metrics_addr"`
}

// ReadFile reads name and merges <name>.local.<ext> over it when present.
// It returns os.ErrNotExist when neither file exists.
func ReadFile(name string) (File, error) {
	var out File
	found := false

	base, err := os.ReadFile(name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return out, err
	}
	if len(base) > 0 {
		if err := json5.Unmarshal(base, &out); err != nil {
			return out, fmt.Errorf("parse %s: %w", name, err)
		}
		found = true
	}

	local := localName(name)
	override, err := os.ReadFile(local)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return out, err
	}
	if len(override) > 0 {
		var layer File
		if err := json5.Unmarshal(override, &layer); err != nil {
			return out, fmt.Errorf("parse %s: %w", local, err)
		}
		if err := mergo.Merge(&out, layer, mergo.WithOverride); err != nil {
			return out, fmt.Errorf("merge %s: %w", local, err)
		}
		slog.Info("merging config with local overrides", slog.String("local", local))
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}
	return out, nil
}

func localName(name string) string {
	dir := filepath.Dir(name)
	base := filepath.Base(name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(dir, stem+".local"+ext)
}

// ApplyFile copies every field set in f onto c.
func (c *Config) ApplyFile(f File) error {
	setString(&c.Source, f.Source)
	setString(&c.ListingURL, f.ListingURL)
	setString(&c.StateFile, f.StateFile)
	setString(&c.Fetcher, f.Fetcher)
	setString(&c.OutputFile, f.OutputFile)
	setString(&c.OutputFormat, strings.ToLower(f.OutputFormat))
	setString(&c.UserAgent, f.UserAgent)
	setString(&c.MetricsAddr, f.MetricsAddr)

	setInt(&c.YearFrom, f.YearFrom)
	setInt(&c.YearTo, f.YearTo)
	setInt(&c.MaxListingPages, f.MaxListingPages)
	setInt(&c.Parallelism, f.Parallelism)
	if f.MaxRetries != nil {
		c.MaxRetries = *f.MaxRetries
	}
	if f.RequestsPerSecond != nil {
		c.RequestsPerSecond = *f.RequestsPerSecond
	}
	if f.RetryEmpty != nil {
		c.RetryEmpty = *f.RetryEmpty
	}
	if f.RespectRobotsTxt != nil {
		c.RespectRobotsTxt = *f.RespectRobotsTxt
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"delay", f.Delay, &c.Delay},
		{"random_delay", f.RandomDelay, &c.RandomDelay},
		{"timeout", f.Timeout, &c.Timeout},
		{"retry_backoff", f.RetryBackoff, &c.RetryBackoff},
		{"retry_backoff_max", f.RetryBackoffMax, &c.RetryBackoffMax},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		parsed, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	return nil
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setInt(dst *int, value int) {
	if value != 0 {
		*dst = value
	}
}

// Load layers defaults, the config file at path (when it exists) and the
// AUCTIONS_* environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		f, err := ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Debug("no config file", slog.String("path", path))
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := cfg.ApplyFile(f); err != nil {
				return nil, fmt.Errorf("apply config %s: %w", path, err)
			}
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("apply env: %w", err)
	}
	return cfg, nil
}
