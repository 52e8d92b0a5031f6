package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "AUCTIONS_"

// EnvString returns the trimmed value of key when it is set and non-empty.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	return value, true
}

// EnvInt parses key as an integer.
func EnvInt(key string) (int, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return n, true, nil
}

// EnvDuration parses key as a Go duration ("750ms", "2s").
func EnvDuration(key string) (time.Duration, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return 0, false, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, false, fmt.Errorf("%s: %w", key, err)
	}
	return d, true, nil
}

// EnvBool parses key with strconv.ParseBool.
func EnvBool(key string) (bool, bool, error) {
	value, ok := EnvString(key)
	if !ok {
		return false, false, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, false, fmt.Errorf("%s: %w", key, err)
	}
	return b, true, nil
}

// ApplyEnv overrides c with any AUCTIONS_* variables that are set.
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"SOURCE":       &c.Source,
		"LISTING_URL":  &c.ListingURL,
		"STATE_FILE":   &c.StateFile,
		"FETCHER":      &c.Fetcher,
		"OUTPUT":       &c.OutputFile,
		"FORMAT":       &c.OutputFormat,
		"USER_AGENT":   &c.UserAgent,
		"METRICS_ADDR": &c.MetricsAddr,
	}
	for name, dst := range strs {
		if value, ok := EnvString(EnvPrefix + name); ok {
			*dst = value
		}
	}

	ints := map[string]*int{
		"YEAR_FROM":     &c.YearFrom,
		"YEAR_TO":       &c.YearTo,
		"LISTING_PAGES": &c.MaxListingPages,
		"PARALLEL":      &c.Parallelism,
		"MAX_RETRIES":   &c.MaxRetries,
	}
	for name, dst := range ints {
		value, ok, err := EnvInt(EnvPrefix + name)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	durations := map[string]*time.Duration{
		"DELAY":   &c.Delay,
		"TIMEOUT": &c.Timeout,
	}
	for name, dst := range durations {
		value, ok, err := EnvDuration(EnvPrefix + name)
		if err != nil {
			return err
		}
		if ok {
			*dst = value
		}
	}

	if value, ok, err := EnvBool(EnvPrefix + "RETRY_EMPTY"); err != nil {
		return err
	} else if ok {
		c.RetryEmpty = value
	}
	return nil
}
