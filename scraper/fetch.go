package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-auctions/config"
	"golang.org/x/time/rate"
)

// Fetcher retrieves the markup behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// NewFetcher builds the fetcher named by cfg.Fetcher.
func NewFetcher(cfg *config.Config, metrics *Metrics, logger *slog.Logger) (Fetcher, error) {
	switch cfg.Fetcher {
	case "colly", "":
		return NewCollyFetcher(cfg, metrics, logger), nil
	case "resty":
		return NewRestyFetcher(cfg, metrics, logger), nil
	default:
		return nil, fmt.Errorf("unknown fetcher %q", cfg.Fetcher)
	}
}

func newTransport(cfg *config.Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		switch {
		case statusCode == http.StatusForbidden:
			return ErrForbidden{Err: wrapped}
		case statusCode == http.StatusNotFound:
			return ErrNotFound{Err: wrapped}
		case statusCode == http.StatusTooManyRequests:
			return ErrRateLimited{Err: wrapped}
		case statusCode >= http.StatusInternalServerError:
			return ErrServer{Err: wrapped}
		case statusCode >= http.StatusBadRequest && err == nil:
			return wrapped
		}
	}

	if err == nil {
		return nil
	}
	return err
}

// retryManager repeats a failed fetch with capped exponential backoff.
// Only transient failures are retried.
type retryManager struct {
	cfg     *config.Config
	metrics *Metrics
	logger  *slog.Logger

	mu           sync.Mutex
	totalRetries int
}

func newRetryManager(cfg *config.Config, metrics *Metrics, logger *slog.Logger) *retryManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &retryManager{cfg: cfg, metrics: metrics, logger: logger}
}

func (rm *retryManager) Do(ctx context.Context, target string, fetch func() (string, error)) (string, error) {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		body, err := fetch()
		if err == nil {
			return body, nil
		}
		if attempt >= rm.cfg.MaxRetries || !retryable(err) {
			return "", err
		}

		rm.mu.Lock()
		rm.totalRetries++
		rm.mu.Unlock()
		rm.metrics.IncRetries()

		delay := rm.backoff(attempt + 1)
		rm.logger.Debug("retrying fetch",
			slog.String("url", target),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", delay),
			slog.Any("error", err),
		)
		if serr := sleepWithContext(ctx, delay); serr != nil {
			return "", err
		}
	}
}

func (rm *retryManager) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rm.cfg.RetryBackoff
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	delay := base * time.Duration(1<<(attempt-1))
	if max := rm.cfg.RetryBackoffMax; max > 0 && delay > max {
		delay = max
	}
	return delay
}

func (rm *retryManager) TotalRetries() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.totalRetries
}

// hostLimiter holds one token bucket per host. A non-positive rate
// disables limiting.
type hostLimiter struct {
	limit rate.Limit

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newHostLimiter(perSecond float64) *hostLimiter {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	return &hostLimiter{limit: limit, limiters: make(map[string]*rate.Limiter)}
}

func (h *hostLimiter) Wait(ctx context.Context, rawURL string) error {
	if h.limit == rate.Inf {
		return ctx.Err()
	}
	return h.limiter(hostKey(rawURL)).Wait(ctx)
}

func (h *hostLimiter) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(h.limit, 1)
		h.limiters[host] = l
	}
	return l
}

func hostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "default"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
