package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/go-scrape-auctions/config"
	"github.com/go-resty/resty/v2"
)

// RestyFetcher fetches pages with a resty client. It follows redirects and
// shares the retry and rate limit behaviour of CollyFetcher.
type RestyFetcher struct {
	client  *resty.Client
	retry   *retryManager
	limiter *hostLimiter
	metrics *Metrics
	logger  *slog.Logger
}

// NewRestyFetcher configures a resty client from cfg.
func NewRestyFetcher(cfg *config.Config, metrics *Metrics, logger *slog.Logger) *RestyFetcher {
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New()
	client.SetTransport(newTransport(cfg))
	client.SetHeader("User-Agent", cfg.UserAgent)
	client.SetHeader("Accept", "text/html,application/xhtml+xml")
	client.SetTimeout(cfg.Timeout)
	client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(10))

	return &RestyFetcher{
		client:  client,
		retry:   newRetryManager(cfg, metrics, logger),
		limiter: newHostLimiter(cfg.RequestsPerSecond),
		metrics: metrics,
		logger:  logger,
	}
}

// WithTransport replaces the HTTP transport of every later fetch.
func (f *RestyFetcher) WithTransport(rt http.RoundTripper) {
	f.client.SetTransport(rt)
}

// Retries reports how many retry attempts were made.
func (f *RestyFetcher) Retries() int {
	return f.retry.TotalRetries()
}

// Fetch returns the body of target, retrying transient failures.
func (f *RestyFetcher) Fetch(ctx context.Context, target string) (string, error) {
	body, err := f.retry.Do(ctx, target, func() (string, error) {
		if err := f.limiter.Wait(ctx, target); err != nil {
			return "", err
		}
		return f.fetchOnce(ctx, target)
	})
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", target, err)
	}
	return body, nil
}

func (f *RestyFetcher) fetchOnce(ctx context.Context, target string) (string, error) {
	f.metrics.IncRequest("started")
	start := time.Now()

	resp, err := f.client.R().
		SetContext(ctx).
		Get(target)
	f.metrics.ObserveDuration(time.Since(start))

	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	status := 0
	if resp != nil {
		status = resp.StatusCode()
	}
	if err != nil || status >= http.StatusBadRequest {
		classified := classifyError(err, status)
		f.metrics.IncRequest("failed")
		f.metrics.IncError(errorTypeLabel(classified))
		f.logger.Debug("request error",
			slog.String("url", target),
			slog.Int("status", status),
			slog.String("category", errorTypeLabel(classified)),
			slog.Any("error", err),
		)
		return "", classified
	}
	f.metrics.IncRequest("completed")
	return resp.String(), nil
}
