package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aluiziolira/go-scrape-auctions/config"
	"github.com/gocolly/colly/v2"
)

// CollyFetcher fetches pages with a colly collector. Each call runs on a
// clone of one configured base collector, so clones share its transport and
// limit rules but not its callbacks.
type CollyFetcher struct {
	cfg       *config.Config
	collector *colly.Collector
	retry     *retryManager
	limiter   *hostLimiter
	metrics   *Metrics
	logger    *slog.Logger
}

// NewCollyFetcher configures the base collector from cfg.
func NewCollyFetcher(cfg *config.Config, metrics *Metrics, logger *slog.Logger) *CollyFetcher {
	if logger == nil {
		logger = slog.Default()
	}

	collector := colly.NewCollector(
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)
	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	collector.WithTransport(newTransport(cfg))

	if cfg.RandomDelay > 0 {
		if err := collector.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: cfg.Parallelism,
			RandomDelay: cfg.RandomDelay,
		}); err != nil {
			logger.Warn("configure random delay", slog.Any("error", err))
		}
	}

	return &CollyFetcher{
		cfg:       cfg,
		collector: collector,
		retry:     newRetryManager(cfg, metrics, logger),
		limiter:   newHostLimiter(cfg.RequestsPerSecond),
		metrics:   metrics,
		logger:    logger,
	}
}

// WithTransport replaces the HTTP transport of every later fetch.
func (f *CollyFetcher) WithTransport(rt http.RoundTripper) {
	f.collector.WithTransport(rt)
}

// Retries reports how many retry attempts were made.
func (f *CollyFetcher) Retries() int {
	return f.retry.TotalRetries()
}

// Fetch returns the body of target, retrying transient failures.
func (f *CollyFetcher) Fetch(ctx context.Context, target string) (string, error) {
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

func (f *CollyFetcher) fetchOnce(ctx context.Context, target string) (string, error) {
	c := f.collector.Clone()

	var (
		body   []byte
		status int
		reqErr error
	)

	c.OnRequest(func(r *colly.Request) {
		if reqCtx, ok := r.Ctx.GetAny("ctx").(context.Context); ok && reqCtx.Err() != nil {
			r.Abort()
			return
		}
		r.Ctx.Put("start", time.Now())
		f.metrics.IncRequest("started")
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = append([]byte(nil), r.Body...)
		if start, ok := r.Request.Ctx.GetAny("start").(time.Time); ok {
			f.metrics.ObserveDuration(time.Since(start))
		}
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		reqErr = err
	})

	collyCtx := colly.NewContext()
	collyCtx.Put("ctx", ctx)

	err := c.Request(http.MethodGet, target, nil, collyCtx, nil)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}
	if err == nil {
		err = reqErr
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
	return string(body), nil
}
