package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the crawler.
type Metrics struct {
	Registry         *prometheus.Registry
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
	RetriesTotal     prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
	LotsTotal        prometheus.Counter
	LotsDroppedTotal *prometheus.CounterVec
	AuctionsTotal    *prometheus.CounterVec
	CheckpointsTotal *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auctions_requests_total",
			Help: "Total HTTP requests issued by the fetcher.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auctions_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auctions_retries_total",
			Help: "Total number of retry attempts.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auctions_errors_total",
			Help: "Total number of fetch and extract errors by type.",
		},
		[]string{"error_type"},
	)
	lots := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auctions_lots_total",
			Help: "Total number of sold lots recorded.",
		},
	)
	lotsDropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auctions_lots_dropped_total",
			Help: "Lots skipped, by reason.",
		},
		[]string{"reason"},
	)
	auctions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auctions_processed_total",
			Help: "Auctions processed by the detail stage, by outcome.",
		},
		[]string{"outcome"},
	)
	checkpoints := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auctions_checkpoints_total",
			Help: "Snapshot saves, by result.",
		},
		[]string{"result"},
	)

	registry.MustRegister(requests, requestDuration, retries, errorsTotal, lots, lotsDropped, auctions, checkpoints)

	return &Metrics{
		Registry:         registry,
		RequestsTotal:    requests,
		RequestDuration:  requestDuration,
		RetriesTotal:     retries,
		ErrorsTotal:      errorsTotal,
		LotsTotal:        lots,
		LotsDroppedTotal: lotsDropped,
		AuctionsTotal:    auctions,
		CheckpointsTotal: checkpoints,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// AddLots counts recorded lots.
func (m *Metrics) AddLots(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LotsTotal.Add(float64(n))
}

// IncLotDropped counts a skipped lot.
func (m *Metrics) IncLotDropped(reason string) {
	if m == nil {
		return
	}
	m.LotsDroppedTotal.WithLabelValues(reason).Inc()
}

// IncAuction counts a processed auction.
func (m *Metrics) IncAuction(outcome string) {
	if m == nil {
		return
	}
	m.AuctionsTotal.WithLabelValues(outcome).Inc()
}

// IncCheckpoint counts a snapshot save.
func (m *Metrics) IncCheckpoint(result string) {
	if m == nil {
		return
	}
	m.CheckpointsTotal.WithLabelValues(result).Inc()
}
