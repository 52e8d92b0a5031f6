// Package pipeline flattens stored auctions into rows and writes them out.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-auctions/config"
	"github.com/aluiziolira/go-scrape-auctions/models"
	"github.com/aluiziolira/go-scrape-auctions/parser"
	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	// ErrPipelineClosed is returned when Process is called after shutdown.
	ErrPipelineClosed = errors.New("pipeline: closed")
	// ErrPipelineCloseTimeout is returned when workers do not drain in time.
	ErrPipelineCloseTimeout = errors.New("pipeline: close timed out")
)

// drainTimeout bounds how long Close waits for workers.
var drainTimeout = 30 * time.Second

// Rejection reasons counted in Stats.Rejected.
const (
	RejectInvalid   = "invalid_record"
	RejectDuplicate = "duplicate_url"
)

// OutputWriter defines the interface for data output.
type OutputWriter interface {
	Write(rows []*models.ExportRow) error
	Close() error
	Validate() error
}

// Stats counts rows handed to the writer and rows turned away by reason.
type Stats struct {
	Accepted int64
	Rejected map[string]int
}

// RejectedTotal sums every rejection reason.
func (s Stats) RejectedTotal() int {
	n := 0
	for _, c := range s.Rejected {
		n += c
	}
	return n
}

// Pipeline validates rows, drops lot URLs it has already seen and writes
// the rest in batches. Rows keep their submission order only with a single
// worker.
type Pipeline struct {
	ctx       context.Context
	writer    OutputWriter
	rows      chan *models.ExportRow
	batchSize int
	seen      *lru.Cache[string, struct{}]
	workers   sync.WaitGroup

	statsMu sync.Mutex
	stats   Stats

	errMu sync.Mutex
	err   error

	stop      chan struct{}
	stopOnce  sync.Once
	closeOnce sync.Once
}

// NewPipeline builds a pipeline sized from cfg. Lot URLs are remembered for
// de-duplication up to cfg.DedupeMaxSize entries.
func NewPipeline(ctx context.Context, writer OutputWriter, cfg *config.Config) *Pipeline {
	if ctx == nil {
		ctx = context.Background()
	}
	seen, err := lru.New[string, struct{}](positive(cfg.DedupeMaxSize, 100000))
	if err != nil {
		panic(fmt.Sprintf("pipeline: dedupe cache: %v", err))
	}

	return &Pipeline{
		ctx:       ctx,
		writer:    writer,
		rows:      make(chan *models.ExportRow, positive(cfg.PipelineBufferSize, 512)),
		batchSize: positive(cfg.BatchSize, 64),
		seen:      seen,
		stats:     Stats{Rejected: make(map[string]int)},
		stop:      make(chan struct{}),
	}
}

func positive(n, fallback int) int {
	if n > 0 {
		return n
	}
	return fallback
}

// Start launches worker goroutines. It does nothing once the pipeline is stopped.
func (p *Pipeline) Start(workers int) {
	if p.stopped() {
		return
	}
	for i := 0; i < max(1, workers); i++ {
		p.workers.Add(1)
		go p.work()
	}
}

// Process queues rows for the workers. Nil rows are ignored.
func (p *Pipeline) Process(rows ...*models.ExportRow) error {
	for _, row := range rows {
		if row == nil {
			continue
		}
		if err := p.Err(); err != nil {
			return err
		}
		if err := p.send(row); err != nil {
			return err
		}
	}
	return nil
}

// Close stops accepting rows and waits up to drainTimeout for the workers
// to flush what is queued. It returns the first write error, if any.
func (p *Pipeline) Close() error {
	p.halt()
	p.closeOnce.Do(func() { close(p.rows) })

	drained := make(chan struct{})
	go func() {
		p.workers.Wait()
		close(drained)
	}()

	timer := time.NewTimer(drainTimeout)
	defer timer.Stop()
	select {
	case <-drained:
		return p.Err()
	case <-timer.C:
		return fmt.Errorf("%w after %s", ErrPipelineCloseTimeout, drainTimeout)
	}
}

// Err returns the first write error.
func (p *Pipeline) Err() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	return p.err
}

// Stats returns a copy of the counters.
func (p *Pipeline) Stats() Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	out := Stats{Accepted: p.stats.Accepted, Rejected: make(map[string]int, len(p.stats.Rejected))}
	for k, v := range p.stats.Rejected {
		out.Rejected[k] = v
	}
	return out
}

// StartMetricsReporting logs progress every interval until the pipeline stops.
func (p *Pipeline) StartMetricsReporting(logger *slog.Logger, interval time.Duration) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				st := p.Stats()
				logger.Info("export progress",
					slog.Int64("accepted", st.Accepted),
					slog.Int("rejected", st.RejectedTotal()),
					slog.Int("queued", len(p.rows)),
				)
			case <-p.stop:
				return
			}
		}
	}()
}

func (p *Pipeline) work() {
	defer p.workers.Done()

	batch := make([]*models.ExportRow, 0, p.batchSize)
	for row := range p.rows {
		if !p.admit(row) {
			continue
		}
		batch = append(batch, row)
		if len(batch) < p.batchSize {
			continue
		}
		if !p.flush(batch) {
			return
		}
		batch = batch[:0]
	}
	p.flush(batch)
}

// flush writes batch and reports whether the worker should keep going.
func (p *Pipeline) flush(batch []*models.ExportRow) bool {
	if len(batch) == 0 {
		return true
	}
	if err := p.writer.Write(batch); err != nil {
		p.fail(fmt.Errorf("write batch: %w", err))
		return false
	}
	return true
}

// admit validates row, records its lot URL and normalizes its price.
func (p *Pipeline) admit(row *models.ExportRow) bool {
	reason := ""
	switch {
	case parser.ValidateRow(row) != nil:
		reason = RejectInvalid
	default:
		if dup, _ := p.seen.ContainsOrAdd(row.LotURL, struct{}{}); dup {
			reason = RejectDuplicate
		}
	}

	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	if reason != "" {
		p.stats.Rejected[reason]++
		return false
	}
	row.Price = parser.NormalizePrice(row.Price)
	p.stats.Accepted++
	return true
}

func (p *Pipeline) send(row *models.ExportRow) (err error) {
	// a send racing Close lands on a closed channel
	defer func() {
		if recover() != nil {
			err = ErrPipelineClosed
		}
	}()

	if p.stopped() {
		return ErrPipelineClosed
	}
	select {
	case <-p.stop:
		return ErrPipelineClosed
	case <-p.ctx.Done():
		return p.ctx.Err()
	case p.rows <- row:
		return nil
	}
}

func (p *Pipeline) fail(err error) {
	p.errMu.Lock()
	if p.err == nil {
		p.err = err
	}
	p.errMu.Unlock()
	p.halt()
}

func (p *Pipeline) halt() {
	p.stopOnce.Do(func() { close(p.stop) })
}

func (p *Pipeline) stopped() bool {
	select {
	case <-p.stop:
		return true
	default:
		return false
	}
}
