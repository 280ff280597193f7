package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"DemandCast/internal/domain/models"
	domrepo "DemandCast/internal/domain/repository"
	applogger "DemandCast/pkg/logger"
)

// BatchSink stores validated record batches.
type BatchSink interface {
	ProcessBatch(ctx context.Context, records []*models.RawRecord) error
}

// IngestPipeline sits between the ingest consumer and the record store. It
// validates records, groups them into batches and keeps failed batches in a
// bounded buffer that is retried with backoff.
type IngestPipeline struct {
	sink       BatchSink
	metrics    domrepo.Metrics
	log        *applogger.Logger
	batchSize  int
	flushEvery time.Duration
	bufSize    int

	mu      sync.Mutex
	pending []*models.RawRecord

	retryCh chan []*models.RawRecord
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
}

type PipelineOption func(*IngestPipeline)

// WithBatchSize sets the number of records that triggers a flush.
func WithBatchSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithFlushInterval sets how often a partial batch is flushed.
func WithFlushInterval(d time.Duration) PipelineOption {
	return func(p *IngestPipeline) {
		if d > 0 {
			p.flushEvery = d
		}
	}
}

// WithBufferSize sets how many failed batches are kept for retry.
func WithBufferSize(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *IngestPipeline) { p.log = l }
}

// NewIngestPipeline creates a pipeline writing to sink.
func NewIngestPipeline(sink BatchSink, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		sink:       sink,
		metrics:    metrics,
		log:        applogger.Nop(),
		batchSize:  500,
		flushEvery: 2 * time.Second,
		bufSize:    100,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.retryCh = make(chan []*models.RawRecord, p.bufSize)
	return p
}

// Start launches the periodic flush and the retry loop. A stopped pipeline
// can be started again.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	stop, done := make(chan struct{}), make(chan struct{})
	p.stopCh, p.doneCh = stop, done
	p.mu.Unlock()

	go p.run(ctx, stop, done)
}

func (p *IngestPipeline) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.flushEvery)
	defer ticker.Stop()
	backoff := 50 * time.Millisecond

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Flush(ctx); err != nil {
				p.log.Warn("periodic flush failed", applogger.Error(err))
			}
		case batch := <-p.retryCh:
			if err := p.sink.ProcessBatch(ctx, batch); err != nil {
				p.metrics.RecordError("pipeline_retry")
				if backoff < 2*time.Second {
					backoff *= 2
				}
				select {
				case <-time.After(backoff):
				case <-stop:
					return
				}
				p.buffer(batch)
				continue
			}
			backoff = 50 * time.Millisecond
			p.log.Info("buffered batch stored", applogger.Int("records", len(batch)))
		}
	}
}

// Stop ends the background loop and flushes what is pending.
func (p *IngestPipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return p.Flush(ctx)
	}
	p.started = false
	stop, done := p.stopCh, p.doneCh
	p.mu.Unlock()

	close(stop)
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if n := len(p.retryCh); n > 0 {
		p.log.Warn("batches still buffered on stop", applogger.Int("batches", n))
	}
	return p.Flush(ctx)
}

// Process validates one ingest message and queues it. A full batch is
// flushed synchronously. Rejected messages yield models.ErrInvalidRecord.
func (p *IngestPipeline) Process(ctx context.Context, msg models.IngestRecord) error {
	rec, err := msg.ToRawRecord()
	if err != nil {
		p.metrics.RecordError("pipeline_validate")
		return fmt.Errorf("%w: %v", models.ErrInvalidRecord, err)
	}

	p.mu.Lock()
	p.pending = append(p.pending, rec)
	full := len(p.pending) >= p.batchSize
	p.mu.Unlock()

	if full {
		return p.Flush(ctx)
	}
	return nil
}

// Pending returns the number of records waiting for a flush.
func (p *IngestPipeline) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Flush writes pending records. On failure the batch is buffered for retry.
func (p *IngestPipeline) Flush(ctx context.Context) error {
	p.mu.Lock()
	batch := p.pending
	p.pending = nil
	p.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	if err := p.sink.ProcessBatch(ctx, batch); err != nil {
		p.metrics.RecordError("pipeline_process")
		p.buffer(batch)
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_flush", time.Since(start).Seconds())
	return nil
}

func (p *IngestPipeline) buffer(batch []*models.RawRecord) {
	select {
	case p.retryCh <- batch:
	default:
		p.metrics.RecordError("pipeline_buffer_full")
		p.log.Error("retry buffer full, dropping batch", applogger.Int("records", len(batch)))
	}
}

// Buffered returns the number of batches waiting for retry.
func (p *IngestPipeline) Buffered() int { return len(p.retryCh) }
