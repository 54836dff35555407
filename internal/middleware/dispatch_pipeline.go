package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"ChartSignal/internal/domain/models"
	domrepo "ChartSignal/internal/domain/repository"
	applogger "ChartSignal/pkg/logger"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, rec models.SignalRecord) error
	ProcessBatch(ctx context.Context, recs []models.SignalRecord) error
}

// DispatchPipeline sits between the capture controller and the downstream
// backend. It validates records, forwards them, and buffers them for retry
// when the backend is unavailable. Buffered records are flushed in batches.
type DispatchPipeline struct {
	proc       Proc
	metrics    domrepo.Metrics
	log        *applogger.Logger
	bufSize    int
	flushBatch int
	bufCh      chan models.SignalRecord
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    bool
	mu         sync.Mutex
	retryMax   time.Duration
	confMin    int
	confMax    int
}

type PipelineOption func(*DispatchPipeline)

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *DispatchPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithRetryWindow bounds how long a buffered record is retried before it is dropped.
func WithRetryWindow(d time.Duration) PipelineOption {
	return func(p *DispatchPipeline) {
		if d > 0 {
			p.retryMax = d
		}
	}
}

// WithConfidenceBounds overrides the accepted confidence range.
func WithConfidenceBounds(min, max int) PipelineOption {
	return func(p *DispatchPipeline) {
		if min <= max {
			p.confMin, p.confMax = min, max
		}
	}
}

// WithFlushBatch caps how many buffered records go out in one retry.
func WithFlushBatch(n int) PipelineOption {
	return func(p *DispatchPipeline) {
		if n > 0 {
			p.flushBatch = n
		}
	}
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *DispatchPipeline) {
		if l != nil {
			p.log = l
		}
	}
}

// NewDispatchPipeline creates a new pipeline.
func NewDispatchPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *DispatchPipeline {
	p := &DispatchPipeline{
		proc:       proc,
		metrics:    metrics,
		log:        applogger.Nop(),
		bufSize:    1000,
		flushBatch: 100,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		retryMax:   30 * time.Second,
		confMin:    80,
		confMax:    95,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan models.SignalRecord, p.bufSize)
	return p
}

// Start launches background flushing of buffered records.
func (p *DispatchPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go p.flush(ctx)
}

func (p *DispatchPipeline) flush(ctx context.Context) {
	defer close(p.doneCh)
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case rec := <-p.bufCh:
			p.flushBatchFrom(ctx, p.drain(rec))
		}
	}
}

// drain collects first plus whatever else is already buffered, up to flushBatch.
func (p *DispatchPipeline) drain(first models.SignalRecord) []models.SignalRecord {
	batch := []models.SignalRecord{first}
	for len(batch) < p.flushBatch {
		select {
		case rec := <-p.bufCh:
			batch = append(batch, rec)
		default:
			return batch
		}
	}
	return batch
}

func (p *DispatchPipeline) flushBatchFrom(ctx context.Context, batch []models.SignalRecord) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 50 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = p.retryMax
	err := backoff.Retry(func() error {
		select {
		case <-p.stopCh:
			return backoff.Permanent(fmt.Errorf("pipeline stopped"))
		default:
		}
		if err := p.proc.ProcessBatch(ctx, batch); err != nil {
			p.metrics.RecordError("pipeline_flush")
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		p.metrics.RecordError("pipeline_buffer_drop")
		p.log.Warn("buffered signals dropped",
			applogger.Int("count", len(batch)),
			applogger.Int64("first_id", batch[0].ID),
			applogger.Error(err),
		)
	}
}

// Stop stops the background flushing and waits for the flusher to exit.
func (p *DispatchPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.doneCh
}

// Pending returns the number of buffered records.
func (p *DispatchPipeline) Pending() int { return len(p.bufCh) }

// Deliver validates and forwards a record, buffering it on downstream errors.
func (p *DispatchPipeline) Deliver(ctx context.Context, rec models.SignalRecord) error {
	start := time.Now()
	if err := ValidateRecord(rec, p.confMin, p.confMax); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}

	if err := p.proc.Process(ctx, rec); err != nil {
		p.metrics.RecordError("pipeline_process")
		select {
		case p.bufCh <- rec:
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// ValidateRecord checks the invariants every emitted record carries.
func ValidateRecord(rec models.SignalRecord, confMin, confMax int) error {
	if rec.ID <= 0 {
		return fmt.Errorf("signal id invalid")
	}
	if rec.SessionID == "" {
		return fmt.Errorf("session empty")
	}
	if rec.Action != models.ActionCall && rec.Action != models.ActionPut {
		return fmt.Errorf("action invalid: %q", rec.Action)
	}
	if rec.Confidence < confMin || rec.Confidence > confMax {
		return fmt.Errorf("confidence out of range: %d", rec.Confidence)
	}
	if rec.CreatedAt.IsZero() {
		return fmt.Errorf("created_at missing")
	}
	return nil
}
