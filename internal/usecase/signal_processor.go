package usecase

import (
	"context"
	"fmt"
	"time"

	"ChartSignal/internal/domain/models"
	drepo "ChartSignal/internal/domain/repository"
)

// Backend names accepted by SignalProcessor.
const (
	BackendNone       = "none"
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
)

// SignalProcessor routes emitted records to the configured downstream backend.
type SignalProcessor struct {
	pub     drepo.Publisher
	archive drepo.Archive
	metrics drepo.Metrics
	backend string
}

// NewSignalProcessor creates a new SignalProcessor instance.
func NewSignalProcessor(
	pub drepo.Publisher,
	archive drepo.Archive,
	metrics drepo.Metrics,
	backend string,
) (*SignalProcessor, error) {
	switch backend {
	case "", BackendNone:
		backend = BackendNone
	case BackendKafka:
		if pub == nil {
			return nil, fmt.Errorf("backend %s requires a publisher", backend)
		}
	case BackendClickHouse:
		if archive == nil {
			return nil, fmt.Errorf("backend %s requires an archive", backend)
		}
	default:
		return nil, fmt.Errorf("unknown backend: %s", backend)
	}
	return &SignalProcessor{
		pub:     pub,
		archive: archive,
		metrics: metrics,
		backend: backend,
	}, nil
}

// Backend returns the configured backend name.
func (p *SignalProcessor) Backend() string { return p.backend }

// Process routes a single record to the configured backend.
func (p *SignalProcessor) Process(ctx context.Context, rec models.SignalRecord) error {
	start := time.Now()
	var err error

	switch p.backend {
	case BackendKafka:
		err = p.pub.Publish(ctx, rec)
	case BackendClickHouse:
		err = p.archive.Store(ctx, rec)
	default:
		return nil
	}

	if err != nil {
		p.metrics.RecordError("process")
		return fmt.Errorf("process signal: %w", err)
	}
	p.metrics.RecordLatency("process", time.Since(start).Seconds())
	return nil
}

// ProcessBatch routes multiple records in one call.
func (p *SignalProcessor) ProcessBatch(ctx context.Context, recs []models.SignalRecord) error {
	if len(recs) == 0 {
		return nil
	}

	start := time.Now()
	var err error

	switch p.backend {
	case BackendKafka:
		err = p.pub.PublishBatch(ctx, recs)
	case BackendClickHouse:
		err = p.archive.StoreBatch(ctx, recs)
	default:
		return nil
	}

	if err != nil {
		p.metrics.RecordError("process_batch")
		return fmt.Errorf("process batch: %w", err)
	}
	p.metrics.RecordLatency("process_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *SignalProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.archive != nil {
		_ = p.archive.Close()
	}
}
