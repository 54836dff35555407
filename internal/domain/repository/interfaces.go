package repository

import (
	"context"
	"time"

	"ChartSignal/internal/domain/models"
)

// FrameSource wraps a live camera feed.
type FrameSource interface {
	Name() string
	Open(ctx context.Context) error // acquire the stream
	Capture(ctx context.Context) (*models.Frame, error)
	Close() error
}

// SignalStore holds the most recent records, newest first.
type SignalStore interface {
	Append(rec models.SignalRecord)
	List() []models.SignalRecord
	Get(id int64) (models.SignalRecord, bool)
	Len() int
	Capacity() int
}

type Publisher interface {
	Publish(ctx context.Context, rec models.SignalRecord) error
	PublishBatch(ctx context.Context, recs []models.SignalRecord) error
	Close() error
}

// Archive persists emitted records beyond the in-memory retention bound.
type Archive interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, rec models.SignalRecord) error
	StoreBatch(ctx context.Context, recs []models.SignalRecord) error
	Query(ctx context.Context, from, to time.Time, limit int) ([]models.SignalRecord, error)
	Health(ctx context.Context) error // ping
	Close() error
}

type Metrics interface {
	RecordSignal(action string, confidence int)
	RecordTick(outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
