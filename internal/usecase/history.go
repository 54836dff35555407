package usecase

import (
	"context"
	"fmt"
	"time"

	"ChartSignal/internal/domain/models"
	domrepo "ChartSignal/internal/domain/repository"
)

// HistoryUseCase queries archived records beyond the in-memory retention.
type HistoryUseCase struct {
	archive  domrepo.Archive
	maxRange time.Duration
	maxLimit int
	timeout  time.Duration
	now      func() time.Time
}

func NewHistoryUseCase(archive domrepo.Archive) *HistoryUseCase {
	return &HistoryUseCase{
		archive:  archive,
		maxRange: 7 * 24 * time.Hour,
		maxLimit: 5000,
		timeout:  10 * time.Second,
		now:      time.Now,
	}
}

type GetHistoryParams struct {
	From  time.Time
	To    time.Time
	Limit int
}

type GetHistoryResult struct {
	From    time.Time             `json:"from"`
	To      time.Time             `json:"to"`
	Count   int                   `json:"count"`
	Signals []models.SignalRecord `json:"signals"`
}

// Enabled reports whether an archive is configured.
func (uc *HistoryUseCase) Enabled() bool { return uc.archive != nil }

// Health pings the archive.
func (uc *HistoryUseCase) Health(ctx context.Context) error {
	if uc.archive == nil {
		return models.ErrArchiveDisabled
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	return uc.archive.Health(ctx)
}

// GetHistory returns archived records in [From, To], newest first. Zero bounds
// default to the last hour ending now.
func (uc *HistoryUseCase) GetHistory(ctx context.Context, p GetHistoryParams) (*GetHistoryResult, error) {
	if uc.archive == nil {
		return nil, models.ErrArchiveDisabled
	}
	if p.To.IsZero() {
		p.To = uc.now()
	}
	if p.From.IsZero() {
		p.From = p.To.Add(-time.Hour)
	}
	if p.From.After(p.To) {
		return nil, models.ErrInvalidRange
	}
	if p.To.Sub(p.From) > uc.maxRange {
		return nil, fmt.Errorf("%w: exceeds %s", models.ErrRangeTooWide, uc.maxRange)
	}
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Limit > uc.maxLimit {
		p.Limit = uc.maxLimit
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	recs, err := uc.archive.Query(ctx, p.From, p.To, p.Limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	return &GetHistoryResult{From: p.From, To: p.To, Count: len(recs), Signals: recs}, nil
}
