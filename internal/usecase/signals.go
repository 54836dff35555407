package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ChartSignal/internal/domain/models"
	domrepo "ChartSignal/internal/domain/repository"
	"ChartSignal/pkg/cache"
	applogger "ChartSignal/pkg/logger"
	xutil "ChartSignal/pkg/util"
)

// LatestCacheKey holds the snapshot shared with other instances through the
// Redis backend. Stats are per instance since each one owns its store.
var LatestCacheKey = cache.GenerateKey("signals", "latest")

// SignalsUseCase serves read-side views of the signal store: filtered lists,
// statistics and clipboard text. It also acts as a sink that refreshes the
// shared snapshot whenever a record is emitted.
type SignalsUseCase struct {
	store       domrepo.SignalStore
	cache       cache.Service
	log         *applogger.Logger
	now         func() time.Time
	statsTTL    time.Duration
	snapshotTTL time.Duration
	statsKey    string

	// bumped on every Deliver; a Stats result computed across a bump is not cached
	generation atomic.Uint64
}

type SignalsOption func(*SignalsUseCase)

// WithSignalsCache enables caching of stats and the latest snapshot.
func WithSignalsCache(c cache.Service, statsTTL, snapshotTTL time.Duration) SignalsOption {
	return func(u *SignalsUseCase) {
		u.cache = c
		if statsTTL > 0 {
			u.statsTTL = statsTTL
		}
		if snapshotTTL > 0 {
			u.snapshotTTL = snapshotTTL
		}
	}
}

func WithSignalsClock(now func() time.Time) SignalsOption {
	return func(u *SignalsUseCase) {
		if now != nil {
			u.now = now
		}
	}
}

// WithInstanceID scopes the stats cache key. Defaults to a random ID.
func WithInstanceID(id string) SignalsOption {
	return func(u *SignalsUseCase) {
		if id != "" {
			u.statsKey = cache.GenerateKeyWithParams("signals", "stats", id)
		}
	}
}

func WithSignalsLogger(l *applogger.Logger) SignalsOption {
	return func(u *SignalsUseCase) {
		if l != nil {
			u.log = l
		}
	}
}

func NewSignalsUseCase(store domrepo.SignalStore, opts ...SignalsOption) *SignalsUseCase {
	u := &SignalsUseCase{
		store:       store,
		log:         applogger.Nop(),
		now:         time.Now,
		statsTTL:    2 * time.Second,
		snapshotTTL: 10 * time.Minute,
		statsKey:    cache.GenerateKeyWithParams("signals", "stats", uuid.NewString()),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// List returns store records newest first, filtered by band and action.
func (u *SignalsUseCase) List(band domrepo.ConfidenceBand, action string, limit int) []models.SignalView {
	recs := domrepo.FilterRecords(u.store.List(), band, action, limit)
	now := u.now()
	out := make([]models.SignalView, len(recs))
	for i, r := range recs {
		out[i] = u.view(r, now)
	}
	return out
}

func (u *SignalsUseCase) view(r models.SignalRecord, now time.Time) models.SignalView {
	return models.SignalView{
		SignalRecord:   r,
		TimeAgo:        xutil.TimeAgo(r.CreatedAt, now),
		ExpectedReturn: ExpectedReturn(r.Confidence),
		Text:           ClipboardText(r),
	}
}

// Text returns the clipboard line for a stored record.
func (u *SignalsUseCase) Text(id int64) (string, bool) {
	r, ok := u.store.Get(id)
	if !ok {
		return "", false
	}
	return ClipboardText(r), true
}

// Stats aggregates the records currently held. Results are cached briefly.
func (u *SignalsUseCase) Stats(ctx context.Context) models.SignalStats {
	if u.cache != nil {
		st, err := cache.GetTyped[models.SignalStats](ctx, u.cache, u.statsKey)
		if err == nil {
			return st
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			u.log.Warn("stats cache read failed", applogger.Error(err))
		}
	}
	gen := u.generation.Load()
	st := ComputeStats(u.store.List())
	if u.cache != nil && u.generation.Load() == gen {
		if err := u.cache.Set(ctx, u.statsKey, st, u.statsTTL); err != nil {
			u.log.Warn("stats cache write failed", applogger.Error(err))
		}
	}
	return st
}

// Deliver refreshes the shared snapshot and drops cached stats.
func (u *SignalsUseCase) Deliver(ctx context.Context, _ models.SignalRecord) error {
	u.generation.Add(1)
	if u.cache == nil {
		return nil
	}
	if err := u.cache.Delete(ctx, u.statsKey); err != nil {
		return fmt.Errorf("invalidate stats: %w", err)
	}
	if err := u.cache.Set(ctx, LatestCacheKey, u.store.List(), u.snapshotTTL); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// ComputeStats aggregates a record list.
func ComputeStats(recs []models.SignalRecord) models.SignalStats {
	st := models.SignalStats{
		Active: len(recs),
		ByRisk: map[models.RiskLevel]int{},
	}
	if len(recs) == 0 {
		return st
	}
	var sum, high int
	var last time.Time
	for _, r := range recs {
		sum += r.Confidence
		if domrepo.BandHigh.Contains(r.Confidence) {
			high++
		}
		switch r.Action {
		case models.ActionCall:
			st.Calls++
		case models.ActionPut:
			st.Puts++
		}
		st.ByRisk[r.RiskLevel]++
		if r.CreatedAt.After(last) {
			last = r.CreatedAt
		}
	}
	st.AverageConfidence = round1(float64(sum) / float64(len(recs)))
	st.HighConfidencePct = round1(float64(high) * 100 / float64(len(recs)))
	st.LastSignalAt = &last
	return st
}

// ExpectedReturn is a payout estimate: 70% base plus one point per confidence
// point above 70, capped at 95%. It is not a forecast.
func ExpectedReturn(confidence int) float64 {
	r := 0.70 + float64(confidence-70)*0.01
	if r > 0.95 {
		r = 0.95
	}
	if r < 0.70 {
		r = 0.70
	}
	return math.Round(r*100) / 100
}

// ClipboardText renders e.g. "EUR/USD CALL 1min - Confidence: 87%".
func ClipboardText(r models.SignalRecord) string {
	return fmt.Sprintf("%s %s %s - Confidence: %d%%", r.Asset, r.Action, r.Timeframe, r.Confidence)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
