package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartSignal/internal/domain/models"
	domrepo "ChartSignal/internal/domain/repository"
	"ChartSignal/internal/repository"
	"ChartSignal/pkg/cache"
)

var statsBase = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

func statsRecord(id int64, action models.Action, conf int, risk models.RiskLevel, at time.Time) models.SignalRecord {
	return models.SignalRecord{
		ID:         id,
		SessionID:  "s",
		Asset:      "EUR/USD",
		Action:     action,
		Confidence: conf,
		RiskLevel:  risk,
		Timeframe:  "1min",
		CreatedAt:  at,
	}
}

func seededStore() *repository.MemorySignalStore {
	store := repository.NewMemorySignalStore(10)
	store.Append(statsRecord(1, models.ActionCall, 91, models.RiskLow, statsBase))
	store.Append(statsRecord(2, models.ActionPut, 86, models.RiskMedium, statsBase.Add(5*time.Minute)))
	store.Append(statsRecord(3, models.ActionCall, 82, models.RiskMedium, statsBase.Add(2*time.Hour)))
	return store
}

func TestComputeStats(t *testing.T) {
	st := ComputeStats(seededStore().List())

	assert.Equal(t, 3, st.Active)
	assert.Equal(t, 86.3, st.AverageConfidence)
	assert.Equal(t, 33.3, st.HighConfidencePct)
	assert.Equal(t, 2, st.Calls)
	assert.Equal(t, 1, st.Puts)
	assert.Equal(t, 1, st.ByRisk[models.RiskLow])
	assert.Equal(t, 2, st.ByRisk[models.RiskMedium])
	require.NotNil(t, st.LastSignalAt)
	assert.True(t, st.LastSignalAt.Equal(statsBase.Add(2*time.Hour)))
}

func TestComputeStatsEmpty(t *testing.T) {
	st := ComputeStats(nil)
	assert.Zero(t, st.Active)
	assert.Zero(t, st.AverageConfidence)
	assert.Nil(t, st.LastSignalAt)
}

func TestExpectedReturn(t *testing.T) {
	assert.Equal(t, 0.80, ExpectedReturn(80))
	assert.Equal(t, 0.87, ExpectedReturn(87))
	assert.Equal(t, 0.95, ExpectedReturn(95))
	assert.Equal(t, 0.95, ExpectedReturn(99))
	assert.Equal(t, 0.70, ExpectedReturn(50))
}

func TestClipboardText(t *testing.T) {
	rec := statsRecord(1, models.ActionCall, 87, models.RiskMedium, statsBase)
	assert.Equal(t, "EUR/USD CALL 1min - Confidence: 87%", ClipboardText(rec))
}

func TestListFiltersAndDecorates(t *testing.T) {
	now := statsBase.Add(2*time.Hour + 30*time.Second)
	uc := NewSignalsUseCase(seededStore(), WithSignalsClock(func() time.Time { return now }))

	all := uc.List(domrepo.BandAll, "all", 10)
	require.Len(t, all, 3)
	assert.Equal(t, int64(3), all[0].ID)
	assert.Equal(t, "Just now", all[0].TimeAgo)
	assert.Equal(t, "2h ago", all[2].TimeAgo)
	assert.Equal(t, 0.82, all[0].ExpectedReturn)

	calls := uc.List(domrepo.BandAll, "CALL", 10)
	assert.Len(t, calls, 2)

	high := uc.List(domrepo.BandHigh, "", 10)
	require.Len(t, high, 1)
	assert.Equal(t, 91, high[0].Confidence)

	assert.Len(t, uc.List(domrepo.BandAll, "", 1), 1)
}

func TestText(t *testing.T) {
	uc := NewSignalsUseCase(seededStore())

	text, ok := uc.Text(2)
	require.True(t, ok)
	assert.Equal(t, "EUR/USD PUT 1min - Confidence: 86%", text)

	_, ok = uc.Text(99)
	assert.False(t, ok)
}

func TestStatsCachedUntilDeliver(t *testing.T) {
	ctx := context.Background()
	store := seededStore()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	uc := NewSignalsUseCase(store, WithSignalsCache(mc, time.Minute, time.Minute))

	assert.Equal(t, 3, uc.Stats(ctx).Active)

	rec := statsRecord(4, models.ActionPut, 90, models.RiskLow, statsBase.Add(3*time.Hour))
	store.Append(rec)
	assert.Equal(t, 3, uc.Stats(ctx).Active, "served from cache")

	require.NoError(t, uc.Deliver(ctx, rec))
	assert.Equal(t, 4, uc.Stats(ctx).Active)

	latest, err := cache.GetTyped[[]models.SignalRecord](ctx, mc, LatestCacheKey)
	require.NoError(t, err)
	require.Len(t, latest, 4)
	assert.Equal(t, int64(4), latest[0].ID)
}

// emittingStore appends a record and notifies the use case the first time
// List is called, as if the capture loop emitted mid-computation.
type emittingStore struct {
	*repository.MemorySignalStore
	fired bool
	emit  func()
}

func (s *emittingStore) List() []models.SignalRecord {
	recs := s.MemorySignalStore.List()
	if !s.fired {
		s.fired = true
		s.emit()
	}
	return recs
}

func TestStatsNotCachedWhenStoreChangesDuringCompute(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := &emittingStore{MemorySignalStore: seededStore()}
	uc := NewSignalsUseCase(store, WithSignalsCache(mc, time.Minute, time.Minute))
	store.emit = func() {
		rec := statsRecord(4, models.ActionPut, 90, models.RiskLow, statsBase.Add(3*time.Hour))
		store.Append(rec)
		require.NoError(t, uc.Deliver(ctx, rec))
	}

	assert.Equal(t, 3, uc.Stats(ctx).Active, "computed before the emit")
	assert.Equal(t, 4, uc.Stats(ctx).Active, "stale result was not cached")
}

func TestStatsKeyScopedPerInstance(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	a := NewSignalsUseCase(seededStore(), WithSignalsCache(mc, time.Minute, time.Minute), WithInstanceID("a"))
	b := NewSignalsUseCase(repository.NewMemorySignalStore(10), WithSignalsCache(mc, time.Minute, time.Minute), WithInstanceID("b"))

	assert.Equal(t, 3, a.Stats(ctx).Active)
	assert.Equal(t, 0, b.Stats(ctx).Active)

	_, err := cache.GetTyped[models.SignalStats](ctx, mc, cache.GenerateKeyWithParams("signals", "stats", "a"))
	assert.NoError(t, err)
}
