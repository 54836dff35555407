package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ChartSignal/internal/domain/models"
	"ChartSignal/internal/repository"
	"ChartSignal/internal/services/analytics"
	"ChartSignal/internal/services/features"
)

type fakeSource struct {
	mu      sync.Mutex
	openErr error
	capErr  error
	frame   *models.Frame
	block   chan struct{} // when set, Capture waits on it
	entered chan struct{}
	opened  int
	closed  int
}

func (s *fakeSource) Name() string { return "fake" }

func (s *fakeSource) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return s.openErr
	}
	s.opened++
	return nil
}

func (s *fakeSource) Capture(ctx context.Context) (*models.Frame, error) {
	s.mu.Lock()
	block, entered, f, err := s.block, s.entered, s.frame, s.capErr
	s.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f, err
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type recordingSink struct {
	mu   sync.Mutex
	recs []models.SignalRecord
}

func (s *recordingSink) Deliver(_ context.Context, rec models.SignalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func greenFrame(t *testing.T) *models.Frame {
	t.Helper()
	w, h := 20, 20
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = 10, 200, 10, 255
	}
	f, err := models.NewFrame(w, h, pix, time.Unix(0, 0))
	require.NoError(t, err)
	return f
}

func grayFrame(t *testing.T) *models.Frame {
	t.Helper()
	pix := make([]byte, 8*8*4)
	for i := range pix {
		pix[i] = 128
	}
	f, err := models.NewFrame(8, 8, pix, time.Unix(0, 0))
	require.NoError(t, err)
	return f
}

func newTestController(t *testing.T, src *fakeSource, clock *fakeClock, cfg ControllerConfig, opts ...ControllerOption) (*CaptureController, *repository.MemorySignalStore) {
	t.Helper()
	store := repository.NewMemorySignalStore(10)
	opts = append([]ControllerOption{WithClock(clock.Now)}, opts...)
	c := NewCaptureController(
		src,
		features.NewExtractor(),
		analytics.NewDecider(analytics.DefaultDecisionConfig(), analytics.FixedSource(0.5)),
		analytics.NewPlanner(3*time.Minute),
		store,
		cfg,
		opts...,
	)
	t.Cleanup(func() { _ = c.Stop() })
	return c, store
}

func manualConfig() ControllerConfig {
	cfg := DefaultControllerConfig()
	cfg.Interval = 0
	return cfg
}

func TestTickEmitsOncePerCooldownWindow(t *testing.T) {
	src := &fakeSource{frame: greenFrame(t)}
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 5, 0, time.UTC)}
	c, store := newTestController(t, src, clock, manualConfig())
	require.NoError(t, c.Start(context.Background()))

	first := c.Tick(context.Background())
	require.Equal(t, models.OutcomeEmitted, first.Outcome)
	require.NotNil(t, first.Record)

	clock.Advance(time.Second)
	second := c.Tick(context.Background())
	assert.Equal(t, models.OutcomeCooldown, second.Outcome)
	assert.Equal(t, 1, store.Len())

	clock.Advance(2 * time.Second)
	third := c.Tick(context.Background())
	assert.Equal(t, models.OutcomeEmitted, third.Outcome)
	assert.Equal(t, 2, store.Len())
	assert.Greater(t, third.Record.ID, first.Record.ID)
}

func TestEmittedRecordShape(t *testing.T) {
	src := &fakeSource{frame: greenFrame(t)}
	now := time.Date(2024, 5, 1, 10, 0, 5, 0, time.UTC)
	clock := &fakeClock{t: now}
	c, store := newTestController(t, src, clock, manualConfig())
	require.NoError(t, c.Start(context.Background()))

	res := c.Tick(context.Background())
	require.Equal(t, models.OutcomeEmitted, res.Outcome)

	rec := store.List()[0]
	assert.Equal(t, models.ActionCall, rec.Action)
	assert.Equal(t, 95, rec.Confidence)
	assert.Equal(t, models.EntryImmediate, rec.EntryPoint)
	assert.Equal(t, models.RiskLow, rec.RiskLevel)
	assert.Equal(t, "EUR/USD", rec.Asset)
	assert.Equal(t, "1min", rec.Timeframe)
	assert.Equal(t, "3min", rec.Expiration)
	assert.Equal(t, now, rec.CreatedAt)
	assert.Equal(t, now.Add(3*time.Minute), rec.ExpiresAt)
	assert.Equal(t, c.Status().SessionID, rec.SessionID)
	assert.NotEmpty(t, rec.SessionID)
	assert.Equal(t, models.StateScanning, c.State())
}

func TestStartCameraUnavailableKeepsIdle(t *testing.T) {
	src := &fakeSource{openErr: errors.New("permission denied")}
	clock := &fakeClock{t: time.Unix(100, 0)}
	c, store := newTestController(t, src, clock, manualConfig())
	store.Append(models.SignalRecord{ID: 7, Action: models.ActionPut, Confidence: 82})

	err := c.Start(context.Background())
	require.Error(t, err)

	var ce *models.CameraUnavailableError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "fake", ce.Source)
	assert.Equal(t, models.StateIdle, c.State())
	assert.Equal(t, 1, store.Len())
	assert.Equal(t, int64(7), store.List()[0].ID)

	assert.Equal(t, models.OutcomeIdle, c.Tick(context.Background()).Outcome)
}

func TestTickNotReadyIsAbsorbed(t *testing.T) {
	src := &fakeSource{capErr: models.ErrNotReady}
	clock := &fakeClock{t: time.Unix(100, 0)}
	c, store := newTestController(t, src, clock, manualConfig())
	require.NoError(t, c.Start(context.Background()))

	res := c.Tick(context.Background())
	assert.Equal(t, models.OutcomeNotReady, res.Outcome)
	assert.Equal(t, models.StateScanning, c.State())
	assert.Zero(t, store.Len())
}

func TestTickInsufficientCoverage(t *testing.T) {
	src := &fakeSource{frame: grayFrame(t)}
	clock := &fakeClock{t: time.Unix(100, 0)}
	c, store := newTestController(t, src, clock, manualConfig())
	require.NoError(t, c.Start(context.Background()))

	res := c.Tick(context.Background())
	assert.Equal(t, models.OutcomeInsufficient, res.Outcome)
	assert.Zero(t, store.Len())
	assert.Equal(t, models.StateScanning, c.State())
}

func TestStopDiscardsInFlightCycle(t *testing.T) {
	src := &fakeSource{
		frame:   greenFrame(t),
		block:   make(chan struct{}),
		entered: make(chan struct{}, 1),
	}
	clock := &fakeClock{t: time.Unix(100, 0)}
	c, store := newTestController(t, src, clock, manualConfig())
	require.NoError(t, c.Start(context.Background()))

	resCh := make(chan models.TickResult, 1)
	go func() { resCh <- c.Tick(context.Background()) }()
	<-src.entered
	assert.Equal(t, models.StateAnalyzing, c.State())

	assert.Equal(t, models.OutcomeBusy, c.Tick(context.Background()).Outcome)

	require.NoError(t, c.Stop())
	close(src.block)

	res := <-resCh
	assert.Equal(t, models.OutcomeDiscarded, res.Outcome)
	assert.Zero(t, store.Len())
	assert.Equal(t, models.StateIdle, c.State())
	assert.Equal(t, 1, src.closed)
}

func TestSinksReceiveEmittedRecords(t *testing.T) {
	src := &fakeSource{frame: greenFrame(t)}
	clock := &fakeClock{t: time.Unix(100, 0)}
	sink := &recordingSink{}
	c, _ := newTestController(t, src, clock, manualConfig(), WithSinks(sink))
	require.NoError(t, c.Start(context.Background()))

	res := c.Tick(context.Background())
	require.Equal(t, models.OutcomeEmitted, res.Outcome)

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.recs, 1)
	assert.Equal(t, res.Record.ID, sink.recs[0].ID)
}

func TestTickerDrivesCycles(t *testing.T) {
	src := &fakeSource{frame: greenFrame(t)}
	clock := &fakeClock{t: time.Unix(100, 0)}
	cfg := DefaultControllerConfig()
	cfg.Interval = 5 * time.Millisecond
	cfg.Cooldown = 0
	c, store := newTestController(t, src, clock, cfg)
	require.NoError(t, c.Start(context.Background()))

	require.Eventually(t, func() bool { return store.Len() >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, c.Stop())

	n := store.Len()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, store.Len())
}

func TestStartIsIdempotentAndRestartable(t *testing.T) {
	src := &fakeSource{frame: greenFrame(t)}
	clock := &fakeClock{t: time.Unix(100, 0)}
	c, _ := newTestController(t, src, clock, manualConfig())

	require.NoError(t, c.Start(context.Background()))
	first := c.Status().SessionID
	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, 1, src.opened)

	require.NoError(t, c.Stop())
	require.NoError(t, c.Stop())
	assert.Equal(t, models.StateIdle, c.State())

	require.NoError(t, c.Start(context.Background()))
	assert.NotEqual(t, first, c.Status().SessionID)
}
