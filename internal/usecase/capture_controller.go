package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"ChartSignal/internal/domain/models"
	drepo "ChartSignal/internal/domain/repository"
	domsvc "ChartSignal/internal/domain/service"
	applogger "ChartSignal/pkg/logger"
	"ChartSignal/pkg/metrics"
)

// SignalSink receives every emitted record after it has been stored.
type SignalSink interface {
	Deliver(ctx context.Context, rec models.SignalRecord) error
}

// ControllerConfig tunes the capture loop.
type ControllerConfig struct {
	Interval      time.Duration // <= 0 disables the timer (manual triggers only)
	Cooldown      time.Duration
	MinCoverage   float64 // minimum green+red ratio for emission
	AnalysisDelay time.Duration
	SinkTimeout   time.Duration
	Asset         string
	Timeframe     string
	Expiration    string
}

func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Interval:    1500 * time.Millisecond,
		Cooldown:    3 * time.Second,
		MinCoverage: 0.05,
		SinkTimeout: 2 * time.Second,
		Asset:       "EUR/USD",
		Timeframe:   "1min",
		Expiration:  "3min",
	}
}

// CaptureController owns the scan lifecycle: it opens the frame source,
// runs decision cycles on a ticker or on demand, and appends results to the store.
type CaptureController struct {
	source    drepo.FrameSource
	heuristic domsvc.ChartHeuristic
	decider   domsvc.SignalDecider
	planner   domsvc.EntryPlanner
	store     drepo.SignalStore
	metrics   drepo.Metrics
	log       *applogger.Logger
	sinks     []SignalSink
	now       func() time.Time
	cfg       ControllerConfig

	lifeMu  sync.Mutex // serializes Start/Stop
	cycleMu sync.Mutex // one decision cycle at a time

	mu       sync.Mutex
	state    models.ScanState
	session  string
	gen      uint64
	lastEmit time.Time
	nextID   int64
	cancel   context.CancelFunc
	done     chan struct{}
}

type ControllerOption func(*CaptureController)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *CaptureController) {
		if now != nil {
			c.now = now
		}
	}
}

func WithSinks(sinks ...SignalSink) ControllerOption {
	return func(c *CaptureController) {
		for _, s := range sinks {
			if s != nil {
				c.sinks = append(c.sinks, s)
			}
		}
	}
}

func WithControllerLogger(l *applogger.Logger) ControllerOption {
	return func(c *CaptureController) {
		if l != nil {
			c.log = l
		}
	}
}

func WithControllerMetrics(m drepo.Metrics) ControllerOption {
	return func(c *CaptureController) {
		if m != nil {
			c.metrics = m
		}
	}
}

// NewCaptureController wires the pipeline. Zero-valued config fields fall back to defaults
// except Interval and AnalysisDelay, where zero is meaningful.
func NewCaptureController(
	source drepo.FrameSource,
	heuristic domsvc.ChartHeuristic,
	decider domsvc.SignalDecider,
	planner domsvc.EntryPlanner,
	store drepo.SignalStore,
	cfg ControllerConfig,
	opts ...ControllerOption,
) *CaptureController {
	def := DefaultControllerConfig()
	if cfg.Cooldown < 0 {
		cfg.Cooldown = 0
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = def.SinkTimeout
	}
	if cfg.Asset == "" {
		cfg.Asset = def.Asset
	}
	if cfg.Timeframe == "" {
		cfg.Timeframe = def.Timeframe
	}
	if cfg.Expiration == "" {
		cfg.Expiration = def.Expiration
	}
	c := &CaptureController{
		source:    source,
		heuristic: heuristic,
		decider:   decider,
		planner:   planner,
		store:     store,
		metrics:   metrics.Noop{},
		log:       applogger.Nop(),
		now:       time.Now,
		cfg:       cfg,
		state:     models.StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start opens the frame source and begins scanning. A failure to open leaves the
// controller idle and is reported as *models.CameraUnavailableError. Calling Start
// while already scanning is a no-op.
func (c *CaptureController) Start(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	if c.State() != models.StateIdle {
		return nil
	}

	if err := c.source.Open(ctx); err != nil {
		c.metrics.RecordError("camera_open")
		c.log.Error("camera unavailable",
			applogger.String("source", c.source.Name()),
			applogger.Error(err),
		)
		var ce *models.CameraUnavailableError
		if errors.As(err, &ce) {
			return err
		}
		return &models.CameraUnavailableError{Source: c.source.Name(), Err: err}
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	c.mu.Lock()
	c.state = models.StateScanning
	c.session = uuid.NewString()
	c.gen++
	c.cancel = cancel
	c.done = done
	session := c.session
	c.mu.Unlock()

	if c.cfg.Interval > 0 {
		go c.loop(loopCtx, done)
	} else {
		close(done)
	}

	c.log.Info("scan session started",
		applogger.String("session", session),
		applogger.String("source", c.source.Name()),
		applogger.Duration("interval_ms", c.cfg.Interval),
	)
	return nil
}

// Stop cancels the ticker and releases the camera. A cycle still in flight is
// discarded rather than appended.
func (c *CaptureController) Stop() error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	c.mu.Lock()
	if c.state == models.StateIdle {
		c.mu.Unlock()
		return nil
	}
	session := c.session
	c.state = models.StateIdle
	c.session = ""
	c.gen++
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}

	err := c.source.Close()
	c.log.Info("scan session stopped", applogger.String("session", session))
	return err
}

func (c *CaptureController) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick(ctx)
		}
	}
}

// Tick runs one decision cycle. It is driven by the ticker and by user triggers.
func (c *CaptureController) Tick(ctx context.Context) models.TickResult {
	if !c.cycleMu.TryLock() {
		return c.finish(models.OutcomeBusy, nil, time.Time{})
	}
	defer c.cycleMu.Unlock()

	start := c.now()

	c.mu.Lock()
	if c.state != models.StateScanning {
		c.mu.Unlock()
		return c.finish(models.OutcomeIdle, nil, time.Time{})
	}
	if !c.lastEmit.IsZero() && start.Sub(c.lastEmit) < c.cfg.Cooldown {
		c.mu.Unlock()
		return c.finish(models.OutcomeCooldown, nil, time.Time{})
	}
	gen, session := c.gen, c.session
	c.state = models.StateAnalyzing
	c.mu.Unlock()

	frame, err := c.source.Capture(ctx)
	if err == nil && frame == nil {
		err = models.ErrNotReady
	}
	if err != nil {
		c.resume(gen)
		if !errors.Is(err, models.ErrNotReady) {
			c.metrics.RecordError("capture")
		}
		c.log.Warn("frame capture skipped",
			applogger.String("session", session),
			applogger.Error(err),
		)
		return c.finish(models.OutcomeNotReady, nil, start)
	}

	if c.cfg.AnalysisDelay > 0 {
		t := time.NewTimer(c.cfg.AnalysisDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			c.resume(gen)
			return c.finish(models.OutcomeDiscarded, nil, start)
		case <-t.C:
		}
	}

	h := c.heuristic.Analyze(frame)
	if h.Samples == 0 || h.Coverage() < c.cfg.MinCoverage {
		c.resume(gen)
		c.log.Debug("insufficient chart colouring",
			applogger.Int("samples", h.Samples),
			applogger.Float64("coverage", h.Coverage()),
		)
		return c.finish(models.OutcomeInsufficient, nil, start)
	}

	decision := c.decider.Decide(h)
	now := c.now()
	plan := c.planner.Plan(decision.Confidence, decision.Action, now)

	c.mu.Lock()
	if c.gen != gen || c.state != models.StateAnalyzing {
		c.mu.Unlock()
		c.log.Debug("cycle discarded after stop", applogger.String("session", session))
		return c.finish(models.OutcomeDiscarded, nil, start)
	}
	c.nextID++
	rec := models.SignalRecord{
		ID:               c.nextID,
		SessionID:        session,
		Asset:            c.cfg.Asset,
		Action:           decision.Action,
		Confidence:       decision.Confidence,
		EntryPoint:       plan.EntryPoint,
		RiskLevel:        plan.RiskLevel,
		Timeframe:        c.cfg.Timeframe,
		Expiration:       c.cfg.Expiration,
		EntryDescription: plan.Description,
		EntryTiming:      plan.Timing,
		ExpiresAt:        plan.ExpiresAt,
		CreatedAt:        now,
		Rule:             decision.Rule,
		Heuristic:        h,
	}
	c.store.Append(rec)
	c.lastEmit = now
	c.state = models.StateScanning
	c.mu.Unlock()

	c.metrics.RecordSignal(string(rec.Action), rec.Confidence)
	c.log.Info("signal emitted",
		applogger.Int64("id", rec.ID),
		applogger.String("action", string(rec.Action)),
		applogger.Int("confidence", rec.Confidence),
		applogger.String("rule", string(rec.Rule)),
		applogger.Time("expires_at", rec.ExpiresAt),
	)
	c.notify(ctx, rec)
	return c.finish(models.OutcomeEmitted, &rec, start)
}

// resume returns to Scanning unless the session changed underneath the cycle.
func (c *CaptureController) resume(gen uint64) {
	c.mu.Lock()
	if c.gen == gen && c.state == models.StateAnalyzing {
		c.state = models.StateScanning
	}
	c.mu.Unlock()
}

func (c *CaptureController) finish(outcome models.TickOutcome, rec *models.SignalRecord, start time.Time) models.TickResult {
	c.metrics.RecordTick(string(outcome))
	if !start.IsZero() {
		c.metrics.RecordLatency("tick", c.now().Sub(start).Seconds())
	}
	return models.TickResult{Outcome: outcome, Record: rec}
}

func (c *CaptureController) notify(ctx context.Context, rec models.SignalRecord) {
	if len(c.sinks) == 0 {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.SinkTimeout)
	defer cancel()
	for _, s := range c.sinks {
		if err := s.Deliver(sctx, rec); err != nil {
			c.metrics.RecordError("sink")
			c.log.Warn("signal sink failed", applogger.Int64("id", rec.ID), applogger.Error(err))
		}
	}
}

// State returns the current scan state.
func (c *CaptureController) State() models.ScanState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Status is the read-only view used by the API layer.
func (c *CaptureController) Status() models.CaptureStatus {
	c.mu.Lock()
	st := models.CaptureStatus{
		State:     c.state,
		SessionID: c.session,
	}
	if !c.lastEmit.IsZero() {
		t := c.lastEmit
		st.LastEmit = &t
	}
	c.mu.Unlock()
	st.Stored = c.store.Len()
	st.Capacity = c.store.Capacity()
	return st
}

// Store exposes the record store for read-only consumers.
func (c *CaptureController) Store() drepo.SignalStore { return c.store }

// Shutdown stops scanning; ctx bounds the wait.
func (c *CaptureController) Shutdown(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- c.Stop() }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
