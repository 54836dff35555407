package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ChartSignal/internal/handler/ws"
	mid "ChartSignal/internal/middleware"
	"ChartSignal/internal/service/ratelimit"
	"ChartSignal/internal/usecase"
	"ChartSignal/pkg/cache"
	pkgch "ChartSignal/pkg/clickhouse"
	"ChartSignal/pkg/config"
	xhttp "ChartSignal/pkg/http"
	pkgkafka "ChartSignal/pkg/kafka"
	applogger "ChartSignal/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	controller *usecase.CaptureController
	pipeline   *mid.DispatchPipeline
	processor  *usecase.SignalProcessor
	consumer   *pkgkafka.Consumer
	kh         pkgkafka.MessageHandler
	chClient   *pkgch.Client
	cache      cache.Service
	hub        *ws.Hub
	limiter    *ratelimit.Limiter
	httpServer *xhttp.Server
}

// Deps groups everything App needs; optional members may be nil.
type Deps struct {
	Config     *config.Config
	Logger     *applogger.Logger
	Controller *usecase.CaptureController
	Pipeline   *mid.DispatchPipeline
	Processor  *usecase.SignalProcessor
	Consumer   *pkgkafka.Consumer
	Handler    pkgkafka.MessageHandler
	ClickHouse *pkgch.Client
	Cache      cache.Service
	Hub        *ws.Hub
	Limiter    *ratelimit.Limiter
	HTTPServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(d Deps) *App {
	l := d.Logger
	if l == nil {
		l = applogger.Nop()
	}
	return &App{
		cfg:        d.Config,
		log:        l,
		controller: d.Controller,
		pipeline:   d.Pipeline,
		processor:  d.Processor,
		consumer:   d.Consumer,
		kh:         d.Handler,
		chClient:   d.ClickHouse,
		cache:      d.Cache,
		hub:        d.Hub,
		limiter:    d.Limiter,
		httpServer: d.HTTPServer,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.start(ctx); err != nil {
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown(context.Background())
}

func (a *App) start(ctx context.Context) error {
	if a.pipeline != nil {
		a.pipeline.Start(ctx)
	}

	// Start consumer if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka archiver started", applogger.String("topic", a.kh.Topic()))
	}

	if a.limiter != nil {
		go a.sweepLimiter(ctx)
	}

	// Start HTTP server
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	if a.cfg.Capture.AutoStart {
		// camera failures leave the controller idle; the API can retry
		if err := a.controller.Start(ctx); err != nil {
			a.log.Warn("auto start failed", applogger.Error(err))
		}
	}

	a.log.Info("chartsignal started",
		applogger.String("product", a.cfg.Capture.Product),
		applogger.String("asset", a.cfg.Capture.Asset),
		applogger.String("camera", a.cfg.Camera.Type),
		applogger.String("backend", a.processor.Backend()),
		applogger.Bool("auto_start", a.cfg.Capture.AutoStart),
	)
	return nil
}

func (a *App) sweepLimiter(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := a.limiter.Sweep(10 * time.Minute); n > 0 {
				a.log.Debug("rate limiter swept", applogger.Int("keys", n))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop scanning first so no new records enter the sinks
	if err := a.controller.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("capture stop error", applogger.Error(err))
	}

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	if a.hub != nil {
		a.hub.Close()
	}

	if a.pipeline != nil {
		a.pipeline.Stop()
		if n := a.pipeline.Pending(); n > 0 {
			a.log.Warn("undelivered signals dropped", applogger.Int("pending", n))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// aggregated logs ride the producer, flush them before it closes
	a.log.RemoveCollector()

	if a.processor != nil {
		a.processor.Close()
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
