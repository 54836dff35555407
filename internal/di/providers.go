package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"ChartSignal/internal/domain/repository"
	"ChartSignal/internal/domain/service"
	"ChartSignal/internal/handler/api"
	"ChartSignal/internal/handler/ws"
	mid "ChartSignal/internal/middleware"
	internalrepo "ChartSignal/internal/repository"
	"ChartSignal/internal/service/camera"
	apimetrics "ChartSignal/internal/service/metrics"
	"ChartSignal/internal/service/ratelimit"
	"ChartSignal/internal/services/analytics"
	"ChartSignal/internal/services/features"
	"ChartSignal/internal/usecase"
	"ChartSignal/pkg/cache"
	pkgch "ChartSignal/pkg/clickhouse"
	"ChartSignal/pkg/config"
	xhttp "ChartSignal/pkg/http"
	pkgkafka "ChartSignal/pkg/kafka"
	applogger "ChartSignal/pkg/logger"
	"ChartSignal/pkg/metrics"
	"ChartSignal/pkg/server"
	xutil "ChartSignal/pkg/util"
)

// ProvideKafkaProducer creates a Kafka producer when something needs one:
// the kafka backend, the archive consumer's upstream or the log collector.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != usecase.BackendKafka && !cfg.Log.Collector.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers...),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithDelivery(cfg.Kafka.RequiredAcks, cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithAutoCreateTopic(cfg.Kafka.Producer.AutoCreateTopic),
		pkgkafka.WithKeyOrdering(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideLogger builds the application logger and attaches the error collector.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			Service:        cfg.Capture.Product,
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.Threshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
		})
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client and ensures the archive table.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
		pkgch.WithConnectWait(cfg.ClickHouse.ConnectWait),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideArchive returns the ClickHouse archive with its schema in place, or a
// nil interface when disabled.
func ProvideArchive(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) (repository.Archive, error) {
	if ch == nil {
		return nil, nil
	}
	a := internalrepo.NewClickHouseArchive(ch, cfg.ClickHouse.Table)
	a.SetLogger(l.With("archive"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return a, nil
}

// ProvidePublisher returns the Kafka publisher, or a nil interface without a producer.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideCache returns a Redis-backed layered cache when Redis is enabled and
// an in-process cache otherwise.
func ProvideCache(cfg *config.Config, l *applogger.Logger) cache.Service {
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
			cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
			cache.WithRedisPool(10, 2, 5*time.Second),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err == nil {
			return cache.NewLayeredCache(rc, cache.WithL1(cfg.Cache.MemorySize, cfg.Cache.MemoryTTL))
		}
		l.Warn("redis unavailable, using memory cache", applogger.Error(err))
	}
	return cache.NewMemoryCache(
		cache.WithMemoryMaxSize(cfg.Cache.MemorySize),
		cache.WithMemoryCleanup(time.Minute),
	)
}

// ProvideFrameSource selects the camera implementation.
func ProvideFrameSource(cfg *config.Config, l *applogger.Logger) (repository.FrameSource, error) {
	switch cfg.Camera.Type {
	case "static":
		return camera.NewStaticFileSource(cfg.Camera.Path), nil
	case "snapshot":
		client := xhttp.NewClient(xhttp.WithTimeout(cfg.Camera.OpenTimeout))
		return camera.NewSnapshotSource(cfg.Camera.URL, client,
			camera.WithSnapshotHeaders(cfg.Camera.Headers),
			camera.WithOpenTimeout(cfg.Camera.OpenTimeout),
			camera.WithMaxSnapshotBytes(cfg.Camera.MaxBytes),
		), nil
	case "websocket":
		return camera.NewWSSource(cfg.Camera.URL, cfg.Camera.ReconnectDelay, cfg.Camera.PingInterval,
			camera.WithMaxFrameAge(cfg.Camera.MaxFrameAge),
			camera.WithMaxFrameBytes(cfg.Camera.MaxBytes),
			camera.WithWSLogger(l.With("camera")),
		), nil
	default:
		return nil, fmt.Errorf("unknown camera type: %s", cfg.Camera.Type)
	}
}

func ProvideHeuristic(cfg *config.Config) service.ChartHeuristic {
	return features.NewExtractor(
		features.WithStride(cfg.Heuristic.Stride),
		features.WithIntensityFloor(cfg.Heuristic.IntensityFloor),
	)
}

// ProvideDecider builds the scoring rule. A zero seed draws one from the clock.
func ProvideDecider(cfg *config.Config) service.SignalDecider {
	seed := cfg.Decision.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return analytics.NewDecider(analytics.DecisionConfig{
		MinGreenRatio:    cfg.Decision.MinGreenRatio,
		MinRedRatio:      cfg.Decision.MinRedRatio,
		MinTrendStrength: cfg.Decision.MinTrendStrength,
		ConfidenceMin:    cfg.Decision.ConfidenceMin,
		ConfidenceMax:    cfg.Decision.ConfidenceMax,
		Jitter:           cfg.Decision.Jitter,
	}, analytics.NewSeededSource(seed))
}

func ProvidePlanner(cfg *config.Config) service.EntryPlanner {
	return analytics.NewPlanner(cfg.Capture.Expiration)
}

func ProvideSignalStore(cfg *config.Config) repository.SignalStore {
	return internalrepo.NewMemorySignalStore(cfg.Capture.Retention)
}

// ProvideSignalProcessor creates the backend router. The publisher is always
// handed over when present so Close releases the producer.
func ProvideSignalProcessor(
	pub repository.Publisher,
	archive repository.Archive,
	m repository.Metrics,
	cfg *config.Config,
) (*usecase.SignalProcessor, error) {
	return usecase.NewSignalProcessor(pub, archive, m, cfg.Backend.Type)
}

func ProvideDispatchPipeline(
	proc *usecase.SignalProcessor,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *mid.DispatchPipeline {
	return mid.NewDispatchPipeline(proc, m,
		mid.WithBufferSize(cfg.Backend.BufferSize),
		mid.WithRetryWindow(cfg.Backend.RetryWindow),
		mid.WithFlushBatch(cfg.Backend.FlushBatch),
		mid.WithConfidenceBounds(cfg.Decision.ConfidenceMin, cfg.Decision.ConfidenceMax),
		mid.WithPipelineLogger(l.With("dispatch")),
	)
}

func ProvideSignalsUseCase(store repository.SignalStore, c cache.Service, cfg *config.Config, l *applogger.Logger) *usecase.SignalsUseCase {
	return usecase.NewSignalsUseCase(store,
		usecase.WithSignalsCache(c, cfg.Cache.StatsTTL, cfg.Cache.SnapshotTTL),
		usecase.WithSignalsLogger(l.With("signals")),
	)
}

func ProvideHistoryUseCase(archive repository.Archive) *usecase.HistoryUseCase {
	return usecase.NewHistoryUseCase(archive)
}

func ProvideHub(store repository.SignalStore, cfg *config.Config, l *applogger.Logger) *ws.Hub {
	return ws.NewHub(
		ws.WithSnapshot(store.List),
		ws.WithHubLogger(l.With("ws")),
		ws.WithAllowedOrigins(cfg.Server.AllowedOrigins),
	)
}

// ProvideCaptureController wires the pipeline and its sinks. The dispatch
// pipeline only joins when a backend is configured.
func ProvideCaptureController(
	source repository.FrameSource,
	heuristic service.ChartHeuristic,
	decider service.SignalDecider,
	planner service.EntryPlanner,
	store repository.SignalStore,
	signals *usecase.SignalsUseCase,
	hub *ws.Hub,
	pipeline *mid.DispatchPipeline,
	m repository.Metrics,
	cfg *config.Config,
	l *applogger.Logger,
) *usecase.CaptureController {
	sinks := []usecase.SignalSink{signals, hub}
	if cfg.Backend.Type != usecase.BackendNone {
		sinks = append(sinks, pipeline)
	}
	return usecase.NewCaptureController(source, heuristic, decider, planner, store,
		usecase.ControllerConfig{
			Interval:      cfg.Capture.Interval,
			Cooldown:      cfg.Capture.Cooldown,
			MinCoverage:   cfg.Capture.MinCoverage,
			AnalysisDelay: cfg.Capture.AnalysisDelay,
			SinkTimeout:   cfg.Capture.SinkTimeout,
			Asset:         cfg.Capture.Asset,
			Timeframe:     cfg.Capture.Timeframe,
			Expiration:    xutil.DurationLabel(cfg.Capture.Expiration),
		},
		usecase.WithSinks(sinks...),
		usecase.WithControllerLogger(l.With("capture")),
		usecase.WithControllerMetrics(m),
	)
}

func ProvideAPIMetrics() *apimetrics.APIMetrics {
	return apimetrics.NewAPIMetrics(prometheus.DefaultRegisterer)
}

func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.TriggerRPS, cfg.RateLimit.TriggerBurst)
}

func ProvideSignalsHandler(
	signals *usecase.SignalsUseCase,
	history *usecase.HistoryUseCase,
	m *apimetrics.APIMetrics,
	l *applogger.Logger,
) *api.SignalsEchoHandler {
	return api.NewSignalsEchoHandler(l.With("api"), signals, history, m)
}

func ProvideCaptureHandler(
	controller *usecase.CaptureController,
	limiter *ratelimit.Limiter,
	m *apimetrics.APIMetrics,
	l *applogger.Logger,
) *api.CaptureEchoHandler {
	return api.NewCaptureEchoHandler(l.With("api"), controller, limiter, m)
}

// ProvideHTTPServer assembles the echo server with every route group.
func ProvideHTTPServer(
	signals *api.SignalsEchoHandler,
	capture *api.CaptureEchoHandler,
	hub *ws.Hub,
	cfg *config.Config,
	l *applogger.Logger,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS, cfg.Server.AllowedOrigins...),
		xhttp.WithLogger(l.With("http")),
		xhttp.WithSlowRequestThreshold(cfg.Server.SlowRequest),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, prometheus.DefaultRegisterer, prometheus.DefaultGatherer))
	} else {
		opts = append(opts, xhttp.WithMetrics("", nil, nil))
	}
	return xhttp.NewServer([]xhttp.Handler{signals, capture, hub}, opts...)
}

// ProvideKafkaConsumer creates the archive loader consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerStartOffset(cfg.Kafka.Consumer.StartOffset),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
		pkgkafka.WithConsumerLogger(l.With("kafka")),
		pkgkafka.WithConsumerRegisterer(prometheus.DefaultRegisterer),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.RejectEmpty(), pkgkafka.Tracing()))
	return consumer, nil
}

// ProvideKafkaSignalsHandler archives records read back from the signals topic.
func ProvideKafkaSignalsHandler(archive repository.Archive, m repository.Metrics, cfg *config.Config) pkgkafka.MessageHandler {
	if archive == nil || !cfg.Kafka.Consumer.Enabled {
		return nil
	}
	return usecase.NewKafkaSignalsHandler(cfg.Kafka.Topic, archive, m)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	controller *usecase.CaptureController,
	pipeline *mid.DispatchPipeline,
	processor *usecase.SignalProcessor,
	consumer *pkgkafka.Consumer,
	handler pkgkafka.MessageHandler,
	ch *pkgch.Client,
	c cache.Service,
	hub *ws.Hub,
	limiter *ratelimit.Limiter,
	httpServer *xhttp.Server,
) *server.App {
	return server.New(server.Deps{
		Config:     cfg,
		Logger:     l,
		Controller: controller,
		Pipeline:   pipeline,
		Processor:  processor,
		Consumer:   consumer,
		Handler:    handler,
		ClickHouse: ch,
		Cache:      c,
		Hub:        hub,
		Limiter:    limiter,
		HTTPServer: httpServer,
	})
}
