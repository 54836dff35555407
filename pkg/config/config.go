package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level     string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format    string `yaml:"format" default:"console" validate:"oneof=console json"`
		Output    string `yaml:"output" default:"stdout"`
		Collector struct {
			Enabled   bool          `yaml:"enabled"`
			Topic     string        `yaml:"topic" default:"chartsignal.logs"`
			Interval  time.Duration `yaml:"interval" default:"30s"`
			Threshold int           `yaml:"threshold" default:"100"`
		} `yaml:"collector"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"15s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"15s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"1s"`
		CORS            bool          `yaml:"cors" default:"true"`
		AllowedOrigins  []string      `yaml:"allowed_origins"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Capture struct {
		AutoStart     bool          `yaml:"auto_start"`
		Interval      time.Duration `yaml:"interval" default:"1500ms" validate:"gte=0"`
		Cooldown      time.Duration `yaml:"cooldown" default:"3s" validate:"gte=0"`
		MinCoverage   float64       `yaml:"min_coverage" default:"0.05" validate:"gte=0,lte=1"`
		AnalysisDelay time.Duration `yaml:"analysis_delay" validate:"gte=0"`
		SinkTimeout   time.Duration `yaml:"sink_timeout" default:"2s"`
		Retention     int           `yaml:"retention" default:"10" validate:"gte=1,lte=1000"`
		Asset         string        `yaml:"asset" default:"EUR/USD" validate:"required"`
		Product       string        `yaml:"product" default:"ChartSignal"`
		Timeframe     string        `yaml:"timeframe" default:"1min"`
		Expiration    time.Duration `yaml:"expiration" default:"3m" validate:"gt=0"`
	} `yaml:"capture"`
	Camera struct {
		Type           string            `yaml:"type" default:"static" validate:"oneof=static snapshot websocket"`
		Path           string            `yaml:"path"`
		URL            string            `yaml:"url"`
		Headers        map[string]string `yaml:"headers"`
		OpenTimeout    time.Duration     `yaml:"open_timeout" default:"10s"`
		MaxBytes       int64             `yaml:"max_bytes" default:"8388608"`
		ReconnectDelay time.Duration     `yaml:"reconnect_delay" default:"2s"`
		PingInterval   time.Duration     `yaml:"ping_interval" default:"30s"`
		MaxFrameAge    time.Duration     `yaml:"max_frame_age" default:"5s"`
	} `yaml:"camera"`
	Heuristic struct {
		Stride         int `yaml:"stride" default:"4" validate:"gte=1"`
		IntensityFloor int `yaml:"intensity_floor" default:"100" validate:"gte=0,lte=255"`
	} `yaml:"heuristic"`
	Decision struct {
		MinGreenRatio    float64 `yaml:"min_green_ratio" default:"0.1" validate:"gte=0,lte=1"`
		MinRedRatio      float64 `yaml:"min_red_ratio" default:"0.1" validate:"gte=0,lte=1"`
		MinTrendStrength float64 `yaml:"min_trend_strength" default:"0.15" validate:"gte=0,lte=1"`
		ConfidenceMin    int     `yaml:"confidence_min" default:"80" validate:"gte=0,lte=100"`
		ConfidenceMax    int     `yaml:"confidence_max" default:"95" validate:"gtefield=ConfidenceMin,lte=100"`
		Jitter           float64 `yaml:"jitter" default:"3" validate:"gte=0"`
		Seed             int64   `yaml:"seed"`
	} `yaml:"decision"`
	Backend struct {
		Type        string        `yaml:"type" default:"none" validate:"oneof=none kafka clickhouse"`
		BufferSize  int           `yaml:"buffer_size" default:"1000" validate:"gte=1"`
		RetryWindow time.Duration `yaml:"retry_window" default:"30s"`
		FlushBatch  int           `yaml:"flush_batch" default:"100" validate:"gte=1"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"chartsignal.signals"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		Producer     struct {
			MaxAttempts     int           `yaml:"max_attempts" default:"3"`
			Linger          time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes      int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize       int           `yaml:"batch_size" default:"100"`
			WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
			Async           bool          `yaml:"async"`
			AutoCreateTopic bool          `yaml:"auto_create_topic"`
		} `yaml:"producer"`
		Consumer struct {
			Enabled     bool          `yaml:"enabled"`
			GroupID     string        `yaml:"group_id" default:"chartsignal-archiver"`
			StartOffset string        `yaml:"start_offset" default:"earliest" validate:"oneof=earliest latest"`
			Workers     int           `yaml:"workers" default:"2"`
			BufferSize  int           `yaml:"buffer_size" default:"100"`
			RetryMax    int           `yaml:"retry_max" default:"3"`
			BackoffMin  time.Duration `yaml:"backoff_min" default:"50ms"`
			BackoffMax  time.Duration `yaml:"backoff_max" default:"2s"`
			DLQTopic    string        `yaml:"dlq_topic"`
			MinBytes    int           `yaml:"min_bytes" default:"1"`
			MaxBytes    int           `yaml:"max_bytes" default:"10000000"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"chartsignal"`
		Table            string        `yaml:"table" default:"signals"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
		ConnectWait      time.Duration `yaml:"connect_wait" default:"15s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host" default:"localhost"`
		Port     int    `yaml:"port" default:"6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"chartsignal"`
	} `yaml:"redis"`
	Cache struct {
		StatsTTL    time.Duration `yaml:"stats_ttl" default:"2s"`
		SnapshotTTL time.Duration `yaml:"snapshot_ttl" default:"10m"`
		MemoryTTL   time.Duration `yaml:"memory_ttl" default:"1s"`
		MemorySize  int           `yaml:"memory_size" default:"1000"`
	} `yaml:"cache"`
	RateLimit struct {
		TriggerRPS   float64 `yaml:"trigger_rps" default:"0.5" validate:"gt=0"`
		TriggerBurst int     `yaml:"trigger_burst" default:"3" validate:"gte=1"`
	} `yaml:"rate_limit"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads .env (if present), the YAML file, and environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Default()
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("HTTP_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT: %w", err)
		}
		c.Server.Port = p
	}
	if v := os.Getenv("CAPTURE_AUTO_START"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("CAPTURE_AUTO_START: %w", err)
		}
		c.Capture.AutoStart = b
	}
	if v := os.Getenv("CAPTURE_ASSET"); v != "" {
		c.Capture.Asset = v
	}
	if v := os.Getenv("CAMERA_TYPE"); v != "" {
		c.Camera.Type = v
	}
	if v := os.Getenv("CAMERA_PATH"); v != "" {
		c.Camera.Path = v
	}
	if v := os.Getenv("CAMERA_URL"); v != "" {
		c.Camera.URL = v
	}
	if v := os.Getenv("DECISION_SEED"); v != "" {
		s, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("DECISION_SEED: %w", err)
		}
		c.Decision.Seed = s
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Redis.Password = v
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	switch c.Camera.Type {
	case "static":
		if c.Camera.Path == "" {
			return fmt.Errorf("camera.path is required for static camera")
		}
	case "snapshot", "websocket":
		if c.Camera.URL == "" {
			return fmt.Errorf("camera.url is required for %s camera", c.Camera.Type)
		}
	}
	needsKafka := c.Backend.Type == "kafka" || c.Kafka.Consumer.Enabled || c.Log.Collector.Enabled
	if needsKafka && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty")
	}
	if c.Backend.Type == "clickhouse" && !c.ClickHouse.Enabled {
		return fmt.Errorf("backend.type clickhouse requires clickhouse.enabled")
	}
	if c.Kafka.Consumer.Enabled && !c.ClickHouse.Enabled {
		return fmt.Errorf("kafka.consumer requires clickhouse.enabled to archive into")
	}
	return nil
}
