package kafka

import (
	"errors"
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/segmentio/kafka-go"
)

// ProducerConfig is the writer setup shared by the signal publisher and the
// error log collector.
type ProducerConfig struct {
	Brokers      []string
	RequiredAcks int           `default:"-1"`
	Compression  string        `default:"gzip"`
	MaxAttempts  int           `default:"3"`
	WriteTimeout time.Duration `default:"10s"`
	ReadTimeout  time.Duration `default:"10s"`
	BatchSize    int           `default:"100"`
	BatchBytes   int           `default:"1048576"`
	Linger       time.Duration `default:"1s"`
	Async        bool

	// KeyOrdering routes equal keys to one partition, keeping a session in order.
	KeyOrdering bool

	// dev clusters only
	AutoCreateTopic bool
}

type ProducerOption func(*ProducerConfig)

func WithBrokers(brokers ...string) ProducerOption {
	return func(c *ProducerConfig) { c.Brokers = brokers }
}

// WithDelivery sets the ack level (-1 waits for all replicas) and how many
// times the writer retries a failed batch.
func WithDelivery(acks, maxAttempts int) ProducerOption {
	return func(c *ProducerConfig) {
		c.RequiredAcks = acks
		if maxAttempts > 0 {
			c.MaxAttempts = maxAttempts
		}
	}
}

// WithCompression accepts gzip, snappy, lz4 or zstd.
func WithCompression(codec string) ProducerOption {
	return func(c *ProducerConfig) {
		if codec != "" {
			c.Compression = codec
		}
	}
}

// WithBatching flushes a batch at size messages, bytes total, or after linger.
func WithBatching(size, bytes int, linger time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		if size > 0 {
			c.BatchSize = size
		}
		if bytes > 0 {
			c.BatchBytes = bytes
		}
		if linger > 0 {
			c.Linger = linger
		}
	}
}

func WithTimeouts(write, read time.Duration) ProducerOption {
	return func(c *ProducerConfig) {
		c.WriteTimeout = write
		c.ReadTimeout = read
	}
}

// WithAsync makes writes fire-and-forget; errors are only seen in metrics.
func WithAsync(async bool) ProducerOption {
	return func(c *ProducerConfig) { c.Async = async }
}

func WithKeyOrdering(on bool) ProducerOption {
	return func(c *ProducerConfig) { c.KeyOrdering = on }
}

func WithAutoCreateTopic(on bool) ProducerOption {
	return func(c *ProducerConfig) { c.AutoCreateTopic = on }
}

var codecs = map[string]kafka.Compression{
	"gzip":   kafka.Gzip,
	"snappy": kafka.Snappy,
	"lz4":    kafka.Lz4,
	"zstd":   kafka.Zstd,
}

func newProducerConfig(opts []ProducerOption) (*ProducerConfig, error) {
	cfg := &ProducerConfig{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("producer defaults: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("brokers are required")
	}
	if _, ok := codecs[cfg.Compression]; !ok {
		return nil, fmt.Errorf("unknown compression %q", cfg.Compression)
	}
	return cfg, nil
}

func (c *ProducerConfig) writer() *kafka.Writer {
	bal := kafka.Balancer(&kafka.LeastBytes{})
	if c.KeyOrdering {
		bal = &kafka.Hash{}
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(c.Brokers...),
		Balancer:               bal,
		RequiredAcks:           kafka.RequiredAcks(c.RequiredAcks),
		Compression:            codecs[c.Compression],
		MaxAttempts:            c.MaxAttempts,
		WriteTimeout:           c.WriteTimeout,
		ReadTimeout:            c.ReadTimeout,
		BatchSize:              c.BatchSize,
		BatchBytes:             int64(c.BatchBytes),
		BatchTimeout:           c.Linger,
		Async:                  c.Async,
		AllowAutoTopicCreation: c.AutoCreateTopic,
	}
}
