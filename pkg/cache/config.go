package cache

import (
	"fmt"
	"time"

	"github.com/creasty/defaults"
	"github.com/redis/go-redis/v9"
)

// RedisConfig describes the shared L2 backend.
type RedisConfig struct {
	Host         string `default:"localhost"`
	Port         int    `default:"6379"`
	Password     string
	DB           int
	PoolSize     int           `default:"10"`
	MinIdleConns int           `default:"2"`
	PoolTimeout  time.Duration `default:"5s"`
	Prefix       string        `default:"chartsignal"`
}

type RedisOption func(*RedisConfig)

// WithRedisAddr points the client at host:port.
func WithRedisAddr(host string, port int) RedisOption {
	return func(c *RedisConfig) {
		if host != "" {
			c.Host = host
		}
		if port > 0 {
			c.Port = port
		}
	}
}

// WithRedisAuth selects the logical database and its password.
func WithRedisAuth(password string, db int) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
		c.DB = db
	}
}

func WithRedisPool(size, minIdle int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = size
		c.MinIdleConns = minIdle
		c.PoolTimeout = timeout
	}
}

// WithRedisPrefix namespaces every key so instances of different
// deployments can share one Redis.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		if prefix != "" {
			c.Prefix = prefix
		}
	}
}

func newRedisConfig(opts []RedisOption) (*RedisConfig, error) {
	cfg := &RedisConfig{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("redis defaults: %w", err)
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.PoolSize < cfg.MinIdleConns {
		return nil, fmt.Errorf("redis pool size %d below min idle %d", cfg.PoolSize, cfg.MinIdleConns)
	}
	return cfg, nil
}

func (c *RedisConfig) clientOptions() *redis.Options {
	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.Host, c.Port),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		PoolTimeout:  c.PoolTimeout,
		MinIdleConns: c.MinIdleConns,
	}
}

// MemoryConfig bounds the in-process cache.
type MemoryConfig struct {
	MaxSize         int           `default:"1000"`
	CleanupInterval time.Duration `default:"5m"`
}

type MemoryOption func(*MemoryConfig)

// WithMemoryMaxSize caps entries; the least recently read one is evicted first.
func WithMemoryMaxSize(size int) MemoryOption {
	return func(c *MemoryConfig) {
		if size > 0 {
			c.MaxSize = size
		}
	}
}

func WithMemoryCleanup(interval time.Duration) MemoryOption {
	return func(c *MemoryConfig) {
		if interval > 0 {
			c.CleanupInterval = interval
		}
	}
}

func newMemoryConfig(opts []MemoryOption) *MemoryConfig {
	cfg := &MemoryConfig{}
	_ = defaults.Set(cfg) // static tags
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// LayeredConfig sizes the L1 copy kept in front of Redis.
type LayeredConfig struct {
	MemoryMaxSize int           `default:"1000"`
	MemoryTTL     time.Duration `default:"5s"`
}

type LayeredOption func(*LayeredConfig)

// WithL1 sets the L1 capacity and how long an L1 copy may outlive a Redis update.
func WithL1(size int, ttl time.Duration) LayeredOption {
	return func(c *LayeredConfig) {
		if size > 0 {
			c.MemoryMaxSize = size
		}
		if ttl > 0 {
			c.MemoryTTL = ttl
		}
	}
}

func newLayeredConfig(opts []LayeredOption) *LayeredConfig {
	cfg := &LayeredConfig{}
	_ = defaults.Set(cfg)
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
