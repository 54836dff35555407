package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Active int     `json:"active"`
	Avg    float64 `json:"avg"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "stats", payload{Active: 3, Avg: 87.5}, time.Minute))

	got, err := GetTyped[payload](ctx, mc, "stats")
	require.NoError(t, err)
	assert.Equal(t, payload{Active: 3, Avg: 87.5}, got)

	var s string
	require.NoError(t, mc.Set(ctx, "raw", "hello", 0))
	require.NoError(t, mc.Get(ctx, "raw", &s))
	assert.Equal(t, "hello", s)
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	var p payload
	assert.ErrorIs(t, mc.Get(ctx, "absent", &p), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "short", payload{Active: 1}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	assert.ErrorIs(t, mc.Get(ctx, "short", &p), ErrCacheMiss)

	ok, err := mc.Exists(ctx, "short")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheEvictsWhenFull(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", "1", 0))
	require.NoError(t, mc.Set(ctx, "b", "2", 0))
	require.NoError(t, mc.Set(ctx, "c", "3", 0))

	assert.Equal(t, 2, mc.Len())
	ok, _ := mc.Exists(ctx, "c")
	assert.True(t, ok)
}

func TestMemoryCacheDelete(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	require.NoError(t, mc.Set(ctx, "k", "v", 0))
	require.NoError(t, mc.Delete(ctx, "k"))
	ok, _ := mc.Exists(ctx, "k")
	assert.False(t, ok)
	require.NoError(t, mc.Close())
	require.NoError(t, mc.Close())
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "signals:stats:all", GenerateKeyWithParams("signals", "stats", "all"))
	assert.Equal(t, "signals:latest", GenerateKey("signals", "latest"))
}

func TestRedisConfigDefaults(t *testing.T) {
	cfg, err := newRedisConfig([]RedisOption{WithRedisAddr("", 6380), WithRedisPrefix("")})
	require.NoError(t, err)
	assert.Equal(t, "localhost:6380", cfg.clientOptions().Addr)
	assert.Equal(t, "chartsignal", cfg.Prefix)
	assert.Equal(t, 5*time.Second, cfg.PoolTimeout)

	_, err = newRedisConfig([]RedisOption{WithRedisPool(1, 4, time.Second)})
	assert.Error(t, err)
}

func TestLayeredConfigIgnoresZeroL1(t *testing.T) {
	cfg := newLayeredConfig([]LayeredOption{WithL1(0, 0)})
	assert.Equal(t, 1000, cfg.MemoryMaxSize)
	assert.Equal(t, 5*time.Second, cfg.MemoryTTL)

	cfg = newLayeredConfig([]LayeredOption{WithL1(50, time.Second)})
	assert.Equal(t, 50, cfg.MemoryMaxSize)
	assert.Equal(t, time.Second, cfg.MemoryTTL)
}
