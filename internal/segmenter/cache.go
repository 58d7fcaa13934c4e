package segmenter

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/morfseg/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/morfseg/pkg/resilience"
)

const keyPrefix = "segment:"

// Backend is the key/value surface the cache needs; *redis.Client
// satisfies it. Get reports a missing key with an error for which
// redis.IsNilError is true.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// CacheConfig tunes a Cache.
type CacheConfig struct {
	TTL time.Duration
	// Timeout bounds every backend call.
	Timeout time.Duration
	Breaker resilience.CircuitBreakerConfig
}

// Cache stores segmentation results in Redis. Backend failures degrade to
// misses; once they persist the circuit breaker stops calling the backend
// until it recovers.
type Cache struct {
	backend Backend
	cfg     CacheConfig
	group   singleflight.Group
	breaker *resilience.CircuitBreaker
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// NewCache wraps backend. m may be nil.
func NewCache(backend Backend, cfg CacheConfig, m *metrics.Metrics) *Cache {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 50 * time.Millisecond
	}
	return &Cache{
		backend: backend,
		cfg:     cfg,
		breaker: resilience.NewCircuitBreaker("segment-cache", cfg.Breaker),
		metrics: m,
		logger:  slog.Default().With("component", "segment-cache"),
	}
}

func (c *Cache) get(ctx context.Context, key string) (Result, bool) {
	var data []byte
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.WithTimeout(ctx, c.cfg.Timeout, "cache get", func(ctx context.Context) error {
			var err error
			data, err = c.backend.Get(ctx, key)
			if pkgredis.IsNilError(err) {
				data = nil
				return nil
			}
			return err
		})
	})
	if err != nil {
		c.logger.Warn("cache get failed", "key", key, "error", err)
		c.miss()
		return Result{}, false
	}
	if data == nil {
		c.miss()
		return Result{}, false
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return Result{}, false
	}
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
	return r, true
}

func (c *Cache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func (c *Cache) set(ctx context.Context, key string, r Result) {
	data, err := json.Marshal(r)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(ctx, func(ctx context.Context) error {
		return resilience.WithTimeout(ctx, c.cfg.Timeout, "cache set", func(ctx context.Context) error {
			return c.backend.Set(ctx, key, data, c.cfg.TTL)
		})
	})
	if err != nil {
		c.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for key or computes and stores
// it. Concurrent misses on one key share a single computation. The bool
// reports a cache hit.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func() (Result, error)) (Result, bool, error) {
	if r, ok := c.get(ctx, key); ok {
		return r, true, nil
	}
	val, err, _ := c.group.Do(key, func() (any, error) {
		r, err := compute()
		if err != nil {
			return Result{}, err
		}
		c.set(ctx, key, r)
		return r, nil
	})
	if err != nil {
		return Result{}, false, err
	}
	return val.(Result), false, nil
}

// Invalidate removes every cached segmentation. A successful flush also
// closes the circuit breaker.
func (c *Cache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.breaker.Reset()
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *Cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// BreakerState reports the circuit breaker state for the stats endpoint.
func (c *Cache) BreakerState() string {
	return c.breaker.GetState().String()
}

// Key derives the cache key of word under a model fingerprint and
// segmentation parameters.
func Key(fingerprint string, addCount float64, maxLen int, word string) string {
	raw := fingerprint + "\x00" + strconv.FormatFloat(addCount, 'g', -1, 64) + "\x00" + strconv.Itoa(maxLen) + "\x00" + word
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
