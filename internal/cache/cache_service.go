// Package cache provides Redis-backed caching for market data with
// graceful degradation: when Redis is down the bot keeps fetching
// straight from the upstream API.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"equity-trading-bot/config"
	"equity-trading-bot/internal/logging"
)

// Key formats for the cached market data types
const (
	keyQuote   = "market:quote:%s"
	keyHistory = "market:history:%s:%s:%s"
	keyNews    = "market:news:%s"
)

// CacheService wraps a Redis client with a small circuit breaker. When
// consecutive operations fail, the cache marks itself unhealthy and
// callers skip it until a later operation succeeds.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
	logger *logging.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int

	maxFailures int
}

// NewCacheService connects to Redis. A failed initial connection returns
// the service in degraded mode rather than an error.
func NewCacheService(cfg config.RedisConfig, logger *logging.Logger) (*CacheService, error) {
	if !cfg.Enabled {
		return nil, fmt.Errorf("redis is not enabled in configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	cs := &CacheService{
		client:      client,
		ttl:         ttl,
		logger:      logger.WithComponent("cache"),
		maxFailures: 3,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		cs.logger.Warn("Initial Redis connection failed, running degraded", "error", err.Error())
		return cs, nil
	}

	cs.healthy = true
	cs.logger.Info("Redis connected", "addr", cfg.Addr)
	return cs, nil
}

// IsHealthy reports whether the cache should be consulted.
func (cs *CacheService) IsHealthy() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.healthy
}

func (cs *CacheService) recordFailure() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.failureCount++
	if cs.failureCount >= cs.maxFailures && cs.healthy {
		cs.logger.Warn("Redis marked unhealthy", "failures", cs.failureCount)
		cs.healthy = false
	}
}

func (cs *CacheService) recordSuccess() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.healthy {
		cs.logger.Info("Redis recovered")
	}
	cs.healthy = true
	cs.failureCount = 0
}

// Get reads a raw value. A cache miss returns ("", false, nil).
func (cs *CacheService) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := cs.client.Get(ctx, key).Result()
	if err == redis.Nil {
		cs.recordSuccess()
		return "", false, nil
	}
	if err != nil {
		cs.recordFailure()
		return "", false, err
	}
	cs.recordSuccess()
	return val, true, nil
}

// Set writes a raw value with the configured TTL.
func (cs *CacheService) Set(ctx context.Context, key, value string) error {
	if err := cs.client.Set(ctx, key, value, cs.ttl).Err(); err != nil {
		cs.recordFailure()
		return err
	}
	cs.recordSuccess()
	return nil
}

// Close releases the underlying Redis connection.
func (cs *CacheService) Close() error {
	return cs.client.Close()
}
