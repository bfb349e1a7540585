// Package cache provides the match-result cache for the answer engine.
// Three backends share one interface: Redis for multi-instance deployments,
// a bounded in-memory map as the default, and a no-op client that turns
// caching off.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client is the cache contract the engine consumes. DeleteByPrefix exists so
// a single store mutation can drop every cached match result at once.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
	Close() error
}

const redisDialTimeout = 5 * time.Second

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
	Prefix   string
}

// RedisClient caches in Redis under a namespacing key prefix.
type RedisClient struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisClient connects and pings; a dead Redis fails construction so the
// caller can fall back to the memory client.
func NewRedisClient(cfg RedisConfig) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	c := &RedisClient{rdb: rdb, prefix: cfg.Prefix}
	if c.prefix == "" {
		c.prefix = "ae:"
	}
	return c, nil
}

func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := c.rdb.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisClient) Delete(ctx context.Context, key string) error {
	if err := c.rdb.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis delete: %w", err)
	}
	return nil
}

// DeleteByPrefix scans instead of KEYS so invalidation does not stall a
// shared Redis.
func (c *RedisClient) DeleteByPrefix(ctx context.Context, prefix string) error {
	iter := c.rdb.Scan(ctx, 0, c.prefix+prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("redis delete by prefix: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}

// MemoryClient is the default backend: a mutex-guarded map with per-entry
// deadlines and size-capped eviction of the entry closest to expiry.
type MemoryClient struct {
	mu      sync.RWMutex
	items   map[string]memoryItem
	maxSize int
}

type memoryItem struct {
	value    []byte
	deadline time.Time
}

// NewMemoryClient creates an in-memory cache holding at most maxSize entries.
func NewMemoryClient(maxSize int) *MemoryClient {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryClient{items: make(map[string]memoryItem), maxSize: maxSize}
}

func (c *MemoryClient) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()

	if !ok || time.Now().After(item.deadline) {
		return nil, ErrCacheMiss
	}
	return item.value, nil
}

func (c *MemoryClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.items) >= c.maxSize {
		c.evictSoonest()
	}
	c.items[key] = memoryItem{value: value, deadline: time.Now().Add(ttl)}
	return nil
}

func (c *MemoryClient) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryClient) DeleteByPrefix(ctx context.Context, prefix string) error {
	c.mu.Lock()
	for key := range c.items {
		if strings.HasPrefix(key, prefix) {
			delete(c.items, key)
		}
	}
	c.mu.Unlock()
	return nil
}

func (c *MemoryClient) Close() error {
	return nil
}

// evictSoonest drops the entry closest to its deadline. Expired entries are
// by construction the first candidates. Caller holds the write lock.
func (c *MemoryClient) evictSoonest() {
	var victim string
	var soonest time.Time
	for key, item := range c.items {
		if victim == "" || item.deadline.Before(soonest) {
			victim, soonest = key, item.deadline
		}
	}
	if victim != "" {
		delete(c.items, victim)
	}
}

// NopClient disables caching entirely.
type NopClient struct{}

// NewNopClient creates a cache client that never stores anything.
func NewNopClient() *NopClient { return &NopClient{} }

func (NopClient) Get(ctx context.Context, key string) ([]byte, error) { return nil, ErrCacheMiss }
func (NopClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return nil
}
func (NopClient) Delete(ctx context.Context, key string) error            { return nil }
func (NopClient) DeleteByPrefix(ctx context.Context, prefix string) error { return nil }
func (NopClient) Close() error                                            { return nil }
