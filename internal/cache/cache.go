// Package cache stores encoded responses by key with a TTL, either in process or in Redis.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Cache stores encoded responses. Implementations are safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration)
}

type memEntry struct {
	val     []byte
	expires time.Time
}

// MemoryOption configures a Memory cache.
type MemoryOption func(*Memory)

// WithClock sets the clock used for expiry.
func WithClock(now func() time.Time) MemoryOption {
	return func(c *Memory) { c.now = now }
}

// Memory is an in-process Cache with per-entry expiry. Each instance has its own lock.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memEntry
	now     func() time.Time
}

// NewMemory creates an empty Memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	c := &Memory{entries: make(map[string]memEntry), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get implements Cache. Expired entries are removed on read.
func (c *Memory) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return nil, false
	}
	return e.val, true
}

// Set implements Cache.
func (c *Memory) Set(_ context.Context, key string, val []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memEntry{val: val, expires: c.now().Add(ttl)}
}

// Len returns the number of stored entries, expired or not.
func (c *Memory) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Redis shares responses across processes.
type Redis struct {
	client *redis.Client
	prefix string
	log    *zap.Logger
}

// NewRedis stores keys under prefix, e.g. "prospect:places:".
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		log:    zap.L().With(zap.String("component", "cache"), zap.String("prefix", prefix)),
	}
}

// Get implements Cache. Redis errors read as a miss.
func (c *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Debug("redis get failed", zap.Error(err))
		}
		return nil, false
	}
	return val, true
}

// Set implements Cache. Write failures are logged and otherwise ignored.
func (c *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, c.prefix+key, val, ttl).Err(); err != nil {
		c.log.Warn("redis set failed", zap.Error(err))
	}
}
