package utils

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResponseCache is the injected get-or-compute cache shared by the pipeline
// stages. A hit must be structurally identical to a fresh computation, so
// values are stored as the JSON the stage itself produced.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
}

// CacheKey builds a content-addressed key: image hash + stage id + whatever
// context parameters change the stage's output (e.g. excluded sibling names).
func CacheKey(image []byte, stage string, context ...string) string {
	h := sha256.Sum256(image)
	key := hex.EncodeToString(h[:]) + ":" + stage
	if len(context) > 0 {
		ch := sha256.Sum256([]byte(strings.Join(context, "|")))
		key += ":" + hex.EncodeToString(ch[:8])
	}
	return key
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is the default in-process implementation. Concurrent reads,
// last-writer-wins on concurrent writes.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expiresAt) {
		return "", false
	}
	return e.value, true
}

func (c *MemoryCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	c.mu.Lock()
	c.entries[key] = memoryEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// RedisCache backs the same interface with Redis when REDIS_ADDR is set, so
// multiple instances share warm vision results.
type RedisCache struct {
	rdb *redis.Client
}

func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) {
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		// Cache writes are best-effort; a miss next time just recomputes.
		slog.Warn("CACHE: redis set failed", "key", key, "error", err)
	}
}
