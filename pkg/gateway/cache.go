package gateway

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// ResponseCache stores generated text keyed by prompt so repeated dosage
// questions skip the gateway entirely.
type ResponseCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key string, text string)
}

// CacheKey derives a stable cache key from the prompt pair.
func CacheKey(systemPrompt, userPrompt string) string {
	sum := sha256.Sum256([]byte(systemPrompt + "\x00" + userPrompt))
	return fmt.Sprintf("gateway:response:%x", sum)
}

// CachedResponse is the stored cache entry with expiry metadata.
type CachedResponse struct {
	Data      string    `json:"data"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedisCache implements ResponseCache on a shared Redis instance.
type RedisCache struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisCache creates a Redis-backed response cache
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		redis: client,
		ttl:   ttl,
	}, nil
}

// Get retrieves a cached response. Misses, corrupt entries and expired
// entries all report a miss.
func (c *RedisCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.redis.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}

	var cached CachedResponse
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		c.redis.Del(ctx, key)
		return "", false
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return "", false
	}

	return cached.Data, true
}

// Set caches a response. Failures are ignored; the cache is best effort.
func (c *RedisCache) Set(ctx context.Context, key string, text string) {
	cached := CachedResponse{
		Data:      text,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(c.ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return
	}

	c.redis.Set(ctx, key, jsonData, c.ttl)
}

// Close releases the Redis connection.
func (c *RedisCache) Close() error {
	return c.redis.Close()
}

// MemoryCache implements ResponseCache with an in-process expirable LRU.
// Used when no Redis URL is configured.
type MemoryCache struct {
	lru *expirable.LRU[string, string]
}

// NewMemoryCache creates an in-process response cache
func NewMemoryCache(maxSize int, ttl time.Duration) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &MemoryCache{
		lru: expirable.NewLRU[string, string](maxSize, nil, ttl),
	}
}

// Get retrieves a cached response.
func (c *MemoryCache) Get(_ context.Context, key string) (string, bool) {
	return c.lru.Get(key)
}

// Set caches a response.
func (c *MemoryCache) Set(_ context.Context, key string, text string) {
	c.lru.Add(key, text)
}
