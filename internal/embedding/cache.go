package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hyperjump/kondate/internal/vector"
	"github.com/hyperjump/kondate/pkg/utils"
)

// Cache stores query embeddings keyed by the exact embedded text.
// Implementations never fail the caller; a broken backend behaves like a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]float64, bool)
	Set(ctx context.Context, key string, value []float64)
}

// LRUCache is an in-process cache bounded by entry count.
type LRUCache struct {
	lru *lru.Cache[string, []float64]
}

// NewLRUCache creates a cache holding at most capacity embeddings.
func NewLRUCache(capacity int) (*LRUCache, error) {
	c, err := lru.New[string, []float64](capacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &LRUCache{lru: c}, nil
}

// Get returns a copy of the cached embedding for key if present.
func (c *LRUCache) Get(_ context.Context, key string) ([]float64, bool) {
	v, ok := c.lru.Get(key)
	if !ok {
		return nil, false
	}
	return append([]float64(nil), v...), true
}

// Set stores a copy of value, evicting the least recently used entry at capacity.
func (c *LRUCache) Set(_ context.Context, key string, value []float64) {
	c.lru.Add(key, append([]float64(nil), value...))
}

// RedisCache shares embeddings between processes through Redis.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// RedisOptions configures a RedisCache.
type RedisOptions struct {
	URL    string
	Prefix string
	TTL    time.Duration
	Logger *zap.Logger
}

// NewRedisCache connects to Redis and verifies the connection with a ping.
func NewRedisCache(ctx context.Context, opts RedisOptions) (*RedisCache, error) {
	parsed, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(parsed)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger := utils.OrNop(opts.Logger)
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "kondate:emb:"
	}
	return &RedisCache{client: client, prefix: prefix, ttl: opts.TTL, logger: logger}, nil
}

func (c *RedisCache) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Get fetches the embedding for key. Errors are logged and reported as a miss.
func (c *RedisCache) Get(ctx context.Context, key string) ([]float64, bool) {
	raw, err := c.client.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		c.logger.Warn("redis cache get failed", zap.Error(err))
		return nil, false
	}
	v, err := vector.Decode(raw)
	if err != nil {
		c.logger.Warn("redis cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return v, true
}

// Set stores the embedding for key. Errors are logged and dropped.
func (c *RedisCache) Set(ctx context.Context, key string, value []float64) {
	if err := c.client.Set(ctx, c.key(key), vector.Encode(value), c.ttl).Err(); err != nil {
		c.logger.Warn("redis cache set failed", zap.Error(err))
	}
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// TieredCache checks L1 before L2 and promotes L2 hits into L1. Either tier may be nil.
type TieredCache struct {
	L1 Cache
	L2 Cache
}

// Get returns the first hit across tiers.
func (c *TieredCache) Get(ctx context.Context, key string) ([]float64, bool) {
	if c.L1 != nil {
		if v, ok := c.L1.Get(ctx, key); ok {
			return v, true
		}
	}
	if c.L2 != nil {
		if v, ok := c.L2.Get(ctx, key); ok {
			if c.L1 != nil {
				c.L1.Set(ctx, key, v)
			}
			return v, true
		}
	}
	return nil, false
}

// Set writes through to every tier.
func (c *TieredCache) Set(ctx context.Context, key string, value []float64) {
	if c.L1 != nil {
		c.L1.Set(ctx, key, value)
	}
	if c.L2 != nil {
		c.L2.Set(ctx, key, value)
	}
}
