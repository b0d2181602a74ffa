package external

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/birads-report-server/internal/domain"
)

// EmbeddingCache stores computed embedding vectors in Redis so repeated
// analyses of the same report text skip the encoder entirely.
type EmbeddingCache struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// NewEmbeddingCache creates a Redis-backed embedding cache and verifies the
// connection with a ping.
func NewEmbeddingCache(config domain.CacheConfig) (*EmbeddingCache, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	if config.PoolSize > 0 {
		opts.PoolSize = config.PoolSize
	}
	if config.PoolTimeout > 0 {
		opts.PoolTimeout = config.PoolTimeout
	}
	if config.MaxRetries > 0 {
		opts.MaxRetries = config.MaxRetries
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := config.DefaultTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	return &EmbeddingCache{
		redis:      client,
		defaultTTL: ttl,
	}, nil
}

// CachedEmbedding wraps a stored vector with expiry metadata.
type CachedEmbedding struct {
	Vector    []float64 `json:"vector"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Get retrieves a cached embedding. Corrupted or expired entries are
// deleted and reported as misses.
func (c *EmbeddingCache) Get(ctx context.Context, key string) ([]float64, bool, error) {
	val, err := c.redis.Get(ctx, c.redisKey(key)).Result()
	if err == redis.Nil {
		return nil, false, nil // Cache miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get embedding cache: %w", err)
	}

	var cached CachedEmbedding
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		// Remove corrupted cache entry
		c.redis.Del(ctx, c.redisKey(key))
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, c.redisKey(key))
		return nil, false, nil
	}

	return cached.Vector, true, nil
}

// Set stores an embedding. A zero ttl uses the cache default.
func (c *EmbeddingCache) Set(ctx context.Context, key string, vector []float64, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.defaultTTL
	}

	cached := CachedEmbedding{
		Vector:    vector,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal embedding cache entry: %w", err)
	}

	return c.redis.Set(ctx, c.redisKey(key), jsonData, ttl).Err()
}

// Ping checks if the Redis connection is alive.
func (c *EmbeddingCache) Ping(ctx context.Context) error {
	return c.redis.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *EmbeddingCache) Close() error {
	return c.redis.Close()
}

func (c *EmbeddingCache) redisKey(key string) string {
	return "embedding:" + key
}
