package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/brickmint/rws/pkg/config"
)

// Cache is a small get/set/delete surface over Redis, degrading to an
// in-process map when no Redis address is configured. Invalidation happens
// after DB commits, not transactionally; readers may briefly observe stale
// values.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// New returns a Redis-backed cache when an address is configured, otherwise
// the in-memory fallback.
func New(cfg config.CacheConfig, logger zerolog.Logger) Cache {
	if cfg.RedisAddr == "" {
		logger.Info().Msg("No Redis address configured, using in-memory cache")
		return NewMemoryCache()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unreachable, falling back to in-memory cache")
		return NewMemoryCache()
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis cache")
	return &redisCache{client: client, logger: logger}
}

type redisCache struct {
	client *redis.Client
	logger zerolog.Logger
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("Cache get failed")
		}
		return nil, false
	}
	return val, true
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache set failed")
	}
}

func (c *redisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Cache delete failed")
	}
}
