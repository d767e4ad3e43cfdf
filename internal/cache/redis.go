package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"badgekit/internal/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type redisCache struct {
	client     *redis.Client
	defaultTTL time.Duration
	logger     *zap.Logger
}

// NewRedisCache connects to the Redis server named by cfg.RedisURL
func NewRedisCache(cfg *config.CacheConfig, logger *zap.Logger) (Cache, error) {
	options, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis cache initialized",
		zap.String("addr", options.Addr),
		zap.Int("db", options.DB),
	)

	return &redisCache{
		client:     client,
		defaultTTL: cfg.TTL,
		logger:     logger,
	}, nil
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, nil
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *redisCache) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
