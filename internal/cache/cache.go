package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"badgekit/internal/config"

	"go.uber.org/zap"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// ===============================
// CACHE INTERFACE
// ===============================

// Cache stores opaque byte values under string keys
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Health(ctx context.Context) error
	Close() error
}

// New builds the cache selected by cfg.Provider
func New(cfg *config.CacheConfig, logger *zap.Logger) (Cache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cache config cannot be nil")
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case "redis":
		logger.Info("Using Redis cache")
		return NewRedisCache(cfg, logger)
	case "memory", "":
		logger.Info("Using in-memory cache", zap.Int("max_keys", cfg.MaxKeys))
		return NewMemoryCache(cfg.MaxKeys, cfg.TTL, logger), nil
	case "none":
		logger.Info("Badge read cache disabled")
		return Noop{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// Noop is a Cache that stores nothing
type Noop struct{}

func (Noop) Get(context.Context, string) ([]byte, error) { return nil, ErrMiss }
func (Noop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Noop) Delete(context.Context, string) error { return nil }
func (Noop) Health(context.Context) error { return nil }
func (Noop) Close() error { return nil }
