package cache

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"eshopscout/config"
	"eshopscout/errs"
)

// Store persists serialized cache entries with a TTL. Get also returns the
// entry's remaining lifetime, zero when the store does not know it.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, time.Duration, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// OpenStore returns the backing store selected by cfg.Backend, or nil for
// memory-only caching.
func OpenStore(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "memory":
		return nil, nil
	case "pebble":
		logger.Info("Using pebble cache store", "dir", cfg.PebbleDir)
		return NewPebbleStore(cfg.PebbleDir)
	case "redis":
		logger.Info("Using redis cache store", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, errs.Newf("unknown cache backend %q", cfg.Backend)
	}
}
