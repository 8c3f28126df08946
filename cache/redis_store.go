package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"eshopscout/errs"
)

// RedisStore shares cache entries between instances via Redis key expiry.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects and pings the server.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errs.Wrapf(err, "redis ping %s", addr)
	}
	return &RedisStore{rdb: rdb}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	pipe := r.rdb.Pipeline()
	get := pipe.Get(ctx, key)
	pttl := pipe.PTTL(ctx, key)
	_, _ = pipe.Exec(ctx)

	val, err := get.Bytes()
	// redis.Nil indicates the key doesn't exist or has expired.
	if err == redis.Nil {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, errs.Wrapf(err, "redis get %s", key)
	}
	// -1 (no expiry) and -2 (gone since GET) come back as negative durations
	remaining, err := pttl.Result()
	if err != nil || remaining < 0 {
		remaining = 0
	}
	return val, remaining, true, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return errs.Wrapf(err, "redis set %s", key)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, key string) error {
	if err := r.rdb.Del(ctx, key).Err(); err != nil {
		return errs.Wrapf(err, "redis del %s", key)
	}
	return nil
}

func (r *RedisStore) Close() error { return r.rdb.Close() }
