// Package cache keeps TTL-bounded lookup results in memory, optionally backed
// by a persistent Store so warm entries survive restarts.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	expirable "github.com/go-pkgz/expirable-cache"

	"eshopscout/errs"
)

// Stats reports in-memory hit and miss counters.
type Stats struct {
	Hits   int
	Misses int
	Keys   int
}

// ResultCache is a typed TTL cache. Reads check memory first, then the
// backing store; a store hit is promoted into memory for no longer than the
// store entry has left.
type ResultCache[T any] struct {
	name     string
	ttl      time.Duration
	mem      expirable.Cache
	store    Store
	observer Observer
	logger   *slog.Logger
}

// Observer is told about every Get.
type Observer interface {
	CacheLookup(cache string, hit bool)
}

// New creates a cache named name. store may be nil for memory-only caching.
func New[T any](name string, ttl time.Duration, maxKeys int, store Store, logger *slog.Logger) (*ResultCache[T], error) {
	opts := []expirable.Option{expirable.TTL(ttl), expirable.LRU()}
	if maxKeys > 0 {
		opts = append(opts, expirable.MaxKeys(maxKeys))
	}
	mem, err := expirable.NewCache(opts...)
	if err != nil {
		return nil, errs.Wrapf(err, "create %s cache", name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ResultCache[T]{
		name:   name,
		ttl:    ttl,
		mem:    mem,
		store:  store,
		logger: logger.With("cache", name),
	}, nil
}

// WithObserver reports hits and misses to o.
func (c *ResultCache[T]) WithObserver(o Observer) *ResultCache[T] {
	c.observer = o
	return c
}

// Name returns the cache namespace.
func (c *ResultCache[T]) Name() string { return c.name }

// TTL returns the default entry lifetime.
func (c *ResultCache[T]) TTL() time.Duration { return c.ttl }

func (c *ResultCache[T]) storeKey(key string) string {
	return c.name + ":" + key
}

// Get returns the cached value for key. Store failures are logged and
// reported as a miss.
func (c *ResultCache[T]) Get(ctx context.Context, key string) (T, bool) {
	value, ok := c.get(ctx, key)
	if c.observer != nil {
		c.observer.CacheLookup(c.name, ok)
	}
	return value, ok
}

func (c *ResultCache[T]) get(ctx context.Context, key string) (T, bool) {
	var zero T
	if v, ok := c.mem.Get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, true
		}
	}
	if c.store == nil {
		return zero, false
	}

	raw, remaining, ok, err := c.store.Get(ctx, c.storeKey(key))
	if err != nil {
		c.logger.Warn("Cache store read failed", "key", key, "error", err)
		return zero, false
	}
	if !ok {
		return zero, false
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		c.logger.Warn("Discarding undecodable cache entry", "key", key, "error", err)
		return zero, false
	}
	ttl := c.ttl
	if remaining > 0 && remaining < ttl {
		ttl = remaining
	}
	c.mem.Set(key, value, ttl)
	return value, true
}

// Set stores value under key with the default TTL.
func (c *ResultCache[T]) Set(ctx context.Context, key string, value T) {
	c.SetWithTTL(ctx, key, value, c.ttl)
}

// SetWithTTL stores value under key for ttl.
func (c *ResultCache[T]) SetWithTTL(ctx context.Context, key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mem.Set(key, value, ttl)
	if c.store == nil {
		return
	}

	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("Cache value not serializable", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, c.storeKey(key), raw, ttl); err != nil {
		c.logger.Warn("Cache store write failed", "key", key, "error", err)
	}
}

// Invalidate drops key from memory and the store.
func (c *ResultCache[T]) Invalidate(ctx context.Context, key string) {
	c.mem.Invalidate(key)
	if c.store == nil {
		return
	}
	if err := c.store.Delete(ctx, c.storeKey(key)); err != nil {
		c.logger.Warn("Cache store delete failed", "key", key, "error", err)
	}
}

// Purge clears the in-memory entries. Stored entries expire on their own.
func (c *ResultCache[T]) Purge() {
	c.mem.Purge()
}

func (c *ResultCache[T]) Len() int {
	return c.mem.Len()
}

func (c *ResultCache[T]) Stats() Stats {
	st := c.mem.Stat()
	return Stats{Hits: st.Hits, Misses: st.Misses, Keys: c.mem.Len()}
}
