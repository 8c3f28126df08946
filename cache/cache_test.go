package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eshopscout/config"
	"eshopscout/logger"
)

type entry struct {
	Title string `json:"title"`
	Price int    `json:"price"`
}

type memoryStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	expires map[string]time.Time
	failGet bool
	sets    int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string][]byte{}, expires: map[string]time.Time{}}
}

func (m *memoryStore) Get(_ context.Context, key string) ([]byte, time.Duration, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, 0, false, errors.New("store down")
	}
	v, ok := m.data[key]
	if !ok {
		return nil, 0, false, nil
	}
	exp, ok := m.expires[key]
	if !ok {
		return v, 0, true, nil
	}
	remaining := time.Until(exp)
	if remaining <= 0 {
		return nil, 0, false, nil
	}
	return v, remaining, true, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	m.data[key] = value
	if ttl > 0 {
		m.expires[key] = time.Now().Add(ttl)
	}
	return nil
}

func (m *memoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryStore) Close() error { return nil }

func TestResultCache_MemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, err := New[entry]("prices", time.Minute, 10, nil, logger.Discard())
	require.NoError(t, err)

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	c.Set(ctx, "a", entry{Title: "Metroid Dread", Price: 5999})
	got, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "Metroid Dread", got.Title)
	assert.Equal(t, 1, c.Len())

	c.Invalidate(ctx, "a")
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)

	st := c.Stats()
	assert.Equal(t, 1, st.Hits)
	assert.Equal(t, 2, st.Misses)
}

type lookupCounter struct {
	hits, misses map[string]int
}

func (l *lookupCounter) CacheLookup(cache string, hit bool) {
	if hit {
		l.hits[cache]++
		return
	}
	l.misses[cache]++
}

func TestResultCache_Observer(t *testing.T) {
	ctx := context.Background()
	obs := &lookupCounter{hits: map[string]int{}, misses: map[string]int{}}
	c, err := New[entry]("identifiers", time.Minute, 10, nil, logger.Discard())
	require.NoError(t, err)
	c.WithObserver(obs)

	c.Get(ctx, "zelda")
	c.Set(ctx, "zelda", entry{Title: "Zelda"})
	c.Get(ctx, "zelda")
	c.Get(ctx, "zelda")

	assert.Equal(t, 2, obs.hits["identifiers"])
	assert.Equal(t, 1, obs.misses["identifiers"])
}

func TestResultCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c, err := New[int]("short", time.Minute, 0, nil, logger.Discard())
	require.NoError(t, err)

	c.SetWithTTL(ctx, "k", 7, 10*time.Millisecond)
	v, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 7, v)

	time.Sleep(30 * time.Millisecond)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestResultCache_StorePromotion(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	writer, err := New[entry]("titles", time.Minute, 10, store, logger.Discard())
	require.NoError(t, err)
	writer.Set(ctx, "zelda", entry{Title: "Zelda", Price: 10})
	assert.Equal(t, 1, store.sets)
	assert.Contains(t, store.data, "titles:zelda")

	// A fresh cache over the same store sees the entry.
	reader, err := New[entry]("titles", time.Minute, 10, store, logger.Discard())
	require.NoError(t, err)
	got, ok := reader.Get(ctx, "zelda")
	require.True(t, ok)
	assert.Equal(t, 10, got.Price)
	assert.Equal(t, 1, reader.Len())
}

func TestResultCache_PromotionKeepsStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	writer, err := New[entry]("prices", time.Hour, 10, store, logger.Discard())
	require.NoError(t, err)
	writer.SetWithTTL(ctx, "1", entry{Title: "Metroid Dread", Price: 4999}, 60*time.Millisecond)

	reader, err := New[entry]("prices", time.Hour, 10, store, logger.Discard())
	require.NoError(t, err)
	_, ok := reader.Get(ctx, "1")
	require.True(t, ok)
	require.Equal(t, 1, reader.Len())

	time.Sleep(120 * time.Millisecond)
	_, ok = reader.Get(ctx, "1")
	assert.False(t, ok, "promoted entry outlived the stored one")
}

func TestResultCache_StoreFailureIsMiss(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.failGet = true

	c, err := New[entry]("titles", time.Minute, 10, store, logger.Discard())
	require.NoError(t, err)

	_, ok := c.Get(ctx, "anything")
	assert.False(t, ok)
}

func TestResultCache_UndecodableStoreEntry(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	store.data["titles:bad"] = []byte("{not json")

	c, err := New[entry]("titles", time.Minute, 10, store, logger.Discard())
	require.NoError(t, err)

	_, ok := c.Get(ctx, "bad")
	assert.False(t, ok)
}

func TestPebbleStore(t *testing.T) {
	ctx := context.Background()
	store, err := NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, _, ok, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "k", []byte(`{"a":1}`), time.Minute))
	v, remaining, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, string(v))
	assert.InDelta(t, time.Minute, remaining, float64(5*time.Second))

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, _, ok, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, "d", []byte(`1`), 0))
	_, remaining, ok, err = store.Get(ctx, "d")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, remaining)
	require.NoError(t, store.Delete(ctx, "d"))
	_, _, ok, err = store.Get(ctx, "d")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestResultCache_OverPebble(t *testing.T) {
	ctx := context.Background()
	store, err := NewPebbleStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	c, err := New[entry]("prices", time.Minute, 10, store, logger.Discard())
	require.NoError(t, err)
	c.Set(ctx, "1", entry{Title: "Splatoon 3", Price: 4999})
	c.Purge()

	got, ok := c.Get(ctx, "1")
	require.True(t, ok)
	assert.Equal(t, "Splatoon 3", got.Title)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	store, err := OpenStore(ctx, config.CacheConfig{Backend: "memory"}, logger.Discard())
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = OpenStore(ctx, config.CacheConfig{Backend: "memcached"}, logger.Discard())
	assert.Error(t, err)

	store, err = OpenStore(ctx, config.CacheConfig{Backend: "pebble", PebbleDir: t.TempDir()}, logger.Discard())
	require.NoError(t, err)
	require.NotNil(t, store)
	assert.NoError(t, store.Close())
}
