package cache

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/cockroachdb/pebble"

	"eshopscout/errs"
)

type pebbleEnvelope struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Data      json.RawMessage `json:"data"`
}

// PebbleStore keeps cache entries in a local Pebble database. Expired entries
// are removed lazily on read.
type PebbleStore struct {
	db  *pebble.DB
	now func() time.Time
}

func NewPebbleStore(dir string) (*PebbleStore, error) {
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, errs.Wrap(err, "pebble open")
	}
	return &PebbleStore{db: db, now: time.Now}, nil
}

func (p *PebbleStore) Get(_ context.Context, key string) ([]byte, time.Duration, bool, error) {
	v, closer, err := p.db.Get([]byte(key))
	if errs.Is(err, pebble.ErrNotFound) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, errs.Wrapf(err, "pebble get %s", key)
	}
	var env pebbleEnvelope
	decodeErr := json.Unmarshal(v, &env)
	_ = closer.Close()
	if decodeErr != nil {
		return nil, 0, false, errs.Wrapf(decodeErr, "decode pebble entry %s", key)
	}

	if env.ExpiresAt.IsZero() {
		return env.Data, 0, true, nil
	}
	remaining := env.ExpiresAt.Sub(p.now())
	if remaining <= 0 {
		_ = p.db.Delete([]byte(key), pebble.NoSync)
		return nil, 0, false, nil
	}
	return env.Data, remaining, true, nil
}

func (p *PebbleStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	env := pebbleEnvelope{Data: value}
	if ttl > 0 {
		env.ExpiresAt = p.now().Add(ttl)
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return errs.Wrapf(err, "encode pebble entry %s", key)
	}
	if err := p.db.Set([]byte(key), raw, pebble.Sync); err != nil {
		return errs.Wrapf(err, "pebble set %s", key)
	}
	return nil
}

func (p *PebbleStore) Delete(_ context.Context, key string) error {
	if err := p.db.Delete([]byte(key), pebble.Sync); err != nil {
		return errs.Wrapf(err, "pebble delete %s", key)
	}
	return nil
}

func (p *PebbleStore) Close() error { return p.db.Close() }
