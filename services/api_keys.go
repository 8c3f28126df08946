package services

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"strings"

	"eshopscout/errs"
)

// KeyStore authorizes keys issued to individual bot clients. It also counts
// the request against the client's daily quota.
type KeyStore interface {
	Authorize(ctx context.Context, keyHash string) (bool, error)
}

// APIKeyService checks bot front-end keys against the configured set and,
// when present, the key store. Keys are held only as SHA-256 hashes.
type APIKeyService struct {
	hashes [][]byte
	store  KeyStore
	logger *slog.Logger
}

// NewAPIKeyService accepts plain keys or "sha256:<hex>" entries. An empty
// set and no store disables key checks.
func NewAPIKeyService(keys []string) (*APIKeyService, error) {
	s := &APIKeyService{logger: slog.Default()}
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if hexed, ok := strings.CutPrefix(k, "sha256:"); ok {
			h, err := hex.DecodeString(hexed)
			if err != nil || len(h) != sha256.Size {
				return nil, errs.Mark(errs.Newf("malformed hashed api key %q", k), errs.ErrInvalidInput)
			}
			s.hashes = append(s.hashes, h)
			continue
		}
		sum := sha256.Sum256([]byte(k))
		s.hashes = append(s.hashes, sum[:])
	}
	return s, nil
}

// WithKeyStore consults store for keys not in the configured set.
func (s *APIKeyService) WithKeyStore(store KeyStore, logger *slog.Logger) *APIKeyService {
	s.store = store
	if logger != nil {
		s.logger = logger
	}
	return s
}

// Enabled reports whether any key source is configured.
func (s *APIKeyService) Enabled() bool {
	return len(s.hashes) > 0 || s.store != nil
}

// ValidateAPIKey reports whether key matches a configured key or an active
// stored key with quota left. Store failures reject the key.
func (s *APIKeyService) ValidateAPIKey(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}
	sum := sha256.Sum256([]byte(key))
	valid := 0
	for _, h := range s.hashes {
		valid |= subtle.ConstantTimeCompare(sum[:], h)
	}
	if valid == 1 {
		return true
	}
	if s.store == nil {
		return false
	}

	ok, err := s.store.Authorize(ctx, hex.EncodeToString(sum[:]))
	if err != nil {
		s.logger.Error("API key lookup failed", "error", err)
		return false
	}
	return ok
}

// HashKey returns the "sha256:<hex>" form accepted by NewAPIKeyService.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "sha256:" + hex.EncodeToString(sum[:])
}
