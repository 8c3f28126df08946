package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"eshopscout/errs"
)

// ClientKey is an API key issued to one bot front end. The key itself is
// never stored.
type ClientKey struct {
	ID         int        `json:"id"`
	Prefix     string     `json:"prefix"`
	Client     string     `json:"client"`
	MaxDaily   int        `json:"max_daily"`
	DailyUsage int        `json:"daily_usage"`
	IsActive   bool       `json:"is_active"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsed   *time.Time `json:"last_used,omitempty"`
}

// APIKeyRepository handles client API keys
type APIKeyRepository struct {
	db *sql.DB
}

func NewAPIKeyRepository(db *sql.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// CreateAPIKey issues a key for client. maxDaily <= 0 means unlimited. The
// plain key is returned once and only its hash is kept.
func (r *APIKeyRepository) CreateAPIKey(ctx context.Context, client string, maxDaily int) (string, *ClientKey, error) {
	client = strings.TrimSpace(client)
	if client == "" {
		return "", nil, errs.Mark(errs.New("client name is required"), errs.ErrInvalidInput)
	}

	key := "esk_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	sum := sha256.Sum256([]byte(key))
	ck := &ClientKey{Prefix: key[:8], Client: client, MaxDaily: maxDaily, IsActive: true}

	query := `
		INSERT INTO api_keys (key_hash, key_prefix, client, max_daily)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query, hex.EncodeToString(sum[:]), ck.Prefix, client, maxDaily).Scan(&ck.ID, &ck.CreatedAt)
	if err != nil {
		return "", nil, errs.Wrap(err, "failed to create API key")
	}
	return key, ck, nil
}

// Authorize reports whether keyHash belongs to an active key with quota left
// today, and counts the request when it does.
func (r *APIKeyRepository) Authorize(ctx context.Context, keyHash string) (bool, error) {
	query := `
		UPDATE api_keys
		SET daily_usage = CASE WHEN usage_date = CURRENT_DATE THEN daily_usage + 1 ELSE 1 END,
			usage_date = CURRENT_DATE,
			last_used = CURRENT_TIMESTAMP
		WHERE key_hash = $1
			AND is_active
			AND (max_daily <= 0 OR usage_date IS DISTINCT FROM CURRENT_DATE OR daily_usage < max_daily)
		RETURNING id
	`

	var id int
	err := r.db.QueryRowContext(ctx, query, keyHash).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, errs.Wrap(err, "failed to authorize API key")
	}
	return true, nil
}

// DeactivateAPIKey revokes every key of client.
func (r *APIKeyRepository) DeactivateAPIKey(ctx context.Context, client string) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE api_keys SET is_active = FALSE WHERE client = $1 AND is_active`, client)
	if err != nil {
		return 0, errs.Wrap(err, "failed to deactivate API key")
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// ListAPIKeys returns the keys issued to client, newest first.
func (r *APIKeyRepository) ListAPIKeys(ctx context.Context, client string) ([]ClientKey, error) {
	query := `
		SELECT id, key_prefix, client, max_daily,
			CASE WHEN usage_date = CURRENT_DATE THEN daily_usage ELSE 0 END,
			is_active, created_at, last_used
		FROM api_keys
		WHERE client = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, client)
	if err != nil {
		return nil, errs.Wrap(err, "failed to get API keys")
	}
	defer rows.Close()

	var keys []ClientKey
	for rows.Next() {
		var k ClientKey
		var lastUsed sql.NullTime
		if err := rows.Scan(&k.ID, &k.Prefix, &k.Client, &k.MaxDaily, &k.DailyUsage, &k.IsActive, &k.CreatedAt, &lastUsed); err != nil {
			return nil, errs.Wrap(err, "failed to scan API key")
		}
		if lastUsed.Valid {
			k.LastUsed = &lastUsed.Time
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
