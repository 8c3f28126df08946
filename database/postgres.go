package database

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"eshopscout/errs"
)

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dbURL string, logger *slog.Logger) (*sql.DB, error) {
	if dbURL == "" {
		return nil, errs.Mark(errs.New("DATABASE_URL is empty"), errs.ErrInvalidInput)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, errs.Wrap(err, "failed to open database")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, errs.Wrap(err, "failed to ping database")
	}

	logger.Info("Successfully connected to database")
	return db, nil
}

// CreateTables creates the necessary tables if they don't exist
func CreateTables(ctx context.Context, db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS matched_titles (
			home_id VARCHAR(32) PRIMARY KEY,
			title TEXT NOT NULL,
			home_partition VARCHAR(16),
			regional_ids JSONB NOT NULL DEFAULT '{}',
			lookup_count INTEGER NOT NULL DEFAULT 0,
			last_looked_up TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			id SERIAL PRIMARY KEY,
			key_hash VARCHAR(64) UNIQUE NOT NULL,
			key_prefix VARCHAR(8) NOT NULL,
			client VARCHAR(100) NOT NULL,
			max_daily INTEGER NOT NULL DEFAULT 0,
			daily_usage INTEGER NOT NULL DEFAULT 0,
			usage_date DATE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			last_used TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_matched_titles_popular ON matched_titles (lookup_count DESC, last_looked_up DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_client ON api_keys (client)`,
	}

	for _, query := range queries {
		if _, err := db.ExecContext(ctx, query); err != nil {
			return errs.Wrap(err, "failed to create table")
		}
	}

	return nil
}
