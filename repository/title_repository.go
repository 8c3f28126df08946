package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"eshopscout/errs"
	"eshopscout/models"
)

// PopularTitle is a matched title with its lookup counter.
type PopularTitle struct {
	Title        *models.MatchedTitle `json:"title"`
	LookupCount  int                  `json:"lookup_count"`
	LastLookedUp time.Time            `json:"last_looked_up"`
}

type TitleRepository struct {
	db *sql.DB
}

func NewTitleRepository(db *sql.DB) *TitleRepository {
	return &TitleRepository{db: db}
}

// RecordLookup upserts title and bumps its lookup counter.
func (r *TitleRepository) RecordLookup(ctx context.Context, title *models.MatchedTitle) error {
	ids, err := json.Marshal(title.RegionalIDs)
	if err != nil {
		return errs.Wrap(err, "failed to encode regional ids")
	}

	query := `
		INSERT INTO matched_titles (home_id, title, home_partition, regional_ids, lookup_count, last_looked_up, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $5, $5)
		ON CONFLICT (home_id) DO UPDATE
		SET title = EXCLUDED.title,
			home_partition = EXCLUDED.home_partition,
			regional_ids = matched_titles.regional_ids || EXCLUDED.regional_ids,
			lookup_count = matched_titles.lookup_count + 1,
			last_looked_up = EXCLUDED.last_looked_up,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, title.HomeID(), title.CanonicalTitle, string(title.HomePartition), ids, time.Now())
	if err != nil {
		return errs.Wrap(err, "failed to record title lookup")
	}
	return nil
}

// FindByID returns the title whose home id, or any resolved regional id,
// equals id.
func (r *TitleRepository) FindByID(ctx context.Context, id string) (*models.MatchedTitle, error) {
	query := `
		SELECT home_id, title, COALESCE(home_partition, ''), regional_ids
		FROM matched_titles
		WHERE home_id = $1
			OR EXISTS (SELECT 1 FROM jsonb_each_text(regional_ids) AS ids(k, v) WHERE ids.v = $1)
		ORDER BY (home_id = $1) DESC, lookup_count DESC
		LIMIT 1
	`

	var (
		homeID, name, partition string
		raw                     []byte
	)
	err := r.db.QueryRowContext(ctx, query, id).Scan(&homeID, &name, &partition, &raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.Mark(errs.Newf("title %s not found", id), errs.ErrNotFound)
		}
		return nil, errs.Wrap(err, "failed to get title")
	}

	return decodeTitle(homeID, name, partition, raw)
}

// MostLookedUp returns the most requested titles, most recent first on ties.
func (r *TitleRepository) MostLookedUp(ctx context.Context, limit int) ([]PopularTitle, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT home_id, title, COALESCE(home_partition, ''), regional_ids, lookup_count, last_looked_up
		FROM matched_titles
		WHERE last_looked_up IS NOT NULL
		ORDER BY lookup_count DESC, last_looked_up DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, errs.Wrap(err, "failed to get popular titles")
	}
	defer rows.Close()

	var titles []PopularTitle
	for rows.Next() {
		var (
			homeID, name, partition string
			raw                     []byte
			p                       PopularTitle
		)
		if err := rows.Scan(&homeID, &name, &partition, &raw, &p.LookupCount, &p.LastLookedUp); err != nil {
			return nil, errs.Wrap(err, "failed to scan title")
		}
		if p.Title, err = decodeTitle(homeID, name, partition, raw); err != nil {
			return nil, err
		}
		titles = append(titles, p)
	}
	return titles, rows.Err()
}

func decodeTitle(homeID, name, partition string, raw []byte) (*models.MatchedTitle, error) {
	ids := map[models.RegionTag]string{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &ids); err != nil {
			return nil, errs.Wrap(err, "failed to decode regional ids")
		}
	}
	ids[models.RegionTagHome] = homeID
	return &models.MatchedTitle{
		CanonicalTitle: name,
		RegionalIDs:    ids,
		HomePartition:  models.RegionTag(partition),
	}, nil
}
