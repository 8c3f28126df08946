// Package resolver discovers the identifiers a matched title carries in the
// other catalog partitions.
package resolver

import (
	"context"
	"log/slog"
	"strings"

	"eshopscout/cache"
	"eshopscout/catalog"
	"eshopscout/matcher"
	"eshopscout/models"
)

type Options struct {
	MinScore       int // identity threshold for name-variant matches
	NativeMinScore int // threshold for native-script matches
	MaxWords       int // word count of the "first N words" variant
}

// Resolver maps a title to per-partition identifiers. Resolution never
// fails: partitions it cannot resolve are simply absent from the result.
type Resolver struct {
	sources   map[models.RegionTag][]catalog.Source
	scorer    *matcher.Scorer
	opts      Options
	overrides []Override
	native    map[models.RegionTag][]Transliteration
	cache     *cache.ResultCache[map[models.RegionTag]string]
	logger    *slog.Logger
}

func New(sources []catalog.Source, scorer *matcher.Scorer, opts Options, overrides []Override,
	native map[models.RegionTag][]Transliteration, c *cache.ResultCache[map[models.RegionTag]string], logger *slog.Logger) *Resolver {
	byTag := make(map[models.RegionTag][]catalog.Source)
	for _, src := range sources {
		byTag[src.Partition()] = append(byTag[src.Partition()], src)
	}
	return &Resolver{
		sources:   byTag,
		scorer:    scorer,
		opts:      opts,
		overrides: overrides,
		native:    native,
		cache:     c,
		logger:    logger,
	}
}

// Resolve returns identifiers for title keyed by partition. Partitions
// already present in known keep their identifier and are not searched.
func (r *Resolver) Resolve(ctx context.Context, title string, known map[models.RegionTag]string) map[models.RegionTag]string {
	key := strings.ToLower(strings.TrimSpace(title))
	if r.cache != nil {
		if cached, ok := r.cache.Get(ctx, key); ok {
			return withKnown(cached, known)
		}
	}

	ids := withKnown(nil, known)

	for _, o := range r.overrides {
		if !strings.Contains(key, o.Match) {
			continue
		}
		for tag, id := range o.IDs {
			if _, done := ids[tag]; !done {
				ids[tag] = id
			}
		}
		r.logger.Debug("Applied identifier override", "title", title, "match", o.Match)
		break
	}

	variants := matcher.NameVariants(title, r.opts.MaxWords)
	for _, tag := range models.Partitions {
		if _, done := ids[tag]; done {
			continue
		}
		if id, ok := r.searchPartition(ctx, tag, title, variants); ok {
			ids[tag] = id
			continue
		}
		if id, ok := r.searchNative(ctx, tag, key); ok {
			ids[tag] = id
		}
	}

	r.logger.Info("🔎 Regional identifiers resolved", "title", title, "ids", ids)
	if r.cache != nil {
		r.cache.Set(ctx, key, ids)
	}
	return ids
}

// searchPartition tries each name variant in turn and stops at the first
// result scoring at or above the identity threshold.
func (r *Resolver) searchPartition(ctx context.Context, tag models.RegionTag, title string, variants []string) (string, bool) {
	for _, variant := range variants {
		entries := r.query(ctx, tag, variant)
		if len(entries) == 0 {
			continue
		}
		// score against the full title so a short variant cannot match a
		// different game in the series
		if best, ok := matcher.Best(r.scorer.ScoreAll(title, entries), r.opts.MinScore); ok {
			return best.Entry.RegionalID, true
		}
	}
	return "", false
}

// searchNative retries with the native-script franchise name and accepts
// the lower catalog-search threshold, since latin and native titles share
// no words.
func (r *Resolver) searchNative(ctx context.Context, tag models.RegionTag, key string) (string, bool) {
	for _, tr := range r.native[tag] {
		if !strings.Contains(key, tr.Phrase) {
			continue
		}
		entries := r.query(ctx, tag, tr.Native)
		if best, ok := matcher.Best(r.scorer.ScoreAll(tr.Native, entries), r.opts.NativeMinScore); ok {
			return best.Entry.RegionalID, true
		}
	}
	return "", false
}

func (r *Resolver) query(ctx context.Context, tag models.RegionTag, q string) []models.CatalogEntry {
	var entries []models.CatalogEntry
	for _, src := range r.sources[tag] {
		found, err := src.Search(ctx, q)
		if err != nil {
			r.logger.Debug("Partition search failed", "partition", tag, "source", src.Name(), "query", q, "error", err)
			continue
		}
		entries = append(entries, found...)
	}
	return entries
}

// withKnown overlays the known partition ids on resolved. The home marker is
// not a partition and is left out.
func withKnown(resolved, known map[models.RegionTag]string) map[models.RegionTag]string {
	out := make(map[models.RegionTag]string, len(resolved)+len(known))
	for tag, id := range resolved {
		out[tag] = id
	}
	for tag, id := range known {
		if tag == models.RegionTagHome || id == "" {
			continue
		}
		out[tag] = id
	}
	return out
}
