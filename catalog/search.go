// Package catalog searches the regional catalogs for a free-text query and
// classifies the scored candidates.
package catalog

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"eshopscout/errs"
	"eshopscout/matcher"
	"eshopscout/models"
)

// Source is one searchable catalog partition.
type Source interface {
	Name() string
	Partition() models.RegionTag
	Search(ctx context.Context, query string) ([]models.CatalogEntry, error)
}

// IDLookup finds a catalog entry by its regional identifier.
type IDLookup interface {
	LookupByID(ctx context.Context, regionalID string) (*models.CatalogEntry, error)
}

// Outcome is a classified candidate set.
type Outcome struct {
	Class      models.MatchClass
	Candidates []models.ScoredEntry
	// Fallback is the alternate query that produced the candidates, if any.
	Fallback string
}

// Best returns the winning entry of a single match.
func (o Outcome) Best() (models.ScoredEntry, bool) {
	if o.Class != models.MatchClassSingle || len(o.Candidates) == 0 {
		return models.ScoredEntry{}, false
	}
	return o.Candidates[0], true
}

type Search struct {
	sources   []Source
	scorer    *matcher.Scorer
	policy    matcher.Policy
	fallbacks map[string][]string
	logger    *slog.Logger
}

func NewSearch(sources []Source, scorer *matcher.Scorer, policy matcher.Policy, fallbacks map[string][]string, logger *slog.Logger) *Search {
	return &Search{
		sources:   sources,
		scorer:    scorer,
		policy:    policy,
		fallbacks: fallbacks,
		logger:    logger,
	}
}

// Search queries every source, scores the merged entries against query and
// classifies them. It fails with ErrUpstreamUnavailable only when no source
// could be reached.
func (s *Search) Search(ctx context.Context, query string) (Outcome, error) {
	entries, err := s.gather(ctx, query)
	if err != nil {
		return Outcome{}, err
	}

	class, candidates := s.policy.Classify(collapse(s.scorer.ScoreAll(query, entries)))
	if class != models.MatchClassNoResults {
		return Outcome{Class: class, Candidates: candidates}, nil
	}

	for _, alt := range s.fallbackQueries(query) {
		altEntries, err := s.gather(ctx, alt)
		if err != nil {
			s.logger.Warn("Fallback search failed", "query", query, "fallback", alt, "error", err)
			continue
		}
		class, candidates = s.policy.Classify(collapse(s.scorer.ScoreAll(query, altEntries)))
		if class != models.MatchClassNoResults {
			s.logger.Info("🔁 Fallback search matched", "query", query, "fallback", alt, "class", class)
			return Outcome{Class: class, Candidates: candidates, Fallback: alt}, nil
		}
	}
	return Outcome{Class: models.MatchClassNoResults}, nil
}

// gather runs query against every source concurrently. Entries keep source
// order so scoring ties break the same way every time.
func (s *Search) gather(ctx context.Context, query string) ([]models.CatalogEntry, error) {
	if len(s.sources) == 0 {
		return nil, errs.Mark(errs.New("no catalog sources configured"), errs.ErrUpstreamUnavailable)
	}

	results := make([][]models.CatalogEntry, len(s.sources))
	failures := make([]error, len(s.sources))

	var g errgroup.Group
	for i, src := range s.sources {
		i, src := i, src
		g.Go(func() error {
			entries, err := src.Search(ctx, query)
			if err != nil {
				s.logger.Warn("Catalog source failed", "source", src.Name(), "query", query, "error", err)
				failures[i] = err
				return nil
			}
			results[i] = entries
			return nil
		})
	}
	_ = g.Wait()

	var merged []models.CatalogEntry
	failed := 0
	for i := range s.sources {
		if failures[i] != nil {
			failed++
			continue
		}
		merged = append(merged, results[i]...)
	}
	if failed == len(s.sources) {
		return nil, errs.Mark(errs.Wrapf(failures[0], "all %d catalog sources failed", failed), errs.ErrUpstreamUnavailable)
	}
	return merged, nil
}

// collapse folds entries that carry the same title into one candidate, so a
// game listed in several catalogs does not compete with itself. The highest
// scoring entry wins (first on ties) and keeps the other partitions' ids.
func collapse(scored []models.ScoredEntry) []models.ScoredEntry {
	groups := make(map[string][]int, len(scored))
	var order []string
	for i, se := range scored {
		key := titleKey(se.Entry.Title)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}
	if len(order) == len(scored) {
		return scored
	}

	out := make([]models.ScoredEntry, 0, len(order))
	for _, key := range order {
		members := groups[key]
		best := scored[members[0]]
		for _, i := range members[1:] {
			if scored[i].Score > best.Score {
				best = scored[i]
			}
		}
		for _, i := range members {
			e := scored[i].Entry
			if e.Partition == "" || e.Partition == best.Entry.Partition || e.RegionalID == "" {
				continue
			}
			if best.AlsoListed == nil {
				best.AlsoListed = make(map[models.RegionTag]string)
			}
			if _, taken := best.AlsoListed[e.Partition]; !taken {
				best.AlsoListed[e.Partition] = e.RegionalID
			}
		}
		out = append(out, best)
	}
	return out
}

// titleKey ignores case, punctuation and trademark signs.
func titleKey(title string) string {
	return matcher.Normalize(matcher.StripPunctuation(title))
}

func (s *Search) fallbackQueries(query string) []string {
	normalized := matcher.Normalize(query)
	var alts []string
	seen := map[string]struct{}{}
	add := func(list []string) {
		for _, a := range list {
			key := strings.ToLower(a)
			if _, dup := seen[key]; dup || key == normalized {
				continue
			}
			seen[key] = struct{}{}
			alts = append(alts, a)
		}
	}

	if list, ok := s.fallbacks[normalized]; ok {
		add(list)
	}
	for _, w := range strings.Fields(normalized) {
		if list, ok := s.fallbacks[w]; ok {
			add(list)
		}
	}
	return alts
}
