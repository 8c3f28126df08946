package matcher

import (
	"sort"

	"eshopscout/models"
)

// Policy decides between no match, one clear winner and an ambiguous set.
type Policy struct {
	MinScore       int
	DominanceRatio float64
	TopK           int
}

// DefaultPolicy keeps anything scoring above 50, auto-selects a winner that
// beats the runner-up by 1.5x and otherwise offers the top five.
func DefaultPolicy() Policy {
	return Policy{MinScore: 50, DominanceRatio: 1.5, TopK: 5}
}

// ScoreAll scores every entry against query, preserving input order.
func (s *Scorer) ScoreAll(query string, entries []models.CatalogEntry) []models.ScoredEntry {
	scored := make([]models.ScoredEntry, 0, len(entries))
	for _, e := range entries {
		scored = append(scored, models.ScoredEntry{
			Entry: e,
			Score: s.Score(query, e.Title, &Meta{Publisher: e.Publisher, Popularity: e.Popularity}),
		})
	}
	return scored
}

// Classify filters, sorts and classifies scored candidates. For a single match
// the returned slice holds exactly the winner; for ambiguous it holds the top K.
func (p Policy) Classify(scored []models.ScoredEntry) (models.MatchClass, []models.ScoredEntry) {
	accepted := make([]models.ScoredEntry, 0, len(scored))
	for _, s := range scored {
		if s.Score > p.MinScore {
			accepted = append(accepted, s)
		}
	}
	if len(accepted) == 0 {
		return models.MatchClassNoResults, nil
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Score > accepted[j].Score
	})

	if len(accepted) == 1 || float64(accepted[0].Score) > p.DominanceRatio*float64(accepted[1].Score) {
		return models.MatchClassSingle, accepted[:1]
	}

	k := p.TopK
	if k <= 0 || k > len(accepted) {
		k = len(accepted)
	}
	return models.MatchClassAmbiguous, accepted[:k]
}

// Best returns the highest scoring entry at or above minScore.
func Best(scored []models.ScoredEntry, minScore int) (models.ScoredEntry, bool) {
	var best models.ScoredEntry
	found := false
	for _, s := range scored {
		if s.Score < minScore {
			continue
		}
		if !found || s.Score > best.Score {
			best = s
			found = true
		}
	}
	return best, found
}
