package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eshopscout/models"
)

func scored(title string, score int) models.ScoredEntry {
	return models.ScoredEntry{Entry: models.CatalogEntry{Title: title}, Score: score}
}

func titles(entries []models.ScoredEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Entry.Title
	}
	return out
}

func TestClassify(t *testing.T) {
	p := DefaultPolicy()

	tests := []struct {
		name   string
		input  []models.ScoredEntry
		class  models.MatchClass
		titles []string
	}{
		{
			name:  "nothing above threshold",
			input: []models.ScoredEntry{scored("a", 50), scored("b", 10)},
			class: models.MatchClassNoResults,
		},
		{
			name:   "single survivor",
			input:  []models.ScoredEntry{scored("a", 51), scored("b", 50)},
			class:  models.MatchClassSingle,
			titles: []string{"a"},
		},
		{
			name:   "dominant winner",
			input:  []models.ScoredEntry{scored("b", 100), scored("a", 151)},
			class:  models.MatchClassSingle,
			titles: []string{"a"},
		},
		{
			name:   "exactly 1.5x is ambiguous",
			input:  []models.ScoredEntry{scored("a", 150), scored("b", 100)},
			class:  models.MatchClassAmbiguous,
			titles: []string{"a", "b"},
		},
		{
			name: "ambiguous keeps top five stably",
			input: []models.ScoredEntry{
				scored("a", 100), scored("b", 120), scored("c", 100),
				scored("d", 90), scored("e", 100), scored("f", 80), scored("g", 70),
			},
			class:  models.MatchClassAmbiguous,
			titles: []string{"b", "a", "c", "e", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, out := p.Classify(tt.input)
			assert.Equal(t, tt.class, class)
			if tt.titles == nil {
				assert.Empty(t, out)
				return
			}
			assert.Equal(t, tt.titles, titles(out))
		})
	}
}

func TestScoreAll_PreservesOrderAndUsesMeta(t *testing.T) {
	s := NewScorer(nil)
	entries := []models.CatalogEntry{
		{Title: "Kirby Star Allies", Publisher: "Nintendo"},
		{Title: "Kirby Star Allies"},
	}

	out := s.ScoreAll("kirby", entries)
	require.Len(t, out, 2)
	assert.Equal(t, out[1].Score+FirstPartyBonus, out[0].Score)
}

func TestBest(t *testing.T) {
	_, ok := Best([]models.ScoredEntry{scored("a", 10)}, 500)
	assert.False(t, ok)

	best, ok := Best([]models.ScoredEntry{scored("a", 600), scored("b", 900), scored("c", 900)}, 500)
	require.True(t, ok)
	assert.Equal(t, "b", best.Entry.Title)
}
