// Package matcher scores free-text queries against catalog titles and
// classifies scored candidate sets.
package matcher

import (
	"strings"
	"unicode/utf8"
)

// Bonus magnitudes. The ordering is what matters:
// starts-with > contains > word exact > word partial, franchise bonuses are large.
// QueryContainsBonus must not exceed WordExactBonus-WordPartialBonus, or
// appending a matching word to a short candidate could lower its score.
const (
	ExactMatchScore        = 1_000_000
	StartsWithBonus        = 1500
	ContainsBonus          = 1000
	QueryContainsBonus     = 100
	WordExactBonus         = 200
	WordPartialBonus       = 100
	AllWordsExactBonus     = 800
	MostWordsExactBonus    = 400
	AllWordsMatchedBonus   = 200
	FirstPartyBonus        = 50
	MaxPopularityBonus     = 50
	popularityBonusDivisor = 100
)

// FranchiseRule adds Bonus when every QueryWords entry occurs in the query and
// at least one CandidateWords entry occurs in the candidate title. When several
// rules match, only the largest bonus counts.
type FranchiseRule struct {
	QueryWords     []string
	CandidateWords []string
	Bonus          int
}

func (r FranchiseRule) matches(query, candidate string) bool {
	for _, w := range r.QueryWords {
		if !strings.Contains(query, w) {
			return false
		}
	}
	for _, w := range r.CandidateWords {
		if strings.Contains(candidate, w) {
			return true
		}
	}
	return false
}

// DefaultFranchiseRules covers titles whose catalog spelling differs from
// what people type (diacritics, abbreviations).
var DefaultFranchiseRules = []FranchiseRule{
	{QueryWords: []string{"mario", "kart"}, CandidateWords: []string{"mario kart"}, Bonus: 500},
	{QueryWords: []string{"zelda"}, CandidateWords: []string{"zelda"}, Bonus: 400},
	{QueryWords: []string{"pokemon"}, CandidateWords: []string{"pokémon", "pokemon"}, Bonus: 400},
	{QueryWords: []string{"pokémon"}, CandidateWords: []string{"pokémon", "pokemon"}, Bonus: 400},
	{QueryWords: []string{"smash", "bros"}, CandidateWords: []string{"smash"}, Bonus: 400},
	{QueryWords: []string{"metroid"}, CandidateWords: []string{"metroid"}, Bonus: 400},
	{QueryWords: []string{"splatoon"}, CandidateWords: []string{"splatoon"}, Bonus: 400},
}

// Meta carries optional candidate metadata used for small bonuses.
type Meta struct {
	Publisher  string
	Popularity int
}

// Scorer is a pure scoring function parameterised by its franchise table.
type Scorer struct {
	rules               []FranchiseRule
	firstPartyPublisher string
}

func NewScorer(rules []FranchiseRule) *Scorer {
	normalized := make([]FranchiseRule, len(rules))
	for i, r := range rules {
		normalized[i] = FranchiseRule{
			QueryWords:     lowerAll(r.QueryWords),
			CandidateWords: lowerAll(r.CandidateWords),
			Bonus:          r.Bonus,
		}
	}
	return &Scorer{rules: normalized, firstPartyPublisher: "nintendo"}
}

// DefaultScorer uses DefaultFranchiseRules.
func DefaultScorer() *Scorer {
	return NewScorer(DefaultFranchiseRules)
}

// Score ranks candidate against query. Higher is better and there is no cap;
// an exact match (after normalization) returns ExactMatchScore.
func (s *Scorer) Score(query, candidate string, meta *Meta) int {
	q := Normalize(query)
	c := Normalize(candidate)
	if q == c {
		return ExactMatchScore
	}

	score := 0
	if q != "" && strings.HasPrefix(c, q) {
		score += StartsWithBonus
	}
	if q != "" && strings.Contains(c, q) {
		score += ContainsBonus
	}
	if c != "" && strings.Contains(q, c) {
		score += QueryContainsBonus
	}

	queryWords := significantWords(q)
	candidateWords := significantWords(c)

	// each query word earns one bonus, for its best match in the candidate
	exactWords, matchedWords := 0, 0
	for _, qw := range queryWords {
		switch wordMatch(qw, candidateWords) {
		case WordExactBonus:
			score += WordExactBonus
			exactWords++
			matchedWords++
		case WordPartialBonus:
			score += WordPartialBonus
			matchedWords++
		}
	}

	franchise := 0
	for _, rule := range s.rules {
		if rule.Bonus > franchise && rule.matches(q, c) {
			franchise = rule.Bonus
		}
	}
	score += franchise

	n := len(queryWords)
	if n > 1 && exactWords == n {
		score += AllWordsExactBonus
	}
	if n > 0 && exactWords >= max(1, n-1) {
		score += MostWordsExactBonus
	}
	if n > 1 && matchedWords == n {
		score += AllWordsMatchedBonus
	}

	if meta != nil {
		if s.firstPartyPublisher != "" && strings.Contains(strings.ToLower(meta.Publisher), s.firstPartyPublisher) {
			score += FirstPartyBonus
		}
		if meta.Popularity > 0 {
			score += min(meta.Popularity/popularityBonusDivisor, MaxPopularityBonus)
		}
	}

	return score
}

func wordMatch(qw string, candidateWords []string) int {
	best := 0
	for _, cw := range candidateWords {
		if qw == cw {
			return WordExactBonus
		}
		if strings.Contains(qw, cw) || strings.Contains(cw, qw) {
			best = WordPartialBonus
		}
	}
	return best
}

// Normalize lowercases and trims a title or query.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// significantWords splits on whitespace and drops single-rune tokens.
func significantWords(s string) []string {
	fields := strings.Fields(s)
	words := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) > 1 {
			words = append(words, f)
		}
	}
	return words
}

func lowerAll(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(w)
	}
	return out
}
