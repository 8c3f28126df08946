package models

// SearchStatus tags the outcome of an entry point call.
type SearchStatus string

const (
	SearchStatusNoResults SearchStatus = "no_results"
	SearchStatusAmbiguous SearchStatus = "ambiguous"
	SearchStatusNoPrices  SearchStatus = "no_prices"
	SearchStatusPriced    SearchStatus = "priced"
	SearchStatusError     SearchStatus = "error"
)

// MatchClass is the classification of a scored candidate set.
type MatchClass string

const (
	MatchClassNoResults MatchClass = "no_results"
	MatchClassSingle    MatchClass = "single_match"
	MatchClassAmbiguous MatchClass = "ambiguous"
)

// SearchResult is the payload handed to the bot front end.
type SearchResult struct {
	Status     SearchStatus   `json:"status"`
	Query      string         `json:"query,omitempty"`
	Title      *MatchedTitle  `json:"title,omitempty"`
	Candidates []ScoredEntry  `json:"candidates,omitempty"`
	Prices     *PriceQuoteSet `json:"prices,omitempty"`
	Message    string         `json:"message,omitempty"`
	Err        error          `json:"-"`
}

func NoResults(query string) *SearchResult {
	return &SearchResult{Status: SearchStatusNoResults, Query: query, Message: "no matching title found"}
}

func Ambiguous(query string, candidates []ScoredEntry) *SearchResult {
	return &SearchResult{Status: SearchStatusAmbiguous, Query: query, Candidates: candidates}
}

// Priced returns a priced result, or a no_prices one when the set is empty.
func Priced(query string, title *MatchedTitle, prices *PriceQuoteSet) *SearchResult {
	if prices.IsEmpty() {
		return &SearchResult{
			Status:  SearchStatusNoPrices,
			Query:   query,
			Title:   title,
			Prices:  prices,
			Message: "title found but no region currently sells it",
		}
	}
	return &SearchResult{Status: SearchStatusPriced, Query: query, Title: title, Prices: prices}
}

func Failed(query string, err error) *SearchResult {
	msg := "search failed"
	if err != nil {
		msg = err.Error()
	}
	return &SearchResult{Status: SearchStatusError, Query: query, Message: msg, Err: err}
}
