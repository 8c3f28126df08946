package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// SalesStatus is the normalized purchasability of a title in one region.
type SalesStatus string

const (
	SalesStatusOnSale       SalesStatus = "onsale"
	SalesStatusNotAvailable SalesStatus = "not_available"
	SalesStatusUnknown      SalesStatus = "unknown"
)

// PriceRecord is what a PriceSource returns for one region and identifier.
type PriceRecord struct {
	SalesStatus   SalesStatus         `json:"sales_status"`
	RegularPrice  decimal.Decimal     `json:"regular_price"`
	DiscountPrice decimal.NullDecimal `json:"discount_price"`
	Currency      string              `json:"currency"`
}

// IsOnSale reports whether the title can be bought in the region.
func (r PriceRecord) IsOnSale() bool {
	return r.SalesStatus == SalesStatusOnSale
}

// HasDiscount reports whether an active discounted price is present.
func (r PriceRecord) HasDiscount() bool {
	return r.DiscountPrice.Valid && r.DiscountPrice.Decimal.IsPositive()
}

// EffectivePrice is the discounted price when present, else the regular price.
func (r PriceRecord) EffectivePrice() decimal.Decimal {
	if r.HasDiscount() {
		return r.DiscountPrice.Decimal
	}
	return r.RegularPrice
}

// DiscountPercent returns round((1 - discounted/regular) * 100), clamped to [0,100].
func (r PriceRecord) DiscountPercent() int {
	if !r.HasDiscount() || !r.RegularPrice.IsPositive() {
		return 0
	}
	ratio := r.DiscountPrice.Decimal.Div(r.RegularPrice)
	pct := decimal.NewFromInt(1).Sub(ratio).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return int(pct)
}

// PriceQuote is one region's price for one title.
type PriceQuote struct {
	RegionCode         string          `json:"region_code"`
	CurrencyCode       string          `json:"currency_code"`
	DisplayName        string          `json:"display_name"`
	ListedPrice        decimal.Decimal `json:"listed_price"`
	NormalizedPrice    decimal.Decimal `json:"normalized_price"`
	DiscountPercent    int             `json:"discount_percent"`
	PurchaseDifficulty bool            `json:"purchase_difficulty"`
	GiftCardsAvailable bool            `json:"gift_cards_available"`
	RegionalID         string          `json:"regional_id"`
}

// PriceQuoteSet is the aggregated result for one title, sorted ascending by
// normalized price with at most one quote per region.
type PriceQuoteSet struct {
	HomeID      string       `json:"home_id"`
	Title       string       `json:"title"`
	Currency    string       `json:"currency"`
	Quotes      []PriceQuote `json:"quotes"`
	GeneratedAt time.Time    `json:"generated_at"`
}

// NewPriceQuoteSet deduplicates quotes by region (lower normalized price wins,
// the first discovery keeps its slot) and sorts them stably ascending.
func NewPriceQuoteSet(homeID, title, currency string, quotes []PriceQuote, generatedAt time.Time) *PriceQuoteSet {
	index := make(map[string]int, len(quotes))
	kept := make([]PriceQuote, 0, len(quotes))
	for _, q := range quotes {
		if !q.NormalizedPrice.IsPositive() {
			continue
		}
		if i, seen := index[q.RegionCode]; seen {
			if q.NormalizedPrice.LessThan(kept[i].NormalizedPrice) {
				kept[i] = q
			}
			continue
		}
		index[q.RegionCode] = len(kept)
		kept = append(kept, q)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].NormalizedPrice.LessThan(kept[j].NormalizedPrice)
	})

	return &PriceQuoteSet{
		HomeID:      homeID,
		Title:       title,
		Currency:    currency,
		Quotes:      kept,
		GeneratedAt: generatedAt,
	}
}

// IsEmpty reports whether no region confirmed a purchasable listing.
func (s *PriceQuoteSet) IsEmpty() bool {
	return s == nil || len(s.Quotes) == 0
}

// Cheapest returns the lowest normalized quote.
func (s *PriceQuoteSet) Cheapest() (PriceQuote, bool) {
	if s.IsEmpty() {
		return PriceQuote{}, false
	}
	return s.Quotes[0], true
}

// RegionCodes returns the region codes in price order.
func (s *PriceQuoteSet) RegionCodes() []string {
	if s == nil {
		return nil
	}
	codes := make([]string, len(s.Quotes))
	for i, q := range s.Quotes {
		codes[i] = q.RegionCode
	}
	return codes
}
