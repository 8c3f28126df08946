// Package currency normalizes regional prices into the common settlement
// currency.
package currency

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"eshopscout/cache"
	"eshopscout/errs"
)

// RateSource fetches a live table of units-per-base for every currency it knows.
type RateSource interface {
	FetchRates(ctx context.Context, base string) (map[string]decimal.Decimal, error)
}

// Table is a rate table quoted against Base.
type Table struct {
	Base      string                     `json:"base"`
	Rates     map[string]decimal.Decimal `json:"rates"`
	FetchedAt time.Time                  `json:"fetched_at"`
}

// Source names where a conversion's rate came from.
type Source string

const (
	SourceNone     Source = "none"
	SourceLive     Source = "live"
	SourceStatic   Source = "static"
	SourceIdentity Source = "identity"
)

// Conversion is the detailed outcome of a single conversion.
type Conversion struct {
	Amount    decimal.Decimal `json:"amount"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Converted decimal.Decimal `json:"converted"`
	Rate      decimal.Decimal `json:"rate"`
	Source    Source          `json:"source"`
}

// Converter converts amounts into the common currency. It never fails: a
// missing live rate falls back to the static table and then to identity.
type Converter struct {
	common string
	source RateSource
	rates  *cache.ResultCache[Table]
	static map[string]decimal.Decimal
	logger *slog.Logger

	// serializes live fetches so a cold cache triggers one request
	fetchMu    sync.Mutex
	failedAt   time.Time
	retryAfter time.Duration
}

// NewConverter builds a converter. source may be nil for static-only use.
func NewConverter(common string, source RateSource, rates *cache.ResultCache[Table], logger *slog.Logger) *Converter {
	common = strings.ToUpper(common)
	return &Converter{
		common:     common,
		source:     source,
		rates:      rates,
		static:     StaticTable(common),
		logger:     logger,
		retryAfter: time.Minute,
	}
}

// Common returns the settlement currency code.
func (c *Converter) Common() string { return c.common }

// Convert returns amount expressed in the common currency.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from string) decimal.Decimal {
	return c.ConvertDetailed(ctx, amount, from).Converted
}

// ConvertDetailed is Convert plus the rate used and where it came from.
func (c *Converter) ConvertDetailed(ctx context.Context, amount decimal.Decimal, from string) Conversion {
	from = strings.ToUpper(strings.TrimSpace(from))
	conv := Conversion{Amount: amount, From: from, To: c.common, Converted: amount, Rate: decimal.NewFromInt(1), Source: SourceNone}
	if from == c.common {
		return conv
	}

	if table, ok := c.liveTable(ctx); ok {
		if rate, ok := table.Rates[from]; ok && rate.IsPositive() {
			conv.Rate = rate
			conv.Converted = amount.Div(rate)
			conv.Source = SourceLive
			return conv
		}
	}

	if rate, ok := c.static[from]; ok && rate.IsPositive() {
		conv.Rate = rate
		conv.Converted = amount.Div(rate)
		conv.Source = SourceStatic
		return conv
	}

	c.logger.Warn("⚠️ No exchange rate, returning amount unconverted", "currency", from, "common", c.common)
	conv.Source = SourceIdentity
	return conv
}

// Refresh fetches the live table and stores it, replacing any cached copy.
func (c *Converter) Refresh(ctx context.Context) (Table, error) {
	if c.source == nil {
		return Table{}, errs.New("no live rate source configured")
	}
	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()
	return c.fetchLocked(ctx)
}

func (c *Converter) fetchLocked(ctx context.Context) (Table, error) {
	rates, err := c.source.FetchRates(ctx, c.common)
	if err == nil && len(rates) == 0 {
		err = errs.Newf("empty %s rate table", c.common)
	}
	if err != nil {
		c.failedAt = time.Now()
		return Table{}, errs.Wrapf(err, "fetch %s rates", c.common)
	}
	c.failedAt = time.Time{}
	table := Table{Base: c.common, Rates: rates, FetchedAt: time.Now()}
	if c.rates != nil {
		c.rates.Set(ctx, c.common, table)
	}
	return table, nil
}

// liveTable returns the cached live table, fetching it when the cache is cold.
func (c *Converter) liveTable(ctx context.Context) (Table, bool) {
	if c.source == nil {
		return Table{}, false
	}
	if c.rates != nil {
		if table, ok := c.rates.Get(ctx, c.common); ok {
			return table, true
		}
	}

	c.fetchMu.Lock()
	defer c.fetchMu.Unlock()
	if c.rates != nil {
		if table, ok := c.rates.Get(ctx, c.common); ok {
			return table, true
		}
	}
	// a recent failure keeps conversions on the static table instead of
	// paying the fetch timeout per price
	if !c.failedAt.IsZero() && time.Since(c.failedAt) < c.retryAfter {
		return Table{}, false
	}
	table, err := c.fetchLocked(ctx)
	if err != nil {
		c.logger.Warn("Live exchange rates unavailable, using static table", "error", err)
		return Table{}, false
	}
	return table, true
}
