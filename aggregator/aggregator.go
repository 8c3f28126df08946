// Package aggregator collects a title's price in every active region and
// normalizes the quotes into one sorted set.
package aggregator

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"eshopscout/cache"
	"eshopscout/models"
)

// PriceSource fetches one region's price record. A nil record with a nil
// error means the region has no price for the identifier.
type PriceSource interface {
	GetPrice(ctx context.Context, regionalID, regionCode string) (*models.PriceRecord, error)
}

type RegionLister interface {
	ListActiveRegions(ctx context.Context) []models.RegionProfile
}

type CurrencyConverter interface {
	Common() string
	Convert(ctx context.Context, amount decimal.Decimal, from string) decimal.Decimal
}

// Recorder receives per-fetch and per-aggregation observations.
type Recorder interface {
	RegionFetch(phase string, outcome Outcome, elapsed time.Duration)
	Aggregated(quotes int, cached bool, elapsed time.Duration)
}

// Outcome labels what happened to one region lookup.
type Outcome string

const (
	OutcomeQuoted       Outcome = "quoted"
	OutcomeNoPrice      Outcome = "no_price"
	OutcomeNotOnSale    Outcome = "not_on_sale"
	OutcomeInvalidPrice Outcome = "invalid_price"
	OutcomeError        Outcome = "error"
)

const (
	phaseBroad    = "broad"
	phaseTargeted = "targeted"
)

type Options struct {
	BatchSize  int
	BatchDelay time.Duration
}

type Aggregator struct {
	prices    PriceSource
	regions   RegionLister
	converter CurrencyConverter
	cache     *cache.ResultCache[*models.PriceQuoteSet]
	recorder  Recorder
	opts      Options
	logger    *slog.Logger
	now       func() time.Time
}

func New(prices PriceSource, regions RegionLister, converter CurrencyConverter,
	c *cache.ResultCache[*models.PriceQuoteSet], opts Options, logger *slog.Logger) *Aggregator {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	return &Aggregator{
		prices:    prices,
		regions:   regions,
		converter: converter,
		cache:     c,
		recorder:  nopRecorder{},
		opts:      opts,
		logger:    logger,
		now:       time.Now,
	}
}

// WithRecorder attaches a metrics recorder.
func (a *Aggregator) WithRecorder(r Recorder) *Aggregator {
	if r != nil {
		a.recorder = r
	}
	return a
}

type job struct {
	region models.RegionProfile
	id     string
}

// Aggregate returns the sorted quote set for title. It never fails: regions
// that cannot be priced are simply absent and the set may be empty.
func (a *Aggregator) Aggregate(ctx context.Context, title *models.MatchedTitle) *models.PriceQuoteSet {
	start := a.now()
	homeID := title.HomeID()

	if a.cache != nil {
		if set, ok := a.cache.Get(ctx, homeID); ok && set != nil {
			a.recorder.Aggregated(len(set.Quotes), true, a.now().Sub(start))
			return set
		}
	}

	regions := a.regions.ListActiveRegions(ctx)

	broad := make([]job, 0, len(regions))
	for _, r := range regions {
		broad = append(broad, job{region: r, id: homeID})
	}
	quotes, failed := a.run(ctx, phaseBroad, broad)

	var targeted []job
	for _, r := range failed {
		id, ok := title.IDFor(r.Partition)
		if !ok || id == homeID {
			continue
		}
		targeted = append(targeted, job{region: r, id: id})
	}
	if len(targeted) > 0 && ctx.Err() == nil {
		a.logger.Debug("Retrying regions with partition identifiers", "title", title.CanonicalTitle, "regions", len(targeted))
		if err := a.pause(ctx); err == nil {
			repaired, _ := a.run(ctx, phaseTargeted, targeted)
			quotes = append(quotes, repaired...)
		}
	}

	set := models.NewPriceQuoteSet(homeID, title.CanonicalTitle, a.converter.Common(), quotes, a.now())
	if a.cache != nil && ctx.Err() == nil {
		a.cache.Set(ctx, homeID, set)
	}

	elapsed := a.now().Sub(start)
	a.recorder.Aggregated(len(set.Quotes), false, elapsed)
	a.logger.Info("💰 Price aggregation finished",
		"title", title.CanonicalTitle,
		"home_id", homeID,
		"regions", len(regions),
		"quotes", len(set.Quotes),
		"duration", elapsed)
	return set
}

// Invalidate drops the cached set for a home identifier.
func (a *Aggregator) Invalidate(ctx context.Context, homeID string) {
	if a.cache != nil {
		a.cache.Invalidate(ctx, homeID)
	}
}

// run fans jobs out in fixed-size batches, waiting for each batch to settle
// before pausing and starting the next. It returns the quotes found and the
// regions that produced none.
func (a *Aggregator) run(ctx context.Context, phase string, jobs []job) ([]models.PriceQuote, []models.RegionProfile) {
	results := make([]*models.PriceQuote, len(jobs))

	for lo := 0; lo < len(jobs); lo += a.opts.BatchSize {
		if lo > 0 {
			if err := a.pause(ctx); err != nil {
				break
			}
		}
		hi := min(lo+a.opts.BatchSize, len(jobs))

		var g errgroup.Group
		for i := lo; i < hi; i++ {
			i := i
			g.Go(func() error {
				results[i] = a.quote(ctx, phase, jobs[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	quotes := make([]models.PriceQuote, 0, len(jobs))
	var failed []models.RegionProfile
	for i, q := range results {
		if q == nil {
			failed = append(failed, jobs[i].region)
			continue
		}
		quotes = append(quotes, *q)
	}
	return quotes, failed
}

func (a *Aggregator) pause(ctx context.Context) error {
	if a.opts.BatchDelay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(a.opts.BatchDelay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// quote prices one region. Every failure is logged and swallowed.
func (a *Aggregator) quote(ctx context.Context, phase string, j job) *models.PriceQuote {
	start := a.now()
	q, outcome := a.lookup(ctx, j)
	a.recorder.RegionFetch(phase, outcome, a.now().Sub(start))
	return q
}

func (a *Aggregator) lookup(ctx context.Context, j job) (*models.PriceQuote, Outcome) {
	record, err := a.prices.GetPrice(ctx, j.id, j.region.Code)
	if err != nil {
		a.logger.Debug("Region price lookup failed", "region", j.region.Code, "id", j.id, "error", err)
		return nil, OutcomeError
	}
	if record == nil {
		return nil, OutcomeNoPrice
	}
	if !record.IsOnSale() {
		return nil, OutcomeNotOnSale
	}

	listed := record.EffectivePrice()
	if !listed.IsPositive() {
		return nil, OutcomeInvalidPrice
	}

	currency := record.Currency
	if currency == "" {
		currency = j.region.Currency
	}
	normalized := a.converter.Convert(ctx, listed, currency).Round(2)
	if !normalized.IsPositive() {
		a.logger.Warn("⚠️ Dropping region with non-positive converted price", "region", j.region.Code, "listed", listed, "currency", currency)
		return nil, OutcomeInvalidPrice
	}

	return &models.PriceQuote{
		RegionCode:         j.region.Code,
		CurrencyCode:       currency,
		DisplayName:        j.region.DisplayName,
		ListedPrice:        listed,
		NormalizedPrice:    normalized,
		DiscountPercent:    record.DiscountPercent(),
		PurchaseDifficulty: j.region.PurchaseDifficulty,
		GiftCardsAvailable: j.region.GiftCardsAvailable,
		RegionalID:         j.id,
	}, OutcomeQuoted
}

type nopRecorder struct{}

func (nopRecorder) RegionFetch(string, Outcome, time.Duration) {}
func (nopRecorder) Aggregated(int, bool, time.Duration)        {}
