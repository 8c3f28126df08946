package scraper

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"eshopscout/models"
)

// DefaultProbeIDs are titles on sale in every market of their partition,
// used to test whether a market answers price requests.
var DefaultProbeIDs = map[models.RegionTag]string{
	models.RegionTagAmericas: "70010000000185",
	models.RegionTagEurope:   "70010000000184",
	models.RegionTagAsia:     "70010000000039",
}

// ActiveShopProbe discovers live markets through the price endpoint.
type ActiveShopProbe struct {
	prices      *PriceAPI
	probeIDs    map[models.RegionTag]string
	concurrency int
	logger      *slog.Logger
}

func NewActiveShopProbe(prices *PriceAPI, logger *slog.Logger) *ActiveShopProbe {
	return &ActiveShopProbe{
		prices:      prices,
		probeIDs:    DefaultProbeIDs,
		concurrency: 5,
		logger:      logger,
	}
}

// ActiveShops probes every candidate. A candidate without a partition is
// tried against each partition's probe title. Individual failures only drop
// that candidate.
func (a *ActiveShopProbe) ActiveShops(ctx context.Context, candidates []models.RegionProfile) ([]models.ActiveShop, error) {
	found := make([]*models.ActiveShop, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, candidate := range candidates {
		i, candidate := i, candidate
		g.Go(func() error {
			found[i] = a.probe(gctx, candidate)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	shops := make([]models.ActiveShop, 0, len(candidates))
	for _, s := range found {
		if s != nil {
			shops = append(shops, *s)
		}
	}
	return shops, nil
}

func (a *ActiveShopProbe) probe(ctx context.Context, candidate models.RegionProfile) *models.ActiveShop {
	partitions := models.Partitions
	if candidate.Partition != "" {
		partitions = []models.RegionTag{candidate.Partition}
	}

	for _, tag := range partitions {
		id, ok := a.probeIDs[tag]
		if !ok {
			continue
		}
		entry, err := a.prices.fetch(ctx, id, candidate.Code)
		if err != nil {
			a.logger.Debug("Shop probe failed", "country", candidate.Code, "partition", tag, "error", err)
			continue
		}
		if entry == nil || entry.RegularPrice == nil || entry.RegularPrice.Currency == "" {
			continue
		}
		return &models.ActiveShop{
			Code:      strings.ToUpper(candidate.Code),
			Currency:  strings.ToUpper(entry.RegularPrice.Currency),
			Partition: tag,
		}
	}
	return nil
}
