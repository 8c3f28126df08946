// Package regions lists the markets a title can be priced in.
package regions

import (
	"context"
	"log/slog"
	"strings"

	"eshopscout/cache"
	"eshopscout/models"
)

const activeKey = "active"

// ShopProbe asks the storefront which of the candidate markets currently
// answer price requests.
type ShopProbe interface {
	ActiveShops(ctx context.Context, candidates []models.RegionProfile) ([]models.ActiveShop, error)
}

// Directory serves the active market list: the static table, or the live
// probe result cached for an hour when live refresh is enabled.
type Directory struct {
	static []models.RegionProfile
	byCode map[string]models.RegionProfile
	probe  ShopProbe
	extra  []string
	cache  *cache.ResultCache[[]models.RegionProfile]
	logger *slog.Logger
}

// NewDirectory builds a directory. A nil probe disables live refresh.
func NewDirectory(probe ShopProbe, extraCodes []string, c *cache.ResultCache[[]models.RegionProfile], logger *slog.Logger) *Directory {
	static := Static()
	byCode := make(map[string]models.RegionProfile, len(static))
	for _, p := range static {
		byCode[p.Code] = p
	}
	extra := make([]string, 0, len(extraCodes))
	for _, code := range extraCodes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code != "" {
			extra = append(extra, code)
		}
	}
	return &Directory{
		static: static,
		byCode: byCode,
		probe:  probe,
		extra:  extra,
		cache:  c,
		logger: logger,
	}
}

// Lookup returns the static profile for a market code.
func (d *Directory) Lookup(code string) (models.RegionProfile, bool) {
	p, ok := d.byCode[strings.ToUpper(code)]
	return p, ok
}

// ListActiveRegions never fails: when the live probe errors or finds nothing
// the static table is returned.
func (d *Directory) ListActiveRegions(ctx context.Context) []models.RegionProfile {
	if d.probe == nil {
		return Static()
	}
	if d.cache != nil {
		if cached, ok := d.cache.Get(ctx, activeKey); ok && len(cached) > 0 {
			return cached
		}
	}

	shops, err := d.probe.ActiveShops(ctx, d.candidates())
	if err != nil {
		d.logger.Warn("Active shop probe failed, using static regions", "error", err)
		return Static()
	}
	if len(shops) == 0 {
		d.logger.Warn("Active shop probe returned nothing, using static regions")
		return Static()
	}

	active := d.merge(shops)
	d.logger.Info("✅ Active regions refreshed", "live", len(shops), "total", len(active))
	if d.cache != nil {
		d.cache.Set(ctx, activeKey, active)
	}
	return active
}

// candidates are the probeable markets: every non-direct static profile plus
// configured extra codes.
func (d *Directory) candidates() []models.RegionProfile {
	out := make([]models.RegionProfile, 0, len(d.static)+len(d.extra))
	for _, p := range d.static {
		if !p.Direct {
			out = append(out, p)
		}
	}
	for _, code := range d.extra {
		if _, known := d.byCode[code]; known {
			continue
		}
		out = append(out, models.RegionProfile{Code: code, DisplayName: code, PurchaseDifficulty: true})
	}
	return out
}

// merge turns probe results into profiles and appends the direct markets.
// Markets missing from the static table are assumed hard to buy from.
func (d *Directory) merge(shops []models.ActiveShop) []models.RegionProfile {
	seen := make(map[string]struct{}, len(shops))
	out := make([]models.RegionProfile, 0, len(shops)+6)
	for _, shop := range shops {
		code := strings.ToUpper(shop.Code)
		if _, dup := seen[code]; dup || code == "" {
			continue
		}
		seen[code] = struct{}{}

		p, known := d.byCode[code]
		if !known {
			p = models.RegionProfile{
				Code:               code,
				DisplayName:        code,
				PurchaseDifficulty: true,
				GiftCardsAvailable: false,
				Partition:          shop.Partition,
			}
		}
		if shop.Currency != "" {
			p.Currency = strings.ToUpper(shop.Currency)
		}
		if p.Partition == "" {
			p.Partition = shop.Partition
		}
		out = append(out, p)
	}

	for _, p := range d.static {
		if !p.Direct {
			continue
		}
		if _, dup := seen[p.Code]; dup {
			continue
		}
		out = append(out, p)
	}
	return out
}
