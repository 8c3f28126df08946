package regions

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eshopscout/cache"
	"eshopscout/logger"
	"eshopscout/models"
)

type fakeProbe struct {
	shops      []models.ActiveShop
	err        error
	calls      int
	candidates []models.RegionProfile
}

func (f *fakeProbe) ActiveShops(_ context.Context, candidates []models.RegionProfile) ([]models.ActiveShop, error) {
	f.calls++
	f.candidates = candidates
	return f.shops, f.err
}

func newCache(t *testing.T) *cache.ResultCache[[]models.RegionProfile] {
	t.Helper()
	c, err := cache.New[[]models.RegionProfile]("regions", time.Hour, 10, nil, logger.Discard())
	require.NoError(t, err)
	return c
}

func codes(profiles []models.RegionProfile) []string {
	out := make([]string, len(profiles))
	for i, p := range profiles {
		out[i] = p.Code
	}
	return out
}

func TestStaticTable(t *testing.T) {
	static := Static()
	require.Len(t, static, 49)

	direct := 0
	seen := map[string]bool{}
	for _, p := range static {
		assert.False(t, seen[p.Code], "duplicate %s", p.Code)
		seen[p.Code] = true
		assert.NotEmpty(t, p.Currency)
		assert.NotEmpty(t, p.Partition)
		if p.Direct {
			direct++
		}
	}
	assert.Equal(t, 6, direct)

	static[0].Code = "XX"
	assert.Equal(t, "US", Static()[0].Code)
}

func TestDirectory_NoProbeUsesStatic(t *testing.T) {
	d := NewDirectory(nil, nil, nil, logger.Discard())
	assert.Len(t, d.ListActiveRegions(context.Background()), 49)

	jp, ok := d.Lookup("jp")
	require.True(t, ok)
	assert.Equal(t, models.RegionTagAsia, jp.Partition)
	assert.Equal(t, "JPY", jp.Currency)
}

func TestDirectory_LiveMergeAndCache(t *testing.T) {
	probe := &fakeProbe{shops: []models.ActiveShop{
		{Code: "US", Currency: "USD", Partition: models.RegionTagAmericas},
		{Code: "gb", Currency: "gbp", Partition: models.RegionTagEurope},
		{Code: "IS", Currency: "ISK", Partition: models.RegionTagEurope},
		{Code: "US", Currency: "USD", Partition: models.RegionTagAmericas},
	}}
	d := NewDirectory(probe, []string{" is ", "US"}, newCache(t), logger.Discard())
	ctx := context.Background()

	active := d.ListActiveRegions(ctx)
	assert.Equal(t, []string{"US", "GB", "IS", "HK", "SG", "KR", "TW", "TH", "MY"}, codes(active))

	iceland := active[2]
	assert.True(t, iceland.PurchaseDifficulty)
	assert.False(t, iceland.GiftCardsAvailable)
	assert.Equal(t, "ISK", iceland.Currency)
	assert.Equal(t, "GBP", active[1].Currency)
	assert.Equal(t, "United Kingdom", active[1].DisplayName)

	// direct markets are not probed; the unknown extra code is
	candidateCodes := codes(probe.candidates)
	assert.NotContains(t, candidateCodes, "HK")
	assert.Contains(t, candidateCodes, "IS")
	assert.Len(t, candidateCodes, 44)

	d.ListActiveRegions(ctx)
	assert.Equal(t, 1, probe.calls)
}

func TestDirectory_ProbeFailureFallsBack(t *testing.T) {
	d := NewDirectory(&fakeProbe{err: errors.New("boom")}, nil, newCache(t), logger.Discard())
	assert.Len(t, d.ListActiveRegions(context.Background()), 49)

	d = NewDirectory(&fakeProbe{}, nil, newCache(t), logger.Discard())
	assert.Len(t, d.ListActiveRegions(context.Background()), 49)
}
