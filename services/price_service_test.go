package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"eshopscout/catalog"
	"eshopscout/errs"
	"eshopscout/events"
	"eshopscout/logger"
	"eshopscout/models"
)

type mockSearcher struct{ mock.Mock }

func (m *mockSearcher) Search(ctx context.Context, query string) (catalog.Outcome, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(catalog.Outcome), args.Error(1)
}

type mockResolver struct{ mock.Mock }

func (m *mockResolver) Resolve(ctx context.Context, title string, known map[models.RegionTag]string) map[models.RegionTag]string {
	args := m.Called(ctx, title, known[models.RegionTagHome])
	return args.Get(0).(map[models.RegionTag]string)
}

type mockAggregator struct{ mock.Mock }

func (m *mockAggregator) Aggregate(ctx context.Context, title *models.MatchedTitle) *models.PriceQuoteSet {
	args := m.Called(ctx, title)
	return args.Get(0).(*models.PriceQuoteSet)
}

func (m *mockAggregator) Invalidate(ctx context.Context, homeID string) {
	m.Called(ctx, homeID)
}

type mockIDLookup struct{ mock.Mock }

func (m *mockIDLookup) LookupByID(ctx context.Context, id string) (*models.CatalogEntry, error) {
	args := m.Called(ctx, id)
	entry, _ := args.Get(0).(*models.CatalogEntry)
	return entry, args.Error(1)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) RecordLookup(ctx context.Context, title *models.MatchedTitle) error {
	return m.Called(ctx, title).Error(0)
}

func (m *mockStore) FindByID(ctx context.Context, id string) (*models.MatchedTitle, error) {
	args := m.Called(ctx, id)
	title, _ := args.Get(0).(*models.MatchedTitle)
	return title, args.Error(1)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishPriceSet(ctx context.Context, reason events.Reason, set *models.PriceQuoteSet) error {
	return m.Called(ctx, reason, set).Error(0)
}

func (m *mockPublisher) Close() error { return nil }

type countingRecorder map[models.SearchStatus]int

func (c countingRecorder) Search(_ models.LookupKind, status models.SearchStatus) { c[status]++ }

var anyArg = mock.Anything

func pricedSet(homeID string) *models.PriceQuoteSet {
	return models.NewPriceQuoteSet(homeID, "Metroid Dread", "SGD", []models.PriceQuote{
		{RegionCode: "MX", CurrencyCode: "MXN", NormalizedPrice: decimal.RequireFromString("55.10")},
		{RegionCode: "GB", CurrencyCode: "GBP", NormalizedPrice: decimal.RequireFromString("60.00")},
	}, time.Now().Add(time.Second))
}

func single(title, id string) catalog.Outcome {
	return catalog.Outcome{
		Class: models.MatchClassSingle,
		Candidates: []models.ScoredEntry{{
			Entry: models.CatalogEntry{Title: title, RegionalID: id, Partition: models.RegionTagEurope},
			Score: 5000,
		}},
	}
}

func TestSearchTitle_Priced(t *testing.T) {
	search, resolver, agg, pub := &mockSearcher{}, &mockResolver{}, &mockAggregator{}, &mockPublisher{}
	rec := countingRecorder{}

	search.On("Search", anyArg, "metroid dread").Return(single("Metroid Dread", "70010000037118"), nil)
	resolver.On("Resolve", anyArg, "Metroid Dread", "70010000037118").
		Return(map[models.RegionTag]string{models.RegionTagAmericas: "70010000037000"})
	agg.On("Aggregate", anyArg, mock.MatchedBy(func(title *models.MatchedTitle) bool {
		id, ok := title.IDFor(models.RegionTagAmericas)
		return ok && id == "70010000037000" && title.HomeID() == "70010000037118"
	})).Return(pricedSet("70010000037118"))
	pub.On("PublishPriceSet", anyArg, events.ReasonSearch, mock.Anything).Return(nil)

	svc := NewPriceService(search, resolver, agg, logger.Discard(), WithPublisher(pub), WithSearchRecorder(rec))

	var steps []int
	ctx := WithProgress(context.Background(), func(p int, _ string) { steps = append(steps, p) })
	res, err := svc.SearchTitle(ctx, "  metroid <dread> ")

	require.NoError(t, err)
	assert.Equal(t, models.SearchStatusPriced, res.Status)
	assert.Equal(t, "metroid dread", res.Query)
	assert.Equal(t, []string{"MX", "GB"}, res.Prices.RegionCodes())
	assert.Equal(t, []int{10, 30, 50, 95}, steps)
	assert.Equal(t, 1, rec[models.SearchStatusPriced])
	mock.AssertExpectationsForObjects(t, search, resolver, agg, pub)
}

func TestSearchTitle_UsesIdsFromOtherCatalogs(t *testing.T) {
	search, resolver, agg := &mockSearcher{}, &mockResolver{}, &mockAggregator{}

	outcome := single("Mario Kart 8 Deluxe", "70010000000126")
	outcome.Candidates[0].AlsoListed = map[models.RegionTag]string{models.RegionTagAmericas: "70010000000153"}
	search.On("Search", anyArg, "mario kart 8 deluxe").Return(outcome, nil)
	resolver.On("Resolve", anyArg, "Mario Kart 8 Deluxe", "70010000000126").Return(map[models.RegionTag]string{})
	agg.On("Aggregate", anyArg, mock.MatchedBy(func(title *models.MatchedTitle) bool {
		id, ok := title.IDFor(models.RegionTagAmericas)
		return ok && id == "70010000000153"
	})).Return(pricedSet("70010000000126"))

	svc := NewPriceService(search, resolver, agg, logger.Discard())
	res, err := svc.SearchTitle(context.Background(), "mario kart 8 deluxe")

	require.NoError(t, err)
	assert.Equal(t, models.SearchStatusPriced, res.Status)
	mock.AssertExpectationsForObjects(t, search, resolver, agg)
}

func TestSearchTitle_NoResultsAndAmbiguous(t *testing.T) {
	search := &mockSearcher{}
	search.On("Search", anyArg, "zzzz").Return(catalog.Outcome{Class: models.MatchClassNoResults}, nil)
	search.On("Search", anyArg, "mario").Return(catalog.Outcome{
		Class: models.MatchClassAmbiguous,
		Candidates: []models.ScoredEntry{
			{Entry: models.CatalogEntry{Title: "Mario Kart 8 Deluxe"}, Score: 2000},
			{Entry: models.CatalogEntry{Title: "Mario Party Superstars"}, Score: 1900},
		},
	}, nil)

	svc := NewPriceService(search, &mockResolver{}, &mockAggregator{}, logger.Discard())

	res, err := svc.SearchTitle(context.Background(), "zzzz")
	require.NoError(t, err)
	assert.Equal(t, models.SearchStatusNoResults, res.Status)

	res, err = svc.SearchTitle(context.Background(), "mario")
	require.NoError(t, err)
	assert.Equal(t, models.SearchStatusAmbiguous, res.Status)
	assert.Len(t, res.Candidates, 2)
}

func TestSearchTitle_NoPricesIsNotAnError(t *testing.T) {
	search, resolver, agg := &mockSearcher{}, &mockResolver{}, &mockAggregator{}
	search.On("Search", anyArg, "old game").Return(single("Old Game", "70010000000999"), nil)
	resolver.On("Resolve", anyArg, anyArg, anyArg).Return(map[models.RegionTag]string{})
	agg.On("Aggregate", anyArg, anyArg).Return(models.NewPriceQuoteSet("70010000000999", "Old Game", "SGD", nil, time.Now()))

	res, err := NewPriceService(search, resolver, agg, logger.Discard()).SearchTitle(context.Background(), "old game")

	require.NoError(t, err)
	assert.Equal(t, models.SearchStatusNoPrices, res.Status)
	require.NotNil(t, res.Title)
	assert.Equal(t, "Old Game", res.Title.CanonicalTitle)
}

func TestSearchTitle_UpstreamUnavailable(t *testing.T) {
	search := &mockSearcher{}
	upstream := errs.Mark(errors.New("dial tcp: no such host"), errs.ErrUpstreamUnavailable)
	search.On("Search", anyArg, "zelda").Return(catalog.Outcome{}, upstream)

	res, err := NewPriceService(search, &mockResolver{}, &mockAggregator{}, logger.Discard()).SearchTitle(context.Background(), "zelda")

	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrUpstreamUnavailable))
	assert.Equal(t, models.SearchStatusError, res.Status)
}

func TestSearchTitle_InvalidInput(t *testing.T) {
	svc := NewPriceService(&mockSearcher{}, &mockResolver{}, &mockAggregator{}, logger.Discard())

	for _, q := range []string{"", "a", "<>", string(make([]byte, 101))} {
		res, err := svc.SearchTitle(context.Background(), q)
		require.Error(t, err, "query %q", q)
		assert.True(t, errs.Is(err, errs.ErrInvalidInput))
		assert.Equal(t, models.SearchStatusError, res.Status)
	}
}

func TestSearchByRegionalID_UsesCatalogLookup(t *testing.T) {
	lookup, resolver, agg, store := &mockIDLookup{}, &mockResolver{}, &mockAggregator{}, &mockStore{}
	lookup.On("LookupByID", anyArg, "70010000037118").
		Return(&models.CatalogEntry{Title: "Metroid Dread", RegionalID: "70010000037118", Partition: models.RegionTagEurope}, nil)
	resolver.On("Resolve", anyArg, "Metroid Dread", "70010000037118").Return(map[models.RegionTag]string{})
	agg.On("Aggregate", anyArg, anyArg).Return(pricedSet("70010000037118"))
	store.On("RecordLookup", anyArg, anyArg).Return(nil)

	svc := NewPriceService(&mockSearcher{}, resolver, agg, logger.Discard(), WithIDLookup(lookup), WithTitleStore(store))
	res, err := svc.SearchByRegionalID(context.Background(), " 70010000037118 ")

	require.NoError(t, err)
	assert.Equal(t, models.SearchStatusPriced, res.Status)
	assert.Equal(t, "Metroid Dread", res.Title.CanonicalTitle)
	mock.AssertExpectationsForObjects(t, lookup, resolver, agg, store)
}

func TestSearchByRegionalID_FallsBackToStoreThenID(t *testing.T) {
	lookup, resolver, agg, store := &mockIDLookup{}, &mockResolver{}, &mockAggregator{}, &mockStore{}
	lookup.On("LookupByID", anyArg, anyArg).Return(nil, nil)
	stored := models.NewMatchedTitle(models.CatalogEntry{Title: "Splatoon 3", RegionalID: "70010000040857", Partition: models.RegionTagEurope})
	stored.Merge(map[models.RegionTag]string{models.RegionTagAmericas: "70010000046395"})
	store.On("FindByID", anyArg, "70010000046395").Return(stored, nil)
	store.On("FindByID", anyArg, "70010000000001").Return(nil, errs.Mark(errors.New("missing"), errs.ErrNotFound))
	store.On("RecordLookup", anyArg, anyArg).Return(nil)
	resolver.On("Resolve", anyArg, "Splatoon 3", "70010000046395").Return(map[models.RegionTag]string{})
	agg.On("Aggregate", anyArg, anyArg).Return(models.NewPriceQuoteSet("x", "", "SGD", nil, time.Now()))

	svc := NewPriceService(&mockSearcher{}, resolver, agg, logger.Discard(), WithIDLookup(lookup), WithTitleStore(store))

	res, err := svc.SearchByRegionalID(context.Background(), "70010000046395")
	require.NoError(t, err)
	assert.Equal(t, "Splatoon 3", res.Title.CanonicalTitle)
	assert.Equal(t, "70010000046395", res.Title.HomeID())
	id, _ := res.Title.IDFor(models.RegionTagEurope)
	assert.Equal(t, "70010000040857", id)

	res, err = svc.SearchByRegionalID(context.Background(), "70010000000001")
	require.NoError(t, err)
	assert.Equal(t, "70010000000001", res.Title.CanonicalTitle)
	resolver.AssertNumberOfCalls(t, "Resolve", 1)
}

func TestSearchByRegionalID_RejectsMalformedIDs(t *testing.T) {
	svc := NewPriceService(&mockSearcher{}, &mockResolver{}, &mockAggregator{}, logger.Discard())

	for _, id := range []string{"", "7001000003711", "700100000371189", "7001000003711x"} {
		_, err := svc.SearchByRegionalID(context.Background(), id)
		assert.True(t, errs.Is(err, errs.ErrInvalidInput), "id %q", id)
	}
}

func TestRefresh_InvalidatesAndPublishes(t *testing.T) {
	agg, pub := &mockAggregator{}, &mockPublisher{}
	title := models.NewMatchedTitle(models.CatalogEntry{Title: "Metroid Dread", RegionalID: "70010000037118"})
	agg.On("Invalidate", anyArg, "70010000037118").Return()
	agg.On("Aggregate", anyArg, title).Return(pricedSet("70010000037118"))
	pub.On("PublishPriceSet", anyArg, events.ReasonRefresh, anyArg).Return(nil)

	set := NewPriceService(&mockSearcher{}, &mockResolver{}, agg, logger.Discard(), WithPublisher(pub)).Refresh(context.Background(), title)

	assert.Len(t, set.Quotes, 2)
	mock.AssertExpectationsForObjects(t, agg, pub)
}
