package currency

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eshopscout/cache"
	"eshopscout/logger"
)

type fakeRates struct {
	rates map[string]decimal.Decimal
	err   error
	calls atomic.Int32
}

func (f *fakeRates) FetchRates(_ context.Context, _ string) (map[string]decimal.Decimal, error) {
	f.calls.Add(1)
	return f.rates, f.err
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestConverter(t *testing.T, src RateSource) *Converter {
	t.Helper()
	rates, err := cache.New[Table]("rates", 30*time.Minute, 10, nil, logger.Discard())
	require.NoError(t, err)
	return NewConverter("sgd", src, rates, logger.Discard())
}

func TestConvert_SameCurrencyUnchanged(t *testing.T) {
	src := &fakeRates{}
	c := newTestConverter(t, src)

	got := c.ConvertDetailed(context.Background(), dec("12.34"), "SGD")
	assert.True(t, got.Converted.Equal(dec("12.34")))
	assert.Equal(t, SourceNone, got.Source)
	assert.Zero(t, src.calls.Load())
}

func TestConvert_LiveTableCached(t *testing.T) {
	src := &fakeRates{rates: map[string]decimal.Decimal{"USD": dec("0.5")}}
	c := newTestConverter(t, src)
	ctx := context.Background()

	got := c.ConvertDetailed(ctx, dec("10"), "usd")
	assert.True(t, got.Converted.Equal(dec("20")), got.Converted.String())
	assert.Equal(t, SourceLive, got.Source)

	c.Convert(ctx, dec("1"), "USD")
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestConvert_MissingLiveEntryUsesStatic(t *testing.T) {
	src := &fakeRates{rates: map[string]decimal.Decimal{"USD": dec("0.5")}}
	c := newTestConverter(t, src)

	got := c.ConvertDetailed(context.Background(), dec("110"), "JPY")
	assert.Equal(t, SourceStatic, got.Source)
	assert.True(t, got.Converted.Equal(dec("1")))
}

func TestConvert_FetchFailureFallsBackWithoutRefetching(t *testing.T) {
	src := &fakeRates{err: errors.New("dns failure")}
	c := newTestConverter(t, src)
	ctx := context.Background()

	got := c.ConvertDetailed(ctx, dec("5.9"), "GBP")
	assert.Equal(t, SourceStatic, got.Source)
	assert.True(t, got.Converted.Equal(dec("10")))

	c.Convert(ctx, dec("1"), "EUR")
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestConvert_UnknownCurrencyIsIdentity(t *testing.T) {
	c := newTestConverter(t, &fakeRates{rates: map[string]decimal.Decimal{"USD": dec("0.5")}})

	got := c.ConvertDetailed(context.Background(), dec("42"), "XXX")
	assert.Equal(t, SourceIdentity, got.Source)
	assert.True(t, got.Converted.Equal(dec("42")))
}

func TestConvert_NoSourceStaticOnly(t *testing.T) {
	c := NewConverter("SGD", nil, nil, logger.Discard())
	assert.True(t, c.Convert(context.Background(), dec("7.4"), "USD").Equal(dec("10")))

	_, err := c.Refresh(context.Background())
	assert.Error(t, err)
}

func TestRefresh_ReplacesCachedTable(t *testing.T) {
	src := &fakeRates{rates: map[string]decimal.Decimal{"USD": dec("0.5")}}
	c := newTestConverter(t, src)
	ctx := context.Background()

	c.Convert(ctx, dec("1"), "USD")
	src.rates = map[string]decimal.Decimal{"USD": dec("0.25")}

	table, err := c.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, "SGD", table.Base)
	assert.True(t, c.Convert(ctx, dec("1"), "USD").Equal(dec("4")))
}

func TestStaticTable_Rebase(t *testing.T) {
	usd := StaticTable("USD")
	require.NotNil(t, usd)
	assert.True(t, usd["USD"].Equal(decimal.NewFromInt(1)))
	assert.True(t, usd["SGD"].Mul(dec("0.74")).Round(6).Equal(decimal.NewFromInt(1)))

	assert.Nil(t, StaticTable("XYZ"))
}
