package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eshopscout/aggregator"
	"eshopscout/models"
)

func TestRegistry_RecordsAggregation(t *testing.T) {
	r := NewRegistry()

	r.RegionFetch("broad", aggregator.OutcomeQuoted, 200*time.Millisecond)
	r.RegionFetch("broad", aggregator.OutcomeError, time.Second)
	r.RegionFetch("broad", aggregator.OutcomeError, time.Second)
	r.Aggregated(12, false, 8*time.Second)
	r.Aggregated(12, true, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.RegionFetches.WithLabelValues("broad", "quoted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.RegionFetches.WithLabelValues("broad", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Aggregations.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Aggregations.WithLabelValues("false")))
}

func TestRegistry_HandlerExposesCounters(t *testing.T) {
	r := NewRegistry()
	r.Search(models.LookupByQuery, models.SearchStatusPriced)
	r.CacheLookup("prices", true)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `eshopscout_searches_total{kind="query",status="priced"} 1`)
	assert.Contains(t, string(body), `eshopscout_cache_hits_total{cache="prices"} 1`)
}
