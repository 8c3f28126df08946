package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"eshopscout/aggregator"
	"eshopscout/models"
)

type Registry struct {
	reg *prometheus.Registry

	RegionFetches     *prometheus.CounterVec
	RegionFetchSec    *prometheus.HistogramVec
	Aggregations      *prometheus.CounterVec
	AggregationSec    prometheus.Histogram
	QuotesPerSet      prometheus.Histogram
	Searches          *prometheus.CounterVec
	CacheHits         *prometheus.CounterVec
	CacheMisses       *prometheus.CounterVec
	RefreshRuns       *prometheus.CounterVec
	PublishedSets     *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	LookupQueueLength prometheus.Gauge
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	regionFetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eshopscout_region_fetches_total",
		Help: "Region price lookups by phase and outcome.",
	}, []string{"phase", "outcome"})
	regionFetchSec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "eshopscout_region_fetch_seconds",
		Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 16},
	}, []string{"phase"})
	aggregations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eshopscout_aggregations_total",
	}, []string{"cached"})
	aggregationSec := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "eshopscout_aggregation_seconds",
		Buckets: []float64{.01, .5, 1, 5, 10, 20, 30, 60},
	})
	quotesPerSet := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "eshopscout_quotes_per_set",
		Buckets: prometheus.LinearBuckets(0, 5, 10),
	})
	searches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "eshopscout_searches_total",
		Help: "Entry point calls by kind and result status.",
	}, []string{"kind", "status"})
	cacheHits := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "eshopscout_cache_hits_total"}, []string{"cache"})
	cacheMisses := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "eshopscout_cache_misses_total"}, []string{"cache"})
	refreshRuns := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "eshopscout_refresh_runs_total"}, []string{"job", "result"})
	published := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "eshopscout_published_sets_total"}, []string{"result"})
	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "eshopscout_http_requests_total"}, []string{"route", "code"})
	queueLen := prometheus.NewGauge(prometheus.GaugeOpts{Name: "eshopscout_lookup_queue_length"})

	r.MustRegister(regionFetches, regionFetchSec, aggregations, aggregationSec, quotesPerSet, searches,
		cacheHits, cacheMisses, refreshRuns, published, httpRequests, queueLen)
	return &Registry{
		reg:               r,
		RegionFetches:     regionFetches,
		RegionFetchSec:    regionFetchSec,
		Aggregations:      aggregations,
		AggregationSec:    aggregationSec,
		QuotesPerSet:      quotesPerSet,
		Searches:          searches,
		CacheHits:         cacheHits,
		CacheMisses:       cacheMisses,
		RefreshRuns:       refreshRuns,
		PublishedSets:     published,
		HTTPRequests:      httpRequests,
		LookupQueueLength: queueLen,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// RegionFetch implements aggregator.Recorder.
func (r *Registry) RegionFetch(phase string, outcome aggregator.Outcome, elapsed time.Duration) {
	r.RegionFetches.WithLabelValues(phase, string(outcome)).Inc()
	r.RegionFetchSec.WithLabelValues(phase).Observe(elapsed.Seconds())
}

// Aggregated implements aggregator.Recorder.
func (r *Registry) Aggregated(quotes int, cached bool, elapsed time.Duration) {
	label := "false"
	if cached {
		label = "true"
	}
	r.Aggregations.WithLabelValues(label).Inc()
	if !cached {
		r.AggregationSec.Observe(elapsed.Seconds())
		r.QuotesPerSet.Observe(float64(quotes))
	}
}

func (r *Registry) Search(kind models.LookupKind, status models.SearchStatus) {
	r.Searches.WithLabelValues(string(kind), string(status)).Inc()
}

// CacheLookup counts a hit or miss on a named cache.
func (r *Registry) CacheLookup(cache string, hit bool) {
	if hit {
		r.CacheHits.WithLabelValues(cache).Inc()
		return
	}
	r.CacheMisses.WithLabelValues(cache).Inc()
}

func (r *Registry) Refresh(job string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.RefreshRuns.WithLabelValues(job, result).Inc()
}

func (r *Registry) Published(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.PublishedSets.WithLabelValues(result).Inc()
}

var _ aggregator.Recorder = (*Registry)(nil)
