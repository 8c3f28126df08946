package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"eshopscout/metrics"
	"eshopscout/middleware"
)

type RouterOptions struct {
	Logger       *slog.Logger
	Metrics      *metrics.Registry
	Keys         middleware.KeyValidator
	RateLimitRPS float64
	RateBurst    int
}

// NewRouter mounts every route behind request id, logging, rate limiting and
// API key middleware.
func NewRouter(h *Handlers, opts RouterOptions) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.RequestIDMiddleware, middleware.LoggingMiddleware(opts.Logger))
	if opts.Metrics != nil {
		r.Use(middleware.MetricsMiddleware(opts.Metrics.HTTPRequests))
	}
	if opts.RateLimitRPS > 0 {
		r.Use(middleware.RateLimitMiddleware(opts.RateLimitRPS, opts.RateBurst))
	}
	r.Use(middleware.APIKeyMiddleware(opts.Keys))

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler()).Methods(http.MethodGet)
	}

	apiV1 := r.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/search", h.SearchTitle).Methods(http.MethodGet)
	apiV1.HandleFunc("/titles/{id}/prices", h.SearchByRegionalID).Methods(http.MethodGet)
	apiV1.HandleFunc("/titles/popular", h.GetPopularTitles).Methods(http.MethodGet)
	apiV1.HandleFunc("/lookups", h.SubmitLookup).Methods(http.MethodPost)
	apiV1.HandleFunc("/lookups/stats", h.GetLookupStats).Methods(http.MethodGet)
	apiV1.HandleFunc("/lookups/{taskId}", h.GetLookup).Methods(http.MethodGet)
	apiV1.HandleFunc("/regions", h.ListRegions).Methods(http.MethodGet)
	apiV1.HandleFunc("/rates", h.ConvertAmount).Methods(http.MethodGet)

	return r
}
