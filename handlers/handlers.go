package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"eshopscout/currency"
	"eshopscout/errs"
	"eshopscout/models"
	"eshopscout/repository"
	"eshopscout/scheduler"
)

type PriceSearcher interface {
	SearchTitle(ctx context.Context, query string) (*models.SearchResult, error)
	SearchByRegionalID(ctx context.Context, regionalID string) (*models.SearchResult, error)
}

type LookupQueue interface {
	SubmitTask(kind models.LookupKind, input string) (*models.LookupTask, error)
	GetTask(taskID string) (*models.LookupTask, bool)
	GetStats() scheduler.TaskStats
}

type RegionLister interface {
	ListActiveRegions(ctx context.Context) []models.RegionProfile
}

type Converter interface {
	Common() string
	ConvertDetailed(ctx context.Context, amount decimal.Decimal, from string) currency.Conversion
}

// PopularTitles is optional; the popular route answers 404 without it.
type PopularTitles interface {
	MostLookedUp(ctx context.Context, limit int) ([]repository.PopularTitle, error)
}

type Handlers struct {
	prices    PriceSearcher
	lookups   LookupQueue
	regions   RegionLister
	converter Converter
	popular   PopularTitles
	validate  *validator.Validate
	version   string
	started   time.Time
	logger    *slog.Logger
}

func NewHandlers(prices PriceSearcher, lookups LookupQueue, regions RegionLister, converter Converter,
	popular PopularTitles, version string, logger *slog.Logger) *Handlers {
	return &Handlers{
		prices:    prices,
		lookups:   lookups,
		regions:   regions,
		converter: converter,
		popular:   popular,
		validate:  validator.New(),
		version:   version,
		started:   time.Now(),
		logger:    logger,
	}
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   "eshopscout",
		"version":   h.version,
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}

// SearchTitle handles GET /api/v1/search?q=
func (h *Handlers) SearchTitle(w http.ResponseWriter, r *http.Request) {
	res, err := h.prices.SearchTitle(r.Context(), r.URL.Query().Get("q"))
	h.writeResult(w, res, err)
}

// SearchByRegionalID handles GET /api/v1/titles/{id}/prices
func (h *Handlers) SearchByRegionalID(w http.ResponseWriter, r *http.Request) {
	res, err := h.prices.SearchByRegionalID(r.Context(), mux.Vars(r)["id"])
	h.writeResult(w, res, err)
}

type lookupRequest struct {
	Query      string `json:"query" validate:"required_without=RegionalID,excluded_with=RegionalID"`
	RegionalID string `json:"regional_id" validate:"required_without=Query"`
}

// SubmitLookup queues an async search and returns the task id
func (h *Handlers) SubmitLookup(w http.ResponseWriter, r *http.Request) {
	var req lookupRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	req.RegionalID = strings.TrimSpace(req.RegionalID)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Exactly one of query or regional_id is required")
		return
	}

	kind, input := models.LookupByQuery, req.Query
	if req.RegionalID != "" {
		kind, input = models.LookupByRegionalID, req.RegionalID
	}

	task, err := h.lookups.SubmitTask(kind, input)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	view := task.View()
	status := http.StatusAccepted
	if view.Status == models.TaskStatusFailed {
		status = http.StatusServiceUnavailable
	}
	h.logger.Info("🚀 Async lookup queued", "task", task.ID, "kind", kind, "input", input)
	writeJSON(w, status, view)
}

// GetLookup returns the status of an async lookup
func (h *Handlers) GetLookup(w http.ResponseWriter, r *http.Request) {
	task, exists := h.lookups.GetTask(mux.Vars(r)["taskId"])
	if !exists {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, task.View())
}

// GetLookupStats returns statistics about the task manager
func (h *Handlers) GetLookupStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":     h.lookups.GetStats(),
		"timestamp": time.Now(),
	})
}

// ListRegions returns the active regions
func (h *Handlers) ListRegions(w http.ResponseWriter, r *http.Request) {
	regions := h.regions.ListActiveRegions(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(regions),
		"regions": regions,
	})
}

type convertRequest struct {
	Amount   string `validate:"required,number"`
	Currency string `validate:"required,len=3,alpha"`
}

// ConvertAmount handles GET /api/v1/rates?amount=&currency=
func (h *Handlers) ConvertAmount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := convertRequest{Amount: strings.TrimSpace(q.Get("amount")), Currency: strings.ToUpper(strings.TrimSpace(q.Get("currency")))}
	if req.Amount == "" {
		req.Amount = "1"
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "amount must be a number and currency a 3-letter code")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.IsNegative() {
		writeError(w, http.StatusBadRequest, "Invalid amount")
		return
	}

	writeJSON(w, http.StatusOK, h.converter.ConvertDetailed(r.Context(), amount, req.Currency))
}

// GetPopularTitles lists the most looked-up titles with their regional ids
func (h *Handlers) GetPopularTitles(w http.ResponseWriter, r *http.Request) {
	if h.popular == nil {
		writeError(w, http.StatusNotFound, "Lookup statistics are not enabled")
		return
	}

	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	titles, err := h.popular.MostLookedUp(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to get popular titles", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get popular titles")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(titles),
		"titles": titles,
	})
}

// writeResult maps a lookup outcome to a response. Business outcomes are
// always 200; only invalid input and unreachable catalogs are errors.
func (h *Handlers) writeResult(w http.ResponseWriter, res *models.SearchResult, err error) {
	if res == nil {
		res = models.Failed("", err)
	}
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errs.Is(err, errs.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, res)
	case errs.Is(err, errs.ErrUpstreamUnavailable), errs.Is(err, errs.ErrThrottled):
		w.Header().Set("Retry-After", "30")
		writeJSON(w, http.StatusServiceUnavailable, res)
	default:
		h.logger.Error("Unexpected lookup error", "error", err)
		writeJSON(w, http.StatusInternalServerError, res)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
