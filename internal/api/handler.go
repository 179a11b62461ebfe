package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/opensource-commerce/kestrel/internal/customer"
	"github.com/opensource-commerce/kestrel/internal/domain"
	"github.com/opensource-commerce/kestrel/internal/metrics"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	engine    *metrics.Engine
	customers *customer.Engine
	cache     domain.Cache
	bus       domain.EventBus
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(engine *metrics.Engine, customers *customer.Engine, cacheStore domain.Cache, eventBus domain.EventBus, version string) *Handler {
	return &Handler{
		engine:    engine,
		customers: customers,
		cache:     cacheStore,
		bus:       eventBus,
		version:   version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// KPISummary handles GET /analysis/kpi_summary.
func (h *Handler) KPISummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.engine.KPISummary(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Series handles GET /analysis/series?serie_type=month.
func (h *Handler) Series(w http.ResponseWriter, r *http.Request) {
	serieType := domain.SerieType(r.URL.Query().Get("serie_type"))
	if serieType == "" {
		serieType = domain.SerieMonth
	}

	series, err := h.engine.Series(r.Context(), serieType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// TopCountries handles GET /analysis/top_countries.
func (h *Handler) TopCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.engine.TopCountries(r.Context(), rankParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countries)
}

// TopCountryByName handles GET /analysis/top_countries/{name}.
func (h *Handler) TopCountryByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	country, err := h.engine.CountryByName(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, country)
}

// TopProducts handles GET /analysis/top_products.
func (h *Handler) TopProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.engine.TopProducts(r.Context(), rankParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// Rows handles GET /analysis/page.
func (h *Handler) Rows(w http.ResponseWriter, r *http.Request) {
	page, err := h.engine.Rows(r.Context(), pageParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// TopSpenders handles GET /metrics/customers/top-spenders.
func (h *Handler) TopSpenders(w http.ResponseWriter, r *http.Request) {
	params := rankParams(r)

	spenders, err := h.customers.TopSpenders(r.Context(), params.Limit, params.Ascending)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, spenders)
}

// RFMAnalysis handles GET /metrics/customers/rfm.
func (h *Handler) RFMAnalysis(w http.ResponseWriter, r *http.Request) {
	results, err := h.customers.RFMAnalysis(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

// RFMPage handles GET /metrics/customers/rfm/page.
func (h *Handler) RFMPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.customers.RFMPage(r.Context(), pageParams(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// ClearCache handles DELETE /admin/cache: coarse flush of the whole
// namespace.
func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.FlushCache(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Cache cleared successfully",
	})
}

// WarmUpCache handles POST /admin/tasks/warm-up-cache: force recompute of
// the dataset cache, outside the lazy request path.
func (h *Handler) WarmUpCache(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.WarmUp(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Cache warmed up successfully",
	})
}

func rankParams(r *http.Request) domain.RankParams {
	params := domain.DefaultRankParams()
	q := r.URL.Query()

	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		params.Limit = v
	}
	if v, err := strconv.ParseBool(q.Get("ascending")); err == nil {
		params.Ascending = v
	}
	if v := q.Get("sort_value"); v != "" {
		params.SortValue = domain.SortValue(v)
	}
	return params
}

func pageParams(r *http.Request) domain.PageParams {
	params := domain.PageParams{Page: 1, Limit: 10}
	q := r.URL.Query()

	if v, err := strconv.Atoi(q.Get("page")); err == nil && v > 0 {
		params.Page = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		params.Limit = v
	}
	return params.Normalize()
}

// writeError translates domain errors into structured error responses.
// Schema and infrastructure failures surface as 500s; cache failures never
// reach here, they degrade inside the engine.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		var schemaErr *domain.SchemaError
		if errors.As(err, &schemaErr) {
			slog.Error("raw table failed schema validation", "error", err)
		} else {
			slog.Error("request failed", "error", err)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
