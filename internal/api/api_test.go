package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opensource-commerce/kestrel/internal/bus"
	"github.com/opensource-commerce/kestrel/internal/cache"
	"github.com/opensource-commerce/kestrel/internal/customer"
	"github.com/opensource-commerce/kestrel/internal/domain"
	"github.com/opensource-commerce/kestrel/internal/metrics"
	"github.com/opensource-commerce/kestrel/internal/rules"
)

// stubSource serves a fixed raw table.
type stubSource struct {
	table *domain.RawTable
}

func (s *stubSource) GetRawTransactions(ctx context.Context, limit int) (*domain.RawTable, error) {
	return s.table, nil
}

func testTable() *domain.RawTable {
	return &domain.RawTable{
		Columns: []string{
			"invoice_no", "stock_code", "description", "quantity",
			"invoice_date", "unit_price", "customer_id", "country",
		},
		Rows: [][]string{
			{"inv-1", "SKU-A", "WIDGET", "2", "2011-01-15 10:00:00", "5", "c1", "United Kingdom"},
			{"inv-2", "SKU-B", "GADGET", "1", "2011-03-10 10:00:00", "30", "c2", "France"},
		},
	}
}

// createTestServer wires a server over a fixed table, an in-memory cache and
// a channel bus.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	store := cache.NewMemoryCache(100)
	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() {
		eventBus.Close()
		store.Close()
	})

	segments, err := rules.NewSegmentEngine()
	if err != nil {
		t.Fatalf("failed to create segment engine: %v", err)
	}
	if err := segments.LoadRules(rules.BuiltinSegmentRules()); err != nil {
		t.Fatalf("failed to load segment rules: %v", err)
	}

	engine := metrics.NewEngine(&stubSource{table: testTable()}, store, domain.MetricsConfig{
		DatasetTTL: time.Minute,
		ResultTTL:  time.Minute,
		Currency:   "USD",
		MaxScore:   5,
	})
	customers := customer.NewEngine(engine, segments, 5)

	return NewServer(cfg, engine, customers, store, eventBus, "test-v1")
}

func doRequest(t *testing.T, server *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("Health", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/health")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var body map[string]string
		decodeBody(t, rec, &body)
		if body["status"] != "healthy" {
			t.Errorf("expected healthy, got %q", body["status"])
		}
		if body["version"] != "test-v1" {
			t.Errorf("expected version test-v1, got %q", body["version"])
		}
	})

	t.Run("Ready", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/ready")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("RequestIDHeader", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/health")
		if rec.Header().Get(RequestIDHeader) == "" {
			t.Error("expected request id header to be set")
		}
	})
}

func TestKPISummaryEndpoint(t *testing.T) {
	server := createTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/analysis/kpi_summary")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary domain.KPISummary
	decodeBody(t, rec, &summary)
	if summary.TotalRevenue != 40 {
		t.Errorf("total revenue = %f, want 40", summary.TotalRevenue)
	}
	if summary.Currency != "USD" {
		t.Errorf("currency = %q, want USD", summary.Currency)
	}
}

func TestSeriesEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("DefaultsToMonth", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/analysis/series")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var series []domain.Serie
		decodeBody(t, rec, &series)
		if len(series) != 3 {
			t.Errorf("expected 3 monthly buckets, got %d", len(series))
		}
	})

	t.Run("ExplicitType", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/analysis/series?serie_type=year")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var series []domain.Serie
		decodeBody(t, rec, &series)
		if len(series) != 1 {
			t.Errorf("expected 1 yearly bucket, got %d", len(series))
		}
	})

	t.Run("InvalidType", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/analysis/series?serie_type=quarter")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestTopCountriesEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("Default", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/analysis/top_countries")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var countries []domain.CountryRevenue
		decodeBody(t, rec, &countries)
		if len(countries) != 2 || countries[0].Country != "France" {
			t.Errorf("expected France first of 2, got %+v", countries)
		}
	})

	t.Run("AscendingWithLimit", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/analysis/top_countries?ascending=true&limit=1")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var countries []domain.CountryRevenue
		decodeBody(t, rec, &countries)
		if len(countries) != 1 || countries[0].Country != "United Kingdom" {
			t.Errorf("expected United Kingdom only, got %+v", countries)
		}
	})

	t.Run("InvalidSortValue", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/analysis/top_countries?sort_value=profit")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("ByName", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/analysis/top_countries/France")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var country domain.CountryRevenue
		decodeBody(t, rec, &country)
		if country.Revenue != 30 {
			t.Errorf("France revenue = %f, want 30", country.Revenue)
		}
	})

	t.Run("ByNameNotFound", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/analysis/top_countries/Atlantis")
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestTopProductsEndpoint(t *testing.T) {
	server := createTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/analysis/top_products")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var products []domain.ProductRevenue
	decodeBody(t, rec, &products)
	if len(products) != 2 || products[0].ProductID != "SKU-B" {
		t.Errorf("expected SKU-B first of 2, got %+v", products)
	}
}

func TestPageEndpoint(t *testing.T) {
	server := createTestServer(t)

	rec := doRequest(t, server, http.MethodGet, "/analysis/page?page=1&limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var page domain.Page[domain.Transaction]
	decodeBody(t, rec, &page)
	if page.TotalResults != 2 || page.TotalPages != 2 {
		t.Errorf("expected 2 results over 2 pages, got %d over %d", page.TotalResults, page.TotalPages)
	}
	if len(page.Results) != 1 || page.Results[0].InvoiceNo != "inv-1" {
		t.Errorf("expected inv-1 on first page, got %+v", page.Results)
	}
}

func TestCustomerEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("RFM", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/metrics/customers/rfm")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var results []domain.RFMAnalysis
		decodeBody(t, rec, &results)
		if len(results) != 2 {
			t.Fatalf("expected 2 customers, got %d", len(results))
		}
		for _, r := range results {
			if r.SegmentName == "" {
				t.Errorf("customer %s has no segment", r.CustomerID)
			}
		}
	})

	t.Run("RFMPage", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/metrics/customers/rfm/page?page=1&limit=1")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var page domain.Page[domain.RFMAnalysis]
		decodeBody(t, rec, &page)
		if page.TotalResults != 2 {
			t.Errorf("expected 2 customers, got %d", page.TotalResults)
		}
		// c2 spent 30, c1 spent 10; the page is spend-ranked.
		if len(page.Results) != 1 || page.Results[0].CustomerID != "c2" {
			t.Errorf("expected c2 first, got %+v", page.Results)
		}
	})

	t.Run("TopSpenders", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodGet, "/metrics/customers/top-spenders?limit=1")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var spenders []domain.Spender
		decodeBody(t, rec, &spenders)
		if len(spenders) != 1 || spenders[0].CustomerID != "c2" {
			t.Errorf("expected c2 as top spender, got %+v", spenders)
		}
	})
}

func TestAdminEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("ClearCache", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodDelete, "/admin/cache")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("WarmUpCache", func(t *testing.T) {
		rec := doRequest(t, server, http.MethodPost, "/admin/tasks/warm-up-cache")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestCORSPreflight(t *testing.T) {
	server := createTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/analysis/kpi_summary", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("expected origin echo, got %q", got)
	}
}
