package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, metrics *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.RateLimitEntries(7)

	body := scrape(t, metrics)
	if !strings.Contains(body, "panel_migration_ratelimit_entries 7") {
		t.Fatalf("expected body to contain panel_migration_ratelimit_entries, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/migration/start")

	req := httptest.NewRequest(http.MethodPost, "/migration/start", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	body := scrape(t, metrics)
	if !strings.Contains(body, "panel_http_requests_total{code=\"418\",route=\"/migration/start\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", body)
	}
	if !strings.Contains(body, "panel_http_request_duration_seconds_bucket{route=\"/migration/start\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", body)
	}
}

func TestMetricsCounters(t *testing.T) {
	metrics := NewMetrics()

	metrics.AuthzDenied("/roles")
	metrics.AuthzDenied("/roles")
	metrics.MigrationFinished("completed")
	metrics.MigrationFinished("failed")

	body := scrape(t, metrics)
	if !strings.Contains(body, "panel_authz_denials_total{route=\"/roles\"} 2") {
		t.Fatalf("expected denial counter, got: %s", body)
	}
	if !strings.Contains(body, "panel_migrations_total{status=\"completed\"} 1") {
		t.Fatalf("expected migration counter, got: %s", body)
	}
	if !strings.Contains(body, "panel_migrations_total{status=\"failed\"} 1") {
		t.Fatalf("expected migration counter, got: %s", body)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.AuthzDenied("/roles")
	metrics.MigrationFinished("completed")
	metrics.RateLimitEntries(1)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 from nil metrics handler, got %d", rr.Code)
	}

	passthrough := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rr = httptest.NewRecorder()
	passthrough.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected passthrough, got %d", rr.Code)
	}
}
