package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// TestMetricsMiddleware_UsesRoutePattern ensures the metrics middleware labels
// by the chi route pattern instead of the raw URL path, keeping cardinality
// bounded for path-parameterized routes like /packages/{id}.
func TestMetricsMiddleware_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/packages/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := MetricsMiddleware(r)

	req := httptest.NewRequest(http.MethodGet, "/packages/surveillancemode", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	mrr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := mrr.Body.String()
	if !containsAll(body, "pacm_http_requests_total", "/packages/{id}") {
		t.Fatalf("expected metrics to label by route pattern /packages/{id}; got: %q", body)
	}
}

func TestRoutePatternOrPathFallsBackToURLPath(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/no/route/context", nil)
	if got := routePatternOrPath(req); got != "/no/route/context" {
		t.Fatalf("routePatternOrPath = %q, want raw path", got)
	}
}
