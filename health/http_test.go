package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("liveness = %d %q", rec.Code, rec.Body.String())
	}
}

func TestReadinessAndDetailedHandlers(t *testing.T) {
	tests := []struct {
		name       string
		status     Status
		wantCode   int
		wantStatus string
	}{
		{"healthy", StatusHealthy, http.StatusOK, "healthy"},
		{"degraded still serves", StatusDegraded, http.StatusOK, "degraded"},
		{"unhealthy", StatusUnhealthy, http.StatusServiceUnavailable, "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := NewAggregator()
			agg.Register(fixed("cache_store", tt.status))

			mux := http.NewServeMux()
			RegisterHandlers(mux, agg)

			for _, path := range []string{"/readyz", "/health"} {
				rec := httptest.NewRecorder()
				mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

				if rec.Code != tt.wantCode {
					t.Errorf("%s code = %d, want %d", path, rec.Code, tt.wantCode)
				}
				var resp Response
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("%s body: %v", path, err)
				}
				if resp.Status != tt.wantStatus {
					t.Errorf("%s status = %q, want %q", path, resp.Status, tt.wantStatus)
				}
				if path == "/health" && resp.Checks["cache_store"].Status != tt.wantStatus {
					t.Errorf("/health checks = %+v", resp.Checks)
				}
				if path == "/readyz" && resp.Checks != nil {
					t.Error("/readyz should not include per-check details")
				}
			}
		})
	}
}

func TestRegisterHandlers_MethodNotAllowed(t *testing.T) {
	mux := http.NewServeMux()
	RegisterHandlers(mux, NewAggregator())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /healthz = %d, want 405", rec.Code)
	}
}
