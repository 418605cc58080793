package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// Response is the JSON body of the readiness and detailed endpoints.
type Response struct {
	Status    string                   `json:"status"`
	Timestamp string                   `json:"timestamp"`
	Checks    map[string]CheckResponse `json:"checks,omitempty"`
}

// CheckResponse is the JSON form of one Result.
type CheckResponse struct {
	Status   string         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Duration string         `json:"duration,omitempty"`
	Details  map[string]any `json:"details,omitempty"`
	Error    string         `json:"error,omitempty"`
}

func toCheckResponse(r Result) CheckResponse {
	c := CheckResponse{
		Status:   r.Status.String(),
		Message:  r.Message,
		Duration: r.Duration.String(),
		Details:  r.Details,
	}
	if r.Error != nil {
		c.Error = r.Error.Error()
	}
	return c
}

func statusCode(s Status) int {
	if s.Serving() {
		return http.StatusOK
	}
	return http.StatusServiceUnavailable
}

// LivenessHandler answers 200 while the process is running.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler answers 200 unless a checker is unhealthy. The body is
// the overall status only.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := Overall(agg.CheckAll(r.Context()))
		writeJSON(w, statusCode(status), Response{
			Status:    status.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// DetailedHandler answers like ReadinessHandler and includes every check.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := agg.CheckAll(r.Context())
		status := Overall(results)

		resp := Response{
			Status:    status.String(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    make(map[string]CheckResponse, len(results)),
		}
		for name, res := range results {
			resp.Checks[name] = toCheckResponse(res)
		}
		writeJSON(w, statusCode(status), resp)
	}
}

// RegisterHandlers mounts /healthz, /readyz and /health on mux.
func RegisterHandlers(mux *http.ServeMux, agg *Aggregator) {
	mux.HandleFunc("GET /healthz", LivenessHandler())
	mux.HandleFunc("GET /readyz", ReadinessHandler(agg))
	mux.HandleFunc("GET /health", DetailedHandler(agg))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
