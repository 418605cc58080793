package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kisanmitra/agriadvisor/observe"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// withRequestID propagates the caller's X-Request-ID or assigns a new one.
func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(observe.ContextWithRequestID(r.Context(), id)))
	})
}

// statusWriter records the status and size of a response.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// withLogging writes one log line per request.
func withLogging(logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}

			next.ServeHTTP(sw, r)

			if sw.status == 0 {
				sw.status = http.StatusOK
			}
			fields := []observe.Field{
				{Key: "http.method", Value: r.Method},
				{Key: "http.path", Value: r.URL.Path},
				{Key: "http.status", Value: sw.status},
				{Key: "http.size", Value: sw.size},
				{Key: "duration_ms", Value: float64(time.Since(start).Milliseconds())},
			}
			logger.Info(r.Context(), "http request", fields...)
		})
	}
}

// withBodyLimit caps request bodies at n bytes.
func withBodyLimit(n int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, n)
		}
		next.ServeHTTP(w, r)
	})
}

func fieldsFor(r *http.Request, status int, err error) []observe.Field {
	return []observe.Field{
		{Key: "http.method", Value: r.Method},
		{Key: "http.path", Value: r.URL.Path},
		{Key: "http.status", Value: status},
		{Key: "error", Value: err.Error()},
	}
}
