package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kisanmitra/agriadvisor/advisor"
	"github.com/kisanmitra/agriadvisor/auth"
	"github.com/kisanmitra/agriadvisor/coordinator"
	"github.com/kisanmitra/agriadvisor/resilience"
)

var (
	ErrNilService = errors.New("server: advisor service is nil")
	ErrBadRequest = errors.New("server: malformed request body")
	ErrNotFound   = errors.New("server: not found")
)

// Error codes in response bodies.
const (
	codeBadRequest   = "bad_request"
	codeUnauthorized = "unauthorized"
	codeNotFound     = "not_found"
	codeThrottled    = "throttled"
	codeUpstream     = "upstream_error"
	codeTimeout      = "timeout"
	codeInternal     = "internal"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// classify maps err onto an HTTP status and an error code.
func classify(err error) (int, string) {
	var apiErr *advisor.APIError
	switch {
	case errors.Is(err, coordinator.ErrThrottled),
		errors.Is(err, resilience.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, codeThrottled
	case errors.As(err, &apiErr):
		if apiErr.StatusCode() == http.StatusTooManyRequests {
			return http.StatusTooManyRequests, codeThrottled
		}
		return http.StatusBadGateway, codeUpstream
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, advisor.ErrInvalidInput),
		errors.Is(err, advisor.ErrUnsupportedLanguage):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, auth.ErrMissingCredentials),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrTokenExpired),
		errors.Is(err, auth.ErrTokenMalformed):
		return http.StatusUnauthorized, codeUnauthorized
	case errors.Is(err, ErrNotFound),
		errors.Is(err, advisor.ErrLocationNotFound):
		return http.StatusNotFound, codeNotFound
	case errors.Is(err, advisor.ErrInvalidResponse),
		errors.Is(err, advisor.ErrEmptyResponse):
		return http.StatusBadGateway, codeUpstream
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, codeTimeout
	default:
		return http.StatusInternalServerError, codeInternal
	}
}

// publicMessage hides internal error text from clients.
func publicMessage(status int, err error) string {
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway && status != http.StatusGatewayTimeout {
		return http.StatusText(status)
	}
	return err.Error()
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	if status == http.StatusTooManyRequests {
		if retry := s.retryAfter(err); retry > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
		}
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", fieldsFor(r, status, err)...)
	} else {
		s.logger.Debug(r.Context(), "request rejected", fieldsFor(r, status, err)...)
	}

	writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: publicMessage(status, err)}})
}

// retryAfter is the time until the cooldown closes.
func (s *Server) retryAfter(err error) time.Duration {
	coord := s.svc.Coordinator()
	var throttled *coordinator.ThrottledError
	if errors.As(err, &throttled) {
		return throttled.RetryAfter(coord.Now())
	}
	return (&coordinator.ThrottledError{Until: coord.CooldownUntil()}).RetryAfter(coord.Now())
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
