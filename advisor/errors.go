package advisor

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnsupportedLanguage = errors.New("advisor: unsupported language")
	ErrMissingAPIKey       = errors.New("advisor: api key is required")
	ErrNilGenerator        = errors.New("advisor: generator is nil")
	ErrNilCoordinator      = errors.New("advisor: coordinator is nil")
	ErrEmptyResponse       = errors.New("advisor: empty response from model")
	ErrInvalidResponse     = errors.New("advisor: response does not match schema")
	ErrLocationNotFound    = errors.New("advisor: location could not be resolved")
	ErrInvalidInput        = errors.New("advisor: invalid input")
)

// APIError is a non-2xx response from the Gemini API.
type APIError struct {
	Code    int    // HTTP status code
	Status  string // API status, e.g. "RESOURCE_EXHAUSTED"
	Message string
}

func (e *APIError) Error() string {
	status := e.Status
	if status == "" {
		status = http.StatusText(e.Code)
	}
	if e.Message == "" {
		return fmt.Sprintf("advisor: gemini api error %d %s", e.Code, status)
	}
	return fmt.Sprintf("advisor: gemini api error %d %s: %s", e.Code, status, e.Message)
}

// StatusCode returns the HTTP status code.
func (e *APIError) StatusCode() int {
	return e.Code
}
