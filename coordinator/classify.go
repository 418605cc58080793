package coordinator

import (
	"errors"
	"net/http"
	"strings"
)

// ErrorKind classifies producer failures.
type ErrorKind int

const (
	// KindOther is any failure that is not a rate limit. It propagates
	// immediately.
	KindOther ErrorKind = iota
	// KindRateLimit opens the cooldown window and is retried.
	KindRateLimit
)

func (k ErrorKind) String() string {
	switch k {
	case KindRateLimit:
		return "rate_limit"
	default:
		return "other"
	}
}

// Classifier maps a producer error to an ErrorKind.
type Classifier func(err error) ErrorKind

// StatusCoder is implemented by errors that carry an HTTP status code.
type StatusCoder interface {
	StatusCode() int
}

// DefaultMarkers are the message fragments DefaultClassifier treats as a
// rate limit. Matching is case-insensitive.
var DefaultMarkers = []string{"429", "quota", "resource_exhausted", "rate limit"}

var defaultClassifier = NewClassifier(DefaultMarkers...)

// DefaultClassifier reports KindRateLimit for errors carrying status 429 and
// for errors whose message contains one of DefaultMarkers.
func DefaultClassifier(err error) ErrorKind {
	return defaultClassifier(err)
}

// NewClassifier is DefaultClassifier with markers in place of DefaultMarkers.
func NewClassifier(markers ...string) Classifier {
	bySubstring := NewSubstringClassifier(markers...)
	return func(err error) ErrorKind {
		if err == nil {
			return KindOther
		}
		var sc StatusCoder
		if errors.As(err, &sc) && sc.StatusCode() == http.StatusTooManyRequests {
			return KindRateLimit
		}
		return bySubstring(err)
	}
}

// NewSubstringClassifier returns a Classifier that reports KindRateLimit when
// the lower-cased error message contains any of markers.
func NewSubstringClassifier(markers ...string) Classifier {
	lowered := make([]string, 0, len(markers))
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			lowered = append(lowered, m)
		}
	}
	return func(err error) ErrorKind {
		if err == nil {
			return KindOther
		}
		msg := strings.ToLower(err.Error())
		for _, m := range lowered {
			if strings.Contains(msg, m) {
				return KindRateLimit
			}
		}
		return KindOther
	}
}
