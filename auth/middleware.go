package auth

import (
	"net/http"
)

// Authenticator validates an Authorization header value.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: failures wrap one of this package's sentinel errors.
type Authenticator interface {
	Authenticate(header string) (*Identity, error)
}

// ErrorWriter renders an authentication failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware rejects requests without a valid bearer token and attaches the
// caller's Identity to the request context. A nil onError writes a plain 401.
func Middleware(a Authenticator, onError ErrorWriter) func(http.Handler) http.Handler {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := a.Authenticate(r.Header.Get("Authorization"))
			if err != nil {
				w.Header().Set("WWW-Authenticate", `Bearer realm="agriadvisor"`)
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

var _ Authenticator = (*JWTAuthenticator)(nil)
