package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMiddleware(t *testing.T) {
	a := newTestAuthenticator(t, JWTConfig{})
	tok, err := a.Issue("farmer-3", "hi", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	var seen *Identity
	h := Middleware(a, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name     string
		header   string
		wantCode int
	}{
		{"valid", "Bearer " + tok, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"invalid", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/v1/weather", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusUnauthorized {
				if rec.Header().Get("WWW-Authenticate") == "" {
					t.Error("WWW-Authenticate header missing")
				}
				if seen != nil {
					t.Error("handler ran for an unauthenticated request")
				}
			} else if seen == nil || seen.Principal != "farmer-3" {
				t.Errorf("identity = %+v", seen)
			}
		})
	}
}

func TestMiddleware_CustomErrorWriter(t *testing.T) {
	a := newTestAuthenticator(t, JWTConfig{})

	var got error
	h := Middleware(a, func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusTeapot)
	})(http.NotFoundHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot || !errors.Is(got, ErrMissingCredentials) {
		t.Errorf("code = %d, err = %v", rec.Code, got)
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	if IdentityFromContext(ctx) != nil || PrincipalFromContext(ctx) != "" {
		t.Error("empty context returned an identity")
	}

	ctx = WithIdentity(ctx, &Identity{Principal: "farmer-5"})
	if PrincipalFromContext(ctx) != "farmer-5" {
		t.Errorf("PrincipalFromContext() = %q", PrincipalFromContext(ctx))
	}
}
