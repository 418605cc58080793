package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("a-very-long-test-signing-secret")

func newTestAuthenticator(t *testing.T, cfg JWTConfig) *JWTAuthenticator {
	t.Helper()
	if cfg.Secret == nil {
		cfg.Secret = testSecret
	}
	a, err := NewJWTAuthenticator(cfg)
	if err != nil {
		t.Fatalf("NewJWTAuthenticator() error = %v", err)
	}
	return a
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return tok
}

func TestNewJWTAuthenticator_MissingSecret(t *testing.T) {
	if _, err := NewJWTAuthenticator(JWTConfig{}); !errors.Is(err, ErrMissingSecret) {
		t.Errorf("error = %v, want ErrMissingSecret", err)
	}
}

func TestJWTAuthenticator_IssueRoundTrip(t *testing.T) {
	a := newTestAuthenticator(t, JWTConfig{Issuer: "kisanmitra", Audience: "agriadvisor"})

	tok, err := a.Issue("farmer-42", "mr", time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	id, err := a.Authenticate("Bearer " + tok)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if id.Principal != "farmer-42" {
		t.Errorf("Principal = %q, want farmer-42", id.Principal)
	}
	if id.Language != "mr" {
		t.Errorf("Language = %q, want mr", id.Language)
	}
	if id.ExpiresAt.IsZero() || id.IssuedAt.IsZero() {
		t.Error("timestamps not populated")
	}
	if id.IsExpired(time.Now()) {
		t.Error("fresh token reported expired")
	}
}

func TestJWTAuthenticator_Rejects(t *testing.T) {
	a := newTestAuthenticator(t, JWTConfig{Issuer: "kisanmitra", Audience: "agriadvisor"})
	now := time.Now()

	valid := func(mod func(*Claims)) jwt.Claims {
		c := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "farmer-1",
			Issuer:    "kisanmitra",
			Audience:  jwt.ClaimStrings{"agriadvisor"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}}
		if mod != nil {
			mod(&c)
		}
		return c
	}

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"empty header", "", ErrMissingCredentials},
		{"basic scheme", "Basic Zm9vOmJhcg==", ErrMissingCredentials},
		{"bearer without token", "Bearer   ", ErrMissingCredentials},
		{"garbage", "Bearer not.a.jwt", ErrTokenMalformed},
		{"expired", "Bearer " + sign(t, jwt.SigningMethodHS256, testSecret, valid(func(c *Claims) {
			c.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Hour))
		})), ErrTokenExpired},
		{"no expiry", "Bearer " + sign(t, jwt.SigningMethodHS256, testSecret, valid(func(c *Claims) {
			c.ExpiresAt = nil
		})), ErrInvalidCredentials},
		{"wrong secret", "Bearer " + sign(t, jwt.SigningMethodHS256, []byte("other-secret"), valid(nil)), ErrInvalidCredentials},
		{"wrong algorithm", "Bearer " + sign(t, jwt.SigningMethodHS512, testSecret, valid(nil)), ErrInvalidCredentials},
		{"wrong issuer", "Bearer " + sign(t, jwt.SigningMethodHS256, testSecret, valid(func(c *Claims) {
			c.Issuer = "someone-else"
		})), ErrInvalidCredentials},
		{"wrong audience", "Bearer " + sign(t, jwt.SigningMethodHS256, testSecret, valid(func(c *Claims) {
			c.Audience = jwt.ClaimStrings{"other"}
		})), ErrInvalidCredentials},
		{"no subject", "Bearer " + sign(t, jwt.SigningMethodHS256, testSecret, valid(func(c *Claims) {
			c.Subject = ""
		})), ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := a.Authenticate(tt.header)
			if !errors.Is(err, tt.want) {
				t.Errorf("Authenticate() error = %v, want %v", err, tt.want)
			}
			if id != nil {
				t.Errorf("Authenticate() identity = %+v, want nil", id)
			}
		})
	}
}

func TestJWTAuthenticator_SchemeCaseInsensitive(t *testing.T) {
	a := newTestAuthenticator(t, JWTConfig{})
	tok, _ := a.Issue("farmer-7", "", time.Minute)

	if _, err := a.Authenticate("bearer " + tok); err != nil {
		t.Errorf("lower-case scheme rejected: %v", err)
	}
}

func TestJWTAuthenticator_Leeway(t *testing.T) {
	a := newTestAuthenticator(t, JWTConfig{Leeway: time.Minute})
	tok, _ := a.Issue("farmer-9", "hi", time.Second)

	a.now = func() time.Time { return time.Now().Add(30 * time.Second) }
	if _, err := a.Authenticate("Bearer " + tok); err != nil {
		t.Errorf("token inside leeway rejected: %v", err)
	}

	a.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := a.Authenticate("Bearer " + tok); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("error = %v, want ErrTokenExpired", err)
	}
}
