package auth

import (
	"context"
	"time"
)

// Identity is an authenticated caller.
type Identity struct {
	// Principal is the token subject (the farmer's account id).
	Principal string

	// Language is the preferred response language from the "lang" claim.
	Language string

	ExpiresAt time.Time
	IssuedAt  time.Time
}

// IsExpired reports whether the identity has expired at now.
func (id *Identity) IsExpired(now time.Time) bool {
	return !id.ExpiresAt.IsZero() && !now.Before(id.ExpiresAt)
}

type identityKey struct{}

// WithIdentity returns a context carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity attached by Middleware, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// PrincipalFromContext returns the authenticated principal, or "".
func PrincipalFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Principal
	}
	return ""
}
