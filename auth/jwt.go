package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Secret is the HS256 signing secret. Required.
	Secret []byte

	// Issuer is the expected iss claim. Optional.
	Issuer string

	// Audience is the expected aud claim. Optional.
	Audience string

	// Leeway tolerates clock skew on exp/nbf/iat.
	// Default: 30 seconds
	Leeway time.Duration
}

// Claims are the token claims understood by the service.
type Claims struct {
	jwt.RegisteredClaims
	Language string `json:"lang,omitempty"`
}

// JWTAuthenticator validates and issues HS256 bearer tokens.
type JWTAuthenticator struct {
	config JWTConfig
	parser *jwt.Parser
	now    func() time.Time
}

// NewJWTAuthenticator creates an authenticator. Returns ErrMissingSecret when
// config.Secret is empty.
func NewJWTAuthenticator(config JWTConfig) (*JWTAuthenticator, error) {
	if len(config.Secret) == 0 {
		return nil, ErrMissingSecret
	}
	if config.Leeway <= 0 {
		config.Leeway = 30 * time.Second
	}

	a := &JWTAuthenticator{config: config, now: time.Now}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(config.Leeway),
		jwt.WithTimeFunc(func() time.Time { return a.now() }),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	a.parser = jwt.NewParser(opts...)
	return a, nil
}

// Authenticate validates an Authorization header value ("Bearer <token>").
func (a *JWTAuthenticator) Authenticate(header string) (*Identity, error) {
	raw, ok := bearerToken(header)
	if !ok {
		return nil, ErrMissingCredentials
	}

	var claims Claims
	_, err := a.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return a.config.Secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenMalformed
	default:
		return nil, ErrInvalidCredentials
	}

	if claims.Subject == "" {
		return nil, ErrInvalidCredentials
	}

	id := &Identity{
		Principal: claims.Subject,
		Language:  claims.Language,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	return id, nil
}

// Issue signs a token for subject valid for ttl.
func (a *JWTAuthenticator) Issue(subject, language string, ttl time.Duration) (string, error) {
	now := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    a.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Language: language,
	}
	if a.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{a.config.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.config.Secret)
}

func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(header[len(prefix):])
	return tok, tok != ""
}
