package secret

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Resolver resolves secret references using registered providers.
//
// Values are first expanded with ExpandEnvStrict. A value that is entirely a
// "secretref:" reference is replaced by the resolved secret; references
// embedded in a longer value are replaced in place.
type Resolver struct {
	providers map[string]Provider
	strict    bool
}

// NewResolver creates a resolver. A strict resolver rejects empty secrets.
func NewResolver(strict bool, providers ...Provider) *Resolver {
	r := &Resolver{
		providers: make(map[string]Provider, len(providers)),
		strict:    strict,
	}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// DefaultResolver is a strict resolver with the env and file providers.
func DefaultResolver() *Resolver {
	return NewResolver(true, EnvProvider{}, FileProvider{})
}

// ResolveValue resolves environment variables and secret refs in value.
func (r *Resolver) ResolveValue(ctx context.Context, value string) (string, error) {
	expanded, err := ExpandEnvStrict(value)
	if err != nil {
		return "", err
	}
	if r == nil {
		return expanded, nil
	}

	if providerName, ref, ok := ParseSecretRef(expanded); ok {
		return r.resolve(ctx, providerName, ref)
	}
	return r.resolveInline(ctx, expanded)
}

// ParseSecretRef parses a full secret reference of the form:
//
//	secretref:<provider>:<ref>
func ParseSecretRef(value string) (provider string, ref string, ok bool) {
	rest, found := strings.CutPrefix(value, "secretref:")
	if !found {
		return "", "", false
	}
	provider, ref, found = strings.Cut(rest, ":")
	if !found || provider == "" || ref == "" {
		return "", "", false
	}
	return provider, ref, true
}

func (r *Resolver) resolve(ctx context.Context, providerName, ref string) (string, error) {
	provider, ok := r.providers[providerName]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrProviderNotRegistered, providerName)
	}
	v, err := provider.Resolve(ctx, ref)
	if err != nil {
		return "", err
	}
	if r.strict && v == "" {
		return "", fmt.Errorf("%w: %s:%s", ErrEmptySecret, providerName, ref)
	}
	return v, nil
}

// Inline references end at whitespace or '@', so DSN passwords resolve.
var inlineRefPattern = regexp.MustCompile(`secretref:([^:\s@]+):([^\s@]+)`)

func (r *Resolver) resolveInline(ctx context.Context, value string) (string, error) {
	matches := inlineRefPattern.FindAllStringSubmatchIndex(value, -1)
	if len(matches) == 0 {
		return value, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		v, err := r.resolve(ctx, value[m[2]:m[3]], value[m[4]:m[5]])
		if err != nil {
			return "", err
		}
		b.WriteString(value[last:m[0]])
		b.WriteString(v)
		last = m[1]
	}
	b.WriteString(value[last:])
	return b.String(), nil
}
