package secret

import "errors"

var (
	// ErrMissingEnv indicates a ${VAR} placeholder names an unset variable.
	ErrMissingEnv = errors.New("secret: missing required environment variables")

	// ErrProviderNotRegistered indicates a reference names an unknown provider.
	ErrProviderNotRegistered = errors.New("secret: provider not registered")

	// ErrEmptySecret indicates a strict resolver got an empty value.
	ErrEmptySecret = errors.New("secret: provider returned empty value")

	// ErrNotFound indicates the provider has no value for the reference.
	ErrNotFound = errors.New("secret: not found")
)
