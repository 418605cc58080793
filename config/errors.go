package config

import "errors"

var (
	ErrMissingAPIKey      = errors.New("config: gemini api key is required")
	ErrInvalidStoreDriver = errors.New("config: invalid store driver")
	ErrMissingStoreDSN    = errors.New("config: store driver requires a connection setting")
	ErrInvalidDuration    = errors.New("config: duration must be positive")
	ErrInvalidRetry       = errors.New("config: max attempts must be at least 1")
	ErrInvalidRateLimit   = errors.New("config: rate limit must be positive")
	ErrMissingAddr        = errors.New("config: http address is required")
	ErrLoadEnvFile        = errors.New("config: failed to load .env")
)
