package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/kisanmitra/agriadvisor/cache"
	"github.com/kisanmitra/agriadvisor/coordinator"
	"github.com/kisanmitra/agriadvisor/observe"
	"github.com/kisanmitra/agriadvisor/resilience"
	"github.com/kisanmitra/agriadvisor/secret"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Config is the root configuration.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Gemini      GeminiConfig      `toml:"gemini"`
	Store       StoreConfig       `toml:"store"`
	Cache       CacheConfig       `toml:"cache"`
	Coordinator CoordinatorConfig `toml:"coordinator"`
	RateLimit   RateLimitConfig   `toml:"rate_limit"`
	Auth        AuthConfig        `toml:"auth"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	ReadTimeout     time.Duration `toml:"read_timeout"`
	WriteTimeout    time.Duration `toml:"write_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	MaxRequestBytes int64         `toml:"max_request_bytes"`
}

// GeminiConfig configures the upstream generative API.
type GeminiConfig struct {
	APIKey      string        `toml:"api_key"`
	BaseURL     string        `toml:"base_url"`
	Model       string        `toml:"model"`
	SpeechModel string        `toml:"speech_model"`
	Timeout     time.Duration `toml:"timeout"`
}

// StoreConfig selects the persistent store behind the cache.
type StoreConfig struct {
	Driver string `toml:"driver"` // memory|redis|postgres

	// MemoryCapacity bounds the memory store in bytes. Zero is unbounded.
	MemoryCapacity int `toml:"memory_capacity"`

	RedisAddr     string `toml:"redis_addr"`
	RedisDB       int    `toml:"redis_db"`
	RedisPassword string `toml:"redis_password"`

	PostgresDSN   string `toml:"postgres_dsn"`
	PostgresTable string `toml:"postgres_table"`
}

// CacheConfig configures key derivation and per-site TTLs.
type CacheConfig struct {
	Namespace  string                   `toml:"namespace"`
	KeyVersion string                   `toml:"key_version"`
	TTLs       map[string]time.Duration `toml:"ttls"`
	MaxTTL     time.Duration            `toml:"max_ttl"`
}

// CoordinatorConfig configures cooldown and retry.
type CoordinatorConfig struct {
	CooldownWindow   time.Duration `toml:"cooldown_window"`
	MaxAttempts      int           `toml:"max_attempts"`
	RetryDelay       time.Duration `toml:"retry_delay"`
	RateLimitMarkers []string      `toml:"rate_limit_markers"`
}

// RateLimitConfig paces outbound calls to the upstream API.
type RateLimitConfig struct {
	Rate    float64       `toml:"rate"`
	Burst   int           `toml:"burst"`
	MaxWait time.Duration `toml:"max_wait"`
}

// AuthConfig enables bearer token auth on the API when Secret is set.
type AuthConfig struct {
	Secret   string        `toml:"secret"`
	Issuer   string        `toml:"issuer"`
	Audience string        `toml:"audience"`
	Leeway   time.Duration `toml:"leeway"`
}

// Enabled reports whether a signing secret is configured.
func (a AuthConfig) Enabled() bool {
	return a.Secret != ""
}

// TelemetryConfig configures package observe.
type TelemetryConfig struct {
	ServiceName     string  `toml:"service_name"`
	Version         string  `toml:"version"`
	TracingEnabled  bool    `toml:"tracing_enabled"`
	TracingExporter string  `toml:"tracing_exporter"`
	SamplePct       float64 `toml:"sample_pct"`
	MetricsEnabled  bool    `toml:"metrics_enabled"`
	MetricsExporter string  `toml:"metrics_exporter"`
	OTLPEndpoint    string  `toml:"otlp_endpoint"`
	OTLPInsecure    bool    `toml:"otlp_insecure"`
	LogLevel        string  `toml:"log_level"`
}

// Default returns the configuration agriadvisord ships with.
func Default() *Config {
	policy := cache.DefaultPolicy()
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			MaxRequestBytes: 10 << 20,
		},
		Gemini: GeminiConfig{
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			Model:       "gemini-3-flash-preview",
			SpeechModel: "gemini-2.5-flash-preview-tts",
			Timeout:     60 * time.Second,
		},
		Store: StoreConfig{
			Driver:    DriverMemory,
			RedisAddr: "localhost:6379",
		},
		Cache: CacheConfig{
			Namespace:  cache.DefaultNamespace,
			KeyVersion: "v2",
			TTLs:       policy.TTLs,
			MaxTTL:     policy.MaxTTL,
		},
		Coordinator: CoordinatorConfig{
			CooldownWindow:   coordinator.DefaultCooldownWindow,
			MaxAttempts:      coordinator.DefaultMaxAttempts,
			RetryDelay:       coordinator.DefaultRetryDelay,
			RateLimitMarkers: append([]string(nil), coordinator.DefaultMarkers...),
		},
		RateLimit: RateLimitConfig{
			Rate:    1,
			Burst:   5,
			MaxWait: 5 * time.Second,
		},
		Auth: AuthConfig{
			Leeway: 30 * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:     "agriadvisord",
			Version:         "dev",
			TracingExporter: "none",
			SamplePct:       1,
			MetricsEnabled:  true,
			MetricsExporter: "prometheus",
			LogLevel:        "info",
		},
	}
}

// Load reads configuration from path (may be empty), the .env file in the
// working directory and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg.applyEnv(newEnv())
	return cfg, nil
}

// loadDotEnv loads file into the environment when it exists. Variables
// already set in the environment are kept.
func loadDotEnv(file string) error {
	if _, err := os.Stat(file); err != nil {
		return nil
	}
	if err := godotenv.Load(file); err != nil {
		return fmt.Errorf("%w: %v", ErrLoadEnvFile, err)
	}
	return nil
}

func newEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("AGRI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// applyEnv overrides cfg with every AGRI_* variable that is set, for example
// AGRI_SERVER_ADDR or AGRI_GEMINI_API_KEY.
func (c *Config) applyEnv(v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = v.GetDuration(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	str("server.addr", &c.Server.Addr)
	dur("server.read_timeout", &c.Server.ReadTimeout)
	dur("server.write_timeout", &c.Server.WriteTimeout)
	dur("server.shutdown_timeout", &c.Server.ShutdownTimeout)
	if v.IsSet("server.max_request_bytes") {
		c.Server.MaxRequestBytes = v.GetInt64("server.max_request_bytes")
	}

	str("gemini.api_key", &c.Gemini.APIKey)
	str("gemini.base_url", &c.Gemini.BaseURL)
	str("gemini.model", &c.Gemini.Model)
	str("gemini.speech_model", &c.Gemini.SpeechModel)
	dur("gemini.timeout", &c.Gemini.Timeout)

	str("store.driver", &c.Store.Driver)
	num("store.memory_capacity", &c.Store.MemoryCapacity)
	str("store.redis_addr", &c.Store.RedisAddr)
	num("store.redis_db", &c.Store.RedisDB)
	str("store.redis_password", &c.Store.RedisPassword)
	str("store.postgres_dsn", &c.Store.PostgresDSN)
	str("store.postgres_table", &c.Store.PostgresTable)

	str("cache.namespace", &c.Cache.Namespace)
	str("cache.key_version", &c.Cache.KeyVersion)
	dur("cache.max_ttl", &c.Cache.MaxTTL)
	for _, site := range []string{cache.SiteLocation, cache.SiteWeather, cache.SiteMandi, cache.SiteDrones, cache.SiteSchemes} {
		key := "cache.ttl." + site
		if v.IsSet(key) {
			if c.Cache.TTLs == nil {
				c.Cache.TTLs = make(map[string]time.Duration)
			}
			c.Cache.TTLs[site] = v.GetDuration(key)
		}
	}

	dur("coordinator.cooldown_window", &c.Coordinator.CooldownWindow)
	num("coordinator.max_attempts", &c.Coordinator.MaxAttempts)
	dur("coordinator.retry_delay", &c.Coordinator.RetryDelay)
	if v.IsSet("coordinator.rate_limit_markers") {
		c.Coordinator.RateLimitMarkers = splitList(v.GetString("coordinator.rate_limit_markers"))
	}

	if v.IsSet("rate_limit.rate") {
		c.RateLimit.Rate = v.GetFloat64("rate_limit.rate")
	}
	num("rate_limit.burst", &c.RateLimit.Burst)
	dur("rate_limit.max_wait", &c.RateLimit.MaxWait)

	str("auth.secret", &c.Auth.Secret)
	str("auth.issuer", &c.Auth.Issuer)
	str("auth.audience", &c.Auth.Audience)
	dur("auth.leeway", &c.Auth.Leeway)

	str("telemetry.service_name", &c.Telemetry.ServiceName)
	str("telemetry.version", &c.Telemetry.Version)
	if v.IsSet("telemetry.tracing_enabled") {
		c.Telemetry.TracingEnabled = v.GetBool("telemetry.tracing_enabled")
	}
	str("telemetry.tracing_exporter", &c.Telemetry.TracingExporter)
	if v.IsSet("telemetry.sample_pct") {
		c.Telemetry.SamplePct = v.GetFloat64("telemetry.sample_pct")
	}
	if v.IsSet("telemetry.metrics_enabled") {
		c.Telemetry.MetricsEnabled = v.GetBool("telemetry.metrics_enabled")
	}
	str("telemetry.metrics_exporter", &c.Telemetry.MetricsExporter)
	str("telemetry.otlp_endpoint", &c.Telemetry.OTLPEndpoint)
	if v.IsSet("telemetry.otlp_insecure") {
		c.Telemetry.OTLPInsecure = v.GetBool("telemetry.otlp_insecure")
	}
	str("telemetry.log_level", &c.Telemetry.LogLevel)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Resolve replaces secret references in credential fields using r.
func (c *Config) Resolve(ctx context.Context, r *secret.Resolver) error {
	fields := []struct {
		name string
		dst  *string
	}{
		{"gemini.api_key", &c.Gemini.APIKey},
		{"store.redis_password", &c.Store.RedisPassword},
		{"store.postgres_dsn", &c.Store.PostgresDSN},
		{"auth.secret", &c.Auth.Secret},
	}
	for _, f := range fields {
		if *f.dst == "" {
			continue
		}
		v, err := r.ResolveValue(ctx, *f.dst)
		if err != nil {
			return fmt.Errorf("config: resolving %s: %w", f.name, err)
		}
		*f.dst = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return ErrMissingAddr
	}
	if c.Gemini.APIKey == "" {
		return ErrMissingAPIKey
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("%w: redis_addr", ErrMissingStoreDSN)
		}
	case DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres_dsn", ErrMissingStoreDSN)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStoreDriver, c.Store.Driver)
	}

	for name, d := range map[string]time.Duration{
		"gemini.timeout":              c.Gemini.Timeout,
		"coordinator.cooldown_window": c.Coordinator.CooldownWindow,
		"coordinator.retry_delay":     c.Coordinator.RetryDelay,
		"rate_limit.max_wait":         c.RateLimit.MaxWait,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s", ErrInvalidDuration, name)
		}
	}
	if c.Coordinator.MaxAttempts < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidRetry, c.Coordinator.MaxAttempts)
	}
	if c.RateLimit.Rate <= 0 || c.RateLimit.Burst <= 0 {
		return ErrInvalidRateLimit
	}

	if _, err := c.Policy().TTL(cache.SiteLocation); err != nil {
		return err
	}

	obs := c.ObserveConfig()
	return obs.Validate()
}

// Policy returns the cache TTL policy.
func (c *Config) Policy() cache.Policy {
	return cache.Policy{TTLs: c.Cache.TTLs, MaxTTL: c.Cache.MaxTTL}
}

// KeyBuilder returns the cache key builder.
func (c *Config) KeyBuilder() cache.KeyBuilder {
	return cache.NewKeyBuilder(c.Cache.KeyVersion)
}

// RateLimiterConfig returns the outbound rate limiter settings.
func (c *Config) RateLimiterConfig() resilience.RateLimiterConfig {
	return resilience.RateLimiterConfig{
		Rate:    c.RateLimit.Rate,
		Burst:   c.RateLimit.Burst,
		MaxWait: c.RateLimit.MaxWait,
	}
}

// CoordinatorOptions returns the coordinator options for this configuration.
func (c *Config) CoordinatorOptions() []coordinator.Option {
	opts := []coordinator.Option{
		coordinator.WithCooldownWindow(c.Coordinator.CooldownWindow),
		coordinator.WithRetry(c.Coordinator.MaxAttempts, c.Coordinator.RetryDelay),
	}
	if len(c.Coordinator.RateLimitMarkers) > 0 {
		opts = append(opts, coordinator.WithClassifier(
			coordinator.NewClassifier(c.Coordinator.RateLimitMarkers...)))
	}
	return opts
}

// ObserveConfig returns the observe configuration.
func (c *Config) ObserveConfig() observe.Config {
	t := c.Telemetry
	return observe.Config{
		ServiceName: t.ServiceName,
		Version:     t.Version,
		OTLP: observe.OTLPConfig{
			Endpoint: t.OTLPEndpoint,
			Insecure: t.OTLPInsecure,
		},
		Tracing: observe.TracingConfig{
			Enabled:   t.TracingEnabled,
			Exporter:  t.TracingExporter,
			SamplePct: t.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  t.MetricsEnabled,
			Exporter: t.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   t.LogLevel,
		},
	}
}
