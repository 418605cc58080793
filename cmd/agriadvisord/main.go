// Command agriadvisord serves the farmer advisory API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kisanmitra/agriadvisor/advisor"
	"github.com/kisanmitra/agriadvisor/auth"
	"github.com/kisanmitra/agriadvisor/cache"
	"github.com/kisanmitra/agriadvisor/config"
	"github.com/kisanmitra/agriadvisor/coordinator"
	"github.com/kisanmitra/agriadvisor/health"
	"github.com/kisanmitra/agriadvisor/observe"
	"github.com/kisanmitra/agriadvisor/resilience"
	"github.com/kisanmitra/agriadvisor/secret"
	"github.com/kisanmitra/agriadvisor/server"
)

func main() {
	configPath := flag.String("config", "agriadvisor.toml", "Path to configuration file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "agriadvisord: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Resolve(ctx, secret.DefaultResolver()); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	obsCfg := cfg.ObserveConfig()
	obsCfg.Metrics.Registerer = registry
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()
	logger := obs.Logger()

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn(context.WithoutCancel(ctx), "closing cache store", observe.Field{Key: "error", Value: err.Error()})
		}
	}()

	ttlCache, err := cache.New(store,
		cache.WithNamespace(cfg.Cache.Namespace),
		cache.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	outcomes, err := observe.NewOutcomeCounter(obs.Meter())
	if err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	coord, err := coordinator.New(ttlCache, append(cfg.CoordinatorOptions(),
		coordinator.WithOutcomeHook(func(ctx context.Context, _ string, o coordinator.Outcome) {
			outcomes.Record(ctx, string(o))
		}),
	)...)
	if err != nil {
		return err
	}

	gemini, err := advisor.NewGeminiClient(advisor.GeminiConfig{
		APIKey:      cfg.Gemini.APIKey,
		BaseURL:     cfg.Gemini.BaseURL,
		Model:       cfg.Gemini.Model,
		SpeechModel: cfg.Gemini.SpeechModel,
		Timeout:     cfg.Gemini.Timeout,
		Limiter:     resilience.NewRateLimiter(cfg.RateLimiterConfig()),
	})
	if err != nil {
		return err
	}

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		return err
	}
	svc, err := advisor.NewService(gemini, coord,
		advisor.WithKeyBuilder(cfg.KeyBuilder()),
		advisor.WithPolicy(cfg.Policy()),
		advisor.WithMiddleware(mw),
	)
	if err != nil {
		return err
	}

	agg := health.NewAggregator()
	agg.Register(health.NewStoreChecker(store))
	agg.Register(health.NewCooldownChecker(coord))

	deps := server.Deps{
		Service: svc,
		Health:  agg,
		Logger:  logger,
	}
	if cfg.Telemetry.MetricsEnabled && cfg.Telemetry.MetricsExporter == "prometheus" {
		deps.Gatherer = registry
	}
	if cfg.Auth.Enabled() {
		authn, err := auth.NewJWTAuthenticator(auth.JWTConfig{
			Secret:   []byte(cfg.Auth.Secret),
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
			Leeway:   cfg.Auth.Leeway,
		})
		if err != nil {
			return err
		}
		deps.Auth = authn
	}

	srv, err := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		MaxRequestBytes: cfg.Server.MaxRequestBytes,
	}, deps)
	if err != nil {
		return err
	}

	logger.Info(ctx, "starting agriadvisord",
		observe.Field{Key: "store", Value: cfg.Store.Driver},
		observe.Field{Key: "auth", Value: cfg.Auth.Enabled()},
	)
	if err := srv.ListenAndServe(ctx, cfg.Server.ShutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (cache.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Driver {
	case config.DriverRedis:
		s := cache.NewRedisStore(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPassword,
		})
		return s, s.Close, nil
	case config.DriverPostgres:
		s, err := cache.OpenPostgresStore(ctx, cfg.PostgresDSN, cfg.PostgresTable)
		if err != nil {
			return nil, noop, fmt.Errorf("postgres store: %w", err)
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, noop, fmt.Errorf("postgres store: %w", err)
		}
		return s, s.Close, nil
	default:
		return cache.NewMemoryStore(cfg.MemoryCapacity), noop, nil
	}
}
