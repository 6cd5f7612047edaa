// Package main is the entry point for the street-crime API server.
//
// It loads configuration, builds the police API client, the memoization
// cache (optionally backed by Redis), the telemetry backend, the force and
// period directory and the query pipeline, then serves the HTTP API until
// SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"streetcrime/internal/api/handlers"
	"streetcrime/internal/cache"
	"streetcrime/internal/config"
	"streetcrime/internal/core"
	"streetcrime/internal/crimes"
	"streetcrime/internal/directory"
	"streetcrime/internal/external"
	"streetcrime/internal/query"
	"streetcrime/internal/telemetry"
)

const (
	// directoryLoadTimeout bounds the startup fetch of forces and periods.
	directoryLoadTimeout = 30 * time.Second
	// metricsFlushInterval is how often buffered CloudWatch datums are sent.
	metricsFlushInterval = time.Minute
)

func main() {
	// Set before any goroutine starts; the http and aws stacks read it.
	time.Local = time.UTC
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("streetcrime API starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"commit", cfg.Build.Commit,
		"port", cfg.Server.Port,
		"metrics_backend", cfg.Observability.MetricsBackend,
		"redis", !cfg.Cache.RedisURL.Empty(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}

	return runHTTPServer(ctx, srv, cfg, logger)
}

// buildServer wires every component and mounts the routes. Background
// workers (cache sweeper, metrics flusher) stop when ctx is cancelled.
func buildServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*core.Server, error) {
	srv, err := core.NewServer(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}

	recorder, metricsHandler, flush, err := newRecorder(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	srv.Metrics = recorder
	srv.MetricsHandler = metricsHandler
	if flush != nil {
		srv.Closers = append(srv.Closers, flush)
	}

	police := newPoliceClient(cfg, logger)
	srv.HealthProbes = append(srv.HealthProbes, core.ProbeFunc{
		ProbeName: "police_api",
		Fn: func(context.Context) error {
			if police.BreakerOpen() {
				return errors.New("circuit breaker open")
			}
			return nil
		},
	})

	opts := cache.Options{
		TTL:            cfg.Cache.TTL,
		Coalesce:       cfg.Cache.Coalesce,
		ComputeTimeout: cfg.Cache.ComputeTimeout,
		Recorder:       recorder,
		Logger:         logger,
	}
	if !cfg.Cache.RedisURL.Empty() {
		client, err := cache.OpenRedis(cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("opening redis: %w", err)
		}
		store := cache.NewRedisStore(client, cfg.Cache.RedisPrefix)
		opts.Store = store
		srv.HealthProbes = append(srv.HealthProbes, core.ProbeFunc{ProbeName: "redis", Fn: store.Ping})
		srv.Closers = append(srv.Closers, func(context.Context) error { return client.Close() })
		logger.Info("shared cache enabled", "redis_host", cfg.Cache.RedisURL.Host(), "prefix", cfg.Cache.RedisPrefix)
	}
	memo := cache.New(opts)
	if cfg.Cache.SweepInterval > 0 {
		go memo.Run(ctx, cfg.Cache.SweepInterval)
	}

	loadCtx, cancel := context.WithTimeout(ctx, directoryLoadTimeout)
	defer cancel()
	forces, periods, err := directory.Load(loadCtx, police, memo, logger)
	if err != nil {
		return nil, fmt.Errorf("loading directory: %w", err)
	}
	if forces.Len() == 0 {
		return nil, errors.New("loading directory: police API returned no forces")
	}
	srv.HealthProbes = append(srv.HealthProbes, core.ProbeFunc{
		ProbeName: "directory",
		Fn: func(context.Context) error {
			if _, ok := periods.Latest(); !ok {
				return errors.New("no published periods")
			}
			return nil
		},
	})

	neighbourhoods := directory.NewNeighbourhoodResolver(police, memo, logger)
	pipeline := query.NewPipeline(query.Deps{
		Forces:         forces,
		Neighbourhoods: neighbourhoods,
		Fetcher:        crimes.NewFetcher(police, memo),
		Normalizer:     crimes.NewNormalizer(logger),
		Periods:        periods,
		Recorder:       recorder,
		Logger:         logger,
	})

	directoryHandler := handlers.NewDirectoryHandler(forces, neighbourhoods, periods, srv.Validator, logger)
	crimeHandler := handlers.NewCrimeHandler(pipeline, srv.Validator, logger)
	srv.V1RouteRegistrars = append(srv.V1RouteRegistrars,
		directoryHandler.RegisterRoutes,
		crimeHandler.RegisterRoutes,
	)

	srv.MountRoutes()
	return srv, nil
}

func newPoliceClient(cfg *config.Config, logger *slog.Logger) *external.PoliceClient {
	policy := external.DefaultRetryPolicy()
	policy.MaxRetries = cfg.PoliceAPI.MaxRetries

	base := external.NewBaseClient(
		external.NewHTTPClient(cfg.PoliceAPI.Timeout, cfg.PoliceAPI.Gzip),
		"police-api",
		policy,
		cfg.PoliceAPI.UserAgent,
	)
	return external.NewPoliceClient(base, external.PoliceClientConfig{
		BaseURL: cfg.PoliceAPI.BaseURL,
		Logger:  logger,
	})
}

// newRecorder selects the telemetry backend. Prometheus also returns the
// scrape handler. CloudWatch starts its flusher on ctx and returns the final
// flush, which must run at shutdown.
func newRecorder(ctx context.Context, cfg *config.Config, logger *slog.Logger) (telemetry.Recorder, http.Handler, func(context.Context) error, error) {
	switch cfg.Observability.MetricsBackend {
	case telemetry.BackendPrometheus:
		rec := telemetry.NewPrometheusRecorder()
		return rec, rec.Handler(), nil, nil

	case telemetry.BackendCloudWatch:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Observability.AWSRegion))
		if err != nil {
			return nil, nil, nil, fmt.Errorf("loading AWS config: %w", err)
		}
		rec := telemetry.NewCloudWatchRecorder(cloudwatch.NewFromConfig(awsCfg), cfg.Observability.MetricNamespace, logger)
		return rec, nil, rec.Start(ctx, metricsFlushInterval), nil

	default:
		return telemetry.Noop{}, nil, nil, nil
	}
}

// runHTTPServer serves until ctx is cancelled or the listener fails, then
// shuts down gracefully.
func runHTTPServer(ctx context.Context, srv *core.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.Server.RequestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newLogger creates a JSON slog logger at the given level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
