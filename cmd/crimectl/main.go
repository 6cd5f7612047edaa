// Package main is the entry point for crimectl, a terminal client that runs
// street-crime queries directly against the police API.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"streetcrime/cmd/crimectl/commands"
	"streetcrime/internal/cache"
	"streetcrime/internal/config"
	"streetcrime/internal/external"
)

func main() {
	time.Local = time.UTC
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "crimectl: %v\n", err)
		return 1
	}

	level := slog.LevelWarn
	if cfg.LogLevel == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	policy := external.DefaultRetryPolicy()
	policy.MaxRetries = cfg.PoliceAPI.MaxRetries
	base := external.NewBaseClient(
		external.NewHTTPClient(cfg.PoliceAPI.Timeout, cfg.PoliceAPI.Gzip),
		"police-api",
		policy,
		cfg.PoliceAPI.UserAgent,
	)
	src := external.NewPoliceClient(base, external.PoliceClientConfig{BaseURL: cfg.PoliceAPI.BaseURL, Logger: logger})

	cli := commands.New(commands.Deps{
		Source: src,
		Cache:  cache.New(cache.Options{TTL: cfg.Cache.TTL, Coalesce: true, ComputeTimeout: cfg.Cache.ComputeTimeout, Logger: logger}),
		Logger: logger,
		Out:    os.Stdout,
	})
	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "crimectl: %v\n", err)
		return 1
	}
	return 0
}
