package core

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"streetcrime/internal/config"
)

// mockMetricsCollector implements MetricsCollector for testing.
type mockMetricsCollector struct {
	mu    sync.Mutex
	calls []metricsCall
}

type metricsCall struct {
	method, endpoint, status string
	duration                 time.Duration
}

func (m *mockMetricsCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, metricsCall{method, endpoint, status, duration})
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := NewServer(&config.Config{Environment: "local"}, slog.New(slog.DiscardHandler))
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func TestNewServer_Success(t *testing.T) {
	cfg := &config.Config{Environment: "local"}
	logger := slog.Default()

	srv, err := NewServer(cfg, logger)
	if err != nil {
		t.Fatalf("NewServer returned unexpected error: %v", err)
	}
	if srv.Config != cfg {
		t.Error("Config field not set correctly")
	}
	if srv.Logger != logger {
		t.Error("Logger field not set correctly")
	}
	if srv.Validator == nil {
		t.Error("Validator should be initialized by constructor")
	}
	if srv.Router() == nil || srv.Handler() == nil {
		t.Error("router should be initialized by constructor")
	}
}

func TestNewServer_NilDependencies(t *testing.T) {
	if _, err := NewServer(nil, slog.Default()); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := NewServer(&config.Config{}, nil); err == nil {
		t.Error("expected error for nil logger")
	}
}

func TestShutdown_RunsAllClosers(t *testing.T) {
	srv := newTestServer(t)

	var order []string
	boom := errors.New("redis close failed")
	srv.Closers = []func(context.Context) error{
		func(context.Context) error { order = append(order, "metrics"); return nil },
		func(context.Context) error { order = append(order, "redis"); return boom },
		func(context.Context) error { order = append(order, "cache"); return nil },
	}

	err := srv.Shutdown(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped closer error, got %v", err)
	}
	if len(order) != 3 || order[0] != "metrics" || order[2] != "cache" {
		t.Errorf("closers ran out of order: %v", order)
	}
}

func TestShutdown_NoClosers(t *testing.T) {
	if err := newTestServer(t).Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
