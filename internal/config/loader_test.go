package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearServiceEnv unsets every variable the loader reads so host settings do
// not leak into assertions. t.Setenv restores the originals afterwards.
func clearServiceEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_ENV", "SERVICE_NAME", "LOG_LEVEL",
		"PORT", "REQUEST_TIMEOUT", "CORS_ALLOWED_ORIGINS",
		"POLICE_API_BASE_URL", "POLICE_API_TIMEOUT", "POLICE_API_MAX_RETRIES",
		"POLICE_API_USER_AGENT", "POLICE_API_GZIP",
		"CACHE_TTL", "CACHE_SWEEP_INTERVAL", "CACHE_COALESCE", "CACHE_COMPUTE_TIMEOUT",
		"CACHE_REDIS_URL", "CACHE_REDIS_PREFIX",
		"METRICS_BACKEND", "METRIC_NAMESPACE", "AWS_REGION",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// chdirTemp moves into an empty directory so no stray .env is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
}

func TestLoadConfigLeavesLocalTimezone(t *testing.T) {
	clearServiceEnv(t)
	chdirTemp(t)

	prev := time.Local
	zone := time.FixedZone("BST", 3600)
	time.Local = zone
	t.Cleanup(func() { time.Local = prev })

	if _, err := LoadConfig(); err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if time.Local != zone {
		t.Errorf("time.Local = %v, want it untouched", time.Local)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearServiceEnv(t)
	chdirTemp(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Environment != "local" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "local")
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want default %q", cfg.Server.Port, "8080")
	}
	if cfg.PoliceAPI.BaseURL != "https://data.police.uk/api" {
		t.Errorf("PoliceAPI.BaseURL = %q", cfg.PoliceAPI.BaseURL)
	}
	if cfg.PoliceAPI.Timeout != 10*time.Second {
		t.Errorf("PoliceAPI.Timeout = %v, want 10s", cfg.PoliceAPI.Timeout)
	}
	if cfg.PoliceAPI.MaxRetries != 2 {
		t.Errorf("PoliceAPI.MaxRetries = %d, want 2", cfg.PoliceAPI.MaxRetries)
	}
	if !cfg.PoliceAPI.Gzip {
		t.Error("PoliceAPI.Gzip = false, want default true")
	}
	if cfg.Cache.TTL != 10*time.Second {
		t.Errorf("Cache.TTL = %v, want 10s", cfg.Cache.TTL)
	}
	if !cfg.Cache.Coalesce {
		t.Error("Cache.Coalesce = false, want default true")
	}
	if cfg.Cache.ComputeTimeout != 30*time.Second {
		t.Errorf("Cache.ComputeTimeout = %v, want 30s", cfg.Cache.ComputeTimeout)
	}
	if !cfg.Cache.RedisURL.Empty() {
		t.Error("Cache.RedisURL should be empty by default")
	}
	if cfg.Observability.MetricsBackend != "prometheus" {
		t.Errorf("MetricsBackend = %q, want prometheus", cfg.Observability.MetricsBackend)
	}
	if len(cfg.Server.CorsAllowedOrigins) != 1 || cfg.Server.CorsAllowedOrigins[0] != "*" {
		t.Errorf("CorsAllowedOrigins = %v, want [*]", cfg.Server.CorsAllowedOrigins)
	}
	if cfg.Build.Version != "dev" {
		t.Errorf("Build.Version = %q, want dev", cfg.Build.Version)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	clearServiceEnv(t)
	chdirTemp(t)

	t.Setenv("APP_ENV", "prod")
	t.Setenv("CACHE_TTL", "45s")
	t.Setenv("CACHE_REDIS_URL", "redis://:secret@redis.internal:6379/1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("POLICE_API_GZIP", "false")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}

	if cfg.Cache.TTL != 45*time.Second {
		t.Errorf("Cache.TTL = %v, want 45s", cfg.Cache.TTL)
	}
	if cfg.Cache.RedisURL.Unmask() != "redis://:secret@redis.internal:6379/1" {
		t.Errorf("Cache.RedisURL.Unmask() = %q", cfg.Cache.RedisURL.Unmask())
	}
	if strings.Contains(cfg.Cache.RedisURL.String(), "secret") {
		t.Error("Cache.RedisURL.String() leaked the secret")
	}
	if len(cfg.Server.CorsAllowedOrigins) != 2 {
		t.Errorf("CorsAllowedOrigins = %v, want 2 entries", cfg.Server.CorsAllowedOrigins)
	}
	if cfg.PoliceAPI.Gzip {
		t.Error("PoliceAPI.Gzip = true, want false")
	}
}

func TestLoadConfigParsingFailure(t *testing.T) {
	clearServiceEnv(t)
	chdirTemp(t)
	t.Setenv("CACHE_TTL", "ten seconds")

	_, err := LoadConfig()
	if err == nil {
		t.Fatal("expected error for unparsable duration")
	}

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %T", err)
	}
	if cfgErr.Type != ErrParsing {
		t.Errorf("Type = %q, want %q", cfgErr.Type, ErrParsing)
	}
}

func TestLoadConfigValidationFailure(t *testing.T) {
	clearServiceEnv(t)
	chdirTemp(t)
	t.Setenv("METRICS_BACKEND", "statsd")

	_, err := LoadConfig()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if cfgErr.Type != ErrValidation {
		t.Errorf("Type = %q, want %q", cfgErr.Type, ErrValidation)
	}
}

func TestLoadConfigMissingRequired(t *testing.T) {
	clearServiceEnv(t)
	chdirTemp(t)
	t.Setenv("METRICS_BACKEND", "cloudwatch")
	t.Setenv("AWS_REGION", "")

	_, err := LoadConfig()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if cfgErr.Type != ErrMissingEnv {
		t.Errorf("Type = %q, want %q", cfgErr.Type, ErrMissingEnv)
	}
	if !strings.Contains(cfgErr.Message, "AWSRegion") {
		t.Errorf("Message = %q, want it to name AWSRegion", cfgErr.Message)
	}
}

func TestLoadConfigDotenvFile(t *testing.T) {
	clearServiceEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "service.env")
	if err := os.WriteFile(path, []byte("PORT=9090\nLOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("writing dotenv: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("LOG_LEVEL")
	})

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, want 9090 from dotenv", cfg.Server.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug from dotenv", cfg.LogLevel)
	}
}

func TestConfigErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &ConfigError{Type: ErrParsing, Message: "bad", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should find the wrapped error")
	}
	if err.Error() != "[PARSING_FAILED] bad: boom" {
		t.Errorf("Error() = %q", err.Error())
	}
}
