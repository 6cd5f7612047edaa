// Package config defines the configuration structure for the street-crime
// service. Configuration is loaded once at process start and is immutable
// thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> struct tag defaults (Lowest)
//
// A missing required value or an invalid format fails startup immediately.
package config

import (
	"time"

	"streetcrime/internal/types"
)

// SecretString is an alias for types.SecretString so connection strings are
// redacted wherever the config is logged.
type SecretString = types.SecretString

// Config is the top-level configuration struct. Sub-components receive only
// the subset they need.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"streetcrime-api"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server        ServerConfig
	PoliceAPI     PoliceAPIConfig
	Cache         CacheConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// PoliceAPIConfig configures the client for the remote crime data source.
type PoliceAPIConfig struct {
	BaseURL    string        `envconfig:"POLICE_API_BASE_URL" default:"https://data.police.uk/api" validate:"required,url"`
	Timeout    time.Duration `envconfig:"POLICE_API_TIMEOUT" default:"10s" validate:"gt=0"`
	MaxRetries int           `envconfig:"POLICE_API_MAX_RETRIES" default:"2" validate:"gte=0,lte=10"`
	UserAgent  string        `envconfig:"POLICE_API_USER_AGENT" default:"streetcrime/1.0"`
	// Gzip negotiates compressed responses; crime listings for dense
	// neighbourhoods run to several megabytes of JSON.
	Gzip bool `envconfig:"POLICE_API_GZIP" default:"true"`
}

// CacheConfig tunes the memoization layer.
type CacheConfig struct {
	TTL           time.Duration `envconfig:"CACHE_TTL" default:"10s" validate:"gt=0"`
	SweepInterval time.Duration `envconfig:"CACHE_SWEEP_INTERVAL" default:"1m"`
	Coalesce      bool          `envconfig:"CACHE_COALESCE" default:"true"`

	// ComputeTimeout bounds a coalesced remote call, which runs detached
	// from the request that started it.
	ComputeTimeout time.Duration `envconfig:"CACHE_COMPUTE_TIMEOUT" default:"30s" validate:"gt=0"`

	// Optional shared tier. Empty disables Redis.
	RedisURL    SecretString `envconfig:"CACHE_REDIS_URL" validate:"omitempty,url"`
	RedisPrefix string       `envconfig:"CACHE_REDIS_PREFIX" default:"streetcrime:"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricsBackend  string `envconfig:"METRICS_BACKEND" default:"prometheus" validate:"oneof=prometheus cloudwatch none"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"StreetCrime"`
	AWSRegion       string `envconfig:"AWS_REGION" default:"eu-west-2" validate:"required_if=MetricsBackend cloudwatch"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates an environment value could not be parsed into its
	// target type.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
