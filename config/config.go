// Package config loads the profile card service configuration.
//
// Sources, lowest priority first:
//  1. Defaults below
//  2. .env file in the working directory (local development via godotenv)
//  3. Process environment (container runtime)
//
// Usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the service
type Config struct {
	Service    ServiceConfig    // Port, name, version, environment
	Tracing    TracingConfig    // OpenTelemetry export
	Profiling  ProfilingConfig  // Pyroscope continuous profiling
	Logging    LoggingConfig    // Zap logger
	Metrics    MetricsConfig    // Prometheus scrape endpoint
	RandomUser RandomUserConfig // Upstream record generator
	Views      ViewConfig       // Mounted view registry
	RateLimit  RateLimitConfig  // Per-IP limit on view mounts

	ShutdownTimeout time.Duration // SHUTDOWN_TIMEOUT (default: 10s, max: 60s)
	// ReadinessDrainDelay is how long /ready reports 503 before the HTTP server
	// stops accepting connections. READINESS_DRAIN_DELAY (default: 5s, max: 30s).
	ReadinessDrainDelay time.Duration
}

// ServiceConfig defines basic service configuration
type ServiceConfig struct {
	Name    string // SERVICE_NAME
	Port    string // PORT (default: "8080")
	Version string // VERSION
	Env     string // ENV (development/staging/production)
}

// TracingConfig defines OpenTelemetry tracing configuration
type TracingConfig struct {
	Enabled            bool    // TRACING_ENABLED (default: false)
	Endpoint           string  // OTEL_COLLECTOR_ENDPOINT
	SampleRate         float64 // OTEL_SAMPLE_RATE (0.0-1.0)
	MaxExportBatchSize int     // OTEL_BATCH_SIZE (default: 512)
}

// ProfilingConfig defines Pyroscope configuration
type ProfilingConfig struct {
	Enabled  bool   // PROFILING_ENABLED (default: false)
	Endpoint string // PYROSCOPE_ENDPOINT
}

// LoggingConfig defines structured logging configuration
type LoggingConfig struct {
	Level  string // LOG_LEVEL: debug, info, warn, error (default: "info")
	Format string // LOG_FORMAT: json, console (default: "console" in development, else "json")
}

// MetricsConfig defines Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool   // METRICS_ENABLED (default: true)
	Path    string // METRICS_PATH (default: "/metrics")
}

// RandomUserConfig points the data fetcher at the record generator.
// The seed is fixed so every mount against the same backend sees the same person.
type RandomUserConfig struct {
	Endpoint    string // RANDOMUSER_ENDPOINT (default: "https://randomuser.me/api/")
	Page        int    // RANDOMUSER_PAGE (default: 1)
	ResultCount int    // RANDOMUSER_RESULTS (default: 1)
	Seed        string // RANDOMUSER_SEED (default: "abc")
}

// ViewConfig bounds the in-memory view registry
type ViewConfig struct {
	TTL           time.Duration // VIEW_TTL (default: 10m)
	MaxActive     int           // VIEW_MAX_ACTIVE: views still loading (default: 1000)
	SweepInterval time.Duration // VIEW_SWEEP_INTERVAL (default: 1m)
}

// RateLimitConfig limits how often one client may mount a view
type RateLimitConfig struct {
	Rate  float64 // MOUNT_RATE_LIMIT, mounts per second per IP (default: 2)
	Burst int     // MOUNT_RATE_BURST (default: 10)
}

// Load reads configuration from .env (if present) and the environment.
// Environment variables win over .env values.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Service: ServiceConfig{
			Name:    getEnv("SERVICE_NAME", "profile-card"),
			Port:    getEnv("PORT", "8080"),
			Version: getEnv("VERSION", "dev"),
			Env:     getEnv("ENV", "development"),
		},
		Tracing: TracingConfig{
			Enabled:            getEnvBool("TRACING_ENABLED", false),
			Endpoint:           getEnv("OTEL_COLLECTOR_ENDPOINT", "localhost:4318"),
			SampleRate:         getEnvFloat("OTEL_SAMPLE_RATE", 0.1),
			MaxExportBatchSize: getEnvInt("OTEL_BATCH_SIZE", 512),
		},
		Profiling: ProfilingConfig{
			Enabled:  getEnvBool("PROFILING_ENABLED", false),
			Endpoint: getEnv("PYROSCOPE_ENDPOINT", "http://localhost:4040"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		RandomUser: RandomUserConfig{
			Endpoint:    getEnv("RANDOMUSER_ENDPOINT", "https://randomuser.me/api/"),
			Page:        getEnvInt("RANDOMUSER_PAGE", 1),
			ResultCount: getEnvInt("RANDOMUSER_RESULTS", 1),
			Seed:        getEnv("RANDOMUSER_SEED", "abc"),
		},
		Views: ViewConfig{
			TTL:           getEnvDuration("VIEW_TTL", 10*time.Minute, 24*time.Hour),
			MaxActive:     getEnvInt("VIEW_MAX_ACTIVE", 1000),
			SweepInterval: getEnvDuration("VIEW_SWEEP_INTERVAL", time.Minute, time.Hour),
		},
		RateLimit: RateLimitConfig{
			Rate:  getEnvFloat("MOUNT_RATE_LIMIT", 2),
			Burst: getEnvInt("MOUNT_RATE_BURST", 10),
		},
		ShutdownTimeout:     getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second, 60*time.Second),
		ReadinessDrainDelay: getEnvDuration("READINESS_DRAIN_DELAY", 5*time.Second, 30*time.Second),
	}

	// readable logs on a laptop unless LOG_FORMAT is set explicitly
	if os.Getenv("LOG_FORMAT") == "" && cfg.IsDevelopment() {
		cfg.Logging.Format = "console"
	}
	return cfg
}

// Validate checks every field and reports all problems at once
func (c *Config) Validate() error {
	var errs []string

	if c.Service.Name == "" {
		errs = append(errs, "SERVICE_NAME is required")
	}
	if _, err := strconv.Atoi(c.Service.Port); err != nil {
		errs = append(errs, fmt.Sprintf("PORT must be a valid number, got: %q", c.Service.Port))
	}
	validEnvs := []string{"development", "dev", "staging", "stage", "production", "prod"}
	if !contains(validEnvs, c.Service.Env) {
		errs = append(errs, fmt.Sprintf("ENV must be one of %v, got: %s", validEnvs, c.Service.Env))
	}

	if c.Tracing.Enabled {
		if c.Tracing.Endpoint == "" {
			errs = append(errs, "OTEL_COLLECTOR_ENDPOINT is required when tracing is enabled")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
			errs = append(errs, fmt.Sprintf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got: %.2f", c.Tracing.SampleRate))
		}
	}
	if c.Profiling.Enabled && c.Profiling.Endpoint == "" {
		errs = append(errs, "PYROSCOPE_ENDPOINT is required when profiling is enabled")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.Logging.Level) {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL must be one of %v, got: %s", validLogLevels, c.Logging.Level))
	}
	validLogFormats := []string{"json", "console"}
	if !contains(validLogFormats, c.Logging.Format) {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT must be one of %v, got: %s", validLogFormats, c.Logging.Format))
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Sprintf("METRICS_PATH must start with '/', got: %q", c.Metrics.Path))
	}

	if u, err := url.Parse(c.RandomUser.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Sprintf("RANDOMUSER_ENDPOINT must be an absolute URL, got: %q", c.RandomUser.Endpoint))
	}
	if c.RandomUser.Page < 1 {
		errs = append(errs, fmt.Sprintf("RANDOMUSER_PAGE must be >= 1, got: %d", c.RandomUser.Page))
	}
	if c.RandomUser.ResultCount < 1 {
		errs = append(errs, fmt.Sprintf("RANDOMUSER_RESULTS must be >= 1, got: %d", c.RandomUser.ResultCount))
	}
	if c.RandomUser.Seed == "" {
		errs = append(errs, "RANDOMUSER_SEED must not be empty")
	}

	if c.Views.MaxActive < 1 {
		errs = append(errs, fmt.Sprintf("VIEW_MAX_ACTIVE must be >= 1, got: %d", c.Views.MaxActive))
	}
	if c.Views.SweepInterval <= 0 {
		errs = append(errs, fmt.Sprintf("VIEW_SWEEP_INTERVAL must be > 0, got: %s", c.Views.SweepInterval))
	}
	if c.RateLimit.Rate <= 0 {
		errs = append(errs, fmt.Sprintf("MOUNT_RATE_LIMIT must be > 0, got: %.2f", c.RateLimit.Rate))
	}
	if c.RateLimit.Burst < 1 {
		errs = append(errs, fmt.Sprintf("MOUNT_RATE_BURST must be >= 1, got: %d", c.RateLimit.Burst))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Service.Env)
	return env == "development" || env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Service.Env)
	return env == "production" || env == "prod"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool accepts "true", "1", "yes" as true; anything else set is false
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	value = strings.ToLower(value)
	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration parses a Go duration ("10s", "1m").
// Missing, malformed, non-positive or over-limit values fall back to the default
// so a typo never blocks startup.
func getEnvDuration(key string, defaultValue, maxValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 || d > maxValue {
		return defaultValue
	}
	return d
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if strings.EqualFold(s, item) {
			return true
		}
	}
	return false
}
