package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonwraymond/entitycache/cache"
	"github.com/jonwraymond/entitycache/metrics"
	"github.com/jonwraymond/entitycache/observe"
	"github.com/jonwraymond/entitycache/policy"
	"github.com/jonwraymond/entitycache/resilience"
)

// Backend names.
const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config is the full process configuration.
type Config struct {
	ServiceName    string `koanf:"service_name" validate:"required"`
	ServiceVersion string `koanf:"service_version"`

	Cache     CacheConfig     `koanf:"cache"`
	Redis     RedisConfig     `koanf:"redis"`
	Admin     AdminConfig     `koanf:"admin"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// CacheConfig configures the coordinator.
type CacheConfig struct {
	Backend             string                  `koanf:"backend" validate:"oneof=redis memory"`
	OpTimeout           time.Duration           `koanf:"op_timeout" validate:"gt=0"`
	PersistTags         bool                    `koanf:"persist_tags"`
	HealthSlowThreshold time.Duration           `koanf:"health_slow_threshold" validate:"gte=0"`
	Entities            map[string]EntityConfig `koanf:"entities" validate:"dive"`
	Metrics             MetricsConfig           `koanf:"metrics"`
	Breaker             BreakerConfig           `koanf:"breaker"`
}

// EntityConfig overrides one entity type's policy. Zero values keep the
// built-in policy.
type EntityConfig struct {
	TTL    int    `koanf:"ttl" validate:"gte=0"`
	Prefix string `koanf:"prefix"`
}

// MetricsConfig configures durable hit/miss metrics.
type MetricsConfig struct {
	FlushInterval time.Duration `koanf:"flush_interval" validate:"gt=0"`
	Expiry        time.Duration `koanf:"expiry" validate:"gt=0"`
}

// BreakerConfig configures the store circuit breaker.
type BreakerConfig struct {
	MaxFailures  uint32        `koanf:"max_failures" validate:"gt=0"`
	ResetTimeout time.Duration `koanf:"reset_timeout" validate:"gt=0"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	URL string `koanf:"url"`
}

// AdminConfig configures the admin HTTP surface.
type AdminConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	JWTSecret       string        `koanf:"jwt_secret"`
	JWTIssuer       string        `koanf:"jwt_issuer"`
	APIKey          string        `koanf:"api_key"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"`
	AllowedOrigins  []string      `koanf:"allowed_origins" validate:"dive,required"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// TelemetryConfig configures OpenTelemetry exporters.
type TelemetryConfig struct {
	TracesExporter  string  `koanf:"traces_exporter" validate:"oneof=otlp stdout none"`
	MetricsExporter string  `koanf:"metrics_exporter" validate:"oneof=otlp prometheus stdout none"`
	SamplePct       float64 `koanf:"sample_pct" validate:"gte=0,lte=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ServiceName: "entitycache",
		Cache: CacheConfig{
			Backend:             BackendRedis,
			OpTimeout:           2 * time.Second,
			HealthSlowThreshold: 100 * time.Millisecond,
			Metrics: MetricsConfig{
				FlushInterval: 60 * time.Second,
				Expiry:        24 * time.Hour,
			},
			Breaker: BreakerConfig{
				MaxFailures:  5,
				ResetTimeout: 30 * time.Second,
			},
		},
		Redis: RedisConfig{URL: "redis://localhost:6379/0"},
		Admin: AdminConfig{
			Addr:            ":8080",
			RateLimit:       120,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		Telemetry: TelemetryConfig{
			TracesExporter:  "none",
			MetricsExporter: "prometheus",
			SamplePct:       1.0,
		},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and cross-field requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Cache.Backend == BackendRedis && c.Redis.URL == "" {
		return ErrMissingRedisURL
	}
	if c.Admin.JWTSecret == "" && c.Admin.APIKey == "" {
		return ErrNoAdminAuth
	}
	return nil
}

// PolicyOverrides converts entity settings to registry overrides.
func (c *Config) PolicyOverrides() map[policy.EntityType]policy.Override {
	out := make(map[policy.EntityType]policy.Override, len(c.Cache.Entities))
	for name, e := range c.Cache.Entities {
		out[policy.EntityType(strings.ToLower(name))] = policy.Override{
			TTL:       time.Duration(e.TTL) * time.Second,
			KeyPrefix: e.Prefix,
		}
	}
	return out
}

// Registry builds the policy registry.
func (c *Config) Registry() *policy.Registry {
	return policy.NewRegistry(c.PolicyOverrides())
}

// CoordinatorConfig builds the coordinator configuration.
func (c *Config) CoordinatorConfig() cache.Config {
	return cache.Config{
		Registry:    c.Registry(),
		PersistTags: c.Cache.PersistTags,
		Metrics: metrics.Config{
			FlushInterval: c.Cache.Metrics.FlushInterval,
			Expiry:        c.Cache.Metrics.Expiry,
		},
		HealthSlowThreshold: c.Cache.HealthSlowThreshold,
	}
}

// GuardConfig builds the store guard configuration.
func (c *Config) GuardConfig() resilience.GuardConfig {
	return resilience.GuardConfig{
		Name:         "store",
		Timeout:      c.Cache.OpTimeout,
		MaxFailures:  c.Cache.Breaker.MaxFailures,
		ResetTimeout: c.Cache.Breaker.ResetTimeout,
	}
}

// ObserveConfig builds the telemetry configuration.
func (c *Config) ObserveConfig() observe.Config {
	return observe.Config{
		ServiceName:  c.ServiceName,
		Version:      c.ServiceVersion,
		StoreBackend: c.Cache.Backend,
		Tracing: observe.TracingConfig{
			Enabled:   c.Telemetry.TracesExporter != "none",
			Exporter:  c.Telemetry.TracesExporter,
			SamplePct: c.Telemetry.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Telemetry.MetricsExporter != "none",
			Exporter: c.Telemetry.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Log.Level,
			Format:  c.Log.Format,
		},
	}
}
