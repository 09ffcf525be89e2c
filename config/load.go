package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/jonwraymond/entitycache/secret"
)

// PathEnvVar names the environment variable holding the config file path.
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths are searched in order when PathEnvVar is unset.
var DefaultPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/entitycache/config.yaml",
}

// Load reads defaults, the config file if any, and the environment, then
// resolves secrets and validates the result.
func Load(ctx context.Context) (*Config, error) {
	return LoadFile(ctx, findConfigFile())
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(ctx context.Context, path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("config: load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	err := secret.DefaultResolver().ResolveAll(ctx, map[string]*string{
		"redis.url":        &cfg.Redis.URL,
		"admin.jwt_secret": &cfg.Admin.JWTSecret,
		"admin.api_key":    &cfg.Admin.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		return p
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// envKeys maps fixed environment variables to config paths.
var envKeys = map[string]string{
	"service_name":                 "service_name",
	"service_version":              "service_version",
	"cache_backend":                "cache.backend",
	"cache_op_timeout":             "cache.op_timeout",
	"cache_persist_tags":           "cache.persist_tags",
	"cache_health_slow_threshold":  "cache.health_slow_threshold",
	"cache_metrics_flush_interval": "cache.metrics.flush_interval",
	"cache_metrics_expiry":         "cache.metrics.expiry",
	"cache_breaker_max_failures":   "cache.breaker.max_failures",
	"cache_breaker_reset_timeout":  "cache.breaker.reset_timeout",
	"redis_url":                    "redis.url",
	"admin_addr":                   "admin.addr",
	"admin_jwt_secret":             "admin.jwt_secret",
	"admin_jwt_issuer":             "admin.jwt_issuer",
	"admin_api_key":                "admin.api_key",
	"admin_rate_limit":             "admin.rate_limit",
	"admin_shutdown_timeout":       "admin.shutdown_timeout",
	"admin_allowed_origins":        "admin.allowed_origins",
	"log_level":                    "log.level",
	"log_format":                   "log.format",
	"otel_traces_exporter":         "telemetry.traces_exporter",
	"otel_metrics_exporter":        "telemetry.metrics_exporter",
	"otel_traces_sampler_arg":      "telemetry.sample_pct",
}

// envKey maps an environment variable to a config path, or "" to skip it.
//
//	CACHE_TTL_DOSSIER       -> cache.entities.dossier.ttl
//	CACHE_PREFIX_AI_RESPONSE -> cache.entities.ai_response.prefix
//	ADMIN_ADDR              -> admin.addr
func envKey(key string) string {
	key = strings.ToLower(key)
	if path, ok := envKeys[key]; ok {
		return path
	}
	if et, ok := strings.CutPrefix(key, "cache_ttl_"); ok && et != "" {
		return "cache.entities." + et + ".ttl"
	}
	if et, ok := strings.CutPrefix(key, "cache_prefix_"); ok && et != "" {
		return "cache.entities." + et + ".prefix"
	}
	return ""
}
