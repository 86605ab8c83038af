// Package config loads the daemon's runtime configuration from a YAML
// file, environment variables, or both, via viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for the vesting daemon.
type Config struct {
	API         APIConfig
	Storage     StorageConfig
	RateLimiter RateLimiterConfig
	Metrics     MetricsConfig
	Admin       AdminConfig
}

// APIConfig configures the HTTP query/admin surface.
type APIConfig struct {
	Port int
}

// StorageConfig configures the persistent SQLite-backed store.
type StorageConfig struct {
	Path string
}

// RateLimiterConfig configures per-caller request throttling.
type RateLimiterConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// MetricsConfig configures the Prometheus exporter.
type MetricsConfig struct {
	Port int
}

// AdminConfig seeds the initial admin set at Manager initialization.
type AdminConfig struct {
	// FactoryCaller is the address seeded as the sole admin on Init,
	// mirroring spec.md's init(factory_caller, token_address).
	FactoryCaller string
	TokenAddress  string
}

func defaults(v *viper.Viper) {
	v.SetDefault("api.port", 8080)
	v.SetDefault("storage.path", "vesting.db")
	v.SetDefault("ratelimiter.enabled", true)
	v.SetDefault("ratelimiter.requestspersecond", 5.0)
	v.SetDefault("ratelimiter.burst", 10)
	v.SetDefault("metrics.port", 9090)
}

// LoadConfig reads configuration from the YAML file at path (if it
// exists), overridden by VESTING_-prefixed environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	defaults(v)

	v.SetEnvPrefix("VESTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %q: %w", path, err)
			}
		}
	}

	cfg := &Config{
		API: APIConfig{Port: v.GetInt("api.port")},
		Storage: StorageConfig{
			Path: v.GetString("storage.path"),
		},
		RateLimiter: RateLimiterConfig{
			Enabled:           v.GetBool("ratelimiter.enabled"),
			RequestsPerSecond: v.GetFloat64("ratelimiter.requestspersecond"),
			Burst:             v.GetInt("ratelimiter.burst"),
		},
		Metrics: MetricsConfig{Port: v.GetInt("metrics.port")},
		Admin: AdminConfig{
			FactoryCaller: v.GetString("admin.factorycaller"),
			TokenAddress:  v.GetString("admin.tokenaddress"),
		},
	}

	if cfg.Admin.FactoryCaller == "" {
		return nil, fmt.Errorf("admin.factorycaller is required")
	}
	if cfg.Admin.TokenAddress == "" {
		return nil, fmt.Errorf("admin.tokenaddress is required")
	}

	return cfg, nil
}

// shutdownGrace bounds how long Start/Stop lifecycle methods in other
// packages wait for in-flight work when a Config-driven component shuts
// down; kept here so every package agrees on one default.
const shutdownGrace = 5 * time.Second

// ShutdownGrace returns the default graceful-shutdown window.
func ShutdownGrace() time.Duration { return shutdownGrace }
