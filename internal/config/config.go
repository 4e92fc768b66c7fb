// Package config defines the top-level configuration for depthd and provides
// validation helpers.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by DEPTHD_* environment variables.
type Config struct {
	Venue    VenueConfig  `toml:"venue"`
	Redis    RedisConfig  `toml:"redis"`
	Server   ServerConfig `toml:"server"`
	Mode     string       `toml:"mode"`
	LogLevel string       `toml:"log_level"`
}

// VenueConfig identifies the venue/symbol book this instance maintains and
// where its order events come from.
type VenueConfig struct {
	Name           string `toml:"name"`
	Symbol         string `toml:"symbol"`
	PricePrecision int    `toml:"price_precision"`
	WsURL          string `toml:"ws_url"`
	SnapshotDepth  int    `toml:"snapshot_depth"` // depth mirrored to redis, 0 = full book
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Venue: VenueConfig{
			Name:           "coinbase",
			Symbol:         "BTC-USD",
			PricePrecision: 2,
			WsURL:          "",
			SnapshotDepth:  50,
		},
		Redis: RedisConfig{
			Enabled:    true,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8000,
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"serve": true, // HTTP query API only
	"feed":  true, // venue feed only
	"tail":  true, // follow book events published by another instance
	"full":  true, // feed + API
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: serve, feed, tail, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Venue.Name == "" {
		errs = append(errs, "venue: name must not be empty")
	}
	if c.Venue.Symbol == "" {
		errs = append(errs, "venue: symbol must not be empty")
	}
	if c.Venue.PricePrecision < 0 || c.Venue.PricePrecision > 12 {
		errs = append(errs, fmt.Sprintf("venue: price_precision must be 0-12, got %d", c.Venue.PricePrecision))
	}
	if c.Venue.SnapshotDepth < 0 {
		errs = append(errs, "venue: snapshot_depth must be >= 0")
	}
	if (mode == "feed" || mode == "full") && c.Venue.WsURL == "" {
		errs = append(errs, "venue: ws_url is required for mode "+c.Mode)
	}
	if mode == "tail" && !c.Redis.Enabled {
		errs = append(errs, "redis: must be enabled for mode tail")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
