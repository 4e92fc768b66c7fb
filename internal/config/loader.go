package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DEPTHD_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DEPTHD_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject connection details at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Venue ──
	setStr(&cfg.Venue.Name, "DEPTHD_VENUE_NAME")
	setStr(&cfg.Venue.Symbol, "DEPTHD_VENUE_SYMBOL")
	setInt(&cfg.Venue.PricePrecision, "DEPTHD_VENUE_PRICE_PRECISION")
	setStr(&cfg.Venue.WsURL, "DEPTHD_VENUE_WS_URL")
	setInt(&cfg.Venue.SnapshotDepth, "DEPTHD_VENUE_SNAPSHOT_DEPTH")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "DEPTHD_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "DEPTHD_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DEPTHD_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DEPTHD_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DEPTHD_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DEPTHD_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DEPTHD_REDIS_TLS_ENABLED")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "DEPTHD_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "DEPTHD_SERVER_PORT")

	// ── Top-level ──
	setStr(&cfg.Mode, "DEPTHD_MODE")
	setStr(&cfg.LogLevel, "DEPTHD_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
