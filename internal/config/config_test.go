package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "serve"

[venue]
name = "kraken"
symbol = "ETH-USD"
price_precision = 4
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "serve", cfg.Mode)
	assert.Equal(t, "kraken", cfg.Venue.Name)
	assert.Equal(t, "ETH-USD", cfg.Venue.Symbol)
	assert.Equal(t, 4, cfg.Venue.PricePrecision)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	path := writeConfig(t, `mode = "serve"`)

	t.Setenv("DEPTHD_VENUE_SYMBOL", "SOL-USD")
	t.Setenv("DEPTHD_SERVER_PORT", "9100")
	t.Setenv("DEPTHD_REDIS_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "SOL-USD", cfg.Venue.Symbol)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "serve" // full mode requires ws_url
	assert.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "replay"
	cfg.LogLevel = "loud"
	cfg.Venue.Symbol = ""
	cfg.Venue.PricePrecision = 15
	cfg.Server.Port = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "unknown log_level")
	assert.Contains(t, err.Error(), "symbol must not be empty")
	assert.Contains(t, err.Error(), "price_precision")
	assert.Contains(t, err.Error(), "port")
}

func TestValidateRequiresRedisForTailMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "tail"
	cfg.Redis.Enabled = false
	assert.Error(t, cfg.Validate())

	cfg.Redis.Enabled = true
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequiresWsURLForFeedModes(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "full"
	cfg.Venue.WsURL = ""
	assert.Error(t, cfg.Validate())

	cfg.Venue.WsURL = "wss://feed.example.com/orders"
	assert.NoError(t, cfg.Validate())
}
