package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvVars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
	}{
		{
			name:  "expand single env var",
			input: "port: ${TEST_PORT}",
			envVars: map[string]string{
				"TEST_PORT": ":9090",
			},
			expected: "port: :9090",
		},
		{
			name:     "missing env var returns empty string",
			input:    "port: ${MISSING_VAR}",
			envVars:  map[string]string{},
			expected: "port: ",
		},
		{
			name:  "mixed static and env vars",
			input: "static_value: 123\nname: ${TEST_NAME}",
			envVars: map[string]string{
				"TEST_NAME": "ticket_desk",
			},
			expected: "static_value: 123\nname: ticket_desk",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			result := expandEnvVars(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "config-test-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	configContent := `app:
  name: "ticket_desk"

server:
  port: "${TEST_TICKET_PORT}"
  allowed_origins: ["http://localhost:3000"]
  max_connections: 100
  rate_limit: 5.0
  rate_burst: 10

feed:
  symbols: ["BTC-USDT", "ETH-USDT"]
  initial_prices:
    BTC-USDT: 65000
    ETH-USDT: 3200
  tick_interval_ms: 250
  max_drift: 0.001

journal:
  path: "tickets.db"

assets:
  BTC:
    amount_decimals: 6
    price_decimals: 2

system:
  log_level: "DEBUG"

concurrency:
  broadcast_pool_size: 4
  broadcast_pool_buffer: 128
`

	_, err = tmpFile.Write([]byte(configContent))
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())

	os.Setenv("TEST_TICKET_PORT", ":8181")
	defer os.Unsetenv("TEST_TICKET_PORT")

	cfg, err := LoadConfig(tmpFile.Name())
	require.NoError(t, err)

	assert.Equal(t, ":8181", cfg.Server.Port)
	assert.Equal(t, []string{"BTC-USDT", "ETH-USDT"}, cfg.Feed.Symbols)
	assert.Equal(t, 250, cfg.Feed.TickIntervalMs)
	assert.Equal(t, "DEBUG", cfg.System.LogLevel)
	assert.Equal(t, 6, cfg.Assets["BTC"].AmountDecimals)
}

func TestValidateRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Server.Port = "" }},
		{"port without colon", func(c *Config) { c.Server.Port = "8080" }},
		{"zero max connections", func(c *Config) { c.Server.MaxConnections = 0 }},
		{"no origins", func(c *Config) { c.Server.AllowedOrigins = nil }},
		{"no symbols", func(c *Config) { c.Feed.Symbols = nil }},
		{"tick interval too small", func(c *Config) { c.Feed.TickIntervalMs = 1 }},
		{"drift out of range", func(c *Config) { c.Feed.MaxDrift = 0.75 }},
		{"symbol without initial price", func(c *Config) { c.Feed.Symbols = append(c.Feed.Symbols, "SOL-USDT") }},
		{"bad log level", func(c *Config) { c.System.LogLevel = "VERBOSE" }},
		{"pool size out of range", func(c *Config) { c.Concurrency.BroadcastPoolSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}
