// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"
	"ticket_desk/internal/precision"

	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure
type Config struct {
	App         AppConfig                           `yaml:"app"`
	Server      ServerConfig                        `yaml:"server"`
	Feed        FeedConfig                          `yaml:"feed"`
	Journal     JournalConfig                       `yaml:"journal"`
	Assets      map[string]precision.AssetPrecision `yaml:"assets"`
	System      SystemConfig                        `yaml:"system"`
	Concurrency ConcurrencyConfig                   `yaml:"concurrency"`
	Telemetry   TelemetryConfig                     `yaml:"telemetry"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name string `yaml:"name"`
}

// ServerConfig contains the HTTP/WebSocket server settings
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxConnections int      `yaml:"max_connections"`
	RateLimit      float64  `yaml:"rate_limit"`
	RateBurst      int      `yaml:"rate_burst"`
	Production     bool     `yaml:"production"`
}

// FeedConfig contains the simulated price feed settings
type FeedConfig struct {
	Symbols        []string           `yaml:"symbols"`
	InitialPrices  map[string]float64 `yaml:"initial_prices"`
	TickIntervalMs int                `yaml:"tick_interval_ms"`
	MaxDrift       float64            `yaml:"max_drift"` // max fractional move per tick
}

// JournalConfig contains the accepted-ticket journal settings
type JournalConfig struct {
	Path string `yaml:"path"`
}

// SystemConfig contains system settings
type SystemConfig struct {
	LogLevel string `yaml:"log_level"`
}

// ConcurrencyConfig contains worker pool settings
type ConcurrencyConfig struct {
	BroadcastPoolSize   int `yaml:"broadcast_pool_size"`
	BroadcastPoolBuffer int `yaml:"broadcast_pool_buffer"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	EnableMetrics bool `yaml:"enable_metrics"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	config := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expandedData), config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errors []string

	if err := c.validateServerConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateFeedConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateSystemConfig(); err != nil {
		errors = append(errors, err.Error())
	}
	if err := c.validateConcurrencyConfig(); err != nil {
		errors = append(errors, err.Error())
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (c *Config) validateServerConfig() error {
	if c.Server.Port == "" {
		return ValidationError{Field: "server.port", Value: c.Server.Port, Message: "port is required"}
	}
	if !strings.HasPrefix(c.Server.Port, ":") {
		return ValidationError{Field: "server.port", Value: c.Server.Port, Message: "port must start with ':'"}
	}
	if c.Server.MaxConnections < 1 {
		return ValidationError{Field: "server.max_connections", Value: c.Server.MaxConnections, Message: "must be at least 1"}
	}
	if c.Server.RateLimit <= 0 {
		return ValidationError{Field: "server.rate_limit", Value: c.Server.RateLimit, Message: "must be positive"}
	}
	if c.Server.RateBurst < 1 {
		return ValidationError{Field: "server.rate_burst", Value: c.Server.RateBurst, Message: "must be at least 1"}
	}
	if len(c.Server.AllowedOrigins) == 0 {
		return ValidationError{Field: "server.allowed_origins", Value: c.Server.AllowedOrigins, Message: "at least one origin is required"}
	}
	return nil
}

func (c *Config) validateFeedConfig() error {
	if len(c.Feed.Symbols) == 0 {
		return ValidationError{Field: "feed.symbols", Value: c.Feed.Symbols, Message: "at least one symbol is required"}
	}
	if c.Feed.TickIntervalMs < 10 || c.Feed.TickIntervalMs > 60000 {
		return ValidationError{Field: "feed.tick_interval_ms", Value: c.Feed.TickIntervalMs, Message: "must be between 10 and 60000"}
	}
	if c.Feed.MaxDrift <= 0 || c.Feed.MaxDrift > 0.5 {
		return ValidationError{Field: "feed.max_drift", Value: c.Feed.MaxDrift, Message: "must be in (0, 0.5]"}
	}
	for _, sym := range c.Feed.Symbols {
		if p, ok := c.Feed.InitialPrices[sym]; !ok || p <= 0 {
			return ValidationError{Field: "feed.initial_prices", Value: sym, Message: "every symbol needs a positive initial price"}
		}
	}
	return nil
}

func (c *Config) validateSystemConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.System.LogLevel)) {
		return ValidationError{Field: "system.log_level", Value: c.System.LogLevel, Message: "must be one of DEBUG, INFO, WARN, ERROR, FATAL"}
	}
	return nil
}

func (c *Config) validateConcurrencyConfig() error {
	if c.Concurrency.BroadcastPoolSize < 1 || c.Concurrency.BroadcastPoolSize > 100 {
		return ValidationError{Field: "concurrency.broadcast_pool_size", Value: c.Concurrency.BroadcastPoolSize, Message: "must be between 1 and 100"}
	}
	if c.Concurrency.BroadcastPoolBuffer < 1 || c.Concurrency.BroadcastPoolBuffer > 10000 {
		return ValidationError{Field: "concurrency.broadcast_pool_buffer", Value: c.Concurrency.BroadcastPoolBuffer, Message: "must be between 1 and 10000"}
	}
	return nil
}

// Helper functions

func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		return os.Getenv(key)
	})
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{Name: "ticket_desk"},
		Server: ServerConfig{
			Port:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
			MaxConnections: 1000,
			RateLimit:      10.0,
			RateBurst:      20,
		},
		Feed: FeedConfig{
			Symbols:        []string{"BTC-USDT"},
			InitialPrices:  map[string]float64{"BTC-USDT": 65000},
			TickIntervalMs: 500,
			MaxDrift:       0.002,
		},
		Journal: JournalConfig{Path: "tickets.db"},
		System:  SystemConfig{LogLevel: "INFO"},
		Concurrency: ConcurrencyConfig{
			BroadcastPoolSize:   8,
			BroadcastPoolBuffer: 256,
		},
		Telemetry: TelemetryConfig{EnableMetrics: true},
	}
}
