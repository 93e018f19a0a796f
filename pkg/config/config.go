// Package config provides configuration loading and validation for the
// consensus oracle.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	// Validate and sanitize path
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	// Read config file
	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in YAML
	expanded := os.ExpandEnv(string(data))

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = ":8080"
	}
	if cfg.Server.WebSocket.Enabled && cfg.Server.WebSocket.Addr == "" {
		cfg.Server.WebSocket.Addr = ":8081"
	}

	// Oracle defaults
	if cfg.Oracle.ReferenceAsset == "" {
		cfg.Oracle.ReferenceAsset = "BTC/USD"
	}
	if cfg.Oracle.QuoteAsset == "" {
		cfg.Oracle.QuoteAsset = "ETH/USD"
	}
	if cfg.Oracle.SampleInterval.ToDuration() == 0 {
		cfg.Oracle.SampleInterval = Duration(5 * minute)
	}
	if cfg.Oracle.CleanupInterval.ToDuration() == 0 {
		cfg.Oracle.CleanupInterval = Duration(24 * hour)
	}
	if cfg.Oracle.Retention.ToDuration() == 0 {
		cfg.Oracle.Retention = Duration(7 * 24 * hour)
	}
	if cfg.Oracle.MaxHistory == 0 {
		cfg.Oracle.MaxHistory = 2016 // One week of 5-minute samples
	}
	if cfg.Oracle.FetchTimeout.ToDuration() == 0 {
		cfg.Oracle.FetchTimeout = Duration(10 * second)
	}
	if cfg.Oracle.StalenessThreshold.ToDuration() == 0 {
		cfg.Oracle.StalenessThreshold = Duration(15 * minute)
	}
	if cfg.Oracle.DeviationThreshold == 0 {
		cfg.Oracle.DeviationThreshold = 0.05
	}
	if cfg.Oracle.ConfidenceFloor == 0 {
		cfg.Oracle.ConfidenceFloor = 0.1
	}

	// Ledger defaults
	if cfg.Ledger.Decimals == 0 {
		cfg.Ledger.Decimals = 8
	}
	if cfg.Ledger.CommitTimeout.ToDuration() == 0 {
		cfg.Ledger.CommitTimeout = Duration(30 * second)
	}
	if cfg.Ledger.PrivateKeyEnv == "" {
		cfg.Ledger.PrivateKeyEnv = "ORACLE_LEDGER_KEY"
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}

const (
	second = 1e9
	minute = 60 * second
	hour   = 60 * minute
)

// SourceWeights returns the configured weight per enabled source name.
func (c *Config) SourceWeights() map[string]float64 {
	weights := make(map[string]float64)
	for _, src := range c.Sources {
		if !src.Enabled {
			continue
		}
		w := src.Weight
		if w <= 0 {
			w = 1.0
		}
		weights[src.Name] = w
	}
	return weights
}

// GetString retrieves a string value from the source configuration.
func (sc *SourceConfig) GetString(key, defaultValue string) string {
	if val, ok := sc.Config[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return defaultValue
}

// GetBool retrieves a boolean from source config.
func (sc *SourceConfig) GetBool(key string, defaultValue bool) bool {
	if val, ok := sc.Config[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return defaultValue
}
