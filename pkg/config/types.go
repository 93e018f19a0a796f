package config

import "time"

// Config is the root configuration structure
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Oracle  OracleConfig   `yaml:"oracle"`
	Ledger  LedgerConfig   `yaml:"ledger"`
	Sources []SourceConfig `yaml:"sources"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Logging LoggingConfig  `yaml:"logging"`
}

// ServerConfig configures the HTTP API component
type ServerConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	WebSocket WSConfig   `yaml:"websocket"`
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// WSConfig configures the WebSocket streaming server
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// OracleConfig configures the consensus and scheduling behaviour
type OracleConfig struct {
	ReferenceAsset     string   `yaml:"reference_asset"`     // Primary asset, e.g. "BTC/USD"
	QuoteAsset         string   `yaml:"quote_asset"`         // Secondary asset, e.g. "ETH/USD"
	SampleInterval     Duration `yaml:"sample_interval"`     // How often a cycle runs
	CleanupInterval    Duration `yaml:"cleanup_interval"`    // How often the retention sweep runs
	Retention          Duration `yaml:"retention"`           // Max age of history entries
	MaxHistory         int      `yaml:"max_history"`         // Max number of history entries
	FetchTimeout       Duration `yaml:"fetch_timeout"`       // Per-source fetch deadline
	StalenessThreshold Duration `yaml:"staleness_threshold"` // Commit regardless of movement after this
	DeviationThreshold float64  `yaml:"deviation_threshold"` // Commit when relative change exceeds this
	ConfidenceFloor    float64  `yaml:"confidence_floor"`    // Lower clamp for confidence scores
	PlausibleMin       string   `yaml:"plausible_min"`       // Lower sanity bound for reference price
	PlausibleMax       string   `yaml:"plausible_max"`       // Upper sanity bound for reference price
}

// LedgerConfig configures the on-chain commit collaborator
type LedgerConfig struct {
	Enabled       bool     `yaml:"enabled"`
	RPCURL        string   `yaml:"rpc_url"`
	Contract      string   `yaml:"contract"`        // Price feed contract address
	ChainID       int64    `yaml:"chain_id"`
	PrivateKeyEnv string   `yaml:"private_key_env"` // Env var holding the hex-encoded signing key
	Decimals      int32    `yaml:"decimals"`        // Fixed-point scale for the committed price
	CommitTimeout Duration `yaml:"commit_timeout"`
}

// SourceConfig configures a price source
type SourceConfig struct {
	Type    string                 `yaml:"type"`
	Name    string                 `yaml:"name"`
	Enabled bool                   `yaml:"enabled"`
	Weight  float64                `yaml:"weight"`
	Config  map[string]interface{} `yaml:"config"`
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
