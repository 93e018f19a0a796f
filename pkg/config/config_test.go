package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalConfig = `
oracle:
  reference_asset: "BTC/USD"
  quote_asset: "ETH/USD"
sources:
  - type: "cex"
    name: "binance"
    enabled: true
    weight: 0.5
    config:
      pairs:
        BTC/USD: "BTCUSDT"
logging:
  level: "info"
  format: "json"
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.HTTP.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Oracle.SampleInterval.ToDuration())
	assert.Equal(t, 24*time.Hour, cfg.Oracle.CleanupInterval.ToDuration())
	assert.Equal(t, 7*24*time.Hour, cfg.Oracle.Retention.ToDuration())
	assert.Equal(t, 2016, cfg.Oracle.MaxHistory)
	assert.Equal(t, 10*time.Second, cfg.Oracle.FetchTimeout.ToDuration())
	assert.Equal(t, 15*time.Minute, cfg.Oracle.StalenessThreshold.ToDuration())
	assert.Equal(t, 0.05, cfg.Oracle.DeviationThreshold)
	assert.Equal(t, 0.1, cfg.Oracle.ConfidenceFloor)
	assert.Equal(t, int32(8), cfg.Ledger.Decimals)
}

func TestLoad_DurationParsing(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
oracle:
  sample_interval: "30s"
  staleness_threshold: "1h"
sources:
  - type: "cex"
    name: "binance"
    enabled: true
`))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Oracle.SampleInterval.ToDuration())
	assert.Equal(t, time.Hour, cfg.Oracle.StalenessThreshold.ToDuration())
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_ORACLE_REF", "BTC/USD")

	cfg, err := Load(writeConfig(t, `
oracle:
  reference_asset: "${TEST_ORACLE_REF}"
sources:
  - type: "cex"
    name: "binance"
    enabled: true
`))
	require.NoError(t, err)
	assert.Equal(t, "BTC/USD", cfg.Oracle.ReferenceAsset)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
}

func TestValidate_SameAssets(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	cfg.Oracle.QuoteAsset = cfg.Oracle.ReferenceAsset
	require.ErrorIs(t, Validate(cfg), ErrInvalidAssetPair)
}

func TestValidate_NoEnabledSources(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	cfg.Sources[0].Enabled = false
	require.ErrorIs(t, Validate(cfg), ErrNoSourcesConfigured)
}

func TestValidate_BadThresholds(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	cfg.Oracle.DeviationThreshold = 1.5
	require.ErrorIs(t, Validate(cfg), ErrInvalidThreshold)

	cfg.Oracle.DeviationThreshold = 0.05
	cfg.Oracle.ConfidenceFloor = -0.1
	require.ErrorIs(t, Validate(cfg), ErrInvalidThreshold)
}

func TestValidate_PlausibleBounds(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	cfg.Oracle.PlausibleMin = "1000"
	cfg.Oracle.PlausibleMax = "500"
	require.ErrorIs(t, Validate(cfg), ErrInvalidThreshold)

	cfg.Oracle.PlausibleMax = "10000000"
	require.NoError(t, Validate(cfg))

	cfg.Oracle.PlausibleMin = "not-a-number"
	require.Error(t, Validate(cfg))
}

func TestValidate_LedgerRequiresKey(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	cfg.Ledger.Enabled = true
	cfg.Ledger.RPCURL = "https://rpc.example.org"
	cfg.Ledger.Contract = "0x0000000000000000000000000000000000000001"
	cfg.Ledger.ChainID = 1
	cfg.Ledger.PrivateKeyEnv = "TEST_ORACLE_MISSING_KEY"

	require.Error(t, Validate(cfg))

	t.Setenv("TEST_ORACLE_MISSING_KEY", "ab")
	require.NoError(t, Validate(cfg))
}

func TestSourceWeights(t *testing.T) {
	cfg := &Config{
		Sources: []SourceConfig{
			{Name: "binance", Enabled: true, Weight: 0.6},
			{Name: "kraken", Enabled: true}, // No weight set, defaults to 1.0
			{Name: "disabled", Enabled: false, Weight: 0.4},
		},
	}

	weights := cfg.SourceWeights()
	assert.Equal(t, 0.6, weights["binance"])
	assert.Equal(t, 1.0, weights["kraken"])
	_, ok := weights["disabled"]
	assert.False(t, ok)
}
