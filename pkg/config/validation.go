package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if err := validateOracleConfig(&cfg.Oracle); err != nil {
		return fmt.Errorf("oracle config: %w", err)
	}

	if cfg.Ledger.Enabled {
		if err := validateLedgerConfig(&cfg.Ledger); err != nil {
			return fmt.Errorf("ledger config: %w", err)
		}
	}

	// At least one enabled source is required
	enabled := 0
	for i, source := range cfg.Sources {
		if err := validateSourceConfig(&source); err != nil {
			return fmt.Errorf("source %d (%s.%s): %w", i, source.Type, source.Name, err)
		}
		if source.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return ErrNoSourcesConfigured
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateOracleConfig(cfg *OracleConfig) error {
	if cfg.ReferenceAsset == cfg.QuoteAsset {
		return fmt.Errorf("%w: reference and quote asset must differ (%s)", ErrInvalidAssetPair, cfg.ReferenceAsset)
	}
	if cfg.DeviationThreshold < 0 || cfg.DeviationThreshold >= 1 {
		return fmt.Errorf("%w: deviation_threshold %.3f (must be in [0,1))", ErrInvalidThreshold, cfg.DeviationThreshold)
	}
	if cfg.ConfidenceFloor < 0 || cfg.ConfidenceFloor > 1 {
		return fmt.Errorf("%w: confidence_floor %.3f (must be in [0,1])", ErrInvalidThreshold, cfg.ConfidenceFloor)
	}

	// Plausibility bounds must parse as decimals when set
	if cfg.PlausibleMin != "" {
		min, err := decimal.NewFromString(cfg.PlausibleMin)
		if err != nil {
			return fmt.Errorf("invalid plausible_min: %w", err)
		}
		if cfg.PlausibleMax != "" {
			max, err := decimal.NewFromString(cfg.PlausibleMax)
			if err != nil {
				return fmt.Errorf("invalid plausible_max: %w", err)
			}
			if max.LessThanOrEqual(min) {
				return fmt.Errorf("%w: plausible_max must exceed plausible_min", ErrInvalidThreshold)
			}
		}
	} else if cfg.PlausibleMax != "" {
		if _, err := decimal.NewFromString(cfg.PlausibleMax); err != nil {
			return fmt.Errorf("invalid plausible_max: %w", err)
		}
	}

	return nil
}

func validateLedgerConfig(cfg *LedgerConfig) error {
	if cfg.RPCURL == "" {
		return fmt.Errorf("%w: rpc_url", ErrMissingField)
	}
	if cfg.Contract == "" {
		return fmt.Errorf("%w: contract", ErrMissingField)
	}
	if cfg.ChainID == 0 {
		return fmt.Errorf("%w: chain_id", ErrMissingField)
	}
	if os.Getenv(cfg.PrivateKeyEnv) == "" {
		return fmt.Errorf("environment variable %s not set (required for ledger signing)", cfg.PrivateKeyEnv)
	}
	return nil
}

func validateSourceConfig(cfg *SourceConfig) error {
	if cfg.Type == "" {
		return fmt.Errorf("%w: type", ErrMissingField)
	}
	if cfg.Name == "" {
		return fmt.Errorf("%w: name", ErrMissingField)
	}
	if cfg.Weight < 0 || cfg.Weight > 1 {
		return fmt.Errorf("%w: weight %.3f (must be in (0,1])", ErrInvalidThreshold, cfg.Weight)
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	// Validate level
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, l := range validLevels {
		if strings.ToLower(cfg.Level) == l {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("invalid level: %s (must be one of: %s)", cfg.Level, strings.Join(validLevels, ", "))
	}

	// Validate format
	formatValid := strings.ToLower(cfg.Format) == "json" || strings.ToLower(cfg.Format) == "text"
	if !formatValid {
		return fmt.Errorf("invalid format: %s (must be 'json' or 'text')", cfg.Format)
	}

	return nil
}
