package config

import "errors"

var (
	// ErrNoSourcesConfigured indicates that no enabled price source is configured.
	ErrNoSourcesConfigured = errors.New("at least one enabled price source must be configured")
	// ErrMissingField indicates a required configuration field is missing.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidAssetPair indicates an invalid asset pair configuration.
	ErrInvalidAssetPair = errors.New("invalid asset pair")
	// ErrInvalidThreshold indicates a threshold outside its valid range.
	ErrInvalidThreshold = errors.New("threshold out of range")
)
