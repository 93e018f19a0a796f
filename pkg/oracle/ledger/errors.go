package ledger

import "errors"

var (
	// ErrInvalidContract indicates the configured contract address is malformed.
	ErrInvalidContract = errors.New("invalid contract address")
	// ErrInvalidKey indicates the signing key could not be parsed.
	ErrInvalidKey = errors.New("invalid signing key")
	// ErrCommitFailed indicates the transaction could not be submitted.
	ErrCommitFailed = errors.New("ledger commit failed")
)
