package consensus

import "errors"

var (
	// ErrNoContributingReadings indicates reduce was called without a usable reading.
	ErrNoContributingReadings = errors.New("no contributing readings")
	// ErrNonPositivePrice indicates a candidate reference price is zero or negative.
	ErrNonPositivePrice = errors.New("reference price must be positive")
	// ErrPriceOutOfRange indicates a candidate price fails the plausible range check.
	ErrPriceOutOfRange = errors.New("reference price outside plausible range")
	// ErrConfidenceTooLow indicates a candidate confidence is below the accept floor.
	ErrConfidenceTooLow = errors.New("confidence below accept floor")
	// ErrMissingReferenceAsset indicates a candidate result lacks the reference asset.
	ErrMissingReferenceAsset = errors.New("result missing reference asset price")
)
