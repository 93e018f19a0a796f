package consensus

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Bounds holds the plausibility checks every candidate value must pass
// before it is accepted, whether it came from a normal cycle or an
// operator override.
type Bounds struct {
	ReferenceAsset string
	Min            decimal.Decimal // Zero means unbounded below (beyond positivity)
	Max            decimal.Decimal // Zero means unbounded above
	MinConfidence  float64         // Results below this confidence are rejected
}

// Validate checks a candidate result against the configured sanity bounds.
func (b Bounds) Validate(result *Result) error {
	price, ok := result.Prices[b.ReferenceAsset]
	if !ok {
		return fmt.Errorf("%w: %s", ErrMissingReferenceAsset, b.ReferenceAsset)
	}

	if price.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: got %s", ErrNonPositivePrice, price.String())
	}

	if !b.Min.IsZero() && price.LessThan(b.Min) {
		return fmt.Errorf("%w: %s below %s", ErrPriceOutOfRange, price.String(), b.Min.String())
	}
	if !b.Max.IsZero() && price.GreaterThan(b.Max) {
		return fmt.Errorf("%w: %s above %s", ErrPriceOutOfRange, price.String(), b.Max.String())
	}

	if b.MinConfidence > 0 && result.Confidence < b.MinConfidence {
		return fmt.Errorf("%w: %.3f below %.3f", ErrConfidenceTooLow, result.Confidence, b.MinConfidence)
	}

	return nil
}
