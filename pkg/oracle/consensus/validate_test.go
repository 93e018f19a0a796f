package consensus

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func boundedResult(price float64, confidence float64) *Result {
	return &Result{
		Prices: map[string]decimal.Decimal{
			"BTC/USD": decimal.NewFromFloat(price),
		},
		Confidence: confidence,
	}
}

func TestBounds_Validate(t *testing.T) {
	bounds := Bounds{
		ReferenceAsset: "BTC/USD",
		Min:            decimal.NewFromInt(1000),
		Max:            decimal.NewFromInt(10000000),
		MinConfidence:  0.1,
	}

	require.NoError(t, bounds.Validate(boundedResult(41000, 0.95)))
}

func TestBounds_Validate_MissingReferenceAsset(t *testing.T) {
	bounds := Bounds{ReferenceAsset: "BTC/USD"}

	err := bounds.Validate(&Result{Prices: map[string]decimal.Decimal{}})
	require.ErrorIs(t, err, ErrMissingReferenceAsset)
}

func TestBounds_Validate_NonPositive(t *testing.T) {
	bounds := Bounds{ReferenceAsset: "BTC/USD"}

	require.ErrorIs(t, bounds.Validate(boundedResult(0, 1)), ErrNonPositivePrice)
	require.ErrorIs(t, bounds.Validate(boundedResult(-5, 1)), ErrNonPositivePrice)
}

func TestBounds_Validate_OutOfRange(t *testing.T) {
	bounds := Bounds{
		ReferenceAsset: "BTC/USD",
		Min:            decimal.NewFromInt(1000),
		Max:            decimal.NewFromInt(10000000),
	}

	require.ErrorIs(t, bounds.Validate(boundedResult(999, 1)), ErrPriceOutOfRange)
	require.ErrorIs(t, bounds.Validate(boundedResult(10000001, 1)), ErrPriceOutOfRange)
}

func TestBounds_Validate_ConfidenceTooLow(t *testing.T) {
	bounds := Bounds{
		ReferenceAsset: "BTC/USD",
		MinConfidence:  0.3,
	}

	require.ErrorIs(t, bounds.Validate(boundedResult(41000, 0.2)), ErrConfidenceTooLow)
}

func TestBounds_Validate_UnboundedByDefault(t *testing.T) {
	bounds := Bounds{ReferenceAsset: "BTC/USD"}

	require.NoError(t, bounds.Validate(boundedResult(0.0001, 0)))
	require.NoError(t, bounds.Validate(boundedResult(1e12, 0)))
}
