package consensus

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/consensus-oracle/pkg/oracle/feed"
)

func reading(source string, weight float64, prices map[string]float64) feed.Reading {
	decPrices := make(map[string]decimal.Decimal, len(prices))
	for asset, p := range prices {
		decPrices[asset] = decimal.NewFromFloat(p)
	}
	return feed.Reading{
		Source:     source,
		Prices:     decPrices,
		Weight:     weight,
		CapturedAt: time.Now(),
		OK:         true,
	}
}

func TestEngine_Reduce_WeightedMean(t *testing.T) {
	engine := NewEngine("BTC/USD", DefaultConfidenceFloor)

	readings := []feed.Reading{
		reading("binance", 0.4, map[string]float64{"BTC/USD": 41000}),
		reading("kraken", 0.3, map[string]float64{"BTC/USD": 41500}),
		reading("coingecko", 0.3, map[string]float64{"BTC/USD": 40800}),
	}

	result, err := engine.Reduce(readings)
	require.NoError(t, err)

	// 0.4*41000 + 0.3*41500 + 0.3*40800 = 41090
	expected := decimal.NewFromInt(41090)
	assert.True(t, result.Prices["BTC/USD"].Sub(expected).Abs().LessThan(decimal.NewFromFloat(0.0001)),
		"got %s", result.Prices["BTC/USD"].String())

	assert.Equal(t, []string{"binance", "coingecko", "kraken"}, result.Sources)
	assert.InDelta(t, 0.9912, result.Confidence, 0.001)
	assert.InDelta(t, 700.0/40800.0, result.Deviation, 0.0001)
	assert.False(t, result.Emergency)
}

func TestEngine_Reduce_SingleSourceConfidence(t *testing.T) {
	engine := NewEngine("BTC/USD", DefaultConfidenceFloor)

	result, err := engine.Reduce([]feed.Reading{
		reading("binance", 1.0, map[string]float64{"BTC/USD": 41000}),
	})
	require.NoError(t, err)

	assert.Equal(t, SingleSourceConfidence, result.Confidence)
	assert.Equal(t, 0.0, result.Deviation)
}

func TestEngine_Reduce_MissingAssetDoesNotVote(t *testing.T) {
	engine := NewEngine("BTC/USD", DefaultConfidenceFloor)

	readings := []feed.Reading{
		reading("binance", 0.5, map[string]float64{"BTC/USD": 41000, "ETH/USD": 2500}),
		reading("kraken", 0.5, map[string]float64{"BTC/USD": 41000}),
	}

	result, err := engine.Reduce(readings)
	require.NoError(t, err)

	// Kraken has no ETH quote, so ETH is binance-only, not dragged down by
	// a phantom zero vote.
	assert.True(t, result.Prices["ETH/USD"].Equal(decimal.NewFromInt(2500)),
		"got %s", result.Prices["ETH/USD"].String())
	assert.True(t, result.Prices["BTC/USD"].Equal(decimal.NewFromInt(41000)))
}

func TestEngine_Reduce_SkipsFailedReadings(t *testing.T) {
	engine := NewEngine("BTC/USD", DefaultConfidenceFloor)

	failed := reading("kraken", 0.5, nil)
	failed.OK = false

	result, err := engine.Reduce([]feed.Reading{
		reading("binance", 0.5, map[string]float64{"BTC/USD": 41000}),
		failed,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"binance"}, result.Sources)
}

func TestEngine_Reduce_NoContributingReadings(t *testing.T) {
	engine := NewEngine("BTC/USD", DefaultConfidenceFloor)

	failed := reading("binance", 1.0, nil)
	failed.OK = false

	_, err := engine.Reduce([]feed.Reading{failed})
	require.ErrorIs(t, err, ErrNoContributingReadings)
}

func TestEngine_Confidence_DecreasesWithDisagreement(t *testing.T) {
	engine := NewEngine("BTC/USD", DefaultConfidenceFloor)

	tight, err := engine.Reduce([]feed.Reading{
		reading("a", 0.5, map[string]float64{"BTC/USD": 41000}),
		reading("b", 0.5, map[string]float64{"BTC/USD": 41010}),
	})
	require.NoError(t, err)

	wide, err := engine.Reduce([]feed.Reading{
		reading("a", 0.5, map[string]float64{"BTC/USD": 41000}),
		reading("b", 0.5, map[string]float64{"BTC/USD": 46000}),
	})
	require.NoError(t, err)

	assert.Greater(t, tight.Confidence, wide.Confidence)
	assert.Greater(t, wide.Deviation, tight.Deviation)
}

func TestEngine_Confidence_ClampedToFloor(t *testing.T) {
	engine := NewEngine("BTC/USD", 0.1)

	// Wild divergence drives 1-cv below zero; the floor still applies.
	result, err := engine.Reduce([]feed.Reading{
		reading("a", 0.5, map[string]float64{"BTC/USD": 100}),
		reading("b", 0.5, map[string]float64{"BTC/USD": 100000}),
	})
	require.NoError(t, err)

	assert.Equal(t, 0.1, result.Confidence)
}

func TestNewOverrideResult(t *testing.T) {
	prices := map[string]decimal.Decimal{
		"BTC/USD": decimal.NewFromInt(42000),
	}
	result := NewOverrideResult(prices)

	assert.True(t, result.Emergency)
	assert.Equal(t, 1.0, result.Confidence)
	assert.Equal(t, 0.0, result.Deviation)
	assert.Equal(t, []string{OverrideSource}, result.Sources)

	// Mutating the caller's map must not leak into the result
	prices["BTC/USD"] = decimal.NewFromInt(1)
	assert.True(t, result.Prices["BTC/USD"].Equal(decimal.NewFromInt(42000)))
}
