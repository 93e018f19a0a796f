// Package consensus reduces a set of source readings to a single trusted
// value with a confidence estimate.
package consensus

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/consensus-oracle/pkg/oracle/feed"
)

const (
	// DefaultConfidenceFloor is the lower clamp for confidence scores. The
	// floor keeps wildly divergent batches from being discarded entirely;
	// deployments can raise it via config.
	DefaultConfidenceFloor = 0.1

	// SingleSourceConfidence is assigned when agreement cannot be assessed.
	SingleSourceConfidence = 0.5

	// OverrideSource is the source name recorded for operator overrides.
	OverrideSource = "manual_override"
)

// Result is the reduced consensus value for one cycle. Immutable after
// creation; the controller replaces its "last accepted" pointer wholesale.
type Result struct {
	Prices     map[string]decimal.Decimal `json:"prices"`
	Sources    []string                   `json:"sources"`
	Confidence float64                    `json:"confidence"`
	Deviation  float64                    `json:"deviation"`
	CapturedAt time.Time                  `json:"captured_at"`
	Emergency  bool                       `json:"emergency"`
}

// Engine computes weighted consensus values. It is stateless; Reduce is a
// pure function of its input.
type Engine struct {
	referenceAsset  string
	confidenceFloor float64
}

// NewEngine creates a consensus engine for the given reference asset.
func NewEngine(referenceAsset string, confidenceFloor float64) *Engine {
	if confidenceFloor <= 0 || confidenceFloor > 1 {
		confidenceFloor = DefaultConfidenceFloor
	}
	return &Engine{
		referenceAsset:  referenceAsset,
		confidenceFloor: confidenceFloor,
	}
}

// ReferenceAsset returns the asset confidence and deviation are computed over.
func (e *Engine) ReferenceAsset() string {
	return e.referenceAsset
}

// Reduce computes the weighted consensus over all OK readings. Must be called
// with at least one OK reading.
func (e *Engine) Reduce(readings []feed.Reading) (*Result, error) {
	// Per-asset accumulation: a reading missing an asset contributes zero
	// weight for that asset only, it never drops the whole reading.
	sums := make(map[string]decimal.Decimal)
	weightSums := make(map[string]float64)
	contributed := make(map[string]bool)

	var refPrices []float64

	for _, r := range readings {
		if !r.OK || r.Weight <= 0 || len(r.Prices) == 0 {
			continue
		}

		weight := decimal.NewFromFloat(r.Weight)
		for asset, price := range r.Prices {
			sums[asset] = sums[asset].Add(price.Mul(weight))
			weightSums[asset] += r.Weight
		}
		contributed[r.Source] = true

		if ref, ok := r.Prices[e.referenceAsset]; ok {
			refPrices = append(refPrices, ref.InexactFloat64())
		}
	}

	if len(contributed) == 0 {
		return nil, ErrNoContributingReadings
	}

	prices := make(map[string]decimal.Decimal, len(sums))
	for asset, sum := range sums {
		prices[asset] = sum.Div(decimal.NewFromFloat(weightSums[asset]))
	}

	sources := make([]string, 0, len(contributed))
	for name := range contributed {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	return &Result{
		Prices:     prices,
		Sources:    sources,
		Confidence: e.confidence(refPrices),
		Deviation:  deviation(refPrices),
		CapturedAt: time.Now(),
	}, nil
}

// confidence maps inter-source agreement on the reference asset to [floor, 1].
// Fewer than two contributing readings cannot be assessed and score 0.5.
func (e *Engine) confidence(prices []float64) float64 {
	if len(prices) < 2 {
		return SingleSourceConfidence
	}

	mean := 0.0
	for _, p := range prices {
		mean += p
	}
	mean /= float64(len(prices))
	if mean == 0 {
		return e.confidenceFloor
	}

	variance := 0.0
	for _, p := range prices {
		d := p - mean
		variance += d * d
	}
	variance /= float64(len(prices) - 1)

	cv := math.Sqrt(variance) / mean
	return clamp(1-cv, e.confidenceFloor, 1.0)
}

// deviation is the reference-asset spread (max-min)/min, 0 below two readings.
func deviation(prices []float64) float64 {
	if len(prices) < 2 {
		return 0
	}

	min, max := prices[0], prices[0]
	for _, p := range prices[1:] {
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}
	if min == 0 {
		return 0
	}
	return (max - min) / min
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NewOverrideResult builds a consensus result from operator-supplied prices.
// The caller is still responsible for plausibility validation.
func NewOverrideResult(prices map[string]decimal.Decimal) *Result {
	copied := make(map[string]decimal.Decimal, len(prices))
	for asset, price := range prices {
		copied[asset] = price
	}
	return &Result{
		Prices:     copied,
		Sources:    []string{OverrideSource},
		Confidence: 1.0,
		Deviation:  0,
		CapturedAt: time.Now(),
		Emergency:  true,
	}
}
