// Package policy decides whether a consensus value is worth committing to
// the external ledger. Ledger writes carry real cost, so commits are gated
// by hysteresis: only staleness or a large enough move triggers one.
package policy

import (
	"time"

	"tc.com/consensus-oracle/pkg/oracle/consensus"
)

// Policy holds the commit thresholds.
type Policy struct {
	ReferenceAsset string
	MaxAge         time.Duration // Commit regardless of movement after this
	DeviationPct   float64       // Commit when relative change exceeds this (0.05 = 5%)
}

// New creates a commit policy with defaults applied.
func New(referenceAsset string, maxAge time.Duration, deviationPct float64) Policy {
	if maxAge <= 0 {
		maxAge = 15 * time.Minute
	}
	if deviationPct <= 0 {
		deviationPct = 0.05
	}
	return Policy{
		ReferenceAsset: referenceAsset,
		MaxAge:         maxAge,
		DeviationPct:   deviationPct,
	}
}

// ShouldCommit reports whether the current result warrants a ledger write.
// lastCommitted is nil on cold start, which always commits.
func (p Policy) ShouldCommit(current, lastCommitted *consensus.Result, lastCommitAt time.Time) bool {
	if lastCommitted == nil {
		return true
	}

	if time.Since(lastCommitAt) > p.MaxAge {
		return true
	}

	curPrice, ok := current.Prices[p.ReferenceAsset]
	if !ok {
		return false
	}
	lastPrice, ok := lastCommitted.Prices[p.ReferenceAsset]
	if !ok || lastPrice.IsZero() {
		return true
	}

	change := curPrice.Sub(lastPrice).Abs().Div(lastPrice).InexactFloat64()
	return change > p.DeviationPct
}
