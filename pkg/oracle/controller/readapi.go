package controller

import (
	"time"

	"github.com/shopspring/decimal"

	"tc.com/consensus-oracle/pkg/oracle/alert"
	"tc.com/consensus-oracle/pkg/oracle/consensus"
	"tc.com/consensus-oracle/pkg/oracle/history"
)

// Conversion is the result of converting an amount of the reference asset
// into the quote asset at the last accepted consensus rate.
type Conversion struct {
	Amount     decimal.Decimal `json:"amount"`
	Rate       decimal.Decimal `json:"rate"`
	Confidence float64         `json:"confidence"`
}

// Status is the operational snapshot served to external consumers.
type Status struct {
	Stats             Stats      `json:"stats"`
	LastUpdateAt      *time.Time `json:"last_update_at,omitempty"`
	LastCommitAt      *time.Time `json:"last_commit_at,omitempty"`
	ConfiguredSources []string   `json:"configured_sources"`
	HistoryLength     int        `json:"history_length"`
	ActiveAlertCount  int        `json:"active_alert_count"`
	LedgerEnabled     bool       `json:"ledger_enabled"`
}

// CurrentPrices returns the last accepted consensus result, or nil before
// the first successful cycle. Never fails on transient source outages.
func (c *Controller) CurrentPrices() *consensus.Result {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastAccepted
}

// Convert converts an amount of the reference asset into the quote asset
// using the last accepted prices.
func (c *Controller) Convert(amount decimal.Decimal) (*Conversion, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidAmount
	}

	c.mu.RLock()
	result := c.lastAccepted
	c.mu.RUnlock()

	if result == nil {
		return nil, ErrNoPriceData
	}

	refPrice, ok := result.Prices[c.cfg.ReferenceAsset]
	if !ok {
		return nil, ErrNoPriceData
	}
	quotePrice, ok := result.Prices[c.cfg.QuoteAsset]
	if !ok || quotePrice.IsZero() {
		return nil, ErrNoPriceData
	}

	rate := refPrice.Div(quotePrice)
	return &Conversion{
		Amount:     amount.Mul(rate),
		Rate:       rate,
		Confidence: result.Confidence,
	}, nil
}

// History returns raw accepted updates within the window, oldest first.
func (c *Controller) History(since time.Duration) []*consensus.Result {
	return c.history.Query(since)
}

// HistoryHourly returns hour-resampled history within the window.
func (c *Controller) HistoryHourly(since time.Duration) []history.Bucket {
	return c.history.ResampleHourly(since)
}

// Status returns the operational snapshot.
func (c *Controller) Status() Status {
	c.mu.RLock()
	stats := c.stats
	lastAccepted := c.lastAccepted
	lastCommitAt := c.lastCommitAt
	c.mu.RUnlock()

	status := Status{
		Stats:             stats,
		ConfiguredSources: c.aggregator.Sources(),
		HistoryLength:     c.history.Len(),
		ActiveAlertCount:  c.alerts.ActiveCount(),
		LedgerEnabled:     c.committer != nil,
	}
	if lastAccepted != nil {
		t := lastAccepted.CapturedAt
		status.LastUpdateAt = &t
	}
	if !lastCommitAt.IsZero() {
		t := lastCommitAt
		status.LastCommitAt = &t
	}
	return status
}

// CreateAlertRule registers a new alert rule.
func (c *Controller) CreateAlertRule(thresholds map[string]alert.Threshold, notifyTarget string) (alert.Rule, error) {
	return c.alerts.CreateRule(thresholds, notifyTarget)
}
