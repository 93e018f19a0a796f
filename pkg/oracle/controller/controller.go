// Package controller owns the periodic update cadence and wires feed
// aggregation, consensus, commit policy, history and alerting into one
// sequential cycle.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/consensus-oracle/pkg/logging"
	"tc.com/consensus-oracle/pkg/metrics"
	"tc.com/consensus-oracle/pkg/oracle/alert"
	"tc.com/consensus-oracle/pkg/oracle/consensus"
	"tc.com/consensus-oracle/pkg/oracle/feed"
	"tc.com/consensus-oracle/pkg/oracle/history"
	"tc.com/consensus-oracle/pkg/oracle/ledger"
	"tc.com/consensus-oracle/pkg/oracle/policy"
)

// Config holds the controller's scheduling parameters.
type Config struct {
	ReferenceAsset  string
	QuoteAsset      string
	SampleInterval  time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
}

// AcceptFunc is invoked after each accepted update. Replaces event fan-out:
// consumers needing push notification register this at construction.
type AcceptFunc func(*consensus.Result)

// Controller runs the update cycle and owns all mutable oracle state: the
// single-flight guard, the last accepted and last committed pointers, and
// the operational counters.
type Controller struct {
	aggregator *feed.Aggregator
	engine     *consensus.Engine
	bounds     consensus.Bounds
	policy     policy.Policy
	history    *history.Store
	alerts     *alert.Engine
	committer  ledger.Committer // nil = local-only mode
	logger     *logging.Logger
	cfg        Config
	onAccept   AcceptFunc

	// Single-flight guard: a trigger arriving mid-cycle is dropped, not queued
	cycleMu sync.Mutex

	mu            sync.RWMutex
	lastAccepted  *consensus.Result
	lastCommitted *consensus.Result
	lastCommitAt  time.Time
	stats         Stats

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// New creates a controller. committer may be nil for local-only mode;
// onAccept may be nil.
func New(
	cfg Config,
	aggregator *feed.Aggregator,
	engine *consensus.Engine,
	bounds consensus.Bounds,
	commitPolicy policy.Policy,
	store *history.Store,
	alerts *alert.Engine,
	committer ledger.Committer,
	onAccept AcceptFunc,
	logger *logging.Logger,
) *Controller {
	if cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 5 * time.Minute
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = 24 * time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}

	return &Controller{
		aggregator: aggregator,
		engine:     engine,
		bounds:     bounds,
		policy:     commitPolicy,
		history:    store,
		alerts:     alerts,
		committer:  committer,
		logger:     logger,
		cfg:        cfg,
		onAccept:   onAccept,
		stopCh:     make(chan struct{}),
	}
}

// Start launches the sampling and cleanup timers. An initial cycle runs
// immediately so prices are available before the first tick.
func (c *Controller) Start(ctx context.Context) {
	c.logger.Info("Starting oracle controller",
		"sample_interval", c.cfg.SampleInterval.String(),
		"cleanup_interval", c.cfg.CleanupInterval.String(),
		"sources", c.aggregator.Sources())

	c.wg.Add(2)
	go c.sampleLoop(ctx)
	go c.cleanupLoop(ctx)
}

// Stop halts both timers and waits for in-flight work. Idempotent; a cycle
// already past aggregation is allowed to finish.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	c.wg.Wait()
	c.alerts.WaitDeliveries()
	c.logger.Info("Oracle controller stopped")
}

func (c *Controller) sampleLoop(ctx context.Context) {
	defer c.wg.Done()

	if err := c.RunCycle(ctx); err != nil {
		c.logger.Warn("Initial update cycle failed", "error", err.Error())
	}

	ticker := time.NewTicker(c.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			if err := c.RunCycle(ctx); err != nil {
				c.logger.Warn("Update cycle failed", "error", err.Error())
			}
		}
	}
}

func (c *Controller) cleanupLoop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			evicted := c.history.EvictOlderThan(c.cfg.Retention)
			if evicted > 0 {
				c.logger.Info("History retention sweep", "evicted", evicted)
			}
		}
	}
}

// RunCycle executes one full update cycle: fetch, reduce, validate, commit
// decision, record, alert. A trigger arriving while a cycle is in flight is
// dropped with a logged skip and does not touch the counters.
func (c *Controller) RunCycle(ctx context.Context) error {
	if !c.cycleMu.TryLock() {
		c.logger.Warn("Skipping update cycle, previous cycle still in flight")
		return ErrCycleInProgress
	}
	defer c.cycleMu.Unlock()

	start := time.Now()

	readings, err := c.aggregator.FetchAll(ctx)
	if err != nil {
		c.recordCycle(start, err)
		return err
	}

	result, err := c.engine.Reduce(readings)
	if err != nil {
		c.recordCycle(start, err)
		return err
	}

	if err := c.bounds.Validate(result); err != nil {
		c.logger.Error("Consensus result failed plausibility check, cycle abandoned",
			"error", err.Error())
		c.recordCycle(start, err)
		return fmt.Errorf("plausibility check: %w", err)
	}

	c.finalize(ctx, result)
	c.recordCycle(start, nil)
	return nil
}

// ForceOverride injects an operator-supplied value through the same
// validation, commit, history and alert path, bypassing aggregation and
// consensus. An implausible override is rejected outright, never ignored.
func (c *Controller) ForceOverride(ctx context.Context, prices map[string]decimal.Decimal, reason string) (*consensus.Result, error) {
	result := consensus.NewOverrideResult(prices)

	if err := c.bounds.Validate(result); err != nil {
		c.logger.Error("Emergency override rejected", "reason", reason, "error", err.Error())
		return nil, fmt.Errorf("plausibility check: %w", err)
	}

	// Serialize with the regular cycle; overrides wait rather than drop
	c.cycleMu.Lock()
	defer c.cycleMu.Unlock()

	c.logger.Warn("Emergency override accepted", "reason", reason)
	c.finalize(ctx, result)
	return result, nil
}

// finalize runs the tail of the pipeline shared by cycles and overrides:
// commit decision, ledger write, history, alerting, pointer swap.
func (c *Controller) finalize(ctx context.Context, result *consensus.Result) {
	c.mu.RLock()
	lastCommitted, lastCommitAt := c.lastCommitted, c.lastCommitAt
	c.mu.RUnlock()

	if c.policy.ShouldCommit(result, lastCommitted, lastCommitAt) {
		c.commit(ctx, result)
	}

	// History reflects sampling cadence, not commit cadence
	c.history.Append(result)
	c.alerts.Evaluate(result)

	c.mu.Lock()
	c.lastAccepted = result
	c.mu.Unlock()

	metrics.RecordConsensus(result.Confidence, result.Deviation)

	if c.onAccept != nil {
		c.onAccept(result)
	}
}

// commit performs the ledger write. The committed pointer only advances on
// confirmed success; a failed commit never invalidates the observed price.
func (c *Controller) commit(ctx context.Context, result *consensus.Result) {
	if c.committer == nil {
		// Local-only mode: accept without a ledger write
		c.advanceCommitted(result)
		return
	}

	price, ok := result.Prices[c.engine.ReferenceAsset()]
	if !ok {
		c.logger.Error("Commit skipped, result missing reference asset")
		return
	}

	commitResult, err := c.committer.Commit(ctx, price)
	if err != nil {
		c.logger.Error("Ledger commit failed", "error", err.Error())
		metrics.RecordCommit("error")
		return
	}

	c.logger.Info("Ledger commit confirmed", "tx_hash", commitResult.TxHash)
	metrics.RecordCommit("ok")
	c.advanceCommitted(result)
}

func (c *Controller) advanceCommitted(result *consensus.Result) {
	c.mu.Lock()
	c.lastCommitted = result
	c.lastCommitAt = time.Now()
	c.mu.Unlock()
}

// recordCycle updates the operational counters after a cycle attempt.
func (c *Controller) recordCycle(start time.Time, err error) {
	elapsed := time.Since(start)

	c.mu.Lock()
	c.stats.record(elapsed, err)
	c.mu.Unlock()

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RecordCycle(status, elapsed)
}
