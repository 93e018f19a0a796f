package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tc.com/consensus-oracle/pkg/logging"
	"tc.com/consensus-oracle/pkg/metrics"
)

// Aggregator fans out to all configured adapters concurrently and collects
// whichever respond within the per-source timeout. A failing source yields a
// Reading with OK=false and never aborts the batch.
type Aggregator struct {
	adapters []Adapter
	weights  map[string]float64 // source name -> weight in (0,1]
	timeout  time.Duration
	logger   *logging.Logger
}

// NewAggregator creates a new fan-out aggregator.
func NewAggregator(adapters []Adapter, weights map[string]float64, timeout time.Duration, logger *logging.Logger) *Aggregator {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Aggregator{
		adapters: adapters,
		weights:  weights,
		timeout:  timeout,
		logger:   logger,
	}
}

// Sources returns the names of all configured adapters.
func (a *Aggregator) Sources() []string {
	names := make([]string, 0, len(a.adapters))
	for _, adapter := range a.adapters {
		names = append(names, adapter.Name())
	}
	return names
}

// FetchAll issues one fetch per adapter concurrently, each bounded by the
// per-source timeout. Returns ErrAllFeedsFailed if no source succeeds.
func (a *Aggregator) FetchAll(ctx context.Context) ([]Reading, error) {
	readings := make([]Reading, len(a.adapters))

	var wg sync.WaitGroup
	for i, adapter := range a.adapters {
		wg.Add(1)
		go func(i int, adapter Adapter) {
			defer wg.Done()
			readings[i] = a.fetchOne(ctx, adapter)
		}(i, adapter)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range readings {
		if r.OK {
			succeeded++
		}
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("%w: %d sources attempted", ErrAllFeedsFailed, len(a.adapters))
	}

	a.logger.Debug("Fetched readings",
		"succeeded", succeeded,
		"attempted", len(a.adapters))

	return readings, nil
}

// fetchOne performs a single bounded fetch and normalizes the outcome.
func (a *Aggregator) fetchOne(ctx context.Context, adapter Adapter) Reading {
	fetchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	name := adapter.Name()
	weight := 1.0
	if w, ok := a.weights[name]; ok {
		weight = w
	}

	prices, err := adapter.Fetch(fetchCtx)
	now := time.Now()

	if err != nil {
		a.logger.Warn("Source fetch failed", "source", name, "error", err.Error())
		metrics.RecordFeedFetch(name, "error")
		return Reading{Source: name, Weight: weight, CapturedAt: now, OK: false, Err: err}
	}

	if len(prices) == 0 {
		a.logger.Warn("Source returned no prices", "source", name)
		metrics.RecordFeedFetch(name, "empty")
		return Reading{Source: name, Weight: weight, CapturedAt: now, OK: false, Err: ErrNoPricesExtracted}
	}

	metrics.RecordFeedFetch(name, "ok")
	return Reading{
		Source:     name,
		Prices:     prices,
		Weight:     weight,
		CapturedAt: now,
		OK:         true,
	}
}
