// Package history retains a bounded in-memory log of accepted consensus
// results for reporting. Persistence across restarts is deliberately out of
// scope; durable storage is a downstream consumer's concern.
package history

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/consensus-oracle/pkg/metrics"
	"tc.com/consensus-oracle/pkg/oracle/consensus"
)

// Bucket is one hour of resampled history.
type Bucket struct {
	Timestamp   time.Time                  `json:"timestamp"` // Start of the hour window
	AvgPrices   map[string]decimal.Decimal `json:"avg_prices"`
	SampleCount int                        `json:"sample_count"`
}

// Store is a bounded append-only log of accepted updates, ordered by capture
// time. Appends trim FIFO once maxEntries is exceeded; a separate time-based
// sweep evicts entries older than the retention window.
type Store struct {
	mu         sync.RWMutex
	entries    []*consensus.Result
	maxEntries int
}

// NewStore creates a history store holding at most maxEntries results.
func NewStore(maxEntries int) *Store {
	if maxEntries <= 0 {
		maxEntries = 2016
	}
	return &Store{
		entries:    make([]*consensus.Result, 0, maxEntries),
		maxEntries: maxEntries,
	}
}

// Append records an accepted result, trimming the oldest entries once the
// length bound is exceeded.
func (s *Store) Append(entry *consensus.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, entry)
	if len(s.entries) > s.maxEntries {
		// Copy to avoid retaining evicted entries through the backing array
		trimmed := make([]*consensus.Result, s.maxEntries)
		copy(trimmed, s.entries[len(s.entries)-s.maxEntries:])
		s.entries = trimmed
	}

	metrics.RecordHistoryLength(len(s.entries))
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Query returns all entries captured within the given duration, oldest first.
func (s *Store) Query(since time.Duration) []*consensus.Result {
	cutoff := time.Now().Add(-since)

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*consensus.Result, 0)
	for _, entry := range s.entries {
		if entry.CapturedAt.After(cutoff) {
			result = append(result, entry)
		}
	}
	return result
}

// ResampleHourly buckets entries into backward-looking hour windows from now,
// averaging every asset per bucket. Buckets with zero samples are omitted.
// Output is chronological, oldest first.
func (s *Store) ResampleHourly(since time.Duration) []Bucket {
	entries := s.Query(since)
	if len(entries) == 0 {
		return nil
	}

	now := time.Now()
	byBucket := make(map[int64][]*consensus.Result)
	for _, entry := range entries {
		// Hours back from now, so windows are anchored to the query time
		hoursBack := int64(now.Sub(entry.CapturedAt) / time.Hour)
		byBucket[hoursBack] = append(byBucket[hoursBack], entry)
	}

	buckets := make([]Bucket, 0, len(byBucket))
	for hoursBack, bucketEntries := range byBucket {
		sums := make(map[string]decimal.Decimal)
		counts := make(map[string]int64)
		for _, entry := range bucketEntries {
			for asset, price := range entry.Prices {
				sums[asset] = sums[asset].Add(price)
				counts[asset]++
			}
		}

		avg := make(map[string]decimal.Decimal, len(sums))
		for asset, sum := range sums {
			avg[asset] = sum.Div(decimal.NewFromInt(counts[asset]))
		}

		buckets = append(buckets, Bucket{
			Timestamp:   now.Add(-time.Duration(hoursBack+1) * time.Hour),
			AvgPrices:   avg,
			SampleCount: len(bucketEntries),
		})
	}

	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Timestamp.Before(buckets[j].Timestamp)
	})
	return buckets
}

// EvictOlderThan removes entries outside the retention window. Idempotent and
// safe to call concurrently with Append. Returns the number evicted.
func (s *Store) EvictOlderThan(retention time.Duration) int {
	cutoff := time.Now().Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Entries are ordered by capture time, so find the first survivor
	firstKept := len(s.entries)
	for i, entry := range s.entries {
		if entry.CapturedAt.After(cutoff) {
			firstKept = i
			break
		}
	}

	if firstKept == 0 {
		return 0
	}

	kept := make([]*consensus.Result, len(s.entries)-firstKept)
	copy(kept, s.entries[firstKept:])
	s.entries = kept

	metrics.RecordHistoryLength(len(s.entries))
	return firstKept
}
