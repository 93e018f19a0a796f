package history

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/consensus-oracle/pkg/oracle/consensus"
)

func entryAt(capturedAt time.Time, price int64) *consensus.Result {
	return &consensus.Result{
		Prices: map[string]decimal.Decimal{
			"BTC/USD": decimal.NewFromInt(price),
		},
		Sources:    []string{"binance"},
		Confidence: 0.9,
		CapturedAt: capturedAt,
	}
}

func TestStore_Append_TrimsOldest(t *testing.T) {
	store := NewStore(3)
	now := time.Now()

	for i := int64(0); i < 5; i++ {
		store.Append(entryAt(now.Add(time.Duration(i)*time.Minute), 40000+i))
	}

	require.Equal(t, 3, store.Len())

	entries := store.Query(time.Hour)
	require.Len(t, entries, 3)

	// Oldest two were trimmed; survivors stay in capture order
	assert.True(t, entries[0].Prices["BTC/USD"].Equal(decimal.NewFromInt(40002)))
	assert.True(t, entries[2].Prices["BTC/USD"].Equal(decimal.NewFromInt(40004)))
}

func TestStore_Query_WindowAndOrder(t *testing.T) {
	store := NewStore(100)
	now := time.Now()

	store.Append(entryAt(now.Add(-3*time.Hour), 40000))
	store.Append(entryAt(now.Add(-90*time.Minute), 41000))
	store.Append(entryAt(now.Add(-10*time.Minute), 42000))

	entries := store.Query(2 * time.Hour)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].CapturedAt.Before(entries[1].CapturedAt))
	assert.True(t, entries[0].Prices["BTC/USD"].Equal(decimal.NewFromInt(41000)))
}

func TestStore_EvictOlderThan(t *testing.T) {
	store := NewStore(100)
	now := time.Now()

	store.Append(entryAt(now.Add(-10*24*time.Hour), 40000))
	store.Append(entryAt(now.Add(-8*24*time.Hour), 40500))
	store.Append(entryAt(now.Add(-time.Hour), 41000))

	evicted := store.EvictOlderThan(7 * 24 * time.Hour)
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 1, store.Len())

	// A second sweep is a no-op
	assert.Equal(t, 0, store.EvictOlderThan(7*24*time.Hour))
}

func TestStore_ResampleHourly(t *testing.T) {
	store := NewStore(100)
	now := time.Now()

	// Two samples in the previous hour, one sample three hours back
	store.Append(entryAt(now.Add(-3*time.Hour-10*time.Minute), 40000))
	store.Append(entryAt(now.Add(-80*time.Minute), 41000))
	store.Append(entryAt(now.Add(-70*time.Minute), 43000))

	buckets := store.ResampleHourly(6 * time.Hour)
	require.Len(t, buckets, 2)

	// Chronological, oldest bucket first
	assert.True(t, buckets[0].Timestamp.Before(buckets[1].Timestamp))
	assert.Equal(t, 1, buckets[0].SampleCount)
	assert.Equal(t, 2, buckets[1].SampleCount)
	assert.True(t, buckets[1].AvgPrices["BTC/USD"].Equal(decimal.NewFromInt(42000)),
		"got %s", buckets[1].AvgPrices["BTC/USD"].String())
}

func TestStore_ResampleHourly_Empty(t *testing.T) {
	store := NewStore(100)
	assert.Nil(t, store.ResampleHourly(time.Hour))
}

func TestStore_AppendQueryConcurrent(t *testing.T) {
	store := NewStore(50)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			store.Append(entryAt(time.Now(), int64(40000+i)))
		}
	}()

	for i := 0; i < 50; i++ {
		_ = store.Query(time.Hour)
		_ = store.Len()
	}
	<-done

	require.Equal(t, 50, store.Len())
}
