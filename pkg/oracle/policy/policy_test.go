package policy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"tc.com/consensus-oracle/pkg/oracle/consensus"
)

func resultAt(price int64) *consensus.Result {
	return &consensus.Result{
		Prices: map[string]decimal.Decimal{
			"BTC/USD": decimal.NewFromInt(price),
		},
	}
}

func TestPolicy_ShouldCommit_ColdStart(t *testing.T) {
	p := New("BTC/USD", 15*time.Minute, 0.05)

	assert.True(t, p.ShouldCommit(resultAt(40000), nil, time.Time{}))
}

func TestPolicy_ShouldCommit_SmallMoveSkipped(t *testing.T) {
	p := New("BTC/USD", 15*time.Minute, 0.05)

	// 0.25% move five minutes after the last commit: no write
	last := resultAt(40000)
	lastAt := time.Now().Add(-5 * time.Minute)

	assert.False(t, p.ShouldCommit(resultAt(40100), last, lastAt))
}

func TestPolicy_ShouldCommit_LargeMove(t *testing.T) {
	p := New("BTC/USD", 15*time.Minute, 0.05)

	// 6.25% move exceeds the 5% threshold
	last := resultAt(40000)
	lastAt := time.Now().Add(-5 * time.Minute)

	assert.True(t, p.ShouldCommit(resultAt(42500), last, lastAt))
}

func TestPolicy_ShouldCommit_Staleness(t *testing.T) {
	p := New("BTC/USD", 15*time.Minute, 0.05)

	// Identical price but the last commit is older than the staleness window
	last := resultAt(40000)
	lastAt := time.Now().Add(-16 * time.Minute)

	assert.True(t, p.ShouldCommit(resultAt(40000), last, lastAt))
}

func TestPolicy_ShouldCommit_ExactThresholdSkipped(t *testing.T) {
	p := New("BTC/USD", 15*time.Minute, 0.05)

	// Exactly 5% is not "more than 5%"
	last := resultAt(40000)
	lastAt := time.Now().Add(-time.Minute)

	assert.False(t, p.ShouldCommit(resultAt(42000), last, lastAt))
}

func TestNew_Defaults(t *testing.T) {
	p := New("BTC/USD", 0, 0)

	assert.Equal(t, 15*time.Minute, p.MaxAge)
	assert.Equal(t, 0.05, p.DeviationPct)
}
