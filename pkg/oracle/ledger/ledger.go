// Package ledger provides the on-chain commit capability the oracle invokes
// for accepted price updates. When no committer is configured the oracle
// runs in local-only mode and commits are a no-op.
package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// CommitResult identifies a submitted ledger transaction.
type CommitResult struct {
	TxHash string
}

// Committer submits a scaled reference price to the external ledger. The
// call must be timeout-bounded; non-response is treated as failure by the
// caller, never as an indefinitely pending operation.
type Committer interface {
	Commit(ctx context.Context, price decimal.Decimal) (*CommitResult, error)
}
