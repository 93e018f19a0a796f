package feed

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/consensus-oracle/pkg/logging"
)

// Reading is one source's quote for the configured assets. Readings are
// produced and consumed within a single update cycle and never persisted.
type Reading struct {
	Source     string
	Prices     map[string]decimal.Decimal // unified symbol -> price
	Weight     float64
	CapturedAt time.Time
	OK         bool
	Err        error
}

// Adapter fetches one batch of quotes from one external price source.
// Implementations must honor the context deadline.
type Adapter interface {
	// Name returns the unique name of this source
	Name() string

	// Fetch returns current prices keyed by unified symbol
	Fetch(ctx context.Context) (map[string]decimal.Decimal, error)
}

// AdapterFactory is a function that creates a new Adapter instance
type AdapterFactory func(config map[string]interface{}, logger *logging.Logger) (Adapter, error)

// ParsePairs extracts unified-symbol -> source-symbol mappings from config.
// Expects config["pairs"] to be a map where values are strings.
func ParsePairs(config map[string]interface{}) (map[string]string, error) {
	pairsRaw, ok := config["pairs"]
	if !ok {
		return nil, ErrNoPairsConfigured
	}

	pairsMap, ok := pairsRaw.(map[string]interface{})
	if !ok {
		return nil, ErrNoPairsConfigured
	}

	pairs := make(map[string]string, len(pairsMap))
	for unified, sourceRaw := range pairsMap {
		source, ok := sourceRaw.(string)
		if !ok {
			continue // Skip non-string values
		}
		pairs[unified] = source
	}

	if len(pairs) == 0 {
		return nil, ErrNoPairsConfigured
	}
	return pairs, nil
}
