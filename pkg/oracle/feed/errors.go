// Package feed provides price source adapters and the concurrent
// fan-out aggregator that samples them.
package feed

import "errors"

var (
	// ErrAllFeedsFailed indicates that no configured source returned a usable quote.
	ErrAllFeedsFailed = errors.New("all price feeds failed")
	// ErrUnexpectedStatus indicates an unexpected HTTP status code.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status code")
	// ErrInvalidResponse indicates an invalid response from the source.
	ErrInvalidResponse = errors.New("invalid response")
	// ErrAPIError indicates an API error.
	ErrAPIError = errors.New("API error")
	// ErrNoPricesExtracted indicates that no prices are extracted from response.
	ErrNoPricesExtracted = errors.New("no prices extracted from response")
	// ErrNoPairsConfigured indicates that no valid pairs are configured.
	ErrNoPairsConfigured = errors.New("no valid pairs configured")
	// ErrUnknownAdapter indicates that no factory is registered for a source.
	ErrUnknownAdapter = errors.New("unknown source adapter")
)
