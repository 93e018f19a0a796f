package controller

import "errors"

var (
	// ErrCycleInProgress indicates a cycle trigger was dropped because one is in flight.
	ErrCycleInProgress = errors.New("update cycle already in progress")
	// ErrNoPriceData indicates no consensus value has been accepted yet.
	ErrNoPriceData = errors.New("no price data available")
	// ErrInvalidAmount indicates a conversion was requested for a non-positive amount.
	ErrInvalidAmount = errors.New("amount must be positive")
)
