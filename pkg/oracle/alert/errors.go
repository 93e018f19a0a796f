package alert

import "errors"

var (
	// ErrMissingNotifyTarget indicates a rule was created without a delivery URL.
	ErrMissingNotifyTarget = errors.New("notify target is required")
	// ErrNoThresholds indicates a rule was created without any usable threshold.
	ErrNoThresholds = errors.New("at least one threshold is required")
	// ErrRuleNotFound indicates the referenced rule does not exist.
	ErrRuleNotFound = errors.New("alert rule not found")
	// ErrDeliveryFailed indicates the notification transport rejected the delivery.
	ErrDeliveryFailed = errors.New("alert delivery failed")
)
