package controller

import "time"

// Stats holds running operational counters. Reset only on process restart.
type Stats struct {
	TotalCycles           int     `json:"total_cycles"`
	SuccessfulCycles      int     `json:"successful_cycles"`
	FailedCycles          int     `json:"failed_cycles"`
	AverageCycleLatencyMs float64 `json:"average_cycle_latency_ms"`
	LastError             string  `json:"last_error,omitempty"`
}

// record folds one cycle attempt into the counters. Caller holds the lock.
func (s *Stats) record(elapsed time.Duration, err error) {
	s.TotalCycles++
	if err != nil {
		s.FailedCycles++
		s.LastError = err.Error()
	} else {
		s.SuccessfulCycles++
	}

	// Incremental mean over all cycles
	latencyMs := float64(elapsed.Milliseconds())
	s.AverageCycleLatencyMs += (latencyMs - s.AverageCycleLatencyMs) / float64(s.TotalCycles)
}
