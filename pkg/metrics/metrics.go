// Package metrics provides Prometheus metrics for the consensus oracle.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CyclesTotal is a counter of completed update cycles by outcome.
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_cycles_total",
			Help: "Total number of update cycles by outcome",
		},
		[]string{"status"},
	)

	// CycleDuration is a histogram of full update cycle durations.
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "oracle_cycle_duration_seconds",
			Help:    "Duration of complete update cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	// FeedFetchesTotal is a counter of per-source fetch attempts.
	FeedFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_feed_fetches_total",
			Help: "Total number of per-source fetch attempts by outcome",
		},
		[]string{"source", "status"},
	)

	// ConsensusConfidence is a gauge of the last accepted confidence score.
	ConsensusConfidence = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oracle_consensus_confidence",
			Help: "Confidence score of the last accepted consensus result",
		},
	)

	// ConsensusDeviation is a gauge of the last accepted inter-source deviation.
	ConsensusDeviation = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oracle_consensus_deviation",
			Help: "Inter-source deviation of the last accepted consensus result",
		},
	)

	// CommitsTotal is a counter of ledger commit attempts.
	CommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_ledger_commits_total",
			Help: "Total number of ledger commit attempts by outcome",
		},
		[]string{"status"},
	)

	// AlertDeliveriesTotal is a counter of alert notification deliveries.
	AlertDeliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "oracle_alert_deliveries_total",
			Help: "Total number of alert notification deliveries by outcome",
		},
		[]string{"status"},
	)

	// HistoryEntries is a gauge of the number of retained history entries.
	HistoryEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "oracle_history_entries",
			Help: "Number of consensus results currently retained in history",
		},
	)
)

// Init registers all metrics with the default Prometheus registry.
func Init() {
	prometheus.MustRegister(
		CyclesTotal,
		CycleDuration,
		FeedFetchesTotal,
		ConsensusConfidence,
		ConsensusDeviation,
		CommitsTotal,
		AlertDeliveriesTotal,
		HistoryEntries,
	)
}

// ServeHTTP serves Prometheus metrics on the specified address.
func ServeHTTP(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return server.ListenAndServe()
}

// RecordCycle records a completed update cycle.
func RecordCycle(status string, duration time.Duration) {
	CyclesTotal.WithLabelValues(status).Inc()
	CycleDuration.Observe(duration.Seconds())
}

// RecordFeedFetch records a per-source fetch attempt.
func RecordFeedFetch(source, status string) {
	FeedFetchesTotal.WithLabelValues(source, status).Inc()
}

// RecordConsensus records confidence and deviation of an accepted result.
func RecordConsensus(confidence, deviation float64) {
	ConsensusConfidence.Set(confidence)
	ConsensusDeviation.Set(deviation)
}

// RecordCommit records a ledger commit attempt.
func RecordCommit(status string) {
	CommitsTotal.WithLabelValues(status).Inc()
}

// RecordAlertDelivery records an alert notification delivery.
func RecordAlertDelivery(status string) {
	AlertDeliveriesTotal.WithLabelValues(status).Inc()
}

// RecordHistoryLength records the current history length.
func RecordHistoryLength(n int) {
	HistoryEntries.Set(float64(n))
}
