// Package metrics declares the process's Prometheus collectors,
// grounded on the teacher's internal/storage/metrics.go: package-level
// promauto vars plus small Record*/Set* helper functions so callers
// never touch a *prometheus.CounterVec directly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequestsTotal counts response-cache lookups by service and
	// outcome (hit, miss, failed_lookup).
	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmdarr",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Total response-cache lookups by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	// LibraryCacheRequestsTotal counts library-cache snapshot lookups.
	LibraryCacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmdarr",
			Subsystem: "library_cache",
			Name:      "requests_total",
			Help:      "Total library-cache lookups by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	// CommandExecutionsTotal counts completed executions by command and
	// outcome (success, failure).
	CommandExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmdarr",
			Subsystem: "command",
			Name:      "executions_total",
			Help:      "Total command executions by command name and outcome",
		},
		[]string{"command", "outcome"},
	)

	// CommandExecutionDuration tracks execution wall-clock time.
	CommandExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cmdarr",
			Subsystem: "command",
			Name:      "execution_duration_seconds",
			Help:      "Command execution duration in seconds",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"command"},
	)

	// CommandsRunningGauge reports the current number of running
	// executions, for the global-cap invariant (spec §8).
	CommandsRunningGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "cmdarr",
			Subsystem: "command",
			Name:      "running",
			Help:      "Current number of running command executions",
		},
	)

	// DiscoveryFilteredTotal breaks down discovery-pipeline filtering by
	// reason (spec §4.7 FilteringStats).
	DiscoveryFilteredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cmdarr",
			Subsystem: "discovery",
			Name:      "filtered_total",
			Help:      "Total discovery candidates filtered out by reason",
		},
		[]string{"source", "reason"},
	)
)

// RecordCacheOutcome records one response-cache lookup.
func RecordCacheOutcome(service, outcome string) {
	CacheRequestsTotal.WithLabelValues(service, outcome).Inc()
}

// RecordLibraryCacheOutcome records one library-cache lookup.
func RecordLibraryCacheOutcome(service, outcome string) {
	LibraryCacheRequestsTotal.WithLabelValues(service, outcome).Inc()
}

// RecordExecution records a completed execution's outcome and duration.
func RecordExecution(command string, success bool, durationSeconds float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	CommandExecutionsTotal.WithLabelValues(command, outcome).Inc()
	CommandExecutionDuration.WithLabelValues(command).Observe(durationSeconds)
}

// SetRunning reports the current running-execution count.
func SetRunning(count int) {
	CommandsRunningGauge.Set(float64(count))
}

// RecordDiscoveryFiltered records one discovery candidate filtered for reason.
func RecordDiscoveryFiltered(source, reason string, count int) {
	if count <= 0 {
		return
	}
	DiscoveryFilteredTotal.WithLabelValues(source, reason).Add(float64(count))
}
