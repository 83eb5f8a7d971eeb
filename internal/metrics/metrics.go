// Package metrics exposes Prometheus collectors for RPC and search activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "metronome_metrics"

var (
	rpcRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc_client",
		Name:      "operations_total",
		Help:      "Count of ledger RPC operations.",
	}, []string{"operation", "status"})
	rpcRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rpc_client",
		Name:      "operation_duration_seconds",
		Help:      "Duration of ledger RPC operations.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation", "status"})
	retryAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "retry_attempts_total",
		Help:      "Count of failed attempts that were retried or exhausted.",
	}, []string{"operation", "outcome"})
	searchSteps = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "blocktime",
		Name:      "search_steps",
		Help:      "Blocks fetched per time resolution, by phase.",
		Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 256},
	}, []string{"phase"})
	cacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "blocktime",
		Name:      "cache_lookups_total",
		Help:      "Memoized resolution lookups by result.",
	}, []string{"result"})
)

// ObserveRPC records a single RPC call outcome and duration.
func ObserveRPC(operation string, err error, started time.Time) {
	status := "success"
	if err != nil {
		status = "error"
	}
	rpcRequestsTotal.WithLabelValues(operation, status).Inc()
	rpcRequestDuration.WithLabelValues(operation, status).Observe(time.Since(started).Seconds())
}

// ObserveRetry records a failed attempt; exhausted marks the final one.
func ObserveRetry(operation string, exhausted bool) {
	outcome := "retried"
	if exhausted {
		outcome = "exhausted"
	}
	retryAttemptsTotal.WithLabelValues(operation, outcome).Inc()
}

// ObserveSearch records how many blocks a resolution phase fetched.
func ObserveSearch(phase string, steps int) {
	searchSteps.WithLabelValues(phase).Observe(float64(steps))
}

// ObserveCache records a memoized lookup result (hit, miss, shared).
func ObserveCache(result string) {
	cacheLookupsTotal.WithLabelValues(result).Inc()
}
