// Package metrics exposes Prometheus instrumentation for requests made to
// the recommendation service and for the browse controller.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	Requests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_requests_total",
			Help: "Requests sent to the recommendation service by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "advisor_request_duration_seconds",
			Help:    "Round-trip time of requests to the recommendation service",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	StaleResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "advisor_stale_responses_total",
			Help: "Completions dropped because a newer request superseded them",
		},
		[]string{"kind"},
	)

	MergeDuplicates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "advisor_merge_duplicates_total",
			Help: "Records skipped by the merge because their ticker was already accumulated",
		},
	)

	AccumulatedRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "advisor_accumulated_records",
			Help: "Number of records currently held in the browse accumulator",
		},
	)
)

// RecordRequest observes one round trip of the given kind.
func RecordRequest(kind string, d time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	Requests.WithLabelValues(kind, outcome).Inc()
	RequestDuration.WithLabelValues(kind).Observe(d.Seconds())
}
