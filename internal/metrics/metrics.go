// Package metrics holds the Prometheus collectors of the vote engine.
package metrics

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Vote outcomes used as the "outcome" label of VotesTotal.
const (
	OutcomeAccepted   = "accepted"
	OutcomeDuplicate  = "duplicate"
	OutcomeSelfVote   = "self_vote"
	OutcomeDailyLimit = "daily_limit"
	OutcomeInvalid    = "invalid"
	OutcomeNotFound   = "not_found"
	OutcomeFailed     = "failed"
)

var (
	VotesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "postrate_votes_total",
			Help: "Vote submissions, by identity kind and outcome.",
		},
		[]string{"identity", "outcome"},
	)

	VoteWeight = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "postrate_vote_weight",
			Help:    "Final weight of accepted votes.",
			Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.8, 1.0, 1.2, 1.5, 2.0, 3.0},
		},
	)

	RecordRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "postrate_record_retries_total",
			Help: "Atomic vote units retried after a transient aggregate failure.",
		},
	)

	ActivityLogFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "postrate_activity_log_failures_total",
			Help: "Activity log writes that failed after the vote was committed.",
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "postrate_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint and method.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "postrate_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		},
	)

	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "postrate_cache_hits_total",
			Help: "Total Redis cache hits.",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "postrate_cache_misses_total",
			Help: "Total Redis cache misses.",
		},
	)

	AggregateDrift = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "postrate_aggregate_drift_total",
			Help: "Post aggregates repaired by reconciliation.",
		},
	)

	ReconcileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "postrate_reconcile_duration_seconds",
			Help:    "Duration of one reconciliation pass.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Register adds every collector to the default registry. pool may be nil
// when running on the in-memory store.
func Register(pool *pgxpool.Pool) {
	prometheus.MustRegister(
		VotesTotal,
		VoteWeight,
		RecordRetries,
		ActivityLogFailures,
		RequestDuration,
		RequestsInFlight,
		CacheHits,
		CacheMisses,
		AggregateDrift,
		ReconcileDuration,
	)

	if pool == nil {
		return
	}
	prometheus.MustRegister(
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "postrate_db_connection_pool_active",
				Help: "Number of active database connections.",
			},
			func() float64 { return float64(pool.Stat().AcquiredConns()) },
		),
		prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "postrate_db_connection_pool_idle",
				Help: "Number of idle database connections.",
			},
			func() float64 { return float64(pool.Stat().IdleConns()) },
		),
	)
}
