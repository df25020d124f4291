// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_submissions_total",
			Help: "Total number of waitlist submissions processed",
		},
		[]string{"source", "outcome"},
	)

	SubmissionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_submission_failures_total",
			Help: "Total number of failed waitlist submissions by reason",
		},
		[]string{"reason"},
	)

	ReferralsLinked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "waitlist_referrals_linked_total",
			Help: "Total number of referral pairs recorded",
		},
	)

	AdminQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "waitlist_admin_query_duration_seconds",
			Help: "Duration of admin/query surface operations in seconds",
		},
		[]string{"operation"},
	)

	StatsCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_stats_cache_requests_total",
			Help: "Stats cache lookups by result",
		},
		[]string{"result"},
	)
)
