// Package metrics exposes prometheus collectors for the HTTP layer and the
// complaint lifecycle.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "complaintdesk"

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	StatusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_transitions_total",
			Help:      "Committed complaint status transitions",
		},
		[]string{"from", "to"},
	)

	AuditEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_total",
			Help:      "Committed audit entries by action",
		},
		[]string{"action"},
	)

	Denials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "authz_denials_total",
			Help:      "Authorization denials by action",
		},
		[]string{"action"},
	)

	ReferenceRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reference_collisions_total",
		Help:      "Reference number collisions that triggered a retry",
	})
)

// RecordTransition counts a committed status change.
func RecordTransition(from, to string) {
	StatusTransitions.WithLabelValues(from, to).Inc()
}

func RecordAudit(action string) {
	AuditEntries.WithLabelValues(action).Inc()
}

func RecordDenial(action string) {
	Denials.WithLabelValues(action).Inc()
}

// ObserveHTTP records one finished request. route should be a pattern, not
// the raw path, to keep label cardinality bounded.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
