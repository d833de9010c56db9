package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	signedRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ofnotify",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total signed API requests.",
		},
		[]string{"method", "status"},
	)
	signedDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ofnotify",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Signed API request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)
	ruleFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ofnotify",
			Subsystem: "rules",
			Name:      "fetches_total",
			Help:      "Dynamic rule document fetches.",
		},
		[]string{"outcome"},
	)
	heartbeatRoundTrip = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ofnotify",
			Subsystem: "socket",
			Name:      "heartbeat_round_trip_seconds",
			Help:      "Time from heartbeat send to liveness ack.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	sessionTerminations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ofnotify",
			Subsystem: "socket",
			Name:      "session_terminations_total",
			Help:      "Session terminations by cause.",
		},
		[]string{"cause"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			signedRequests, signedDuration, ruleFetches,
			heartbeatRoundTrip, sessionTerminations,
		)
	})
}

func RecordSignedRequest(method string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	signedRequests.WithLabelValues(method, statusLabel).Inc()
	signedDuration.WithLabelValues(method, statusLabel).Observe(duration.Seconds())
}

func RecordRuleFetch(outcome string) {
	RegisterMetrics()
	ruleFetches.WithLabelValues(outcome).Inc()
}

func RecordHeartbeatRoundTrip(duration time.Duration) {
	RegisterMetrics()
	heartbeatRoundTrip.Observe(duration.Seconds())
}

func RecordSessionTermination(cause string) {
	RegisterMetrics()
	sessionTerminations.WithLabelValues(cause).Inc()
}
