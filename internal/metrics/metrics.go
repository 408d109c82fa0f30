package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	AuditsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pageaudit_audits_total",
			Help: "Audits by mode and outcome (ok, error, cached)",
		},
		[]string{"mode", "outcome"},
	)

	AuditDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pageaudit_audit_duration_seconds",
			Help:    "Duration of uncached audits in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"mode"},
	)

	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pageaudit_fetch_attempts_total",
			Help: "Page fetch attempts by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	DetectorFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pageaudit_detector_failures_total",
			Help: "Technology detectors that panicked",
		},
		[]string{"detector"},
	)

	PanicsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pageaudit_http_panics_total",
			Help: "Handler panics recovered by path",
		},
		[]string{"path"},
	)
)

const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeCached = "cached"
)

func ObserveRequest(path, method, status string, elapsed time.Duration) {
	HTTPRequestsTotal.WithLabelValues(path, method, status).Inc()
	HTTPRequestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

func ObserveAudit(mode, outcome string, elapsed time.Duration) {
	AuditsTotal.WithLabelValues(mode, outcome).Inc()
	if outcome != OutcomeCached {
		AuditDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	}
}

func ObserveFetch(source string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	FetchAttemptsTotal.WithLabelValues(source, outcome).Inc()
}

func DetectorFailed(name string, _ any) {
	DetectorFailuresTotal.WithLabelValues(name).Inc()
}

func PanicRecovered(path string) {
	PanicsTotal.WithLabelValues(path).Inc()
}
