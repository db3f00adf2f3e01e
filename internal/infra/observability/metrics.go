package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// AnalysesTotal counts finished analyses by input kind and outcome.
	AnalysesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nog",
		Subsystem: "analyzer",
		Name:      "analyses_total",
		Help:      "Total number of ingredient analyses, labeled by kind and outcome.",
	}, []string{"kind", "outcome"})

	// AnalysisAttempts is the number of provider calls an analysis needed.
	AnalysisAttempts = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nog",
		Subsystem: "analyzer",
		Name:      "analysis_attempts",
		Help:      "Provider calls made per analysis, including retries.",
		Buckets:   []float64{1, 2, 3, 4, 5},
	}, []string{"kind"})

	// PersistenceFailuresTotal counts checks that could not be saved after a successful analysis.
	PersistenceFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "nog",
		Subsystem: "checks",
		Name:      "persistence_failures_total",
		Help:      "Total number of check records that failed to persist.",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nog",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests, labeled by method and status code.",
	}, []string{"method", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nog",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"method"})
)

// Register adds all collectors to reg. Calling it again for the same
// registry is a no-op; each distinct registry gets every collector.
func Register(reg prometheus.Registerer) {
	for _, c := range []prometheus.Collector{
		AnalysesTotal,
		AnalysisAttempts,
		PersistenceFailuresTotal,
		HTTPRequestsTotal,
		HTTPRequestDuration,
	} {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}
