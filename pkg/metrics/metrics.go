package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	contentLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_content_loads_total",
			Help: "Content loads by resulting source and outcome",
		},
		[]string{"source", "outcome", "silent"},
	)

	contentLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_content_load_duration_seconds",
			Help:    "Duration of content loads",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	snapshotFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_content_snapshot_fallbacks_total",
			Help: "Times the content API failed and the snapshot was tried",
		},
	)
)

const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

func ObserveLoad(source, outcome string, silent bool, elapsed time.Duration) {
	s := "false"
	if silent {
		s = "true"
	}
	contentLoads.WithLabelValues(source, outcome, s).Inc()
	contentLoadDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

func ObserveSnapshotFallback() {
	snapshotFallbacks.Inc()
}
