package insights

import (
	"time"

	"github.com/bissquit/problem-dashboard/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	insightsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "insights",
			Name:      "generated_total",
			Help:      "Total insights generated by kind",
		},
		[]string{"kind"},
	)

	analysisDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "insights",
			Name:      "analysis_duration_seconds",
			Help:      "Time spent producing an insight report, including configured latency",
			Buckets:   []float64{.001, .01, .05, .1, .5, 1, 2.5, 5},
		},
	)
)

// recordReport records metrics for a completed report.
func recordReport(report *Report, duration time.Duration) {
	for _, insight := range report.Insights {
		insightsGenerated.WithLabelValues(string(insight.Kind)).Inc()
	}
	analysisDuration.Observe(duration.Seconds())
}
