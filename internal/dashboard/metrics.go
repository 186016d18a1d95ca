package dashboard

import (
	"time"

	"github.com/bissquit/problem-dashboard/internal/domain"
	"github.com/bissquit/problem-dashboard/internal/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	fetchResultSuccess   = "success"
	fetchResultError     = "error"
	fetchResultCancelled = "cancelled"
)

var (
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Subsystem: "dashboard",
			Name:      "fetches_total",
			Help:      "Total problem fetches by result",
		},
		[]string{"result"},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Subsystem: "dashboard",
			Name:      "fetch_duration_seconds",
			Help:      "Time spent fetching problems from the source",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	problemsGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "dashboard",
			Name:      "problems",
			Help:      "Problems in the current collection by status",
		},
		[]string{"status"},
	)

	criticalProblemsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "dashboard",
			Name:      "critical_problems",
			Help:      "Problems with a critical severity in the current collection",
		},
	)

	lastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Subsystem: "dashboard",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful fetch",
		},
	)
)

func recordFetch(result string, duration time.Duration) {
	fetchesTotal.WithLabelValues(result).Inc()
	fetchDuration.Observe(duration.Seconds())
}

func recordCollection(stats domain.DashboardStats, at time.Time) {
	problemsGauge.WithLabelValues(string(domain.ProblemStatusOpen)).Set(float64(stats.OpenProblems))
	problemsGauge.WithLabelValues(string(domain.ProblemStatusResolved)).Set(float64(stats.ResolvedProblems))
	problemsGauge.WithLabelValues("total").Set(float64(stats.TotalProblems))
	criticalProblemsGauge.Set(float64(stats.CriticalProblems))
	lastSuccessTimestamp.Set(float64(at.Unix()))
}
