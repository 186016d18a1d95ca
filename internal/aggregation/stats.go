// Package aggregation derives statistics, chart series and groupings from problem lists.
// All functions are pure: the same input and clock reading always yield the same output.
package aggregation

import (
	"math"
	"time"

	"github.com/bissquit/problem-dashboard/internal/domain"
)

// Derived holds everything the dashboard recomputes after a fetch.
type Derived struct {
	Stats  domain.DashboardStats
	Charts domain.ChartSeries
}

// Compute derives stats and chart series in one pass over the inputs.
func Compute(problems []domain.Problem, now time.Time) Derived {
	return Derived{
		Stats:  ComputeStats(problems),
		Charts: ComputeChartSeries(problems, now),
	}
}

// ComputeStats counts problems by status and severity and averages resolution time.
// Only RESOLVED problems with an end time contribute to the average.
func ComputeStats(problems []domain.Problem) domain.DashboardStats {
	stats := domain.DashboardStats{TotalProblems: len(problems)}

	var resolvedMillis int64
	var resolvedWithEnd int

	for i := range problems {
		p := &problems[i]

		switch p.Status {
		case domain.ProblemStatusOpen:
			stats.OpenProblems++
		case domain.ProblemStatusResolved:
			stats.ResolvedProblems++
			if p.EndTime != nil {
				resolvedMillis += max(*p.EndTime-p.StartTime, 0)
				resolvedWithEnd++
			}
		}

		if p.SeverityLevel.IsCritical() {
			stats.CriticalProblems++
		}
	}

	if resolvedWithEnd > 0 {
		avgMinutes := float64(resolvedMillis) / float64(resolvedWithEnd) / float64(time.Minute/time.Millisecond)
		stats.AverageResolutionTime = int(math.Round(avgMinutes))
	}

	return stats
}

// Duration returns the whole minutes a problem has lasted at now.
// It must be called at read time: open problems keep growing.
func Duration(p *domain.Problem, now time.Time) int64 {
	return int64(p.Elapsed(now) / time.Minute)
}

// percentage returns round(100*count/total), or 0 for an empty total.
func percentage(count, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(count) / float64(total)))
}
