package aggregation

import (
	"sort"
	"time"

	"github.com/bissquit/problem-dashboard/internal/domain"
)

const (
	// TimeBucketCount is the number of buckets in the problems-over-time series.
	TimeBucketCount = 24
	// TimeBucketWidth is the width of one bucket.
	TimeBucketWidth = time.Hour
	// TopImpactedEntities caps the impacted-entities ranking.
	TopImpactedEntities = 10

	timeBucketLabelLayout = "15:04"
)

// ComputeChartSeries builds every chart series for the problems at now.
func ComputeChartSeries(problems []domain.Problem, now time.Time) domain.ChartSeries {
	types, severities := computeDistribution(problems)

	return domain.ChartSeries{
		ProblemsOverTime:     computeProblemsOverTime(problems, now),
		ImpactedEntities:     computeImpactedEntities(problems, now),
		ProblemTypes:         types,
		SeverityDistribution: severities,
	}
}

// computeProblemsOverTime counts problem starts in TimeBucketCount buckets ending at now.
// Bucket i covers (now-(i+1)*w, now-i*w]; output is ordered oldest first.
func computeProblemsOverTime(problems []domain.Problem, now time.Time) []domain.TimeBucket {
	nowMs := now.UnixMilli()
	widthMs := TimeBucketWidth.Milliseconds()

	counts := make([]int, TimeBucketCount)
	for i := range problems {
		age := nowMs - problems[i].StartTime
		if age < 0 {
			continue
		}
		idx := age / widthMs
		if idx >= TimeBucketCount {
			continue
		}
		counts[idx]++
	}

	buckets := make([]domain.TimeBucket, 0, TimeBucketCount)
	for i := TimeBucketCount - 1; i >= 0; i-- {
		ts := nowMs - int64(i)*widthMs
		buckets = append(buckets, domain.TimeBucket{
			Timestamp: ts,
			Count:     counts[i],
			Label:     time.UnixMilli(ts).In(now.Location()).Format(timeBucketLabelLayout),
		})
	}
	return buckets
}

// computeImpactedEntities ranks entities by summed downtime.
// Entities are keyed by display name; ties keep first-encounter order.
func computeImpactedEntities(problems []domain.Problem, now time.Time) []domain.EntityDowntime {
	index := make(map[string]int)
	rows := make([]domain.EntityDowntime, 0)

	for i := range problems {
		p := &problems[i]
		duration := Duration(p, now)

		for _, entity := range p.AffectedEntities {
			pos, ok := index[entity.DisplayName]
			if !ok {
				pos = len(rows)
				index[entity.DisplayName] = pos
				rows = append(rows, domain.EntityDowntime{EntityName: entity.DisplayName})
			}
			rows[pos].TotalDowntime += duration
			rows[pos].ProblemCount++
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalDowntime > rows[j].TotalDowntime
	})

	if len(rows) > TopImpactedEntities {
		rows = rows[:TopImpactedEntities]
	}
	return rows
}

// computeDistribution groups problems by severity level in first-seen order.
// Percentages are rounded independently and may not sum to exactly 100.
func computeDistribution(problems []domain.Problem) ([]domain.TypeShare, []domain.SeverityShare) {
	index := make(map[domain.SeverityLevel]int)
	types := make([]domain.TypeShare, 0)

	for i := range problems {
		level := problems[i].SeverityLevel
		pos, ok := index[level]
		if !ok {
			pos = len(types)
			index[level] = pos
			types = append(types, domain.TypeShare{Type: level})
		}
		types[pos].Count++
	}

	total := len(problems)
	severities := make([]domain.SeverityShare, 0, len(types))
	for i := range types {
		types[i].Percentage = percentage(types[i].Count, total)
		severities = append(severities, domain.SeverityShare{
			Severity:   types[i].Type.Label(),
			Count:      types[i].Count,
			Percentage: types[i].Percentage,
		})
	}

	return types, severities
}
