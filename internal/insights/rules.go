// Package insights turns problems and their statistics into rule-based findings.
package insights

import (
	"fmt"
	"math"

	"github.com/bissquit/problem-dashboard/internal/domain"
)

// Rule confidences. They are fixed calibration values, not computed from data.
const (
	confidenceCriticalSpike       = 0.95
	confidenceEntityPattern       = 0.82
	confidenceResolutionTrend     = 0.88
	confidenceProactiveMonitoring = 0.75
	confidenceSystemHealthy       = 0.90
)

const (
	criticalSpikeThreshold      = 3
	resolutionTimeThresholdMins = 60
)

// Generate evaluates every rule against the problems and stats.
// Rules are independent; several may fire at once.
func Generate(problems []domain.Problem, stats domain.DashboardStats) []domain.Insight {
	if len(problems) == 0 {
		return []domain.Insight{systemHealthy()}
	}

	out := make([]domain.Insight, 0, 4)

	if stats.CriticalProblems > criticalSpikeThreshold {
		out = append(out, criticalSpike(stats))
	}

	// The first distinct entity type seen is reported, not the most frequent one.
	if types := distinctEntityTypes(problems); len(types) > 0 {
		out = append(out, entityPattern(types[0]))
	}

	if stats.AverageResolutionTime > resolutionTimeThresholdMins {
		out = append(out, resolutionTrend(stats))
	}

	out = append(out, proactiveMonitoring())
	return out
}

func distinctEntityTypes(problems []domain.Problem) []string {
	seen := make(map[string]struct{})
	types := make([]string, 0)
	for i := range problems {
		for _, e := range problems[i].AffectedEntities {
			if _, ok := seen[e.EntityType]; ok {
				continue
			}
			seen[e.EntityType] = struct{}{}
			types = append(types, e.EntityType)
		}
	}
	return types
}

func criticalSpike(stats domain.DashboardStats) domain.Insight {
	share := 0
	if stats.TotalProblems > 0 {
		share = int(math.Round(100 * float64(stats.CriticalProblems) / float64(stats.TotalProblems)))
	}

	return domain.Insight{
		ID:          string(domain.InsightKindCriticalSpike),
		Kind:        domain.InsightKindCriticalSpike,
		Category:    domain.InsightCategoryCritical,
		Title:       "Spike in Critical Issues Detected",
		Description: fmt.Sprintf("%d critical problems identified. This represents %d%% of all issues.", stats.CriticalProblems, share),
		Confidence:  confidenceCriticalSpike,
		Priority:    domain.PriorityHigh,
		Actionable:  true,
	}
}

func entityPattern(entityType string) domain.Insight {
	return domain.Insight{
		ID:       string(domain.InsightKindEntityPattern),
		Kind:     domain.InsightKindEntityPattern,
		Category: domain.InsightCategoryPattern,
		Title:    fmt.Sprintf("%s Infrastructure Pattern", entityType),
		Description: fmt.Sprintf("Most problems are affecting %s entities. Consider reviewing %s configurations and capacity planning.",
			entityType, entityType),
		Confidence: confidenceEntityPattern,
		Priority:   domain.PriorityMedium,
		Actionable: true,
	}
}

func resolutionTrend(stats domain.DashboardStats) domain.Insight {
	return domain.Insight{
		ID:       string(domain.InsightKindResolutionTrend),
		Kind:     domain.InsightKindResolutionTrend,
		Category: domain.InsightCategoryTrend,
		Title:    "Extended Resolution Times",
		Description: fmt.Sprintf("Average resolution time is %d minutes. Consider implementing automated remediation for common issues.",
			stats.AverageResolutionTime),
		Confidence: confidenceResolutionTrend,
		Priority:   domain.PriorityMedium,
		Actionable: true,
	}
}

func proactiveMonitoring() domain.Insight {
	return domain.Insight{
		ID:          string(domain.InsightKindProactiveMonitoring),
		Kind:        domain.InsightKindProactiveMonitoring,
		Category:    domain.InsightCategoryRecommendation,
		Title:       "Enhance Proactive Monitoring",
		Description: "Consider implementing synthetic monitoring and anomaly detection to catch issues before they impact users.",
		Confidence:  confidenceProactiveMonitoring,
		Priority:    domain.PriorityLow,
		Actionable:  true,
	}
}

func systemHealthy() domain.Insight {
	return domain.Insight{
		ID:          string(domain.InsightKindSystemHealthy),
		Kind:        domain.InsightKindSystemHealthy,
		Category:    domain.InsightCategoryTrend,
		Title:       "System Health Status: Good",
		Description: "No recent problems detected. Your monitoring setup appears to be functioning well.",
		Confidence:  confidenceSystemHealthy,
		Priority:    domain.PriorityLow,
	}
}
