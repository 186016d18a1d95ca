package domain

// InsightKind identifies the rule that produced an insight.
type InsightKind string

// Insight kinds.
const (
	InsightKindSystemHealthy       InsightKind = "system-healthy"
	InsightKindCriticalSpike       InsightKind = "critical-spike"
	InsightKindEntityPattern       InsightKind = "entity-pattern"
	InsightKindResolutionTrend     InsightKind = "resolution-trend"
	InsightKindProactiveMonitoring InsightKind = "proactive-monitoring"
)

// InsightCategory is the presentation category of an insight.
type InsightCategory string

// Insight categories.
const (
	InsightCategoryCritical       InsightCategory = "critical"
	InsightCategoryPattern        InsightCategory = "pattern"
	InsightCategoryTrend          InsightCategory = "trend"
	InsightCategoryRecommendation InsightCategory = "recommendation"
)

// Priority ranks insights for display.
type Priority string

// Priorities.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Insight is a heuristically generated observation about the current problems.
type Insight struct {
	ID          string          `json:"id"`
	Kind        InsightKind     `json:"kind"`
	Category    InsightCategory `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Confidence  float64         `json:"confidence"`
	Priority    Priority        `json:"priority"`
	Actionable  bool            `json:"actionable"`
}
