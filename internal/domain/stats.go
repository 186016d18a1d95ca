package domain

// DashboardStats holds summary counters for a problem collection.
// AverageResolutionTime is expressed in whole minutes.
type DashboardStats struct {
	TotalProblems         int `json:"totalProblems"`
	OpenProblems          int `json:"openProblems"`
	ResolvedProblems      int `json:"resolvedProblems"`
	CriticalProblems      int `json:"criticalProblems"`
	AverageResolutionTime int `json:"averageResolutionTime"`
}

// TimeBucket is one point of the problems-over-time series.
type TimeBucket struct {
	Timestamp int64  `json:"timestamp"`
	Count     int    `json:"count"`
	Label     string `json:"date"`
}

// EntityDowntime is the accumulated downtime of one entity, in minutes.
type EntityDowntime struct {
	EntityName    string `json:"entityName"`
	TotalDowntime int64  `json:"totalDowntime"`
	ProblemCount  int    `json:"problemCount"`
}

// TypeShare is the share of problems of a given severity level.
type TypeShare struct {
	Type       SeverityLevel `json:"type"`
	Count      int           `json:"count"`
	Percentage int           `json:"percentage"`
}

// SeverityShare is the share of problems for a severity label.
type SeverityShare struct {
	Severity   string `json:"severity"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// ChartSeries bundles all chart-ready series.
type ChartSeries struct {
	ProblemsOverTime     []TimeBucket     `json:"problemsOverTime"`
	ImpactedEntities     []EntityDowntime `json:"impactedEntities"`
	ProblemTypes         []TypeShare      `json:"problemTypes"`
	SeverityDistribution []SeverityShare  `json:"severityDistribution"`
}

// EmptyChartSeries returns a series bundle with empty, non-nil slices.
func EmptyChartSeries() ChartSeries {
	return ChartSeries{
		ProblemsOverTime:     []TimeBucket{},
		ImpactedEntities:     []EntityDowntime{},
		ProblemTypes:         []TypeShare{},
		SeverityDistribution: []SeverityShare{},
	}
}

// EntityProblemGroup is the accumulated time an entity spent under one problem title.
// TotalDuration is in minutes.
type EntityProblemGroup struct {
	ProblemTitle  string        `json:"problemTitle"`
	EntityID      string        `json:"entityId"`
	DisplayName   string        `json:"displayName"`
	EntityType    string        `json:"entityType"`
	TotalDuration int64         `json:"totalDuration"`
	Status        ProblemStatus `json:"status"`
}

// ProblemSummary aggregates all problems sharing a title.
// TotalDuration is weighted by the number of affected entities of each problem.
type ProblemSummary struct {
	Title         string  `json:"title"`
	ProblemCount  int     `json:"problemCount"`
	TotalEntities int     `json:"totalEntities"`
	TotalDuration int64   `json:"totalDuration"`
	AvgDuration   float64 `json:"avgDuration"`
}
