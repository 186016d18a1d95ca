package domain

import (
	"fmt"
	"slices"
	"time"
)

// ImpactLevel represents the layer a problem impacts.
type ImpactLevel string

// Impact levels.
const (
	ImpactLevelApplication    ImpactLevel = "APPLICATION"
	ImpactLevelService        ImpactLevel = "SERVICE"
	ImpactLevelInfrastructure ImpactLevel = "INFRASTRUCTURE"
)

// SeverityLevel represents the problem category reported by the monitoring API.
type SeverityLevel string

// Severity levels, from most to least severe.
const (
	SeverityAvailability SeverityLevel = "AVAILABILITY"
	SeverityError        SeverityLevel = "ERROR"
	SeverityPerformance  SeverityLevel = "PERFORMANCE"
	SeverityResource     SeverityLevel = "RESOURCE"
	SeverityCustom       SeverityLevel = "CUSTOM"
)

// IsValid checks if the severity level is known.
func (s SeverityLevel) IsValid() bool {
	switch s {
	case SeverityAvailability, SeverityError, SeverityPerformance,
		SeverityResource, SeverityCustom:
		return true
	}
	return false
}

// IsCritical reports whether the level counts towards critical problems.
func (s SeverityLevel) IsCritical() bool {
	return s == SeverityAvailability || s == SeverityError
}

// Label returns the human-facing severity label.
// Unknown levels are returned unchanged.
func (s SeverityLevel) Label() string {
	switch s {
	case SeverityAvailability:
		return "Critical"
	case SeverityError:
		return "High"
	case SeverityPerformance:
		return "Medium"
	case SeverityResource:
		return "Low"
	case SeverityCustom:
		return "Info"
	default:
		return string(s)
	}
}

// ProblemStatus represents the lifecycle state of a problem.
type ProblemStatus string

// Problem statuses.
const (
	ProblemStatusOpen     ProblemStatus = "OPEN"
	ProblemStatusResolved ProblemStatus = "RESOLVED"
	ProblemStatusClosed   ProblemStatus = "CLOSED"
)

// IsValid checks if the status is known.
func (s ProblemStatus) IsValid() bool {
	return s == ProblemStatusOpen || s == ProblemStatusResolved || s == ProblemStatusClosed
}

// EntityRef identifies a monitored entity.
type EntityRef struct {
	EntityID    string `json:"entityId"`
	DisplayName string `json:"displayName"`
	EntityType  string `json:"entityType"`
}

// ManagementZone is an access-scoping label attached to a problem.
type ManagementZone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// EvidenceSeries is a time series attached to evidence.
// Each point is [timestamp ms, value].
type EvidenceSeries struct {
	DisplayName string       `json:"displayName"`
	Data        [][2]float64 `json:"data"`
	Tags        []string     `json:"tags,omitempty"`
}

// Evidence holds diagnostic metadata for a problem.
type Evidence struct {
	DisplayName       string          `json:"displayName"`
	EvidenceType      string          `json:"evidenceType"`
	RootCauseRelevant bool            `json:"rootCauseRelevant"`
	StartTime         int64           `json:"startTime"`
	Unit              string          `json:"unit,omitempty"`
	Entity            *EntityRef      `json:"entity,omitempty"`
	GroupingEntity    *EntityRef      `json:"groupingEntity,omitempty"`
	Series            *EvidenceSeries `json:"details,omitempty"`
}

// Comment is a user comment on a problem.
type Comment struct {
	ID        string `json:"id"`
	Author    string `json:"authorName"`
	Content   string `json:"content"`
	Context   string `json:"context"`
	CreatedAt int64  `json:"createdAtTimestamp"`
}

// Problem represents a monitoring incident.
// StartTime and EndTime are epoch milliseconds; a nil EndTime means the problem is ongoing.
type Problem struct {
	ID               string           `json:"problemId"`
	DisplayID        string           `json:"displayId"`
	Title            string           `json:"title"`
	ImpactLevel      ImpactLevel      `json:"impactLevel"`
	SeverityLevel    SeverityLevel    `json:"severityLevel"`
	Status           ProblemStatus    `json:"status"`
	StartTime        int64            `json:"startTime"`
	EndTime          *int64           `json:"endTime,omitempty"`
	AffectedEntities []EntityRef      `json:"affectedEntities"`
	RootCauseEntity  *EntityRef       `json:"rootCauseEntity,omitempty"`
	ManagementZones  []ManagementZone `json:"managementZones"`
	EvidenceDetails  *Evidence        `json:"evidenceDetails,omitempty"`
	RecentComments   []Comment        `json:"recentComments,omitempty"`
}

// Elapsed returns how long the problem has lasted at now.
// Open problems are measured up to now. Negative spans are clamped to zero.
func (p *Problem) Elapsed(now time.Time) time.Duration {
	end := now.UnixMilli()
	if p.EndTime != nil {
		end = *p.EndTime
	}
	ms := end - p.StartTime
	if ms < 0 {
		return 0
	}
	return time.Duration(ms) * time.Millisecond
}

// Clone returns a deep copy of the problem. Nil slices and pointers stay nil.
func (p *Problem) Clone() Problem {
	out := *p
	if p.EndTime != nil {
		end := *p.EndTime
		out.EndTime = &end
	}
	out.AffectedEntities = slices.Clone(p.AffectedEntities)
	out.RootCauseEntity = cloneRef(p.RootCauseEntity)
	out.ManagementZones = slices.Clone(p.ManagementZones)
	out.RecentComments = slices.Clone(p.RecentComments)
	if p.EvidenceDetails != nil {
		ev := *p.EvidenceDetails
		ev.Entity = cloneRef(ev.Entity)
		ev.GroupingEntity = cloneRef(ev.GroupingEntity)
		if ev.Series != nil {
			series := *ev.Series
			series.Data = slices.Clone(series.Data)
			series.Tags = slices.Clone(series.Tags)
			ev.Series = &series
		}
		out.EvidenceDetails = &ev
	}
	return out
}

// CloneProblems deep-copies a problem list. A nil list yields an empty one.
func CloneProblems(problems []Problem) []Problem {
	out := make([]Problem, len(problems))
	for i := range problems {
		out[i] = problems[i].Clone()
	}
	return out
}

func cloneRef(ref *EntityRef) *EntityRef {
	if ref == nil {
		return nil
	}
	r := *ref
	return &r
}

// IsOngoing reports whether the problem has no end time.
func (p *Problem) IsOngoing() bool {
	return p.EndTime == nil
}

// FormatDuration renders a duration as "2d 3h", "1h 5m" or "42m".
func FormatDuration(d time.Duration) string {
	minutes := int64(d / time.Minute)
	hours := minutes / 60
	days := hours / 24

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours%24)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}

// MillisToTime converts epoch milliseconds to time.Time.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms)
}
