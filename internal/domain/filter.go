package domain

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
)

// Filters is the client-side view filter over the fetched problems.
// Empty sets mean "no constraint".
type Filters struct {
	Status      []ProblemStatus `json:"status"`
	Severity    []SeverityLevel `json:"severity"`
	EntityTypes []string        `json:"entityTypes"`
	SearchQuery string          `json:"searchQuery"`
}

// FiltersPatch carries a partial filter update. Nil fields are left untouched.
type FiltersPatch struct {
	Status      *[]ProblemStatus `json:"status"`
	Severity    *[]SeverityLevel `json:"severity"`
	EntityTypes *[]string        `json:"entityTypes"`
	SearchQuery *string          `json:"searchQuery"`
}

// EmptyFilters returns filters that match everything.
func EmptyFilters() Filters {
	return Filters{
		Status:      []ProblemStatus{},
		Severity:    []SeverityLevel{},
		EntityTypes: []string{},
	}
}

// Merge applies a patch field by field and returns the result.
func (f Filters) Merge(patch FiltersPatch) Filters {
	out := f.Clone()
	if patch.Status != nil {
		out.Status = cloneOrEmpty(*patch.Status)
	}
	if patch.Severity != nil {
		out.Severity = cloneOrEmpty(*patch.Severity)
	}
	if patch.EntityTypes != nil {
		out.EntityTypes = cloneOrEmpty(*patch.EntityTypes)
	}
	if patch.SearchQuery != nil {
		out.SearchQuery = *patch.SearchQuery
	}
	return out
}

// Clone returns a deep copy of the filters.
func (f Filters) Clone() Filters {
	return Filters{
		Status:      cloneOrEmpty(f.Status),
		Severity:    cloneOrEmpty(f.Severity),
		EntityTypes: cloneOrEmpty(f.EntityTypes),
		SearchQuery: f.SearchQuery,
	}
}

// Matches reports whether a problem passes the status, severity and search filters.
// EntityTypes is kept for the presentation layer and is not evaluated here.
func (f Filters) Matches(p *Problem) bool {
	if len(f.Status) > 0 && !slices.Contains(f.Status, p.Status) {
		return false
	}
	if len(f.Severity) > 0 && !slices.Contains(f.Severity, p.SeverityLevel) {
		return false
	}
	if f.SearchQuery == "" {
		return true
	}

	fold := cases.Fold()
	query := fold.String(f.SearchQuery)
	return strings.Contains(fold.String(p.Title), query) ||
		strings.Contains(fold.String(p.DisplayID), query)
}

// Apply returns deep copies of the problems matching the filters, preserving order.
func (f Filters) Apply(problems []Problem) []Problem {
	out := make([]Problem, 0, len(problems))
	for i := range problems {
		if f.Matches(&problems[i]) {
			out = append(out, problems[i].Clone())
		}
	}
	return out
}

func cloneOrEmpty[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return slices.Clone(in)
}
