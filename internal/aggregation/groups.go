package aggregation

import (
	"time"

	"github.com/bissquit/problem-dashboard/internal/domain"
)

// GroupKey builds the key of an entity-problem group.
func GroupKey(title, entityID string) string {
	return title + "|" + entityID
}

// ComputeEntityProblemGroups accumulates, per (title, entity) pair, the minutes the
// entity spent under that problem title across all problems.
// Durations are summed over every occurrence of the title, not deduplicated by problem id.
// Each row carries the status of the last problem processed for it. Rows keep first-seen order.
func ComputeEntityProblemGroups(problems []domain.Problem, now time.Time) []domain.EntityProblemGroup {
	index := make(map[string]int)
	groups := make([]domain.EntityProblemGroup, 0)

	for i := range problems {
		p := &problems[i]
		if len(p.AffectedEntities) == 0 {
			continue
		}

		duration := Duration(p, now)
		for _, entity := range p.AffectedEntities {
			key := GroupKey(p.Title, entity.EntityID)
			pos, ok := index[key]
			if !ok {
				pos = len(groups)
				index[key] = pos
				groups = append(groups, domain.EntityProblemGroup{
					ProblemTitle: p.Title,
					EntityID:     entity.EntityID,
					DisplayName:  entity.DisplayName,
					EntityType:   entity.EntityType,
				})
			}
			groups[pos].TotalDuration += duration
			groups[pos].Status = p.Status
		}
	}

	return groups
}

// ComputeProblemSummaries groups problems by title and weights each problem's
// duration by its entity fan-out. Problems without affected entities are skipped.
func ComputeProblemSummaries(problems []domain.Problem, now time.Time) []domain.ProblemSummary {
	index := make(map[string]int)
	summaries := make([]domain.ProblemSummary, 0)

	for i := range problems {
		p := &problems[i]
		entities := len(p.AffectedEntities)
		if entities == 0 {
			continue
		}

		pos, ok := index[p.Title]
		if !ok {
			pos = len(summaries)
			index[p.Title] = pos
			summaries = append(summaries, domain.ProblemSummary{Title: p.Title})
		}

		summaries[pos].ProblemCount++
		summaries[pos].TotalEntities += entities
		summaries[pos].TotalDuration += Duration(p, now) * int64(entities)
	}

	for i := range summaries {
		if summaries[i].TotalEntities > 0 {
			summaries[i].AvgDuration = float64(summaries[i].TotalDuration) / float64(summaries[i].TotalEntities)
		}
	}

	return summaries
}
