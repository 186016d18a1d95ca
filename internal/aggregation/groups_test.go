package aggregation

import (
	"testing"

	"github.com/bissquit/problem-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeEntityProblemGroups_MergesRepeatedTitle(t *testing.T) {
	db := entity("DB-1", "CustomerDB", "DATABASE")

	problems := []domain.Problem{
		{
			ID: "p1", Title: "Database connection failures", Status: domain.ProblemStatusResolved,
			StartTime: minutesAgo(120), EndTime: ptr(minutesAgo(90)),
			AffectedEntities: []domain.EntityRef{db},
		},
		{
			ID: "p2", Title: "Database connection failures", Status: domain.ProblemStatusOpen,
			StartTime:        minutesAgo(15),
			AffectedEntities: []domain.EntityRef{db},
		},
	}

	groups := ComputeEntityProblemGroups(problems, testNow)

	require.Len(t, groups, 1)
	assert.Equal(t, domain.EntityProblemGroup{
		ProblemTitle:  "Database connection failures",
		EntityID:      "DB-1",
		DisplayName:   "CustomerDB",
		EntityType:    "DATABASE",
		TotalDuration: 45,
		Status:        domain.ProblemStatusOpen,
	}, groups[0])
}

func TestComputeEntityProblemGroups_OrderAndExclusions(t *testing.T) {
	problems := []domain.Problem{
		{
			Title: "High response time", Status: domain.ProblemStatusOpen, StartTime: minutesAgo(60),
			AffectedEntities: []domain.EntityRef{entity("APP-1", "Frontend", "APPLICATION"), entity("SVC-1", "Auth", "SERVICE")},
		},
		{
			Title: "No entities", Status: domain.ProblemStatusOpen, StartTime: minutesAgo(60),
		},
		{
			Title: "CPU spike", Status: domain.ProblemStatusOpen, StartTime: minutesAgo(30),
			AffectedEntities: []domain.EntityRef{entity("HOST-1", "web-01", "HOST")},
		},
		{
			Title: "High response time", Status: domain.ProblemStatusResolved, StartTime: minutesAgo(200), EndTime: ptr(minutesAgo(190)),
			AffectedEntities: []domain.EntityRef{entity("SVC-1", "Auth", "SERVICE")},
		},
	}

	groups := ComputeEntityProblemGroups(problems, testNow)

	require.Len(t, groups, 3)
	assert.Equal(t, GroupKey("High response time", "APP-1"), GroupKey(groups[0].ProblemTitle, groups[0].EntityID))
	assert.Equal(t, int64(60), groups[0].TotalDuration)

	assert.Equal(t, "SVC-1", groups[1].EntityID)
	assert.Equal(t, int64(70), groups[1].TotalDuration)
	assert.Equal(t, domain.ProblemStatusResolved, groups[1].Status)

	assert.Equal(t, "CPU spike", groups[2].ProblemTitle)
}

func TestComputeProblemSummaries(t *testing.T) {
	problems := []domain.Problem{
		{
			Title: "High response time", StartTime: minutesAgo(60),
			AffectedEntities: []domain.EntityRef{entity("APP-1", "Frontend", "APPLICATION"), entity("SVC-1", "Auth", "SERVICE")},
		},
		{
			Title: "High response time", StartTime: minutesAgo(30),
			AffectedEntities: []domain.EntityRef{entity("SVC-1", "Auth", "SERVICE")},
		},
		{
			Title: "Orphan", StartTime: minutesAgo(30),
		},
	}

	summaries := ComputeProblemSummaries(problems, testNow)

	require.Len(t, summaries, 1)
	s := summaries[0]
	assert.Equal(t, "High response time", s.Title)
	assert.Equal(t, 2, s.ProblemCount)
	assert.Equal(t, 3, s.TotalEntities)
	// 60*2 + 30*1
	assert.Equal(t, int64(150), s.TotalDuration)
	assert.InDelta(t, 50.0, s.AvgDuration, 0.0001)
}
