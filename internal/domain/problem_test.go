package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblem_CloneIsDeep(t *testing.T) {
	end := int64(2000)
	host := EntityRef{EntityID: "HOST-1", DisplayName: "web-01", EntityType: "HOST"}
	original := Problem{
		ID:               "p1",
		EndTime:          &end,
		AffectedEntities: []EntityRef{host},
		RootCauseEntity:  &EntityRef{EntityID: "HOST-1", DisplayName: "web-01"},
		ManagementZones:  []ManagementZone{{ID: "1", Name: "Production"}},
		RecentComments:   []Comment{{ID: "c1", Content: "looking"}},
		EvidenceDetails: &Evidence{
			DisplayName: "CPU",
			Entity:      &EntityRef{EntityID: "HOST-1"},
			Series:      &EvidenceSeries{Data: [][2]float64{{1, 2}}, Tags: []string{"cpu"}},
		},
	}

	clone := original.Clone()
	require.Equal(t, original, clone)

	*clone.EndTime = 0
	clone.AffectedEntities[0].DisplayName = "changed"
	clone.RootCauseEntity.DisplayName = "changed"
	clone.ManagementZones[0].Name = "changed"
	clone.RecentComments[0].Content = "changed"
	clone.EvidenceDetails.DisplayName = "changed"
	clone.EvidenceDetails.Entity.EntityID = "changed"
	clone.EvidenceDetails.Series.Data[0][1] = 99
	clone.EvidenceDetails.Series.Tags[0] = "changed"

	assert.Equal(t, int64(2000), *original.EndTime)
	assert.Equal(t, "web-01", original.AffectedEntities[0].DisplayName)
	assert.Equal(t, "web-01", original.RootCauseEntity.DisplayName)
	assert.Equal(t, "Production", original.ManagementZones[0].Name)
	assert.Equal(t, "looking", original.RecentComments[0].Content)
	assert.Equal(t, "CPU", original.EvidenceDetails.DisplayName)
	assert.Equal(t, "HOST-1", original.EvidenceDetails.Entity.EntityID)
	assert.Equal(t, 2.0, original.EvidenceDetails.Series.Data[0][1])
	assert.Equal(t, "cpu", original.EvidenceDetails.Series.Tags[0])
}

func TestProblem_CloneKeepsNil(t *testing.T) {
	clone := (&Problem{ID: "p1"}).Clone()

	assert.Nil(t, clone.EndTime)
	assert.Nil(t, clone.AffectedEntities)
	assert.Nil(t, clone.RootCauseEntity)
	assert.Nil(t, clone.EvidenceDetails)
}

func TestCloneProblems(t *testing.T) {
	assert.Equal(t, []Problem{}, CloneProblems(nil))

	in := []Problem{{ID: "p1", AffectedEntities: []EntityRef{{EntityID: "A"}}}}
	out := CloneProblems(in)
	out[0].AffectedEntities[0].EntityID = "B"
	assert.Equal(t, "A", in[0].AffectedEntities[0].EntityID)
}

func TestFilters_ApplyReturnsCopies(t *testing.T) {
	in := []Problem{{ID: "p1", AffectedEntities: []EntityRef{{DisplayName: "web-01"}}}}

	out := EmptyFilters().Apply(in)
	out[0].AffectedEntities[0].DisplayName = "changed"

	assert.Equal(t, "web-01", in[0].AffectedEntities[0].DisplayName)
}
