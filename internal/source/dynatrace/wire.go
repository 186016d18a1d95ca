package dynatrace

import "github.com/bissquit/problem-dashboard/internal/domain"

// openEndTime marks a problem that has not ended yet.
const openEndTime = -1

type problemsPage struct {
	TotalCount  int          `json:"totalCount"`
	PageSize    int          `json:"pageSize"`
	NextPageKey string       `json:"nextPageKey"`
	Problems    []apiProblem `json:"problems"`
}

type apiProblem struct {
	ProblemID        string              `json:"problemId"`
	DisplayID        string              `json:"displayId"`
	Title            string              `json:"title"`
	ImpactLevel      string              `json:"impactLevel"`
	SeverityLevel    string              `json:"severityLevel"`
	Status           string              `json:"status"`
	StartTime        int64               `json:"startTime"`
	EndTime          int64               `json:"endTime"`
	AffectedEntities []apiEntity         `json:"affectedEntities"`
	RootCauseEntity  *apiEntity          `json:"rootCauseEntity"`
	ManagementZones  []apiManagementZone `json:"managementZones"`
	EvidenceDetails  *apiEvidenceList    `json:"evidenceDetails"`
	RecentComments   *apiCommentList     `json:"recentComments"`
}

type apiEntityID struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type apiEntity struct {
	EntityID apiEntityID `json:"entityId"`
	Name     string      `json:"name"`
}

type apiManagementZone struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type apiEvidenceList struct {
	TotalCount int           `json:"totalCount"`
	Details    []apiEvidence `json:"details"`
}

type apiEvidence struct {
	EvidenceType      string     `json:"evidenceType"`
	DisplayName       string     `json:"displayName"`
	Entity            *apiEntity `json:"entity"`
	GroupingEntity    *apiEntity `json:"groupingEntity"`
	RootCauseRelevant bool       `json:"rootCauseRelevant"`
	StartTime         int64      `json:"startTime"`
	Unit              string     `json:"unit"`
}

type apiCommentList struct {
	TotalCount int          `json:"totalCount"`
	Comments   []apiComment `json:"comments"`
}

type apiComment struct {
	ID                 string `json:"id"`
	CreatedAtTimestamp int64  `json:"createdAtTimestamp"`
	Content            string `json:"content"`
	AuthorName         string `json:"authorName"`
	Context            string `json:"context"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// impactLevels maps API impact levels onto the dashboard's three layers.
var impactLevels = map[string]domain.ImpactLevel{
	"APPLICATION":    domain.ImpactLevelApplication,
	"SERVICE":        domain.ImpactLevelService,
	"SERVICES":       domain.ImpactLevelService,
	"INFRASTRUCTURE": domain.ImpactLevelInfrastructure,
	"ENVIRONMENT":    domain.ImpactLevelInfrastructure,
}

func (p *apiProblem) toDomain() domain.Problem {
	out := domain.Problem{
		ID:               p.ProblemID,
		DisplayID:        p.DisplayID,
		Title:            p.Title,
		ImpactLevel:      domain.ImpactLevel(p.ImpactLevel),
		SeverityLevel:    domain.SeverityLevel(p.SeverityLevel),
		Status:           domain.ProblemStatus(p.Status),
		StartTime:        p.StartTime,
		AffectedEntities: make([]domain.EntityRef, 0, len(p.AffectedEntities)),
		ManagementZones:  make([]domain.ManagementZone, 0, len(p.ManagementZones)),
		RootCauseEntity:  p.RootCauseEntity.toDomain(),
	}

	if level, ok := impactLevels[p.ImpactLevel]; ok {
		out.ImpactLevel = level
	}

	if p.EndTime != openEndTime && p.EndTime > 0 {
		end := p.EndTime
		out.EndTime = &end
	}

	for i := range p.AffectedEntities {
		out.AffectedEntities = append(out.AffectedEntities, *p.AffectedEntities[i].toDomain())
	}

	for _, mz := range p.ManagementZones {
		out.ManagementZones = append(out.ManagementZones, domain.ManagementZone{ID: mz.ID, Name: mz.Name})
	}

	if p.EvidenceDetails != nil {
		out.EvidenceDetails = primaryEvidence(p.EvidenceDetails.Details)
	}

	if p.RecentComments != nil && len(p.RecentComments.Comments) > 0 {
		out.RecentComments = make([]domain.Comment, 0, len(p.RecentComments.Comments))
		for _, c := range p.RecentComments.Comments {
			out.RecentComments = append(out.RecentComments, domain.Comment{
				ID:        c.ID,
				Author:    c.AuthorName,
				Content:   c.Content,
				Context:   c.Context,
				CreatedAt: c.CreatedAtTimestamp,
			})
		}
	}

	return out
}

func (e *apiEntity) toDomain() *domain.EntityRef {
	if e == nil {
		return nil
	}
	return &domain.EntityRef{
		EntityID:    e.EntityID.ID,
		DisplayName: e.Name,
		EntityType:  e.EntityID.Type,
	}
}

// primaryEvidence picks the first root-cause-relevant evidence, falling back to the first one.
func primaryEvidence(details []apiEvidence) *domain.Evidence {
	if len(details) == 0 {
		return nil
	}

	chosen := &details[0]
	for i := range details {
		if details[i].RootCauseRelevant {
			chosen = &details[i]
			break
		}
	}

	return &domain.Evidence{
		DisplayName:       chosen.DisplayName,
		EvidenceType:      chosen.EvidenceType,
		RootCauseRelevant: chosen.RootCauseRelevant,
		StartTime:         chosen.StartTime,
		Unit:              chosen.Unit,
		Entity:            chosen.Entity.toDomain(),
		GroupingEntity:    chosen.GroupingEntity.toDomain(),
	}
}
