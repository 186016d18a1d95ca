// Package mock provides a deterministic demo problem source.
package mock

import (
	"context"
	"time"

	"github.com/bissquit/problem-dashboard/internal/aggregation"
	"github.com/bissquit/problem-dashboard/internal/clock"
	"github.com/bissquit/problem-dashboard/internal/dashboard"
	"github.com/bissquit/problem-dashboard/internal/domain"
)

const productionZone = "Production Environment"

// Provider serves a fixed set of demo problems relative to the clock.
// The time range is ignored.
type Provider struct {
	clock clock.Clock
}

// NewProvider creates a new mock provider.
func NewProvider(clk clock.Clock) *Provider {
	return &Provider{clock: clk}
}

// Fetch returns the demo problems together with their stats.
func (p *Provider) Fetch(ctx context.Context, _ domain.TimeRange) (*dashboard.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	problems := Problems(p.clock.Now())
	stats := aggregation.ComputeStats(problems)

	return &dashboard.FetchResult{
		Problems: problems,
		Stats:    &stats,
	}, nil
}

// Problems builds the demo problems as of now.
func Problems(now time.Time) []domain.Problem {
	ago := func(d time.Duration) int64 {
		return now.Add(-d).UnixMilli()
	}
	zones := func() []domain.ManagementZone {
		return []domain.ManagementZone{{ID: "MZ-1234567890", Name: productionZone}}
	}
	authService := domain.EntityRef{
		EntityID:    "SERVICE-F2D3E4A5B6C7D8E9",
		DisplayName: "AuthenticationService",
		EntityType:  "SERVICE",
	}

	return []domain.Problem{
		{
			ID:            "PROBLEM-1A2B3C4D5E6F",
			DisplayID:     "P-23001",
			Title:         "High response time on easyTravel Frontend",
			ImpactLevel:   domain.ImpactLevelApplication,
			SeverityLevel: domain.SeverityPerformance,
			Status:        domain.ProblemStatusOpen,
			StartTime:     ago(time.Hour),
			AffectedEntities: []domain.EntityRef{
				{EntityID: "APPLICATION-EA7C4B59F27D43EB", DisplayName: "easyTravel Frontend", EntityType: "APPLICATION"},
				authService,
			},
			RootCauseEntity: &authService,
			ManagementZones: zones(),
			EvidenceDetails: &domain.Evidence{
				DisplayName:       "Response time degradation",
				EvidenceType:      "METRIC_EVENT",
				RootCauseRelevant: true,
				StartTime:         ago(time.Hour),
				Unit:              "MicroSecond",
				Series: &domain.EvidenceSeries{
					DisplayName: "Service response time",
					Data: [][2]float64{
						{float64(ago(time.Hour)), 1500},
						{float64(ago(30 * time.Minute)), 2300},
						{float64(now.UnixMilli()), 3200},
					},
				},
			},
		},
		{
			ID:            "PROBLEM-2B3C4D5E6F7G",
			DisplayID:     "P-23002",
			Title:         "Database connection failures",
			ImpactLevel:   domain.ImpactLevelInfrastructure,
			SeverityLevel: domain.SeverityAvailability,
			Status:        domain.ProblemStatusResolved,
			StartTime:     ago(2 * time.Hour),
			EndTime:       ptr(ago(30 * time.Minute)),
			AffectedEntities: []domain.EntityRef{
				{EntityID: "DATABASE-1A2B3C4D5E6F", DisplayName: "CustomerDB", EntityType: "DATABASE"},
			},
			RootCauseEntity: &domain.EntityRef{EntityID: "HOST-9F8E7D6C5B4A", DisplayName: "prod-db-01", EntityType: "HOST"},
			ManagementZones: zones(),
			EvidenceDetails: &domain.Evidence{
				DisplayName:       "Connection pool exhaustion",
				EvidenceType:      "AVAILABILITY_EVENT",
				RootCauseRelevant: true,
				StartTime:         ago(2 * time.Hour),
			},
		},
		{
			ID:            "PROBLEM-3C4D5E6F7G8H",
			DisplayID:     "P-23003",
			Title:         "CPU utilization spike on web servers",
			ImpactLevel:   domain.ImpactLevelInfrastructure,
			SeverityLevel: domain.SeverityResource,
			Status:        domain.ProblemStatusOpen,
			StartTime:     ago(30 * time.Minute),
			AffectedEntities: []domain.EntityRef{
				{EntityID: "HOST-A1B2C3D4E5F6", DisplayName: "web-server-01", EntityType: "HOST"},
				{EntityID: "HOST-B2C3D4E5F6A7", DisplayName: "web-server-02", EntityType: "HOST"},
			},
			ManagementZones: zones(),
			EvidenceDetails: &domain.Evidence{
				DisplayName:       "High CPU usage",
				EvidenceType:      "METRIC_EVENT",
				RootCauseRelevant: true,
				StartTime:         ago(30 * time.Minute),
				Unit:              "Percent",
			},
		},
		{
			ID:            "PROBLEM-4D5E6F7G8H9I",
			DisplayID:     "P-23004",
			Title:         "Payment service error rate increase",
			ImpactLevel:   domain.ImpactLevelService,
			SeverityLevel: domain.SeverityError,
			Status:        domain.ProblemStatusOpen,
			StartTime:     ago(15 * time.Minute),
			AffectedEntities: []domain.EntityRef{
				{EntityID: "SERVICE-C3D4E5F6A7B8", DisplayName: "PaymentService", EntityType: "SERVICE"},
			},
			ManagementZones: zones(),
			EvidenceDetails: &domain.Evidence{
				DisplayName:       "Increased failure rate",
				EvidenceType:      "ERROR_EVENT",
				RootCauseRelevant: true,
				StartTime:         ago(15 * time.Minute),
				Unit:              "Percent",
			},
		},
	}
}

func ptr[T any](v T) *T {
	return &v
}

var _ dashboard.Source = (*Provider)(nil)
