// Package dashboard holds the reactive problem store and its HTTP handlers.
package dashboard

import (
	"context"

	"github.com/bissquit/problem-dashboard/internal/domain"
)

// Source fetches problems for a time range from a monitoring backend.
type Source interface {
	Fetch(ctx context.Context, timeRange domain.TimeRange) (*FetchResult, error)
}

// FetchResult is what a Source returns.
// Stats and Charts are optional; the store always recomputes them locally.
type FetchResult struct {
	Problems []domain.Problem
	Stats    *domain.DashboardStats
	Charts   *domain.ChartSeries
}

// Observer is notified after the problem collection was replaced.
type Observer interface {
	OnProblemsChanged(ctx context.Context, problems []domain.Problem, stats domain.DashboardStats)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, problems []domain.Problem, stats domain.DashboardStats)

// OnProblemsChanged calls f.
func (f ObserverFunc) OnProblemsChanged(ctx context.Context, problems []domain.Problem, stats domain.DashboardStats) {
	f(ctx, problems, stats)
}
