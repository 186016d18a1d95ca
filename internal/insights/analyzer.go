package insights

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/bissquit/problem-dashboard/internal/clock"
	"github.com/bissquit/problem-dashboard/internal/domain"
	"github.com/bissquit/problem-dashboard/internal/pkg/ctxlog"
	"github.com/google/uuid"
)

// Config contains analyzer configuration.
type Config struct {
	// Latency delays every analysis to emulate an asynchronous backend. Zero disables it.
	Latency time.Duration
}

// Report is the result of one analysis run.
type Report struct {
	ID          string           `json:"id"`
	GeneratedAt time.Time        `json:"generatedAt"`
	Insights    []domain.Insight `json:"insights"`
}

// Analyzer runs Generate as a request/response operation with an observable pending state.
type Analyzer struct {
	config Config
	clock  clock.Clock

	mu      sync.RWMutex
	pending int
	latest  *Report
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(config Config, clk clock.Clock) *Analyzer {
	return &Analyzer{
		config: config,
		clock:  clk,
	}
}

// Analyze generates insights for the given problems and stats.
// If ctx is cancelled during the latency window, the previous report is kept.
func (a *Analyzer) Analyze(ctx context.Context, problems []domain.Problem, stats domain.DashboardStats) (*Report, error) {
	a.mu.Lock()
	a.pending++
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.pending--
		a.mu.Unlock()
	}()

	start := a.clock.Now()

	if a.config.Latency > 0 {
		timer := a.clock.NewTimer(a.config.Latency)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C():
		}
	}

	report := &Report{
		ID:          uuid.NewString(),
		GeneratedAt: a.clock.Now(),
		Insights:    Generate(problems, stats),
	}

	a.mu.Lock()
	a.latest = report
	a.mu.Unlock()

	recordReport(report, a.clock.Now().Sub(start))

	ctxlog.FromContext(ctx).Debug("insights generated",
		"report_id", report.ID,
		"count", len(report.Insights),
	)

	return cloneReport(report), nil
}

// Analyzing reports whether an analysis is in progress.
func (a *Analyzer) Analyzing() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.pending > 0
}

// Latest returns a copy of the most recent report, or nil if none has completed.
func (a *Analyzer) Latest() *Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return cloneReport(a.latest)
}

// OnProblemsChanged regenerates insights after the problem collection changed.
func (a *Analyzer) OnProblemsChanged(ctx context.Context, problems []domain.Problem, stats domain.DashboardStats) {
	if _, err := a.Analyze(ctx, problems, stats); err != nil {
		ctxlog.FromContext(ctx).Warn("insight analysis aborted", "error", err)
	}
}

func cloneReport(r *Report) *Report {
	if r == nil {
		return nil
	}
	out := *r
	out.Insights = slices.Clone(r.Insights)
	return &out
}
