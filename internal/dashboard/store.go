package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bissquit/problem-dashboard/internal/aggregation"
	"github.com/bissquit/problem-dashboard/internal/clock"
	"github.com/bissquit/problem-dashboard/internal/domain"
	"github.com/bissquit/problem-dashboard/internal/pkg/ctxlog"
	"github.com/bissquit/problem-dashboard/internal/schedule"
)

// DefaultRefreshInterval is the polling interval used when none is configured.
const DefaultRefreshInterval = 5 * time.Minute

// Options configures a Store.
type Options struct {
	TimeRange       domain.TimeRange
	AutoRefresh     bool
	RefreshInterval time.Duration
}

// DefaultOptions returns the store defaults: last month, auto-refresh off with a 5 minute interval.
func DefaultOptions() Options {
	return Options{
		TimeRange:       domain.DefaultTimeRange(),
		AutoRefresh:     false,
		RefreshInterval: DefaultRefreshInterval,
	}
}

// State is a point-in-time copy of the store.
type State struct {
	Problems        []domain.Problem
	Stats           domain.DashboardStats
	Charts          domain.ChartSeries
	Filters         domain.Filters
	SelectedProblem *domain.Problem
	Loading         bool
	Error           string
	AutoRefresh     bool
	RefreshInterval time.Duration
	TimeRange       domain.TimeRange
	// LastUpdated is zero until the first successful fetch.
	LastUpdated time.Time
}

// Store holds the fetched problems, their derived data and the view settings.
// All methods are safe for concurrent use.
type Store struct {
	source Source
	clock  clock.Clock
	poller *schedule.Task

	mu            sync.RWMutex
	state         State
	generation    uint64
	lastCommitted uint64
	observers     []Observer

	// schedMu serializes poller reconfiguration. It is never taken by the poll loop.
	schedMu sync.Mutex
	closed  bool
}

// NewStore creates a store. Zero option fields fall back to DefaultOptions.
// If opts.AutoRefresh is set, polling starts immediately.
func NewStore(source Source, clk clock.Clock, opts Options) *Store {
	defaults := DefaultOptions()
	if opts.TimeRange.From == "" {
		opts.TimeRange.From = defaults.TimeRange.From
	}
	if opts.TimeRange.To == "" {
		opts.TimeRange.To = defaults.TimeRange.To
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = defaults.RefreshInterval
	}

	s := &Store{
		source: source,
		clock:  clk,
		state: State{
			Problems:        []domain.Problem{},
			Charts:          domain.EmptyChartSeries(),
			Filters:         domain.EmptyFilters(),
			AutoRefresh:     opts.AutoRefresh,
			RefreshInterval: opts.RefreshInterval,
			TimeRange:       opts.TimeRange,
		},
	}
	s.poller = schedule.NewTask("problems-refresh", clk, s.FetchIncidents)

	if opts.AutoRefresh {
		// Interval is positive here, Start cannot fail.
		_ = s.poller.Start(opts.RefreshInterval)
	}

	return s
}

// FetchIncidents loads problems from the source and replaces the collection.
// Failures are recorded in the state and never returned.
func (s *Store) FetchIncidents(ctx context.Context) {
	_ = s.Refresh(ctx)
}

// Refresh behaves like FetchIncidents and also returns the fetch failure, if any.
// The returned error matches ErrFetch.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.state.Loading = true
	s.state.Error = ""
	s.generation++
	gen := s.generation
	timeRange := s.state.TimeRange
	s.mu.Unlock()

	ctx = ctxlog.With(ctx, "fetch_generation", gen)

	start := time.Now()
	result, err := s.callSource(ctx, timeRange)
	duration := time.Since(start)

	if err != nil {
		return s.fail(ctx, err, duration)
	}

	// The store keeps its own copy; the source may reuse what it returned.
	problems := domain.CloneProblems(result.Problems)

	now := s.clock.Now()

	logger := ctxlog.FromContext(ctx)

	s.mu.Lock()
	derived := aggregation.Compute(problems, now)
	if gen < s.lastCommitted {
		logger.Warn("older fetch completed after a newer one, overwriting",
			"generation", gen,
			"last_committed", s.lastCommitted,
		)
	}
	s.lastCommitted = gen
	s.state.Problems = problems
	s.state.Stats = derived.Stats
	s.state.Charts = derived.Charts
	s.state.LastUpdated = now
	s.state.Loading = false
	s.refreshSelectionLocked()
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	recordFetch(fetchResultSuccess, duration)
	recordCollection(derived.Stats, now)

	logger.Info("problems fetched",
		"count", len(problems),
		"open", derived.Stats.OpenProblems,
		"critical", derived.Stats.CriticalProblems,
		"duration_ms", duration.Milliseconds(),
	)

	for _, o := range observers {
		notifyObserver(ctx, o, domain.CloneProblems(problems), derived.Stats)
	}

	return nil
}

// fail records a fetch failure. A cancelled poll leaves the previous error state alone.
func (s *Store) fail(ctx context.Context, err error, duration time.Duration) error {
	fetchErr := &FetchError{Err: err}

	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		s.mu.Lock()
		s.state.Loading = false
		s.mu.Unlock()

		recordFetch(fetchResultCancelled, duration)
		ctxlog.FromContext(ctx).Debug("problem fetch cancelled")
		return fetchErr
	}

	s.mu.Lock()
	s.state.Error = fetchErr.Error()
	s.state.Loading = false
	s.mu.Unlock()

	recordFetch(fetchResultError, duration)
	ctxlog.FromContext(ctx).Error("failed to fetch problems", "error", err)
	return fetchErr
}

func (s *Store) callSource(ctx context.Context, timeRange domain.TimeRange) (result *FetchResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("source panicked: %v", r)
		}
	}()

	result, err = s.source.Fetch(ctx, timeRange)
	if err == nil && result == nil {
		err = errors.New("source returned no result")
	}
	return result, err
}

// notifyObserver isolates the store from a panicking observer.
func notifyObserver(ctx context.Context, o Observer, problems []domain.Problem, stats domain.DashboardStats) {
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("problems observer panicked", "panic", r)
		}
	}()
	o.OnProblemsChanged(ctx, problems, stats)
}

func (s *Store) refreshSelectionLocked() {
	if s.state.SelectedProblem == nil {
		return
	}
	s.state.SelectedProblem = findProblem(s.state.Problems, s.state.SelectedProblem.ID)
}

// SetFilters merges the patch into the active filters. It does not refetch.
func (s *Store) SetFilters(patch domain.FiltersPatch) domain.Filters {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Filters = s.state.Filters.Merge(patch)
	return s.state.Filters.Clone()
}

// SetAutoRefresh enables or disables background polling.
// After it returns false no further poll will start.
func (s *Store) SetAutoRefresh(enabled bool) error {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.mu.Lock()
	s.state.AutoRefresh = enabled
	interval := s.state.RefreshInterval
	s.mu.Unlock()

	if !enabled {
		s.poller.Stop()
		return nil
	}
	return s.poller.Start(interval)
}

// SetRefreshInterval changes the polling interval, restarting an active poller.
func (s *Store) SetRefreshInterval(interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	s.schedMu.Lock()
	defer s.schedMu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	s.mu.Lock()
	s.state.RefreshInterval = interval
	s.mu.Unlock()

	return s.poller.Reset(interval)
}

// SetTimeRange replaces the range used by the next fetch.
func (s *Store) SetTimeRange(timeRange domain.TimeRange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TimeRange = timeRange
}

// SelectProblem marks a problem of the current collection as the detail target.
func (s *Store) SelectProblem(id string) (*domain.Problem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := findProblem(s.state.Problems, id)
	if p == nil {
		return nil, ErrProblemNotFound
	}
	s.state.SelectedProblem = p

	selected := p.Clone()
	return &selected, nil
}

// ClearSelection removes the detail target.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.SelectedProblem = nil
}

// Snapshot returns a deep copy of the state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.state
	out.Problems = domain.CloneProblems(s.state.Problems)
	out.Filters = s.state.Filters.Clone()
	if s.state.SelectedProblem != nil {
		selected := s.state.SelectedProblem.Clone()
		out.SelectedProblem = &selected
	}
	return out
}

// Problem returns a problem of the current collection by id.
func (s *Store) Problem(id string) (*domain.Problem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := findProblem(s.state.Problems, id)
	if p == nil {
		return nil, ErrProblemNotFound
	}
	return p, nil
}

// FilteredProblems returns the problems that pass the active filters.
func (s *Store) FilteredProblems() []domain.Problem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Filters.Apply(s.state.Problems)
}

// EntityProblemGroups groups problems by title and entity with durations as of now.
func (s *Store) EntityProblemGroups() []domain.EntityProblemGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return aggregation.ComputeEntityProblemGroups(s.state.Problems, s.clock.Now())
}

// ProblemSummaries summarizes problems by title with durations as of now.
func (s *Store) ProblemSummaries() []domain.ProblemSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return aggregation.ComputeProblemSummaries(s.state.Problems, s.clock.Now())
}

// Now returns the store clock reading used for live durations.
func (s *Store) Now() time.Time {
	return s.clock.Now()
}

// Subscribe registers an observer for collection changes.
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Close stops polling and waits for an in-flight poll to return.
func (s *Store) Close() {
	s.schedMu.Lock()
	defer s.schedMu.Unlock()

	s.closed = true
	s.poller.Stop()
}

// findProblem returns a deep copy of the problem with the given id, or nil.
func findProblem(problems []domain.Problem, id string) *domain.Problem {
	for i := range problems {
		if problems[i].ID == id {
			p := problems[i].Clone()
			return &p
		}
	}
	return nil
}
