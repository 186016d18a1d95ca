package mock

import (
	"context"
	"testing"
	"time"

	"github.com/bissquit/problem-dashboard/internal/clock"
	"github.com/bissquit/problem-dashboard/internal/dashboard"
	"github.com/bissquit/problem-dashboard/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func TestProvider_Fetch(t *testing.T) {
	provider := NewProvider(clock.NewFake(testNow))

	result, err := provider.Fetch(context.Background(), domain.DefaultTimeRange())
	require.NoError(t, err)
	require.Len(t, result.Problems, 4)

	require.NotNil(t, result.Stats)
	assert.Equal(t, domain.DashboardStats{
		TotalProblems:         4,
		OpenProblems:          3,
		ResolvedProblems:      1,
		CriticalProblems:      2,
		AverageResolutionTime: 90,
	}, *result.Stats)
	assert.Nil(t, result.Charts)
}

func TestProvider_TimesFollowClock(t *testing.T) {
	clk := clock.NewFake(testNow)
	provider := NewProvider(clk)

	first, err := provider.Fetch(context.Background(), domain.DefaultTimeRange())
	require.NoError(t, err)

	clk.Advance(time.Hour)
	second, err := provider.Fetch(context.Background(), domain.DefaultTimeRange())
	require.NoError(t, err)

	assert.Equal(t, testNow.Add(-time.Hour).UnixMilli(), first.Problems[0].StartTime)
	assert.Equal(t, testNow.UnixMilli(), second.Problems[0].StartTime)

	for _, p := range second.Problems {
		assert.Equal(t, p.Status == domain.ProblemStatusOpen, p.IsOngoing(), p.ID)
	}
}

func TestProvider_CancelledContext(t *testing.T) {
	provider := NewProvider(clock.NewFake(testNow))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := provider.Fetch(ctx, domain.DefaultTimeRange())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProvider_DrivesStore(t *testing.T) {
	clk := clock.NewFake(testNow)
	store := dashboard.NewStore(NewProvider(clk), clk, dashboard.Options{})
	t.Cleanup(store.Close)

	store.FetchIncidents(context.Background())

	state := store.Snapshot()
	assert.Empty(t, state.Error)
	assert.Equal(t, 4, state.Stats.TotalProblems)

	impacted := state.Charts.ImpactedEntities
	require.NotEmpty(t, impacted)
	assert.Equal(t, "CustomerDB", impacted[0].EntityName)
	assert.Equal(t, int64(90), impacted[0].TotalDowntime)
}
