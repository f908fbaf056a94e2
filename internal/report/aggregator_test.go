package report

import (
	"context"
	"testing"
	"time"

	"github.com/opsdeck/incidentd/internal/domain"
	"github.com/opsdeck/incidentd/internal/incident/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)

// seedIncident stores a hand-built incident. resolvedAfter == 0 leaves the
// incident unresolved.
func seedIncident(t *testing.T, repo *memory.Repository, id string, sev domain.Severity, status domain.Status, createdAt time.Time, resolvedAfter time.Duration) {
	t.Helper()

	inc := &domain.Incident{
		ID:        id,
		Title:     "seed " + id,
		Severity:  sev,
		Status:    status,
		Source:    domain.SourceManual,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if resolvedAfter > 0 {
		ts := createdAt.Add(resolvedAfter)
		inc.ResolvedAt = &ts
	}
	require.NoError(t, repo.CreateIncident(context.Background(), inc))
}

func TestAggregator_Overview(t *testing.T) {
	repo := memory.NewRepository()
	agg := NewAggregator(repo)

	seedIncident(t, repo, "INC-1", domain.SeverityP0, domain.StatusResolved, testNow.Add(-2*time.Hour), 30*time.Minute)
	seedIncident(t, repo, "INC-2", domain.SeverityP1, domain.StatusOpen, testNow.Add(-time.Hour), 0)
	seedIncident(t, repo, "INC-3", domain.SeverityP2, domain.StatusResolved, testNow.Add(-time.Hour), 90*time.Minute)
	seedIncident(t, repo, "INC-4", domain.SeverityP2, domain.StatusInvestigating, testNow.Add(-10*time.Minute), 0)

	ov, err := agg.Overview(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, ov.Total)
	assert.Equal(t, 1, ov.ByStatus[domain.StatusOpen])
	assert.Equal(t, 1, ov.ByStatus[domain.StatusInvestigating])
	assert.Equal(t, 2, ov.ByStatus[domain.StatusResolved])
	assert.Equal(t, 0, ov.ByStatus[domain.StatusClosed])
	assert.Equal(t, 1, ov.BySeverity[domain.SeverityP0])
	assert.Equal(t, 1, ov.BySeverity[domain.SeverityP1])
	assert.Equal(t, 2, ov.BySeverity[domain.SeverityP2])
	assert.Equal(t, 0, ov.BySeverity[domain.SeverityP3])

	// (30 + 90) / 2
	assert.InDelta(t, 60.0, ov.AvgResolutionMinutes, 0.001)

	statusSum := 0
	for _, n := range ov.ByStatus {
		statusSum += n
	}
	severitySum := 0
	for _, n := range ov.BySeverity {
		severitySum += n
	}
	assert.Equal(t, ov.Total, statusSum, "status buckets must sum to total")
	assert.Equal(t, ov.Total, severitySum, "severity buckets must sum to total")
}

func TestAggregator_Overview_Empty(t *testing.T) {
	agg := NewAggregator(memory.NewRepository())

	ov, err := agg.Overview(context.Background())
	require.NoError(t, err)

	assert.Zero(t, ov.Total)
	assert.Zero(t, ov.AvgResolutionMinutes)
	assert.Len(t, ov.ByStatus, 4, "all status buckets present even when empty")
	assert.Len(t, ov.BySeverity, 4, "all severity buckets present even when empty")
}

func TestAggregator_Daily(t *testing.T) {
	repo := memory.NewRepository()
	agg := NewAggregator(repo)

	// Three created today, two of them critical, one resolved in 30 minutes.
	seedIncident(t, repo, "INC-1", domain.SeverityP0, domain.StatusResolved, testNow.Add(-3*time.Hour), 30*time.Minute)
	seedIncident(t, repo, "INC-2", domain.SeverityP1, domain.StatusInvestigating, testNow.Add(-2*time.Hour), 0)
	seedIncident(t, repo, "INC-3", domain.SeverityP3, domain.StatusOpen, testNow.Add(-time.Hour), 0)

	// Created two days ago: outside the window, but still counted as active.
	seedIncident(t, repo, "INC-OLD", domain.SeverityP2, domain.StatusOpen, testNow.Add(-48*time.Hour), 0)

	daily, err := agg.Daily(context.Background(), testNow)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), daily.WindowStart)
	assert.Equal(t, 3, daily.CreatedToday)
	assert.Equal(t, 2, daily.CriticalToday)
	assert.Equal(t, 1, daily.ResolvedToday)
	assert.InDelta(t, 30.0, daily.AvgResolutionMinutesToday, 0.001)
	assert.Equal(t, 3, daily.ActiveIncidents)
}

func TestAggregator_Daily_ResolvedTodayCreatedEarlier(t *testing.T) {
	repo := memory.NewRepository()
	agg := NewAggregator(repo)

	// Created yesterday, resolved this morning: counts toward resolvedToday
	// only, with resolution time measured from creation.
	seedIncident(t, repo, "INC-1", domain.SeverityP2, domain.StatusResolved, testNow.Add(-20*time.Hour), 10*time.Hour)

	daily, err := agg.Daily(context.Background(), testNow)
	require.NoError(t, err)

	assert.Zero(t, daily.CreatedToday)
	assert.Equal(t, 1, daily.ResolvedToday)
	assert.InDelta(t, 600.0, daily.AvgResolutionMinutesToday, 0.001)
	assert.Zero(t, daily.ActiveIncidents)
}

func TestAggregator_Daily_Empty(t *testing.T) {
	agg := NewAggregator(memory.NewRepository())

	daily, err := agg.Daily(context.Background(), testNow)
	require.NoError(t, err)

	assert.Zero(t, daily.CreatedToday)
	assert.Zero(t, daily.ResolvedToday)
	assert.Zero(t, daily.AvgResolutionMinutesToday)
}
