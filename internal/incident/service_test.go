package incident

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/opsdeck/incidentd/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRepository implements Repository for testing.
type mockRepository struct {
	byID  map[string]*domain.Incident
	order []string

	createErr error
	listErr   error
	updateErr error
}

func newMockRepository() *mockRepository {
	return &mockRepository{byID: make(map[string]*domain.Incident)}
}

func (m *mockRepository) CreateIncident(_ context.Context, inc *domain.Incident) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.byID[inc.ID] = inc.Clone()
	m.order = append(m.order, inc.ID)
	return nil
}

func (m *mockRepository) GetIncident(_ context.Context, id string) (*domain.Incident, error) {
	inc, ok := m.byID[id]
	if !ok {
		return nil, ErrIncidentNotFound
	}
	return inc.Clone(), nil
}

func (m *mockRepository) ListIncidents(_ context.Context) ([]*domain.Incident, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]*domain.Incident, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.byID[id].Clone())
	}
	return out, nil
}

func (m *mockRepository) UpdateIncident(_ context.Context, id string, mutate MutateFunc) (*domain.Incident, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	stored, ok := m.byID[id]
	if !ok {
		return nil, ErrIncidentNotFound
	}
	work := stored.Clone()
	ev, err := mutate(work)
	if err != nil {
		return nil, err
	}
	if ev != nil {
		work.Timeline = append(work.Timeline, *ev)
	}
	m.byID[id] = work
	return work.Clone(), nil
}

// newTestService returns a service over a mock repository with a controllable
// clock starting at a fixed instant.
func newTestService(t *testing.T) (*Service, *mockRepository, *time.Time) {
	t.Helper()

	repo := newMockRepository()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	svc := NewService(repo)
	svc.now = func() time.Time { return now }

	return svc, repo, &now
}

func TestService_CreateIncident(t *testing.T) {
	svc, repo, clock := newTestService(t)

	inc, err := svc.CreateIncident(context.Background(), CreateIncidentInput{
		Title:       "Database latency spike",
		Severity:    domain.SeverityP1,
		Description: "p99 above 2s",
		Assignee:    "alice",
		ChannelID:   "C123",
		Tags:        []string{"db"},
		ActorID:     "alice",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(inc.ID, "INC-"), "id %q should have INC- prefix", inc.ID)
	assert.Equal(t, "Database latency spike", inc.Title)
	assert.Equal(t, domain.SeverityP1, inc.Severity)
	assert.Equal(t, domain.StatusOpen, inc.Status)
	assert.Equal(t, domain.SourceManual, inc.Source, "source should default to manual")
	assert.Equal(t, *clock, inc.CreatedAt)
	assert.Equal(t, inc.CreatedAt, inc.UpdatedAt)
	assert.Nil(t, inc.ResolvedAt)
	assert.Nil(t, inc.ClosedAt)

	require.Len(t, inc.Timeline, 1)
	ev := inc.Timeline[0]
	assert.Equal(t, domain.EventTypeCreated, ev.Type)
	assert.Equal(t, inc.ID, ev.IncidentID)
	assert.Equal(t, "alice", ev.UserID)
	assert.Equal(t, "P1", ev.Metadata["severity"])
	assert.Equal(t, "manual", ev.Metadata["source"])

	// Visible to lookups immediately
	got, err := repo.GetIncident(context.Background(), inc.ID)
	require.NoError(t, err)
	assert.Equal(t, inc.ID, got.ID)
}

func TestService_CreateIncident_Validation(t *testing.T) {
	svc, _, _ := newTestService(t)

	tests := []struct {
		name    string
		input   CreateIncidentInput
		wantErr error
	}{
		{
			name:    "empty title",
			input:   CreateIncidentInput{Title: "", Severity: domain.SeverityP1},
			wantErr: ErrTitleRequired,
		},
		{
			name:    "whitespace title",
			input:   CreateIncidentInput{Title: "   ", Severity: domain.SeverityP1},
			wantErr: ErrTitleRequired,
		},
		{
			name:    "invalid severity",
			input:   CreateIncidentInput{Title: "x", Severity: "P9"},
			wantErr: ErrInvalidSeverity,
		},
		{
			name:    "empty severity",
			input:   CreateIncidentInput{Title: "x"},
			wantErr: ErrInvalidSeverity,
		},
		{
			name:    "invalid source",
			input:   CreateIncidentInput{Title: "x", Severity: domain.SeverityP2, Source: "carrier-pigeon"},
			wantErr: ErrInvalidSource,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateIncident(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestService_CreateIncident_RepoError(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.createErr = errors.New("connection refused")

	_, err := svc.CreateIncident(context.Background(), CreateIncidentInput{
		Title:    "x",
		Severity: domain.SeverityP2,
	})
	require.Error(t, err)
	assert.ErrorContains(t, err, "connection refused")
	assert.Empty(t, repo.order, "failed creation must not register the incident")
}

func TestService_AssignIncident(t *testing.T) {
	svc, _, clock := newTestService(t)
	inc := mustCreate(t, svc, domain.SeverityP2)

	*clock = clock.Add(5 * time.Minute)
	updated, err := svc.AssignIncident(context.Background(), inc.ID, "bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, "bob", updated.Assignee)
	assert.Equal(t, *clock, updated.UpdatedAt)
	require.Len(t, updated.Timeline, 2)

	ev := updated.Timeline[1]
	assert.Equal(t, domain.EventTypeAssigned, ev.Type)
	assert.Equal(t, "", ev.Metadata["old_assignee"])
	assert.Equal(t, "bob", ev.Metadata["new_assignee"])

	// Reassignment records the previous holder.
	updated, err = svc.AssignIncident(context.Background(), inc.ID, "carol", "alice")
	require.NoError(t, err)
	assert.Equal(t, "carol", updated.Assignee)
	assert.Equal(t, "bob", updated.Timeline[2].Metadata["old_assignee"])
}

func TestService_AssignIncident_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)
	inc := mustCreate(t, svc, domain.SeverityP2)

	_, err := svc.AssignIncident(context.Background(), inc.ID, "  ", "alice")
	assert.ErrorIs(t, err, ErrAssigneeRequired)

	_, err = svc.AssignIncident(context.Background(), "INC-NOPE", "bob", "alice")
	assert.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestService_UpdateStatus_Resolve(t *testing.T) {
	svc, _, clock := newTestService(t)
	inc := mustCreate(t, svc, domain.SeverityP0)

	*clock = clock.Add(30 * time.Minute)
	updated, err := svc.UpdateStatus(context.Background(), inc.ID, domain.StatusResolved, "alice")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusResolved, updated.Status)
	require.NotNil(t, updated.ResolvedAt)
	assert.Equal(t, *clock, *updated.ResolvedAt)
	assert.Equal(t, 30*time.Minute, updated.ResolutionTime())

	ev := updated.Timeline[len(updated.Timeline)-1]
	assert.Equal(t, domain.EventTypeStatusChanged, ev.Type)
	assert.Equal(t, "open", ev.Metadata["old_status"])
	assert.Equal(t, "resolved", ev.Metadata["new_status"])
}

func TestService_UpdateStatus_ResolvedAtSetOnce(t *testing.T) {
	svc, _, clock := newTestService(t)
	inc := mustCreate(t, svc, domain.SeverityP1)

	*clock = clock.Add(10 * time.Minute)
	first, err := svc.UpdateStatus(context.Background(), inc.ID, domain.StatusResolved, "alice")
	require.NoError(t, err)
	firstStamp := *first.ResolvedAt

	// Reopen, then resolve again later. The original stamp survives both.
	*clock = clock.Add(10 * time.Minute)
	reopened, err := svc.UpdateStatus(context.Background(), inc.ID, domain.StatusOpen, "alice")
	require.NoError(t, err)
	require.NotNil(t, reopened.ResolvedAt)
	assert.Equal(t, firstStamp, *reopened.ResolvedAt)

	*clock = clock.Add(10 * time.Minute)
	again, err := svc.UpdateStatus(context.Background(), inc.ID, domain.StatusResolved, "alice")
	require.NoError(t, err)
	assert.Equal(t, firstStamp, *again.ResolvedAt)
}

func TestService_UpdateStatus_Close(t *testing.T) {
	svc, _, clock := newTestService(t)
	inc := mustCreate(t, svc, domain.SeverityP2)

	*clock = clock.Add(time.Hour)
	updated, err := svc.UpdateStatus(context.Background(), inc.ID, domain.StatusClosed, "alice")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusClosed, updated.Status)
	require.NotNil(t, updated.ClosedAt)
	assert.Nil(t, updated.ResolvedAt, "closing without resolving must not stamp resolvedAt")
}

func TestService_UpdateStatus_Errors(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.UpdateStatus(context.Background(), "INC-NOPE", domain.StatusResolved, "alice")
	assert.ErrorIs(t, err, ErrIncidentNotFound)

	inc := mustCreate(t, svc, domain.SeverityP2)
	_, err = svc.UpdateStatus(context.Background(), inc.ID, "escalated", "alice")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_AddComment(t *testing.T) {
	svc, _, clock := newTestService(t)
	inc := mustCreate(t, svc, domain.SeverityP3)

	*clock = clock.Add(time.Minute)
	updated, err := svc.AddComment(context.Background(), inc.ID, "mitigation in progress", "bob")
	require.NoError(t, err)

	assert.Equal(t, domain.StatusOpen, updated.Status, "comments must not change status")
	require.Len(t, updated.Timeline, 2)
	ev := updated.Timeline[1]
	assert.Equal(t, domain.EventTypeComment, ev.Type)
	assert.Equal(t, "mitigation in progress", ev.Message)
	assert.Equal(t, "bob", ev.UserID)

	_, err = svc.AddComment(context.Background(), inc.ID, "", "bob")
	assert.ErrorIs(t, err, ErrMessageRequired)
}

func TestService_TimelineGrowsOnePerMutation(t *testing.T) {
	svc, _, _ := newTestService(t)
	inc := mustCreate(t, svc, domain.SeverityP1)

	_, err := svc.AssignIncident(context.Background(), inc.ID, "bob", "alice")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), inc.ID, domain.StatusInvestigating, "bob")
	require.NoError(t, err)
	_, err = svc.AddComment(context.Background(), inc.ID, "found it", "bob")
	require.NoError(t, err)
	updated, err := svc.UpdateStatus(context.Background(), inc.ID, domain.StatusResolved, "bob")
	require.NoError(t, err)

	// Creation plus four mutations.
	require.Len(t, updated.Timeline, 5)
	assert.Equal(t, domain.EventTypeCreated, updated.Timeline[0].Type)
	assert.Equal(t, domain.EventTypeStatusChanged, updated.Timeline[4].Type)
}

func TestService_TimelineTimestampsNonDecreasing(t *testing.T) {
	svc, _, clock := newTestService(t)
	inc := mustCreate(t, svc, domain.SeverityP2)

	// Clock steps backwards between mutations.
	*clock = clock.Add(-time.Hour)
	updated, err := svc.AddComment(context.Background(), inc.ID, "clock skew", "bob")
	require.NoError(t, err)

	require.Len(t, updated.Timeline, 2)
	assert.False(t, updated.Timeline[1].Timestamp.Before(updated.Timeline[0].Timestamp),
		"event timestamps must be non-decreasing")
}

func TestService_ListOpen(t *testing.T) {
	svc, _, _ := newTestService(t)

	a := mustCreate(t, svc, domain.SeverityP1)
	b := mustCreate(t, svc, domain.SeverityP2)
	c := mustCreate(t, svc, domain.SeverityP3)

	_, err := svc.UpdateStatus(context.Background(), a.ID, domain.StatusInvestigating, "alice")
	require.NoError(t, err)
	_, err = svc.UpdateStatus(context.Background(), b.ID, domain.StatusResolved, "alice")
	require.NoError(t, err)

	open, err := svc.ListOpen(context.Background())
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, a.ID, open[0].ID)
	assert.Equal(t, c.ID, open[1].ID)
}

func TestService_ListOpen_RepoError(t *testing.T) {
	svc, repo, _ := newTestService(t)
	repo.listErr = errors.New("pool exhausted")

	_, err := svc.ListOpen(context.Background())
	assert.ErrorContains(t, err, "pool exhausted")
}

func mustCreate(t *testing.T, svc *Service, sev domain.Severity) *domain.Incident {
	t.Helper()
	inc, err := svc.CreateIncident(context.Background(), CreateIncidentInput{
		Title:    "test incident",
		Severity: sev,
		ActorID:  "alice",
	})
	require.NoError(t, err)
	return inc
}
