package incident

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/opsdeck/incidentd/internal/domain"
)

// Service implements the incident lifecycle logic: creation, assignment,
// status transitions and comments. Every successful mutation appends exactly
// one timeline event before it returns.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new incident service.
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// CreateIncidentInput holds data for creating an incident.
type CreateIncidentInput struct {
	Title       string
	Severity    domain.Severity
	Description string
	Assignee    string
	ChannelID   string
	Source      domain.Source
	Tags        []string
	Metadata    map[string]any
	ActorID     string
}

// CreateIncident validates the input, stores a new incident in open status
// and appends its creation event. The incident is visible to lookups as soon
// as this returns.
func (s *Service) CreateIncident(ctx context.Context, input CreateIncidentInput) (*domain.Incident, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, ErrTitleRequired
	}
	if !input.Severity.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeverity, input.Severity)
	}

	source := input.Source
	if source == "" {
		source = domain.SourceManual
	}
	if !source.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSource, input.Source)
	}

	now := s.now()
	inc := &domain.Incident{
		ID:          newIncidentID(),
		Title:       input.Title,
		Description: input.Description,
		Severity:    input.Severity,
		Status:      domain.StatusOpen,
		Assignee:    input.Assignee,
		ChannelID:   input.ChannelID,
		Source:      source,
		Tags:        input.Tags,
		Metadata:    input.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	inc.Timeline = []domain.IncidentEvent{{
		ID:         newEventID(),
		IncidentID: inc.ID,
		Type:       domain.EventTypeCreated,
		Message:    fmt.Sprintf("Incident created: %s", inc.Title),
		UserID:     input.ActorID,
		Timestamp:  now,
		Metadata: map[string]any{
			"severity": string(inc.Severity),
			"source":   string(inc.Source),
		},
	}}

	if err := s.repo.CreateIncident(ctx, inc); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	recordIncidentCreated(inc.Severity, inc.Source)

	return inc, nil
}

// GetIncident retrieves an incident by ID.
func (s *Service) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	return s.repo.GetIncident(ctx, id)
}

// ListIncidents retrieves all incidents in creation order.
func (s *Service) ListIncidents(ctx context.Context) ([]*domain.Incident, error) {
	return s.repo.ListIncidents(ctx)
}

// ListOpen retrieves incidents whose status is open or investigating,
// in creation order.
func (s *Service) ListOpen(ctx context.Context) ([]*domain.Incident, error) {
	all, err := s.repo.ListIncidents(ctx)
	if err != nil {
		return nil, err
	}
	open := make([]*domain.Incident, 0, len(all))
	for _, inc := range all {
		if inc.Status.IsActive() {
			open = append(open, inc)
		}
	}
	return open, nil
}

// AssignIncident sets the assignee, recording the previous holder in the
// appended event. Reassignment from an existing holder is allowed.
func (s *Service) AssignIncident(ctx context.Context, id, assignee, actorID string) (*domain.Incident, error) {
	if strings.TrimSpace(assignee) == "" {
		return nil, ErrAssigneeRequired
	}

	return s.repo.UpdateIncident(ctx, id, func(inc *domain.Incident) (*domain.IncidentEvent, error) {
		old := inc.Assignee
		ts := s.eventTime(inc)

		inc.Assignee = assignee
		inc.UpdatedAt = ts

		return &domain.IncidentEvent{
			ID:         newEventID(),
			IncidentID: inc.ID,
			Type:       domain.EventTypeAssigned,
			Message:    fmt.Sprintf("Assigned to %s", assignee),
			UserID:     actorID,
			Timestamp:  ts,
			Metadata: map[string]any{
				"old_assignee": old,
				"new_assignee": assignee,
			},
		}, nil
	})
}

// UpdateStatus records a status transition. Any transition between valid
// statuses is accepted; the store does not enforce a transition table.
// The first transition into resolved or closed stamps resolvedAt or
// closedAt; re-entering the same status leaves the stamp untouched.
func (s *Service) UpdateStatus(ctx context.Context, id string, status domain.Status, actorID string) (*domain.Incident, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var resolution time.Duration
	firstResolve := false

	inc, err := s.repo.UpdateIncident(ctx, id, func(inc *domain.Incident) (*domain.IncidentEvent, error) {
		old := inc.Status
		ts := s.eventTime(inc)

		inc.Status = status
		inc.UpdatedAt = ts

		if status == domain.StatusResolved && inc.ResolvedAt == nil {
			inc.ResolvedAt = &ts
			resolution = ts.Sub(inc.CreatedAt)
			firstResolve = true
		}
		if status == domain.StatusClosed && inc.ClosedAt == nil {
			inc.ClosedAt = &ts
		}

		return &domain.IncidentEvent{
			ID:         newEventID(),
			IncidentID: inc.ID,
			Type:       domain.EventTypeStatusChanged,
			Message:    fmt.Sprintf("Status changed from %s to %s", old, status),
			UserID:     actorID,
			Timestamp:  ts,
			Metadata: map[string]any{
				"old_status": string(old),
				"new_status": string(status),
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if firstResolve {
		recordResolution(inc.Severity, resolution)
	}

	return inc, nil
}

// AddComment appends a comment event. Status, assignee and timestamps other
// than updatedAt are untouched.
func (s *Service) AddComment(ctx context.Context, id, message, actorID string) (*domain.Incident, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrMessageRequired
	}

	return s.repo.UpdateIncident(ctx, id, func(inc *domain.Incident) (*domain.IncidentEvent, error) {
		ts := s.eventTime(inc)
		inc.UpdatedAt = ts

		return &domain.IncidentEvent{
			ID:         newEventID(),
			IncidentID: inc.ID,
			Type:       domain.EventTypeComment,
			Message:    message,
			UserID:     actorID,
			Timestamp:  ts,
		}, nil
	})
}

// eventTime returns the timestamp for a new timeline event, clamped so the
// per-incident timeline stays non-decreasing even if the clock steps back.
func (s *Service) eventTime(inc *domain.Incident) time.Time {
	ts := s.now()
	if n := len(inc.Timeline); n > 0 {
		if last := inc.Timeline[n-1].Timestamp; ts.Before(last) {
			ts = last
		}
	}
	return ts
}
