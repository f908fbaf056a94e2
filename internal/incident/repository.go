package incident

import (
	"context"

	"github.com/opsdeck/incidentd/internal/domain"
)

// MutateFunc edits an incident in place and returns the single timeline
// event describing the change. Returning an error aborts the mutation
// without persisting anything.
type MutateFunc func(inc *domain.Incident) (*domain.IncidentEvent, error)

// Repository defines the interface for incident storage.
//
// UpdateIncident must apply the mutation atomically: the field changes and
// the appended event become visible together or not at all, and concurrent
// mutations to the same incident are serialized. Readers always observe a
// consistent snapshot.
type Repository interface {
	CreateIncident(ctx context.Context, inc *domain.Incident) error
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
	ListIncidents(ctx context.Context) ([]*domain.Incident, error)
	UpdateIncident(ctx context.Context, id string, mutate MutateFunc) (*domain.Incident, error)
}
