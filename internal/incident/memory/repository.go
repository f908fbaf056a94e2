// Package memory provides the volatile in-process implementation of the
// incident repository.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/opsdeck/incidentd/internal/domain"
	"github.com/opsdeck/incidentd/internal/incident"
)

// Repository implements incident.Repository with an in-memory map guarded
// by a reader-writer lock. Incidents are handed out as deep copies, so a
// reader can never observe a half-applied mutation and a caller can never
// mutate shared state through a returned pointer. Listing preserves
// insertion order.
type Repository struct {
	mu    sync.RWMutex
	byID  map[string]*domain.Incident
	order []string
}

// NewRepository creates an empty in-memory repository.
func NewRepository() *Repository {
	return &Repository{
		byID: make(map[string]*domain.Incident),
	}
}

// CreateIncident stores a copy of the incident.
func (r *Repository) CreateIncident(_ context.Context, inc *domain.Incident) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[inc.ID]; exists {
		return fmt.Errorf("incident %s already exists", inc.ID)
	}

	r.byID[inc.ID] = inc.Clone()
	r.order = append(r.order, inc.ID)
	return nil
}

// GetIncident returns a copy of the incident with the given ID.
func (r *Repository) GetIncident(_ context.Context, id string) (*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inc, ok := r.byID[id]
	if !ok {
		return nil, incident.ErrIncidentNotFound
	}
	return inc.Clone(), nil
}

// ListIncidents returns copies of all incidents in insertion order.
func (r *Repository) ListIncidents(_ context.Context) ([]*domain.Incident, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Incident, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out, nil
}

// UpdateIncident applies mutate under the write lock. The mutation runs on a
// working copy: if mutate fails, the stored incident is untouched. On
// success the returned event is appended and the field changes become
// visible atomically with it.
func (r *Repository) UpdateIncident(_ context.Context, id string, mutate incident.MutateFunc) (*domain.Incident, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[id]
	if !ok {
		return nil, incident.ErrIncidentNotFound
	}

	work := stored.Clone()
	ev, err := mutate(work)
	if err != nil {
		return nil, err
	}
	if ev != nil {
		work.Timeline = append(work.Timeline, *ev)
	}

	r.byID[id] = work
	return work.Clone(), nil
}
