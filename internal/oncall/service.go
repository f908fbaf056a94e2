// Package oncall provides read-only access to the on-call roster table.
// The roster is a static fact loaded at startup; the service never computes
// rotations.
package oncall

import (
	"github.com/opsdeck/incidentd/internal/domain"
)

// DefaultTeam is used when a lookup does not name a team.
const DefaultTeam = "default"

// Service answers on-call lookups against a fixed snapshot table.
type Service struct {
	teams map[string]domain.OnCallSnapshot
}

// NewService creates a service over the given roster table. The map is
// copied, so later changes to the argument do not leak into the service.
func NewService(teams map[string]domain.OnCallSnapshot) *Service {
	copied := make(map[string]domain.OnCallSnapshot, len(teams))
	for id, snap := range teams {
		snap.Team = id
		if snap.Escalation == nil {
			snap.Escalation = []string{}
		} else {
			snap.Escalation = append([]string(nil), snap.Escalation...)
		}
		copied[id] = snap
	}
	return &Service{teams: copied}
}

// Get returns the snapshot for the given team, defaulting to "default" when
// teamID is empty. Unknown teams yield an empty snapshot rather than an
// error.
func (s *Service) Get(teamID string) domain.OnCallSnapshot {
	if teamID == "" {
		teamID = DefaultTeam
	}
	if snap, ok := s.teams[teamID]; ok {
		out := snap
		out.Escalation = append([]string(nil), snap.Escalation...)
		return out
	}
	return domain.OnCallSnapshot{Team: teamID, Escalation: []string{}}
}
