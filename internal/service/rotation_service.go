package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/repository"
	apperrors "github.com/quilldesk/helpdesk/pkg/util/errorutil"
)

const rotationRetries = 5

// RotationService hands out agents from a team's membership roster in
// round-robin order. The pointer advance is a compare-and-swap against
// the team row, retried when a concurrent assignment moved it first.
type RotationService struct {
	teams       repository.TeamRepository
	memberships repository.MembershipRepository
}

// RotationDependencies bundles repositories for rotation service.
type RotationDependencies struct {
	TeamRepo       repository.TeamRepository
	MembershipRepo repository.MembershipRepository
}

// NewRotationService creates a rotation service.
func NewRotationService(deps RotationDependencies) *RotationService {
	return &RotationService{teams: deps.TeamRepo, memberships: deps.MembershipRepo}
}

// Next returns the agent following the team's last-assigned agent and
// advances the pointer. A team with no members yields nil without
// touching the pointer. Unknown teams surface as not found.
func (s *RotationService) Next(ctx context.Context, teamName string) (*uuid.UUID, error) {
	for attempt := 0; attempt < rotationRetries; attempt++ {
		team, err := s.teams.GetByName(ctx, teamName)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("team", map[string]any{"team": teamName})
			}
			return nil, apperrors.MapError(err)
		}

		members, err := s.memberships.ListByTeam(ctx, teamName)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		candidate := nextMember(members, team.LastAgent)
		if candidate == nil {
			return nil, nil
		}

		applied, err := s.teams.CompareAndSetLastAgent(ctx, teamName, team.LastAgent, candidate)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if applied {
			return candidate, nil
		}
	}
	return nil, apperrors.NewConflict("agent rotation contended", map[string]any{"team": teamName})
}

// nextMember picks the successor of last in the roster, wrapping at the
// end. A last pointer that no longer belongs to the roster restarts the
// rotation at the first member.
func nextMember(members []domain.AgentMembership, last *uuid.UUID) *uuid.UUID {
	if len(members) == 0 {
		return nil
	}
	if last == nil {
		id := members[0].Agent
		return &id
	}
	for i := range members {
		if members[i].Agent == *last {
			id := members[(i+1)%len(members)].Agent
			return &id
		}
	}
	id := members[0].Agent
	return &id
}
