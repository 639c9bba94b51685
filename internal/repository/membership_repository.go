package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quilldesk/helpdesk/internal/domain"
)

// MembershipRepository manages team membership. ListByTeam orders by
// agent id so round-robin rotation is deterministic.
type MembershipRepository interface {
	ListByTeam(ctx context.Context, team string) ([]domain.AgentMembership, error)
	Add(ctx context.Context, team string, agent uuid.UUID) (*domain.AgentMembership, error)
	Remove(ctx context.Context, team string, agent uuid.UUID) error
}

type membershipRepository struct {
	pool *pgxpool.Pool
}

// NewMembershipRepository instantiates repository.
func NewMembershipRepository(pool *pgxpool.Pool) MembershipRepository {
	return &membershipRepository{pool: pool}
}

func (r *membershipRepository) ListByTeam(ctx context.Context, team string) ([]domain.AgentMembership, error) {
	const query = `
        SELECT id, team, agent, created_at FROM agent_memberships
        WHERE team=$1 ORDER BY agent`
	rows, err := r.pool.Query(ctx, query, team)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AgentMembership
	for rows.Next() {
		var m domain.AgentMembership
		if err := rows.Scan(&m.ID, &m.Team, &m.Agent, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (r *membershipRepository) Add(ctx context.Context, team string, agent uuid.UUID) (*domain.AgentMembership, error) {
	const query = `
        INSERT INTO agent_memberships (team, agent) VALUES ($1,$2)
        RETURNING id, created_at`
	m := &domain.AgentMembership{Team: team, Agent: agent}
	if err := r.pool.QueryRow(ctx, query, team, agent).Scan(&m.ID, &m.CreatedAt); err != nil {
		return nil, err
	}
	return m, nil
}

func (r *membershipRepository) Remove(ctx context.Context, team string, agent uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM agent_memberships WHERE team=$1 AND agent=$2`, team, agent)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
