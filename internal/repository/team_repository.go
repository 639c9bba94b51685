package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quilldesk/helpdesk/internal/domain"
)

// TeamRepository encapsulates team persistence.
type TeamRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Team, error)
	List(ctx context.Context) ([]domain.Team, error)
	Create(ctx context.Context, team *domain.Team) error
	Update(ctx context.Context, team *domain.Team) error
	Delete(ctx context.Context, name string) error
	// CompareAndSetLastAgent advances the round-robin pointer only when
	// it still holds old, reporting whether the swap was applied. This
	// closes the read-then-write race on concurrent assignment.
	CompareAndSetLastAgent(ctx context.Context, name string, old, new *uuid.UUID) (bool, error)
}

type teamRepository struct {
	pool *pgxpool.Pool
}

// NewTeamRepository instantiates repository.
func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

const teamColumns = `name, description, escalation_team, last_agent, created_at, updated_at`

func (r *teamRepository) GetByName(ctx context.Context, name string) (*domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE name=$1`
	var team domain.Team
	if err := r.pool.QueryRow(ctx, query, name).Scan(
		&team.Name, &team.Description, &team.EscalationTeam, &team.LastAgent,
		&team.CreatedAt, &team.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) List(ctx context.Context) ([]domain.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Team
	for rows.Next() {
		var team domain.Team
		if err := rows.Scan(
			&team.Name, &team.Description, &team.EscalationTeam, &team.LastAgent,
			&team.CreatedAt, &team.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, team)
	}
	return result, rows.Err()
}

func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	const query = `
        INSERT INTO teams (name, description, escalation_team, last_agent)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		team.Name, team.Description, team.EscalationTeam, team.LastAgent,
	).Scan(&team.CreatedAt, &team.UpdatedAt)
}

func (r *teamRepository) Update(ctx context.Context, team *domain.Team) error {
	const query = `
        UPDATE teams SET description=$2, escalation_team=$3, updated_at=NOW() WHERE name=$1`
	cmd, err := r.pool.Exec(ctx, query, team.Name, team.Description, team.EscalationTeam)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *teamRepository) Delete(ctx context.Context, name string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM teams WHERE name=$1`, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *teamRepository) CompareAndSetLastAgent(ctx context.Context, name string, old, new *uuid.UUID) (bool, error) {
	const query = `
        UPDATE teams SET last_agent=$2, updated_at=NOW()
        WHERE name=$1 AND last_agent IS NOT DISTINCT FROM $3`
	cmd, err := r.pool.Exec(ctx, query, name, new, old)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}
