package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quilldesk/helpdesk/internal/domain"
)

// AgentRepository manages agent profiles and role grants.
type AgentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error)
	GetByEmail(ctx context.Context, email string) (*domain.Agent, error)
	List(ctx context.Context) ([]domain.Agent, error)
	Create(ctx context.Context, agent *domain.Agent) error
	ListRoles(ctx context.Context, id uuid.UUID) ([]string, error)
	GrantRole(ctx context.Context, id uuid.UUID, role string) error
	RevokeRole(ctx context.Context, id uuid.UUID, role string) error
}

type agentRepository struct {
	pool *pgxpool.Pool
}

// NewAgentRepository instantiates repository.
func NewAgentRepository(pool *pgxpool.Pool) AgentRepository {
	return &agentRepository{pool: pool}
}

const agentColumns = `id, email, full_name, password_hash, created_at, updated_at`

func (r *agentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id=$1`
	var agent domain.Agent
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&agent.ID, &agent.Email, &agent.FullName, &agent.PasswordHash, &agent.CreatedAt, &agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) GetByEmail(ctx context.Context, email string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE lower(email)=lower($1)`
	var agent domain.Agent
	if err := r.pool.QueryRow(ctx, query, email).Scan(
		&agent.ID, &agent.Email, &agent.FullName, &agent.PasswordHash, &agent.CreatedAt, &agent.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) List(ctx context.Context) ([]domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents ORDER BY email`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Agent
	for rows.Next() {
		var agent domain.Agent
		if err := rows.Scan(&agent.ID, &agent.Email, &agent.FullName, &agent.PasswordHash, &agent.CreatedAt, &agent.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, agent)
	}
	return result, rows.Err()
}

func (r *agentRepository) Create(ctx context.Context, agent *domain.Agent) error {
	const query = `
        INSERT INTO agents (email, full_name, password_hash)
        VALUES ($1, $2, $3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, agent.Email, agent.FullName, agent.PasswordHash).
		Scan(&agent.ID, &agent.CreatedAt, &agent.UpdatedAt)
}

func (r *agentRepository) ListRoles(ctx context.Context, id uuid.UUID) ([]string, error) {
	const query = `SELECT name FROM agent_roles WHERE agent=$1 ORDER BY name`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

func (r *agentRepository) GrantRole(ctx context.Context, id uuid.UUID, role string) error {
	const query = `
        INSERT INTO agent_roles (agent, name) VALUES ($1, $2)
        ON CONFLICT (agent, name) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, id, role)
	return err
}

func (r *agentRepository) RevokeRole(ctx context.Context, id uuid.UUID, role string) error {
	const query = `DELETE FROM agent_roles WHERE agent=$1 AND name=$2`
	_, err := r.pool.Exec(ctx, query, id, role)
	return err
}
