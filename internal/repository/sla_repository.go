package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/interval"
)

// SLARepository encapsulates SLA persistence. SLAs are keyed by priority
// name; duration columns hold Postgres interval strings.
type SLARepository interface {
	GetByPriority(ctx context.Context, priority string) (*domain.SLA, error)
	List(ctx context.Context) ([]domain.SLA, error)
	Create(ctx context.Context, sla *domain.SLA) error
	Update(ctx context.Context, sla *domain.SLA) error
	Delete(ctx context.Context, name string) error
}

type slaRepository struct {
	pool *pgxpool.Pool
}

// NewSLARepository instantiates repository.
func NewSLARepository(pool *pgxpool.Pool) SLARepository {
	return &slaRepository{pool: pool}
}

const slaColumns = `name, priority, description, first_response_time, resolution_time, created_at, updated_at`

func (r *slaRepository) GetByPriority(ctx context.Context, priority string) (*domain.SLA, error) {
	query := `SELECT ` + slaColumns + ` FROM slas WHERE priority=$1 LIMIT 1`
	return scanSLA(r.pool.QueryRow(ctx, query, priority))
}

func (r *slaRepository) List(ctx context.Context) ([]domain.SLA, error) {
	query := `SELECT ` + slaColumns + ` FROM slas ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SLA
	for rows.Next() {
		sla, err := scanSLA(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *sla)
	}
	return result, rows.Err()
}

func (r *slaRepository) Create(ctx context.Context, sla *domain.SLA) error {
	const query = `
        INSERT INTO slas (name, priority, description, first_response_time, resolution_time)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		sla.Name, sla.Priority, sla.Description,
		durationText(sla.FirstResponseTime), durationText(sla.ResolutionTime),
	).Scan(&sla.CreatedAt, &sla.UpdatedAt)
}

func (r *slaRepository) Update(ctx context.Context, sla *domain.SLA) error {
	const query = `
        UPDATE slas SET priority=$2, description=$3, first_response_time=$4, resolution_time=$5,
            updated_at=NOW()
        WHERE name=$1`
	cmd, err := r.pool.Exec(ctx, query,
		sla.Name, sla.Priority, sla.Description,
		durationText(sla.FirstResponseTime), durationText(sla.ResolutionTime),
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *slaRepository) Delete(ctx context.Context, name string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM slas WHERE name=$1`, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanSLA(row pgx.Row) (*domain.SLA, error) {
	var (
		sla           domain.SLA
		firstResponse *string
		resolution    *string
	)
	if err := row.Scan(
		&sla.Name, &sla.Priority, &sla.Description, &firstResponse, &resolution,
		&sla.CreatedAt, &sla.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if firstResponse != nil {
		d := interval.Parse(*firstResponse)
		sla.FirstResponseTime = &d
	}
	if resolution != nil {
		d := interval.Parse(*resolution)
		sla.ResolutionTime = &d
	}
	return &sla, nil
}

func durationText(d *time.Duration) *string {
	if d == nil {
		return nil
	}
	s := interval.Format(*d)
	return &s
}
