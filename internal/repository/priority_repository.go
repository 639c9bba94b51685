package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quilldesk/helpdesk/internal/domain"
)

// PriorityRepository encapsulates priority catalog persistence.
type PriorityRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Priority, error)
	List(ctx context.Context) ([]domain.Priority, error)
	Create(ctx context.Context, priority *domain.Priority) error
	Update(ctx context.Context, priority *domain.Priority) error
	Delete(ctx context.Context, name string) error
}

type priorityRepository struct {
	pool *pgxpool.Pool
}

// NewPriorityRepository instantiates repository.
func NewPriorityRepository(pool *pgxpool.Pool) PriorityRepository {
	return &priorityRepository{pool: pool}
}

const priorityColumns = `name, description, color_code, sort_order, created_at, updated_at`

func (r *priorityRepository) GetByName(ctx context.Context, name string) (*domain.Priority, error) {
	query := `SELECT ` + priorityColumns + ` FROM priorities WHERE name=$1`
	var p domain.Priority
	if err := r.pool.QueryRow(ctx, query, name).Scan(
		&p.Name, &p.Description, &p.ColorCode, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *priorityRepository) List(ctx context.Context) ([]domain.Priority, error) {
	query := `SELECT ` + priorityColumns + ` FROM priorities ORDER BY sort_order NULLS LAST, name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Priority
	for rows.Next() {
		var p domain.Priority
		if err := rows.Scan(&p.Name, &p.Description, &p.ColorCode, &p.SortOrder, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (r *priorityRepository) Create(ctx context.Context, priority *domain.Priority) error {
	const query = `
        INSERT INTO priorities (name, description, color_code, sort_order)
        VALUES ($1,$2,$3,$4)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		priority.Name, priority.Description, priority.ColorCode, priority.SortOrder,
	).Scan(&priority.CreatedAt, &priority.UpdatedAt)
}

func (r *priorityRepository) Update(ctx context.Context, priority *domain.Priority) error {
	const query = `
        UPDATE priorities SET description=$2, color_code=$3, sort_order=$4, updated_at=NOW()
        WHERE name=$1`
	cmd, err := r.pool.Exec(ctx, query,
		priority.Name, priority.Description, priority.ColorCode, priority.SortOrder,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *priorityRepository) Delete(ctx context.Context, name string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM priorities WHERE name=$1`, name)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
