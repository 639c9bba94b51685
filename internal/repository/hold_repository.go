package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/interval"
)

// HoldRepository manages hold intervals. A partial unique index on
// (ticket) WHERE hold_end IS NULL enforces at most one open interval.
type HoldRepository interface {
	Open(ctx context.Context, ticketCode string, start time.Time) (*domain.HoldInterval, error)
	FindOpen(ctx context.Context, ticketCode string) (*domain.HoldInterval, error)
	Close(ctx context.Context, id int64, end time.Time, duration time.Duration) error
	ListByTicket(ctx context.Context, ticketCode string) ([]domain.HoldInterval, error)
}

type holdRepository struct {
	pool *pgxpool.Pool
}

// NewHoldRepository instantiates repository.
func NewHoldRepository(pool *pgxpool.Pool) HoldRepository {
	return &holdRepository{pool: pool}
}

func (r *holdRepository) Open(ctx context.Context, ticketCode string, start time.Time) (*domain.HoldInterval, error) {
	const query = `
        INSERT INTO hold_intervals (ticket, hold_start) VALUES ($1,$2)
        RETURNING id`
	hold := &domain.HoldInterval{TicketCode: ticketCode, HoldStart: start}
	if err := r.pool.QueryRow(ctx, query, ticketCode, start).Scan(&hold.ID); err != nil {
		return nil, err
	}
	return hold, nil
}

func (r *holdRepository) FindOpen(ctx context.Context, ticketCode string) (*domain.HoldInterval, error) {
	const query = `
        SELECT id, ticket, hold_start, hold_end, duration FROM hold_intervals
        WHERE ticket=$1 AND hold_end IS NULL LIMIT 1`
	return scanHold(r.pool.QueryRow(ctx, query, ticketCode))
}

func (r *holdRepository) Close(ctx context.Context, id int64, end time.Time, duration time.Duration) error {
	const query = `UPDATE hold_intervals SET hold_end=$2, duration=$3 WHERE id=$1 AND hold_end IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id, end, interval.Format(duration))
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *holdRepository) ListByTicket(ctx context.Context, ticketCode string) ([]domain.HoldInterval, error) {
	const query = `
        SELECT id, ticket, hold_start, hold_end, duration FROM hold_intervals
        WHERE ticket=$1 ORDER BY hold_start`
	rows, err := r.pool.Query(ctx, query, ticketCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.HoldInterval
	for rows.Next() {
		hold, err := scanHold(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *hold)
	}
	return result, rows.Err()
}

func scanHold(row pgx.Row) (*domain.HoldInterval, error) {
	var (
		hold     domain.HoldInterval
		duration *string
	)
	if err := row.Scan(&hold.ID, &hold.TicketCode, &hold.HoldStart, &hold.HoldEnd, &duration); err != nil {
		return nil, err
	}
	if duration != nil {
		d := interval.Parse(*duration)
		hold.Duration = &d
	}
	return &hold, nil
}
