package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quilldesk/helpdesk/internal/domain"
)

const globalSettingsName = "GLOBAL"

// SettingsRepository manages the singleton settings row. Sequence
// advancement is a single conditional UPDATE so concurrent callers never
// observe the same value.
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.SystemSettings, error)
	Update(ctx context.Context, settings *domain.SystemSettings) error
	// NextTicketSequence returns the ticket prefix and the sequence value
	// to use, advancing the counter atomically.
	NextTicketSequence(ctx context.Context) (prefix string, seq int, err error)
	NextCustomerSequence(ctx context.Context) (prefix string, seq int, err error)
	// ResetTicketSequence starts the daily sequence over at 1.
	ResetTicketSequence(ctx context.Context, at time.Time) error
}

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository instantiates repository.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.SystemSettings, error) {
	const query = `
        SELECT name, ticket_prefix, current_count, customer_prefix, current_customer_count,
               admin_team, last_reset_date
        FROM system_settings WHERE name=$1`
	var s domain.SystemSettings
	if err := r.pool.QueryRow(ctx, query, globalSettingsName).Scan(
		&s.Name, &s.TicketPrefix, &s.CurrentCount, &s.CustomerPrefix, &s.CurrentCustomerCount,
		&s.AdminTeam, &s.LastResetDate,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepository) Update(ctx context.Context, settings *domain.SystemSettings) error {
	const query = `
        UPDATE system_settings SET ticket_prefix=$1, customer_prefix=$2, admin_team=$3
        WHERE name=$4`
	cmd, err := r.pool.Exec(ctx, query,
		settings.TicketPrefix, settings.CustomerPrefix, settings.AdminTeam, globalSettingsName,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *settingsRepository) NextTicketSequence(ctx context.Context) (string, int, error) {
	const query = `
        UPDATE system_settings SET current_count = current_count + 1
        WHERE name=$1
        RETURNING ticket_prefix, current_count - 1`
	var (
		prefix string
		seq    int
	)
	if err := r.pool.QueryRow(ctx, query, globalSettingsName).Scan(&prefix, &seq); err != nil {
		return "", 0, err
	}
	return prefix, seq, nil
}

func (r *settingsRepository) NextCustomerSequence(ctx context.Context) (string, int, error) {
	const query = `
        UPDATE system_settings SET current_customer_count = current_customer_count + 1
        WHERE name=$1
        RETURNING customer_prefix, current_customer_count - 1`
	var (
		prefix string
		seq    int
	)
	if err := r.pool.QueryRow(ctx, query, globalSettingsName).Scan(&prefix, &seq); err != nil {
		return "", 0, err
	}
	return prefix, seq, nil
}

func (r *settingsRepository) ResetTicketSequence(ctx context.Context, at time.Time) error {
	const query = `
        UPDATE system_settings SET current_count = 1, last_reset_date = $2 WHERE name=$1`
	cmd, err := r.pool.Exec(ctx, query, globalSettingsName, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
