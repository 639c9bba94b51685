package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/interval"
)

// TicketFilter captures listing parameters.
type TicketFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []string
	Team        *string
	Agent       *string
	Customer    *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	FindByExternalThreadIDs(ctx context.Context, ids []string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	ListRecentResolved(ctx context.Context, limit int) ([]domain.Ticket, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `code, subject, description, raised_by, channel, owner, status, priority, team,
    original_team, agent, customer, external_thread_id, response_by, resolution_by, agreement_status,
    total_hold_time, first_responded_on, bot_first_responded_on, first_response_time, resolution_date,
    resolved_by, resolved_by_bot, escalation_count, is_merged, merged_with, created_at, updated_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (code, subject, description, raised_by, channel, owner, status, priority, team,
            original_team, agent, customer, external_thread_id, response_by, resolution_by, agreement_status,
            total_hold_time, first_responded_on, bot_first_responded_on, first_response_time, resolution_date,
            resolved_by, resolved_by_bot, escalation_count, is_merged, merged_with)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
        RETURNING created_at, updated_at`
	return r.pool.QueryRow(ctx, query, ticketArgs(ticket)...).Scan(&ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$2, description=$3, raised_by=$4, channel=$5, owner=$6, status=$7,
            priority=$8, team=$9, original_team=$10, agent=$11, customer=$12, external_thread_id=$13,
            response_by=$14, resolution_by=$15, agreement_status=$16, total_hold_time=$17,
            first_responded_on=$18, bot_first_responded_on=$19, first_response_time=$20,
            resolution_date=$21, resolved_by=$22, resolved_by_bot=$23, escalation_count=$24,
            is_merged=$25, merged_with=$26, updated_at=NOW()
        WHERE code=$1`
	cmd, err := r.pool.Exec(ctx, query, ticketArgs(ticket)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func ticketArgs(t *domain.Ticket) []any {
	var firstResponse *string
	if t.FirstResponseTime != nil {
		s := interval.Format(*t.FirstResponseTime)
		firstResponse = &s
	}
	return []any{
		t.Code, t.Subject, t.Description, t.RaisedBy, t.Channel, t.Owner, t.Status, t.Priority, t.Team,
		t.OriginalTeam, t.Agent, t.Customer, t.ExternalThreadID, t.ResponseBy, t.ResolutionBy,
		t.AgreementStatus, interval.Format(t.TotalHoldTime), t.FirstRespondedOn, t.BotFirstRespondedOn,
		firstResponse, t.ResolutionDate, t.ResolvedBy, t.ResolvedByBot, t.EscalationCount,
		t.IsMerged, t.MergedWith,
	}
}

func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE code=$1`, ticketColumns)
	row := r.pool.QueryRow(ctx, query, code)
	return scanTicket(row)
}

func (r *ticketRepository) FindByExternalThreadIDs(ctx context.Context, ids []string) (*domain.Ticket, error) {
	if len(ids) == 0 {
		return nil, pgx.ErrNoRows
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE external_thread_id = ANY($1) LIMIT 1`, ticketColumns)
	row := r.pool.QueryRow(ctx, query, ids)
	return scanTicket(row)
}

func (r *ticketRepository) ListRecentResolved(ctx context.Context, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 10
	}
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE status=$1 ORDER BY created_at DESC LIMIT %d`,
		ticketColumns, limit)
	rows, err := r.pool.Query(ctx, query, domain.TicketStatusResolved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Team != nil {
		args = append(args, *filter.Team)
		clauses = append(clauses, fmt.Sprintf("team=$%d", len(args)))
	}
	if filter.Agent != nil {
		args = append(args, *filter.Agent)
		clauses = append(clauses, fmt.Sprintf("agent=$%d", len(args)))
	}
	if filter.Customer != nil {
		args = append(args, *filter.Customer)
		clauses = append(clauses, fmt.Sprintf("customer=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(subject) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		ticket        domain.Ticket
		holdTime      *string
		firstResponse *string
	)
	if err := row.Scan(
		&ticket.Code, &ticket.Subject, &ticket.Description, &ticket.RaisedBy, &ticket.Channel,
		&ticket.Owner, &ticket.Status, &ticket.Priority, &ticket.Team, &ticket.OriginalTeam,
		&ticket.Agent, &ticket.Customer, &ticket.ExternalThreadID, &ticket.ResponseBy,
		&ticket.ResolutionBy, &ticket.AgreementStatus, &holdTime, &ticket.FirstRespondedOn,
		&ticket.BotFirstRespondedOn, &firstResponse, &ticket.ResolutionDate, &ticket.ResolvedBy,
		&ticket.ResolvedByBot, &ticket.EscalationCount, &ticket.IsMerged, &ticket.MergedWith,
		&ticket.CreatedAt, &ticket.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if holdTime != nil {
		ticket.TotalHoldTime = interval.Parse(*holdTime)
	}
	if firstResponse != nil {
		d := interval.Parse(*firstResponse)
		ticket.FirstResponseTime = &d
	}
	return &ticket, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ticket)
	}
	return result, rows.Err()
}
