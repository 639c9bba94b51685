package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quilldesk/helpdesk/internal/domain"
)

// CommunicationRepository encapsulates conversation-log persistence.
// Rows are append-only.
type CommunicationRepository interface {
	Create(ctx context.Context, comm *domain.Communication) error
	ListByTicket(ctx context.Context, ticketCode string) ([]domain.Communication, error)
	// FindTicketByMessageIDs returns the ticket code owning any
	// communication whose message id is in ids, or pgx.ErrNoRows.
	FindTicketByMessageIDs(ctx context.Context, ids []string) (string, error)
	// ListInboundMessageIDs returns message ids of inbound entries,
	// most recent first, for rebuilding outbound reference chains.
	ListInboundMessageIDs(ctx context.Context, ticketCode string) ([]string, error)
	LatestOutbound(ctx context.Context, ticketCode string) (*domain.Communication, error)
	SetMessageID(ctx context.Context, id int64, messageID string) error
}

type communicationRepository struct {
	pool *pgxpool.Pool
}

// NewCommunicationRepository instantiates repository.
func NewCommunicationRepository(pool *pgxpool.Pool) CommunicationRepository {
	return &communicationRepository{pool: pool}
}

const communicationColumns = `id, ticket, body, direction, channel, raised_by, sender, message_id,
    raw_headers, attachments, event_type, created_at`

func (r *communicationRepository) Create(ctx context.Context, comm *domain.Communication) error {
	const query = `
        INSERT INTO communications (ticket, body, direction, channel, raised_by, sender, message_id,
            raw_headers, attachments, event_type)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		comm.TicketCode,
		comm.Body,
		comm.Direction,
		comm.Channel,
		comm.RaisedBy,
		comm.Sender,
		comm.MessageID,
		comm.RawHeaders,
		comm.Attachments,
		comm.EventType,
	).Scan(&comm.ID, &comm.CreatedAt)
}

func (r *communicationRepository) ListByTicket(ctx context.Context, ticketCode string) ([]domain.Communication, error) {
	query := `SELECT ` + communicationColumns + ` FROM communications WHERE ticket=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ticketCode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCommunications(rows)
}

func (r *communicationRepository) FindTicketByMessageIDs(ctx context.Context, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", pgx.ErrNoRows
	}
	const query = `SELECT ticket FROM communications WHERE message_id = ANY($1) LIMIT 1`
	var ticketCode string
	if err := r.pool.QueryRow(ctx, query, ids).Scan(&ticketCode); err != nil {
		return "", err
	}
	return ticketCode, nil
}

func (r *communicationRepository) ListInboundMessageIDs(ctx context.Context, ticketCode string) ([]string, error) {
	const query = `
        SELECT message_id FROM communications
        WHERE ticket=$1 AND direction=$2 AND message_id IS NOT NULL
        ORDER BY created_at DESC, id DESC`
	rows, err := r.pool.Query(ctx, query, ticketCode, domain.DirectionInbound)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *communicationRepository) LatestOutbound(ctx context.Context, ticketCode string) (*domain.Communication, error) {
	query := `SELECT ` + communicationColumns + ` FROM communications
        WHERE ticket=$1 AND direction=$2 ORDER BY created_at DESC, id DESC LIMIT 1`
	row := r.pool.QueryRow(ctx, query, ticketCode, domain.DirectionOutbound)
	return scanCommunication(row)
}

func (r *communicationRepository) SetMessageID(ctx context.Context, id int64, messageID string) error {
	const query = `UPDATE communications SET message_id=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, messageID, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanCommunication(row pgx.Row) (*domain.Communication, error) {
	var comm domain.Communication
	if err := row.Scan(
		&comm.ID,
		&comm.TicketCode,
		&comm.Body,
		&comm.Direction,
		&comm.Channel,
		&comm.RaisedBy,
		&comm.Sender,
		&comm.MessageID,
		&comm.RawHeaders,
		&comm.Attachments,
		&comm.EventType,
		&comm.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &comm, nil
}

func scanCommunications(rows pgx.Rows) ([]domain.Communication, error) {
	var result []domain.Communication
	for rows.Next() {
		comm, err := scanCommunication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *comm)
	}
	return result, rows.Err()
}
