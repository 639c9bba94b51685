package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/quilldesk/helpdesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Subject          string            `json:"subject"`
	Description      string            `json:"description"`
	RaisedBy         string            `json:"raised_by"`
	Channel          string            `json:"channel"`
	Customer         *string           `json:"customer"`
	SenderHandle     string            `json:"sender_handle"`
	SenderName       string            `json:"sender_name"`
	Priority         *string           `json:"priority"`
	Team             *string           `json:"team"`
	ExternalThreadID *string           `json:"external_thread_id"`
	MessageID        *string           `json:"message_id"`
	Attachments      map[string]string `json:"attachments"`
}

// UpdateTicketRequest payload. Absent fields are left untouched.
type UpdateTicketRequest struct {
	Status   *domain.TicketStatus `json:"status"`
	Priority *string              `json:"priority"`
	Team     *string              `json:"team"`
	Agent    *uuid.UUID           `json:"agent"`
	Owner    *string              `json:"owner"`
}

// ReplyRequest payload for conversation entries.
type ReplyRequest struct {
	Body        string            `json:"body"`
	Direction   domain.Direction  `json:"direction"`
	MessageID   *string           `json:"message_id"`
	Attachments map[string]string `json:"attachments"`
}

// TicketResponse is the full ticket view.
type TicketResponse struct {
	Code                string                  `json:"code"`
	Subject             string                  `json:"subject"`
	Description         string                  `json:"description"`
	RaisedBy            string                  `json:"raised_by"`
	Channel             string                  `json:"channel"`
	Owner               string                  `json:"owner,omitempty"`
	Status              domain.TicketStatus     `json:"status"`
	Priority            *string                 `json:"priority"`
	Team                *string                 `json:"team"`
	OriginalTeam        *string                 `json:"original_team,omitempty"`
	Agent               *uuid.UUID              `json:"agent"`
	Customer            *string                 `json:"customer"`
	ResponseBy          *time.Time              `json:"response_by"`
	ResolutionBy        *time.Time              `json:"resolution_by"`
	AgreementStatus     *domain.AgreementStatus `json:"agreement_status"`
	TotalHoldTime       string                  `json:"total_hold_time"`
	FirstRespondedOn    *time.Time              `json:"first_responded_on"`
	BotFirstRespondedOn *time.Time              `json:"bot_first_responded_on,omitempty"`
	FirstResponseTime   *string                 `json:"first_response_time"`
	ResolutionDate      *time.Time              `json:"resolution_date"`
	ResolvedBy          *uuid.UUID              `json:"resolved_by,omitempty"`
	ResolvedByBot       bool                    `json:"resolved_by_bot"`
	EscalationCount     int                     `json:"escalation_count"`
	ExternalThreadID    *string                 `json:"external_thread_id,omitempty"`
	IsMerged            bool                    `json:"is_merged,omitempty"`
	MergedWith          *string                 `json:"merged_with,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
	UpdatedAt           time.Time               `json:"updated_at"`
}

// CommunicationResponse is one conversation entry.
type CommunicationResponse struct {
	ID          int64             `json:"id"`
	Body        string            `json:"body"`
	Direction   domain.Direction  `json:"direction"`
	Channel     string            `json:"channel"`
	RaisedBy    string            `json:"raised_by"`
	Sender      *uuid.UUID        `json:"sender,omitempty"`
	MessageID   *string           `json:"message_id,omitempty"`
	EventType   *string           `json:"event_type,omitempty"`
	Attachments map[string]string `json:"attachments,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// HoldIntervalResponse is one recorded pause.
type HoldIntervalResponse struct {
	ID        int64      `json:"id"`
	HoldStart time.Time  `json:"hold_start"`
	HoldEnd   *time.Time `json:"hold_end"`
	Duration  *string    `json:"duration"`
}
