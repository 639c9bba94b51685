package domain

import (
	"time"

	"github.com/google/uuid"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "Open"
	TicketStatusReplied  TicketStatus = "Replied"
	TicketStatusOnHold   TicketStatus = "On Hold"
	TicketStatusResolved TicketStatus = "Resolved"
	TicketStatusClosed   TicketStatus = "Closed"
)

// Terminal reports whether the status ends SLA tracking.
func (s TicketStatus) Terminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// AgreementStatus tracks SLA compliance for a ticket.
type AgreementStatus string

const (
	AgreementFirstResponseDue AgreementStatus = "First Response Due"
	AgreementResolutionDue    AgreementStatus = "Resolution Due"
	AgreementFailed           AgreementStatus = "Failed"
	AgreementFulfilled        AgreementStatus = "Fulfilled"
	AgreementPaused           AgreementStatus = "Paused"
)

// Ticket is the aggregate for support requests. The code (name) is the
// human-readable identity used across communications and mail threads.
type Ticket struct {
	Code                string
	Subject             string
	Description         string
	RaisedBy            string
	Channel             string
	Owner               string
	Status              TicketStatus
	Priority            *string
	Team                *string
	OriginalTeam        *string
	Agent               *uuid.UUID
	Customer            *string
	ExternalThreadID    *string
	ResponseBy          *time.Time
	ResolutionBy        *time.Time
	AgreementStatus     *AgreementStatus
	TotalHoldTime       time.Duration
	FirstRespondedOn    *time.Time
	BotFirstRespondedOn *time.Time
	FirstResponseTime   *time.Duration
	ResolutionDate      *time.Time
	ResolvedBy          *uuid.UUID
	ResolvedByBot       bool
	EscalationCount     int
	IsMerged            bool
	MergedWith          *string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}
