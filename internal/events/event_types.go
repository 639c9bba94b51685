package events

import (
	"time"

	"github.com/quilldesk/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated         EventType = "ticket.created"
	EventTicketReplied         EventType = "ticket.replied"
	EventTicketUpdated         EventType = "ticket.updated"
	EventAIProcessRequested    EventType = "ticket.ai_process.requested"
	EventTicketProcessed       EventType = "ticket.processed"
	EventCommunicationDispatch EventType = "communication.dispatched"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	TicketCode string    `json:"ticket"`
	Timestamp  time.Time `json:"timestamp"`
	Payload    any       `json:"payload"`
}

// TicketCreatedPayload carries the new ticket.
type TicketCreatedPayload struct {
	Subject  string  `json:"subject"`
	Channel  string  `json:"channel"`
	Priority *string `json:"priority,omitempty"`
	Team     *string `json:"team,omitempty"`
}

// TicketRepliedPayload carries the communication that extended the
// thread. Direction drives the orchestrator's outbound-skip guard.
type TicketRepliedPayload struct {
	CommunicationID int64            `json:"communication_id"`
	Direction       domain.Direction `json:"direction"`
	RaisedBy        string           `json:"raised_by"`
}

// TicketProcessedPayload summarizes an orchestration pass.
type TicketProcessedPayload struct {
	Team          string `json:"team"`
	Priority      string `json:"priority"`
	AutoResolved  bool   `json:"auto_resolved"`
	AskedQuestion bool   `json:"asked_question"`
}

// CommunicationDispatchedPayload reports outbound mail delivery.
type CommunicationDispatchedPayload struct {
	CommunicationID int64  `json:"communication_id"`
	Channel         string `json:"channel"`
	MessageID       string `json:"message_id"`
}
