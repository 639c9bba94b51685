package domain

import (
	"time"

	"github.com/google/uuid"
)

// Direction classifies who produced a communication.
type Direction string

const (
	DirectionInbound    Direction = "Inbound"
	DirectionOutbound   Direction = "Outbound"
	DirectionSystem     Direction = "System"
	DirectionEscalation Direction = "Escalation"
)

// Communication is one immutable entry in a ticket's conversation log.
// System and Escalation entries form the audit trail; Inbound and
// Outbound entries carry mail threading identifiers.
type Communication struct {
	ID         int64
	TicketCode string
	Body       string
	Direction  Direction
	Channel    string
	RaisedBy   string
	Sender     *uuid.UUID
	MessageID  *string
	RawHeaders map[string]string
	// Attachments maps filename to a data URI, matching the wire shape
	// produced by the mail poller.
	Attachments map[string]string
	EventType   *string
	CreatedAt   time.Time
}
