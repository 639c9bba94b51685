package domain

import "time"

// HoldInterval records a span during which a ticket was On Hold and the
// SLA clock was stopped. At most one interval per ticket is open.
type HoldInterval struct {
	ID         int64
	TicketCode string
	HoldStart  time.Time
	HoldEnd    *time.Time
	Duration   *time.Duration
}
