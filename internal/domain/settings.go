package domain

import (
	"time"

	"github.com/google/uuid"
)

// SystemSettings is the singleton row holding global sequence counters
// and code prefixes. Ticket sequences reset daily.
type SystemSettings struct {
	Name                 string
	TicketPrefix         string
	CurrentCount         int
	CustomerPrefix       string
	CurrentCustomerCount int
	AdminTeam            *string
	LastResetDate        *time.Time
}

// KBArticle is a knowledge-base entry fed to the classifier as context.
type KBArticle struct {
	ID        int64
	Title     string
	Content   string
	Category  *string
	IsPublic  bool
	Author    *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}
