package dto

import (
	"time"

	"github.com/google/uuid"
)

// TeamRequest payload for create and update.
type TeamRequest struct {
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	EscalationTeam *string `json:"escalation_team"`
}

// TeamResponse is the team view.
type TeamResponse struct {
	Name           string      `json:"name"`
	Description    string      `json:"description"`
	EscalationTeam *string     `json:"escalation_team,omitempty"`
	LastAgent      *uuid.UUID  `json:"last_agent,omitempty"`
	Members        []uuid.UUID `json:"members,omitempty"`
}

// MemberRequest payload.
type MemberRequest struct {
	Agent uuid.UUID `json:"agent"`
}

// PriorityRequest payload.
type PriorityRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	ColorCode   *string `json:"color_code"`
	SortOrder   *int    `json:"sort_order"`
}

// SLARequest payload. Durations are Postgres interval strings such as
// "04:00:00" or "2 days".
type SLARequest struct {
	Name              string  `json:"name"`
	Priority          string  `json:"priority"`
	Description       *string `json:"description"`
	FirstResponseTime *string `json:"first_response_time"`
	ResolutionTime    *string `json:"resolution_time"`
}

// SLAResponse mirrors SLARequest with formatted durations.
type SLAResponse struct {
	Name              string  `json:"name"`
	Priority          string  `json:"priority"`
	Description       *string `json:"description,omitempty"`
	FirstResponseTime *string `json:"first_response_time"`
	ResolutionTime    *string `json:"resolution_time"`
}

// CustomerRequest payload.
type CustomerRequest struct {
	FullName     *string `json:"full_name"`
	Email        *string `json:"email"`
	Phone        *string `json:"phone"`
	Organization *string `json:"organization"`
}

// HandleRequest payload.
type HandleRequest struct {
	Channel string `json:"channel"`
	Handle  string `json:"handle"`
}

// KBArticleRequest payload.
type KBArticleRequest struct {
	Title    string  `json:"title"`
	Content  string  `json:"content"`
	Category *string `json:"category"`
	IsPublic bool    `json:"is_public"`
}

// SettingsRequest payload for the singleton settings row.
type SettingsRequest struct {
	TicketPrefix   *string `json:"ticket_prefix"`
	CustomerPrefix *string `json:"customer_prefix"`
	AdminTeam      *string `json:"admin_team"`
}

// SettingsResponse is the settings view.
type SettingsResponse struct {
	TicketPrefix         string     `json:"ticket_prefix"`
	CurrentCount         int        `json:"current_count"`
	CustomerPrefix       string     `json:"customer_prefix"`
	CurrentCustomerCount int        `json:"current_customer_count"`
	AdminTeam            *string    `json:"admin_team,omitempty"`
	LastResetDate        *time.Time `json:"last_reset_date,omitempty"`
}
