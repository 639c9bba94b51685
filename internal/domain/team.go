package domain

import (
	"time"

	"github.com/google/uuid"
)

// Team groups agents for routing and escalation.
type Team struct {
	Name           string
	Description    string
	EscalationTeam *string
	// LastAgent is the round-robin pointer. Only the rotation service
	// writes it.
	LastAgent *uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AgentMembership links an agent to a team. Memberships are ordered by
// agent id so rotation is deterministic.
type AgentMembership struct {
	ID        int64
	Team      string
	Agent     uuid.UUID
	CreatedAt time.Time
}

// Agent is the profile of a support operator.
type Agent struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AgentRole grants a capability to an agent.
type AgentRole struct {
	Agent     uuid.UUID
	Name      string
	CreatedAt time.Time
}

const (
	RoleManager    = "Manager"
	RoleAdminAgent = "Admin Agent"
)
