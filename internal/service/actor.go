package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/quilldesk/helpdesk/internal/repository"
)

// Actor identifies who performed an operation. Automated flows carry no
// ID and resolve to the configured bot name.
type Actor struct {
	ID   *uuid.UUID
	Name string
}

// resolveActorName returns the display name for an actor: the explicit
// name, then the agent profile's full name or email, then the bot name.
func resolveActorName(ctx context.Context, agents repository.AgentRepository, actor Actor, botName string) string {
	if actor.Name != "" {
		return actor.Name
	}
	if actor.ID != nil && agents != nil {
		if agent, err := agents.GetByID(ctx, *actor.ID); err == nil {
			if agent.FullName != "" {
				return agent.FullName
			}
			if agent.Email != "" {
				return agent.Email
			}
		}
	}
	return botName
}
