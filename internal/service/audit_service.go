package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/repository"
)

// TicketSnapshot captures the audited fields of a ticket at one point
// in time. Snapshots are compared after an update to produce the trail.
// EscalationCount is tracked only to classify team changes and is never
// diffed as a field of its own.
type TicketSnapshot struct {
	Status          domain.TicketStatus
	Priority        *string
	Team            *string
	Agent           *uuid.UUID
	EscalationCount int
}

// FieldChange is one audited field transition.
type FieldChange struct {
	Field string
	From  string
	To    string
}

// AuditService writes System and Escalation entries into the
// conversation log. Audit failures are logged and swallowed; a lost
// trail entry must never fail the state change that produced it.
type AuditService struct {
	comms  repository.CommunicationRepository
	agents repository.AgentRepository
	logger *zap.Logger
	bot    string
}

// AuditDependencies bundles collaborators for audit service.
type AuditDependencies struct {
	CommunicationRepo repository.CommunicationRepository
	AgentRepo         repository.AgentRepository
	Logger            *zap.Logger
	BotName           string
}

// NewAuditService creates an audit service.
func NewAuditService(deps AuditDependencies) *AuditService {
	return &AuditService{
		comms:  deps.CommunicationRepo,
		agents: deps.AgentRepo,
		logger: deps.Logger,
		bot:    deps.BotName,
	}
}

// Snapshot captures the audited fields of a ticket.
func Snapshot(t *domain.Ticket) TicketSnapshot {
	return TicketSnapshot{
		Status:          t.Status,
		Priority:        t.Priority,
		Team:            t.Team,
		Agent:           t.Agent,
		EscalationCount: t.EscalationCount,
	}
}

// DiffSnapshots returns the field transitions between two snapshots, in
// a fixed field order. Only the directly managed fields are audited;
// derived SLA state (agreement status, deadlines, hold time) follows
// from them and is not diffed.
func DiffSnapshots(old, new TicketSnapshot) []FieldChange {
	var changes []FieldChange
	appendChange := func(field, from, to string) {
		if from != to {
			changes = append(changes, FieldChange{Field: field, From: from, To: to})
		}
	}
	appendChange("status", string(old.Status), string(new.Status))
	appendChange("priority", strOrNone(old.Priority), strOrNone(new.Priority))
	appendChange("team", strOrNone(old.Team), strOrNone(new.Team))
	appendChange("agent", uuidOrNone(old.Agent), uuidOrNone(new.Agent))
	return changes
}

// Record writes one trail entry per changed field. A team change paired
// with an escalation count increase is written as an Escalation entry
// instead of a System one.
func (s *AuditService) Record(ctx context.Context, ticketCode string, old, new TicketSnapshot, actor Actor) {
	changes := DiffSnapshots(old, new)
	if len(changes) == 0 {
		return
	}
	name := resolveActorName(ctx, s.agents, actor, s.bot)
	escalated := new.EscalationCount > old.EscalationCount

	for _, change := range changes {
		direction := domain.DirectionSystem
		body := fmt.Sprintf("%s changed %s from %s to %s", name, change.Field, change.From, change.To)
		if change.Field == "team" && escalated {
			direction = domain.DirectionEscalation
			body = fmt.Sprintf("%s escalated ticket from %s to %s", name, change.From, change.To)
		}
		eventType := strings.ReplaceAll(change.Field, " ", "_") + "_changed"
		comm := &domain.Communication{
			TicketCode: ticketCode,
			Body:       body,
			Direction:  direction,
			Channel:    "System",
			RaisedBy:   name,
			Sender:     actor.ID,
			EventType:  &eventType,
		}
		if err := s.comms.Create(ctx, comm); err != nil {
			s.logger.Warn("audit entry dropped",
				zap.String("ticket", ticketCode),
				zap.String("field", change.Field),
				zap.Error(err),
			)
		}
	}
}

func strOrNone(s *string) string {
	if s == nil || *s == "" {
		return "none"
	}
	return *s
}

func uuidOrNone(id *uuid.UUID) string {
	if id == nil {
		return "none"
	}
	return id.String()
}

