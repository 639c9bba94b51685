package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/events"
	"github.com/quilldesk/helpdesk/internal/observability"
	"github.com/quilldesk/helpdesk/internal/repository"
	apperrors "github.com/quilldesk/helpdesk/pkg/util/errorutil"
)

// TicketService coordinates ticket workflows: creation with code
// generation and assignment, merged updates with a single persist, and
// conversation replies with first-response stamping.
type TicketService struct {
	tickets    repository.TicketRepository
	comms      repository.CommunicationRepository
	customers  repository.CustomerRepository
	handles    repository.HandleRepository
	settings   repository.SettingsRepository
	teams      repository.TeamRepository
	priorities repository.PriorityRepository
	rotation   *RotationService
	sla        *SLAService
	hold       *HoldService
	audit      *AuditService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	botName    string
	channel    string
}

// TicketDependencies bundles collaborators for ticket service.
type TicketDependencies struct {
	TicketRepo        repository.TicketRepository
	CommunicationRepo repository.CommunicationRepository
	CustomerRepo      repository.CustomerRepository
	HandleRepo        repository.HandleRepository
	SettingsRepo      repository.SettingsRepository
	TeamRepo          repository.TeamRepository
	PriorityRepo      repository.PriorityRepository
	Rotation          *RotationService
	SLA               *SLAService
	Hold              *HoldService
	Audit             *AuditService
	Dispatcher        events.Dispatcher
	Metrics           *observability.Metrics
	Logger            *zap.Logger
	BotName           string
	DefaultChannel    string
}

// NewTicketService creates a ticket service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:    deps.TicketRepo,
		comms:      deps.CommunicationRepo,
		customers:  deps.CustomerRepo,
		handles:    deps.HandleRepo,
		settings:   deps.SettingsRepo,
		teams:      deps.TeamRepo,
		priorities: deps.PriorityRepo,
		rotation:   deps.Rotation,
		sla:        deps.SLA,
		hold:       deps.Hold,
		audit:      deps.Audit,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		botName:    deps.BotName,
		channel:    deps.DefaultChannel,
	}
}

// TicketCreateInput describes ticket creation payload. SenderHandle is
// the channel address (email, phone) used to resolve or register the
// customer when CustomerName is absent.
type TicketCreateInput struct {
	Subject          string
	Description      string
	RaisedBy         string
	Channel          string
	Owner            string
	CustomerName     *string
	SenderHandle     string
	SenderFullName   string
	Priority         *string
	Team             *string
	ExternalThreadID *string
	MessageID        *string
	RawHeaders       map[string]string
	Attachments      map[string]string
}

// TicketUpdateInput carries the fields an update may change. Nil means
// leave untouched.
type TicketUpdateInput struct {
	Status   *domain.TicketStatus
	Priority *string
	Team     *string
	Agent    *uuid.UUID
	Owner    *string
}

// ReplyInput describes one conversation entry to append.
type ReplyInput struct {
	Body        string
	Direction   domain.Direction
	RaisedBy    string
	Sender      *uuid.UUID
	IsBot       bool
	MessageID   *string
	RawHeaders  map[string]string
	Attachments map[string]string
}

// Create registers a ticket: resolves the customer, mints the daily
// sequential code, assigns an agent by rotation when a team is known,
// derives SLA deadlines, and records the opening inbound entry.
func (s *TicketService) Create(ctx context.Context, input TicketCreateInput) (*domain.Ticket, error) {
	if strings.TrimSpace(input.Subject) == "" {
		return nil, apperrors.NewValidationError("subject is required", nil)
	}
	if input.Channel == "" {
		input.Channel = s.channel
	}

	customerName, err := s.resolveCustomer(ctx, input)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	code, err := s.mintTicketCode(ctx, now)
	if err != nil {
		return nil, err
	}

	ticket := &domain.Ticket{
		Code:             code,
		Subject:          input.Subject,
		Description:      input.Description,
		RaisedBy:         input.RaisedBy,
		Channel:          input.Channel,
		Owner:            input.Owner,
		Status:           domain.TicketStatusOpen,
		Customer:         customerName,
		ExternalThreadID: input.ExternalThreadID,
		CreatedAt:        now,
	}

	if input.Team != nil {
		if _, err := s.teams.GetByName(ctx, *input.Team); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("team", map[string]any{"team": *input.Team})
			}
			return nil, apperrors.MapError(err)
		}
		ticket.Team = input.Team
		agent, err := s.rotation.Next(ctx, *input.Team)
		if err != nil {
			return nil, err
		}
		ticket.Agent = agent
	}

	if input.Priority != nil {
		if _, err := s.priorities.GetByName(ctx, *input.Priority); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("priority", map[string]any{"priority": *input.Priority})
			}
			return nil, apperrors.MapError(err)
		}
		ticket.Priority = input.Priority
		result, err := s.sla.Resolve(ctx, *input.Priority, now, 0)
		if err != nil {
			return nil, err
		}
		ticket.ResponseBy = result.ResponseBy
		ticket.ResolutionBy = result.ResolutionBy
		ticket.AgreementStatus = result.AgreementStatus
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	opening := &domain.Communication{
		TicketCode:  ticket.Code,
		Body:        input.Description,
		Direction:   domain.DirectionInbound,
		Channel:     ticket.Channel,
		RaisedBy:    input.RaisedBy,
		MessageID:   input.MessageID,
		RawHeaders:  input.RawHeaders,
		Attachments: input.Attachments,
	}
	if err := s.comms.Create(ctx, opening); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.metrics.RecordTicketCreated()
	s.publish(ctx, events.EventTicketCreated, ticket.Code, events.TicketCreatedPayload{
		Subject:  ticket.Subject,
		Channel:  ticket.Channel,
		Priority: ticket.Priority,
		Team:     ticket.Team,
	})
	return ticket, nil
}

// Get loads one ticket by code.
func (s *TicketService) Get(ctx context.Context, code string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"code": code})
		}
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// List returns tickets matching the filter.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	tickets, err := s.tickets.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// Conversation returns the full conversation log, oldest first.
func (s *TicketService) Conversation(ctx context.Context, code string) ([]domain.Communication, error) {
	if _, err := s.Get(ctx, code); err != nil {
		return nil, err
	}
	comms, err := s.comms.ListByTicket(ctx, code)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return comms, nil
}

// Update applies the requested changes in memory, recomputes derived
// SLA and hold state, persists once, and writes the audit trail from
// the before/after snapshots.
func (s *TicketService) Update(ctx context.Context, code string, input TicketUpdateInput, actor Actor) (*domain.Ticket, error) {
	ticket, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if ticket.IsMerged {
		return nil, apperrors.NewConflict("ticket is merged", map[string]any{"merged_with": ticket.MergedWith})
	}
	before := Snapshot(ticket)
	now := time.Now().UTC()

	if input.Team != nil && !sameStrPtr(input.Team, ticket.Team) {
		if err := s.applyTeamChange(ctx, ticket, *input.Team, input.Agent == nil); err != nil {
			return nil, err
		}
	}
	if input.Priority != nil && !sameStrPtr(input.Priority, ticket.Priority) {
		if _, err := s.priorities.GetByName(ctx, *input.Priority); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("priority", map[string]any{"priority": *input.Priority})
			}
			return nil, apperrors.MapError(err)
		}
		ticket.Priority = input.Priority
		result, err := s.sla.Resolve(ctx, *input.Priority, ticket.CreatedAt, ticket.TotalHoldTime)
		if err != nil {
			return nil, err
		}
		applySLAResult(ticket, result, now)
	}
	if input.Status != nil && *input.Status != ticket.Status {
		if err := s.applyStatusChange(ctx, ticket, *input.Status, now, actor); err != nil {
			return nil, err
		}
	}
	if input.Agent != nil && !sameUUIDPtr(input.Agent, ticket.Agent) {
		ticket.Agent = input.Agent
		s.syncRotationPointer(ctx, ticket)
	}
	if input.Owner != nil {
		ticket.Owner = *input.Owner
	}

	ticket.UpdatedAt = now
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.audit.Record(ctx, ticket.Code, before, Snapshot(ticket), actor)
	s.publish(ctx, events.EventTicketUpdated, ticket.Code, nil)
	return ticket, nil
}

// Reply appends a conversation entry and maintains first-response and
// status bookkeeping for human and bot responders.
func (s *TicketService) Reply(ctx context.Context, code string, input ReplyInput) (*domain.Communication, error) {
	if strings.TrimSpace(input.Body) == "" {
		return nil, apperrors.NewValidationError("body is required", nil)
	}
	ticket, err := s.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	before := Snapshot(ticket)

	comm := &domain.Communication{
		TicketCode:  ticket.Code,
		Body:        input.Body,
		Direction:   input.Direction,
		Channel:     ticket.Channel,
		RaisedBy:    input.RaisedBy,
		Sender:      input.Sender,
		MessageID:   input.MessageID,
		RawHeaders:  input.RawHeaders,
		Attachments: input.Attachments,
	}
	if err := s.comms.Create(ctx, comm); err != nil {
		return nil, apperrors.MapError(err)
	}

	changed := false
	switch input.Direction {
	case domain.DirectionOutbound:
		changed = s.stampFirstResponse(ticket, input.IsBot, now)
		if ticket.Status == domain.TicketStatusOpen {
			ticket.Status = domain.TicketStatusReplied
			changed = true
		}
	case domain.DirectionInbound:
		if ticket.Status == domain.TicketStatusReplied {
			ticket.Status = domain.TicketStatusOpen
			changed = true
		}
	}
	if changed {
		ticket.UpdatedAt = now
		if err := s.tickets.Update(ctx, ticket); err != nil {
			return nil, apperrors.MapError(err)
		}
		s.audit.Record(ctx, ticket.Code, before, Snapshot(ticket), Actor{ID: input.Sender, Name: input.RaisedBy})
	}

	s.publish(ctx, events.EventTicketReplied, ticket.Code, events.TicketRepliedPayload{
		CommunicationID: comm.ID,
		Direction:       input.Direction,
		RaisedBy:        input.RaisedBy,
	})
	return comm, nil
}

// stampFirstResponse records the first outbound answer. Human replies
// own first_responded_on; bot replies track their own stamp but still
// settle the agreement when they beat every human to the thread.
func (s *TicketService) stampFirstResponse(ticket *domain.Ticket, isBot bool, now time.Time) bool {
	changed := false
	if isBot {
		if ticket.BotFirstRespondedOn == nil {
			t := now
			ticket.BotFirstRespondedOn = &t
			changed = true
		}
		if ticket.FirstRespondedOn == nil && ticket.FirstResponseTime == nil {
			settleFirstResponseAgreement(ticket, now)
			changed = true
		}
		return changed
	}
	if ticket.FirstRespondedOn != nil {
		return false
	}
	t := now
	ticket.FirstRespondedOn = &t
	elapsed := now.Sub(ticket.CreatedAt) - ticket.TotalHoldTime
	if elapsed < 0 {
		elapsed = 0
	}
	ticket.FirstResponseTime = &elapsed
	settleFirstResponseAgreement(ticket, now)
	return true
}

func (s *TicketService) resolveCustomer(ctx context.Context, input TicketCreateInput) (*string, error) {
	if input.CustomerName != nil {
		customer, err := s.customers.GetByName(ctx, *input.CustomerName)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("customer", map[string]any{"customer": *input.CustomerName})
			}
			return nil, apperrors.MapError(err)
		}
		return &customer.Name, nil
	}
	if input.SenderHandle == "" {
		return nil, nil
	}

	if handle, err := s.handles.FindByChannelHandle(ctx, input.Channel, input.SenderHandle); err == nil {
		return &handle.Customer, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	lookup := s.customers.FindByEmail
	if input.Channel != "Email" {
		lookup = s.customers.FindByPhone
	}
	if customer, err := lookup(ctx, input.SenderHandle); err == nil {
		s.registerHandle(ctx, customer.Name, input.Channel, input.SenderHandle)
		return &customer.Name, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	prefix, seq, err := s.settings.NextCustomerSequence(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	customer := &domain.Customer{Name: fmt.Sprintf("%s-%06d", strings.ToUpper(prefix), seq)}
	if input.SenderFullName != "" {
		customer.FullName = &input.SenderFullName
	}
	if input.Channel == "Email" {
		customer.Email = &input.SenderHandle
	} else {
		customer.Phone = &input.SenderHandle
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.registerHandle(ctx, customer.Name, input.Channel, input.SenderHandle)
	return &customer.Name, nil
}

func (s *TicketService) registerHandle(ctx context.Context, customer, channel, handle string) {
	if _, err := s.handles.Add(ctx, customer, channel, handle); err != nil {
		s.logger.Warn("register customer handle",
			zap.String("customer", customer),
			zap.String("channel", channel),
			zap.Error(err),
		)
	}
}

func (s *TicketService) mintTicketCode(ctx context.Context, now time.Time) (string, error) {
	prefix, seq, err := s.settings.NextTicketSequence(ctx)
	if err != nil {
		return "", apperrors.MapError(err)
	}
	return fmt.Sprintf("%s-%s-%05d", strings.ToUpper(prefix), now.Format("060102"), seq), nil
}

// applyTeamChange moves the ticket to the named team. Rotation picks
// the next agent only when the caller did not assign one explicitly.
func (s *TicketService) applyTeamChange(ctx context.Context, ticket *domain.Ticket, teamName string, assignByRotation bool) error {
	previous, err := currentTeam(ctx, s.teams, ticket.Team)
	if err != nil {
		return err
	}
	if _, err := s.teams.GetByName(ctx, teamName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("team", map[string]any{"team": teamName})
		}
		return apperrors.MapError(err)
	}
	if ticket.OriginalTeam == nil && ticket.Team != nil {
		ticket.OriginalTeam = ticket.Team
	}
	if previous != nil && previous.EscalationTeam != nil && *previous.EscalationTeam == teamName {
		ticket.EscalationCount++
	}
	name := teamName
	ticket.Team = &name
	if assignByRotation {
		agent, err := s.rotation.Next(ctx, teamName)
		if err != nil {
			return err
		}
		ticket.Agent = agent
	}
	return nil
}

// syncRotationPointer keeps the round-robin pointer aligned on manual
// assignment, best effort only.
func (s *TicketService) syncRotationPointer(ctx context.Context, ticket *domain.Ticket) {
	if ticket.Team == nil || ticket.Agent == nil {
		return
	}
	team, err := s.teams.GetByName(ctx, *ticket.Team)
	if err != nil {
		return
	}
	if _, err := s.teams.CompareAndSetLastAgent(ctx, team.Name, team.LastAgent, ticket.Agent); err != nil {
		s.logger.Debug("rotation pointer sync skipped", zap.String("team", team.Name), zap.Error(err))
	}
}

func currentTeam(ctx context.Context, teams repository.TeamRepository, name *string) (*domain.Team, error) {
	if name == nil {
		return nil, nil
	}
	team, err := teams.GetByName(ctx, *name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.MapError(err)
	}
	return team, nil
}

func (s *TicketService) publish(ctx context.Context, eventType events.EventType, code string, payload any) {
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		TicketCode: code,
		Timestamp:  time.Now().UTC(),
		Payload:    payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("event", string(eventType)), zap.Error(err))
	}
}

func sameStrPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameUUIDPtr(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
