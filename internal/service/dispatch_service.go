package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/events"
	"github.com/quilldesk/helpdesk/internal/mail"
	"github.com/quilldesk/helpdesk/internal/repository"
)

// DispatchService delivers outbound replies over the ticket's channel.
// It subscribes to reply events so senders never wait on the mail
// transport; delivery failures are logged and retried on the next
// outbound reply through the rebuilt reference chain.
type DispatchService struct {
	tickets   repository.TicketRepository
	comms     repository.CommunicationRepository
	customers repository.CustomerRepository
	mailer    mail.Mailer
	logger    *zap.Logger
}

// DispatchDependencies bundles collaborators for dispatch service.
type DispatchDependencies struct {
	TicketRepo        repository.TicketRepository
	CommunicationRepo repository.CommunicationRepository
	CustomerRepo      repository.CustomerRepository
	Mailer            mail.Mailer
	Logger            *zap.Logger
}

// NewDispatchService creates a dispatch service.
func NewDispatchService(deps DispatchDependencies) *DispatchService {
	return &DispatchService{
		tickets:   deps.TicketRepo,
		comms:     deps.CommunicationRepo,
		customers: deps.CustomerRepo,
		mailer:    deps.Mailer,
		logger:    deps.Logger,
	}
}

// Register subscribes the service to reply events.
func (s *DispatchService) Register(dispatcher events.Dispatcher) {
	dispatcher.Subscribe(events.EventTicketReplied, s.handleReplied)
}

func (s *DispatchService) handleReplied(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TicketRepliedPayload)
	if !ok || payload.Direction != domain.DirectionOutbound {
		return nil
	}
	if s.mailer == nil {
		s.logger.Warn("outbound dispatch skipped, no mailer configured",
			zap.String("ticket", event.TicketCode))
		return nil
	}
	return s.Dispatch(ctx, event.TicketCode, payload.CommunicationID)
}

// Dispatch sends one outbound communication on the ticket's thread and
// records the transport-assigned message id back on the entry.
func (s *DispatchService) Dispatch(ctx context.Context, ticketCode string, communicationID int64) error {
	ticket, err := s.tickets.GetByCode(ctx, ticketCode)
	if err != nil {
		return err
	}
	if ticket.Channel != "Email" {
		s.logger.Debug("outbound dispatch skipped, unsupported channel",
			zap.String("ticket", ticketCode), zap.String("channel", ticket.Channel))
		return nil
	}

	comm, err := s.comms.LatestOutbound(ctx, ticketCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if comm.ID != communicationID {
		s.logger.Debug("outbound dispatch superseded",
			zap.String("ticket", ticketCode), zap.Int64("communication", communicationID))
		return nil
	}

	recipient, err := s.recipientFor(ctx, ticket)
	if err != nil {
		return err
	}
	if recipient == "" {
		s.logger.Warn("outbound dispatch skipped, no recipient address",
			zap.String("ticket", ticketCode))
		return nil
	}

	references, replyTo := s.threadHeaders(ctx, ticket)
	msg := mail.OutboundMessage{
		Recipient:   recipient,
		Subject:     fmt.Sprintf("Re: %s [%s]", ticket.Subject, ticket.Code),
		Body:        comm.Body,
		ReplyTo:     replyTo,
		References:  references,
		Attachments: comm.Attachments,
	}
	messageID, err := s.mailer.Send(ctx, msg)
	if err != nil {
		s.logger.Error("outbound dispatch failed",
			zap.String("ticket", ticketCode),
			zap.Int64("communication", comm.ID),
			zap.Error(err),
		)
		return err
	}
	if messageID != "" {
		if err := s.comms.SetMessageID(ctx, comm.ID, messageID); err != nil {
			s.logger.Warn("record outbound message id",
				zap.String("ticket", ticketCode), zap.Error(err))
		}
	}
	s.logger.Info("outbound reply dispatched",
		zap.String("ticket", ticketCode),
		zap.Int64("communication", comm.ID),
	)
	return nil
}

// threadHeaders rebuilds the mail threading chain: reply to the newest
// inbound message, reference the whole inbound history plus the thread
// opener.
func (s *DispatchService) threadHeaders(ctx context.Context, ticket *domain.Ticket) ([]string, string) {
	var references []string
	if ticket.ExternalThreadID != nil {
		references = append(references, *ticket.ExternalThreadID)
	}
	inbound, err := s.comms.ListInboundMessageIDs(ctx, ticket.Code)
	if err != nil {
		s.logger.Warn("rebuild reference chain", zap.String("ticket", ticket.Code), zap.Error(err))
		return references, orEmpty(ticket.ExternalThreadID)
	}
	// inbound ids arrive newest first; references run oldest to newest
	for i := len(inbound) - 1; i >= 0; i-- {
		if ticket.ExternalThreadID == nil || inbound[i] != *ticket.ExternalThreadID {
			references = append(references, inbound[i])
		}
	}
	replyTo := orEmpty(ticket.ExternalThreadID)
	if len(inbound) > 0 {
		replyTo = inbound[0]
	}
	return references, replyTo
}

func (s *DispatchService) recipientFor(ctx context.Context, ticket *domain.Ticket) (string, error) {
	if ticket.Customer == nil {
		return "", nil
	}
	customer, err := s.customers.GetByName(ctx, *ticket.Customer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return orEmpty(customer.Email), nil
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
