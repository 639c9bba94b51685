package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/quilldesk/helpdesk/internal/api/dto"
	"github.com/quilldesk/helpdesk/internal/auth"
	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/interval"
	"github.com/quilldesk/helpdesk/internal/repository"
	"github.com/quilldesk/helpdesk/internal/service"
	apperrors "github.com/quilldesk/helpdesk/pkg/util/errorutil"
)

// TicketsHandler exposes the ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets      *service.TicketService
	hold         *service.HoldService
	orchestrator *service.OrchestratorService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, hold *service.HoldService, orchestrator *service.OrchestratorService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, hold: hold, orchestrator: orchestrator}
}

// Create POST /tickets.
func (h *TicketsHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Subject == "" {
		return apperrors.NewValidationError("subject required", nil)
	}

	input := service.TicketCreateInput{
		Subject:          req.Subject,
		Description:      req.Description,
		RaisedBy:         req.RaisedBy,
		Channel:          req.Channel,
		CustomerName:     req.Customer,
		SenderHandle:     req.SenderHandle,
		SenderFullName:   req.SenderName,
		Priority:         req.Priority,
		Team:             req.Team,
		ExternalThreadID: req.ExternalThreadID,
		MessageID:        req.MessageID,
		Attachments:      req.Attachments,
	}
	if principal, ok := auth.PrincipalFromContext(c); ok {
		input.Owner = principal.Agent.Email
		if input.RaisedBy == "" {
			input.RaisedBy = principal.Agent.FullName
		}
	}
	ticket, err := h.tickets.Create(c.UserContext(), input)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// List GET /tickets.
func (h *TicketsHandler) List(c *fiber.Ctx) error {
	filter := parseTicketQuery(c)
	tickets, err := h.tickets.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /tickets/:code.
func (h *TicketsHandler) Get(c *fiber.Ctx) error {
	code := c.Params("code")
	ticket, err := h.tickets.Get(c.UserContext(), code)
	if err != nil {
		return err
	}
	conversation, err := h.tickets.Conversation(c.UserContext(), code)
	if err != nil {
		return err
	}
	comms := make([]dto.CommunicationResponse, 0, len(conversation))
	for i := range conversation {
		comms = append(comms, communicationResponse(&conversation[i]))
	}
	return c.JSON(fiber.Map{"data": fiber.Map{
		"ticket":       ticketResponse(ticket),
		"conversation": comms,
	}})
}

// Update PUT /tickets/:code.
func (h *TicketsHandler) Update(c *fiber.Ctx) error {
	var req dto.UpdateTicketRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Status != nil && !validStatus(*req.Status) {
		return apperrors.NewValidationError("unknown status", map[string]any{"status": *req.Status})
	}

	ticket, err := h.tickets.Update(c.UserContext(), c.Params("code"), service.TicketUpdateInput{
		Status:   req.Status,
		Priority: req.Priority,
		Team:     req.Team,
		Agent:    req.Agent,
		Owner:    req.Owner,
	}, actorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(ticket)})
}

// Reply POST /tickets/:code/replies.
func (h *TicketsHandler) Reply(c *fiber.Ctx) error {
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	direction := req.Direction
	if direction == "" {
		direction = domain.DirectionOutbound
	}
	if direction != domain.DirectionInbound && direction != domain.DirectionOutbound {
		return apperrors.NewValidationError("direction must be Inbound or Outbound", nil)
	}

	actor := actorFrom(c)
	comm, err := h.tickets.Reply(c.UserContext(), c.Params("code"), service.ReplyInput{
		Body:        req.Body,
		Direction:   direction,
		RaisedBy:    actor.Name,
		Sender:      actor.ID,
		MessageID:   req.MessageID,
		Attachments: req.Attachments,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": communicationResponse(comm)})
}

// AIProcess POST /tickets/:code/ai-process.
func (h *TicketsHandler) AIProcess(c *fiber.Ctx) error {
	if err := h.orchestrator.Process(c.UserContext(), c.Params("code"), domain.DirectionInbound); err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"data": fiber.Map{"status": "processed"}})
}

// Holds GET /tickets/:code/holds.
func (h *TicketsHandler) Holds(c *fiber.Ctx) error {
	code := c.Params("code")
	if _, err := h.tickets.Get(c.UserContext(), code); err != nil {
		return err
	}
	intervals, err := h.hold.History(c.UserContext(), code)
	if err != nil {
		return err
	}
	items := make([]dto.HoldIntervalResponse, 0, len(intervals))
	for _, iv := range intervals {
		item := dto.HoldIntervalResponse{ID: iv.ID, HoldStart: iv.HoldStart, HoldEnd: iv.HoldEnd}
		if iv.Duration != nil {
			formatted := interval.Format(*iv.Duration)
			item.Duration = &formatted
		}
		items = append(items, item)
	}
	return c.JSON(fiber.Map{"data": items})
}

func actorFrom(c *fiber.Ctx) service.Actor {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return service.Actor{}
	}
	id := principal.Agent.ID
	name := principal.Agent.FullName
	if name == "" {
		name = principal.Agent.Email
	}
	return service.Actor{ID: &id, Name: name}
}

func validStatus(s domain.TicketStatus) bool {
	switch s {
	case domain.TicketStatusOpen, domain.TicketStatusReplied, domain.TicketStatusOnHold,
		domain.TicketStatusResolved, domain.TicketStatusClosed:
		return true
	}
	return false
}

func parseTicketQuery(c *fiber.Ctx) repository.TicketFilter {
	filter := repository.TicketFilter{}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			filter.Statuses = append(filter.Statuses, domain.TicketStatus(strings.TrimSpace(s)))
		}
	}
	if raw := c.Query("priority"); raw != "" {
		for _, p := range strings.Split(raw, ",") {
			filter.Priorities = append(filter.Priorities, strings.TrimSpace(p))
		}
	}
	filter.Team = optionalQuery(c, "team")
	filter.Agent = optionalQuery(c, "agent")
	filter.Customer = optionalQuery(c, "customer")
	filter.SearchTerm = optionalQuery(c, "q")
	filter.CreatedFrom = timeQuery(c, "created_from")
	filter.CreatedTo = timeQuery(c, "created_to")

	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 50
	}
	filter.Limit = size
	filter.Offset = (page - 1) * size
	return filter
}

func optionalQuery(c *fiber.Ctx, name string) *string {
	if v := c.Query(name); v != "" {
		return &v
	}
	return nil
}

func timeQuery(c *fiber.Ctx, name string) *time.Time {
	raw := c.Query(name)
	if raw == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	return nil
}

func ticketResponse(t *domain.Ticket) dto.TicketResponse {
	resp := dto.TicketResponse{
		Code:                t.Code,
		Subject:             t.Subject,
		Description:         t.Description,
		RaisedBy:            t.RaisedBy,
		Channel:             t.Channel,
		Owner:               t.Owner,
		Status:              t.Status,
		Priority:            t.Priority,
		Team:                t.Team,
		OriginalTeam:        t.OriginalTeam,
		Agent:               t.Agent,
		Customer:            t.Customer,
		ResponseBy:          t.ResponseBy,
		ResolutionBy:        t.ResolutionBy,
		AgreementStatus:     t.AgreementStatus,
		TotalHoldTime:       interval.Format(t.TotalHoldTime),
		FirstRespondedOn:    t.FirstRespondedOn,
		BotFirstRespondedOn: t.BotFirstRespondedOn,
		ResolutionDate:      t.ResolutionDate,
		ResolvedBy:          t.ResolvedBy,
		ResolvedByBot:       t.ResolvedByBot,
		EscalationCount:     t.EscalationCount,
		ExternalThreadID:    t.ExternalThreadID,
		IsMerged:            t.IsMerged,
		MergedWith:          t.MergedWith,
		CreatedAt:           t.CreatedAt,
		UpdatedAt:           t.UpdatedAt,
	}
	if t.FirstResponseTime != nil {
		formatted := interval.Format(*t.FirstResponseTime)
		resp.FirstResponseTime = &formatted
	}
	return resp
}

func communicationResponse(c *domain.Communication) dto.CommunicationResponse {
	return dto.CommunicationResponse{
		ID:          c.ID,
		Body:        c.Body,
		Direction:   c.Direction,
		Channel:     c.Channel,
		RaisedBy:    c.RaisedBy,
		Sender:      c.Sender,
		MessageID:   c.MessageID,
		EventType:   c.EventType,
		Attachments: c.Attachments,
		CreatedAt:   c.CreatedAt,
	}
}
