package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/quilldesk/helpdesk/internal/api/dto"
	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/interval"
	"github.com/quilldesk/helpdesk/internal/repository"
	apperrors "github.com/quilldesk/helpdesk/pkg/util/errorutil"
)

// ManagementHandler exposes the routing catalogs: teams and rosters,
// priorities, SLAs, customers and their handles, knowledge base, and
// system settings.
type ManagementHandler struct {
	teams       repository.TeamRepository
	memberships repository.MembershipRepository
	priorities  repository.PriorityRepository
	slas        repository.SLARepository
	customers   repository.CustomerRepository
	handles     repository.HandleRepository
	kb          repository.KBRepository
	settings    repository.SettingsRepository
	agents      repository.AgentRepository
}

// ManagementDependencies bundles repositories for the handler.
type ManagementDependencies struct {
	TeamRepo       repository.TeamRepository
	MembershipRepo repository.MembershipRepository
	PriorityRepo   repository.PriorityRepository
	SLARepo        repository.SLARepository
	CustomerRepo   repository.CustomerRepository
	HandleRepo     repository.HandleRepository
	KBRepo         repository.KBRepository
	SettingsRepo   repository.SettingsRepository
	AgentRepo      repository.AgentRepository
}

// NewManagementHandler constructs handler.
func NewManagementHandler(deps ManagementDependencies) *ManagementHandler {
	return &ManagementHandler{
		teams:       deps.TeamRepo,
		memberships: deps.MembershipRepo,
		priorities:  deps.PriorityRepo,
		slas:        deps.SLARepo,
		customers:   deps.CustomerRepo,
		handles:     deps.HandleRepo,
		kb:          deps.KBRepo,
		settings:    deps.SettingsRepo,
		agents:      deps.AgentRepo,
	}
}

// ListTeams GET /teams.
func (h *ManagementHandler) ListTeams(c *fiber.Ctx) error {
	teams, err := h.teams.List(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.TeamResponse, 0, len(teams))
	for _, team := range teams {
		items = append(items, dto.TeamResponse{
			Name:           team.Name,
			Description:    team.Description,
			EscalationTeam: team.EscalationTeam,
			LastAgent:      team.LastAgent,
		})
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTeam GET /teams/:name.
func (h *ManagementHandler) GetTeam(c *fiber.Ctx) error {
	name := c.Params("name")
	team, err := h.teams.GetByName(c.UserContext(), name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("team", map[string]any{"team": name})
		}
		return apperrors.MapError(err)
	}
	members, err := h.memberships.ListByTeam(c.UserContext(), name)
	if err != nil {
		return apperrors.MapError(err)
	}
	resp := dto.TeamResponse{
		Name:           team.Name,
		Description:    team.Description,
		EscalationTeam: team.EscalationTeam,
		LastAgent:      team.LastAgent,
	}
	for _, m := range members {
		resp.Members = append(resp.Members, m.Agent)
	}
	return c.JSON(fiber.Map{"data": resp})
}

// CreateTeam POST /teams.
func (h *ManagementHandler) CreateTeam(c *fiber.Ctx) error {
	var req dto.TeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	team := &domain.Team{Name: req.Name, Description: req.Description, EscalationTeam: req.EscalationTeam}
	if err := h.teams.Create(c.UserContext(), team); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.TeamResponse{
		Name:           team.Name,
		Description:    team.Description,
		EscalationTeam: team.EscalationTeam,
	}})
}

// UpdateTeam PUT /teams/:name.
func (h *ManagementHandler) UpdateTeam(c *fiber.Ctx) error {
	var req dto.TeamRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	name := c.Params("name")
	team, err := h.teams.GetByName(c.UserContext(), name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("team", map[string]any{"team": name})
		}
		return apperrors.MapError(err)
	}
	team.Description = req.Description
	team.EscalationTeam = req.EscalationTeam
	if err := h.teams.Update(c.UserContext(), team); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": dto.TeamResponse{
		Name:           team.Name,
		Description:    team.Description,
		EscalationTeam: team.EscalationTeam,
		LastAgent:      team.LastAgent,
	}})
}

// DeleteTeam DELETE /teams/:name.
func (h *ManagementHandler) DeleteTeam(c *fiber.Ctx) error {
	if err := h.teams.Delete(c.UserContext(), c.Params("name")); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// AddMember POST /teams/:name/members.
func (h *ManagementHandler) AddMember(c *fiber.Ctx) error {
	var req dto.MemberRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	name := c.Params("name")
	if _, err := h.teams.GetByName(c.UserContext(), name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("team", map[string]any{"team": name})
		}
		return apperrors.MapError(err)
	}
	if _, err := h.agents.GetByID(c.UserContext(), req.Agent); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("agent", map[string]any{"agent": req.Agent})
		}
		return apperrors.MapError(err)
	}
	membership, err := h.memberships.Add(c.UserContext(), name, req.Agent)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": fiber.Map{
		"team":  membership.Team,
		"agent": membership.Agent,
	}})
}

// RemoveMember DELETE /teams/:name/members/:agent.
func (h *ManagementHandler) RemoveMember(c *fiber.Ctx) error {
	agentID, err := uuid.Parse(c.Params("agent"))
	if err != nil {
		return apperrors.NewValidationError("invalid agent id", nil)
	}
	if err := h.memberships.Remove(c.UserContext(), c.Params("name"), agentID); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListAgents GET /agents.
func (h *ManagementHandler) ListAgents(c *fiber.Ctx) error {
	agents, err := h.agents.List(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.AgentResponse, 0, len(agents))
	for _, agent := range agents {
		items = append(items, dto.AgentResponse{ID: agent.ID, Email: agent.Email, FullName: agent.FullName})
	}
	return c.JSON(fiber.Map{"data": items})
}

// ListPriorities GET /priorities.
func (h *ManagementHandler) ListPriorities(c *fiber.Ctx) error {
	priorities, err := h.priorities.List(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": priorities})
}

// CreatePriority POST /priorities.
func (h *ManagementHandler) CreatePriority(c *fiber.Ctx) error {
	var req dto.PriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" {
		return apperrors.NewValidationError("name required", nil)
	}
	priority := &domain.Priority{Name: req.Name, Description: req.Description, ColorCode: req.ColorCode, SortOrder: req.SortOrder}
	if err := h.priorities.Create(c.UserContext(), priority); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": priority})
}

// UpdatePriority PUT /priorities/:name.
func (h *ManagementHandler) UpdatePriority(c *fiber.Ctx) error {
	var req dto.PriorityRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	priority := &domain.Priority{Name: c.Params("name"), Description: req.Description, ColorCode: req.ColorCode, SortOrder: req.SortOrder}
	if err := h.priorities.Update(c.UserContext(), priority); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": priority})
}

// DeletePriority DELETE /priorities/:name.
func (h *ManagementHandler) DeletePriority(c *fiber.Ctx) error {
	if err := h.priorities.Delete(c.UserContext(), c.Params("name")); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListSLAs GET /slas.
func (h *ManagementHandler) ListSLAs(c *fiber.Ctx) error {
	slas, err := h.slas.List(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	items := make([]dto.SLAResponse, 0, len(slas))
	for i := range slas {
		items = append(items, slaResponse(&slas[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateSLA POST /slas.
func (h *ManagementHandler) CreateSLA(c *fiber.Ctx) error {
	sla, err := h.parseSLA(c, "")
	if err != nil {
		return err
	}
	if err := h.slas.Create(c.UserContext(), sla); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": slaResponse(sla)})
}

// UpdateSLA PUT /slas/:name.
func (h *ManagementHandler) UpdateSLA(c *fiber.Ctx) error {
	sla, err := h.parseSLA(c, c.Params("name"))
	if err != nil {
		return err
	}
	if err := h.slas.Update(c.UserContext(), sla); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": slaResponse(sla)})
}

// DeleteSLA DELETE /slas/:name.
func (h *ManagementHandler) DeleteSLA(c *fiber.Ctx) error {
	if err := h.slas.Delete(c.UserContext(), c.Params("name")); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *ManagementHandler) parseSLA(c *fiber.Ctx, name string) (*domain.SLA, error) {
	var req dto.SLARequest
	if err := c.BodyParser(&req); err != nil {
		return nil, apperrors.NewValidationError("invalid payload", nil)
	}
	if name != "" {
		req.Name = name
	}
	if req.Name == "" || req.Priority == "" {
		return nil, apperrors.NewValidationError("name and priority required", nil)
	}
	if req.FirstResponseTime == nil && req.ResolutionTime == nil {
		return nil, apperrors.NewValidationError("at least one duration required", nil)
	}
	if _, err := h.priorities.GetByName(c.UserContext(), req.Priority); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("priority", map[string]any{"priority": req.Priority})
		}
		return nil, apperrors.MapError(err)
	}

	sla := &domain.SLA{Name: req.Name, Priority: req.Priority, Description: req.Description}
	var err error
	if sla.FirstResponseTime, err = parseIntervalField("first_response_time", req.FirstResponseTime); err != nil {
		return nil, err
	}
	if sla.ResolutionTime, err = parseIntervalField("resolution_time", req.ResolutionTime); err != nil {
		return nil, err
	}
	return sla, nil
}

// ListCustomers GET /customers.
func (h *ManagementHandler) ListCustomers(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	size, _ := strconv.Atoi(c.Query("page_size", "50"))
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 200 {
		size = 50
	}
	customers, err := h.customers.List(c.UserContext(), size, (page-1)*size)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": customers})
}

// GetCustomer GET /customers/:name.
func (h *ManagementHandler) GetCustomer(c *fiber.Ctx) error {
	name := c.Params("name")
	customer, err := h.customers.GetByName(c.UserContext(), name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("customer", map[string]any{"customer": name})
		}
		return apperrors.MapError(err)
	}
	handles, err := h.handles.ListByCustomer(c.UserContext(), name)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"customer": customer, "handles": handles}})
}

// CreateCustomer POST /customers.
func (h *ManagementHandler) CreateCustomer(c *fiber.Ctx) error {
	var req dto.CustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	prefix, seq, err := h.settings.NextCustomerSequence(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	customer := &domain.Customer{
		Name:         fmt.Sprintf("%s-%06d", strings.ToUpper(prefix), seq),
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		Organization: req.Organization,
	}
	if err := h.customers.Create(c.UserContext(), customer); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": customer})
}

// UpdateCustomer PUT /customers/:name.
func (h *ManagementHandler) UpdateCustomer(c *fiber.Ctx) error {
	var req dto.CustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	name := c.Params("name")
	customer, err := h.customers.GetByName(c.UserContext(), name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("customer", map[string]any{"customer": name})
		}
		return apperrors.MapError(err)
	}
	customer.FullName = req.FullName
	customer.Email = req.Email
	customer.Phone = req.Phone
	customer.Organization = req.Organization
	if err := h.customers.Update(c.UserContext(), customer); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": customer})
}

// AddHandle POST /customers/:name/handles.
func (h *ManagementHandler) AddHandle(c *fiber.Ctx) error {
	var req dto.HandleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Channel == "" || req.Handle == "" {
		return apperrors.NewValidationError("channel and handle required", nil)
	}
	handle, err := h.handles.Add(c.UserContext(), c.Params("name"), req.Channel, req.Handle)
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": handle})
}

// RemoveHandle DELETE /customers/:name/handles/:id.
func (h *ManagementHandler) RemoveHandle(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid handle id", nil)
	}
	if err := h.handles.Remove(c.UserContext(), id); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListArticles GET /kb.
func (h *ManagementHandler) ListArticles(c *fiber.Ctx) error {
	articles, err := h.kb.List(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": articles})
}

// CreateArticle POST /kb.
func (h *ManagementHandler) CreateArticle(c *fiber.Ctx) error {
	var req dto.KBArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Title == "" || req.Content == "" {
		return apperrors.NewValidationError("title and content required", nil)
	}
	article := &domain.KBArticle{Title: req.Title, Content: req.Content, Category: req.Category, IsPublic: req.IsPublic}
	if err := h.kb.Create(c.UserContext(), article); err != nil {
		return apperrors.MapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": article})
}

// UpdateArticle PUT /kb/:id.
func (h *ManagementHandler) UpdateArticle(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid article id", nil)
	}
	var req dto.KBArticleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	article := &domain.KBArticle{ID: id, Title: req.Title, Content: req.Content, Category: req.Category, IsPublic: req.IsPublic}
	if err := h.kb.Update(c.UserContext(), article); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("article", map[string]any{"id": id})
		}
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": article})
}

// DeleteArticle DELETE /kb/:id.
func (h *ManagementHandler) DeleteArticle(c *fiber.Ctx) error {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("invalid article id", nil)
	}
	if err := h.kb.Delete(c.UserContext(), id); err != nil {
		return apperrors.MapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetSettings GET /settings.
func (h *ManagementHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.settings.Get(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": settingsResponse(settings)})
}

// UpdateSettings PUT /settings.
func (h *ManagementHandler) UpdateSettings(c *fiber.Ctx) error {
	var req dto.SettingsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	settings, err := h.settings.Get(c.UserContext())
	if err != nil {
		return apperrors.MapError(err)
	}
	if req.TicketPrefix != nil && *req.TicketPrefix != "" {
		settings.TicketPrefix = *req.TicketPrefix
	}
	if req.CustomerPrefix != nil && *req.CustomerPrefix != "" {
		settings.CustomerPrefix = *req.CustomerPrefix
	}
	if req.AdminTeam != nil {
		settings.AdminTeam = req.AdminTeam
	}
	if err := h.settings.Update(c.UserContext(), settings); err != nil {
		return apperrors.MapError(err)
	}
	return c.JSON(fiber.Map{"data": settingsResponse(settings)})
}

func slaResponse(sla *domain.SLA) dto.SLAResponse {
	resp := dto.SLAResponse{Name: sla.Name, Priority: sla.Priority, Description: sla.Description}
	if sla.FirstResponseTime != nil {
		formatted := interval.Format(*sla.FirstResponseTime)
		resp.FirstResponseTime = &formatted
	}
	if sla.ResolutionTime != nil {
		formatted := interval.Format(*sla.ResolutionTime)
		resp.ResolutionTime = &formatted
	}
	return resp
}

func settingsResponse(s *domain.SystemSettings) dto.SettingsResponse {
	return dto.SettingsResponse{
		TicketPrefix:         s.TicketPrefix,
		CurrentCount:         s.CurrentCount,
		CustomerPrefix:       s.CustomerPrefix,
		CurrentCustomerCount: s.CurrentCustomerCount,
		AdminTeam:            s.AdminTeam,
		LastResetDate:        s.LastResetDate,
	}
}

func parseIntervalField(name string, raw *string) (*time.Duration, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	d := interval.Parse(*raw)
	if d <= 0 {
		return nil, apperrors.NewValidationError("invalid interval", map[string]any{name: *raw})
	}
	return &d, nil
}
