package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/quilldesk/helpdesk/internal/api/dto"
	"github.com/quilldesk/helpdesk/internal/service"
	apperrors "github.com/quilldesk/helpdesk/pkg/util/errorutil"
)

// AuthHandler manages agent authentication endpoints.
type AuthHandler struct {
	auth *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.LoginResponse{
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
		Agent: dto.AgentResponse{
			ID:       result.Agent.ID,
			Email:    result.Agent.Email,
			FullName: result.Agent.FullName,
			Roles:    result.Roles,
		},
	}})
}

// CreateAgent POST /agents. Manager only.
func (h *AuthHandler) CreateAgent(c *fiber.Ctx) error {
	var req dto.CreateAgentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	agent, err := h.auth.CreateAgent(c.UserContext(), service.AgentCreateInput{
		Email:    req.Email,
		FullName: req.FullName,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.AgentResponse{
		ID:       agent.ID,
		Email:    agent.Email,
		FullName: agent.FullName,
		Roles:    req.Roles,
	}})
}
