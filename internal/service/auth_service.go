package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/quilldesk/helpdesk/internal/auth"
	"github.com/quilldesk/helpdesk/internal/domain"
	"github.com/quilldesk/helpdesk/internal/repository"
	apperrors "github.com/quilldesk/helpdesk/pkg/util/errorutil"
)

// AuthService issues agent tokens and manages agent accounts.
type AuthService struct {
	agents     repository.AgentRepository
	tokens     *auth.TokenManager
	bcryptCost int
}

// AuthDependencies bundles collaborators for auth service.
type AuthDependencies struct {
	AgentRepo  repository.AgentRepository
	Tokens     *auth.TokenManager
	BcryptCost int
}

// NewAuthService creates an auth service.
func NewAuthService(deps AuthDependencies) *AuthService {
	return &AuthService{agents: deps.AgentRepo, tokens: deps.Tokens, bcryptCost: deps.BcryptCost}
}

// LoginResult carries an issued token.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Agent     *domain.Agent
	Roles     []string
}

// Login verifies credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	agent, err := s.agents.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(agent.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	roles, err := s.agents.ListRoles(ctx, agent.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	token, expiresAt, err := s.tokens.GenerateToken(agent.ID, roles)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	agent.PasswordHash = ""
	return &LoginResult{Token: token, ExpiresAt: expiresAt, Agent: agent, Roles: roles}, nil
}

// AgentCreateInput describes an agent account to provision.
type AgentCreateInput struct {
	Email    string
	FullName string
	Password string
	Roles    []string
}

// CreateAgent provisions an agent account with hashed credentials.
func (s *AuthService) CreateAgent(ctx context.Context, input AgentCreateInput) (*domain.Agent, error) {
	input.Email = strings.TrimSpace(input.Email)
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, apperrors.NewValidationError("valid email is required", nil)
	}
	if len(input.Password) < 8 {
		return nil, apperrors.NewValidationError("password must be at least 8 characters", nil)
	}
	if _, err := s.agents.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("agent already exists", map[string]any{"email": input.Email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	agent := &domain.Agent{Email: input.Email, FullName: input.FullName, PasswordHash: hash}
	if err := s.agents.Create(ctx, agent); err != nil {
		return nil, apperrors.MapError(err)
	}
	for _, role := range input.Roles {
		if err := s.agents.GrantRole(ctx, agent.ID, role); err != nil {
			return nil, apperrors.MapError(err)
		}
	}
	agent.PasswordHash = ""
	return agent, nil
}
