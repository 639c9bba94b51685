package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilldesk/helpdesk/internal/auth"
	"github.com/quilldesk/helpdesk/internal/domain"
	apperrors "github.com/quilldesk/helpdesk/pkg/util/errorutil"
)

func authFixture(t *testing.T) (*AuthService, *fakeAgentRepo) {
	t.Helper()
	agents := newFakeAgentRepo()
	svc := NewAuthService(AuthDependencies{
		AgentRepo:  agents,
		Tokens:     auth.NewTokenManager("test-secret", 60),
		BcryptCost: 4,
	})
	return svc, agents
}

func TestCreateAgentAndLogin(t *testing.T) {
	svc, _ := authFixture(t)

	agent, err := svc.CreateAgent(context.Background(), AgentCreateInput{
		Email:    "dana@example.com",
		FullName: "Dana Reyes",
		Password: "correct horse",
		Roles:    []string{domain.RoleManager},
	})
	require.NoError(t, err)
	assert.Empty(t, agent.PasswordHash)

	result, err := svc.Login(context.Background(), "dana@example.com", "correct horse")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, agent.ID, result.Agent.ID)
	assert.Contains(t, result.Roles, domain.RoleManager)
	assert.Empty(t, result.Agent.PasswordHash)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.CreateAgent(context.Background(), AgentCreateInput{
		Email:    "dana@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "dana@example.com", "wrong horse")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
}

func TestLoginUnknownAgent(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Login(context.Background(), "nobody@example.com", "whatever")
	require.Error(t, err)
	assert.Equal(t, "UNAUTHORIZED", apperrors.ToDomainError(err).Code)
}

func TestCreateAgentValidation(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.CreateAgent(context.Background(), AgentCreateInput{
		Email:    "not-an-email",
		Password: "long enough",
	})
	require.Error(t, err)

	_, err = svc.CreateAgent(context.Background(), AgentCreateInput{
		Email:    "dana@example.com",
		Password: "short",
	})
	require.Error(t, err)
}

func TestCreateAgentDuplicateEmail(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.CreateAgent(context.Background(), AgentCreateInput{
		Email:    "dana@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.CreateAgent(context.Background(), AgentCreateInput{
		Email:    "dana@example.com",
		Password: "another horse",
	})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperrors.ToDomainError(err).Code)
}
