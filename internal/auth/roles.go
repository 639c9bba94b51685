package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/quilldesk/helpdesk/internal/domain"
	apperrors "github.com/quilldesk/helpdesk/pkg/util/errorutil"
)

// RequireAgent ensures an agent is authenticated.
func RequireAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}

// RequireRole ensures the agent holds one of the allowed roles.
func RequireRole(allowed ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if len(allowed) == 0 {
			return c.Next()
		}
		for _, role := range allowed {
			if principal.HasRole(role) {
				return c.Next()
			}
		}
		return apperrors.NewForbidden("insufficient role")
	}
}

// RequireManager restricts a route to managers.
func RequireManager() fiber.Handler {
	return RequireRole(domain.RoleManager)
}
