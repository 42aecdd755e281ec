package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/messengerflow/inbox-service/internal/domain"
)

// RequireAgent ensures the caller is an authenticated agent of any role.
func RequireAgent() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return fiber.NewError(http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		}
		return c.Next()
	}
}

// RequireAdmin ensures the caller holds the super-admin role.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Role != domain.AgentRoleSuperAdmin {
			return fiber.NewError(http.StatusForbidden, "super-admin role required")
		}
		return c.Next()
	}
}
