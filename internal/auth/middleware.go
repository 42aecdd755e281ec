package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/messengerflow/inbox-service/internal/domain"
	"github.com/messengerflow/inbox-service/internal/session"
	apperrors "github.com/messengerflow/inbox-service/pkg/util"
)

const principalKey = "auth_principal"
const sessionIDKey = "auth_session_id"

// AuthMiddleware validates bearer tokens and loads the session's agent.
type AuthMiddleware struct {
	tokens   *TokenManager
	sessions session.Store
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(tokens *TokenManager, sessions session.Store) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, sessions: sessions}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	agent, err := m.sessions.Get(c.UserContext(), claims.ID)
	if err != nil {
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &agent)
	c.Locals(sessionIDKey, claims.ID)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated agent.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Agent, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	agent, ok := val.(*domain.Agent)
	return agent, ok
}

// SessionIDFromContext retrieves the caller's session id.
func SessionIDFromContext(c *fiber.Ctx) (string, bool) {
	val := c.Locals(sessionIDKey)
	if val == nil {
		return "", false
	}
	id, ok := val.(string)
	return id, ok
}
