package middleware

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/luban-do/lubando/internal/auth"
)

const (
	userIDKey  = "user_id"
	sessionKey = "session"
)

// Authenticator resolves a session token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Session, error)
}

// SessionAuth requires a live session, read from the bearer header or the
// auth cookie, and exposes it to handlers as the "session" and "user_id" locals.
func SessionAuth(sessions Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := auth.TokenFromRequest(c)
		if token == "" {
			return fiber.NewError(http.StatusUnauthorized, auth.ErrUnauthorized.Error())
		}
		session, err := sessions.Authenticate(c.UserContext(), token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, auth.ErrUnauthorized.Error())
		}
		c.Locals(sessionKey, session)
		c.Locals(userIDKey, session.UserID)
		return c.Next()
	}
}
