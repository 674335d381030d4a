package middleware

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/luban-do/lubando/internal/auth"
)

type fakeSessions map[string]auth.Session

func (f fakeSessions) Authenticate(_ context.Context, token string) (auth.Session, error) {
	s, ok := f[token]
	if !ok {
		return auth.Session{}, auth.ErrUnauthorized
	}
	return s, nil
}

func TestSessionAuth(t *testing.T) {
	sessions := fakeSessions{"good": {ID: "s1", UserID: 42}}
	app := fiber.New()
	app.Get("/me", SessionAuth(sessions), func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(int64)
		s, _ := c.Locals("session").(auth.Session)
		if uid != 42 || s.ID != "s1" {
			return c.SendStatus(fiber.StatusInternalServerError)
		}
		return c.SendStatus(fiber.StatusOK)
	})

	cases := []struct {
		name   string
		setup  func(*sessionRequest)
		status int
	}{
		{"no token", func(*sessionRequest) {}, fiber.StatusUnauthorized},
		{"bad token", func(r *sessionRequest) { r.header = "Bearer nope" }, fiber.StatusUnauthorized},
		{"bearer", func(r *sessionRequest) { r.header = "Bearer good" }, fiber.StatusOK},
		{"cookie", func(r *sessionRequest) { r.cookie = "good" }, fiber.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var r sessionRequest
			tc.setup(&r)
			req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
			if r.header != "" {
				req.Header.Set(fiber.HeaderAuthorization, r.header)
			}
			if r.cookie != "" {
				req.Header.Set(fiber.HeaderCookie, auth.CookieName+"="+r.cookie)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d got %d", tc.status, resp.StatusCode)
			}
		})
	}
}

type sessionRequest struct {
	header string
	cookie string
}
