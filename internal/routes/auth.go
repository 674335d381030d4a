package routes

import (
    "github.com/gofiber/fiber/v2"

    "github.com/luban-do/lubando/internal/auth"
)

// RegisterAuthRoutes wires the phone login endpoints. Sending and checking
// codes go through the rate limiter.
func RegisterAuthRoutes(r fiber.Router, h *auth.Handler, rateLimiter fiber.Handler) {
    group := r.Group("/auth")
    group.Get("/countries", h.Countries)
    if rateLimiter != nil {
        group.Post("/send-code", rateLimiter, h.SendCode)
        group.Post("/resend-code", rateLimiter, h.ResendCode)
        group.Post("/verify-code", rateLimiter, h.VerifyCode)
    } else {
        group.Post("/send-code", h.SendCode)
        group.Post("/resend-code", h.ResendCode)
        group.Post("/verify-code", h.VerifyCode)
    }
    group.Post("/logout", h.Logout)
}
