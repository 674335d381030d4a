package routes

import (
    "github.com/gofiber/fiber/v2"

    "github.com/luban-do/lubando/internal/account"
    "github.com/luban-do/lubando/internal/devotional"
)

// RegisterAccountRoutes wires the account screen.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler) {
    r.Get("/account", h.Overview)
    r.Get("/account/month", h.Month)
}

// RegisterDevotionalRoutes wires the daily readings. The quote route is
// registered first so it is not captured by :date.
func RegisterDevotionalRoutes(r fiber.Router, h *devotional.Handler) {
    group := r.Group("/devotional")
    group.Get("/quote", h.Quote)
    group.Get("/:date", h.Day)
    group.Get("/:date/readings/:index", h.Reading)
}
