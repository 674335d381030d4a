package routes

import (
    "github.com/gofiber/fiber/v2"

    "github.com/luban-do/lubando/internal/checkin"
)

// RegisterCheckinRoutes wires the check-in board. Submissions require an Idempotency-Key.
func RegisterCheckinRoutes(r fiber.Router, h *checkin.Handler, idem fiber.Handler) {
    group := r.Group("/checkin")
    group.Get("/board", h.Board)
    group.Get("/today", h.Today)
    group.Post("/:period/sites/:siteId/toggle", h.ToggleSite)
    group.Post("/:period/sites/:siteId/work-types/:workTypeId/toggle", h.ToggleWorkType)
    group.Post("/:period/submit", idem, h.Submit)
}
