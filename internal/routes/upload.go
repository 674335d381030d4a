package routes

import (
    "github.com/gofiber/fiber/v2"

    "github.com/luban-do/lubando/internal/upload"
)

// RegisterUploadRoutes wires the photo gallery and uploader.
func RegisterUploadRoutes(r fiber.Router, h *upload.Handler, idem fiber.Handler) {
    group := r.Group("/uploads")
    group.Get("/", h.Day)
    group.Get("/week", h.Week)
    group.Get("/month", h.Month)
    group.Get("/batches/:id", h.Batch)
    group.Post("/preview", h.Preview)
    group.Post("/", idem, h.Create)
}
