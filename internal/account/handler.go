package account

import (
    "net/http"
    "time"

    "github.com/gofiber/fiber/v2"

    "github.com/luban-do/lubando/internal/auth"
)

// Handler exposes the account endpoints.
type Handler struct {
    service *Service
}

// NewHandler constructs an account handler.
func NewHandler(service *Service) *Handler {
    return &Handler{service: service}
}

// Overview returns the account header for the session's worker.
func (h *Handler) Overview(c *fiber.Ctx) error {
    session, ok := c.Locals("session").(auth.Session)
    if !ok {
        return fiber.NewError(http.StatusUnauthorized, auth.ErrUnauthorized.Error())
    }
    ov, err := h.service.Overview(c.UserContext(), session.UserID, session.CountryCode, session.Phone)
    if err != nil {
        return fiber.NewError(http.StatusInternalServerError, err.Error())
    }
    return c.JSON(ov)
}

// Month returns the activity summary for ?year=&month= (default this month).
func (h *Handler) Month(c *fiber.Ctx) error {
    uid, _ := c.Locals("user_id").(int64)
    now := time.Now().In(h.service.loc)
    year := c.QueryInt("year", now.Year())
    month := c.QueryInt("month", int(now.Month()))
    if month < 1 || month > 12 {
        return fiber.NewError(http.StatusBadRequest, "invalid month")
    }
    m, err := h.service.Month(c.UserContext(), uid, year, time.Month(month))
    if err != nil {
        return fiber.NewError(http.StatusInternalServerError, err.Error())
    }
    return c.JSON(m)
}
