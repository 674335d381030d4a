package devotional

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/luban-do/lubando/internal/calendar"
)

// Handler exposes the devotional endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a devotional handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Day returns the content for :date (yyyymmdd or "today").
func (h *Handler) Day(c *fiber.Ctx) error {
	day, err := h.date(c)
	if err != nil {
		return err
	}
	d, err := h.service.Day(c.UserContext(), day)
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, ErrFetchFailed.Error())
	}
	return c.JSON(fiber.Map{
		"day":           d,
		"date_label":    calendar.DisplayDate(day),
		"hours":         Hours,
		"current_index": h.service.CurrentIndex(),
	})
}

// Reading returns one canonical hour; :index may be "current".
func (h *Handler) Reading(c *fiber.Ctx) error {
	day, err := h.date(c)
	if err != nil {
		return err
	}
	index := h.service.CurrentIndex()
	if raw := c.Params("index"); raw != "current" {
		index, err = strconv.Atoi(raw)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, ErrInvalidIndex.Error())
		}
	}
	reading, err := h.service.Reading(c.UserContext(), day, index)
	switch {
	case errors.Is(err, ErrInvalidIndex):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case err != nil:
		return fiber.NewError(http.StatusBadGateway, ErrFetchFailed.Error())
	}
	return c.JSON(reading)
}

// Quote returns a random zh_hk quote.
func (h *Handler) Quote(c *fiber.Ctx) error {
	q, err := h.service.Quote(c.UserContext())
	if err != nil {
		if errors.Is(err, ErrNoQuote) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(q)
}

func (h *Handler) date(c *fiber.Ctx) (time.Time, error) {
	raw := c.Params("date")
	if raw == "" || raw == "today" {
		return h.service.Today(), nil
	}
	day, err := calendar.ParseCompact(raw, h.service.Location())
	if err != nil {
		return time.Time{}, fiber.NewError(http.StatusBadRequest, "invalid date")
	}
	return day, nil
}
