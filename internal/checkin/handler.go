package checkin

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the check-in endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a check-in handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Board returns today's sites, work types, selections and records.
func (h *Handler) Board(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(int64)
	board, err := h.service.Board(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusBadGateway, "無法載入地點")
	}
	return c.JSON(board)
}

// ToggleSite flips a site in the period's selections.
func (h *Handler) ToggleSite(c *fiber.Ctx) error {
	period, err := ParsePeriod(c.Params("period"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	siteID, err := pathID(c, "siteId")
	if err != nil {
		return err
	}
	uid, _ := c.Locals("user_id").(int64)
	sels, err := h.service.ToggleSite(c.UserContext(), uid, period, siteID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"period": period, "selections": sels})
}

// ToggleWorkType flips a work type for a site.
func (h *Handler) ToggleWorkType(c *fiber.Ctx) error {
	period, err := ParsePeriod(c.Params("period"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	siteID, err := pathID(c, "siteId")
	if err != nil {
		return err
	}
	workTypeID, err := pathID(c, "workTypeId")
	if err != nil {
		return err
	}
	uid, _ := c.Locals("user_id").(int64)
	sels, err := h.service.ToggleWorkType(c.UserContext(), uid, period, siteID, workTypeID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"period": period, "selections": sels})
}

// Submit records the period's check-in.
func (h *Handler) Submit(c *fiber.Ctx) error {
	period, err := ParsePeriod(c.Params("period"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	uid, _ := c.Locals("user_id").(int64)

	res, err := h.service.Submit(c.UserContext(), uid, period)
	if err != nil {
		var (
			missing   *MissingWorkTypesError
			submitErr *SubmitError
		)
		switch {
		case errors.Is(err, ErrNoSelection), errors.As(err, &missing):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNoUserID):
			return fiber.NewError(http.StatusUnauthorized, err.Error())
		case errors.Is(err, ErrAlreadyCheckedIn):
			return fiber.NewError(http.StatusConflict, err.Error())
		case errors.As(err, &submitErr):
			return fiber.NewError(http.StatusBadGateway, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(res)
}

// Today lists today's check-ins.
func (h *Handler) Today(c *fiber.Ctx) error {
	uid, _ := c.Locals("user_id").(int64)
	records, err := h.service.Today(c.UserContext(), uid)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"records": records})
}

func pathID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
