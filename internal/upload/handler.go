package upload

import (
    "errors"
    "io"
    "net/http"
    "time"

    "github.com/gofiber/fiber/v2"

    "github.com/luban-do/lubando/internal/calendar"
    "github.com/luban-do/lubando/internal/luban"
)

// Handler exposes the upload and gallery endpoints.
type Handler struct {
    service  *Service
    maxBytes int64
}

// NewHandler constructs an upload handler. Files larger than maxBytes are rejected.
func NewHandler(service *Service, maxBytes int64) *Handler {
    return &Handler{service: service, maxBytes: maxBytes}
}

// Create starts relaying the posted photos and returns the batch snapshot.
func (h *Handler) Create(c *fiber.Ctx) error {
    uid, _ := c.Locals("user_id").(int64)
    form, err := c.MultipartForm()
    if err != nil {
        return fiber.NewError(http.StatusBadRequest, ErrNothingToUpload.Error())
    }

    date := h.service.Today()
    if vals := form.Value["date"]; len(vals) > 0 && vals[0] != "" {
        date, err = calendar.ParseISO(vals[0], h.service.Location())
        if err != nil {
            return fiber.NewError(http.StatusBadRequest, "invalid date")
        }
    }

    var files []File
    for _, fh := range form.File["photo"] {
        if h.maxBytes > 0 && fh.Size > h.maxBytes {
            return fiber.NewError(http.StatusRequestEntityTooLarge, ErrFileTooLarge.Error()+": "+fh.Filename)
        }
        f, err := fh.Open()
        if err != nil {
            return fiber.NewError(http.StatusBadRequest, err.Error())
        }
        data, err := io.ReadAll(f)
        _ = f.Close()
        if err != nil {
            return fiber.NewError(http.StatusBadRequest, err.Error())
        }
        files = append(files, File{Name: fh.Filename, ContentType: fh.Header.Get(fiber.HeaderContentType), Data: data})
    }

    batch, err := h.service.StartBatch(uid, date, files)
    switch {
    case errors.Is(err, ErrNothingToUpload):
        return fiber.NewError(http.StatusBadRequest, err.Error())
    case errors.Is(err, ErrNoUserID):
        return fiber.NewError(http.StatusUnauthorized, err.Error())
    case err != nil:
        return fiber.NewError(http.StatusInternalServerError, err.Error())
    }
    return c.Status(http.StatusAccepted).JSON(batch)
}

// Batch returns a batch's progress.
func (h *Handler) Batch(c *fiber.Ctx) error {
    uid, _ := c.Locals("user_id").(int64)
    batch, err := h.service.Batch(uid, c.Params("id"))
    if err != nil {
        return fiber.NewError(http.StatusNotFound, err.Error())
    }
    return c.JSON(batch)
}

// Day lists photos for ?date= (default today).
func (h *Handler) Day(c *fiber.Ctx) error {
    uid, _ := c.Locals("user_id").(int64)
    day, err := h.dateQuery(c)
    if err != nil {
        return err
    }
    items, err := h.service.Day(c.UserContext(), uid, day, sortQuery(c))
    if err != nil {
        return fiber.NewError(http.StatusBadGateway, err.Error())
    }
    return c.JSON(fiber.Map{"date": calendar.FormatISO(day), "items": items})
}

// Week reports photo presence for the week containing ?date=.
func (h *Handler) Week(c *fiber.Ctx) error {
    uid, _ := c.Locals("user_id").(int64)
    day, err := h.dateQuery(c)
    if err != nil {
        return err
    }
    days, err := h.service.Week(c.UserContext(), uid, day, sortQuery(c))
    if err != nil {
        return fiber.NewError(http.StatusBadGateway, err.Error())
    }
    return c.JSON(fiber.Map{"days": days})
}

// Month lists the dates with photos for ?year=&month=.
func (h *Handler) Month(c *fiber.Ctx) error {
    uid, _ := c.Locals("user_id").(int64)
    today := h.service.Today()
    year := c.QueryInt("year", today.Year())
    month := c.QueryInt("month", int(today.Month()))
    if month < 1 || month > 12 {
        return fiber.NewError(http.StatusBadRequest, "invalid month")
    }
    dates, err := h.service.MonthDates(c.UserContext(), uid, year, time.Month(month), sortQuery(c))
    if err != nil {
        return fiber.NewError(http.StatusBadGateway, err.Error())
    }
    return c.JSON(fiber.Map{
        "year":       year,
        "month":      month,
        "month_name": calendar.MonthName(time.Month(month)),
        "dates":      dates,
    })
}

// Preview returns a JPEG thumbnail of the posted photo.
func (h *Handler) Preview(c *fiber.Ctx) error {
    fh, err := c.FormFile("photo")
    if err != nil {
        return fiber.NewError(http.StatusBadRequest, ErrNothingToUpload.Error())
    }
    if h.maxBytes > 0 && fh.Size > h.maxBytes {
        return fiber.NewError(http.StatusRequestEntityTooLarge, ErrFileTooLarge.Error())
    }
    f, err := fh.Open()
    if err != nil {
        return fiber.NewError(http.StatusBadRequest, err.Error())
    }
    defer f.Close()
    data, err := io.ReadAll(f)
    if err != nil {
        return fiber.NewError(http.StatusBadRequest, err.Error())
    }
    thumb, err := Preview(data)
    if err != nil {
        return fiber.NewError(http.StatusUnsupportedMediaType, err.Error())
    }
    c.Set(fiber.HeaderContentType, "image/jpeg")
    return c.Send(thumb)
}

func (h *Handler) dateQuery(c *fiber.Ctx) (time.Time, error) {
    raw := c.Query("date")
    if raw == "" {
        return h.service.Today(), nil
    }
    day, err := calendar.ParseISO(raw, h.service.Location())
    if err != nil {
        return time.Time{}, fiber.NewError(http.StatusBadRequest, "invalid date")
    }
    return day, nil
}

func sortQuery(c *fiber.Ctx) string {
    if c.Query("sort") == luban.SortByContent {
        return luban.SortByContent
    }
    return luban.SortByUpload
}
