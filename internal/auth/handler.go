package auth

import (
    "errors"
    "net/http"
    "strings"
    "time"

    "github.com/gofiber/fiber/v2"

    "github.com/luban-do/lubando/internal/validation"
)

// CookieName is the cookie that carries the session token.
const CookieName = "authToken"

// Handler exposes the login endpoints.
type Handler struct {
    svc          *Service
    secureCookie bool
}

// NewHandler builds the auth HTTP handler.
func NewHandler(svc *Service, secureCookie bool) *Handler {
    return &Handler{svc: svc, secureCookie: secureCookie}
}

type phoneRequest struct {
    CountryCode string `json:"country_code" validate:"omitempty,numeric,max=4"`
    Phone       string `json:"phone" validate:"required"`
}

type verifyRequest struct {
    CountryCode string `json:"country_code" validate:"omitempty,numeric,max=4"`
    Phone       string `json:"phone" validate:"required"`
    Code        string `json:"code"`
}

type sendResponse struct {
    CountryCode        string    `json:"country_code"`
    Phone              string    `json:"phone"`
    ExpiresAt          time.Time `json:"expires_at"`
    ResendAfterSeconds int       `json:"resend_after_seconds"`
}

// Countries lists the selectable country codes.
func (h *Handler) Countries(c *fiber.Ctx) error {
    return c.JSON(fiber.Map{"countries": Countries, "default": DefaultCountryCode})
}

// SendCode texts an OTP to the phone.
func (h *Handler) SendCode(c *fiber.Ctx) error {
    var req phoneRequest
    if err := validation.BindJSON(c, &req); err != nil {
        return err
    }
    res, err := h.svc.SendCode(c.UserContext(), PhoneInput{CountryCode: req.CountryCode, Phone: req.Phone})
    if err != nil {
        return toHTTPError(err)
    }
    return c.Status(http.StatusOK).JSON(toSendResponse(res))
}

// ResendCode texts a new OTP once the cooldown has passed.
func (h *Handler) ResendCode(c *fiber.Ctx) error {
    var req phoneRequest
    if err := validation.BindJSON(c, &req); err != nil {
        return err
    }
    res, err := h.svc.Resend(c.UserContext(), PhoneInput{CountryCode: req.CountryCode, Phone: req.Phone})
    if err != nil {
        return toHTTPError(err)
    }
    return c.Status(http.StatusOK).JSON(toSendResponse(res))
}

// VerifyCode checks the OTP and starts a session.
func (h *Handler) VerifyCode(c *fiber.Ctx) error {
    var req verifyRequest
    if err := validation.BindJSON(c, &req); err != nil {
        return err
    }
    res, err := h.svc.Verify(c.UserContext(), VerifyInput{CountryCode: req.CountryCode, Phone: req.Phone, Code: req.Code})
    if err != nil {
        return toHTTPError(err)
    }

    c.Cookie(&fiber.Cookie{
        Name:     CookieName,
        Value:    res.Token,
        Path:     "/",
        MaxAge:   int(h.svc.SessionTTL().Seconds()),
        Expires:  res.Session.ExpiresAt,
        Secure:   h.secureCookie,
        HTTPOnly: true,
        SameSite: fiber.CookieSameSiteStrictMode,
    })
    return c.Status(http.StatusOK).JSON(fiber.Map{
        "success":      true,
        "token":        res.Token,
        "expires_at":   res.Session.ExpiresAt,
        "user_id":      res.User.ID,
        "display_name": res.User.DisplayName(),
        "phone":        res.Session.Phone,
        "country_code": res.Session.CountryCode,
    })
}

// Logout ends the session and clears the cookie.
func (h *Handler) Logout(c *fiber.Ctx) error {
    if err := h.svc.Logout(c.UserContext(), TokenFromRequest(c)); err != nil {
        return fiber.NewError(http.StatusInternalServerError, "登出失敗")
    }
    c.Cookie(&fiber.Cookie{
        Name:     CookieName,
        Value:    "",
        Path:     "/",
        MaxAge:   -1,
        Expires:  time.Unix(0, 0),
        Secure:   h.secureCookie,
        HTTPOnly: true,
        SameSite: fiber.CookieSameSiteStrictMode,
    })
    return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "message": "成功登出"})
}

// TokenFromRequest reads the session token from the Authorization header or the cookie.
func TokenFromRequest(c *fiber.Ctx) string {
    authz := c.Get(fiber.HeaderAuthorization)
    if strings.HasPrefix(strings.ToLower(authz), "bearer ") {
        return strings.TrimSpace(authz[len("Bearer "):])
    }
    return c.Cookies(CookieName)
}

func toSendResponse(res SendResult) sendResponse {
    return sendResponse{
        CountryCode:        res.CountryCode,
        Phone:              res.Phone,
        ExpiresAt:          res.ExpiresAt,
        ResendAfterSeconds: int(res.ResendAfter.Seconds()),
    }
}

func toHTTPError(err error) error {
    var (
        cooldown *CooldownError
        login    *LoginError
    )
    switch {
    case errors.As(err, &cooldown):
        return fiber.NewError(http.StatusTooManyRequests, err.Error())
    case errors.As(err, &login):
        return fiber.NewError(http.StatusUnauthorized, err.Error())
    case errors.Is(err, ErrInvalidPhone), errors.Is(err, ErrUnsupportedCountry), errors.Is(err, ErrIncompleteCode):
        return fiber.NewError(http.StatusBadRequest, err.Error())
    case errors.Is(err, ErrWrongCode), errors.Is(err, ErrVerificationExpired), errors.Is(err, ErrUnauthorized):
        return fiber.NewError(http.StatusUnauthorized, err.Error())
    case errors.Is(err, ErrTooManyAttempts):
        return fiber.NewError(http.StatusTooManyRequests, err.Error())
    case errors.Is(err, ErrSendFailed), errors.Is(err, ErrResendFailed), errors.Is(err, ErrInvalidResponse):
        return fiber.NewError(http.StatusBadGateway, err.Error())
    default:
        return fiber.NewError(http.StatusInternalServerError, "伺服器錯誤")
    }
}
