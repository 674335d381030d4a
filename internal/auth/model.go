package auth

import (
	"errors"
	"fmt"
	"time"
)

// Session is the server-side authentication record. It expires a fixed time
// after creation and is never extended.
type Session struct {
	ID            string    `json:"id"`
	UserID        int64     `json:"user_id"`
	Phone         string    `json:"phone"`
	CountryCode   string    `json:"country_code"`
	UpstreamToken string    `json:"upstream_token"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the session is past its lifetime.
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// PendingVerification tracks an OTP that was sent but not yet confirmed.
type PendingVerification struct {
	UserID      string    `json:"user_id"`
	Phone       string    `json:"phone"`
	CountryCode string    `json:"country_code"`
	OTPHash     []byte    `json:"otp_hash"`
	Attempts    int       `json:"attempts"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Country is a selectable phone country code.
type Country struct {
	Code  string `json:"code"`
	Label string `json:"label"`
}

// Countries lists the supported codes, default first.
var Countries = []Country{
	{Code: "853", Label: "澳門"},
	{Code: "852", Label: "香港"},
	{Code: "86", Label: "中國"},
}

// DefaultCountryCode is used when the client sends none.
const DefaultCountryCode = "853"

var (
	ErrInvalidPhone        = errors.New("請輸入有效的手機號碼")
	ErrUnsupportedCountry  = errors.New("不支援的國家/地區代碼")
	ErrSendFailed          = errors.New("無法發送驗證碼")
	ErrResendFailed        = errors.New("無法重新發送驗證碼")
	ErrInvalidResponse     = errors.New("伺服器回應無效")
	ErrIncompleteCode      = errors.New("請輸入完整的4位驗證碼")
	ErrVerificationExpired = errors.New("驗證已過期，請重新發送驗證碼")
	ErrWrongCode           = errors.New("驗證碼不正確")
	ErrTooManyAttempts     = errors.New("嘗試次數過多，請重新發送驗證碼")
	ErrUnauthorized        = errors.New("未登入或登入已過期")
	ErrSessionNotFound     = errors.New("session not found")
)

// CooldownError is returned when a resend is requested too early.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("請稍後再重新發送驗證碼 (%d秒)", int(e.Remaining.Round(time.Second)/time.Second))
}

// LoginError wraps the reason the upstream login was refused.
type LoginError struct {
	Reason string
}

func (e *LoginError) Error() string {
	return "登錄失敗: " + e.Reason
}
