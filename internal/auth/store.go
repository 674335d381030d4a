package auth

import (
	"context"
	"time"
)

// SessionStore persists sessions until they expire.
type SessionStore interface {
	SaveSession(ctx context.Context, s Session) error
	Session(ctx context.Context, id string) (Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// VerificationStore keeps pending OTPs and the resend cooldown per phone.
type VerificationStore interface {
	SavePending(ctx context.Context, p PendingVerification) error
	Pending(ctx context.Context, countryCode, phone string) (PendingVerification, error)
	DeletePending(ctx context.Context, countryCode, phone string) error
	// ResetCooldown arms the resend cooldown unconditionally.
	ResetCooldown(ctx context.Context, countryCode, phone string, ttl time.Duration) error
	// AcquireCooldown arms the cooldown only when it is not already running.
	// When it is, ok is false and remaining tells how long is left.
	AcquireCooldown(ctx context.Context, countryCode, phone string, ttl time.Duration) (ok bool, remaining time.Duration, err error)
	ReleaseCooldown(ctx context.Context, countryCode, phone string) error
}

func phoneKey(countryCode, phone string) string {
	return countryCode + ":" + phone
}
