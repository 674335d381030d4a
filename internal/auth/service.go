package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/luban-do/lubando/internal/identity"
	"github.com/luban-do/lubando/internal/logging"
	"github.com/luban-do/lubando/internal/luban"
	"github.com/luban-do/lubando/internal/metrics"
)

const (
	minPhoneLength = 4
	codeLength     = 4
)

// Upstream is the part of the upstream API used for login.
type Upstream interface {
	RequestOTP(ctx context.Context, country, number string) (luban.Challenge, error)
	Login(ctx context.Context, userID, otp string) (luban.LoginResult, error)
}

// Profiles records the worker profile once login succeeds.
type Profiles interface {
	Record(ctx context.Context, in identity.LoginInput) (identity.User, error)
}

// Options tunes lifetimes and limits of the login flow.
type Options struct {
	SessionTTL     time.Duration
	OTPTTL         time.Duration
	ResendCooldown time.Duration
	MaxAttempts    int
}

// Service runs the phone + OTP login and owns sessions.
type Service struct {
	upstream Upstream
	profiles Profiles
	sessions SessionStore
	pending  VerificationStore
	tokens   *Tokens
	opts     Options
	now      func() time.Time
	logger   *slog.Logger
}

// NewService wires the login flow.
func NewService(upstream Upstream, profiles Profiles, sessions SessionStore, pending VerificationStore, tokens *Tokens, opts Options, logger *slog.Logger) *Service {
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 10 * time.Minute
	}
	if opts.ResendCooldown <= 0 {
		opts.ResendCooldown = 60 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	return &Service{
		upstream: upstream,
		profiles: profiles,
		sessions: sessions,
		pending:  pending,
		tokens:   tokens,
		opts:     opts,
		now:      time.Now,
		logger:   logging.Component(logger, "auth"),
	}
}

// PhoneInput identifies the phone a code is sent to.
type PhoneInput struct {
	CountryCode string
	Phone       string
}

// SendResult tells the client when it may ask for another code.
type SendResult struct {
	CountryCode string        `json:"country_code"`
	Phone       string        `json:"phone"`
	ExpiresAt   time.Time     `json:"expires_at"`
	ResendAfter time.Duration `json:"-"`
}

// SendCode asks upstream to text an OTP and remembers a hash of it.
func (s *Service) SendCode(ctx context.Context, in PhoneInput) (SendResult, error) {
	in, err := normalizePhone(in)
	if err != nil {
		return SendResult{}, err
	}
	res, err := s.send(ctx, in, ErrSendFailed)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("send", "failure").Inc()
		return SendResult{}, err
	}
	if err := s.pending.ResetCooldown(ctx, in.CountryCode, in.Phone, s.opts.ResendCooldown); err != nil {
		s.logger.Warn("arm resend cooldown", "error", err)
	}
	metrics.AuthAttempts.WithLabelValues("send", "success").Inc()
	return res, nil
}

// Resend sends a fresh OTP once the cooldown has elapsed.
func (s *Service) Resend(ctx context.Context, in PhoneInput) (SendResult, error) {
	in, err := normalizePhone(in)
	if err != nil {
		return SendResult{}, err
	}
	ok, remaining, err := s.pending.AcquireCooldown(ctx, in.CountryCode, in.Phone, s.opts.ResendCooldown)
	if err != nil {
		return SendResult{}, fmt.Errorf("%w: %v", ErrResendFailed, err)
	}
	if !ok {
		return SendResult{}, &CooldownError{Remaining: remaining}
	}
	res, err := s.send(ctx, in, ErrResendFailed)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("resend", "failure").Inc()
		if rerr := s.pending.ReleaseCooldown(ctx, in.CountryCode, in.Phone); rerr != nil {
			s.logger.Warn("release resend cooldown", "error", rerr)
		}
		return SendResult{}, err
	}
	metrics.AuthAttempts.WithLabelValues("resend", "success").Inc()
	return res, nil
}

func (s *Service) send(ctx context.Context, in PhoneInput, failure error) (SendResult, error) {
	challenge, err := s.upstream.RequestOTP(ctx, in.CountryCode, in.Phone)
	if err != nil {
		s.logger.Error("request otp", "country_code", in.CountryCode, "error", err)
		if errors.Is(err, luban.ErrInvalidResponse) {
			return SendResult{}, ErrInvalidResponse
		}
		return SendResult{}, failure
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(challenge.OTP), bcrypt.DefaultCost)
	if err != nil {
		return SendResult{}, fmt.Errorf("hash otp: %w", err)
	}
	expires := s.now().Add(s.opts.OTPTTL)
	pending := PendingVerification{
		UserID:      challenge.UserID,
		Phone:       in.Phone,
		CountryCode: in.CountryCode,
		OTPHash:     hash,
		ExpiresAt:   expires,
	}
	if err := s.pending.SavePending(ctx, pending); err != nil {
		return SendResult{}, fmt.Errorf("store verification: %w", err)
	}
	return SendResult{
		CountryCode: in.CountryCode,
		Phone:       in.Phone,
		ExpiresAt:   expires,
		ResendAfter: s.opts.ResendCooldown,
	}, nil
}

// VerifyInput is the code typed by the worker.
type VerifyInput struct {
	CountryCode string
	Phone       string
	Code        string
}

// VerifyResult carries the new session and its signed token.
type VerifyResult struct {
	Token   string
	Session Session
	User    identity.User
}

// Verify checks the code, logs in upstream and opens a session.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (VerifyResult, error) {
	phone, err := normalizePhone(PhoneInput{CountryCode: in.CountryCode, Phone: in.Phone})
	if err != nil {
		return VerifyResult{}, err
	}
	code := strings.TrimSpace(in.Code)
	if !isDigits(code) || len(code) != codeLength {
		return VerifyResult{}, ErrIncompleteCode
	}

	pending, err := s.pending.Pending(ctx, phone.CountryCode, phone.Phone)
	if err != nil {
		return VerifyResult{}, err
	}

	if bcrypt.CompareHashAndPassword(pending.OTPHash, []byte(code)) != nil {
		metrics.AuthAttempts.WithLabelValues("verify", "failure").Inc()
		pending.Attempts++
		if pending.Attempts > s.opts.MaxAttempts {
			if err := s.pending.DeletePending(ctx, phone.CountryCode, phone.Phone); err != nil {
				s.logger.Warn("drop verification", "error", err)
			}
			return VerifyResult{}, ErrTooManyAttempts
		}
		if err := s.pending.SavePending(ctx, pending); err != nil {
			s.logger.Warn("update verification attempts", "error", err)
		}
		return VerifyResult{}, ErrWrongCode
	}

	login, err := s.upstream.Login(ctx, pending.UserID, code)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("verify", "failure").Inc()
		s.logger.Error("upstream login", "user_id", pending.UserID, "error", err)
		return VerifyResult{}, &LoginError{Reason: luban.LoginFailureMessage(err)}
	}

	user, err := s.profiles.Record(ctx, identity.LoginInput{
		UserID:      pending.UserID,
		Phone:       phone.Phone,
		CountryCode: phone.CountryCode,
		Profile:     login.User,
	})
	if err != nil {
		return VerifyResult{}, err
	}

	now := s.now()
	session := Session{
		ID:            uuid.NewString(),
		UserID:        user.ID,
		Phone:         phone.Phone,
		CountryCode:   phone.CountryCode,
		UpstreamToken: login.AuthToken,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.opts.SessionTTL),
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return VerifyResult{}, fmt.Errorf("store session: %w", err)
	}
	token, err := s.tokens.Issue(session)
	if err != nil {
		return VerifyResult{}, err
	}
	if err := s.pending.DeletePending(ctx, phone.CountryCode, phone.Phone); err != nil {
		s.logger.Warn("drop verification", "error", err)
	}

	metrics.AuthAttempts.WithLabelValues("verify", "success").Inc()
	s.logger.Info("worker logged in", "user_id", user.ID, "session_id", session.ID)
	return VerifyResult{Token: token, Session: session, User: user}, nil
}

// Authenticate resolves a token to a live session.
func (s *Service) Authenticate(ctx context.Context, token string) (Session, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return Session{}, ErrUnauthorized
	}
	session, err := s.sessions.Session(ctx, claims.Subject)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			s.logger.Error("load session", "error", err)
		}
		return Session{}, ErrUnauthorized
	}
	if session.UserID != claims.UserID {
		return Session{}, ErrUnauthorized
	}
	if session.Expired(s.now()) {
		if err := s.sessions.DeleteSession(ctx, session.ID); err != nil {
			s.logger.Warn("drop expired session", "error", err)
		}
		return Session{}, ErrUnauthorized
	}
	return session, nil
}

// Logout ends the session behind token. Unknown or invalid tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil
	}
	return s.sessions.DeleteSession(ctx, claims.Subject)
}

// SessionTTL is the lifetime given to new sessions.
func (s *Service) SessionTTL() time.Duration {
	return s.opts.SessionTTL
}

// CanonicalPhone strips the "+" and spaces and applies the default country
// code. It does not validate.
func CanonicalPhone(countryCode, phone string) (string, string) {
	countryCode = strings.TrimPrefix(strings.TrimSpace(countryCode), "+")
	if countryCode == "" {
		countryCode = DefaultCountryCode
	}
	return countryCode, strings.ReplaceAll(strings.TrimSpace(phone), " ", "")
}

func normalizePhone(in PhoneInput) (PhoneInput, error) {
	in.CountryCode, in.Phone = CanonicalPhone(in.CountryCode, in.Phone)
	supported := false
	for _, c := range Countries {
		if c.Code == in.CountryCode {
			supported = true
			break
		}
	}
	if !supported {
		return PhoneInput{}, ErrUnsupportedCountry
	}

	if len(in.Phone) < minPhoneLength || !isDigits(in.Phone) {
		return PhoneInput{}, ErrInvalidPhone
	}
	return in, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
