package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/luban-do/lubando/internal/identity"
	"github.com/luban-do/lubando/internal/logging"
	"github.com/luban-do/lubando/internal/luban"
)

type fakeUpstream struct {
	challenge luban.Challenge
	otpErr    error
	loginErr  error
	otpCalls  int
	logins    int
}

func (f *fakeUpstream) RequestOTP(_ context.Context, _, _ string) (luban.Challenge, error) {
	f.otpCalls++
	if f.otpErr != nil {
		return luban.Challenge{}, f.otpErr
	}
	return f.challenge, nil
}

func (f *fakeUpstream) Login(_ context.Context, userID, otp string) (luban.LoginResult, error) {
	f.logins++
	if f.loginErr != nil {
		return luban.LoginResult{}, f.loginErr
	}
	return luban.LoginResult{
		AuthToken: "upstream-token",
		User:      &luban.User{ID: 42, FirstName: "Wing", Nickname: "阿榮", Country: "853", Number: "66123456"},
	}, nil
}

type testEnv struct {
	svc      *Service
	store    *MemoryStore
	upstream *fakeUpstream
	clock    time.Time
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    NewMemoryStore(),
		upstream: &fakeUpstream{challenge: luban.Challenge{UserID: "42", OTP: "1234"}},
		clock:    time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC),
	}
	tokens, err := NewTokens("test-secret", "lubando")
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	now := func() time.Time { return env.clock }
	tokens.now = now
	env.store.now = now

	profiles := identity.NewService(identity.NewMemoryRepository())
	env.svc = NewService(env.upstream, profiles, env.store, env.store, tokens, opts, logging.Discard())
	env.svc.now = now
	return env
}

func (e *testEnv) advance(d time.Duration) { e.clock = e.clock.Add(d) }

var phone = PhoneInput{CountryCode: "853", Phone: "66123456"}

func TestSendCodeValidatesPhone(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	if _, err := env.svc.SendCode(ctx, PhoneInput{Phone: "12"}); !errors.Is(err, ErrInvalidPhone) {
		t.Fatalf("expected invalid phone, got %v", err)
	}
	if _, err := env.svc.SendCode(ctx, PhoneInput{CountryCode: "1", Phone: "5551234"}); !errors.Is(err, ErrUnsupportedCountry) {
		t.Fatalf("expected unsupported country, got %v", err)
	}
	res, err := env.svc.SendCode(ctx, PhoneInput{Phone: "6612 3456"})
	if err != nil {
		t.Fatalf("send code: %v", err)
	}
	if res.CountryCode != DefaultCountryCode || res.Phone != "66123456" {
		t.Fatalf("unexpected normalised phone: %+v", res)
	}
	if env.upstream.otpCalls != 1 {
		t.Fatalf("expected one upstream call, got %d", env.upstream.otpCalls)
	}
}

func TestSendCodeUpstreamFailures(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	env.upstream.otpErr = errors.New("dial tcp: timeout")
	if _, err := env.svc.SendCode(ctx, phone); !errors.Is(err, ErrSendFailed) {
		t.Fatalf("expected send failure, got %v", err)
	}

	env.upstream.otpErr = luban.ErrInvalidResponse
	if _, err := env.svc.SendCode(ctx, phone); !errors.Is(err, ErrInvalidResponse) {
		t.Fatalf("expected invalid response, got %v", err)
	}
}

func TestVerifyOpensSession(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	if _, err := env.svc.SendCode(ctx, phone); err != nil {
		t.Fatalf("send code: %v", err)
	}

	if _, err := env.svc.Verify(ctx, VerifyInput{CountryCode: "853", Phone: "66123456", Code: "12"}); !errors.Is(err, ErrIncompleteCode) {
		t.Fatalf("expected incomplete code, got %v", err)
	}
	if _, err := env.svc.Verify(ctx, VerifyInput{CountryCode: "853", Phone: "66123456", Code: "9999"}); !errors.Is(err, ErrWrongCode) {
		t.Fatalf("expected wrong code, got %v", err)
	}
	if env.upstream.logins != 0 {
		t.Fatal("wrong code must not reach upstream login")
	}

	res, err := env.svc.Verify(ctx, VerifyInput{CountryCode: "853", Phone: "66123456", Code: "1234"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if res.Session.UserID != 42 || res.Session.UpstreamToken != "upstream-token" {
		t.Fatalf("unexpected session: %+v", res.Session)
	}
	if !res.Session.ExpiresAt.Equal(env.clock.Add(24 * time.Hour)) {
		t.Fatalf("session should expire after 24h, got %s", res.Session.ExpiresAt)
	}
	if res.User.DisplayName() != "阿榮" {
		t.Fatalf("unexpected display name %q", res.User.DisplayName())
	}

	session, err := env.svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if session.ID != res.Session.ID {
		t.Fatalf("session mismatch")
	}

	if _, err := env.svc.Verify(ctx, VerifyInput{CountryCode: "853", Phone: "66123456", Code: "1234"}); !errors.Is(err, ErrVerificationExpired) {
		t.Fatalf("code must be single use, got %v", err)
	}
}

func TestVerifyGivesUpAfterMaxAttempts(t *testing.T) {
	env := newTestEnv(t, Options{MaxAttempts: 2})
	ctx := context.Background()

	if _, err := env.svc.SendCode(ctx, phone); err != nil {
		t.Fatalf("send code: %v", err)
	}
	wrong := VerifyInput{CountryCode: "853", Phone: "66123456", Code: "0000"}
	for i := 0; i < 2; i++ {
		if _, err := env.svc.Verify(ctx, wrong); !errors.Is(err, ErrWrongCode) {
			t.Fatalf("attempt %d: expected wrong code, got %v", i+1, err)
		}
	}
	if _, err := env.svc.Verify(ctx, wrong); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected too many attempts, got %v", err)
	}
	right := VerifyInput{CountryCode: "853", Phone: "66123456", Code: "1234"}
	if _, err := env.svc.Verify(ctx, right); !errors.Is(err, ErrVerificationExpired) {
		t.Fatalf("expected verification dropped, got %v", err)
	}
}

func TestVerifyAcceptsCodeAtAttemptLimit(t *testing.T) {
	env := newTestEnv(t, Options{MaxAttempts: 2})
	ctx := context.Background()

	if _, err := env.svc.SendCode(ctx, phone); err != nil {
		t.Fatalf("send code: %v", err)
	}
	wrong := VerifyInput{CountryCode: "853", Phone: "66123456", Code: "0000"}
	for i := 0; i < 2; i++ {
		if _, err := env.svc.Verify(ctx, wrong); !errors.Is(err, ErrWrongCode) {
			t.Fatalf("attempt %d: expected wrong code, got %v", i+1, err)
		}
	}
	right := VerifyInput{CountryCode: "853", Phone: "66123456", Code: "1234"}
	if _, err := env.svc.Verify(ctx, right); err != nil {
		t.Fatalf("correct code after %d wrong ones should verify: %v", 2, err)
	}
}

func TestVerifyExpiredCode(t *testing.T) {
	env := newTestEnv(t, Options{OTPTTL: time.Minute})
	ctx := context.Background()

	if _, err := env.svc.SendCode(ctx, phone); err != nil {
		t.Fatalf("send code: %v", err)
	}
	env.advance(2 * time.Minute)
	if _, err := env.svc.Verify(ctx, VerifyInput{CountryCode: "853", Phone: "66123456", Code: "1234"}); !errors.Is(err, ErrVerificationExpired) {
		t.Fatalf("expected expired verification, got %v", err)
	}
}

func TestVerifyReportsUpstreamLoginFailure(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()
	env.upstream.loginErr = &luban.StatusError{Op: "login", StatusCode: 401, Message: "OTP expired"}

	if _, err := env.svc.SendCode(ctx, phone); err != nil {
		t.Fatalf("send code: %v", err)
	}
	_, err := env.svc.Verify(ctx, VerifyInput{CountryCode: "853", Phone: "66123456", Code: "1234"})
	var loginErr *LoginError
	if !errors.As(err, &loginErr) {
		t.Fatalf("expected login error, got %v", err)
	}
	if err.Error() != "登錄失敗: OTP expired" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestResendHonoursCooldown(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	if _, err := env.svc.SendCode(ctx, phone); err != nil {
		t.Fatalf("send code: %v", err)
	}
	env.advance(20 * time.Second)

	_, err := env.svc.Resend(ctx, phone)
	var cooldown *CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("expected cooldown, got %v", err)
	}
	if cooldown.Remaining != 40*time.Second {
		t.Fatalf("expected 40s remaining, got %s", cooldown.Remaining)
	}

	env.advance(41 * time.Second)
	env.upstream.challenge.OTP = "5678"
	if _, err := env.svc.Resend(ctx, phone); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if _, err := env.svc.Verify(ctx, VerifyInput{CountryCode: "853", Phone: "66123456", Code: "1234"}); !errors.Is(err, ErrWrongCode) {
		t.Fatalf("old code must be replaced, got %v", err)
	}
	if _, err := env.svc.Verify(ctx, VerifyInput{CountryCode: "853", Phone: "66123456", Code: "5678"}); err != nil {
		t.Fatalf("verify new code: %v", err)
	}
}

func TestSessionExpiresAfterTTL(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	if _, err := env.svc.SendCode(ctx, phone); err != nil {
		t.Fatalf("send code: %v", err)
	}
	res, err := env.svc.Verify(ctx, VerifyInput{CountryCode: "853", Phone: "66123456", Code: "1234"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	env.advance(23 * time.Hour)
	if _, err := env.svc.Authenticate(ctx, res.Token); err != nil {
		t.Fatalf("session should still be valid: %v", err)
	}
	env.advance(2 * time.Hour)
	if _, err := env.svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected expired session, got %v", err)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	if _, err := env.svc.SendCode(ctx, phone); err != nil {
		t.Fatalf("send code: %v", err)
	}
	res, err := env.svc.Verify(ctx, VerifyInput{CountryCode: "853", Phone: "66123456", Code: "1234"})
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if err := env.svc.Logout(ctx, res.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := env.svc.Authenticate(ctx, res.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized after logout, got %v", err)
	}
	if err := env.svc.Logout(ctx, "garbage"); err != nil {
		t.Fatalf("logout with bad token should be a no-op: %v", err)
	}
}

func TestResendFailureReleasesCooldown(t *testing.T) {
	env := newTestEnv(t, Options{})
	ctx := context.Background()

	if _, err := env.svc.SendCode(ctx, phone); err != nil {
		t.Fatalf("send code: %v", err)
	}
	env.advance(61 * time.Second)

	env.upstream.otpErr = errors.New("webhook down")
	if _, err := env.svc.Resend(ctx, phone); !errors.Is(err, ErrResendFailed) {
		t.Fatalf("expected resend failure, got %v", err)
	}

	env.upstream.otpErr = nil
	if _, err := env.svc.Resend(ctx, phone); err != nil {
		t.Fatalf("retry after a failed resend should not wait for the cooldown: %v", err)
	}
}
