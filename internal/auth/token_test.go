package auth

import (
	"testing"
	"time"
)

func TestTokenSubjectIsSessionID(t *testing.T) {
	tokens, err := NewTokens("test-secret", "lubando")
	if err != nil {
		t.Fatalf("tokens: %v", err)
	}
	now := time.Date(2026, time.October, 19, 8, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return now }

	signed, err := tokens.Issue(Session{ID: "sess-1", UserID: 42, CreatedAt: now, ExpiresAt: now.Add(24 * time.Hour)})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := tokens.Parse(signed)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "sess-1" || claims.UserID != 42 {
		t.Fatalf("unexpected claims: sub=%q uid=%d", claims.Subject, claims.UserID)
	}

	now = now.Add(25 * time.Hour)
	if _, err := tokens.Parse(signed); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}
