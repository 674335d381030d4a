package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are embedded in the session token. The subject carries the session id.
type Claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies session tokens with HS256.
type Tokens struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewTokens builds a token signer.
func NewTokens(secret, issuer string) (*Tokens, error) {
	if secret == "" {
		return nil, errors.New("auth: session secret must be provided")
	}
	return &Tokens{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

// Issue signs a token that expires together with the session.
func (t *Tokens) Issue(s Session) (string, error) {
	claims := &Claims{
		UserID: s.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.ID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
			NotBefore: jwt.NewNumericDate(s.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature, issuer and expiry of a token.
func (t *Tokens) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, errors.New("auth: token is empty")
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
		jwt.WithIssuer(t.issuer),
	)

	var claims Claims
	if _, err := parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("auth: parse token: %w", err)
	}
	if claims.Subject == "" || claims.UserID == 0 {
		return nil, errors.New("auth: token missing session claims")
	}
	return &claims, nil
}
