package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionPrefix  = "session:v1:"
	pendingPrefix  = "otp:v1:"
	cooldownPrefix = "otp:cooldown:v1:"
)

// RedisStore implements SessionStore and VerificationStore on Redis. Entries
// carry their own TTL so expired records disappear without a sweeper.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore wraps a Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) SaveSession(ctx context.Context, sess Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return s.client.Set(ctx, sessionPrefix+sess.ID, payload, ttl).Err()
}

func (s *RedisStore) Session(ctx context.Context, id string) (Session, error) {
	raw, err := s.client.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return Session{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionPrefix+id).Err()
}

func (s *RedisStore) SavePending(ctx context.Context, p PendingVerification) error {
	ttl := p.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return s.DeletePending(ctx, p.CountryCode, p.Phone)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode verification: %w", err)
	}
	return s.client.Set(ctx, pendingPrefix+phoneKey(p.CountryCode, p.Phone), payload, ttl).Err()
}

func (s *RedisStore) Pending(ctx context.Context, countryCode, phone string) (PendingVerification, error) {
	raw, err := s.client.Get(ctx, pendingPrefix+phoneKey(countryCode, phone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return PendingVerification{}, ErrVerificationExpired
	}
	if err != nil {
		return PendingVerification{}, fmt.Errorf("load verification: %w", err)
	}
	var p PendingVerification
	if err := json.Unmarshal(raw, &p); err != nil {
		return PendingVerification{}, fmt.Errorf("decode verification: %w", err)
	}
	return p, nil
}

func (s *RedisStore) DeletePending(ctx context.Context, countryCode, phone string) error {
	return s.client.Del(ctx, pendingPrefix+phoneKey(countryCode, phone)).Err()
}

func (s *RedisStore) ResetCooldown(ctx context.Context, countryCode, phone string, ttl time.Duration) error {
	return s.client.Set(ctx, cooldownPrefix+phoneKey(countryCode, phone), 1, ttl).Err()
}

func (s *RedisStore) AcquireCooldown(ctx context.Context, countryCode, phone string, ttl time.Duration) (bool, time.Duration, error) {
	key := cooldownPrefix + phoneKey(countryCode, phone)
	ok, err := s.client.SetNX(ctx, key, 1, ttl).Result()
	if err != nil {
		return false, 0, fmt.Errorf("arm cooldown: %w", err)
	}
	if ok {
		return true, 0, nil
	}
	remaining, err := s.client.PTTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("read cooldown: %w", err)
	}
	if remaining < 0 {
		remaining = 0
	}
	return false, remaining, nil
}

func (s *RedisStore) ReleaseCooldown(ctx context.Context, countryCode, phone string) error {
	return s.client.Del(ctx, cooldownPrefix+phoneKey(countryCode, phone)).Err()
}
