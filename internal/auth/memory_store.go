package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements SessionStore and VerificationStore in process memory.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]Session
	pending   map[string]PendingVerification
	cooldowns map[string]time.Time
	now       func() time.Time
}

// NewMemoryStore builds an in-memory store for development and tests.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions:  make(map[string]Session),
		pending:   make(map[string]PendingVerification),
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
	}
}

func (m *MemoryStore) SaveSession(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemoryStore) Session(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	if s.Expired(m.now()) {
		delete(m.sessions, id)
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (m *MemoryStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *MemoryStore) SavePending(_ context.Context, p PendingVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[phoneKey(p.CountryCode, p.Phone)] = p
	return nil
}

func (m *MemoryStore) Pending(_ context.Context, countryCode, phone string) (PendingVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := phoneKey(countryCode, phone)
	p, ok := m.pending[key]
	if !ok || !m.now().Before(p.ExpiresAt) {
		delete(m.pending, key)
		return PendingVerification{}, ErrVerificationExpired
	}
	return p, nil
}

func (m *MemoryStore) DeletePending(_ context.Context, countryCode, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, phoneKey(countryCode, phone))
	return nil
}

func (m *MemoryStore) ResetCooldown(_ context.Context, countryCode, phone string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cooldowns[phoneKey(countryCode, phone)] = m.now().Add(ttl)
	return nil
}

func (m *MemoryStore) AcquireCooldown(_ context.Context, countryCode, phone string, ttl time.Duration) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := phoneKey(countryCode, phone)
	now := m.now()
	if until, ok := m.cooldowns[key]; ok && now.Before(until) {
		return false, until.Sub(now), nil
	}
	m.cooldowns[key] = now.Add(ttl)
	return true, 0, nil
}

func (m *MemoryStore) ReleaseCooldown(_ context.Context, countryCode, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cooldowns, phoneKey(countryCode, phone))
	return nil
}
