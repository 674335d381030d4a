package checkin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	selectionPrefix   = "checkin:selection:v1:"
	selectionTTL      = 24 * time.Hour
	maxUpdateAttempts = 5
)

// SelectionKey identifies the selections of one worker, day and period.
type SelectionKey struct {
	UserID int64
	Date   string
	Period Period
}

func (k SelectionKey) String() string {
	return fmt.Sprintf("%s%d:%s:%s", selectionPrefix, k.UserID, k.Date, k.Period)
}

// SelectionStore keeps in-progress selections between requests.
type SelectionStore interface {
	Load(ctx context.Context, key SelectionKey) (Selections, error)
	// Update applies fn atomically and returns the stored result.
	Update(ctx context.Context, key SelectionKey, fn func(Selections) Selections) (Selections, error)
	Clear(ctx context.Context, key SelectionKey) error
}

// RedisSelectionStore stores selections as JSON under a per-day key.
type RedisSelectionStore struct {
	client *redis.Client
}

// NewRedisSelectionStore wraps a Redis client.
func NewRedisSelectionStore(client *redis.Client) *RedisSelectionStore {
	return &RedisSelectionStore{client: client}
}

func (s *RedisSelectionStore) Load(ctx context.Context, key SelectionKey) (Selections, error) {
	raw, err := s.client.Get(ctx, key.String()).Bytes()
	return decodeSelections(raw, err)
}

func (s *RedisSelectionStore) Update(ctx context.Context, key SelectionKey, fn func(Selections) Selections) (Selections, error) {
	var result Selections
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key.String()).Bytes()
		current, err := decodeSelections(raw, err)
		if err != nil {
			return err
		}
		result = fn(current)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(result) == 0 {
				pipe.Del(ctx, key.String())
				return nil
			}
			payload, err := json.Marshal(result)
			if err != nil {
				return fmt.Errorf("encode selections: %w", err)
			}
			pipe.Set(ctx, key.String(), payload, selectionTTL)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := s.client.Watch(ctx, txf, key.String())
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("update selections: too much contention on %s", key)
}

func (s *RedisSelectionStore) Clear(ctx context.Context, key SelectionKey) error {
	return s.client.Del(ctx, key.String()).Err()
}

func decodeSelections(raw []byte, err error) (Selections, error) {
	if errors.Is(err, redis.Nil) {
		return Selections{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load selections: %w", err)
	}
	var sels Selections
	if err := json.Unmarshal(raw, &sels); err != nil {
		return nil, fmt.Errorf("decode selections: %w", err)
	}
	return sels, nil
}

// MemorySelectionStore keeps selections in process memory.
type MemorySelectionStore struct {
	mu   sync.Mutex
	sels map[SelectionKey]Selections
}

// NewMemorySelectionStore builds an empty in-memory store.
func NewMemorySelectionStore() *MemorySelectionStore {
	return &MemorySelectionStore{sels: make(map[SelectionKey]Selections)}
}

func (m *MemorySelectionStore) Load(_ context.Context, key SelectionKey) (Selections, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sels[key].clone(), nil
}

func (m *MemorySelectionStore) Update(_ context.Context, key SelectionKey, fn func(Selections) Selections) (Selections, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := fn(m.sels[key].clone())
	if len(next) == 0 {
		delete(m.sels, key)
		return Selections{}, nil
	}
	m.sels[key] = next.clone()
	return next, nil
}

func (m *MemorySelectionStore) Clear(_ context.Context, key SelectionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sels, key)
	return nil
}
