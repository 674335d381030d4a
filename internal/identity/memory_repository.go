package identity

import (
    "context"
    "sync"
)

type memoryRepository struct {
    mu    sync.RWMutex
    users map[int64]User
}

// NewMemoryRepository builds an in-memory worker store for development and tests.
func NewMemoryRepository() Repository {
    return &memoryRepository{users: make(map[int64]User)}
}

func (r *memoryRepository) Upsert(_ context.Context, user User) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if existing, ok := r.users[user.ID]; ok && !existing.CreatedAt.IsZero() {
        user.CreatedAt = existing.CreatedAt
    }
    r.users[user.ID] = user
    return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id int64) (User, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    user, ok := r.users[id]
    if !ok {
        return User{}, ErrNotFound
    }
    return user, nil
}
