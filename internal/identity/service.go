package identity

import (
    "context"
    "fmt"
    "strconv"
    "time"

    "github.com/luban-do/lubando/internal/luban"
)

// Service keeps a local copy of the worker profiles returned at login.
type Service struct {
    repo Repository
    now  func() time.Time
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
    return &Service{repo: repo, now: time.Now}
}

// LoginInput is the verified phone plus whatever profile upstream returned.
type LoginInput struct {
    UserID      string
    Phone       string
    CountryCode string
    Profile     *luban.User
}

// Record stores the profile seen at login and returns it.
func (s *Service) Record(ctx context.Context, in LoginInput) (User, error) {
    id, err := strconv.ParseInt(in.UserID, 10, 64)
    if err != nil {
        return User{}, fmt.Errorf("invalid user id %q: %w", in.UserID, err)
    }

    now := s.now().UTC()
    user := User{
        ID:          id,
        Phone:       in.Phone,
        CountryCode: in.CountryCode,
        CreatedAt:   now,
        LastLogin:   now,
    }
    if p := in.Profile; p != nil {
        user.FirstName = p.FirstName
        user.LastName = p.LastName
        user.Nickname = p.Nickname
        if p.Number != "" {
            user.Phone = p.Number
        }
        if p.Country != "" {
            user.CountryCode = p.Country
        }
        if p.CreatedAt > 0 {
            user.CreatedAt = time.UnixMilli(p.CreatedAt).UTC()
        }
    }

    if err := s.repo.Upsert(ctx, user); err != nil {
        return User{}, fmt.Errorf("store user: %w", err)
    }
    return user, nil
}

// Get loads a worker profile.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
    return s.repo.FindByID(ctx, id)
}
