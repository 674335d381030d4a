package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when no worker matches the id.
var ErrNotFound = errors.New("user not found")

// Repository persists worker profiles.
type Repository interface {
	Upsert(ctx context.Context, user User) error
	FindByID(ctx context.Context, id int64) (User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Upsert inserts the worker or refreshes the profile fields and last login.
func (r *PostgresRepository) Upsert(ctx context.Context, user User) error {
	_, err := r.db.Exec(ctx, `INSERT INTO workers (id, phone, country_code, first_name, last_name, nickname, created_at, last_login)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO UPDATE SET
            phone = EXCLUDED.phone,
            country_code = EXCLUDED.country_code,
            first_name = EXCLUDED.first_name,
            last_name = EXCLUDED.last_name,
            nickname = EXCLUDED.nickname,
            last_login = EXCLUDED.last_login`,
		user.ID, user.Phone, user.CountryCode, user.FirstName, user.LastName, user.Nickname,
		user.CreatedAt.UTC(), user.LastLogin.UTC())
	return err
}

// FindByID fetches a worker by upstream id.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (User, error) {
	row := r.db.QueryRow(ctx, `SELECT id, phone, country_code, first_name, last_name, nickname, created_at, last_login
        FROM workers WHERE id = $1`, id)
	var user User
	if err := row.Scan(&user.ID, &user.Phone, &user.CountryCode, &user.FirstName, &user.LastName, &user.Nickname, &user.CreatedAt, &user.LastLogin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	user.LastLogin = user.LastLogin.UTC()
	return user, nil
}
