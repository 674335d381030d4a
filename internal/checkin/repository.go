package checkin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository keeps the check-ins submitted through this service.
type Repository interface {
	Add(ctx context.Context, userID int64, records []Record) error
	// ListBetween returns records with from <= date < to, oldest first.
	ListBetween(ctx context.Context, userID int64, from, to time.Time) ([]Record, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed check-in repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Add inserts all records of one submission in a single transaction.
func (r *PostgresRepository) Add(ctx context.Context, userID int64, records []Record) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`INSERT INTO checkins (id, user_id, shift_id, day, period, site_id, site_name, work_type_ids, checked_in_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New(), userID, rec.ShiftID, rec.Date, string(rec.Period), rec.SiteID, rec.SiteName, rec.WorkTypes, rec.Time.UTC())
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ListBetween returns the worker's check-ins in the date range.
func (r *PostgresRepository) ListBetween(ctx context.Context, userID int64, from, to time.Time) ([]Record, error) {
	rows, err := r.db.Query(ctx, `SELECT to_char(day, 'YYYY-MM-DD'), checked_in_at, period, site_id, site_name, work_type_ids, shift_id
        FROM checkins
        WHERE user_id = $1 AND day >= $2::date AND day < $3::date
        ORDER BY day, checked_in_at`, userID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec    Record
			period string
		)
		if err := rows.Scan(&rec.Date, &rec.Time, &period, &rec.SiteID, &rec.SiteName, &rec.WorkTypes, &rec.ShiftID); err != nil {
			return nil, err
		}
		rec.Period = Period(period)
		records = append(records, rec)
	}
	return records, rows.Err()
}
