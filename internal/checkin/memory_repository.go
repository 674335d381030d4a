package checkin

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryRepository struct {
	mu      sync.RWMutex
	records map[int64][]Record
}

// NewMemoryRepository builds an in-memory check-in store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{records: make(map[int64][]Record)}
}

func (r *memoryRepository) Add(_ context.Context, userID int64, records []Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[userID] = append(r.records[userID], records...)
	return nil
}

func (r *memoryRepository) ListBetween(_ context.Context, userID int64, from, to time.Time) ([]Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lo, hi := from.Format("2006-01-02"), to.Format("2006-01-02")
	var out []Record
	for _, rec := range r.records[userID] {
		if rec.Date >= lo && rec.Date < hi {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Time.Before(out[j].Time)
	})
	return out, nil
}
