package upload

import (
	"sync"
	"time"
)

const finishedRetention = time.Hour

// tracker holds batch progress in process memory. Batches are pruned an hour
// after they finish.
type tracker struct {
	mu      sync.RWMutex
	batches map[string]*Batch
	now     func() time.Time
}

func newTracker(now func() time.Time) *tracker {
	return &tracker{batches: make(map[string]*Batch), now: now}
}

func (t *tracker) add(b Batch) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prune()
	stored := b.clone()
	t.batches[b.ID] = &stored
}

func (t *tracker) update(id string, fn func(*Batch)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if b, ok := t.batches[id]; ok {
		fn(b)
	}
}

func (t *tracker) get(id string) (Batch, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.batches[id]
	if !ok {
		return Batch{}, false
	}
	return b.clone(), true
}

func (t *tracker) prune() {
	cutoff := t.now().Add(-finishedRetention)
	for id, b := range t.batches {
		if b.FinishedAt != nil && b.FinishedAt.Before(cutoff) {
			delete(t.batches, id)
		}
	}
}
