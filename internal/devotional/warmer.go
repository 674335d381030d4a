package devotional

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/luban-do/lubando/internal/logging"
)

// Warmer refreshes today's devotional on a cron schedule so the first
// reader of the day is served from the cache.
type Warmer struct {
	cron    *cron.Cron
	svc     *Service
	timeout time.Duration
	logger  *slog.Logger
}

// NewWarmer schedules Warm with a standard five-field cron expression evaluated
// in the service timezone.
func NewWarmer(svc *Service, schedule string, timeout time.Duration, logger *slog.Logger) (*Warmer, error) {
	w := &Warmer{
		cron:    cron.New(cron.WithLocation(svc.Location())),
		svc:     svc,
		timeout: timeout,
		logger:  logging.Component(logger, "devotional.warmer"),
	}
	if _, err := w.cron.AddFunc(schedule, w.Warm); err != nil {
		return nil, err
	}
	return w, nil
}

// Warm fetches today's content.
func (w *Warmer) Warm() {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	day, err := w.svc.Day(ctx, w.svc.Today())
	if err != nil {
		w.logger.Warn("devotional warm failed", "error", err)
		return
	}
	w.logger.Info("devotional warmed", "date", day.Date, "readings", len(day.Readings))
}

// Start runs the scheduler in the background.
func (w *Warmer) Start() { w.cron.Start() }

// Stop halts the scheduler and waits for a running job until ctx is done.
func (w *Warmer) Stop(ctx context.Context) {
	done := w.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}
