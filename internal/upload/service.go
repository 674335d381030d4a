package upload

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/luban-do/lubando/internal/calendar"
	"github.com/luban-do/lubando/internal/logging"
	"github.com/luban-do/lubando/internal/luban"
	"github.com/luban-do/lubando/internal/metrics"
	"github.com/luban-do/lubando/internal/notification"
)

// Upstream is the part of the upstream API used for photos.
type Upstream interface {
	Uploads(ctx context.Context, userID int64, sort string) ([]luban.Upload, error)
	UploadPhoto(ctx context.Context, photo luban.Photo, progress luban.ProgressFunc) error
}

// Service relays photos to the upload webhook and serves the gallery.
type Service struct {
	upstream  Upstream
	notifier  notification.Notifier
	batches   *tracker
	imageBase string
	loc       *time.Location
	now       func() time.Time
	logger    *slog.Logger

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService wires the upload flow. imageBase is prefixed to upstream file paths.
func NewService(upstream Upstream, notifier notification.Notifier, imageBase string, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	base, cancel := context.WithCancel(context.Background())
	s := &Service{
		upstream:  upstream,
		notifier:  notifier,
		imageBase: imageBase,
		loc:       loc,
		now:       time.Now,
		logger:    logging.Component(logger, "upload"),
		base:      base,
		cancel:    cancel,
	}
	s.batches = newTracker(func() time.Time { return s.now() })
	return s
}

// StartBatch registers the files and relays them in the background. The
// returned snapshot has every file pending.
func (s *Service) StartBatch(userID int64, date time.Time, files []File) (Batch, error) {
	if len(files) == 0 {
		return Batch{}, ErrNothingToUpload
	}
	if userID == 0 {
		return Batch{}, ErrNoUserID
	}

	batch := Batch{
		ID:        uuid.NewString(),
		UserID:    userID,
		Date:      calendar.FormatISO(date),
		State:     BatchRunning,
		Files:     make([]FileState, len(files)),
		CreatedAt: s.now(),
	}
	for i, f := range files {
		batch.Files[i] = FileState{Name: f.Name, Size: len(f.Data), Status: StatusPending}
	}
	s.batches.add(batch)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(s.base, batch.ID, userID, date, files)
	}()
	return batch.clone(), nil
}

func (s *Service) run(ctx context.Context, id string, userID int64, date time.Time, files []File) {
	n := len(files)
	var succeeded, failed int

	for i, f := range files {
		s.batches.update(id, func(b *Batch) {
			b.Files[i].Status = StatusUploading
			b.Progress = overall(i, 0, n)
		})

		photo := luban.Photo{UserID: userID, Date: date, FileName: f.Name, ContentType: f.ContentType, Data: f.Data}
		err := s.upstream.UploadPhoto(ctx, photo, func(sent, total int64) {
			fp := filePercent(sent, total)
			s.batches.update(id, func(b *Batch) {
				b.Files[i].Progress = fp
				b.Progress = overall(i, fp, n)
			})
		})

		if err != nil {
			failed++
			msg := luban.UploadErrorMessage(err)
			metrics.Uploads.WithLabelValues("failure").Inc()
			s.logger.Warn("photo upload failed", "batch_id", id, "file", f.Name, "error", err)
			s.batches.update(id, func(b *Batch) {
				b.Files[i].Status = StatusError
				b.Files[i].Error = msg
				b.Failed = failed
			})
			continue
		}

		succeeded++
		metrics.Uploads.WithLabelValues("success").Inc()
		s.batches.update(id, func(b *Batch) {
			b.Files[i].Status = StatusSuccess
			b.Files[i].Progress = 100
			b.Succeeded = succeeded
			b.Progress = int(math.Round(float64((i+1)*100) / float64(n)))
		})
	}

	msg, isErr := Summary(succeeded, failed)
	finished := s.now()
	s.batches.update(id, func(b *Batch) {
		b.State = BatchDone
		b.Progress = 100
		b.Message = msg
		b.FinishedAt = &finished
	})
	s.logger.Info("upload batch finished", "batch_id", id, "user_id", userID, "succeeded", succeeded, "failed", failed)

	kind := notification.KindSuccess
	if isErr {
		kind = notification.KindError
	}
	if s.notifier != nil {
		if err := s.notifier.Send(context.WithoutCancel(ctx), notification.Message{Kind: kind, UserID: userID, Text: msg}); err != nil {
			s.logger.Warn("send notification", "error", err)
		}
	}
}

// Batch returns the live snapshot of a batch owned by the user.
func (s *Service) Batch(userID int64, id string) (Batch, error) {
	b, ok := s.batches.get(id)
	if !ok || b.UserID != userID {
		return Batch{}, ErrBatchNotFound
	}
	return b, nil
}

// Shutdown cancels running batches and waits for them to stop.
func (s *Service) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Today is the current date in the service timezone.
func (s *Service) Today() time.Time {
	return calendar.Day(s.now().In(s.loc))
}

// Location is the timezone dates are computed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) imageURL(path string) string {
	if path == "" {
		return ""
	}
	return strings.TrimRight(s.imageBase, "/") + "/" + strings.TrimLeft(path, "/")
}

func filePercent(sent, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(sent) / float64(total) * 90))
}

func overall(index, fileProgress, n int) int {
	return int(math.Round(float64(index*100+fileProgress) / float64(n)))
}
