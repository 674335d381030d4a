package devotional

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/luban-do/lubando/internal/calendar"
	"github.com/luban-do/lubando/internal/logging"
	"github.com/luban-do/lubando/internal/luban"
)

// Upstream is the part of the upstream API serving devotional content.
type Upstream interface {
	OrderOfMass(ctx context.Context, day time.Time) (string, error)
	OpusDei(ctx context.Context, day time.Time) ([]luban.Reading, error)
	Saints(ctx context.Context, day time.Time) ([]luban.Saint, error)
	Quote(ctx context.Context) (luban.QuoteFeed, error)
}

// Service assembles the daily devotional.
type Service struct {
	upstream Upstream
	cache    Cache
	ttl      time.Duration
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewService wires the devotional reader. A nil cache disables caching.
func NewService(upstream Upstream, cache Cache, ttl time.Duration, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		upstream: upstream,
		cache:    cache,
		ttl:      ttl,
		loc:      loc,
		now:      time.Now,
		logger:   logging.Component(logger, "devotional"),
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

// Day fetches the mass, the hours and the saints for a date. The mass is
// required; the other feeds degrade to a warning or an empty list.
func (s *Service) Day(ctx context.Context, day time.Time) (Day, error) {
	date := calendar.FormatCompact(day)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, date)
		if err != nil {
			s.logger.Warn("devotional cache read", "date", date, "error", err)
		} else if ok {
			return cached, nil
		}
	}

	mass, err := s.upstream.OrderOfMass(ctx, day)
	if err != nil {
		s.logger.Error("fetch order of mass", "date", date, "error", err)
		return Day{}, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	out := Day{Date: date, MassHTML: mass, Readings: []luban.Reading{}, Saints: []luban.Saint{}}

	readings, err := s.upstream.OpusDei(ctx, day)
	if err != nil {
		s.logger.Warn("fetch opus dei", "date", date, "error", err)
		out.Warning = "Failed to fetch Opus Dei data: " + err.Error()
	} else {
		if len(readings) != ExpectedReadings {
			s.logger.Warn("unexpected number of readings", "date", date, "count", len(readings))
		}
		if readings != nil {
			out.Readings = readings
		}
	}

	saints, err := s.upstream.Saints(ctx, day)
	if err != nil {
		s.logger.Warn("fetch saints", "date", date, "error", err)
	} else if saints != nil {
		out.Saints = saints
	}

	if s.cache != nil && out.Warning == "" {
		if err := s.cache.Set(ctx, out, s.ttl); err != nil {
			s.logger.Warn("devotional cache write", "date", date, "error", err)
		}
	}
	return out, nil
}

// ReadingIndex picks the canonical hour for the hour of the day.
func ReadingIndex(hour int) int {
	switch {
	case hour >= 0 && hour < 6:
		return 0
	case hour >= 6 && hour < 9:
		return 1
	case hour >= 9 && hour < 18:
		return 2
	case hour >= 18 && hour < 21:
		return 3
	default:
		return 4
	}
}

// CurrentIndex is ReadingIndex for the current time.
func (s *Service) CurrentIndex() int {
	return ReadingIndex(s.now().In(s.loc).Hour())
}

// Reading selects one hour from the day's readings.
func (s *Service) Reading(ctx context.Context, day time.Time, index int) (Reading, error) {
	if index < 0 || index >= len(Hours) {
		return Reading{}, ErrInvalidIndex
	}
	d, err := s.Day(ctx, day)
	if err != nil {
		return Reading{}, err
	}
	return SelectReading(d.Readings, index), nil
}

// SelectReading finds the reading whose type names the hour at index.
func SelectReading(readings []luban.Reading, index int) Reading {
	hour := Hours[index]
	out := Reading{Index: index, Title: hour.Title, Short: hour.Short}
	for _, r := range readings {
		if strings.Contains(strings.ToLower(r.Type), hour.Key) {
			out.Available = true
			out.Title = titleFor(r.Type)
			out.Text = r.Text
			return out
		}
	}
	out.Message = ErrReadingUnavailable.Error()
	return out
}

func titleFor(kind string) string {
	lower := strings.ToLower(kind)
	for _, h := range Hours {
		if strings.Contains(lower, h.Key) {
			return h.Title
		}
	}
	return kind
}

// Quote returns the zh_hk text, context and reference of a random quote.
func (s *Service) Quote(ctx context.Context) (Quote, error) {
	feed, err := s.upstream.Quote(ctx)
	if err != nil {
		return Quote{}, err
	}
	text, okText := findText(feed.Text)
	qctx, okCtx := findText(feed.Context)
	var ref *luban.QuoteRef
	for i := range feed.Ref {
		if feed.Ref[i].Language == quoteLanguage {
			ref = &feed.Ref[i]
			break
		}
	}
	if !okText || !okCtx || ref == nil {
		return Quote{}, ErrNoQuote
	}
	return Quote{
		Text:     text,
		Context:  qctx,
		Book:     ref.Book,
		Chapter:  ref.Chapter,
		Verse:    ref.Verse,
		VerseEnd: ref.VerseEnd,
	}, nil
}

func findText(items []luban.QuoteText) (string, bool) {
	for _, t := range items {
		if t.Language == quoteLanguage {
			return t.Text, true
		}
	}
	return "", false
}
