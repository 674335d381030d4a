package checkin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luban-do/lubando/internal/calendar"
	"github.com/luban-do/lubando/internal/logging"
	"github.com/luban-do/lubando/internal/luban"
	"github.com/luban-do/lubando/internal/metrics"
	"github.com/luban-do/lubando/internal/notification"
)

// Upstream is the part of the upstream API used for check-ins.
type Upstream interface {
	Sites(ctx context.Context) ([]luban.Site, error)
	WorkTypes(ctx context.Context) ([]luban.WorkType, error)
	CreateShift(ctx context.Context, in luban.ShiftInput) (int64, error)
	CreateShiftSite(ctx context.Context, in luban.ShiftSiteInput) error
	Shifts(ctx context.Context, userID int64, day time.Time) []luban.Shift
}

// Service runs the check-in screen.
type Service struct {
	upstream   Upstream
	selections SelectionStore
	records    Repository
	notifier   notification.Notifier
	loc        *time.Location
	now        func() time.Time
	logger     *slog.Logger
}

// NewService wires the check-in flow. Dates are computed in loc.
func NewService(upstream Upstream, selections SelectionStore, records Repository, notifier notification.Notifier, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		upstream:   upstream,
		selections: selections,
		records:    records,
		notifier:   notifier,
		loc:        loc,
		now:        time.Now,
		logger:     logging.Component(logger, "checkin"),
	}
}

func (s *Service) today() time.Time {
	return calendar.Day(s.now().In(s.loc))
}

func (s *Service) key(userID int64, period Period) SelectionKey {
	return SelectionKey{UserID: userID, Date: calendar.FormatISO(s.today()), Period: period}
}

// Catalogue fetches sites and work types concurrently.
func (s *Service) Catalogue(ctx context.Context) (Catalogue, error) {
	var cat Catalogue
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sites, err := s.upstream.Sites(gctx)
		if err != nil {
			return fmt.Errorf("list sites: %w", err)
		}
		cat.Sites = sites
		return nil
	})
	g.Go(func() error {
		types, err := s.upstream.WorkTypes(gctx)
		if err != nil {
			return fmt.Errorf("list work types: %w", err)
		}
		cat.WorkTypes = types
		return nil
	})
	if err := g.Wait(); err != nil {
		return Catalogue{}, err
	}
	return cat, nil
}

// Board assembles today's check-in screen.
func (s *Service) Board(ctx context.Context, userID int64) (Board, error) {
	cat, err := s.Catalogue(ctx)
	if err != nil {
		return Board{}, err
	}
	today, err := s.Today(ctx, userID)
	if err != nil {
		return Board{}, err
	}

	day := s.today()
	board := Board{
		Date:      calendar.FormatISO(day),
		DateLabel: calendar.DisplayDate(day),
		Sites:     cat.Sites,
		WorkTypes: cat.WorkTypes,
	}
	for _, p := range Periods {
		sels, err := s.selections.Load(ctx, s.key(userID, p))
		if err != nil {
			return Board{}, err
		}
		recs := filterPeriod(today, p)
		board.Periods = append(board.Periods, PeriodState{
			Period:     p,
			Label:      p.Label(),
			CheckedIn:  len(recs) > 0,
			Records:    recs,
			Selections: sels,
		})
	}
	return board, nil
}

// Selections returns the in-progress selections for a period.
func (s *Service) Selections(ctx context.Context, userID int64, period Period) (Selections, error) {
	return s.selections.Load(ctx, s.key(userID, period))
}

// ToggleSite selects or deselects a site.
func (s *Service) ToggleSite(ctx context.Context, userID int64, period Period, siteID int64) (Selections, error) {
	return s.selections.Update(ctx, s.key(userID, period), func(cur Selections) Selections {
		return cur.ToggleSite(siteID)
	})
}

// ToggleWorkType selects or deselects a work type at a site.
func (s *Service) ToggleWorkType(ctx context.Context, userID int64, period Period, siteID, workTypeID int64) (Selections, error) {
	return s.selections.Update(ctx, s.key(userID, period), func(cur Selections) Selections {
		return cur.ToggleWorkType(siteID, workTypeID)
	})
}

// Submit records the period's selections upstream: one shift, then one
// shift-site per selected site posted concurrently.
func (s *Service) Submit(ctx context.Context, userID int64, period Period) (SubmitResult, error) {
	key := s.key(userID, period)
	sels, err := s.selections.Load(ctx, key)
	if err != nil {
		return SubmitResult{}, err
	}
	if len(sels) == 0 {
		metrics.CheckIns.WithLabelValues(string(period), "invalid").Inc()
		return SubmitResult{}, ErrNoSelection
	}

	sites := s.siteNames(ctx)
	if missing := sels.MissingWorkTypes(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, id := range missing {
			names[i] = nameOf(sites, id)
		}
		metrics.CheckIns.WithLabelValues(string(period), "invalid").Inc()
		return SubmitResult{}, &MissingWorkTypesError{Sites: names}
	}
	if userID == 0 {
		return SubmitResult{}, ErrNoUserID
	}

	today, err := s.Today(ctx, userID)
	if err != nil {
		return SubmitResult{}, err
	}
	if len(filterPeriod(today, period)) > 0 {
		return SubmitResult{}, ErrAlreadyCheckedIn
	}

	day := s.today()
	records, err := s.record(ctx, userID, period, day, sels, sites)
	if err != nil {
		metrics.CheckIns.WithLabelValues(string(period), "failure").Inc()
		submitErr := &SubmitError{Err: err}
		s.logger.Error("check-in failed", "user_id", userID, "period", period, "error", err)
		s.notify(ctx, notification.KindError, userID, submitErr.Error())
		return SubmitResult{}, submitErr
	}

	if err := s.records.Add(ctx, userID, records); err != nil {
		s.logger.Error("store check-in", "user_id", userID, "error", err)
	}
	if err := s.selections.Clear(ctx, key); err != nil {
		s.logger.Warn("clear selections", "user_id", userID, "error", err)
	}

	msg := fmt.Sprintf("已成功在%s簽到 %d 個地點！", period.Label(), len(records))
	metrics.CheckIns.WithLabelValues(string(period), "success").Inc()
	s.notify(ctx, notification.KindSuccess, userID, msg)

	refreshed, err := s.Today(ctx, userID)
	if err != nil {
		refreshed = records
	}
	return SubmitResult{Period: period, Count: len(records), Message: msg, Today: refreshed}, nil
}

func (s *Service) record(ctx context.Context, userID int64, period Period, day time.Time, sels Selections, sites map[int64]string) ([]Record, error) {
	shiftID, err := s.upstream.CreateShift(ctx, luban.ShiftInput{UserID: userID, Date: day, Period: string(period)})
	if err != nil {
		return nil, err
	}

	// Every site is posted even if a sibling fails; the first failure is reported.
	var g errgroup.Group
	for _, sel := range sels {
		sel := sel
		g.Go(func() error {
			return s.upstream.CreateShiftSite(ctx, luban.ShiftSiteInput{
				ShiftID:   shiftID,
				SiteID:    sel.SiteID,
				WorkTypes: sel.WorkTypes,
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	records := make([]Record, len(sels))
	for i, sel := range sels {
		records[i] = Record{
			Date:      calendar.FormatISO(day),
			Time:      now,
			Period:    period,
			SiteID:    sel.SiteID,
			SiteName:  nameOf(sites, sel.SiteID),
			WorkTypes: sel.WorkTypes,
			ShiftID:   shiftID,
		}
	}
	return records, nil
}

// Today returns today's check-ins. For each period, records found upstream
// replace the ones stored locally.
func (s *Service) Today(ctx context.Context, userID int64) ([]Record, error) {
	day := s.today()
	local, err := s.records.ListBetween(ctx, userID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}

	remote := map[Period][]Record{}
	for _, shift := range s.upstream.Shifts(ctx, userID, day) {
		period, err := ParsePeriod(shift.Shift)
		if err != nil {
			continue
		}
		for _, site := range shift.Sites {
			wts := []int64(site.WorkTypes)
			if wts == nil {
				wts = []int64{}
			}
			remote[period] = append(remote[period], Record{
				Date:      calendar.FormatISO(day),
				Time:      shift.CreatedTime(),
				Period:    period,
				SiteID:    site.SiteID,
				SiteName:  site.SiteName(),
				WorkTypes: wts,
				ShiftID:   shift.ID,
			})
		}
	}

	var out []Record
	for _, p := range Periods {
		if recs := remote[p]; len(recs) > 0 {
			out = append(out, recs...)
			continue
		}
		out = append(out, filterPeriod(local, p)...)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period == AM
		}
		return out[i].Time.Before(out[j].Time)
	})
	if out == nil {
		out = []Record{}
	}
	return out, nil
}

// History returns check-ins stored locally for the date range.
func (s *Service) History(ctx context.Context, userID int64, from, to time.Time) ([]Record, error) {
	return s.records.ListBetween(ctx, userID, from, to)
}

// Location is the timezone dates are computed in.
func (s *Service) Location() *time.Location {
	return s.loc
}

func (s *Service) siteNames(ctx context.Context) map[int64]string {
	sites, err := s.upstream.Sites(ctx)
	if err != nil {
		s.logger.Warn("list sites for names", "error", err)
		return nil
	}
	names := make(map[int64]string, len(sites))
	for _, site := range sites {
		names[site.ID] = site.DisplayName()
	}
	return names
}

func (s *Service) notify(ctx context.Context, kind string, userID int64, text string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, notification.Message{Kind: kind, UserID: userID, Text: text}); err != nil {
		s.logger.Warn("send notification", "error", err)
	}
}

func nameOf(names map[int64]string, id int64) string {
	if name := strings.TrimSpace(names[id]); name != "" {
		return name
	}
	return luban.UnknownSite
}

func filterPeriod(records []Record, p Period) []Record {
	out := []Record{}
	for _, r := range records {
		if r.Period == p {
			out = append(out, r)
		}
	}
	return out
}
