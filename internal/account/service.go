package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/luban-do/lubando/internal/calendar"
	"github.com/luban-do/lubando/internal/checkin"
	"github.com/luban-do/lubando/internal/identity"
	"github.com/luban-do/lubando/internal/logging"
	"github.com/luban-do/lubando/internal/luban"
)

// Profiles looks up the worker profile.
type Profiles interface {
	Get(ctx context.Context, id int64) (identity.User, error)
}

// CheckIns lists stored check-ins.
type CheckIns interface {
	History(ctx context.Context, userID int64, from, to time.Time) ([]checkin.Record, error)
}

// Photos counts uploaded photos per date.
type Photos interface {
	MonthCounts(ctx context.Context, userID int64, year int, month time.Month, order string) (map[string]int, error)
}

// Overview is the account screen header.
type Overview struct {
	Brand       string `json:"brand"`
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
}

// DaySummary is one active day of the month.
type DaySummary struct {
	Date    string `json:"date"`
	AM      bool   `json:"am"`
	PM      bool   `json:"pm"`
	AMSites int    `json:"am_sites"`
	PMSites int    `json:"pm_sites"`
	Photos  int    `json:"photos"`
}

// Month is the activity calendar of one month. Leading counts the blank
// cells before the 1st in a Monday-first row.
type Month struct {
	Year      int          `json:"year"`
	Month     int          `json:"month"`
	MonthName string       `json:"month_name"`
	DayCount  int          `json:"day_count"`
	Leading   int          `json:"leading"`
	Today     string       `json:"today,omitempty"`
	Weeks     [][]string   `json:"weeks"`
	Days      []DaySummary `json:"days"`
}

// Service builds the account screen.
type Service struct {
	brand    string
	profiles Profiles
	checkins CheckIns
	photos   Photos
	loc      *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewService wires the account screen.
func NewService(brand string, profiles Profiles, checkins CheckIns, photos Photos, loc *time.Location, logger *slog.Logger) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		brand:    brand,
		profiles: profiles,
		checkins: checkins,
		photos:   photos,
		loc:      loc,
		now:      time.Now,
		logger:   logging.Component(logger, "account"),
	}
}

// Overview returns the brand and the worker's name and phone.
func (s *Service) Overview(ctx context.Context, userID int64, countryCode, phone string) (Overview, error) {
	fallback := identity.User{ID: userID, Phone: phone, CountryCode: countryCode}
	user, err := s.profiles.Get(ctx, userID)
	switch {
	case errors.Is(err, identity.ErrNotFound):
		user = fallback
	case err != nil:
		return Overview{}, err
	}
	if user.Phone == "" {
		user.Phone, user.CountryCode = phone, countryCode
	}
	return Overview{
		Brand:       s.brand,
		UserID:      userID,
		DisplayName: user.DisplayName(),
		Phone:       user.FullPhone(),
	}, nil
}

// Month summarises check-ins and photos for each active day of the month.
func (s *Service) Month(ctx context.Context, userID int64, year int, month time.Month) (Month, error) {
	from, to := calendar.MonthRange(year, month, s.loc)
	records, err := s.checkins.History(ctx, userID, from, to)
	if err != nil {
		return Month{}, fmt.Errorf("check-in history: %w", err)
	}

	days := map[string]*DaySummary{}
	get := func(date string) *DaySummary {
		d, ok := days[date]
		if !ok {
			d = &DaySummary{Date: date}
			days[date] = d
		}
		return d
	}
	for _, r := range records {
		d := get(r.Date)
		if r.Period == checkin.PM {
			d.PM = true
			d.PMSites++
		} else {
			d.AM = true
			d.AMSites++
		}
	}

	counts, err := s.photos.MonthCounts(ctx, userID, year, month, luban.SortByUpload)
	if err != nil {
		s.logger.Warn("photo counts unavailable", "user_id", userID, "error", err)
	}
	for date, n := range counts {
		get(date).Photos = n
	}

	out := Month{
		Year:      year,
		Month:     int(month),
		MonthName: calendar.MonthName(month),
		DayCount:  calendar.DaysInMonth(year, month),
		Leading:   (int(calendar.FirstWeekday(year, month)) + 6) % 7,
		Days:      make([]DaySummary, 0, len(days)),
	}
	today := s.now().In(s.loc)
	for _, week := range calendar.MonthWeeks(from) {
		row := make([]string, len(week))
		for i, d := range week {
			if d.Month() != month {
				continue
			}
			row[i] = calendar.FormatISO(d)
			if calendar.SameDay(d, today) {
				out.Today = row[i]
			}
		}
		out.Weeks = append(out.Weeks, row)
	}
	for _, d := range days {
		out.Days = append(out.Days, *d)
	}
	sort.Slice(out.Days, func(i, j int) bool { return out.Days[i].Date < out.Days[j].Date })
	return out, nil
}
