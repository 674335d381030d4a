package upload

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/luban-do/lubando/internal/calendar"
	"github.com/luban-do/lubando/internal/luban"
)

// Day lists the photos whose sort date is the given day, ordered by sort time.
func (s *Service) Day(ctx context.Context, userID int64, day time.Time, order string) ([]Item, error) {
	uploads, err := s.upstream.Uploads(ctx, userID, order)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	date := calendar.FormatISO(day)
	var matched []luban.Upload
	for _, u := range uploads {
		if u.SortDate == date {
			matched = append(matched, u)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].SortTime, matched[j].SortTime
		if a == "" || b == "" {
			return false
		}
		return a < b
	})

	items := make([]Item, 0, len(matched))
	for _, u := range matched {
		items = append(items, s.toItem(u))
	}
	return items, nil
}

// Week reports which days of the Monday-start week containing day have photos.
func (s *Service) Week(ctx context.Context, userID int64, day time.Time, order string) ([]WeekDay, error) {
	counts, err := s.countByDate(ctx, userID, order)
	if err != nil {
		return nil, err
	}
	week := calendar.WeekOf(day)
	out := make([]WeekDay, len(week))
	for i, d := range week {
		date := calendar.FormatISO(d)
		out[i] = WeekDay{
			Date:      date,
			Weekday:   calendar.WeekdayName(d.Weekday()),
			HasPhotos: counts[date] > 0,
			Count:     counts[date],
		}
	}
	return out, nil
}

// MonthCounts returns the number of photos per date within the month.
func (s *Service) MonthCounts(ctx context.Context, userID int64, year int, month time.Month, order string) (map[string]int, error) {
	counts, err := s.countByDate(ctx, userID, order)
	if err != nil {
		return nil, err
	}
	from, to := calendar.MonthRange(year, month, s.loc)
	lo, hi := calendar.FormatISO(from), calendar.FormatISO(to)
	out := make(map[string]int)
	for date, n := range counts {
		if date >= lo && date < hi {
			out[date] = n
		}
	}
	return out, nil
}

// MonthDates lists the distinct dates with photos within the month, ascending.
func (s *Service) MonthDates(ctx context.Context, userID int64, year int, month time.Month, order string) ([]string, error) {
	counts, err := s.MonthCounts(ctx, userID, year, month, order)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(counts))
	for d := range counts {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *Service) countByDate(ctx context.Context, userID int64, order string) (map[string]int, error) {
	uploads, err := s.upstream.Uploads(ctx, userID, order)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	counts := make(map[string]int)
	for _, u := range uploads {
		if d := u.SortDate; d != "" {
			counts[d]++
		}
	}
	return counts, nil
}

func (s *Service) toItem(u luban.Upload) Item {
	item := Item{
		ID:         string(u.ID),
		Date:       u.SortDate,
		Time:       u.SortTime,
		FileName:   u.OrigName,
		URL:        s.imageURL(u.FilePath),
		Class:      u.FileClass,
		ClassLabel: ClassLabel(u.Classified, u.FileClass),
		Classified: u.Classified,
	}
	if item.FileName == "" {
		item.FileName = u.FileName
	}
	if u.Image != nil {
		item.TakenDate = u.Image.ExifDate
		item.TakenTime = u.Image.ExifTime
	}
	return item
}
