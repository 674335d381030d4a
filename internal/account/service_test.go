package account

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/luban-do/lubando/internal/checkin"
	"github.com/luban-do/lubando/internal/identity"
	"github.com/luban-do/lubando/internal/logging"
	"github.com/luban-do/lubando/internal/luban"
)

type fakePhotos struct {
	counts map[string]int
	err    error
}

func (f fakePhotos) MonthCounts(context.Context, int64, int, time.Month, string) (map[string]int, error) {
	return f.counts, f.err
}

type historyFunc func(ctx context.Context, userID int64, from, to time.Time) ([]checkin.Record, error)

func (f historyFunc) History(ctx context.Context, userID int64, from, to time.Time) ([]checkin.Record, error) {
	return f(ctx, userID, from, to)
}

func TestOverview(t *testing.T) {
	profiles := identity.NewService(identity.NewMemoryRepository())
	_, err := profiles.Record(context.Background(), identity.LoginInput{
		UserID:      "42",
		Phone:       "66123456",
		CountryCode: "853",
		Profile:     &luban.User{ID: 42, Nickname: "阿榮"},
	})
	require.NoError(t, err)
	svc := NewService("魯班到", profiles, nil, nil, time.UTC, logging.Discard())

	ov, err := svc.Overview(context.Background(), 42, "853", "66123456")
	require.NoError(t, err)
	require.Equal(t, Overview{Brand: "魯班到", UserID: 42, DisplayName: "阿榮", Phone: "+853 66123456"}, ov)

	ov, err = svc.Overview(context.Background(), 7, "852", "91234567")
	require.NoError(t, err)
	require.Equal(t, "+852 91234567", ov.DisplayName)
}

func TestMonthSummary(t *testing.T) {
	records := checkin.NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, records.Add(ctx, 7, []checkin.Record{
		{Date: "2026-10-05", Period: checkin.AM, SiteID: 1},
		{Date: "2026-10-05", Period: checkin.AM, SiteID: 2},
		{Date: "2026-10-05", Period: checkin.PM, SiteID: 1},
		{Date: "2026-10-19", Period: checkin.PM, SiteID: 3},
		{Date: "2026-11-01", Period: checkin.AM, SiteID: 3},
	}))
	checkins := historyFunc(records.ListBetween)
	photos := fakePhotos{counts: map[string]int{"2026-10-19": 4, "2026-10-20": 1}}
	svc := NewService("魯班到", nil, checkins, photos, time.UTC, logging.Discard())
	svc.now = func() time.Time { return time.Date(2026, time.October, 19, 8, 30, 0, 0, time.UTC) }

	m, err := svc.Month(ctx, 7, 2026, time.October)
	require.NoError(t, err)
	require.Equal(t, "十月", m.MonthName)
	require.Equal(t, []DaySummary{
		{Date: "2026-10-05", AM: true, PM: true, AMSites: 2, PMSites: 1},
		{Date: "2026-10-19", PM: true, PMSites: 1, Photos: 4},
		{Date: "2026-10-20", Photos: 1},
	}, m.Days)
	require.Len(t, m.Weeks, 5)
	require.Equal(t, "", m.Weeks[0][0])
	require.Equal(t, "2026-10-01", m.Weeks[0][3])
	require.Equal(t, 31, m.DayCount)
	require.Equal(t, 3, m.Leading)
	require.Equal(t, "2026-10-19", m.Today)
}

func TestMonthSurvivesPhotoFailure(t *testing.T) {
	checkins := historyFunc(func(context.Context, int64, time.Time, time.Time) ([]checkin.Record, error) {
		return []checkin.Record{{Date: "2026-10-02", Period: checkin.AM}}, nil
	})
	svc := NewService("魯班到", nil, checkins, fakePhotos{err: errors.New("upstream down")}, time.UTC, logging.Discard())

	m, err := svc.Month(context.Background(), 7, 2026, time.November)
	require.NoError(t, err)
	require.Len(t, m.Days, 1)
	require.Equal(t, 30, m.DayCount)
}
