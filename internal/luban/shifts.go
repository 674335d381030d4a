package luban

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/luban-do/lubando/internal/calendar"
)

// ShiftInput creates one shift for a worker, date and half-day.
type ShiftInput struct {
	UserID int64
	Date   time.Time
	Period string // "am" or "pm"
}

// ShiftSiteInput attaches a site and its work types to a shift.
type ShiftSiteInput struct {
	ShiftID   int64
	SiteID    int64
	WorkTypes []int64
}

// Sites lists every site.
func (c *Client) Sites(ctx context.Context) ([]Site, error) {
	var sites []Site
	if err := c.getJSON(ctx, "list_sites", c.endpoint("lb_site", "r"), &sites); err != nil {
		return nil, err
	}
	return sites, nil
}

// WorkTypes lists every work type.
func (c *Client) WorkTypes(ctx context.Context) ([]WorkType, error) {
	var types []WorkType
	if err := c.getJSON(ctx, "list_work_types", c.endpoint("lb_worktype", "r"), &types); err != nil {
		return nil, err
	}
	return types, nil
}

// CreateShift records the shift and returns its upstream id.
func (c *Client) CreateShift(ctx context.Context, in ShiftInput) (int64, error) {
	payload := map[string]any{
		"date":       calendar.FormatSlash(in.Date),
		"shift":      in.Period,
		"lb_user_id": in.UserID,
	}
	var resp struct {
		ID int64 `json:"id"`
	}
	if err := c.postJSON(ctx, "create_shift", c.endpoint("lb_shift", "c"), payload, &resp); err != nil {
		return 0, err
	}
	if resp.ID == 0 {
		return 0, ErrMissingShiftID
	}
	return resp.ID, nil
}

// CreateShiftSite records one site of a shift.
func (c *Client) CreateShiftSite(ctx context.Context, in ShiftSiteInput) error {
	workTypes := in.WorkTypes
	if workTypes == nil {
		workTypes = []int64{}
	}
	payload := map[string]any{
		"lb_shift_id":    in.ShiftID,
		"lb_site_id":     in.SiteID,
		"lb_worktype_id": workTypes,
		"note":           "",
	}
	return c.postJSON(ctx, "create_shift_site", c.endpoint("lb_shift_site", "c"), payload, nil)
}

// Shifts returns the worker's shifts for a day. The lookup is tried with a
// yyyy-mm-dd date and, when upstream answers with a non-2xx status, once more
// with yyyy/mm/dd. Transport errors and timeouts end the lookup with an empty
// list.
func (c *Client) Shifts(ctx context.Context, userID int64, day time.Time) []Shift {
	user := strconv.FormatInt(userID, 10)
	attempts := []string{calendar.FormatISO(day), calendar.FormatSlash(day)}

	var lastErr error
	for _, date := range attempts {
		shifts, err := c.lookupShifts(ctx, user, date)
		if err == nil {
			return shifts
		}
		lastErr = err
		var status *StatusError
		if !errors.As(err, &status) {
			break
		}
		c.logger.Debug("shift lookup attempt failed", "date", date, "error", err)
	}
	c.logger.Warn("shift lookup failed", "user_id", userID, "error", lastErr)
	return []Shift{}
}

func (c *Client) lookupShifts(ctx context.Context, user, date string) ([]Shift, error) {
	ctx, cancel := context.WithTimeout(ctx, c.shiftTimeout)
	defer cancel()

	var shifts []Shift
	if err := c.getJSON(ctx, "list_shifts", c.endpoint("lb_shift", "r", user, date, date), &shifts); err != nil {
		return nil, err
	}
	if shifts == nil {
		return nil, fmt.Errorf("list_shifts: %w", ErrInvalidResponse)
	}
	return shifts, nil
}
