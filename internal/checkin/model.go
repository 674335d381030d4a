package checkin

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/luban-do/lubando/internal/luban"
)

// Period is a half-day shift.
type Period string

const (
	AM Period = "am"
	PM Period = "pm"
)

// Periods lists both periods in display order.
var Periods = []Period{AM, PM}

// ParsePeriod accepts "am"/"pm" in any case.
func ParsePeriod(s string) (Period, error) {
	switch Period(strings.ToLower(strings.TrimSpace(s))) {
	case AM:
		return AM, nil
	case PM:
		return PM, nil
	default:
		return "", ErrInvalidPeriod
	}
}

// Label is the shift name shown to workers.
func (p Period) Label() string {
	if p == PM {
		return "下午更"
	}
	return "上午更"
}

// Record is one site a worker checked in to.
type Record struct {
	Date      string    `json:"date"`
	Time      time.Time `json:"time"`
	Period    Period    `json:"period"`
	SiteID    int64     `json:"site_id"`
	SiteName  string    `json:"site_name"`
	WorkTypes []int64   `json:"work_types"`
	ShiftID   int64     `json:"shift_id,omitempty"`
}

// Catalogue is everything a worker can pick from.
type Catalogue struct {
	Sites     []luban.Site     `json:"sites"`
	WorkTypes []luban.WorkType `json:"work_types"`
}

// PeriodState is one half of the check-in board.
type PeriodState struct {
	Period     Period     `json:"period"`
	Label      string     `json:"label"`
	CheckedIn  bool       `json:"checked_in"`
	Records    []Record   `json:"records"`
	Selections Selections `json:"selections"`
}

// Board is the full check-in screen for today.
type Board struct {
	Date      string           `json:"date"`
	DateLabel string           `json:"date_label"`
	Sites     []luban.Site     `json:"sites"`
	WorkTypes []luban.WorkType `json:"work_types"`
	Periods   []PeriodState    `json:"periods"`
}

// SubmitResult is returned after a successful check-in.
type SubmitResult struct {
	Period  Period   `json:"period"`
	Count   int      `json:"count"`
	Message string   `json:"message"`
	Today   []Record `json:"today"`
}

var (
	ErrInvalidPeriod    = errors.New("無效的時段")
	ErrNoSelection      = errors.New("請選擇至少一個地點進行簽到")
	ErrNoUserID         = errors.New("無法獲取用戶ID，請重新登錄")
	ErrAlreadyCheckedIn = errors.New("此時段已簽到")
)

// MissingWorkTypesError lists selected sites that have no work type.
type MissingWorkTypesError struct {
	Sites []string
}

func (e *MissingWorkTypesError) Error() string {
	return "請為以下地點選擇至少一種工作類型: " + strings.Join(e.Sites, ", ")
}

// SubmitError wraps a failure while recording the check-in upstream.
type SubmitError struct {
	Err error
}

func (e *SubmitError) Error() string {
	return "簽到失敗: " + submitDetail(e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }

func submitDetail(err error) string {
	var se *luban.StatusError
	switch {
	case errors.Is(err, luban.ErrMissingShiftID):
		return luban.ErrMissingShiftID.Error()
	case errors.As(err, &se) && se.Op == "create_shift_site":
		return fmt.Sprintf("Failed to record site: %d %s", se.StatusCode, se.Body)
	default:
		return err.Error()
	}
}
