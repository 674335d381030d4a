// Package calendar holds the date arithmetic shared by the check-in, upload,
// account and devotional screens. Every value is a calendar date: the time of
// day is dropped and the location of the input is kept.
package calendar

import (
	"fmt"
	"time"
)

const (
	layoutSlash   = "2006/01/02"
	layoutISO     = "2006-01-02"
	layoutCompact = "20060102"

	maxMonthWeeks = 6
)

var monthNames = [12]string{"一月", "二月", "三月", "四月", "五月", "六月", "七月", "八月", "九月", "十月", "十一月", "十二月"}

var weekdayNames = [7]string{"日", "一", "二", "三", "四", "五", "六"}

// FormatSlash renders yyyy/mm/dd, the form shifts are created with.
func FormatSlash(t time.Time) string { return t.Format(layoutSlash) }

// FormatISO renders yyyy-mm-dd, used for uploads and lookups.
func FormatISO(t time.Time) string { return t.Format(layoutISO) }

// FormatCompact renders yyyymmdd, used by the devotional feeds.
func FormatCompact(t time.Time) string { return t.Format(layoutCompact) }

// ParseISO parses yyyy-mm-dd in loc.
func ParseISO(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(layoutISO, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// ParseCompact parses yyyymmdd in loc.
func ParseCompact(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(layoutCompact, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Day truncates t to midnight in its own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstWeekday returns the weekday of the first of the month.
func FirstWeekday(year int, month time.Month) time.Weekday {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
}

// StartOfWeek returns the Monday on or before t. Sunday belongs to the week
// that began six days earlier.
func StartOfWeek(t time.Time) time.Time {
	day := Day(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// WeekOf returns the seven dates, Monday first, of the week containing t.
func WeekOf(t time.Time) []time.Time {
	start := StartOfWeek(t)
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// MonthWeeks lays out the month containing t as Monday-first weeks. The
// first week starts on the Monday on or before the 1st. Rows stop after six
// weeks, or earlier once a row would start after the last day of the month.
func MonthWeeks(t time.Time) [][]time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	last := first.AddDate(0, 1, -1)

	weeks := make([][]time.Time, 0, maxMonthWeeks)
	cursor := StartOfWeek(first)
	for len(weeks) < maxMonthWeeks {
		if cursor.After(last) {
			break
		}
		weeks = append(weeks, WeekOf(cursor))
		cursor = cursor.AddDate(0, 0, 7)
	}
	return weeks
}

// MonthRange returns the first day of the month and the first day of the next.
func MonthRange(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// MonthName returns the Chinese month label (一月..十二月).
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// WeekdayName returns the single-character weekday label, 日 for Sunday.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[d%7]
}

// DisplayDate renders the header shown above the check-in board,
// e.g. "10月19日 (星期一)".
func DisplayDate(t time.Time) string {
	return fmt.Sprintf("%d月%d日 (星期%s)", int(t.Month()), t.Day(), WeekdayName(t.Weekday()))
}
