package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	PeriodDay   = "day"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodYear  = "year"
)

var (
	ErrMonthYearRequired = errors.New("Month and year are required for the specified period")
	ErrInvalidMonth      = errors.New("Invalid month specified")
	ErrInvalidPeriod     = errors.New("Invalid period specified")
	ErrInvalidDateParams = errors.New("Invalid date parameters")
	ErrDailyParams       = errors.New("UserID, month, and year are required")
)

// PeriodBounds returns the inclusive [start, end] range covered by period.
//
// day and week are relative to ref; week starts on Monday. month and year
// need both month and year, matching the query contract of the period
// endpoints. month may be a number (1-12) or an English month name. Ranges end
// on the last millisecond of their final day, in ref's location.
func PeriodBounds(period string, ref time.Time, month, year string) (time.Time, time.Time, error) {
	period = strings.ToLower(strings.TrimSpace(period))
	month = strings.TrimSpace(month)
	year = strings.TrimSpace(year)

	if (period == PeriodMonth || period == PeriodYear) && (month == "" || year == "") {
		return time.Time{}, time.Time{}, ErrMonthYearRequired
	}

	var (
		m time.Month
		y int
	)
	if month != "" {
		var err error
		if m, err = ParseMonth(month); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	if year != "" {
		var err error
		if y, err = strconv.Atoi(year); err != nil || y < 1 || y > 9999 {
			return time.Time{}, time.Time{}, ErrInvalidDateParams
		}
	}

	loc := ref.Location()
	switch period {
	case PeriodDay:
		start := startOfDay(ref)
		return start, endOfDays(start, 1), nil
	case PeriodWeek:
		start := startOfDay(ref)
		// Go weekdays start on Sunday; shift so Monday is 0.
		start = start.AddDate(0, 0, -((int(start.Weekday()) + 6) % 7))
		return start, endOfDays(start, 7), nil
	case PeriodMonth:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0).Add(-time.Millisecond), nil
	case PeriodYear:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0).Add(-time.Millisecond), nil
	default:
		return time.Time{}, time.Time{}, ErrInvalidPeriod
	}
}

// ParseMonth accepts 1-12, a full English month name or its three letter
// abbreviation, case-insensitively.
func ParseMonth(s string) (time.Month, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 12 {
			return 0, ErrInvalidDateParams
		}
		return time.Month(n), nil
	}
	lower := strings.ToLower(s)
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if lower == name || lower == name[:3] {
			return m, nil
		}
	}
	return 0, ErrInvalidMonth
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDays(start time.Time, days int) time.Time {
	return start.AddDate(0, 0, days).Add(-time.Millisecond)
}
