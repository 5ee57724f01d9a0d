// Package calendar holds the UTC-anchored date helpers used by the session scheduler.
//
// Every value produced here is a calendar day expressed as UTC midnight. Local time zones are
// never consulted, so month boundaries do not drift when the server runs outside UTC.
package calendar

import (
	"regexp"
	"time"
)

const (
	// DateLayout formats a calendar day.
	DateLayout = "2006-01-02"
	// MonthLayout formats a calendar month.
	MonthLayout = "2006-01"
)

var (
	monthPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Range is an inclusive span of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// MonthRange returns the first and last day of ref's month.
func MonthRange(ref time.Time) Range {
	start := StartOfMonth(ref)
	return Range{Start: start, End: start.AddDate(0, 1, -1)}
}

// StartOfMonth truncates t to the first day of its UTC month.
func StartOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths moves to the first day of the month n months after t's month.
func AddMonths(t time.Time, n int) time.Time {
	return StartOfMonth(t).AddDate(0, n, 0)
}

// Days returns every day in the range in ascending order.
func (r Range) Days() []time.Time {
	if r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start) {
		return nil
	}
	days := make([]time.Time, 0, 31)
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// StartDate formats the range start.
func (r Range) StartDate() string { return FormatDate(r.Start) }

// EndDate formats the range end.
func (r Range) EndDate() string { return FormatDate(r.End) }

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// FormatMonth renders t as YYYY-MM.
func FormatMonth(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// WeekdayName returns the English weekday name of t's UTC day.
func WeekdayName(t time.Time) string {
	return t.UTC().Weekday().String()
}

// ParseMonth parses a strict YYYY-MM string into day 1 of that month.
func ParseMonth(raw string) (time.Time, bool) {
	if !monthPattern.MatchString(raw) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(MonthLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ResolveMonth behaves like ParseMonth but falls back to fallback's month for empty input.
func ResolveMonth(raw string, fallback time.Time) (time.Time, bool) {
	if raw == "" {
		return StartOfMonth(fallback), true
	}
	return ParseMonth(raw)
}

// ParseDate parses a strict YYYY-MM-DD string at UTC midnight.
func ParseDate(raw string) (time.Time, bool) {
	if !datePattern.MatchString(raw) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
