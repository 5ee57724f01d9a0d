package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMonthRange(t *testing.T) {
	tests := []struct {
		name      string
		ref       time.Time
		wantStart string
		wantEnd   string
		wantDays  int
	}{
		{"thirty-one days", time.Date(2025, time.March, 17, 15, 4, 0, 0, time.UTC), "2025-03-01", "2025-03-31", 31},
		{"thirty days", time.Date(2025, time.April, 30, 23, 59, 0, 0, time.UTC), "2025-04-01", "2025-04-30", 30},
		{"leap february", time.Date(2024, time.February, 10, 0, 0, 0, 0, time.UTC), "2024-02-01", "2024-02-29", 29},
		{"non-leap february", time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), "2025-02-01", "2025-02-28", 28},
		{"december rolls year", time.Date(2025, time.December, 31, 12, 0, 0, 0, time.UTC), "2025-12-01", "2025-12-31", 31},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := MonthRange(tt.ref)
			assert.Equal(t, tt.wantStart, r.StartDate())
			assert.Equal(t, tt.wantEnd, r.EndDate())
			days := r.Days()
			require.Len(t, days, tt.wantDays)
			assert.Equal(t, tt.wantStart, FormatDate(days[0]))
			assert.Equal(t, tt.wantEnd, FormatDate(days[len(days)-1]))
		})
	}
}

func TestMonthRangeIgnoresLocalZone(t *testing.T) {
	// 2025-03-31 20:00 in UTC-5 is already April 1st in UTC.
	loc := time.FixedZone("EST", -5*60*60)
	ref := time.Date(2025, time.March, 31, 20, 0, 0, 0, loc)

	r := MonthRange(ref)
	assert.Equal(t, "2025-04-01", r.StartDate())
	assert.Equal(t, "2025-04-30", r.EndDate())
	assert.Equal(t, "2025-04", FormatMonth(ref))
}

func TestWeekdayName(t *testing.T) {
	assert.Equal(t, "Saturday", WeekdayName(time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "Monday", WeekdayName(time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)))

	loc := time.FixedZone("WIB", 7*60*60)
	// 2025-03-03 02:00 WIB is still Sunday in UTC.
	assert.Equal(t, "Sunday", WeekdayName(time.Date(2025, time.March, 3, 2, 0, 0, 0, loc)))
}

func TestParseMonth(t *testing.T) {
	got, ok := ParseMonth("2025-01")
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC), got)

	for _, raw := range []string{"2025-13", "2025-00", "abc", "", "2025-1", "2025-01-01", " 2025-01"} {
		_, ok := ParseMonth(raw)
		assert.False(t, ok, "expected %q to be rejected", raw)
	}
}

func TestResolveMonth(t *testing.T) {
	now := time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)

	got, ok := ResolveMonth("", now)
	require.True(t, ok)
	assert.Equal(t, "2026-10-01", FormatDate(got))

	got, ok = ResolveMonth("2025-02", now)
	require.True(t, ok)
	assert.Equal(t, "2025-02-01", FormatDate(got))

	_, ok = ResolveMonth("2025-13", now)
	assert.False(t, ok)
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("2024-02-29")
	require.True(t, ok)
	assert.Equal(t, "2024-02-29", FormatDate(got))

	for _, raw := range []string{"2025-02-29", "2025-2-1", "01/02/2025", ""} {
		_, ok := ParseDate(raw)
		assert.False(t, ok, "expected %q to be rejected", raw)
	}
}

func TestAddMonths(t *testing.T) {
	base := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2025-02", FormatMonth(AddMonths(base, 1)))
	assert.Equal(t, "2025-03", FormatMonth(AddMonths(base, 2)))
	assert.Equal(t, "2026-01", FormatMonth(AddMonths(time.Date(2025, time.November, 30, 0, 0, 0, 0, time.UTC), 2)))
}

func TestRangeDaysEmpty(t *testing.T) {
	assert.Nil(t, Range{}.Days())
	start := time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, Range{Start: start, End: start.AddDate(0, 0, -1)}.Days())
}
