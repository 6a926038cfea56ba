package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// CALENDAR HELPERS - Month/day arithmetic for chart buckets
// =============================================================================

const DateLayout = "2006-01-02"

// Constructors
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func Today() time.Time {
	now := time.Now().UTC()
	return NewDate(now.Year(), now.Month(), now.Day())
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return t, nil
}

func StartOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, locOrUTC(loc))
}

// EndOfMonth returns midnight of the last day of the month.
func EndOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	return time.Date(year, month+1, 1, 0, 0, 0, 0, locOrUTC(loc)).AddDate(0, 0, -1)
}

// DaysInMonth handles leap years: DaysInMonth(2024, time.February) == 29.
func DaysInMonth(year int, month time.Month) int {
	return EndOfMonth(year, month, time.UTC).Day()
}

func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// MonthLabel returns the three-letter English label ("Jan".."Dec").
func MonthLabel(m time.Month) string {
	return m.String()[:3]
}

func locOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}
