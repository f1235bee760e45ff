// Package timeutil holds the small time arithmetic the scheduling engine is
// built on: clock-of-day values, half-open interval overlap, and day-of-week
// indexing with Monday as 0.
package timeutil

import (
	"fmt"
	"time"
)

// Clock is a time of day expressed as minutes since midnight.
// Persisted as a smallint, serialized as "HH:MM".
type Clock int

// ParseClock parses an "HH:MM" string. The form is strict: two digits,
// a colon, two digits, nothing else.
func ParseClock(s string) (Clock, error) {
	if len(s) != 5 || s[2] != ':' ||
		!isDigit(s[0]) || !isDigit(s[1]) || !isDigit(s[3]) || !isDigit(s[4]) {
		return 0, fmt.Errorf("parse clock %q: want \"HH:MM\"", s)
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", s)
	}
	return Clock(h*60 + m), nil
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// MustClock is ParseClock for constants and tests.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// On combines a clock with a calendar date, keeping the date's location.
func (c Clock) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour(), c.Minute(), 0, 0, date.Location())
}

// MarshalJSON renders the clock as an "HH:MM" string.
func (c Clock) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.String() + `"`), nil
}

// UnmarshalJSON accepts an "HH:MM" string.
func (c *Clock) UnmarshalJSON(b []byte) error {
	if len(b) < 2 || b[0] != '"' || b[len(b)-1] != '"' {
		return fmt.Errorf("clock must be an \"HH:MM\" string, got %s", b)
	}
	parsed, err := ParseClock(string(b[1 : len(b)-1]))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	return aStart < bEnd && aEnd > bStart
}

// OverlapsAt is the same half-open test for absolute times.
func OverlapsAt(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// WeekdayIndex maps a date to the 0=Monday..6=Sunday convention.
func WeekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

var dayNames = [7]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// DayName returns the English name for a 0=Monday..6=Sunday index.
func DayName(dayOfWeek int) string {
	if dayOfWeek < 0 || dayOfWeek > 6 {
		return ""
	}
	return dayNames[dayOfWeek]
}

// MidnightUTC truncates a time to its UTC calendar date.
func MidnightUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Date builds a UTC calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// EndOfDayUTC returns the last representable instant of the date's UTC day.
func EndOfDayUTC(t time.Time) time.Time {
	return MidnightUTC(t).Add(24*time.Hour - time.Nanosecond)
}

// SameDate reports whether two times fall on the same UTC calendar date.
func SameDate(a, b time.Time) bool {
	return MidnightUTC(a).Equal(MidnightUTC(b))
}

// SlotCapacity returns how many whole slots of duration minutes fit into
// total minutes.
func SlotCapacity(totalMinutes, durationMinutes int) int {
	if durationMinutes <= 0 {
		return 0
	}
	return totalMinutes / durationMinutes
}
