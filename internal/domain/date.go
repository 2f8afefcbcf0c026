package domain

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day with no clock or time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the date for y-m-d, or ErrCalendar if that day does not exist.
func NewDate(year int, month time.Month, day int) (Date, error) {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return Date{}, fmt.Errorf("%w: %04d-%02d-%02d is not a valid date", ErrCalendar, year, int(month), day)
	}
	return Date{Year: year, Month: month, Day: day}, nil
}

// ParseDate parses an ISO 8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: parse date %q: %v", ErrCalendar, s, err)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar day of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Time returns midnight UTC at the start of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Before reports whether d falls before other.
func (d Date) Before(other Date) bool {
	return d.Time().Before(other.Time())
}

// IsLeapDay reports whether d is February 29.
func (d Date) IsLeapDay() bool {
	return d.Month == time.February && d.Day == 29
}

// WithYear returns d moved to year. Feb 29 moved into a non-leap year fails
// with ErrCalendar under LeapDayReject and becomes Feb 28 under LeapDayClamp.
func (d Date) WithYear(year int, policy LeapDayPolicy) (Date, error) {
	if year < 1 || year > 9999 {
		return Date{}, fmt.Errorf("%w: year %d out of range", ErrCalendar, year)
	}
	if d.IsLeapDay() && !isLeap(year) {
		if policy == LeapDayClamp {
			return Date{Year: year, Month: time.February, Day: 28}, nil
		}
		return Date{}, fmt.Errorf("%w: %s cannot move to non-leap year %d", ErrCalendar, d, year)
	}
	return NewDate(year, d.Month, d.Day)
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// LeapDayPolicy decides what happens to Feb 29 when a calendar moves into a
// non-leap year.
type LeapDayPolicy int

const (
	// LeapDayReject fails the shift with ErrCalendar.
	LeapDayReject LeapDayPolicy = iota
	// LeapDayClamp moves Feb 29 to Feb 28.
	LeapDayClamp
)

// ParseLeapDayPolicy accepts "reject" (or empty) and "clamp".
func ParseLeapDayPolicy(s string) (LeapDayPolicy, error) {
	switch s {
	case "", "reject":
		return LeapDayReject, nil
	case "clamp":
		return LeapDayClamp, nil
	default:
		return LeapDayReject, fmt.Errorf("unknown leap day policy %q (want reject or clamp)", s)
	}
}

func (p LeapDayPolicy) String() string {
	if p == LeapDayClamp {
		return "clamp"
	}
	return "reject"
}
