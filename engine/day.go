package engine

import (
	"time"
)

// =============================================================================
// DAY - calendar date abstraction (scheduling works at day granularity)
// =============================================================================

// Day is a calendar date with no time component, always UTC. Scheduled calls
// and eligibility windows are all day-granular, so the engine never deals in
// wall-clock times.
type Day struct {
	Time time.Time
}

// Constructors
func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DayOf truncates a timestamp to its calendar date.
func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

func Today() Day {
	return DayOf(time.Now().UTC())
}

// ParseDay parses a "2006-01-02" date string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Day{}, err
	}
	return DayOf(t), nil
}

// Comparison
func (d Day) Before(other Day) bool { return d.normalize().Before(other.normalize()) }
func (d Day) Equal(other Day) bool  { return d.normalize().Equal(other.normalize()) }
func (d Day) After(other Day) bool  { return d.normalize().After(other.normalize()) }

func (d Day) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Day) AddDays(n int) Day { return Day{Time: d.Time.AddDate(0, 0, n)} }

// Properties
func (d Day) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Day) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
func (d Day) IsWorkday() bool { return !d.IsWeekend() }
func (d Day) IsZero() bool    { return d.Time.IsZero() }

func (d Day) String() string { return d.normalize().Format("2006-01-02") }

// NextWorkday rolls a weekend date forward to the following Monday.
// Saturday advances two days, Sunday one. Workdays pass through unchanged.
// Holidays are intentionally not considered.
func (d Day) NextWorkday() Day {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDays(2)
	case time.Sunday:
		return d.AddDays(1)
	default:
		return d
	}
}

// DaysBetween returns whole days from one date to another. Negative when
// to precedes from.
func DaysBetween(from, to Day) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

// UpcomingWorkdays returns the next n workdays strictly after start, in
// order. Used by the scheduler driver to build its rolling window.
func UpcomingWorkdays(start Day, n int) []Day {
	out := make([]Day, 0, n)
	d := start
	for len(out) < n {
		d = d.AddDays(1)
		if d.IsWorkday() {
			out = append(out, d)
		}
	}
	return out
}
