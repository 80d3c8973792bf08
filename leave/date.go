/*
date.go - Calendar dates, inclusive ranges and months

PURPOSE:
  Leave is booked in whole calendar days. Date strips the clock from
  time.Time so that comparisons, day arithmetic and JSON encoding always
  work on "2006-01-02" values in UTC.

KEY CONCEPTS:
  Date:   A calendar day (UTC midnight)
  Range:  Inclusive [Start, End] window of days
  Month:  A calendar month, used by availability and calendar views

OVERLAP RULE:
  Two ranges overlap iff start1 <= end2 AND end1 >= start2.
  Touching endpoints overlap: [10, 12] and [12, 14] share the 12th.

SEE ALSO:
  - request.go: LeaveRequest.Range() and CoversDay()
  - availability.go: Iterates Month.Range().Days()
*/
package leave

import (
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for dates.
const DateLayout = "2006-01-02"

// =============================================================================
// DATE
// =============================================================================

// Date is a calendar day. The zero value is not a valid date.
type Date struct {
	t time.Time
}

// NewDate returns the date for year, month, day. Out-of-range values
// normalize the way time.Date does.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses a "2006-01-02" string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return Date{t: t}, nil
}

// MustParseDate is ParseDate for constants and tests.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Comparison
func (d Date) Before(o Date) bool        { return d.t.Before(o.t) }
func (d Date) After(o Date) bool         { return d.t.After(o.t) }
func (d Date) Equal(o Date) bool         { return d.t.Equal(o.t) }
func (d Date) BeforeOrEqual(o Date) bool { return !d.t.After(o.t) }
func (d Date) AfterOrEqual(o Date) bool  { return !d.t.Before(o.t) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// DaysUntil returns the number of whole days from d to o (negative if o is earlier).
func (d Date) DaysUntil(o Date) int {
	return int(o.t.Sub(d.t).Hours() / 24)
}

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) IsZero() bool      { return d.t.IsZero() }
func (d Date) Time() time.Time   { return d.t }
func (d Date) String() string    { return d.t.Format(DateLayout) }
func (d Date) MonthOf() Month    { return Month{Year: d.Year(), Month: d.Month()} }

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// RANGE - Inclusive window of days
// =============================================================================

// Range is an inclusive [Start, End] window of days.
type Range struct {
	Start Date
	End   Date
}

// SingleDay returns the range covering only d.
func SingleDay(d Date) Range {
	return Range{Start: d, End: d}
}

// Valid reports whether End is not before Start.
func (r Range) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && r.Start.BeforeOrEqual(r.End)
}

// Overlaps reports whether r and o share at least one day.
func (r Range) Overlaps(o Range) bool {
	return r.Start.BeforeOrEqual(o.End) && r.End.AfterOrEqual(o.Start)
}

// Contains reports whether d is within [Start, End].
func (r Range) Contains(d Date) bool {
	return r.Start.BeforeOrEqual(d) && d.BeforeOrEqual(r.End)
}

// Len returns the number of days in the range, counting both ends.
func (r Range) Len() int {
	return r.Start.DaysUntil(r.End) + 1
}

// Days returns every day in the range in ascending order.
func (r Range) Days() []Date {
	var days []Date
	for cur := r.Start; cur.BeforeOrEqual(r.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

// Clip returns the intersection of r and o. ok is false when they are disjoint.
func (r Range) Clip(o Range) (clipped Range, ok bool) {
	if !r.Overlaps(o) {
		return Range{}, false
	}
	clipped = r
	if o.Start.After(clipped.Start) {
		clipped.Start = o.Start
	}
	if o.End.Before(clipped.End) {
		clipped.End = o.End
	}
	return clipped, true
}

func (r Range) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}

// =============================================================================
// MONTH
// =============================================================================

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses "2006-01".
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q, expected YYYY-MM: %w", s, err)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// First returns the first day of the month.
func (m Month) First() Date { return NewDate(m.Year, m.Month, 1) }

// Last returns the last day of the month.
func (m Month) Last() Date { return NewDate(m.Year, m.Month+1, 1).AddDays(-1) }

// Range returns the whole month as an inclusive range.
func (m Month) Range() Range { return Range{Start: m.First(), End: m.Last()} }

func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }
