/*
Package calendar centralizes all day-of-week and ISO-week arithmetic.

PURPOSE:
  Every component that reasons about "the week" (generator, both validators,
  the hours calculator) goes through this package, so weekday semantics are
  identical everywhere:
    - weeks start on Monday
    - weekday index 0 is Sunday, 1 is Monday ... 6 is Saturday
    - in day-off ordering Sunday sorts LAST (Mon..Sat, Sun)

KEY CONCEPTS IN THIS FILE (date.go):
  - Date: a calendar day with no time-of-day and no zone (always UTC midnight)
  - Week helpers: WeekStart, WeekDates, WeeksBetween

SERIALIZATION:
  Date marshals to and from "2006-01-02" in JSON and in the database.

SEE ALSO:
  - range.go: inclusive date ranges
  - clock.go: "HH:MM" clock times
*/
package calendar

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Layout is the ISO day format used at every boundary.
const Layout = "2006-01-02"

// =============================================================================
// DATE
// =============================================================================

// Date is a calendar day. The zero value is "no date".
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime drops the time-of-day and zone of t.
func FromTime(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date { return FromTime(time.Now()) }

// ParseDate parses an ISO day ("2025-07-01").
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD): %w", s, err)
	}
	return FromTime(t), nil
}

// MustParseDate is ParseDate for literals in tests and seeds.
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

// Properties
func (d Date) Year() int              { return d.t.Year() }
func (d Date) Month() time.Month      { return d.t.Month() }
func (d Date) Day() int               { return d.t.Day() }
func (d Date) Weekday() time.Weekday  { return d.t.Weekday() }
func (d Date) IsSunday() bool         { return d.t.Weekday() == time.Sunday }
func (d Date) IsMonday() bool         { return d.t.Weekday() == time.Monday }
func (d Date) IsZero() bool           { return d.t.IsZero() }
func (d Date) Time() time.Time        { return d.t }
func (d Date) String() string         { return d.t.Format(Layout) }

// WeekdayIndex returns 0 for Sunday through 6 for Saturday.
func (d Date) WeekdayIndex() int { return int(d.t.Weekday()) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// =============================================================================
// WEEKS
// =============================================================================

// WeekStart returns the Monday of the week containing d.
func WeekStart(d Date) Date {
	return d.AddDays(-DayOffOrder(d.WeekdayIndex()))
}

// WeekDates returns the seven days Monday..Sunday starting at the Monday of
// the week containing start.
func WeekDates(start Date) [7]Date {
	monday := WeekStart(start)
	var out [7]Date
	for i := range out {
		out[i] = monday.AddDays(i)
	}
	return out
}

// DaysBetween returns to - from in whole days.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}

// WeeksBetween returns floor((to - from) / 7 days). It is negative when to
// falls in an earlier week than from.
func WeeksBetween(from, to Date) int {
	return FloorDiv(DaysBetween(WeekStart(from), WeekStart(to)), 7)
}

// FloorDiv divides rounding toward negative infinity.
func FloorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Mod returns a non-negative remainder for positive n.
func Mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}

// =============================================================================
// WEEKDAY ORDERING
// =============================================================================

// DayOffOrder maps a weekday index (0=Sunday) to its position in a
// Monday-first week: Monday=0 ... Saturday=5, Sunday=6.
func DayOffOrder(weekday int) int {
	return Mod(weekday+6, 7)
}

// SortWeekdays orders weekday indexes Mon..Sat,Sun and drops duplicates.
// The input is not modified.
func SortWeekdays(days []int) []int {
	seen := make(map[int]bool, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return DayOffOrder(out[i]) < DayOffOrder(out[j]) })
	return out
}

// DateForWeekday returns the date within the week starting at monday that has
// the given weekday index.
func DateForWeekday(monday Date, weekday int) Date {
	return WeekStart(monday).AddDays(DayOffOrder(weekday))
}
