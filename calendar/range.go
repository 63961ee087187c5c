package calendar

import "fmt"

// =============================================================================
// RANGE - Inclusive span of days
// =============================================================================

// Range is an inclusive span of days [Start, End].
type Range struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// NewRange validates that end is not before start.
func NewRange(start, end Date) (Range, error) {
	if end.Before(start) {
		return Range{}, fmt.Errorf("invalid range: end %s before start %s", end, start)
	}
	return Range{Start: start, End: end}, nil
}

// Week returns the Monday..Sunday range containing d.
func Week(d Date) Range {
	monday := WeekStart(d)
	return Range{Start: monday, End: monday.AddDays(6)}
}

// Contains returns true if d is within [Start, End].
func (r Range) Contains(d Date) bool {
	return d.AfterOrEqual(r.Start) && d.BeforeOrEqual(r.End)
}

// Overlaps returns true if the two ranges share at least one day.
func (r Range) Overlaps(o Range) bool {
	return r.Start.BeforeOrEqual(o.End) && o.Start.BeforeOrEqual(r.End)
}

// Days returns all days in the range.
func (r Range) Days() []Date {
	if r.End.Before(r.Start) {
		return nil
	}
	days := make([]Date, 0, r.Len())
	for cur := r.Start; cur.BeforeOrEqual(r.End); cur = cur.AddDays(1) {
		days = append(days, cur)
	}
	return days
}

// Len is the number of days in the range.
func (r Range) Len() int {
	if r.End.Before(r.Start) {
		return 0
	}
	return DaysBetween(r.Start, r.End) + 1
}

func (r Range) String() string {
	return "[" + r.Start.String() + ", " + r.End.String() + "]"
}
