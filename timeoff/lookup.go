package timeoff

import (
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// INDEX - Per-employee, per-day lookup
// =============================================================================

type dayKey struct {
	employeeID string
	date       calendar.Date
}

// Index answers which time-off applies to an employee on a day.
type Index struct {
	days map[dayKey]schedule.TimeOffType
}

// NewIndex indexes the days of requests that fall within window.
func NewIndex(requests []schedule.TimeOffRequest, window calendar.Range) Index {
	idx := Index{days: make(map[dayKey]schedule.TimeOffType)}
	for _, req := range InRange(requests, window) {
		for _, d := range req.AllDates() {
			if !window.Contains(d) {
				continue
			}
			k := dayKey{req.EmployeeID, d}
			if prev, ok := idx.days[k]; !ok || strength(req.Type) > strength(prev) {
				idx.days[k] = req.Type
			}
		}
	}
	return idx
}

// On returns the strongest time-off type covering the employee on d.
func (i Index) On(employeeID string, d calendar.Date) (schedule.TimeOffType, bool) {
	t, ok := i.days[dayKey{employeeID, d}]
	return t, ok
}

// IsAbsent reports a vacation, sick or maternity/paternity day.
func (i Index) IsAbsent(employeeID string, d calendar.Date) bool {
	t, ok := i.On(employeeID, d)
	return ok && t.IsAbsence()
}

// Len is the number of indexed employee-days.
func (i Index) Len() int { return len(i.days) }

func strength(t schedule.TimeOffType) int {
	switch {
	case t.IsAbsence():
		return 3
	case t == schedule.TimeOffDayOff:
		return 2
	default:
		return 1
	}
}
