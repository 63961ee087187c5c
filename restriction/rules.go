package restriction

import (
	"fmt"

	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/schedule"
)

// MaxFixedRotationDay is Saturday in the Monday=1 numbering used by
// fixed_rotating_shift. Sunday never takes part in the rotation.
const MaxFixedRotationDay = 6

// =============================================================================
// REQUIRED DAYS OFF - Shared with the generator
// =============================================================================

// RequiredDaysOff returns the weekday indexes (0=Sunday) the request
// protects in the week containing weekStart, ordered Mon..Sat,Sun. Types that
// do not protect days, and rotating requests missing their anchor, return nil.
func RequiredDaysOff(req schedule.PermanentRequest, weekStart calendar.Date) []int {
	switch req.Type {
	case schedule.PermanentSpecificDaysOff:
		return calendar.SortWeekdays(req.Days)

	case schedule.PermanentRotatingDaysOff:
		if req.ReferenceDate.IsZero() || len(req.CycleWeeks) == 0 {
			return nil
		}
		offset := calendar.WeeksBetween(req.ReferenceDate, weekStart)
		active := req.CycleWeeks[calendar.Mod(offset, len(req.CycleWeeks))]
		return calendar.SortWeekdays(active.Days)

	case schedule.PermanentFixedRotatingShift:
		if req.ReferenceDate.IsZero() || req.Value < 1 || req.Value > MaxFixedRotationDay {
			return nil
		}
		return []int{FixedRotatingDayOff(req.Value, req.ReferenceDate, weekStart)}
	}
	return nil
}

// FixedRotatingDayOff returns the day off for the week containing weekStart
// when the rotation starts on first (Monday=1..Saturday=6) in the week of
// reference. Each later week moves one day forward, Saturday wrapping to
// Monday. Earlier weeks rotate backwards.
func FixedRotatingDayOff(first int, reference, weekStart calendar.Date) int {
	offset := calendar.WeeksBetween(reference, weekStart)
	return calendar.Mod(first-1+offset, MaxFixedRotationDay) + 1
}

// =============================================================================
// PRECONDITIONS - Adding a permanent request
// =============================================================================

// Prepare checks req against the employee and their existing requests and
// returns it normalized: day sets sorted without duplicates and the
// reference date moved to its Monday.
func Prepare(emp schedule.Employee, existing []schedule.PermanentRequest, req schedule.PermanentRequest) (schedule.PermanentRequest, error) {
	reject := func(format string, args ...any) (schedule.PermanentRequest, error) {
		return schedule.PermanentRequest{}, &schedule.RestrictionError{
			EmployeeID: emp.ID,
			Type:       req.Type,
			Reason:     fmt.Sprintf(format, args...),
		}
	}

	if !req.Type.Valid() {
		return reject("unknown request type")
	}
	if req.EmployeeID != "" && req.EmployeeID != emp.ID {
		return reject("request belongs to employee %s", req.EmployeeID)
	}
	req.EmployeeID = emp.ID

	for _, other := range schedule.RequestsFor(existing, emp.ID) {
		if conflictsWith(req.Type, other.Type) {
			return reject("employee already has a %s request", other.Type)
		}
	}

	switch req.Type {
	case schedule.PermanentSpecificDaysOff:
		if len(req.Days) == 0 {
			return reject("at least one weekday is required")
		}
		if err := checkWeekdays(req.Days); err != nil {
			return reject("%v", err)
		}
		req.Days = calendar.SortWeekdays(req.Days)

	case schedule.PermanentRotatingDaysOff:
		if req.ReferenceDate.IsZero() {
			return reject("a reference date is required")
		}
		if len(req.CycleWeeks) == 0 {
			return reject("the cycle needs at least one week")
		}
		cycle := make([]schedule.CycleWeek, len(req.CycleWeeks))
		for i, w := range req.CycleWeeks {
			if err := checkWeekdays(w.Days); err != nil {
				return reject("cycle week %d: %v", i+1, err)
			}
			cycle[i] = schedule.CycleWeek{Days: calendar.SortWeekdays(w.Days)}
		}
		req.CycleWeeks = cycle

	case schedule.PermanentFixedRotatingShift:
		if emp.WeeklyHours != schedule.FullTimeHours {
			return reject("only %dh contracts can rotate a fixed day off (employee has %dh)", schedule.FullTimeHours, emp.WeeklyHours)
		}
		if req.ReferenceDate.IsZero() {
			return reject("a reference date is required")
		}
		if req.Value < 1 || req.Value > MaxFixedRotationDay {
			return reject("starting day must be between 1 (Monday) and %d (Saturday), got %d", MaxFixedRotationDay, req.Value)
		}

	case schedule.PermanentMaxAfternoonsPerWeek:
		if req.Value < 0 || req.Value > 7 {
			return reject("afternoon cap must be between 0 and 7, got %d", req.Value)
		}
	}

	if !req.ReferenceDate.IsZero() {
		req.ReferenceDate = calendar.WeekStart(req.ReferenceDate)
	}
	return req, nil
}

// conflictsWith reports request types an employee cannot hold together.
func conflictsWith(a, b schedule.PermanentRequestType) bool {
	if a == b {
		// One request per type; a second one would be ambiguous.
		return true
	}
	pair := func(x, y schedule.PermanentRequestType) bool {
		return (a == x && b == y) || (a == y && b == x)
	}
	return pair(schedule.PermanentMorningOnly, schedule.PermanentAfternoonOnly) ||
		pair(schedule.PermanentRotatingDaysOff, schedule.PermanentFixedRotatingShift)
}

func checkWeekdays(days []int) error {
	for _, d := range days {
		if d < 0 || d > 6 {
			return fmt.Errorf("weekday %d out of range 0-6", d)
		}
	}
	return nil
}
