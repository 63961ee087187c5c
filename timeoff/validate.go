package timeoff

import (
	"fmt"

	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// SCHEDULE CHECK - Worked time on granted time off
// =============================================================================

// Validate reports shifts that ignore a time-off request:
//
//	day_off, vacation, sick_leave, maternity_paternity   any worked shift
//	morning_off                                          a morning block
//	afternoon_off                                        an afternoon block
//
// Messages name the employee from employees, falling back to the id.
func Validate(s *schedule.Schedule, requests []schedule.TimeOffRequest, employees []schedule.Employee) []string {
	idx := NewIndex(requests, calendar.Week(s.WeekStartDate))
	if idx.Len() == 0 {
		return nil
	}
	byID := schedule.IndexEmployees(employees)

	var out []string
	for _, sh := range s.Shifts {
		t, ok := idx.On(sh.EmployeeID, sh.Date)
		if !ok || !violates(t, sh) {
			continue
		}
		name := sh.EmployeeID
		if e, ok := byID[sh.EmployeeID]; ok && e.Name != "" {
			name = e.Name
		}
		out = append(out, fmt.Sprintf("%s has a %s shift on %s %s despite approved %s",
			name, sh.Type, sh.Date.Weekday(), sh.Date, t))
	}
	return out
}

func violates(t schedule.TimeOffType, sh schedule.Shift) bool {
	switch t {
	case schedule.TimeOffMorningOff:
		return sh.Type.HasMorning()
	case schedule.TimeOffAfternoonOff:
		return sh.Type.HasAfternoon()
	default:
		return sh.Type.IsWorked()
	}
}
