package hours

import (
	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/schedule"
)

var (
	fullDayUnit = decimal.NewFromInt(1)
	halfDayUnit = decimal.RequireFromString("0.5")
)

// =============================================================================
// BALANCE
// =============================================================================

// Balance is one employee's weekly worked-vs-target report.
type Balance struct {
	EmployeeID      string          `json:"employeeId"`
	WeekStart       calendar.Date   `json:"weekStart"`
	BaseHours       int             `json:"baseHours"`
	ReductionUnits  decimal.Decimal `json:"reductionUnits"`
	WorkedHours     decimal.Decimal `json:"workedHours"`
	TargetHours     decimal.Decimal `json:"targetHours"`
	Delta           decimal.Decimal `json:"delta"`
	FullWeekAbsence bool            `json:"fullWeekAbsence"`
}

// ComputeWeeklyBalance reports worked hours, target hours and the signed
// delta for emp in the week containing weekStart. shifts may contain other
// employees' shifts and other weeks; they are ignored.
func ComputeWeeklyBalance(
	emp schedule.Employee,
	weekStart calendar.Date,
	shifts []schedule.Shift,
	holidays []schedule.Holiday,
	absences []schedule.TimeOffRequest,
) Balance {
	week := calendar.Week(weekStart)
	own := employeeShifts(emp.ID, week, shifts)

	base := emp.HoursFor(week.Start)
	units := ReductionUnits(emp, week.Start, own, holidays, absences)
	target := ReducedTarget(base, units)

	worked := decimal.Zero
	for _, s := range own {
		worked = worked.Add(ShiftDuration(s))
	}

	b := Balance{
		EmployeeID:     emp.ID,
		WeekStart:      week.Start,
		BaseHours:      base,
		ReductionUnits: units,
		WorkedHours:    worked.Round(1),
		TargetHours:    target.Round(1),
		Delta:          worked.Sub(target).Round(1),
	}
	if isFullWeekAbsence(own) {
		b.FullWeekAbsence = true
		b.Delta = decimal.Zero
	}
	return b
}

// TargetHours is the target side of the balance only. The generator uses it
// before any shift exists.
func TargetHours(
	emp schedule.Employee,
	weekStart calendar.Date,
	holidays []schedule.Holiday,
	absences []schedule.TimeOffRequest,
) decimal.Decimal {
	monday := calendar.WeekStart(weekStart)
	base := emp.HoursFor(monday)
	return ReducedTarget(base, ReductionUnits(emp, monday, nil, holidays, absences))
}

// ReductionUnits counts, over the seven days of the week, 1.0 for each full
// holiday or absence day and 0.5 for each afternoon-only closure when the
// base is 40h. Absence days come from time-off requests and from shifts of
// an absence type.
func ReductionUnits(
	emp schedule.Employee,
	weekStart calendar.Date,
	shifts []schedule.Shift,
	holidays []schedule.Holiday,
	absences []schedule.TimeOffRequest,
) decimal.Decimal {
	monday := calendar.WeekStart(weekStart)
	base := emp.HoursFor(monday)

	kinds := make(map[calendar.Date]schedule.HolidayKind, len(holidays))
	for _, h := range holidays {
		if prev, ok := kinds[h.Date]; ok && prev == schedule.HolidayFull {
			continue
		}
		kinds[h.Date] = h.Kind
	}

	units := decimal.Zero
	for _, d := range calendar.WeekDates(monday) {
		kind, isHoliday := kinds[d]
		switch {
		case isHoliday && kind == schedule.HolidayFull:
			units = units.Add(fullDayUnit)
		case isAbsent(emp.ID, d, shifts, absences):
			units = units.Add(fullDayUnit)
		case isHoliday && kind == schedule.HolidayAfternoonOnly && base == schedule.FullTimeHours:
			units = units.Add(halfDayUnit)
		}
	}
	return units.Round(1)
}

// =============================================================================
// HELPERS
// =============================================================================

func employeeShifts(employeeID string, week calendar.Range, shifts []schedule.Shift) []schedule.Shift {
	var out []schedule.Shift
	for _, s := range shifts {
		if s.EmployeeID == employeeID && week.Contains(s.Date) {
			out = append(out, s)
		}
	}
	return out
}

func isAbsent(employeeID string, d calendar.Date, shifts []schedule.Shift, absences []schedule.TimeOffRequest) bool {
	for _, s := range shifts {
		if s.EmployeeID == employeeID && s.Date.Equal(d) && s.Type.IsAbsence() {
			return true
		}
	}
	for _, a := range absences {
		if a.EmployeeID == employeeID && a.Type.IsAbsence() && a.Covers(d) {
			return true
		}
	}
	return false
}

// isFullWeekAbsence is true when the employee has at least one vacation or
// sick-leave shift and every shift that is not off/holiday is one of those.
func isFullWeekAbsence(shifts []schedule.Shift) bool {
	seen := false
	for _, s := range shifts {
		switch s.Type {
		case schedule.ShiftOff, schedule.ShiftHoliday:
			continue
		case schedule.ShiftVacation, schedule.ShiftSickLeave:
			seen = true
		default:
			return false
		}
	}
	return seen
}
