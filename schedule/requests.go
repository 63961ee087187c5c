package schedule

import (
	"sort"

	"github.com/warp/shift-engine/calendar"
)

// =============================================================================
// PERMANENT REQUEST - Standing recurring constraint
// =============================================================================

type PermanentRequestType string

const (
	PermanentMorningOnly          PermanentRequestType = "morning_only"
	PermanentAfternoonOnly        PermanentRequestType = "afternoon_only"
	PermanentSpecificDaysOff      PermanentRequestType = "specific_days_off"
	PermanentRotatingDaysOff      PermanentRequestType = "rotating_days_off"
	PermanentFixedRotatingShift   PermanentRequestType = "fixed_rotating_shift"
	PermanentMaxAfternoonsPerWeek PermanentRequestType = "max_afternoons_per_week"
	PermanentForceFullDays        PermanentRequestType = "force_full_days"
	PermanentEarlyMorningShift    PermanentRequestType = "early_morning_shift"
)

// IsAdvisory reports types that are preferences rather than hard rules.
func (t PermanentRequestType) IsAdvisory() bool {
	return t == PermanentForceFullDays || t == PermanentEarlyMorningShift
}

func (t PermanentRequestType) Valid() bool {
	switch t {
	case PermanentMorningOnly, PermanentAfternoonOnly, PermanentSpecificDaysOff,
		PermanentRotatingDaysOff, PermanentFixedRotatingShift, PermanentMaxAfternoonsPerWeek,
		PermanentForceFullDays, PermanentEarlyMorningShift:
		return true
	}
	return false
}

// CycleWeek is one week of a rotating days-off cycle.
type CycleWeek struct {
	Days []int `json:"days"`
}

// PermanentRequest payload depends on Type:
//   - specific_days_off: Days (weekday indexes, 0=Sunday)
//   - max_afternoons_per_week: Value (cap)
//   - rotating_days_off: CycleWeeks + ReferenceDate
//   - fixed_rotating_shift: Value (first day off, Monday=1..Saturday=6) + ReferenceDate
type PermanentRequest struct {
	ID            string               `json:"id"`
	EmployeeID    string               `json:"employeeId"`
	Type          PermanentRequestType `json:"type"`
	Days          []int                `json:"days,omitempty"`
	Value         int                  `json:"value,omitempty"`
	CycleWeeks    []CycleWeek          `json:"cycleWeeks,omitempty"`
	ReferenceDate calendar.Date        `json:"referenceDate"`
}

// RequestsFor filters requests by employee.
func RequestsFor(requests []PermanentRequest, employeeID string) []PermanentRequest {
	var out []PermanentRequest
	for _, r := range requests {
		if r.EmployeeID == employeeID {
			out = append(out, r)
		}
	}
	return out
}

// =============================================================================
// TIME-OFF REQUEST
// =============================================================================

type TimeOffType string

const (
	TimeOffDayOff             TimeOffType = "day_off"
	TimeOffMorningOff         TimeOffType = "morning_off"
	TimeOffAfternoonOff       TimeOffType = "afternoon_off"
	TimeOffVacation           TimeOffType = "vacation"
	TimeOffSickLeave          TimeOffType = "sick_leave"
	TimeOffMaternityPaternity TimeOffType = "maternity_paternity"
)

// IsAbsence reports types that reduce the weekly target.
func (t TimeOffType) IsAbsence() bool {
	return t == TimeOffVacation || t == TimeOffSickLeave || t == TimeOffMaternityPaternity
}

// ShiftType is the pre-assigned shift for a full-day time-off type.
func (t TimeOffType) ShiftType() (ShiftType, bool) {
	switch t {
	case TimeOffDayOff:
		return ShiftOff, true
	case TimeOffVacation:
		return ShiftVacation, true
	case TimeOffSickLeave:
		return ShiftSickLeave, true
	case TimeOffMaternityPaternity:
		return ShiftMaternityPaternity, true
	}
	return "", false
}

func (t TimeOffType) Valid() bool {
	switch t {
	case TimeOffDayOff, TimeOffMorningOff, TimeOffAfternoonOff,
		TimeOffVacation, TimeOffSickLeave, TimeOffMaternityPaternity:
		return true
	}
	return false
}

// TimeOffRequest either lists explicit Dates or spans StartDate..EndDate.
type TimeOffRequest struct {
	ID         string          `json:"id"`
	EmployeeID string          `json:"employeeId"`
	Type       TimeOffType     `json:"type"`
	Dates      []calendar.Date `json:"dates,omitempty"`
	StartDate  calendar.Date   `json:"startDate"`
	EndDate    calendar.Date   `json:"endDate"`
}

// HasRange reports whether the request uses the start/end form.
func (r TimeOffRequest) HasRange() bool {
	return !r.StartDate.IsZero() && !r.EndDate.IsZero()
}

// AllDates returns the explicit dates plus the expanded range, sorted and
// without duplicates.
func (r TimeOffRequest) AllDates() []calendar.Date {
	seen := make(map[calendar.Date]bool)
	var out []calendar.Date
	add := func(d calendar.Date) {
		if d.IsZero() || seen[d] {
			return
		}
		seen[d] = true
		out = append(out, d)
	}
	for _, d := range r.Dates {
		add(d)
	}
	if r.HasRange() {
		for _, d := range (calendar.Range{Start: r.StartDate, End: r.EndDate}).Days() {
			add(d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Covers reports whether the request includes d.
func (r TimeOffRequest) Covers(d calendar.Date) bool {
	if r.HasRange() && (calendar.Range{Start: r.StartDate, End: r.EndDate}).Contains(d) {
		return true
	}
	for _, x := range r.Dates {
		if x.Equal(d) {
			return true
		}
	}
	return false
}

// Span returns the smallest range containing every requested day.
func (r TimeOffRequest) Span() (calendar.Range, bool) {
	days := r.AllDates()
	if len(days) == 0 {
		return calendar.Range{}, false
	}
	return calendar.Range{Start: days[0], End: days[len(days)-1]}, true
}
