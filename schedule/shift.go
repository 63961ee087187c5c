package schedule

import (
	"fmt"

	"github.com/warp/shift-engine/calendar"
)

// =============================================================================
// SHIFT TYPE
// =============================================================================

type ShiftType string

const (
	ShiftMorning            ShiftType = "morning"
	ShiftAfternoon          ShiftType = "afternoon"
	ShiftSplit              ShiftType = "split"
	ShiftOff                ShiftType = "off"
	ShiftHoliday            ShiftType = "holiday"
	ShiftVacation           ShiftType = "vacation"
	ShiftSickLeave          ShiftType = "sick_leave"
	ShiftMaternityPaternity ShiftType = "maternity_paternity"
)

// IsWorked reports whether the type carries worked time.
func (t ShiftType) IsWorked() bool {
	return t == ShiftMorning || t == ShiftAfternoon || t == ShiftSplit
}

// IsAbsence reports vacation, sick leave and maternity/paternity leave.
func (t ShiftType) IsAbsence() bool {
	return t == ShiftVacation || t == ShiftSickLeave || t == ShiftMaternityPaternity
}

// HasMorning is true for morning and split shifts.
func (t ShiftType) HasMorning() bool { return t == ShiftMorning || t == ShiftSplit }

// HasAfternoon is true for afternoon and split shifts.
func (t ShiftType) HasAfternoon() bool { return t == ShiftAfternoon || t == ShiftSplit }

func (t ShiftType) Valid() bool {
	switch t {
	case ShiftMorning, ShiftAfternoon, ShiftSplit, ShiftOff, ShiftHoliday,
		ShiftVacation, ShiftSickLeave, ShiftMaternityPaternity:
		return true
	}
	return false
}

// =============================================================================
// ROLE
// =============================================================================

type Role string

const (
	RoleNone             Role = ""
	RoleSalesRegister    Role = "sales_register"
	RolePurchaseRegister Role = "purchase_register"
	RoleShuttle          Role = "shuttle"
	RoleCleaning         Role = "cleaning"
)

func (r Role) Valid() bool {
	switch r {
	case RoleNone, RoleSalesRegister, RolePurchaseRegister, RoleShuttle, RoleCleaning:
		return true
	}
	return false
}

// =============================================================================
// SHIFT
// =============================================================================

// Shift is one employee's assignment for one day.
type Shift struct {
	ID                  string        `json:"id"`
	EmployeeID          string        `json:"employeeId"`
	Date                calendar.Date `json:"date"`
	Type                ShiftType     `json:"type"`
	StartTime           string        `json:"startTime,omitempty"`
	EndTime             string        `json:"endTime,omitempty"`
	MorningEndTime      string        `json:"morningEndTime,omitempty"`
	AfternoonStartTime  string        `json:"afternoonStartTime,omitempty"`
	Role                Role          `json:"role,omitempty"`
	IsOpening           bool          `json:"isOpening"`
	IsClosing           bool          `json:"isClosing"`
	IsIndividualMeeting bool          `json:"isIndividualMeeting"`
}

// Validate enforces the time-field invariants for the shift type.
func (s Shift) Validate() error {
	if !s.Type.Valid() {
		return &ShiftError{ShiftID: s.ID, Reason: fmt.Sprintf("unknown shift type %q", s.Type)}
	}
	if !s.Role.Valid() {
		return &ShiftError{ShiftID: s.ID, Reason: fmt.Sprintf("unknown role %q", s.Role)}
	}

	if !s.Type.IsWorked() {
		if s.StartTime != "" || s.EndTime != "" || s.MorningEndTime != "" || s.AfternoonStartTime != "" {
			return &ShiftError{ShiftID: s.ID, Reason: fmt.Sprintf("%s shifts carry no time fields", s.Type)}
		}
		if s.IsOpening || s.IsClosing {
			return &ShiftError{ShiftID: s.ID, Reason: fmt.Sprintf("%s shift cannot open or close", s.Type)}
		}
		return nil
	}

	times := []string{s.StartTime, s.EndTime}
	if s.Type == ShiftSplit {
		times = []string{s.StartTime, s.MorningEndTime, s.AfternoonStartTime, s.EndTime}
	}
	prev := -1
	for _, v := range times {
		m, err := calendar.ParseClock(v)
		if err != nil {
			return &ShiftError{ShiftID: s.ID, Reason: err.Error()}
		}
		if m <= prev {
			return &ShiftError{ShiftID: s.ID, Reason: fmt.Sprintf("times out of order for %s shift", s.Type)}
		}
		prev = m
	}
	return nil
}

// StartMinutes returns the first worked minute of the day.
func (s Shift) StartMinutes() (int, bool) {
	m, err := calendar.ParseClock(s.StartTime)
	return m, err == nil
}

// EndMinutes returns the last worked minute of the day.
func (s Shift) EndMinutes() (int, bool) {
	m, err := calendar.ParseClock(s.EndTime)
	return m, err == nil
}

// clearTimes drops everything that only makes sense on a worked shift.
func (s Shift) clearTimes() Shift {
	s.StartTime, s.EndTime, s.MorningEndTime, s.AfternoonStartTime = "", "", "", ""
	s.Role = RoleNone
	s.IsOpening, s.IsClosing, s.IsIndividualMeeting = false, false, false
	return s
}

// =============================================================================
// SHIFT PATCH - Partial update
// =============================================================================

// ShiftPatch carries the fields a user changed. Nil means "unchanged".
type ShiftPatch struct {
	Type                *ShiftType `json:"type,omitempty"`
	StartTime           *string    `json:"startTime,omitempty"`
	EndTime             *string    `json:"endTime,omitempty"`
	MorningEndTime      *string    `json:"morningEndTime,omitempty"`
	AfternoonStartTime  *string    `json:"afternoonStartTime,omitempty"`
	Role                *Role      `json:"role,omitempty"`
	IsOpening           *bool      `json:"isOpening,omitempty"`
	IsClosing           *bool      `json:"isClosing,omitempty"`
	IsIndividualMeeting *bool      `json:"isIndividualMeeting,omitempty"`
}

// Apply returns the patched shift. Switching to a non-worked type clears
// the time fields and responsibilities; switching to a half-day clears the
// split-only fields.
func (s Shift) Apply(p ShiftPatch) Shift {
	if p.Type != nil {
		s.Type = *p.Type
		if !s.Type.IsWorked() {
			s = s.clearTimes()
		} else if s.Type != ShiftSplit {
			s.MorningEndTime, s.AfternoonStartTime = "", ""
		}
	}
	if !s.Type.IsWorked() {
		return s
	}
	if p.StartTime != nil {
		s.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		s.EndTime = *p.EndTime
	}
	if p.MorningEndTime != nil {
		s.MorningEndTime = *p.MorningEndTime
	}
	if p.AfternoonStartTime != nil {
		s.AfternoonStartTime = *p.AfternoonStartTime
	}
	if p.Role != nil {
		s.Role = *p.Role
	}
	if p.IsOpening != nil {
		s.IsOpening = *p.IsOpening
	}
	if p.IsClosing != nil {
		s.IsClosing = *p.IsClosing
	}
	if p.IsIndividualMeeting != nil {
		s.IsIndividualMeeting = *p.IsIndividualMeeting
	}
	return s
}
