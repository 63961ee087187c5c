/*
schedule.go - Weekly schedule aggregate and its lifecycle

PURPOSE:
  A Schedule owns one week of shifts for one establishment. It is the unit
  of generation, editing, publishing and approval.

LOCK RULE:
  A schedule is locked (no shift edits, no regeneration) when
    approvalStatus = pending
  or
    approvalStatus = approved AND modificationStatus != approved

STATE MACHINES:
  approvalStatus:     none -> (publish) -> pending -> approved | rejected
                      rejected -> (publish) -> pending
  modificationStatus: none -> (request on approved) -> requested
                      requested -> approved (unlocks editing) | none (denied)
  Publishing an approved schedule whose modification was approved starts a
  new review: approval -> pending, modification -> none.

IMMUTABILITY:
  Every lifecycle method returns a new *Schedule. The receiver is never
  modified, so validators can keep reading the old snapshot.

SEE ALSO:
  - shift.go: Shift invariants and ShiftPatch
  - service/service.go: serializes these transitions against the Repository
*/
package schedule

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/calendar"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "none"
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

type ModificationStatus string

const (
	ModificationNone      ModificationStatus = "none"
	ModificationRequested ModificationStatus = "requested"
	ModificationApproved  ModificationStatus = "approved"
)

// =============================================================================
// SCHEDULE
// =============================================================================

type Schedule struct {
	ID                 string             `json:"id"`
	EstablishmentID    string             `json:"establishmentId"`
	WeekStartDate      calendar.Date      `json:"weekStartDate"`
	Shifts             []Shift            `json:"shifts"`
	Status             Status             `json:"status"`
	ApprovalStatus     ApprovalStatus     `json:"approvalStatus"`
	ModificationStatus ModificationStatus `json:"modificationStatus"`
	SupervisorNotes    string             `json:"supervisorNotes,omitempty"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`

	// AppliedDebt is the hours-debt delta credited per employee at the last
	// approval. A later approval only applies the difference.
	AppliedDebt map[string]decimal.Decimal `json:"appliedDebt,omitempty"`
}

// NewDraft returns an empty draft for the week containing weekStart.
func NewDraft(id, establishmentID string, weekStart calendar.Date) *Schedule {
	now := time.Now().UTC()
	return &Schedule{
		ID:                 id,
		EstablishmentID:    establishmentID,
		WeekStartDate:      calendar.WeekStart(weekStart),
		Status:             StatusDraft,
		ApprovalStatus:     ApprovalNone,
		ModificationStatus: ModificationNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

// IsLocked applies the lock rule.
func (s *Schedule) IsLocked() bool {
	if s.ApprovalStatus == ApprovalPending {
		return true
	}
	return s.ApprovalStatus == ApprovalApproved && s.ModificationStatus != ModificationApproved
}

// Clone returns a deep copy.
func (s *Schedule) Clone() *Schedule {
	out := *s
	out.Shifts = append([]Shift(nil), s.Shifts...)
	if s.AppliedDebt != nil {
		out.AppliedDebt = make(map[string]decimal.Decimal, len(s.AppliedDebt))
		for k, v := range s.AppliedDebt {
			out.AppliedDebt[k] = v
		}
	}
	return &out
}

// Week returns the Monday..Sunday dates of the schedule.
func (s *Schedule) Week() [7]calendar.Date {
	return calendar.WeekDates(s.WeekStartDate)
}

// ShiftsFor returns the employee's shifts in date order.
func (s *Schedule) ShiftsFor(employeeID string) []Shift {
	var out []Shift
	for _, sh := range s.Shifts {
		if sh.EmployeeID == employeeID {
			out = append(out, sh)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// ShiftsOn returns all shifts dated d.
func (s *Schedule) ShiftsOn(d calendar.Date) []Shift {
	var out []Shift
	for _, sh := range s.Shifts {
		if sh.Date.Equal(d) {
			out = append(out, sh)
		}
	}
	return out
}

// Shift finds a shift by id.
func (s *Schedule) Shift(id string) (Shift, bool) {
	for _, sh := range s.Shifts {
		if sh.ID == id {
			return sh, true
		}
	}
	return Shift{}, false
}

// Validate checks the aggregate invariants: Monday start, shifts inside the
// week, one shift per (employee, date), shift field invariants.
func (s *Schedule) Validate() error {
	if !s.WeekStartDate.IsMonday() {
		return fmt.Errorf("%w: week start %s is not a Monday", ErrInvalidSchedule, s.WeekStartDate)
	}
	week := calendar.Week(s.WeekStartDate)
	type key struct {
		employee string
		date     calendar.Date
	}
	seen := make(map[key]bool, len(s.Shifts))
	for _, sh := range s.Shifts {
		if !week.Contains(sh.Date) {
			return fmt.Errorf("%w: shift %s dated %s outside week %s", ErrInvalidSchedule, sh.ID, sh.Date, week)
		}
		k := key{sh.EmployeeID, sh.Date}
		if seen[k] {
			return fmt.Errorf("%w: duplicate shift for employee %s on %s", ErrInvalidSchedule, sh.EmployeeID, sh.Date)
		}
		seen[k] = true
		if err := sh.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// WithShift returns a copy with one shift patched.
func (s *Schedule) WithShift(shiftID string, p ShiftPatch) (*Schedule, error) {
	if s.IsLocked() {
		return nil, s.lockedError()
	}
	out := s.Clone()
	for i, sh := range out.Shifts {
		if sh.ID != shiftID {
			continue
		}
		patched := sh.Apply(p)
		if err := patched.Validate(); err != nil {
			return nil, err
		}
		out.Shifts[i] = patched
		out.UpdatedAt = time.Now().UTC()
		return out, nil
	}
	return nil, fmt.Errorf("%w: shift %s in schedule %s", ErrNotFound, shiftID, s.ID)
}

// Publish moves the schedule to published / pending review.
func (s *Schedule) Publish() (*Schedule, error) {
	if s.IsLocked() {
		return nil, s.lockedError()
	}
	out := s.Clone()
	out.Status = StatusPublished
	out.ApprovalStatus = ApprovalPending
	out.ModificationStatus = ModificationNone
	out.UpdatedAt = time.Now().UTC()
	return out, nil
}

// DecideApproval records the supervisor decision on a pending schedule.
func (s *Schedule) DecideApproval(approved bool, notes string) (*Schedule, error) {
	if s.ApprovalStatus != ApprovalPending {
		return nil, &TransitionError{Field: "approvalStatus", From: string(s.ApprovalStatus), To: decision(approved, ApprovalApproved, ApprovalRejected)}
	}
	out := s.Clone()
	out.ApprovalStatus = ApprovalRejected
	if approved {
		out.ApprovalStatus = ApprovalApproved
	}
	out.SupervisorNotes = notes
	out.UpdatedAt = time.Now().UTC()
	return out, nil
}

// RequestModification asks to reopen an approved schedule.
func (s *Schedule) RequestModification() (*Schedule, error) {
	if s.ApprovalStatus != ApprovalApproved || s.ModificationStatus != ModificationNone {
		return nil, &TransitionError{Field: "modificationStatus", From: string(s.ModificationStatus), To: string(ModificationRequested)}
	}
	out := s.Clone()
	out.ModificationStatus = ModificationRequested
	out.UpdatedAt = time.Now().UTC()
	return out, nil
}

// DecideModification grants (unlocks editing) or denies a modification request.
func (s *Schedule) DecideModification(approved bool) (*Schedule, error) {
	if s.ModificationStatus != ModificationRequested {
		return nil, &TransitionError{Field: "modificationStatus", From: string(s.ModificationStatus), To: decision(approved, ModificationApproved, ModificationNone)}
	}
	out := s.Clone()
	out.ModificationStatus = ModificationNone
	if approved {
		out.ModificationStatus = ModificationApproved
	}
	out.UpdatedAt = time.Now().UTC()
	return out, nil
}

func (s *Schedule) lockedError() error {
	return &LockedError{
		ScheduleID:         s.ID,
		ApprovalStatus:     s.ApprovalStatus,
		ModificationStatus: s.ModificationStatus,
	}
}

func decision[T ~string](approved bool, yes, no T) string {
	if approved {
		return string(yes)
	}
	return string(no)
}

// SortShifts orders shifts by date, then by the given employee order.
// Employees missing from order sort last by id.
func SortShifts(shifts []Shift, order map[string]int) {
	rank := func(id string) int {
		if r, ok := order[id]; ok {
			return r
		}
		return len(order)
	}
	sort.SliceStable(shifts, func(i, j int) bool {
		if !shifts[i].Date.Equal(shifts[j].Date) {
			return shifts[i].Date.Before(shifts[j].Date)
		}
		ri, rj := rank(shifts[i].EmployeeID), rank(shifts[j].EmployeeID)
		if ri != rj {
			return ri < rj
		}
		return shifts[i].EmployeeID < shifts[j].EmployeeID
	})
}
