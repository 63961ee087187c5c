/*
errors.go - Error taxonomy of the scheduling engine

PURPOSE:
  All error types in one place. Precondition failures abort the requested
  operation with no partial mutation; each carries a human-readable reason.
  Soft warnings and publish blockers are NOT errors: validators return them
  as violation lists (see coverage and restriction packages).

ERROR CATEGORIES:
  1. Precondition errors - existing schedule, locked schedule, invalid
     restriction, overlapping vacation, vacation quota
  2. Input errors - invalid shift / settings / employee
  3. Lookup errors - ErrNotFound

USAGE:
  if errors.Is(err, schedule.ErrScheduleLocked) { ... }

  var exists *schedule.AlreadyExistsError
  if errors.As(err, &exists) { ... exists.ScheduleID ... }
*/
package schedule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/warp/shift-engine/calendar"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrNotFound              = errors.New("not found")
	ErrScheduleExists        = errors.New("schedule already exists for this week")
	ErrScheduleLocked        = errors.New("schedule is locked")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrRestrictionNotAllowed = errors.New("permanent request not allowed")
	ErrVacationOverlap       = errors.New("vacation overlaps an existing vacation")
	ErrVacationQuota         = errors.New("vacation exceeds the yearly allowance")
	ErrInvalidTimeOff        = errors.New("invalid time-off request")
	ErrOverrideOverlap       = errors.New("temporary hours overlap")
	ErrInvalidHours          = errors.New("invalid weekly hours")
	ErrInvalidShift          = errors.New("invalid shift")
	ErrInvalidSchedule       = errors.New("invalid schedule")
	ErrInvalidSettings       = errors.New("invalid settings")
	ErrInvalidEmployee       = errors.New("invalid employee")
	ErrPublishNeedsAck       = errors.New("publish requires acknowledging violations")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AlreadyExistsError is returned when a non-forced generation targets a week
// that already has a schedule.
type AlreadyExistsError struct {
	EstablishmentID string
	WeekStart       calendar.Date
	ScheduleID      string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("a schedule already exists for establishment %s, week of %s (id %s)",
		e.EstablishmentID, e.WeekStart, e.ScheduleID)
}

func (e *AlreadyExistsError) Unwrap() error { return ErrScheduleExists }

// LockedError is returned for edits or regeneration of a locked schedule.
type LockedError struct {
	ScheduleID         string
	ApprovalStatus     ApprovalStatus
	ModificationStatus ModificationStatus
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("schedule %s is locked (approval %s, modification %s)",
		e.ScheduleID, e.ApprovalStatus, e.ModificationStatus)
}

func (e *LockedError) Unwrap() error { return ErrScheduleLocked }

// TransitionError is returned for a state change the machine does not allow.
type TransitionError struct {
	Field string
	From  string
	To    string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move %s from %q to %q", e.Field, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// RestrictionError rejects a permanent request for an employee.
type RestrictionError struct {
	EmployeeID string
	Type       PermanentRequestType
	Reason     string
}

func (e *RestrictionError) Error() string {
	return fmt.Sprintf("%s not allowed for employee %s: %s", e.Type, e.EmployeeID, e.Reason)
}

func (e *RestrictionError) Unwrap() error { return ErrRestrictionNotAllowed }

// VacationOverlapError names the conflicting ranges.
type VacationOverlapError struct {
	EmployeeID string
	Existing   calendar.Range
	Requested  calendar.Range
}

func (e *VacationOverlapError) Error() string {
	return fmt.Sprintf("vacation %s for employee %s overlaps existing vacation %s",
		e.Requested, e.EmployeeID, e.Existing)
}

func (e *VacationOverlapError) Unwrap() error { return ErrVacationOverlap }

// VacationQuotaError reports the yearly allowance being exceeded.
type VacationQuotaError struct {
	EmployeeID string
	Year       int
	Used       int
	Requested  int
	Allowed    int
}

func (e *VacationQuotaError) Error() string {
	return fmt.Sprintf("employee %s would have %d vacation days in %d (already %d, requested %d, allowed %d)",
		e.EmployeeID, e.Used+e.Requested, e.Year, e.Used, e.Requested, e.Allowed)
}

func (e *VacationQuotaError) Unwrap() error { return ErrVacationQuota }

// ShiftError reports a shift that breaks its field invariants.
type ShiftError struct {
	ShiftID string
	Reason  string
}

func (e *ShiftError) Error() string {
	if e.ShiftID == "" {
		return "invalid shift: " + e.Reason
	}
	return fmt.Sprintf("invalid shift %s: %s", e.ShiftID, e.Reason)
}

func (e *ShiftError) Unwrap() error { return ErrInvalidShift }

// PublishBlockedError lists the violations that must be acknowledged
// before publishing.
type PublishBlockedError struct {
	ScheduleID string
	Violations []string
}

func (e *PublishBlockedError) Error() string {
	return fmt.Sprintf("schedule %s has %d unacknowledged violation(s): %s",
		e.ScheduleID, len(e.Violations), strings.Join(e.Violations, "; "))
}

func (e *PublishBlockedError) Unwrap() error { return ErrPublishNeedsAck }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrRestrictionNotAllowed) ||
		errors.Is(err, ErrInvalidTimeOff) ||
		errors.Is(err, ErrOverrideOverlap) ||
		errors.Is(err, ErrInvalidHours) ||
		errors.Is(err, ErrInvalidShift) ||
		errors.Is(err, ErrInvalidSchedule) ||
		errors.Is(err, ErrInvalidSettings) ||
		errors.Is(err, ErrInvalidEmployee)
}

// IsConflict returns true if the request clashes with current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrScheduleExists) ||
		errors.Is(err, ErrScheduleLocked) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrVacationOverlap) ||
		errors.Is(err, ErrVacationQuota) ||
		errors.Is(err, ErrPublishNeedsAck)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
