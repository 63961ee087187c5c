/*
Package timeoff validates time-off requests and answers "is this employee
off on this day?" for the generator and the hours calculator.

PURPOSE:
  A request either lists explicit dates or spans StartDate..EndDate
  (inclusive). Vacation ranges are additionally expanded into Dates when
  accepted so downstream readers never need to re-expand them.

PRECONDITIONS (checked by Prepare, nothing is saved on failure):
  - known type, at least one day, EndDate not before StartDate
  - vacation: no overlap with another vacation of the same employee
  - vacation: at most VacationDaysPerYear days per calendar year

LOOKUP:
  Index builds a per-employee, per-day view. When several requests cover
  the same day the strongest wins:
    absence (vacation/sick/maternity) > day_off > morning_off/afternoon_off

SEE ALSO:
  - schedule/requests.go: TimeOffRequest itself
  - generator: pre-assigns absence shifts from the Index
*/
package timeoff

import (
	"fmt"
	"sort"

	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/schedule"
)

// VacationDaysPerYear is the yearly vacation allowance per employee.
const VacationDaysPerYear = 31

// =============================================================================
// PRECONDITIONS
// =============================================================================

// Prepare validates req against the employee's existing requests and returns
// the request to store.
func Prepare(req schedule.TimeOffRequest, existing []schedule.TimeOffRequest) (schedule.TimeOffRequest, error) {
	if req.EmployeeID == "" {
		return schedule.TimeOffRequest{}, fmt.Errorf("%w: employee is required", schedule.ErrInvalidTimeOff)
	}
	if !req.Type.Valid() {
		return schedule.TimeOffRequest{}, fmt.Errorf("%w: unknown type %q", schedule.ErrInvalidTimeOff, req.Type)
	}
	if req.StartDate.IsZero() != req.EndDate.IsZero() {
		return schedule.TimeOffRequest{}, fmt.Errorf("%w: a range needs both start and end", schedule.ErrInvalidTimeOff)
	}
	if req.HasRange() {
		if _, err := calendar.NewRange(req.StartDate, req.EndDate); err != nil {
			return schedule.TimeOffRequest{}, fmt.Errorf("%w: %v", schedule.ErrInvalidTimeOff, err)
		}
	}
	days := req.AllDates()
	if len(days) == 0 {
		return schedule.TimeOffRequest{}, fmt.Errorf("%w: no dates requested", schedule.ErrInvalidTimeOff)
	}

	if req.Type != schedule.TimeOffVacation {
		return req, nil
	}

	if err := checkOverlap(req, existing); err != nil {
		return schedule.TimeOffRequest{}, err
	}
	if err := checkQuota(req.EmployeeID, days, existing); err != nil {
		return schedule.TimeOffRequest{}, err
	}

	req.Dates = days
	return req, nil
}

func checkOverlap(req schedule.TimeOffRequest, existing []schedule.TimeOffRequest) error {
	requested, _ := req.Span()
	for _, other := range vacationsOf(req.EmployeeID, existing) {
		if other.ID != "" && other.ID == req.ID {
			continue
		}
		span, ok := other.Span()
		if !ok || !span.Overlaps(requested) {
			continue
		}
		// Spans can overlap while explicit date lists interleave; only a
		// shared day is a conflict.
		for _, d := range req.AllDates() {
			if other.Covers(d) {
				return &schedule.VacationOverlapError{
					EmployeeID: req.EmployeeID,
					Existing:   span,
					Requested:  requested,
				}
			}
		}
	}
	return nil
}

func checkQuota(employeeID string, days []calendar.Date, existing []schedule.TimeOffRequest) error {
	requested := make(map[int]int)
	for _, d := range days {
		requested[d.Year()]++
	}
	used := make(map[int]int)
	for _, other := range vacationsOf(employeeID, existing) {
		for _, d := range other.AllDates() {
			used[d.Year()]++
		}
	}
	for _, year := range sortedYears(requested) {
		if used[year]+requested[year] > VacationDaysPerYear {
			return &schedule.VacationQuotaError{
				EmployeeID: employeeID,
				Year:       year,
				Used:       used[year],
				Requested:  requested[year],
				Allowed:    VacationDaysPerYear,
			}
		}
	}
	return nil
}

func vacationsOf(employeeID string, requests []schedule.TimeOffRequest) []schedule.TimeOffRequest {
	var out []schedule.TimeOffRequest
	for _, r := range requests {
		if r.EmployeeID == employeeID && r.Type == schedule.TimeOffVacation {
			out = append(out, r)
		}
	}
	return out
}

func sortedYears(m map[int]int) []int {
	years := make([]int, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// VacationDaysUsed counts the employee's vacation days in year.
func VacationDaysUsed(employeeID string, year int, requests []schedule.TimeOffRequest) int {
	n := 0
	for _, r := range vacationsOf(employeeID, requests) {
		for _, d := range r.AllDates() {
			if d.Year() == year {
				n++
			}
		}
	}
	return n
}

// InRange returns the requests touching r.
func InRange(requests []schedule.TimeOffRequest, r calendar.Range) []schedule.TimeOffRequest {
	var out []schedule.TimeOffRequest
	for _, req := range requests {
		span, ok := req.Span()
		if ok && span.Overlaps(r) {
			out = append(out, req)
		}
	}
	return out
}
