/*
Package generator implements the Shift Generator.

PURPOSE:
  Builds the initial draft schedule of a week for one establishment. The
  generator is greedy and restriction-aware: it never violates a hard
  restriction, and leaves anything it cannot satisfy for the validators to
  report.

ALGORITHM:
  1. Targets       hours.TargetHours per active employee (no worked side)
  2. Fixed days    closed days (holiday / closed Sunday), absences, day_off
                   requests and required days off from permanent requests
                   are pre-assigned and excluded from work
  3. Work days     the mix of splits, mornings and afternoons whose real
                   lengths come closest to the target is placed on the
                   least staffed days. Allowed halves come from
                   morning_only / afternoon_only / half-day time-off, and
                   the afternoon cap limits the mix
  4. Responsible   per day, among Manager / Assistant Manager / Supervisor
                   shifts, the earliest start opens and the latest end
                   closes
  5. Roles         sales and purchase registers are handed out to the
                   remaining worked shifts where possible

  Employees are planned in category priority order so responsible staff
  choose their days first.

EXISTING SCHEDULES:
  Without Force any existing schedule is an AlreadyExistsError. With Force
  a locked schedule is a LockedError and an unlocked one is replaced; the
  replacement keeps the schedule id and starts over as a draft.

SEE ALSO:
  - plan.go: per-employee planning, work mix and placement
  - times.go: shift times from the settings templates
*/
package generator

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/restriction"
	"github.com/warp/shift-engine/schedule"
	"github.com/warp/shift-engine/timeoff"
)

// Input carries everything a generation needs. The generator reads no state
// of its own.
type Input struct {
	EstablishmentID string
	WeekStart       calendar.Date
	Employees       []schedule.Employee
	Settings        schedule.Settings
	Restrictions    []schedule.PermanentRequest
	Absences        []schedule.TimeOffRequest

	// Existing is the schedule already stored for the week, if any.
	Existing *schedule.Schedule
	Force    bool

	// NewID generates schedule and shift ids. Defaults to uuid.NewString.
	NewID func() string
}

// Generate produces the draft schedule for in.WeekStart's week.
func Generate(in Input) (*schedule.Schedule, error) {
	monday := calendar.WeekStart(in.WeekStart)
	if in.NewID == nil {
		in.NewID = uuid.NewString
	}

	if in.Existing != nil {
		if !in.Force {
			return nil, &schedule.AlreadyExistsError{
				EstablishmentID: in.EstablishmentID,
				WeekStart:       monday,
				ScheduleID:      in.Existing.ID,
			}
		}
		if in.Existing.IsLocked() {
			return nil, &schedule.LockedError{
				ScheduleID:         in.Existing.ID,
				ApprovalStatus:     in.Existing.ApprovalStatus,
				ModificationStatus: in.Existing.ModificationStatus,
			}
		}
	}

	g := &generation{
		in:       in,
		monday:   monday,
		week:     calendar.WeekDates(monday),
		settings: in.Settings.WithDefaults(),
		absences: timeoff.NewIndex(in.Absences, calendar.Week(monday)),
		load:     make(map[calendar.Date]*dayLoad, 7),
	}
	for _, d := range g.week {
		g.load[d] = &dayLoad{}
	}

	var shifts []schedule.Shift
	order := make(map[string]int)
	for _, emp := range schedule.SortByPriority(in.Employees) {
		if !g.activeThisWeek(emp) {
			continue
		}
		order[emp.ID] = len(order)
		shifts = append(shifts, g.planEmployee(emp)...)
	}

	byID := schedule.IndexEmployees(in.Employees)
	markResponsible(shifts, byID)
	assignRegisters(shifts, byID)
	schedule.SortShifts(shifts, order)

	out := schedule.NewDraft(in.NewID(), in.EstablishmentID, monday)
	if in.Existing != nil {
		out.ID = in.Existing.ID
		out.CreatedAt = in.Existing.CreatedAt
	}
	out.Shifts = shifts
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("generated schedule is invalid: %w", err)
	}
	return out, nil
}

// =============================================================================
// GENERATION STATE
// =============================================================================

// dayLoad counts staffed slots already placed on a day.
type dayLoad struct {
	morning   int
	afternoon int
}

func (l *dayLoad) total() int { return l.morning + l.afternoon }

type generation struct {
	in       Input
	monday   calendar.Date
	week     [7]calendar.Date
	settings schedule.Settings
	absences timeoff.Index
	load     map[calendar.Date]*dayLoad
}

func (g *generation) activeThisWeek(emp schedule.Employee) bool {
	for _, d := range g.week {
		if emp.IsActiveOn(d) {
			return true
		}
	}
	return false
}

func (g *generation) requestsOf(employeeID string) []schedule.PermanentRequest {
	return schedule.RequestsFor(g.in.Restrictions, employeeID)
}

func (g *generation) requiredDaysOff(employeeID string) map[calendar.Date]bool {
	out := make(map[calendar.Date]bool)
	for _, req := range g.requestsOf(employeeID) {
		for _, wd := range restriction.RequiredDaysOff(req, g.monday) {
			out[calendar.DateForWeekday(g.monday, wd)] = true
		}
	}
	return out
}

func (g *generation) newShift(emp schedule.Employee, d calendar.Date, t schedule.ShiftType) schedule.Shift {
	return schedule.Shift{
		ID:         g.in.NewID(),
		EmployeeID: emp.ID,
		Date:       d,
		Type:       t,
	}
}

// =============================================================================
// RESPONSIBILITY & ROLES
// =============================================================================

// markResponsible flags, per day, the earliest-starting responsible shift as
// opening and the latest-ending one as closing. Ties go to the shift listed
// first, which is the higher category.
func markResponsible(shifts []schedule.Shift, byID map[string]schedule.Employee) {
	type pick struct {
		idx int
		at  int
	}
	opening := make(map[calendar.Date]pick)
	closing := make(map[calendar.Date]pick)

	for i, sh := range shifts {
		if !sh.Type.IsWorked() || !byID[sh.EmployeeID].Category.IsResponsible() {
			continue
		}
		if start, ok := sh.StartMinutes(); ok {
			if p, seen := opening[sh.Date]; !seen || start < p.at {
				opening[sh.Date] = pick{i, start}
			}
		}
		if end, ok := sh.EndMinutes(); ok {
			if p, seen := closing[sh.Date]; !seen || end > p.at {
				closing[sh.Date] = pick{i, end}
			}
		}
	}

	for _, p := range opening {
		shifts[p.idx].IsOpening = true
	}
	for _, p := range closing {
		shifts[p.idx].IsClosing = true
	}
}

// assignRegisters gives each day one sales and one purchase register when
// someone without a role works that day. Regular employees are asked first,
// then responsible staff not already opening or closing, then the rest.
func assignRegisters(shifts []schedule.Shift, byID map[string]schedule.Employee) {
	days := make(map[calendar.Date][]int)
	var dates []calendar.Date
	for i, sh := range shifts {
		if _, ok := days[sh.Date]; !ok {
			dates = append(dates, sh.Date)
		}
		days[sh.Date] = append(days[sh.Date], i)
	}

	rank := func(sh schedule.Shift) int {
		cat := byID[sh.EmployeeID].Category
		switch {
		case cat == schedule.CategoryCleaning:
			return -1
		case !cat.IsResponsible():
			return 0
		case !sh.IsOpening && !sh.IsClosing:
			return 1
		default:
			return 2
		}
	}

	for _, d := range dates {
		for _, role := range []schedule.Role{schedule.RoleSalesRegister, schedule.RolePurchaseRegister} {
			best := -1
			for _, i := range days[d] {
				sh := shifts[i]
				r := rank(sh)
				if !sh.Type.IsWorked() || sh.Role != schedule.RoleNone || r < 0 {
					continue
				}
				if best < 0 || r < rank(shifts[best]) {
					best = i
				}
			}
			if best >= 0 {
				shifts[best].Role = role
			}
		}
	}
}
