/*
Package restriction implements the Permanent Restriction Validator.

PURPOSE:
  Evaluates a schedule against each employee's standing recurring
  constraints and reports violations. Nothing is rejected here: the caller
  decides whether violations block anything.

RULES (per employee, over the schedule's Mon..Sun):
  morning_only            any afternoon or split shift
  afternoon_only          any morning or split shift
  specific_days_off       a worked shift on a listed weekday
  rotating_days_off       a worked shift on the active cycle week's days;
                          active week = floor(weeks since reference) mod len
  fixed_rotating_shift    a worked shift on the rotating day off;
                          day = value at the reference week, +1 per week,
                          Saturday wraps to Monday
  max_afternoons_per_week afternoons + splits > value
  force_full_days         advisory: half-day shifts next to other workdays
  early_morning_shift     advisory: morning block not starting at the
                          configured early start

ADVISORY vs HARD:
  force_full_days and early_morning_shift only produce advisory
  violations. ValidatePermanentRestrictions(strict=false) drops them.

WEEKDAYS:
  Weekday indexes are 0=Sunday..6=Saturday everywhere. See calendar.

SEE ALSO:
  - rules.go: RequiredDaysOff (also used by the generator) and Prepare
*/
package restriction

import (
	"fmt"
	"sort"

	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/schedule"
)

// Violation is one broken restriction. Date is zero for week-level findings.
type Violation struct {
	EmployeeID string                        `json:"employeeId"`
	Date       calendar.Date                 `json:"date"`
	Type       schedule.PermanentRequestType `json:"type"`
	Advisory   bool                          `json:"advisory"`
	Message    string                        `json:"message"`
}

func (v Violation) String() string { return v.Message }

// Options tune the checks that depend on store configuration.
type Options struct {
	// EarlyMorningStart is the expected start for early_morning_shift.
	// Defaults to schedule.DefaultEarlyMorningStart.
	EarlyMorningStart string
}

// OptionsFrom derives Options from establishment settings.
func OptionsFrom(settings schedule.Settings) Options {
	return Options{EarlyMorningStart: settings.WithDefaults().EarlyMorningStart}
}

// =============================================================================
// ENTRY POINTS
// =============================================================================

// ValidatePermanentRestrictions returns violation messages. With strict set
// advisory findings are included; otherwise only hard violations are.
func ValidatePermanentRestrictions(
	s *schedule.Schedule,
	requests []schedule.PermanentRequest,
	employees []schedule.Employee,
	strict bool,
) []string {
	var out []string
	for _, v := range Validate(s, requests, employees, Options{}) {
		if v.Advisory && !strict {
			continue
		}
		out = append(out, v.Message)
	}
	return out
}

// Validate evaluates every request against the schedule. Requests of
// employees without shifts in the schedule are still evaluated (and
// trivially pass the day-off rules).
func Validate(
	s *schedule.Schedule,
	requests []schedule.PermanentRequest,
	employees []schedule.Employee,
	opts Options,
) []Violation {
	if opts.EarlyMorningStart == "" {
		opts.EarlyMorningStart = schedule.DefaultEarlyMorningStart
	}
	names := make(map[string]string, len(employees))
	for _, e := range employees {
		names[e.ID] = e.Name
	}

	var out []Violation
	for _, req := range requests {
		c := check{
			req:    req,
			name:   displayName(names, req.EmployeeID),
			week:   s.Week(),
			shifts: s.ShiftsFor(req.EmployeeID),
			opts:   opts,
		}
		out = append(out, c.run()...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EmployeeID != out[j].EmployeeID {
			return out[i].EmployeeID < out[j].EmployeeID
		}
		return out[i].Date.Before(out[j].Date)
	})
	return out
}

// Hard filters out advisory violations.
func Hard(vs []Violation) []Violation {
	var out []Violation
	for _, v := range vs {
		if !v.Advisory {
			out = append(out, v)
		}
	}
	return out
}

// =============================================================================
// PER-REQUEST CHECK
// =============================================================================

type check struct {
	req    schedule.PermanentRequest
	name   string
	week   [7]calendar.Date
	shifts []schedule.Shift
	opts   Options
}

func (c check) run() []Violation {
	switch c.req.Type {
	case schedule.PermanentMorningOnly:
		return c.each(func(sh schedule.Shift) string {
			if sh.Type.HasAfternoon() {
				return fmt.Sprintf("%s is restricted to mornings but has a %s shift on %s", c.name, sh.Type, dayLabel(sh.Date))
			}
			return ""
		})

	case schedule.PermanentAfternoonOnly:
		return c.each(func(sh schedule.Shift) string {
			if sh.Type.HasMorning() {
				return fmt.Sprintf("%s is restricted to afternoons but has a %s shift on %s", c.name, sh.Type, dayLabel(sh.Date))
			}
			return ""
		})

	case schedule.PermanentSpecificDaysOff, schedule.PermanentRotatingDaysOff, schedule.PermanentFixedRotatingShift:
		return c.daysOff()

	case schedule.PermanentMaxAfternoonsPerWeek:
		n := 0
		for _, sh := range c.shifts {
			if sh.Type.HasAfternoon() {
				n++
			}
		}
		if n > c.req.Value {
			return []Violation{c.violation(calendar.Date{}, false,
				fmt.Sprintf("%s has %d afternoons this week (maximum %d)", c.name, n, c.req.Value))}
		}

	case schedule.PermanentForceFullDays:
		return c.halfDays()

	case schedule.PermanentEarlyMorningShift:
		return c.each(func(sh schedule.Shift) string {
			if sh.Type.HasMorning() && sh.StartTime != "" && sh.StartTime != c.opts.EarlyMorningStart {
				return fmt.Sprintf("%s prefers early mornings starting at %s but starts at %s on %s",
					c.name, c.opts.EarlyMorningStart, sh.StartTime, dayLabel(sh.Date))
			}
			return ""
		})
	}
	return nil
}

// each runs rule over every shift and collects non-empty messages.
func (c check) each(rule func(schedule.Shift) string) []Violation {
	var out []Violation
	for _, sh := range c.shifts {
		if msg := rule(sh); msg != "" {
			out = append(out, c.violation(sh.Date, c.req.Type.IsAdvisory(), msg))
		}
	}
	return out
}

func (c check) daysOff() []Violation {
	var out []Violation
	for _, wd := range RequiredDaysOff(c.req, c.week[0]) {
		d := calendar.DateForWeekday(c.week[0], wd)
		for _, sh := range c.shifts {
			if sh.Date.Equal(d) && sh.Type.IsWorked() {
				out = append(out, c.violation(d, false,
					fmt.Sprintf("%s works on %s, a required day off (%s)", c.name, dayLabel(d), c.req.Type)))
			}
		}
	}
	return out
}

// halfDays flags half-day shifts that sit next to another workday when the
// week has at least two of them, since those could merge into one split day.
func (c check) halfDays() []Violation {
	worked := make(map[calendar.Date]schedule.ShiftType)
	halves := 0
	for _, sh := range c.shifts {
		if sh.Type.IsWorked() {
			worked[sh.Date] = sh.Type
			if sh.Type != schedule.ShiftSplit {
				halves++
			}
		}
	}
	if halves < 2 {
		return nil
	}

	var out []Violation
	for _, d := range c.week {
		t, ok := worked[d]
		if !ok || t == schedule.ShiftSplit {
			continue
		}
		_, prev := worked[d.AddDays(-1)]
		_, next := worked[d.AddDays(1)]
		if prev || next {
			out = append(out, c.violation(d, true,
				fmt.Sprintf("%s prefers full days but has a single %s shift on %s next to other workdays", c.name, t, dayLabel(d))))
		}
	}
	return out
}

func (c check) violation(d calendar.Date, advisory bool, msg string) Violation {
	return Violation{
		EmployeeID: c.req.EmployeeID,
		Date:       d,
		Type:       c.req.Type,
		Advisory:   advisory,
		Message:    msg,
	}
}

func displayName(names map[string]string, id string) string {
	if n := names[id]; n != "" {
		return n
	}
	return id
}

func dayLabel(d calendar.Date) string {
	return fmt.Sprintf("%s %s", d.Weekday(), d)
}
