/*
Package coverage implements the Coverage & Responsibility Validator.

PURPOSE:
  Store-wide rules for each day of a schedule's week:
    1. minimum staffed hours           (soft and publish modes)
    2. one opening and one closing shift held by a responsible category
                                       (publish mode)
    3. register roles present          (publish mode)

SKIPPED DAYS:
  Sundays not listed in settings.OpenSundays, and full holidays.

STAFFED HOURS:
  A coarse per-slot estimate, independent of the shift's time fields:
    total = 4 x (morning or split shifts) + 4 x (afternoon or split shifts)
  Threshold is 48, or 24 on an afternoon-only closure.

RESPONSIBLE:
  Manager, Assistant Manager, Supervisor. See schedule.Category.
*/
package coverage

import (
	"fmt"

	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/schedule"
)

// Mode selects which rules run.
type Mode string

const (
	ModeSoft    Mode = "soft"
	ModePublish Mode = "publish"
)

// ParseMode accepts "soft" and "publish"; empty means soft.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeSoft:
		return ModeSoft, nil
	case ModePublish:
		return ModePublish, nil
	}
	return "", fmt.Errorf("unknown validation mode %q", s)
}

const (
	// SlotHours is the estimate credited per morning or afternoon slot.
	SlotHours = 4
	// MinDailyHours is the staffed-hours threshold of a normal day.
	MinDailyHours = 48
	// MinAfternoonClosureHours applies on afternoon-only closures.
	MinAfternoonClosureHours = 24
)

// Kind classifies a finding.
type Kind string

const (
	KindLowCoverage             Kind = "low_coverage"
	KindMissingOpening          Kind = "missing_opening"
	KindMissingClosing          Kind = "missing_closing"
	KindMultipleOpenings        Kind = "multiple_openings"
	KindMultipleClosings        Kind = "multiple_closings"
	KindOpeningNotResponsible   Kind = "opening_not_responsible"
	KindClosingNotResponsible   Kind = "closing_not_responsible"
	KindMissingSalesRegister    Kind = "missing_sales_register"
	KindMissingPurchaseRegister Kind = "missing_purchase_register"
)

// Finding is one coverage problem on one day.
type Finding struct {
	Date    calendar.Date `json:"date"`
	Kind    Kind          `json:"kind"`
	Message string        `json:"message"`
}

// Blocking reports findings that gate publishing.
func (f Finding) Blocking() bool { return f.Kind != KindLowCoverage }

// =============================================================================
// ENTRY POINTS
// =============================================================================

// Validate returns the messages of Check.
func Validate(s *schedule.Schedule, settings schedule.Settings, employees []schedule.Employee, mode Mode) []string {
	return messages(Check(s, settings, employees, mode))
}

// ValidateRegisterCoverage runs only the register-role rule.
func ValidateRegisterCoverage(s *schedule.Schedule, settings schedule.Settings) []string {
	var out []Finding
	for _, d := range s.Week() {
		if settings.IsClosed(d) {
			continue
		}
		out = append(out, registerFindings(d, s.ShiftsOn(d))...)
	}
	return messages(out)
}

// Check evaluates every open day of the week in date order.
func Check(s *schedule.Schedule, settings schedule.Settings, employees []schedule.Employee, mode Mode) []Finding {
	byID := schedule.IndexEmployees(employees)

	var out []Finding
	for _, d := range s.Week() {
		if settings.IsClosed(d) {
			continue
		}
		shifts := s.ShiftsOn(d)

		if f, ok := lowCoverage(d, shifts, settings.IsAfternoonClosure(d)); ok {
			out = append(out, f)
		}
		if mode != ModePublish {
			continue
		}
		out = append(out, responsibility(d, shifts, byID)...)
		out = append(out, registerFindings(d, shifts)...)
	}
	return out
}

// StaffedHours is the per-slot estimate for one day's shifts.
func StaffedHours(shifts []schedule.Shift) int {
	total := 0
	for _, sh := range shifts {
		if sh.Type.HasMorning() {
			total += SlotHours
		}
		if sh.Type.HasAfternoon() {
			total += SlotHours
		}
	}
	return total
}

// =============================================================================
// RULES
// =============================================================================

func lowCoverage(d calendar.Date, shifts []schedule.Shift, afternoonClosure bool) (Finding, bool) {
	threshold := MinDailyHours
	if afternoonClosure {
		threshold = MinAfternoonClosureHours
	}
	total := StaffedHours(shifts)
	if total >= threshold {
		return Finding{}, false
	}
	return Finding{
		Date:    d,
		Kind:    KindLowCoverage,
		Message: fmt.Sprintf("low coverage on %s: %dh staffed, %dh needed", label(d), total, threshold),
	}, true
}

func responsibility(d calendar.Date, shifts []schedule.Shift, byID map[string]schedule.Employee) []Finding {
	var openers, closers []schedule.Shift
	for _, sh := range shifts {
		if sh.IsOpening {
			openers = append(openers, sh)
		}
		if sh.IsClosing {
			closers = append(closers, sh)
		}
	}

	var out []Finding
	out = append(out, slot(d, "opening", openers, byID, KindMissingOpening, KindMultipleOpenings, KindOpeningNotResponsible)...)
	out = append(out, slot(d, "closing", closers, byID, KindMissingClosing, KindMultipleClosings, KindClosingNotResponsible)...)
	return out
}

func slot(d calendar.Date, what string, holders []schedule.Shift, byID map[string]schedule.Employee, missing, multiple, unqualified Kind) []Finding {
	switch len(holders) {
	case 0:
		return []Finding{{Date: d, Kind: missing, Message: fmt.Sprintf("missing %s on %s", what, label(d))}}
	case 1:
	default:
		return []Finding{{Date: d, Kind: multiple, Message: fmt.Sprintf("%d shifts marked as %s on %s", len(holders), what, label(d))}}
	}

	emp, ok := byID[holders[0].EmployeeID]
	if ok && emp.Category.IsResponsible() {
		return nil
	}
	name := holders[0].EmployeeID
	if ok && emp.Name != "" {
		name = emp.Name
	}
	return []Finding{{
		Date:    d,
		Kind:    unqualified,
		Message: fmt.Sprintf("%s without a responsible employee on %s (%s)", what, label(d), name),
	}}
}

func registerFindings(d calendar.Date, shifts []schedule.Shift) []Finding {
	var sales, purchase bool
	for _, sh := range shifts {
		if !sh.Type.IsWorked() {
			continue
		}
		switch sh.Role {
		case schedule.RoleSalesRegister:
			sales = true
		case schedule.RolePurchaseRegister:
			purchase = true
		}
	}

	var out []Finding
	if !sales {
		out = append(out, Finding{Date: d, Kind: KindMissingSalesRegister, Message: fmt.Sprintf("no sales register on %s", label(d))})
	}
	if !purchase {
		out = append(out, Finding{Date: d, Kind: KindMissingPurchaseRegister, Message: fmt.Sprintf("no purchase register on %s", label(d))})
	}
	return out
}

func messages(fs []Finding) []string {
	if len(fs) == 0 {
		return nil
	}
	out := make([]string, len(fs))
	for i, f := range fs {
		out[i] = f.Message
	}
	return out
}

func label(d calendar.Date) string {
	return fmt.Sprintf("%s %s", d.Weekday(), d)
}
