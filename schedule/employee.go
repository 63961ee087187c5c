/*
Package schedule holds the data model of the scheduling engine.

PURPOSE:
  Entities shared by every engine component: employees, shifts, weekly
  schedules, standing (permanent) requests, time-off requests and the
  per-establishment settings. Also owns the schedule lifecycle (lock rules,
  publish, approval and modification decisions) and the Repository contract.

KEY CONCEPTS IN THIS FILE (employee.go):
  - Category: ordered priority Manager > Assistant Manager > Supervisor >
    Employee > Cleaning
  - WeeklyHours: contracted hours, one of the 12..40 ladder (step 2)
  - HoursOverride: temporary contracted hours for a date range
  - EmploymentEvent: hired / rehired / terminated history

IMMUTABILITY:
  Helpers that "change" an employee return a new value. Inputs are never
  modified in place.

SEE ALSO:
  - shift.go, schedule.go: the weekly aggregate
  - requests.go: permanent and time-off requests
  - settings.go: store configuration
*/
package schedule

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/calendar"
)

// =============================================================================
// CATEGORY
// =============================================================================

type Category string

const (
	CategoryManager          Category = "manager"
	CategoryAssistantManager Category = "assistant_manager"
	CategorySupervisor       Category = "supervisor"
	CategoryEmployee         Category = "employee"
	CategoryCleaning         Category = "cleaning"
)

// Priority returns 0 for the highest category. Unknown categories sort last.
func (c Category) Priority() int {
	switch c {
	case CategoryManager:
		return 0
	case CategoryAssistantManager:
		return 1
	case CategorySupervisor:
		return 2
	case CategoryEmployee:
		return 3
	case CategoryCleaning:
		return 4
	default:
		return 5
	}
}

// IsResponsible reports whether the category may open or close the store.
func (c Category) IsResponsible() bool {
	return c == CategoryManager || c == CategoryAssistantManager || c == CategorySupervisor
}

func (c Category) Valid() bool { return c.Priority() < 5 }

// =============================================================================
// CONTRACTED HOURS
// =============================================================================

const (
	MinWeeklyHours = 12
	MaxWeeklyHours = 40
	FullTimeHours  = 40
)

// ValidWeeklyHours reports whether h is on the contracted-hours ladder.
func ValidWeeklyHours(h int) bool {
	return h >= MinWeeklyHours && h <= MaxWeeklyHours && h%2 == 0
}

// HoursOverride temporarily replaces contracted hours for [Start, End].
type HoursOverride struct {
	ID    string        `json:"id"`
	Start calendar.Date `json:"start"`
	End   calendar.Date `json:"end"`
	Hours int           `json:"hours"`
}

func (o HoursOverride) Range() calendar.Range {
	return calendar.Range{Start: o.Start, End: o.End}
}

// =============================================================================
// EMPLOYMENT HISTORY
// =============================================================================

type EmploymentEventType string

const (
	EventHired      EmploymentEventType = "hired"
	EventRehired    EmploymentEventType = "rehired"
	EventTerminated EmploymentEventType = "terminated"
)

type EmploymentEvent struct {
	Type EmploymentEventType `json:"type"`
	Date calendar.Date       `json:"date"`
}

// =============================================================================
// EMPLOYEE
// =============================================================================

type Employee struct {
	ID              string            `json:"id"`
	EstablishmentID string            `json:"establishmentId"`
	Name            string            `json:"name"`
	Initials        string            `json:"initials"`
	Category        Category          `json:"category"`
	WeeklyHours     int               `json:"weeklyHours"`
	SeniorityDate   calendar.Date     `json:"seniorityDate"`
	BirthDate       calendar.Date     `json:"birthDate"`
	Active          bool              `json:"active"`
	HoursOverrides  []HoursOverride   `json:"temporaryHours,omitempty"`
	HoursDebt       decimal.Decimal   `json:"hoursDebt"`
	History         []EmploymentEvent `json:"employmentHistory,omitempty"`
}

// IsActiveOn derives the active state at date from the employment history:
// the latest event at or before date wins. Without history the Active flag
// is used as-is.
func (e Employee) IsActiveOn(date calendar.Date) bool {
	if len(e.History) == 0 {
		return e.Active
	}
	var latest *EmploymentEvent
	for i := range e.History {
		ev := e.History[i]
		if ev.Date.After(date) {
			continue
		}
		if latest == nil || ev.Date.AfterOrEqual(latest.Date) {
			latest = &e.History[i]
		}
	}
	if latest == nil {
		return false
	}
	return latest.Type != EventTerminated
}

// ActiveOverride returns the temporary-hours override covering date, if any.
func (e Employee) ActiveOverride(date calendar.Date) (HoursOverride, bool) {
	for _, o := range e.HoursOverrides {
		if o.Range().Contains(date) {
			return o, true
		}
	}
	return HoursOverride{}, false
}

// HoursFor returns the contracted hours in force on date.
func (e Employee) HoursFor(date calendar.Date) int {
	if o, ok := e.ActiveOverride(date); ok {
		return o.Hours
	}
	return e.WeeklyHours
}

// WithHoursOverride returns a copy of e with o added. Overrides stay ordered
// by start date and may not overlap.
func (e Employee) WithHoursOverride(o HoursOverride) (Employee, error) {
	if !ValidWeeklyHours(o.Hours) {
		return e, fmt.Errorf("%w: %d is not on the %d-%d ladder", ErrInvalidHours, o.Hours, MinWeeklyHours, MaxWeeklyHours)
	}
	if o.End.Before(o.Start) {
		return e, fmt.Errorf("%w: override ends before it starts", ErrInvalidHours)
	}
	for _, existing := range e.HoursOverrides {
		if existing.Range().Overlaps(o.Range()) {
			return e, fmt.Errorf("%w: %s overlaps %s", ErrOverrideOverlap, o.Range(), existing.Range())
		}
	}

	out := e
	out.HoursOverrides = append(append([]HoursOverride{}, e.HoursOverrides...), o)
	sort.Slice(out.HoursOverrides, func(i, j int) bool {
		return out.HoursOverrides[i].Start.Before(out.HoursOverrides[j].Start)
	})
	return out, nil
}

// WithEvent returns a copy of e with the event appended in date order.
func (e Employee) WithEvent(ev EmploymentEvent) Employee {
	out := e
	out.History = append(append([]EmploymentEvent{}, e.History...), ev)
	sort.SliceStable(out.History, func(i, j int) bool {
		return out.History[i].Date.Before(out.History[j].Date)
	})
	out.Active = out.IsActiveOn(calendar.Today())
	return out
}

// Validate checks the invariants of a stored employee.
func (e Employee) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: employee id is required", ErrInvalidEmployee)
	}
	if !e.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidEmployee, e.Category)
	}
	if !ValidWeeklyHours(e.WeeklyHours) {
		return fmt.Errorf("%w: %d is not on the %d-%d ladder", ErrInvalidHours, e.WeeklyHours, MinWeeklyHours, MaxWeeklyHours)
	}
	for i := 1; i < len(e.HoursOverrides); i++ {
		if e.HoursOverrides[i-1].Range().Overlaps(e.HoursOverrides[i].Range()) {
			return fmt.Errorf("%w: overrides %s and %s", ErrOverrideOverlap,
				e.HoursOverrides[i-1].Range(), e.HoursOverrides[i].Range())
		}
	}
	return nil
}

// SortByPriority orders employees by category priority, then name, then id.
// The input is not modified.
func SortByPriority(employees []Employee) []Employee {
	out := append([]Employee{}, employees...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category.Priority() != out[j].Category.Priority() {
			return out[i].Category.Priority() < out[j].Category.Priority()
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// IndexEmployees maps employees by id.
func IndexEmployees(employees []Employee) map[string]Employee {
	out := make(map[string]Employee, len(employees))
	for _, e := range employees {
		out[e.ID] = e
	}
	return out
}
