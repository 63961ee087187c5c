package service

import (
	"fmt"

	"github.com/warp/shift-engine/coverage"
	"github.com/warp/shift-engine/restriction"
	"github.com/warp/shift-engine/schedule"
	"github.com/warp/shift-engine/timeoff"
)

// Report groups the validator output for one schedule. Debt lists employees
// whose week does not match their target hours.
type Report struct {
	Mode         coverage.Mode `json:"mode"`
	Coverage     []string      `json:"coverage"`
	Restrictions []string      `json:"restrictions"`
	TimeOff      []string      `json:"timeOff"`
	Advisories   []string      `json:"advisories"`
	Debt         []string      `json:"debt"`
}

// All returns every message, coverage first.
func (r Report) All() []string {
	out := make([]string, 0, len(r.Coverage)+len(r.Restrictions)+len(r.TimeOff)+len(r.Advisories)+len(r.Debt))
	out = append(out, r.Coverage...)
	out = append(out, r.Restrictions...)
	out = append(out, r.TimeOff...)
	out = append(out, r.Advisories...)
	return append(out, r.Debt...)
}

// Empty is true when nothing needs to be acknowledged.
func (r Report) Empty() bool {
	return len(r.Coverage) == 0 && len(r.Restrictions) == 0 && len(r.TimeOff) == 0 &&
		len(r.Advisories) == 0 && len(r.Debt) == 0
}

func buildReport(s *schedule.Schedule, in weekInputs, mode coverage.Mode) Report {
	r := Report{
		Mode:     mode,
		Coverage: coverage.Validate(s, in.settings, in.employees, mode),
		TimeOff:  timeoff.Validate(s, in.timeOff, in.employees),
	}
	for _, v := range restriction.Validate(s, in.permanent, in.employees, restriction.OptionsFrom(in.settings)) {
		if v.Advisory {
			r.Advisories = append(r.Advisories, v.Message)
		} else {
			r.Restrictions = append(r.Restrictions, v.Message)
		}
	}

	byID := schedule.IndexEmployees(in.employees)
	for _, b := range balances(s, in) {
		if b.FullWeekAbsence || b.Delta.IsZero() {
			continue
		}
		name := b.EmployeeID
		if e, ok := byID[b.EmployeeID]; ok && e.Name != "" {
			name = e.Name
		}
		r.Debt = append(r.Debt, fmt.Sprintf("%s works %sh against a target of %sh (delta %s)",
			name, b.WorkedHours, b.TargetHours, b.Delta.StringFixed(1)))
	}
	return r
}
