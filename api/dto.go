/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Request bodies are decoded into these types, validated with struct tags
  (go-playground/validator) and converted to domain values. Responses wrap
  the domain types, which carry their own JSON tags.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *Response: Response wrappers

VALIDATION:
  Tags cover shape (required fields, enums, date layout, ranges). Domain
  rules such as the hours ladder or vacation overlap stay in the engine and
  come back as typed errors.

SEE ALSO:
  - handlers.go: Uses these types
  - schedule/: Domain types embedded in responses
*/
package api

import (
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/hours"
	"github.com/warp/shift-engine/schedule"
	"github.com/warp/shift-engine/service"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

type EmploymentEventRequest struct {
	Type string `json:"type" validate:"required,oneof=hired rehired terminated"`
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// EmployeeRequest creates or replaces an employee.
type EmployeeRequest struct {
	ID            string                   `json:"id" validate:"omitempty,max=64"`
	Name          string                   `json:"name" validate:"required,max=100"`
	Initials      string                   `json:"initials" validate:"omitempty,max=5"`
	Category      string                   `json:"category" validate:"required,oneof=manager assistant_manager supervisor employee cleaning"`
	WeeklyHours   int                      `json:"weekly_hours" validate:"required,min=12,max=40"`
	SeniorityDate string                   `json:"seniority_date" validate:"omitempty,datetime=2006-01-02"`
	BirthDate     string                   `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Active        *bool                    `json:"active"`
	History       []EmploymentEventRequest `json:"employment_history" validate:"omitempty,dive"`
}

func (r EmployeeRequest) toEmployee(establishmentID string) schedule.Employee {
	e := schedule.Employee{
		ID:              r.ID,
		EstablishmentID: establishmentID,
		Name:            r.Name,
		Initials:        r.Initials,
		Category:        schedule.Category(r.Category),
		WeeklyHours:     r.WeeklyHours,
		SeniorityDate:   optionalDate(r.SeniorityDate),
		BirthDate:       optionalDate(r.BirthDate),
		Active:          true,
	}
	if r.Active != nil {
		e.Active = *r.Active
	}
	for _, ev := range r.History {
		e = e.WithEvent(schedule.EmploymentEvent{
			Type: schedule.EmploymentEventType(ev.Type),
			Date: calendar.MustParseDate(ev.Date),
		})
	}
	return e
}

// HoursOverrideRequest adds temporary contracted hours.
type HoursOverrideRequest struct {
	StartDate string `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"required,datetime=2006-01-02"`
	Hours     int    `json:"hours" validate:"required,min=12,max=40"`
}

// =============================================================================
// REQUESTS
// =============================================================================

// PermanentRequestRequest adds a standing preference or restriction.
type PermanentRequestRequest struct {
	EmployeeID    string  `json:"employee_id" validate:"required"`
	Type          string  `json:"type" validate:"required,oneof=morning_only afternoon_only specific_days_off rotating_days_off fixed_rotating_shift max_afternoons_per_week force_full_days early_morning_shift"`
	Days          []int   `json:"days" validate:"omitempty,dive,min=0,max=6"`
	Value         int     `json:"value" validate:"min=0,max=7"`
	CycleWeeks    [][]int `json:"cycle_weeks" validate:"omitempty,dive,dive,min=0,max=6"`
	ReferenceDate string  `json:"reference_date" validate:"omitempty,datetime=2006-01-02"`
}

func (r PermanentRequestRequest) toRequest() schedule.PermanentRequest {
	req := schedule.PermanentRequest{
		EmployeeID:    r.EmployeeID,
		Type:          schedule.PermanentRequestType(r.Type),
		Days:          r.Days,
		Value:         r.Value,
		ReferenceDate: optionalDate(r.ReferenceDate),
	}
	for _, days := range r.CycleWeeks {
		req.CycleWeeks = append(req.CycleWeeks, schedule.CycleWeek{Days: days})
	}
	return req
}

// TimeOffRequestRequest adds explicit dates or an inclusive range.
type TimeOffRequestRequest struct {
	EmployeeID string   `json:"employee_id" validate:"required"`
	Type       string   `json:"type" validate:"required,oneof=day_off morning_off afternoon_off vacation sick_leave maternity_paternity"`
	Dates      []string `json:"dates" validate:"omitempty,dive,datetime=2006-01-02"`
	StartDate  string   `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate    string   `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

func (r TimeOffRequestRequest) toRequest() schedule.TimeOffRequest {
	req := schedule.TimeOffRequest{
		EmployeeID: r.EmployeeID,
		Type:       schedule.TimeOffType(r.Type),
		StartDate:  optionalDate(r.StartDate),
		EndDate:    optionalDate(r.EndDate),
	}
	for _, d := range r.Dates {
		req.Dates = append(req.Dates, calendar.MustParseDate(d))
	}
	return req
}

// =============================================================================
// SCHEDULES
// =============================================================================

type CreateScheduleRequest struct {
	WeekStart string `json:"week_start" validate:"required,datetime=2006-01-02"`
	Force     bool   `json:"force"`
}

// ShiftPatchRequest carries only the fields being changed.
type ShiftPatchRequest struct {
	Type                *string `json:"type" validate:"omitempty,oneof=morning afternoon split off holiday vacation sick_leave maternity_paternity"`
	StartTime           *string `json:"start_time" validate:"omitempty,datetime=15:04"`
	EndTime             *string `json:"end_time" validate:"omitempty,datetime=15:04"`
	MorningEndTime      *string `json:"morning_end_time" validate:"omitempty,datetime=15:04"`
	AfternoonStartTime  *string `json:"afternoon_start_time" validate:"omitempty,datetime=15:04"`
	Role                *string `json:"role" validate:"omitempty,oneof=sales_register purchase_register shuttle cleaning"`
	IsOpening           *bool   `json:"is_opening"`
	IsClosing           *bool   `json:"is_closing"`
	IsIndividualMeeting *bool   `json:"is_individual_meeting"`
}

func (r ShiftPatchRequest) toPatch() schedule.ShiftPatch {
	p := schedule.ShiftPatch{
		StartTime:           r.StartTime,
		EndTime:             r.EndTime,
		MorningEndTime:      r.MorningEndTime,
		AfternoonStartTime:  r.AfternoonStartTime,
		IsOpening:           r.IsOpening,
		IsClosing:           r.IsClosing,
		IsIndividualMeeting: r.IsIndividualMeeting,
	}
	if r.Type != nil {
		t := schedule.ShiftType(*r.Type)
		p.Type = &t
	}
	if r.Role != nil {
		role := schedule.Role(*r.Role)
		p.Role = &role
	}
	return p
}

type PublishRequest struct {
	Acknowledged bool `json:"acknowledged"`
}

type ApprovalRequest struct {
	Approved *bool  `json:"approved" validate:"required"`
	Notes    string `json:"notes" validate:"max=2000"`
}

type ModificationDecisionRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// ScheduleResponse returns a schedule with the validation report that was
// computed for it, if any.
type ScheduleResponse struct {
	Schedule *schedule.Schedule `json:"schedule"`
	Warnings *service.Report    `json:"warnings,omitempty"`
}

type BalancesResponse struct {
	ScheduleID string          `json:"schedule_id"`
	Balances   []hours.Balance `json:"balances"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error      string            `json:"error"`
	Details    string            `json:"details,omitempty"`
	Fields     map[string]string `json:"fields,omitempty"`
	Violations []string          `json:"violations,omitempty"`
}

func optionalDate(s string) calendar.Date {
	if s == "" {
		return calendar.Date{}
	}
	return calendar.MustParseDate(s)
}
