/*
handlers.go - HTTP API handlers for the shift scheduling engine

PURPOSE:
  Exposes the service layer via REST. Handles HTTP request/response, JSON
  serialization and DTO validation, and delegates everything else to
  service.Service.

ENDPOINTS:
  Settings:
    GET    /api/establishments/{est}/settings
    PUT    /api/establishments/{est}/settings

  Employees:
    GET    /api/establishments/{est}/employees
    POST   /api/establishments/{est}/employees
    POST   /api/employees/{id}/overrides          Temporary contracted hours

  Requests:
    GET    /api/establishments/{est}/permanent-requests
    POST   /api/establishments/{est}/permanent-requests
    GET    /api/establishments/{est}/time-off
    POST   /api/establishments/{est}/time-off

  Schedules:
    POST   /api/establishments/{est}/schedules    Generate {week_start, force}
    GET    /api/establishments/{est}/schedules?week_start=
    GET    /api/schedules/{id}
    PATCH  /api/schedules/{id}/shifts/{shiftID}
    GET    /api/schedules/{id}/validation?mode=soft|publish
    POST   /api/schedules/{id}/publish            {acknowledged}
    POST   /api/schedules/{id}/approval           {approved, notes}
    POST   /api/schedules/{id}/modification-request
    POST   /api/schedules/{id}/modification       {approved}
    GET    /api/schedules/{id}/balances

  Admin:
    POST   /api/admin/drafts                      Run the weekly draft job now

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate the DTO (go-playground/validator)
  3. Call the service
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Existing or locked schedule, bad transition, vacation conflicts,
         publish needing acknowledgment (violations listed)
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Weekly draft job
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/coverage"
	"github.com/warp/shift-engine/schedule"
	"github.com/warp/shift-engine/service"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *service.Service

	validate *validator.Validate
	log      logrus.FieldLogger
}

// NewHandler creates a new handler over svc.
func NewHandler(svc *service.Service, log logrus.FieldLogger) *Handler {
	v := validator.New()
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Handler{Service: svc, validate: v, log: log}
}

// =============================================================================
// SETTINGS
// =============================================================================

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Service.Settings(r.Context(), chi.URLParam(r, "est"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// PutSettings accepts both holiday shapes (plain date or {date, type}).
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var settings schedule.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	saved, err := h.Service.SaveSettings(r.Context(), chi.URLParam(r, "est"), settings)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Service.ListEmployees(r.Context(), chi.URLParam(r, "est"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(schedule.SortByPriority(employees)))
}

func (h *Handler) SaveEmployee(w http.ResponseWriter, r *http.Request) {
	var req EmployeeRequest
	if !h.decode(w, r, &req) {
		return
	}
	emp, err := h.Service.SaveEmployee(r.Context(), req.toEmployee(chi.URLParam(r, "est")))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

func (h *Handler) AddHoursOverride(w http.ResponseWriter, r *http.Request) {
	var req HoursOverrideRequest
	if !h.decode(w, r, &req) {
		return
	}
	emp, err := h.Service.AddHoursOverride(r.Context(), chi.URLParam(r, "id"), schedule.HoursOverride{
		Start: calendar.MustParseDate(req.StartDate),
		End:   calendar.MustParseDate(req.EndDate),
		Hours: req.Hours,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

// =============================================================================
// REQUESTS
// =============================================================================

func (h *Handler) ListPermanentRequests(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListPermanentRequests(r.Context(), chi.URLParam(r, "est"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

func (h *Handler) CreatePermanentRequest(w http.ResponseWriter, r *http.Request) {
	var req PermanentRequestRequest
	if !h.decode(w, r, &req) {
		return
	}
	saved, err := h.Service.AddPermanentRequest(r.Context(), chi.URLParam(r, "est"), req.toRequest())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (h *Handler) ListTimeOff(w http.ResponseWriter, r *http.Request) {
	list, err := h.Service.ListTimeOff(r.Context(), chi.URLParam(r, "est"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orEmpty(list))
}

func (h *Handler) CreateTimeOff(w http.ResponseWriter, r *http.Request) {
	var req TimeOffRequestRequest
	if !h.decode(w, r, &req) {
		return
	}
	saved, err := h.Service.AddTimeOff(r.Context(), chi.URLParam(r, "est"), req.toRequest())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// =============================================================================
// SCHEDULES
// =============================================================================

// CreateSchedule generates a week. The response carries the soft warnings.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req CreateScheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	sch, report, err := h.Service.CreateSchedule(r.Context(), chi.URLParam(r, "est"),
		calendar.MustParseDate(req.WeekStart), req.Force)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ScheduleResponse{Schedule: sch, Warnings: &report})
}

func (h *Handler) FindSchedule(w http.ResponseWriter, r *http.Request) {
	week, err := calendar.ParseDate(r.URL.Query().Get("week_start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "week_start query parameter is required (YYYY-MM-DD)", err)
		return
	}
	sch, err := h.Service.FindSchedule(r.Context(), chi.URLParam(r, "est"), week)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{Schedule: sch})
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	sch, err := h.Service.GetSchedule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{Schedule: sch})
}

func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	var req ShiftPatchRequest
	if !h.decode(w, r, &req) {
		return
	}
	sch, err := h.Service.UpdateShift(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "shiftID"), req.toPatch())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{Schedule: sch})
}

func (h *Handler) ValidateSchedule(w http.ResponseWriter, r *http.Request) {
	mode, err := coverage.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid mode", err)
		return
	}
	report, err := h.Service.Validate(r.Context(), chi.URLParam(r, "id"), mode)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	sch, report, err := h.Service.Publish(r.Context(), chi.URLParam(r, "id"), req.Acknowledged)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{Schedule: sch, Warnings: &report})
}

func (h *Handler) DecideApproval(w http.ResponseWriter, r *http.Request) {
	var req ApprovalRequest
	if !h.decode(w, r, &req) {
		return
	}
	sch, err := h.Service.DecideApproval(r.Context(), chi.URLParam(r, "id"), *req.Approved, req.Notes)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{Schedule: sch})
}

func (h *Handler) RequestModification(w http.ResponseWriter, r *http.Request) {
	sch, err := h.Service.RequestModification(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{Schedule: sch})
}

func (h *Handler) DecideModification(w http.ResponseWriter, r *http.Request) {
	var req ModificationDecisionRequest
	if !h.decode(w, r, &req) {
		return
	}
	sch, err := h.Service.DecideModification(r.Context(), chi.URLParam(r, "id"), *req.Approved)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{Schedule: sch})
}

func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	balances, err := h.Service.Balances(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalancesResponse{ScheduleID: id, Balances: orEmpty(balances)})
}

// =============================================================================
// ADMIN
// =============================================================================

type GenerateDraftsRequest struct {
	WeekStart string `json:"week_start" validate:"required,datetime=2006-01-02"`
}

// GenerateDrafts runs the weekly draft job for the given week.
func (h *Handler) GenerateDrafts(w http.ResponseWriter, r *http.Request) {
	var req GenerateDraftsRequest
	if !h.decode(w, r, &req) {
		return
	}
	run, err := h.Service.GenerateDrafts(r.Context(), calendar.MustParseDate(req.WeekStart))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// =============================================================================
// HELPERS
// =============================================================================

// decode reads and validates a JSON body. On failure it writes the 400
// response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "Invalid input", err)
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldPath(fe)] = fe.Tag()
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Fields: fields})
		return false
	}
	return true
}

// fieldPath drops the struct name from the namespace ("Req.days[0]" -> "days[0]").
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

// writeServiceError maps the engine's error taxonomy to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var blocked *schedule.PublishBlockedError
	switch {
	case errors.As(err, &blocked):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:      "Violations must be acknowledged before publishing",
			Details:    err.Error(),
			Violations: blocked.Violations,
		})
	case schedule.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case schedule.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	case schedule.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	default:
		h.log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// orEmpty keeps empty lists as [] in JSON.
func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
