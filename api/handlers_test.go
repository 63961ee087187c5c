/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Settings with both holiday shapes
- DTO validation errors
- Schedule generation, lookup and the publish gate over HTTP
- Error status mapping (400/404/409)
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/schedule"
	"github.com/warp/shift-engine/service"
	"github.com/warp/shift-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type testServer struct {
	t      *testing.T
	router http.Handler
	svc    *service.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	n := 0
	svc := service.New(memory.New(), nil, service.WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}))
	return &testServer{t: t, router: NewRouter(NewHandler(svc, nil), []string{"*"}), svc: svc}
}

func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	ts.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (ts *testServer) hire(est, id, category string, weekly int) {
	ts.t.Helper()
	rec := ts.do(http.MethodPost, "/api/establishments/"+est+"/employees", map[string]any{
		"id": id, "name": id, "category": category, "weekly_hours": weekly,
	})
	require.Equal(ts.t, http.StatusCreated, rec.Code, rec.Body.String())
}

// =============================================================================
// SETTINGS & EMPLOYEES
// =============================================================================

func TestSettings_AcceptsBothHolidayShapes(t *testing.T) {
	// GIVEN: a settings body mixing plain dates and {date, type} holidays
	// WHEN: it is stored and read back
	// THEN: both are normalized to {date, type}
	ts := newTestServer(t)
	rec := ts.do(http.MethodPut, "/api/establishments/s1/settings", map[string]any{
		"holidays": []any{"2025-12-25", map[string]string{"date": "2025-12-24", "type": "afternoon"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = ts.do(http.MethodGet, "/api/establishments/s1/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[schedule.Settings](t, rec)
	require.Len(t, got.Holidays, 2)
	assert.Equal(t, "2025-12-24", got.Holidays[0].Date.String())
	assert.Equal(t, schedule.HolidayAfternoonOnly, got.Holidays[0].Kind)
	assert.Equal(t, schedule.HolidayFull, got.Holidays[1].Kind)
	assert.Equal(t, schedule.DefaultMorningStart, got.OpeningHours.MorningStart)
}

func TestEmployees_ValidationErrorsNameFields(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/establishments/s1/employees", map[string]any{
		"name": "Ana", "category": "boss", "weekly_hours": 50,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "oneof", resp.Fields["category"])
	assert.Equal(t, "max", resp.Fields["weekly_hours"])
}

func TestEmployees_OddHoursRejectedByDomain(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/establishments/s1/employees", map[string]any{
		"name": "Ana", "category": "employee", "weekly_hours": 33,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmployees_ListInPriorityOrder(t *testing.T) {
	ts := newTestServer(t)
	ts.hire("s1", "zed", "employee", 30)
	ts.hire("s1", "amy", "manager", 40)

	rec := ts.do(http.MethodGet, "/api/establishments/s1/employees", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[[]schedule.Employee](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "amy", got[0].ID)

	rec = ts.do(http.MethodGet, "/api/establishments/empty/employees", nil)
	assert.JSONEq(t, "[]", rec.Body.String())
}

// =============================================================================
// REQUESTS
// =============================================================================

func TestTimeOff_OverlapIsConflict(t *testing.T) {
	ts := newTestServer(t)
	ts.hire("s1", "ana", "employee", 40)
	body := map[string]any{"employee_id": "ana", "type": "vacation", "start_date": "2025-07-01", "end_date": "2025-07-10"}
	require.Equal(t, http.StatusCreated, ts.do(http.MethodPost, "/api/establishments/s1/time-off", body).Code)

	body["start_date"], body["end_date"] = "2025-07-05", "2025-07-08"
	rec := ts.do(http.MethodPost, "/api/establishments/s1/time-off", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPermanentRequest_UnknownEmployeeIsNotFound(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/establishments/s1/permanent-requests", map[string]any{
		"employee_id": "ghost", "type": "morning_only",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPermanentRequest_DayOutOfRange(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/establishments/s1/permanent-requests", map[string]any{
		"employee_id": "ana", "type": "specific_days_off", "days": []int{1, 9},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Equal(t, "max", resp.Fields["days[1]"])
}

// =============================================================================
// SCHEDULES
// =============================================================================

func TestSchedules_GenerateFindAndPublishGate(t *testing.T) {
	// GIVEN: one employee, far below coverage
	// WHEN: generating, looking it up, and publishing with and without ack
	// THEN: 201 with warnings, 409 with violations, then 200 pending
	ts := newTestServer(t)
	ts.hire("s1", "ana", "employee", 40)

	rec := ts.do(http.MethodPost, "/api/establishments/s1/schedules", map[string]any{"week_start": "2025-09-10"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[ScheduleResponse](t, rec)
	require.NotNil(t, created.Warnings)
	assert.NotEmpty(t, created.Warnings.Coverage)
	assert.Equal(t, "2025-09-08", created.Schedule.WeekStartDate.String())
	id := created.Schedule.ID

	rec = ts.do(http.MethodPost, "/api/establishments/s1/schedules", map[string]any{"week_start": "2025-09-08"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(http.MethodGet, "/api/establishments/s1/schedules?week_start=2025-09-12", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id, decodeBody[ScheduleResponse](t, rec).Schedule.ID)

	rec = ts.do(http.MethodGet, "/api/establishments/s1/schedules?week_start=2025-09-15", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(http.MethodPost, "/api/schedules/"+id+"/publish", map[string]any{"acknowledged": false})
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.NotEmpty(t, decodeBody[ErrorResponse](t, rec).Violations)

	rec = ts.do(http.MethodPost, "/api/schedules/"+id+"/publish", map[string]any{"acknowledged": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, schedule.ApprovalPending, decodeBody[ScheduleResponse](t, rec).Schedule.ApprovalStatus)

	rec = ts.do(http.MethodPost, "/api/schedules/"+id+"/approval", map[string]any{"approved": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodGet, "/api/schedules/"+id+"/balances", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[BalancesResponse](t, rec).Balances, 1)
}

func TestSchedules_PatchShift(t *testing.T) {
	ts := newTestServer(t)
	ts.hire("s1", "ana", "employee", 40)
	rec := ts.do(http.MethodPost, "/api/establishments/s1/schedules", map[string]any{"week_start": "2025-09-08"})
	require.Equal(t, http.StatusCreated, rec.Code)
	sch := decodeBody[ScheduleResponse](t, rec).Schedule

	var target schedule.Shift
	for _, sh := range sch.Shifts {
		if sh.Type.IsWorked() {
			target = sh
			break
		}
	}
	require.NotEmpty(t, target.ID)

	path := fmt.Sprintf("/api/schedules/%s/shifts/%s", sch.ID, target.ID)
	rec = ts.do(http.MethodPatch, path, map[string]any{"role": "shuttle", "is_opening": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched, ok := decodeBody[ScheduleResponse](t, rec).Schedule.Shift(target.ID)
	require.True(t, ok)
	assert.Equal(t, schedule.RoleShuttle, patched.Role)
	assert.True(t, patched.IsOpening)

	rec = ts.do(http.MethodPatch, path, map[string]any{"start_time": "25:00"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPatch, fmt.Sprintf("/api/schedules/%s/shifts/nope", sch.ID), map[string]any{"role": "shuttle"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchedules_ValidationModes(t *testing.T) {
	ts := newTestServer(t)
	ts.hire("s1", "ana", "employee", 40)
	rec := ts.do(http.MethodPost, "/api/establishments/s1/schedules", map[string]any{"week_start": "2025-09-08"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decodeBody[ScheduleResponse](t, rec).Schedule.ID

	rec = ts.do(http.MethodGet, "/api/schedules/"+id+"/validation?mode=publish", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[service.Report](t, rec)
	assert.NotEmpty(t, report.Coverage)

	rec = ts.do(http.MethodGet, "/api/schedules/"+id+"/validation?mode=loud", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchedules_ApprovalNeedsDecision(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(http.MethodPost, "/api/schedules/x/approval", map[string]any{"notes": "?"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "required", decodeBody[ErrorResponse](t, rec).Fields["approved"])

	rec = ts.do(http.MethodGet, "/api/schedules/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_GenerateDrafts(t *testing.T) {
	ts := newTestServer(t)
	ts.hire("s1", "ana", "employee", 40)
	rec := ts.do(http.MethodPost, "/api/admin/drafts", map[string]any{"week_start": "2025-09-08"})
	require.Equal(t, http.StatusOK, rec.Code)
	run := decodeBody[service.DraftRun](t, rec)
	assert.Equal(t, []string{"s1"}, run.Created)
}
