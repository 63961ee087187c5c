package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/coverage"
	"github.com/warp/shift-engine/hours"
	"github.com/warp/shift-engine/schedule"
	"github.com/warp/shift-engine/service"
	"github.com/warp/shift-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

var monday = calendar.MustParseDate("2025-09-08")

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func setup(t *testing.T) (*service.Service, *memory.Store) {
	t.Helper()
	repo := memory.New()
	return service.New(repo, nil, service.WithIDGenerator(sequentialIDs())), repo
}

func hire(t *testing.T, svc *service.Service, est, id string, cat schedule.Category, weekly int) schedule.Employee {
	t.Helper()
	e, err := svc.SaveEmployee(context.Background(), schedule.Employee{
		ID: id, EstablishmentID: est, Name: id, Category: cat, WeeklyHours: weekly, Active: true,
	})
	require.NoError(t, err)
	return e
}

func firstShiftOfType(s *schedule.Schedule, employeeID string, typ schedule.ShiftType) schedule.Shift {
	for _, sh := range s.ShiftsFor(employeeID) {
		if sh.Type == typ {
			return sh
		}
	}
	return schedule.Shift{}
}

func ptr[T any](v T) *T { return &v }

// =============================================================================
// GENERATION
// =============================================================================

func TestCreateSchedule_ExistingNeedsForce(t *testing.T) {
	// GIVEN: a generated week
	// WHEN: generating again without and then with force
	// THEN: the first fails with ErrScheduleExists, the second keeps the id
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryManager, 40)

	first, report, err := svc.CreateSchedule(ctx, "s1", monday.AddDays(2), false)
	require.NoError(t, err)
	assert.True(t, first.WeekStartDate.Equal(monday))
	assert.NotEmpty(t, report.Coverage, "a single employee never reaches the daily minimum")

	_, _, err = svc.CreateSchedule(ctx, "s1", monday, false)
	require.ErrorIs(t, err, schedule.ErrScheduleExists)

	again, _, err := svc.CreateSchedule(ctx, "s1", monday, true)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestCreateSchedule_ConcurrentCallsCreateOne(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryManager, 40)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.CreateSchedule(ctx, "s1", monday, false)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, schedule.ErrScheduleExists)
	}
	assert.Equal(t, 1, created)
}

func TestCreateSchedule_UsesStoredTimeOff(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryEmployee, 40)
	_, err := svc.AddTimeOff(ctx, "s1", schedule.TimeOffRequest{
		EmployeeID: "ana", Type: schedule.TimeOffSickLeave, Dates: []calendar.Date{monday.AddDays(1)},
	})
	require.NoError(t, err)

	s, _, err := svc.CreateSchedule(ctx, "s1", monday, false)
	require.NoError(t, err)
	for _, sh := range s.ShiftsFor("ana") {
		if sh.Date.Equal(monday.AddDays(1)) {
			assert.Equal(t, schedule.ShiftSickLeave, sh.Type)
		}
	}
}

// =============================================================================
// PUBLISH & APPROVAL
// =============================================================================

func TestPublish_RequiresAcknowledgement(t *testing.T) {
	// GIVEN: an understaffed draft
	// WHEN: publishing without acknowledging
	// THEN: PublishBlockedError lists the violations and nothing changes
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryEmployee, 40)
	draft, _, err := svc.CreateSchedule(ctx, "s1", monday, false)
	require.NoError(t, err)

	_, report, err := svc.Publish(ctx, draft.ID, false)
	var blocked *schedule.PublishBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, report.All(), blocked.Violations)
	assert.Contains(t, fmt.Sprint(blocked.Violations), "missing opening")

	stored, err := svc.GetSchedule(ctx, draft.ID)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusDraft, stored.Status)

	published, _, err := svc.Publish(ctx, draft.ID, true)
	require.NoError(t, err)
	assert.Equal(t, schedule.StatusPublished, published.Status)
	assert.Equal(t, schedule.ApprovalPending, published.ApprovalStatus)

	_, err = svc.UpdateShift(ctx, draft.ID, published.Shifts[0].ID, schedule.ShiftPatch{Role: ptr(schedule.RoleShuttle)})
	assert.ErrorIs(t, err, schedule.ErrScheduleLocked)
}

func TestDecideApproval_AppliesDebtOnce(t *testing.T) {
	// GIVEN: a full-time week with one split removed (-8h)
	// WHEN: approved, reopened, another half day removed, approved again
	// THEN: debt ends at the second week delta, not the sum of both
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryEmployee, 40)
	draft, _, err := svc.CreateSchedule(ctx, "s1", monday, false)
	require.NoError(t, err)

	split := firstShiftOfType(draft, "ana", schedule.ShiftSplit)
	require.NotEmpty(t, split.ID)
	_, err = svc.UpdateShift(ctx, draft.ID, split.ID, schedule.ShiftPatch{Type: ptr(schedule.ShiftOff)})
	require.NoError(t, err)

	_, _, err = svc.Publish(ctx, draft.ID, true)
	require.NoError(t, err)
	approved, err := svc.DecideApproval(ctx, draft.ID, true, "fine")
	require.NoError(t, err)
	assert.Equal(t, schedule.ApprovalApproved, approved.ApprovalStatus)

	ana, err := svc.GetEmployee(ctx, "ana")
	require.NoError(t, err)
	firstDelta := hours.ShiftDuration(split).Neg()
	assert.True(t, firstDelta.Equal(ana.HoursDebt), "debt %s", ana.HoursDebt)

	_, err = svc.RequestModification(ctx, draft.ID)
	require.NoError(t, err)
	_, err = svc.DecideModification(ctx, draft.ID, true)
	require.NoError(t, err)

	current, err := svc.GetSchedule(ctx, draft.ID)
	require.NoError(t, err)
	half := firstShiftOfType(current, "ana", schedule.ShiftMorning)
	if half.ID == "" {
		half = firstShiftOfType(current, "ana", schedule.ShiftAfternoon)
	}
	require.NotEmpty(t, half.ID)
	_, err = svc.UpdateShift(ctx, draft.ID, half.ID, schedule.ShiftPatch{Type: ptr(schedule.ShiftOff)})
	require.NoError(t, err)

	_, _, err = svc.Publish(ctx, draft.ID, true)
	require.NoError(t, err)
	_, err = svc.DecideApproval(ctx, draft.ID, true, "")
	require.NoError(t, err)

	ana, err = svc.GetEmployee(ctx, "ana")
	require.NoError(t, err)
	want := firstDelta.Sub(hours.ShiftDuration(half))
	assert.True(t, want.Equal(ana.HoursDebt), "want %s, got %s", want, ana.HoursDebt)
}

func TestDecideApproval_RejectionLeavesDebt(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryEmployee, 40)
	draft, _, err := svc.CreateSchedule(ctx, "s1", monday, false)
	require.NoError(t, err)
	split := firstShiftOfType(draft, "ana", schedule.ShiftSplit)
	_, err = svc.UpdateShift(ctx, draft.ID, split.ID, schedule.ShiftPatch{Type: ptr(schedule.ShiftOff)})
	require.NoError(t, err)
	_, _, err = svc.Publish(ctx, draft.ID, true)
	require.NoError(t, err)

	rejected, err := svc.DecideApproval(ctx, draft.ID, false, "too thin")
	require.NoError(t, err)
	assert.Equal(t, schedule.ApprovalRejected, rejected.ApprovalStatus)
	assert.False(t, rejected.IsLocked())

	ana, err := svc.GetEmployee(ctx, "ana")
	require.NoError(t, err)
	assert.True(t, ana.HoursDebt.IsZero())

	_, err = svc.DecideApproval(ctx, draft.ID, true, "")
	assert.ErrorIs(t, err, schedule.ErrInvalidTransition)
}

func TestBalances_ReportsScheduledEmployees(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryEmployee, 40)
	hire(t, svc, "s1", "bob", schedule.CategoryManager, 20)
	draft, _, err := svc.CreateSchedule(ctx, "s1", monday, false)
	require.NoError(t, err)

	balances, err := svc.Balances(ctx, draft.ID)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "bob", balances[0].EmployeeID, "manager first")
	for _, b := range balances {
		assert.True(t, b.Delta.IsZero(), "%s delta %s", b.EmployeeID, b.Delta)
	}
}

func TestValidate_PublishModeAddsResponsibility(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryEmployee, 40)
	draft, _, err := svc.CreateSchedule(ctx, "s1", monday, false)
	require.NoError(t, err)

	soft, err := svc.Validate(ctx, draft.ID, coverage.ModeSoft)
	require.NoError(t, err)
	strict, err := svc.Validate(ctx, draft.ID, coverage.ModePublish)
	require.NoError(t, err)
	assert.Greater(t, len(strict.Coverage), len(soft.Coverage))
}

func TestValidate_WorkOnApprovedVacation(t *testing.T) {
	// GIVEN: a vacation on Monday, generated as a vacation shift
	// WHEN: the manager turns Monday into a worked morning
	// THEN: the report lists it and an unacknowledged publish is blocked
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryEmployee, 40)
	_, err := svc.AddTimeOff(ctx, "s1", schedule.TimeOffRequest{
		EmployeeID: "ana", Type: schedule.TimeOffVacation, StartDate: monday, EndDate: monday,
	})
	require.NoError(t, err)
	draft, report, err := svc.CreateSchedule(ctx, "s1", monday, false)
	require.NoError(t, err)
	assert.Empty(t, report.TimeOff)

	vac := firstShiftOfType(draft, "ana", schedule.ShiftVacation)
	require.NotEmpty(t, vac.ID)
	_, err = svc.UpdateShift(ctx, draft.ID, vac.ID, schedule.ShiftPatch{
		Type: ptr(schedule.ShiftMorning), StartTime: ptr("10:00"), EndTime: ptr("14:00"),
	})
	require.NoError(t, err)

	got, err := svc.Validate(ctx, draft.ID, coverage.ModeSoft)
	require.NoError(t, err)
	require.Len(t, got.TimeOff, 1)
	assert.Contains(t, got.TimeOff[0], "vacation")

	_, _, err = svc.Publish(ctx, draft.ID, false)
	var blocked *schedule.PublishBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Contains(t, blocked.Violations, got.TimeOff[0])
}

func TestValidate_ReportsDebtImbalance(t *testing.T) {
	// GIVEN: a generated week that meets the target
	// WHEN: one split is turned into a day off
	// THEN: the report carries one debt line for that employee
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryEmployee, 40)
	draft, report, err := svc.CreateSchedule(ctx, "s1", monday, false)
	require.NoError(t, err)
	assert.Empty(t, report.Debt)

	split := firstShiftOfType(draft, "ana", schedule.ShiftSplit)
	require.NotEmpty(t, split.ID)
	_, err = svc.UpdateShift(ctx, draft.ID, split.ID, schedule.ShiftPatch{Type: ptr(schedule.ShiftOff)})
	require.NoError(t, err)

	got, err := svc.Validate(ctx, draft.ID, coverage.ModeSoft)
	require.NoError(t, err)
	require.Len(t, got.Debt, 1)
	assert.Contains(t, got.Debt[0], "ana")
	assert.Contains(t, got.Debt[0], "-8.0")
	assert.Contains(t, got.All(), got.Debt[0])
}

// =============================================================================
// EMPLOYEES & REQUESTS
// =============================================================================

func TestSaveEmployee_KeepsStoredDebt(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)
	e := hire(t, svc, "s1", "ana", schedule.CategoryEmployee, 40)
	e.HoursDebt = decimal.NewFromInt(-6)
	require.NoError(t, repo.SaveEmployee(ctx, e))

	e.HoursDebt = decimal.NewFromInt(100)
	e.WeeklyHours = 36
	saved, err := svc.SaveEmployee(ctx, e)
	require.NoError(t, err)
	assert.True(t, saved.HoursDebt.Equal(decimal.NewFromInt(-6)))
	assert.Equal(t, 36, saved.WeeklyHours)
}

func TestSaveEmployee_RejectsInvalid(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.SaveEmployee(context.Background(), schedule.Employee{
		EstablishmentID: "s1", Name: "x", Category: schedule.CategoryEmployee, WeeklyHours: 41,
	})
	assert.True(t, schedule.IsClientError(err))
}

func TestAddPermanentRequest_ChecksEstablishmentAndRules(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryEmployee, 30)

	_, err := svc.AddPermanentRequest(ctx, "s2", schedule.PermanentRequest{
		EmployeeID: "ana", Type: schedule.PermanentMorningOnly,
	})
	assert.ErrorIs(t, err, schedule.ErrNotFound)

	_, err = svc.AddPermanentRequest(ctx, "s1", schedule.PermanentRequest{
		EmployeeID: "ana", Type: schedule.PermanentFixedRotatingShift, Value: 2, ReferenceDate: monday,
	})
	assert.ErrorIs(t, err, schedule.ErrRestrictionNotAllowed, "fixed rotation needs a full-time contract")

	saved, err := svc.AddPermanentRequest(ctx, "s1", schedule.PermanentRequest{
		EmployeeID: "ana", Type: schedule.PermanentMorningOnly,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)

	list, err := svc.ListPermanentRequests(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestAddTimeOff_RejectsOverlappingVacation(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryEmployee, 40)

	_, err := svc.AddTimeOff(ctx, "s1", schedule.TimeOffRequest{
		EmployeeID: "ana", Type: schedule.TimeOffVacation,
		StartDate: calendar.MustParseDate("2025-07-01"), EndDate: calendar.MustParseDate("2025-07-10"),
	})
	require.NoError(t, err)

	_, err = svc.AddTimeOff(ctx, "s1", schedule.TimeOffRequest{
		EmployeeID: "ana", Type: schedule.TimeOffVacation,
		StartDate: calendar.MustParseDate("2025-07-05"), EndDate: calendar.MustParseDate("2025-07-08"),
	})
	assert.True(t, schedule.IsConflict(err))
}

func TestAddTimeOff_ConcurrentVacationsAcceptOne(t *testing.T) {
	// GIVEN: an employee without vacation
	// WHEN: the same vacation week is requested from several goroutines
	// THEN: exactly one passes the overlap check, the rest conflict
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryEmployee, 40)

	const callers = 8
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.AddTimeOff(ctx, "s1", schedule.TimeOffRequest{
				EmployeeID: "ana", Type: schedule.TimeOffVacation,
				StartDate: calendar.MustParseDate("2025-08-04"), EndDate: calendar.MustParseDate("2025-08-08"),
			})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
			continue
		}
		assert.ErrorIs(t, err, schedule.ErrVacationOverlap)
	}
	assert.Equal(t, 1, accepted)

	list, err := svc.ListTimeOff(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSettings_DefaultsWhenMissing(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)

	got, err := svc.Settings(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, schedule.DefaultSettings().OpeningHours, got.OpeningHours)

	_, err = svc.SaveSettings(ctx, "s1", schedule.Settings{
		OpeningHours: schedule.OpeningHours{MorningStart: "14:00", MorningEnd: "10:00"},
	})
	assert.ErrorIs(t, err, schedule.ErrInvalidSettings)
}

// =============================================================================
// WEEKLY DRAFTS
// =============================================================================

func TestGenerateDrafts_SkipsExistingWeeks(t *testing.T) {
	ctx := context.Background()
	svc, _ := setup(t)
	hire(t, svc, "s1", "ana", schedule.CategoryEmployee, 40)
	hire(t, svc, "s2", "bob", schedule.CategoryEmployee, 40)
	_, _, err := svc.CreateSchedule(ctx, "s1", monday, false)
	require.NoError(t, err)

	run, err := svc.GenerateDrafts(ctx, monday)
	require.NoError(t, err)
	assert.Equal(t, []string{"s2"}, run.Created)
	assert.Equal(t, []string{"s1"}, run.Skipped)
	assert.Empty(t, run.Failed)

	_, err = svc.FindSchedule(ctx, "s2", monday)
	require.NoError(t, err)
	_, err = svc.FindSchedule(ctx, "s3", monday)
	assert.True(t, errors.Is(err, schedule.ErrNotFound))
}
