package timeoff_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/schedule"
	"github.com/warp/shift-engine/timeoff"
)

func date(s string) calendar.Date { return calendar.MustParseDate(s) }

func vacation(id, start, end string) schedule.TimeOffRequest {
	return schedule.TimeOffRequest{
		ID:         id,
		EmployeeID: "alice",
		Type:       schedule.TimeOffVacation,
		StartDate:  date(start),
		EndDate:    date(end),
	}
}

// =============================================================================
// VACATION PRECONDITIONS
// =============================================================================

func TestPrepare_VacationOverlapRejected_DisjointAccepted(t *testing.T) {
	// GIVEN: July 1-10 accepted
	first, err := timeoff.Prepare(vacation("v1", "2025-07-01", "2025-07-10"), nil)
	require.NoError(t, err)
	assert.Len(t, first.Dates, 10, "vacation ranges are expanded into dates")
	existing := []schedule.TimeOffRequest{first}

	// WHEN: July 5-8 is requested
	_, err = timeoff.Prepare(vacation("v2", "2025-07-05", "2025-07-08"), existing)

	// THEN: rejected as overlapping
	var overlap *schedule.VacationOverlapError
	require.True(t, errors.As(err, &overlap))
	assert.Equal(t, date("2025-07-01"), overlap.Existing.Start)
	assert.Equal(t, date("2025-07-05"), overlap.Requested.Start)
	assert.True(t, schedule.IsConflict(err))

	// WHEN: August 1-5 is requested
	third, err := timeoff.Prepare(vacation("v3", "2025-08-01", "2025-08-05"), existing)

	// THEN: accepted
	require.NoError(t, err)
	assert.Len(t, third.Dates, 5)
}

func TestPrepare_OverlapIsPerEmployeeAndPerType(t *testing.T) {
	existing := []schedule.TimeOffRequest{vacation("v1", "2025-07-01", "2025-07-10")}

	bob := vacation("v2", "2025-07-05", "2025-07-08")
	bob.EmployeeID = "bob"
	_, err := timeoff.Prepare(bob, existing)
	assert.NoError(t, err)

	sick := vacation("s1", "2025-07-05", "2025-07-08")
	sick.Type = schedule.TimeOffSickLeave
	_, err = timeoff.Prepare(sick, existing)
	assert.NoError(t, err)
}

func TestPrepare_InterleavedExplicitDatesDoNotOverlap(t *testing.T) {
	existing := []schedule.TimeOffRequest{{
		ID: "v1", EmployeeID: "alice", Type: schedule.TimeOffVacation,
		Dates: []calendar.Date{date("2025-07-01"), date("2025-07-03")},
	}}
	req := schedule.TimeOffRequest{
		ID: "v2", EmployeeID: "alice", Type: schedule.TimeOffVacation,
		Dates: []calendar.Date{date("2025-07-02")},
	}

	_, err := timeoff.Prepare(req, existing)

	assert.NoError(t, err)
}

func TestPrepare_VacationQuota(t *testing.T) {
	// GIVEN: 30 days already used in 2025
	existing := []schedule.TimeOffRequest{vacation("v1", "2025-01-01", "2025-01-30")}

	// WHEN: 2 more days in 2025
	_, err := timeoff.Prepare(vacation("v2", "2025-12-01", "2025-12-02"), existing)

	// THEN
	var quota *schedule.VacationQuotaError
	require.True(t, errors.As(err, &quota))
	assert.Equal(t, 2025, quota.Year)
	assert.Equal(t, 30, quota.Used)
	assert.Equal(t, 2, quota.Requested)
	assert.Equal(t, timeoff.VacationDaysPerYear, quota.Allowed)

	// WHEN: 1 day in 2025 plus days crossing into 2026
	_, err = timeoff.Prepare(vacation("v3", "2025-12-31", "2026-01-04"), existing)
	assert.NoError(t, err, "only one day counts against 2025")
}

func TestPrepare_InvalidRequests(t *testing.T) {
	cases := map[string]schedule.TimeOffRequest{
		"no employee":    {Type: schedule.TimeOffDayOff, Dates: []calendar.Date{date("2025-07-01")}},
		"unknown type":   {EmployeeID: "alice", Type: "sabbatical", Dates: []calendar.Date{date("2025-07-01")}},
		"no dates":       {EmployeeID: "alice", Type: schedule.TimeOffDayOff},
		"half range":     {EmployeeID: "alice", Type: schedule.TimeOffDayOff, StartDate: date("2025-07-01")},
		"reversed range": vacation("v", "2025-07-10", "2025-07-01"),
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := timeoff.Prepare(req, nil)
			assert.ErrorIs(t, err, schedule.ErrInvalidTimeOff)
			assert.True(t, schedule.IsClientError(err))
		})
	}
}

func TestVacationDaysUsed(t *testing.T) {
	requests := []schedule.TimeOffRequest{
		vacation("v1", "2024-12-30", "2025-01-02"),
		vacation("v2", "2025-03-01", "2025-03-03"),
	}

	assert.Equal(t, 5, timeoff.VacationDaysUsed("alice", 2025, requests))
	assert.Equal(t, 2, timeoff.VacationDaysUsed("alice", 2024, requests))
	assert.Equal(t, 0, timeoff.VacationDaysUsed("bob", 2025, requests))
}

// =============================================================================
// INDEX
// =============================================================================

func TestIndex_StrongestTypeWins(t *testing.T) {
	week := calendar.Week(date("2025-07-07"))
	requests := []schedule.TimeOffRequest{
		{EmployeeID: "alice", Type: schedule.TimeOffMorningOff, Dates: []calendar.Date{date("2025-07-07")}},
		{EmployeeID: "alice", Type: schedule.TimeOffSickLeave, Dates: []calendar.Date{date("2025-07-07")}},
		{EmployeeID: "alice", Type: schedule.TimeOffDayOff, Dates: []calendar.Date{date("2025-07-08")}},
		{EmployeeID: "alice", Type: schedule.TimeOffAfternoonOff, Dates: []calendar.Date{date("2025-07-08")}},
		vacation("v", "2025-07-11", "2025-07-20"),
	}

	idx := timeoff.NewIndex(requests, week)

	typ, ok := idx.On("alice", date("2025-07-07"))
	require.True(t, ok)
	assert.Equal(t, schedule.TimeOffSickLeave, typ)

	typ, _ = idx.On("alice", date("2025-07-08"))
	assert.Equal(t, schedule.TimeOffDayOff, typ)
	assert.False(t, idx.IsAbsent("alice", date("2025-07-08")))

	assert.True(t, idx.IsAbsent("alice", date("2025-07-13")))
	assert.Equal(t, 5, idx.Len(), "days outside the week are not indexed")

	_, ok = idx.On("bob", date("2025-07-07"))
	assert.False(t, ok)
}

// =============================================================================
// SCHEDULE CHECK
// =============================================================================

func TestValidate_WorkedShiftsOnTimeOff(t *testing.T) {
	// GIVEN: a week where Alice has a vacation Monday, a day off Tuesday,
	// morning off Wednesday and afternoon off Thursday
	monday := date("2025-07-07")
	s := schedule.NewDraft("s", "store-1", monday)
	s.Shifts = []schedule.Shift{
		{ID: "1", EmployeeID: "alice", Date: monday, Type: schedule.ShiftMorning, StartTime: "10:00", EndTime: "14:00"},
		{ID: "2", EmployeeID: "alice", Date: monday.AddDays(1), Type: schedule.ShiftAfternoon, StartTime: "16:00", EndTime: "20:00"},
		{ID: "3", EmployeeID: "alice", Date: monday.AddDays(2), Type: schedule.ShiftAfternoon, StartTime: "16:00", EndTime: "20:00"},
		{ID: "4", EmployeeID: "alice", Date: monday.AddDays(3), Type: schedule.ShiftSplit,
			StartTime: "10:00", MorningEndTime: "14:00", AfternoonStartTime: "16:00", EndTime: "20:00"},
		{ID: "5", EmployeeID: "bob", Date: monday, Type: schedule.ShiftMorning, StartTime: "10:00", EndTime: "14:00"},
	}
	requests := []schedule.TimeOffRequest{
		vacation("v", "2025-07-07", "2025-07-07"),
		{EmployeeID: "alice", Type: schedule.TimeOffDayOff, Dates: []calendar.Date{monday.AddDays(1)}},
		{EmployeeID: "alice", Type: schedule.TimeOffMorningOff, Dates: []calendar.Date{monday.AddDays(2)}},
		{EmployeeID: "alice", Type: schedule.TimeOffAfternoonOff, Dates: []calendar.Date{monday.AddDays(3)}},
	}
	employees := []schedule.Employee{{ID: "alice", Name: "Alice"}}

	// WHEN
	got := timeoff.Validate(s, requests, employees)

	// THEN: Monday, Tuesday and the split on Thursday are reported; the
	// afternoon on a morning off and Bob's shift are fine
	require.Len(t, got, 3)
	assert.Contains(t, got[0], "Alice")
	assert.Contains(t, got[0], "vacation")
	assert.Contains(t, got[1], "day_off")
	assert.Contains(t, got[2], "afternoon_off")
}

func TestValidate_AbsenceShiftsAreFine(t *testing.T) {
	monday := date("2025-07-07")
	s := schedule.NewDraft("s", "store-1", monday)
	s.Shifts = []schedule.Shift{
		{ID: "1", EmployeeID: "alice", Date: monday, Type: schedule.ShiftVacation},
		{ID: "2", EmployeeID: "alice", Date: monday.AddDays(1), Type: schedule.ShiftOff},
	}
	requests := []schedule.TimeOffRequest{
		vacation("v", "2025-07-07", "2025-07-07"),
		{EmployeeID: "alice", Type: schedule.TimeOffDayOff, Dates: []calendar.Date{monday.AddDays(1)}},
	}

	assert.Empty(t, timeoff.Validate(s, requests, nil))
}
