package calendar_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/shift-engine/calendar"
)

func TestWeekStart_AlwaysMonday(t *testing.T) {
	// 2025-07-06 is a Sunday, it belongs to the week starting 2025-06-30.
	cases := map[string]string{
		"2025-06-30": "2025-06-30",
		"2025-07-02": "2025-06-30",
		"2025-07-05": "2025-06-30",
		"2025-07-06": "2025-06-30",
		"2025-07-07": "2025-07-07",
	}
	for in, want := range cases {
		got := calendar.WeekStart(calendar.MustParseDate(in))
		assert.Equal(t, want, got.String(), "week start of %s", in)
	}
}

func TestWeekDates_MondayToSunday(t *testing.T) {
	dates := calendar.WeekDates(calendar.MustParseDate("2025-07-03"))

	assert.Equal(t, "2025-06-30", dates[0].String())
	assert.Equal(t, time.Monday, dates[0].Weekday())
	assert.Equal(t, "2025-07-06", dates[6].String())
	assert.Equal(t, 0, dates[6].WeekdayIndex())
}

func TestWeeksBetween_FloorsNegativeOffsets(t *testing.T) {
	ref := calendar.MustParseDate("2025-07-07")

	assert.Equal(t, 0, calendar.WeeksBetween(ref, ref))
	assert.Equal(t, 1, calendar.WeeksBetween(ref, ref.AddDays(7)))
	assert.Equal(t, 0, calendar.WeeksBetween(ref, ref.AddDays(6)))
	assert.Equal(t, -1, calendar.WeeksBetween(ref, ref.AddDays(-1)))
	assert.Equal(t, -2, calendar.WeeksBetween(ref, ref.AddDays(-8)))
}

func TestMod_NonNegative(t *testing.T) {
	assert.Equal(t, 1, calendar.Mod(-1, 2))
	assert.Equal(t, 0, calendar.Mod(-6, 6))
	assert.Equal(t, 3, calendar.Mod(9, 6))
}

func TestSortWeekdays_SundayLast(t *testing.T) {
	in := []int{0, 3, 1, 3, 6}
	assert.Equal(t, []int{1, 3, 6, 0}, calendar.SortWeekdays(in))
	assert.Equal(t, []int{0, 3, 1, 3, 6}, in, "input must not be modified")
}

func TestDateForWeekday(t *testing.T) {
	monday := calendar.MustParseDate("2025-07-07")
	assert.Equal(t, "2025-07-09", calendar.DateForWeekday(monday, 3).String())
	assert.Equal(t, "2025-07-13", calendar.DateForWeekday(monday, 0).String())
}

func TestRange_OverlapsAndDays(t *testing.T) {
	july, err := calendar.NewRange(calendar.MustParseDate("2025-07-01"), calendar.MustParseDate("2025-07-10"))
	require.NoError(t, err)
	inner := calendar.Range{Start: calendar.MustParseDate("2025-07-05"), End: calendar.MustParseDate("2025-07-08")}
	august := calendar.Range{Start: calendar.MustParseDate("2025-08-01"), End: calendar.MustParseDate("2025-08-05")}

	assert.True(t, july.Overlaps(inner))
	assert.True(t, inner.Overlaps(july))
	assert.False(t, july.Overlaps(august))
	assert.Equal(t, 10, july.Len())
	assert.Len(t, august.Days(), 5)

	_, err = calendar.NewRange(august.End, august.Start)
	assert.Error(t, err)
}

func TestDate_JSON(t *testing.T) {
	var payload struct {
		Day calendar.Date `json:"day"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"day":"2025-12-25"}`), &payload))
	assert.Equal(t, calendar.NewDate(2025, time.December, 25), payload.Day)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"day":"2025-12-25"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"day":"25/12/2025"}`), &payload))
}

func TestParseClock(t *testing.T) {
	m, err := calendar.ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 570, m)
	assert.Equal(t, "09:30", calendar.FormatClock(m))

	_, err = calendar.ParseClock("25:00")
	assert.Error(t, err)
	assert.True(t, calendar.ClockBefore("10:00", "14:00"))
	assert.False(t, calendar.ClockBefore("14:00", "10:00"))
}
