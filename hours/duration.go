package hours

import (
	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/schedule"
)

var (
	// halfShiftFallback is used for morning/afternoon shifts without times.
	halfShiftFallback = decimal.NewFromInt(4)
	// splitShiftFallback is used for split shifts without times.
	splitShiftFallback = decimal.NewFromInt(8)

	minutesPerHour = decimal.NewFromInt(60)
)

// ShiftDuration returns the worked hours of a shift. Non-worked types are 0.
func ShiftDuration(s schedule.Shift) decimal.Decimal {
	switch s.Type {
	case schedule.ShiftMorning, schedule.ShiftAfternoon:
		d, ok := span(s.StartTime, s.EndTime)
		if !ok {
			return halfShiftFallback
		}
		return d
	case schedule.ShiftSplit:
		morning, ok1 := span(s.StartTime, s.MorningEndTime)
		afternoon, ok2 := span(s.AfternoonStartTime, s.EndTime)
		if !ok1 || !ok2 {
			return splitShiftFallback
		}
		return morning.Add(afternoon)
	default:
		return decimal.Zero
	}
}

// TemplateDuration returns the hours covered by a template's times.
func TemplateDuration(start, end string) decimal.Decimal {
	d, ok := span(start, end)
	if !ok {
		return halfShiftFallback
	}
	return d
}

func span(start, end string) (decimal.Decimal, bool) {
	if start == "" || end == "" {
		return decimal.Zero, false
	}
	s, err := calendar.ParseClock(start)
	if err != nil {
		return decimal.Zero, false
	}
	e, err := calendar.ParseClock(end)
	if err != nil || e <= s {
		return decimal.Zero, false
	}
	return decimal.NewFromInt(int64(e - s)).Div(minutesPerHour), true
}
