package generator

import (
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/schedule"
)

// workedShift builds a worked shift with times from the settings.
//
//	morning     OpeningHours.MorningStart   - MorningEnd
//	afternoon   OpeningHours.AfternoonStart - AfternoonEnd
//	split       both of the above
//
// Early-morning employees start at EarlyMorningStart for a five hour block.
// Cleaning staff get the cleaning role and its template when one is set.
func (g *generation) workedShift(emp schedule.Employee, d calendar.Date, kind schedule.ShiftType, prefs preferences) schedule.Shift {
	sh := g.newShift(emp, d, kind)
	g.setTimes(&sh, emp, prefs)
	return sh
}

// setTimes fills the time fields and role of a worked shift.
func (g *generation) setTimes(sh *schedule.Shift, emp schedule.Employee, prefs preferences) {
	oh := g.settings.OpeningHours

	morningStart, morningEnd := oh.MorningStart, oh.MorningEnd
	if prefs.earlyMorning {
		morningStart, morningEnd = g.earlyBlock()
	}

	switch sh.Type {
	case schedule.ShiftMorning:
		sh.StartTime, sh.EndTime = morningStart, morningEnd
	case schedule.ShiftAfternoon:
		sh.StartTime, sh.EndTime = oh.AfternoonStart, oh.AfternoonEnd
	case schedule.ShiftSplit:
		sh.StartTime, sh.MorningEndTime = morningStart, morningEnd
		sh.AfternoonStartTime, sh.EndTime = oh.AfternoonStart, oh.AfternoonEnd
	}

	if emp.Category == schedule.CategoryCleaning {
		sh.Role = schedule.RoleCleaning
		if tpl, ok := g.settings.RoleSchedules[schedule.RoleCleaning]; ok {
			applyTemplate(sh, tpl)
		}
	}
}

// earlyBlock is EarlyMorningStart plus EarlyMorningBlockHours, kept clear
// of the afternoon start.
func (g *generation) earlyBlock() (string, string) {
	oh := g.settings.OpeningHours
	start, err := calendar.ParseClock(g.settings.EarlyMorningStart)
	if err != nil {
		return oh.MorningStart, oh.MorningEnd
	}
	end := start + schedule.EarlyMorningBlockHours*60
	if afternoon, err := calendar.ParseClock(oh.AfternoonStart); err == nil && end >= afternoon {
		return g.settings.EarlyMorningStart, oh.MorningEnd
	}
	return g.settings.EarlyMorningStart, calendar.FormatClock(end)
}

// applyTemplate uses a role template's times. Half-day shifts take
// StartTime/EndTime; split shifts only change when the template defines
// both halves.
func applyTemplate(sh *schedule.Shift, tpl schedule.TimeTemplate) {
	if !calendar.ClockBefore(tpl.StartTime, tpl.EndTime) {
		return
	}
	switch sh.Type {
	case schedule.ShiftMorning, schedule.ShiftAfternoon:
		sh.StartTime, sh.EndTime = tpl.StartTime, tpl.EndTime
	case schedule.ShiftSplit:
		if tpl.MorningEndTime == "" || tpl.AfternoonStartTime == "" {
			return
		}
		candidate := *sh
		candidate.StartTime, candidate.MorningEndTime = tpl.StartTime, tpl.MorningEndTime
		candidate.AfternoonStartTime, candidate.EndTime = tpl.AfternoonStartTime, tpl.EndTime
		if candidate.Validate() == nil {
			*sh = candidate
		}
	}
}
