package generator

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/warp/shift-engine/calendar"
	"github.com/warp/shift-engine/hours"
	"github.com/warp/shift-engine/schedule"
)

// =============================================================================
// PREFERENCES - Permanent requests that shape work days
// =============================================================================

type preferences struct {
	morningOnly   bool
	afternoonOnly bool
	forceFullDays bool
	earlyMorning  bool
	afternoonCap  int // -1 when uncapped
}

func preferencesFrom(reqs []schedule.PermanentRequest) preferences {
	p := preferences{afternoonCap: -1}
	for _, r := range reqs {
		switch r.Type {
		case schedule.PermanentMorningOnly:
			p.morningOnly = true
		case schedule.PermanentAfternoonOnly:
			p.afternoonOnly = true
		case schedule.PermanentForceFullDays:
			p.forceFullDays = true
		case schedule.PermanentEarlyMorningShift:
			p.earlyMorning = true
		case schedule.PermanentMaxAfternoonsPerWeek:
			if p.afternoonCap < 0 || r.Value < p.afternoonCap {
				p.afternoonCap = r.Value
			}
		}
	}
	return p
}

// =============================================================================
// EMPLOYEE PLAN
// =============================================================================

// candidate is a day the employee may work and which halves are allowed.
type candidate struct {
	date      calendar.Date
	morning   bool
	afternoon bool
	kind      schedule.ShiftType // empty until allocated
}

func (c *candidate) splittable() bool { return c.morning && c.afternoon }

// planEmployee returns one shift per active day of the week for emp.
func (g *generation) planEmployee(emp schedule.Employee) []schedule.Shift {
	prefs := preferencesFrom(g.requestsOf(emp.ID))
	daysOff := g.requiredDaysOff(emp.ID)

	var out []schedule.Shift
	var open []*candidate
	for _, d := range g.week {
		if !emp.IsActiveOn(d) {
			continue
		}
		if t, fixed := g.fixedDay(emp.ID, d, daysOff); fixed {
			out = append(out, g.newShift(emp, d, t))
			continue
		}

		c := &candidate{date: d, morning: !prefs.afternoonOnly, afternoon: !prefs.morningOnly}
		if g.settings.IsAfternoonClosure(d) {
			c.afternoon = false
		}
		if t, ok := g.absences.On(emp.ID, d); ok {
			switch t {
			case schedule.TimeOffMorningOff:
				c.morning = false
			case schedule.TimeOffAfternoonOff:
				c.afternoon = false
			}
		}
		if !c.morning && !c.afternoon {
			out = append(out, g.newShift(emp, d, schedule.ShiftOff))
			continue
		}
		open = append(open, c)
	}

	if len(open) > 0 {
		target := hours.TargetHours(emp, g.monday, g.settings.Holidays, g.in.Absences)
		lengths := g.shiftLengths(emp, open[0].date, prefs)
		g.allocate(open, chooseMix(open, target, lengths, prefs))
	}

	for _, c := range open {
		if c.kind == "" {
			out = append(out, g.newShift(emp, c.date, schedule.ShiftOff))
			continue
		}
		out = append(out, g.workedShift(emp, c.date, c.kind, prefs))
	}
	return out
}

// fixedDay resolves days that are decided before any work is placed.
func (g *generation) fixedDay(employeeID string, d calendar.Date, daysOff map[calendar.Date]bool) (schedule.ShiftType, bool) {
	if g.settings.IsFullHoliday(d) {
		return schedule.ShiftHoliday, true
	}
	if g.settings.IsClosed(d) {
		return schedule.ShiftOff, true
	}
	if t, ok := g.absences.On(employeeID, d); ok {
		if st, full := t.ShiftType(); full {
			return st, true
		}
	}
	if daysOff[d] {
		return schedule.ShiftOff, true
	}
	return "", false
}

// =============================================================================
// WORK MIX - How many splits and half days meet the target
// =============================================================================

// shiftLengths are the hours of the worked shifts built for one employee.
// They follow the employee's actual times, so an early-morning block or a
// role template counts for what it really is.
type shiftLengths struct {
	morning   decimal.Decimal
	afternoon decimal.Decimal
	split     decimal.Decimal
}

func (g *generation) shiftLengths(emp schedule.Employee, d calendar.Date, prefs preferences) shiftLengths {
	length := func(kind schedule.ShiftType) decimal.Decimal {
		sh := schedule.Shift{EmployeeID: emp.ID, Date: d, Type: kind}
		g.setTimes(&sh, emp, prefs)
		return hours.ShiftDuration(sh)
	}
	return shiftLengths{
		morning:   length(schedule.ShiftMorning),
		afternoon: length(schedule.ShiftAfternoon),
		split:     length(schedule.ShiftSplit),
	}
}

// mix is the number of splits, mornings and afternoons an employee works.
type mix struct {
	splits     int
	mornings   int
	afternoons int
}

func (m mix) days() int { return m.splits + m.mornings + m.afternoons }

func (m mix) hours(l shiftLengths) decimal.Decimal {
	return l.split.Mul(decimal.NewFromInt(int64(m.splits))).
		Add(l.morning.Mul(decimal.NewFromInt(int64(m.mornings)))).
		Add(l.afternoon.Mul(decimal.NewFromInt(int64(m.afternoons))))
}

// chooseMix tries every feasible mix over the open days and keeps the one
// closest to target. Ties prefer going over the target rather than under,
// then:
//
//	default           the most days worked, then the fewest splits
//	force_full_days   the most splits
//
// and finally mornings and afternoons as even as possible.
func chooseMix(open []*candidate, target decimal.Decimal, l shiftLengths, prefs preferences) mix {
	var both, morningOnly, afternoonOnly int
	for _, c := range open {
		switch {
		case c.splittable():
			both++
		case c.morning:
			morningOnly++
		case c.afternoon:
			afternoonOnly++
		}
	}

	var best mix
	bestErr := target.Abs()
	for k := 0; k <= both; k++ {
		free := both - k
		for m := 0; m <= free+morningOnly; m++ {
			for a := 0; a <= free+afternoonOnly; a++ {
				if m+a > free+morningOnly+afternoonOnly {
					break
				}
				if prefs.afternoonCap >= 0 && k+a > prefs.afternoonCap {
					break
				}
				c := mix{splits: k, mornings: m, afternoons: a}
				worked := c.hours(l)
				err := worked.Sub(target).Abs()
				if betterMix(c, err, worked, best, bestErr, best.hours(l), prefs) {
					best, bestErr = c, err
				}
			}
		}
	}
	return best
}

func betterMix(c mix, cErr, cWorked decimal.Decimal, b mix, bErr, bWorked decimal.Decimal, prefs preferences) bool {
	if cmp := cErr.Cmp(bErr); cmp != 0 {
		return cmp < 0
	}
	if cmp := cWorked.Cmp(bWorked); cmp != 0 {
		return cmp > 0
	}
	if prefs.forceFullDays {
		if c.splits != b.splits {
			return c.splits > b.splits
		}
	} else {
		if c.days() != b.days() {
			return c.days() > b.days()
		}
		if c.splits != b.splits {
			return c.splits < b.splits
		}
	}
	return absInt(c.mornings-c.afternoons) < absInt(b.mornings-b.afternoons)
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// =============================================================================
// PLACEMENT
// =============================================================================

// allocate places a mix on the open days. Splits go to the least staffed
// splittable days. Half days fill the days that allow only one half first,
// then the remaining days least staffed first, each taking the half with
// fewer staff while both are still wanted.
func (g *generation) allocate(open []*candidate, m mix) {
	var splittable []*candidate
	for _, c := range open {
		if c.splittable() {
			splittable = append(splittable, c)
		}
	}
	g.byLoad(splittable)
	for _, c := range splittable[:m.splits] {
		c.kind = schedule.ShiftSplit
		g.load[c.date].morning++
		g.load[c.date].afternoon++
	}

	var single, double []*candidate
	for _, c := range open {
		switch {
		case c.kind != "":
		case c.splittable():
			double = append(double, c)
		default:
			single = append(single, c)
		}
	}
	g.byLoad(single)
	g.byLoad(double)

	mornings, afternoons := m.mornings, m.afternoons
	place := func(c *candidate, kind schedule.ShiftType) {
		c.kind = kind
		if kind == schedule.ShiftMorning {
			mornings--
			g.load[c.date].morning++
		} else {
			afternoons--
			g.load[c.date].afternoon++
		}
	}
	for _, c := range single {
		switch {
		case c.morning && mornings > 0:
			place(c, schedule.ShiftMorning)
		case c.afternoon && afternoons > 0:
			place(c, schedule.ShiftAfternoon)
		}
	}
	for _, c := range double {
		switch {
		case mornings > 0 && afternoons > 0:
			l := g.load[c.date]
			if l.afternoon < l.morning {
				place(c, schedule.ShiftAfternoon)
			} else {
				place(c, schedule.ShiftMorning)
			}
		case mornings > 0:
			place(c, schedule.ShiftMorning)
		case afternoons > 0:
			place(c, schedule.ShiftAfternoon)
		}
	}
}

// byLoad orders candidates by staffed slots, then by date.
func (g *generation) byLoad(cs []*candidate) {
	sort.SliceStable(cs, func(i, j int) bool {
		li, lj := g.load[cs[i].date].total(), g.load[cs[j].date].total()
		if li != lj {
			return li < lj
		}
		return cs[i].date.Before(cs[j].date)
	})
}
