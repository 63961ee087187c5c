/*
Package hours implements the Hours Debt Calculator.

PURPOSE:
  For one employee and one week, answers three questions:
    workedHours - sum of shift durations
    targetHours - contracted hours reduced for holidays and absences
    delta       - workedHours - targetHours (signed, one decimal)
  Positive delta is surplus credited to the employee's debt balance; negative
  is a deficit. The calculator only REPORTS delta. Applying it to
  Employee.HoursDebt is done by the service layer on supervisor approval.

KEY CONCEPTS IN THIS FILE (table.go):
  The reduction table. Holiday/absence days do not remove hours linearly:
  the reduced target for each contract size is a policy decision, so the
  values are listed rather than computed.

  reduction units:   0.5   1    1.5   2    3
  base 40h           36    32   28    24   16
  base 36h           32    29   25    22   14
  base 32h           29    26   22    19   13
  base 28h           25    22   20    17   11
  base 24h           22    19   17    14   10
  base 20h           18    16   14    12    8
  base 16h           14    13   11    10    6

  >= 5 units         target 0
  anything else      max(0, base - round(base/5 * units))

PRECISION:
  All hour values are decimal.Decimal, never float64.

SEE ALSO:
  - calculator.go: reduction units and the weekly balance
  - duration.go: shift durations
*/
package hours

import "github.com/shopspring/decimal"

// reductionLevels are the unit counts the table has columns for.
var reductionLevels = []decimal.Decimal{
	decimal.RequireFromString("0.5"),
	decimal.NewFromInt(1),
	decimal.RequireFromString("1.5"),
	decimal.NewFromInt(2),
	decimal.NewFromInt(3),
}

// reductionTable maps base contracted hours to the reduced target for each
// entry of reductionLevels.
var reductionTable = map[int][5]int64{
	40: {36, 32, 28, 24, 16},
	36: {32, 29, 25, 22, 14},
	32: {29, 26, 22, 19, 13},
	28: {25, 22, 20, 17, 11},
	24: {22, 19, 17, 14, 10},
	20: {18, 16, 14, 12, 8},
	16: {14, 13, 11, 10, 6},
}

// zeroTargetUnits is the reduction at and above which the target is zero.
var zeroTargetUnits = decimal.NewFromInt(5)

// ReducedTarget maps (base, units) to the week's target hours.
func ReducedTarget(base int, units decimal.Decimal) decimal.Decimal {
	baseDec := decimal.NewFromInt(int64(base))
	if units.Sign() <= 0 {
		return baseDec
	}
	if units.GreaterThanOrEqual(zeroTargetUnits) {
		return decimal.Zero
	}
	if row, ok := reductionTable[base]; ok {
		for i, level := range reductionLevels {
			if units.Equal(level) {
				return decimal.NewFromInt(row[i])
			}
		}
	}
	return linearTarget(baseDec, units)
}

// linearTarget approximates values the table does not list.
func linearTarget(base, units decimal.Decimal) decimal.Decimal {
	cut := base.Div(decimal.NewFromInt(5)).Mul(units).Round(0)
	return decimal.Max(decimal.Zero, base.Sub(cut))
}
