package engine

import "github.com/shopspring/decimal"

// =============================================================================
// OVERDUE / STATUS
// =============================================================================

// OverdueDays counts days past end date + grace period. Zero when the
// account has no end date or is still within grace.
func OverdueDays(a Account, asOf Date) int {
	if a.EndDate == nil {
		return 0
	}
	graceEnd := a.EndDate.AddDays(a.GracePeriodDays)
	if !asOf.After(graceEnd) {
		return 0
	}
	return DaysBetween(graceEnd, asOf)
}

// PenaltyInterest is balance × rate/100/365 × overdueDays. Non-positive
// overdue days or balance yield zero.
func PenaltyInterest(balance, penaltyRate decimal.Decimal, overdueDays int, places int32) decimal.Decimal {
	if overdueDays <= 0 || !balance.IsPositive() {
		return decimal.Zero
	}
	return accrue(balance, penaltyRate, overdueDays, 365, places)
}

// ResolveStatus derives status and overdue days as of a date. It has no
// side effects; callers that own the account persist the result.
//
//	closed                      -> closed (terminal), 0 overdue days
//	no end date / asOf <= end   -> active
//	overdue days == 0 (grace)   -> active
//	1..90                       -> overdue
//	> 90                        -> npa
func ResolveStatus(a Account, asOf Date) (Status, int) {
	if a.IsClosed() {
		return StatusClosed, 0
	}
	overdue := OverdueDays(a, asOf)
	if a.EndDate == nil || !asOf.After(*a.EndDate) {
		return StatusActive, overdue
	}
	switch {
	case overdue == 0:
		return StatusActive, 0
	case overdue <= NPAThresholdDays:
		return StatusOverdue, overdue
	default:
		return StatusNPA, overdue
	}
}

// accrue computes base × rate% × days / basis with a single rounded division.
func accrue(base, rate decimal.Decimal, days, basis int, places int32) decimal.Decimal {
	if days <= 0 || rate.IsZero() {
		return decimal.Zero
	}
	num := base.Mul(rate).Mul(decimal.NewFromInt(int64(days)))
	return num.DivRound(decimal.NewFromInt(int64(basis)*100), places)
}

// netOfTDS returns total × (1 - tds/100). Exact: /100 is a decimal shift.
func netOfTDS(total, tdsRate decimal.Decimal) decimal.Decimal {
	return total.Mul(hundred.Sub(tdsRate)).Shift(-2)
}
