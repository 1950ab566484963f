package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ValidateAccount checks account settings before they reach the engine.
func ValidateAccount(a Account) error {
	if a.StartDate.IsZero() {
		return invalid("start_date", ErrMissingStartDate, "")
	}
	if a.EndDate != nil && a.EndDate.Before(a.StartDate) {
		return invalid("end_date", ErrInvalidPeriod, fmt.Sprintf("%s before %s", a.EndDate, a.StartDate))
	}
	if err := validatePercent("annual_rate", a.AnnualRate); err != nil {
		return err
	}
	if err := validatePercent("tds_rate", a.TDSRate); err != nil {
		return err
	}
	if a.TDSRate.GreaterThan(hundred) {
		return invalid("tds_rate", ErrInvalidRate, "must not exceed 100")
	}
	if err := validatePercent("penalty_rate", a.PenaltyRate); err != nil {
		return err
	}
	if a.GracePeriodDays < 0 {
		return invalid("grace_period_days", ErrInvalidPeriod, "must not be negative")
	}
	switch a.InterestType {
	case InterestSimple, InterestCompound:
	default:
		return invalid("interest_type", ErrUnknownInterestType, string(a.InterestType))
	}
	switch a.Frequency {
	case FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
	default:
		return invalid("frequency", ErrUnknownFrequency, string(a.Frequency))
	}
	switch a.RepaymentConvention {
	case ConventionInclusive, ConventionExclusive:
	default:
		return invalid("repayment_convention", ErrUnknownConvention, string(a.RepaymentConvention))
	}
	return nil
}

func validatePercent(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return invalid(field, ErrInvalidRate, "must not be negative")
	}
	return nil
}

// ValidateTransaction checks a transaction against its account.
func ValidateTransaction(a Account, tx Transaction) error {
	if tx.Date.IsZero() {
		return invalid("date", ErrInvalidPeriod, "date is required")
	}
	if tx.Paid.IsNegative() {
		return invalid("paid", ErrNegativeAmount, "")
	}
	if tx.Received.IsNegative() {
		return invalid("received", ErrNegativeAmount, "")
	}
	if a.pastEnd(tx.Date) {
		return invalid("date", ErrTransactionAfterEndDate, "end date "+a.EndDate.String())
	}
	return nil
}

// ValidateQueryDate checks a balance or settlement target date.
func ValidateQueryDate(a Account, target Date) error {
	if target.Before(a.StartDate) {
		return invalid("date", ErrDateBeforeStart, "start date "+a.StartDate.String())
	}
	return nil
}

// ValidateClosureDate checks a closure date against the start date and the
// account's transactions.
func ValidateClosureDate(a Account, txs []Transaction, closure Date) error {
	if err := ValidateQueryDate(a, closure); err != nil {
		return err
	}
	for _, tx := range txs {
		if tx.Date.After(closure) {
			return invalid("closure_date", ErrClosureBeforeTransaction, "transaction on "+tx.Date.String())
		}
	}
	return nil
}
