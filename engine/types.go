/*
Package engine is the ICL interest accrual engine.

PURPOSE:
  Turns an unordered set of dated disbursements/repayments plus account
  settings into an ordered, balance-consistent ledger (the Timeline), and
  answers point-in-time balance and settlement queries from it.

KEY CONCEPTS:
  - Account: loan settings (rate, TDS, penalty, interest type, frequency,
    repayment convention, grace period) plus derived status
  - Transaction: a dated cash flow (Paid = disbursement, Received = repayment)
  - Period: anchored quarter/month or financial-year compounding window
  - Entry: one Timeline row (transaction, opening, summary, missing, remainder)
  - Strategy: period resolver + interest base (outstanding or principal)

PURITY:
  Nothing in this package touches storage or mutates its inputs. The
  Timeline is recomputed on every call. Status is resolved, not applied;
  persisting it is the caller's business (see loan.Service).

PRECISION:
  All money is shopspring/decimal. Divisions use Engine.Places decimal
  places (at least 28); percentages divide by 100 via Shift(-2), which is
  exact.

SEE ALSO:
  - accrual.go: Timeline builder
  - status.go: Overdue days, penalty, status
  - settlement.go: Settlement and balance-at-date queries
*/
package engine

import "github.com/shopspring/decimal"

// =============================================================================
// ACCOUNT SETTINGS
// =============================================================================

type InterestType string

const (
	InterestSimple   InterestType = "simple"
	InterestCompound InterestType = "compound"
)

type Frequency string

const (
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly" // Financial year, Apr-Mar
)

// RepaymentConvention decides whether the repayment date is charged on the
// pre-repayment balance (inclusive) or on the reduced balance (exclusive).
type RepaymentConvention string

const (
	ConventionInclusive RepaymentConvention = "inclusive"
	ConventionExclusive RepaymentConvention = "exclusive"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusOverdue Status = "overdue"
	StatusNPA     Status = "npa"
	StatusClosed  Status = "closed"
)

// NPAThresholdDays is the overdue-day count after which an account is NPA.
const NPAThresholdDays = 90

// Account is an ICL account. Rates are percentages (12 means 12%).
type Account struct {
	ID      string
	Name    string
	Address string

	StartDate Date
	EndDate   *Date // nil = open-ended

	AnnualRate  decimal.Decimal
	TDSRate     decimal.Decimal
	PenaltyRate decimal.Decimal

	InterestType        InterestType
	Frequency           Frequency
	RepaymentConvention RepaymentConvention
	GracePeriodDays     int

	// Derived
	Status      Status
	OverdueDays int
	ClosureDate *Date
}

// IsClosed reports whether the account has been settled.
func (a Account) IsClosed() bool {
	return a.Status == StatusClosed
}

// pastEnd reports whether d is after the end date.
func (a Account) pastEnd(d Date) bool {
	return a.EndDate != nil && d.After(*a.EndDate)
}

// accrualLimit is the last date ordinary accrual may reach for a window
// opening on from. Windows that open on or before the end date stop at it,
// or at the closure date when that comes first. Windows opening after the
// end date exist only for closed accounts and stop at the closure date.
func (a Account) accrualLimit(from Date) (Date, bool) {
	var closure *Date
	if a.IsClosed() && a.ClosureDate != nil {
		closure = a.ClosureDate
	}
	if a.EndDate != nil && !from.After(*a.EndDate) {
		if closure != nil && closure.Before(*a.EndDate) {
			return *closure, true
		}
		return *a.EndDate, true
	}
	if closure != nil {
		return *closure, true
	}
	return Date{}, false
}

// =============================================================================
// TRANSACTION
// =============================================================================

// Transaction is a dated cash flow. Exactly one of Paid/Received is normally
// non-zero, but both are applied independently.
type Transaction struct {
	ID          string
	Date        Date
	Description string
	Paid        decimal.Decimal // disbursement
	Received    decimal.Decimal // repayment
}

// Net returns Paid - Received.
func (t Transaction) Net() decimal.Decimal {
	return t.Paid.Sub(t.Received)
}

// IsRepayment reports whether the transaction returns money.
func (t Transaction) IsRepayment() bool {
	return t.Received.IsPositive()
}
