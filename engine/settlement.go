package engine

import "github.com/shopspring/decimal"

// =============================================================================
// SETTLEMENT
// =============================================================================

// ClosureDescription is the description of the transaction that settles a loan.
const ClosureDescription = "Loan Closure - Final Settlement"

// SettlementResult is the amount needed to close a loan on ClosureDate.
type SettlementResult struct {
	ClosureDate Date

	// Outstanding is the balance entering the closure period, with every
	// earlier period's interest capitalized.
	Outstanding decimal.Decimal

	// AdditionalDays are the days accrued in the closure period up to
	// closure. The closure day counts only when it is charged on the
	// pre-repayment balance (inclusive, or the exclusive period-end rule).
	AdditionalDays  int
	AccruedInterest decimal.Decimal // gross ordinary interest of those days
	PenaltyAmount   decimal.Decimal
	TDS             decimal.Decimal
	NetAdditional   decimal.Decimal // (accrued + penalty) net of TDS
	TotalSettlement decimal.Decimal // outstanding + net additional
	OverdueDays     int
}

// Settlement quotes the repayment that closes the loan on closure. It builds
// the ledger of the account as closed on that date, with a placeholder
// closure repayment, so it charges exactly the windows the closed ledger
// charges: appending ClosureTransaction to txs and rebuilding with the
// account closed leaves a zero balance. Penalty applies to days past the
// end date plus grace. No transactions settle at zero.
func (e *Engine) Settlement(a Account, txs []Transaction, closure Date) (SettlementResult, error) {
	res := SettlementResult{ClosureDate: closure, OverdueDays: OverdueDays(a, closure)}

	strategy, err := StrategyFor(a)
	if err != nil {
		return res, err
	}

	closed := a
	closed.Status = StatusClosed
	closed.ClosureDate = &closure

	sorted := sortForCalculation(closed, txs)
	if len(sorted) == 0 {
		return res, nil
	}
	sorted = append(sorted, Transaction{Date: closure, Description: ClosureDescription})

	b := &builder{places: e.places(), acct: closed, strategy: strategy, settling: true}
	b.run(sorted)

	c := b.lastCharge
	res.Outstanding = b.carried
	res.AdditionalDays = c.days
	res.AccruedInterest = c.interest
	res.PenaltyAmount = c.penalty
	res.TDS = c.tds
	res.NetAdditional = c.net
	res.TotalSettlement = res.Outstanding.Add(res.NetAdditional)
	return res, nil
}

// ClosureTransaction is the repayment that settles the loan on closure.
func (r SettlementResult) ClosureTransaction() Transaction {
	return Transaction{
		Date:        r.ClosureDate,
		Description: ClosureDescription,
		Received:    r.TotalSettlement,
	}
}

// =============================================================================
// BALANCE AT DATE
// =============================================================================

// BalanceResult is the account position on a target date.
type BalanceResult struct {
	TargetDate      Date
	CalculationDate Date // min(target, end date)

	Outstanding decimal.Decimal
	Principal   decimal.Decimal

	// Totals sum every row dated on or before the calculation date plus
	// the extrapolated increment. A transaction row's interest covers its
	// whole window, which can end after the calculation date, so this is
	// not the interest accrued to date for a mid-period target.
	Totals Totals

	DaysFromStart       int
	TransactionCount    int
	LastTransactionDate *Date

	// ExtrapolatedDays is the interest window added past the last entry.
	ExtrapolatedDays     int
	ExtrapolatedInterest decimal.Decimal // net of TDS

	IsPredicted     bool // calculation date is after the last transaction
	IsBeyondEndDate bool
}

// BalanceAt reports outstanding and cumulative totals as of target. Entries
// after min(target, end date) are ignored; a calculation date past the last
// relevant entry gets one extrapolated interest increment.
func (e *Engine) BalanceAt(a Account, txs []Transaction, target Date) (BalanceResult, error) {
	effective := target
	if a.EndDate != nil && a.EndDate.Before(effective) {
		effective = *a.EndDate
	}
	res := BalanceResult{
		TargetDate:      target,
		CalculationDate: effective,
		DaysFromStart:   DaysBetween(a.StartDate, target),
		IsBeyondEndDate: a.pastEnd(target),
	}

	tl, err := e.Build(a, txs)
	if err != nil {
		return res, err
	}
	if len(tl.Entries) == 0 {
		return res, nil
	}

	var lastRelevant *Entry
	var lastTx *Date
	for i := range tl.Entries {
		entry := tl.Entries[i]
		if entry.Date.After(effective) {
			break
		}
		res.Totals.add(entry)
		if entry.IsTransaction() {
			res.TransactionCount++
			d := entry.Date
			lastTx = &d
		}
		lastRelevant = &tl.Entries[i]
	}
	res.LastTransactionDate = lastTx
	if lastRelevant == nil {
		return res, nil
	}

	res.Outstanding = lastRelevant.Outstanding
	res.Principal = lastRelevant.Principal

	for i := len(tl.Entries) - 1; i >= 0; i-- {
		if tl.Entries[i].IsTransaction() {
			res.IsPredicted = effective.After(tl.Entries[i].Date)
			break
		}
	}

	if days := DaysBetween(lastRelevant.Date, effective); days > 0 {
		base := res.Outstanding
		if a.InterestType == InterestSimple {
			base = res.Principal
		}
		if base.IsPositive() {
			gross := accrue(base, a.AnnualRate, days, DaysInYear(lastRelevant.Date, effective), e.places())
			net := netOfTDS(gross, a.TDSRate)
			res.ExtrapolatedDays = days
			res.ExtrapolatedInterest = net
			res.Outstanding = res.Outstanding.Add(net)
			res.Totals.Interest = res.Totals.Interest.Add(gross)
			res.Totals.TotalInterest = res.Totals.TotalInterest.Add(gross)
			res.Totals.TDS = res.Totals.TDS.Add(gross.Sub(net))
			res.Totals.NetInterest = res.Totals.NetInterest.Add(net)
		}
	}
	return res, nil
}
