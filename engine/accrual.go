/*
accrual.go - Timeline builder

ALGORITHM (one pass over date-sorted transactions):
  1. The period containing the first transaction is the active period.
  2. For each transaction:
     a. New period? Close the active one (capitalize its net interest,
        emit a summary row), fill every transaction-free period in between
        with a missing-period row, then open the new period with an opening
        row covering period start up to the day before the transaction.
     b. Apply paid - received to outstanding and principal.
     c. Accrual window: [tx date, next same-period tx - 1] or
        [tx date, min(period end, limit)] for the last row of the period.
     d. Repayments under the inclusive branch move the repayment day onto
        the preceding row (pre-repayment balance); this row starts the
        day after.
     e. Interest = base × rate/100 × days / DaysInYear(window).
     f. Rows after the end date add penalty interest. A closure after the
        end date first gets one overdue row covering the days since the
        end date.
     g. Net = total × (1 - TDS/100), accumulated into the period.
  3. Close the final period.
  4. Compound × yearly: remainder row up to an end date past the last FY.

LIMIT:
  Windows that open on or before the end date never run past it (nor past
  the closure date of a closed account). Post-maturity transactions, which
  only loan closure produces, are not capped by the end date.

SETTLEMENT:
  A settlement build appends a placeholder closure repayment that clears
  the whole balance, so its own window accrues nothing. The balance at the
  final period close is then exactly the amount that zeroes the ledger of
  the closed account.

The six interest-type × frequency variants share this code. They differ
only in Strategy.Resolver and Strategy.Base.
*/
package engine

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Build computes the Timeline for an account. Transactions may be in any
// order; equal dates keep their input order. No transactions yields an
// empty Timeline, not an error.
func (e *Engine) Build(a Account, txs []Transaction) (Timeline, error) {
	strategy, err := StrategyFor(a)
	if err != nil {
		return Timeline{}, err
	}

	asOf := e.Today()
	status, overdue := ResolveStatus(a, asOf)
	tl := Timeline{
		Strategy:    strategy.Name,
		Status:      status,
		OverdueDays: overdue,
		AsOf:        asOf,
	}

	sorted := sortForCalculation(a, txs)
	if len(sorted) == 0 {
		return tl, nil
	}

	b := &builder{places: e.places(), acct: a, strategy: strategy}
	b.run(sorted)
	tl.Entries = b.entries
	return tl, nil
}

// sortForCalculation stable-sorts by date and drops anything after the
// closure date of a closed account.
func sortForCalculation(a Account, txs []Transaction) []Transaction {
	sorted := make([]Transaction, 0, len(txs))
	for _, tx := range txs {
		if a.IsClosed() && a.ClosureDate != nil && tx.Date.After(*a.ClosureDate) {
			continue
		}
		sorted = append(sorted, tx)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date)
	})
	return sorted
}

// =============================================================================
// BUILDER - Per-call state
// =============================================================================

type builder struct {
	places   int32
	acct     Account
	strategy Strategy

	entries []Entry

	outstanding decimal.Decimal
	principal   decimal.Decimal

	period         Period
	periodCharge   charge
	repaidInPeriod bool

	// prev is the latest accrual row of the active period.
	prev *window

	// chargedThrough is the last day of the active period already charged.
	chargedThrough Date

	// settling marks the last transaction as the settlement placeholder.
	settling bool

	// carried and lastCharge hold the balance entering the most recent
	// period close and that period's accumulated charge.
	carried    decimal.Decimal
	lastCharge charge
}

// charge is the interest breakdown of one accrual window.
type charge struct {
	days     int
	interest decimal.Decimal
	penalty  decimal.Decimal
	total    decimal.Decimal
	tds      decimal.Decimal
	net      decimal.Decimal
}

func (c charge) plus(o charge) charge {
	return charge{
		days:     c.days + o.days,
		interest: c.interest.Add(o.interest),
		penalty:  c.penalty.Add(o.penalty),
		total:    c.total.Add(o.total),
		tds:      c.tds.Add(o.tds),
		net:      c.net.Add(o.net),
	}
}

func (c charge) minus(o charge) charge {
	return charge{
		days:     c.days - o.days,
		interest: c.interest.Sub(o.interest),
		penalty:  c.penalty.Sub(o.penalty),
		total:    c.total.Sub(o.total),
		tds:      c.tds.Sub(o.tds),
		net:      c.net.Sub(o.net),
	}
}

func (c charge) applyTo(e *Entry) {
	e.Days = c.days
	e.Interest = c.interest
	e.PenaltyInterest = c.penalty
	e.TotalInterest = c.total
	e.TDS = c.tds
	e.NetInterest = c.net
}

// window remembers an emitted accrual row so the inclusive branch can
// extend it by one day.
type window struct {
	index    int
	from, to Date
	base     decimal.Decimal
	penalize bool
	charge   charge
}

func (b *builder) balances() Balances {
	return Balances{Outstanding: b.outstanding, Principal: b.principal}
}

func (b *builder) base() decimal.Decimal {
	return b.strategy.Base(b.balances())
}

// charge accrues base over the inclusive window [from, to]. A non-positive
// base accrues nothing; a fully repaid loan stops earning. Penalty covers
// the overlap of the window with the overdue period.
func (b *builder) charge(base decimal.Decimal, from, to Date, penalize bool) charge {
	c := charge{days: windowDays(from, to)}
	if c.days == 0 || !base.IsPositive() {
		return c
	}
	c.interest = accrue(base, b.acct.AnnualRate, c.days, DaysInYear(from, to), b.places)
	if penalize {
		overdue := OverdueDays(b.acct, to)
		if overdue > c.days {
			overdue = c.days
		}
		c.penalty = PenaltyInterest(base, b.acct.PenaltyRate, overdue, b.places)
	}
	c.total = c.interest.Add(c.penalty)
	c.net = netOfTDS(c.total, b.acct.TDSRate)
	c.tds = c.total.Sub(c.net)
	return c
}

func (b *builder) run(txs []Transaction) {
	resolver := b.strategy.Resolver
	b.period = resolver.Resolve(txs[0].Date)

	for i, tx := range txs {
		p := resolver.Resolve(tx.Date)
		if !p.Same(b.period) {
			b.closePeriod()
			b.fillGaps(p)
			b.openPeriod(p, tx.Date)
		}

		var next *Transaction
		if i+1 < len(txs) {
			next = &txs[i+1]
		}
		settle := b.settling && i == len(txs)-1
		if b.acct.pastEnd(tx.Date) {
			b.accrueOverdue(tx, settle)
		}
		b.applyTransaction(tx, next, settle)
	}

	b.closePeriod()

	if b.strategy.FillToEndDate {
		b.fillToEndDate()
	}
}

// closePeriod capitalizes the active period's net interest.
func (b *builder) closePeriod() {
	b.carried = b.outstanding
	b.lastCharge = b.periodCharge
	b.outstanding = b.outstanding.Add(b.periodCharge.net)

	date := b.period.End
	if b.acct.EndDate != nil && b.acct.EndDate.Before(date) {
		date = *b.acct.EndDate
	}
	if b.acct.IsClosed() && b.acct.ClosureDate != nil && b.acct.ClosureDate.Before(date) {
		date = *b.acct.ClosureDate
	}
	if n := len(b.entries); n > 0 {
		date = MaxDate(date, b.entries[n-1].Date)
	}

	e := Entry{
		Date:        date,
		Description: fmt.Sprintf("%s Net Interest", b.period.Name),
		Kind:        KindSummary,
		Period:      b.period.Name,
		Outstanding: b.outstanding,
		Principal:   b.principal,
	}
	b.periodCharge.applyTo(&e)
	e.Days = 0
	b.entries = append(b.entries, e)
}

// fillGaps emits one missing-period row for every period strictly between
// the active period and target. Filling stops at the end date.
func (b *builder) fillGaps(target Period) {
	resolver := b.strategy.Resolver
	for p := resolver.Next(b.period); p.Start.Before(target.Start); p = resolver.Next(p) {
		if b.acct.pastEnd(p.Start) {
			return
		}
		end := p.End
		limit, capped := b.acct.accrualLimit(p.Start)
		if capped && limit.Before(end) {
			end = limit
		}

		c := b.charge(b.base(), p.Start, end, false)
		b.outstanding = b.outstanding.Add(c.net)

		e := Entry{
			Date:        end,
			Description: fmt.Sprintf("%s Net Interest (No Transactions)", p.Name),
			Kind:        KindMissing,
			Period:      p.Name,
			Outstanding: b.outstanding,
			Principal:   b.principal,
		}
		c.applyTo(&e)
		b.entries = append(b.entries, e)

		if capped && !end.Before(limit) {
			return
		}
	}
}

// openPeriod starts p with an opening row covering [p.Start, txDate - 1].
func (b *builder) openPeriod(p Period, txDate Date) {
	b.period = p
	b.periodCharge = charge{}
	b.repaidInPeriod = false
	b.prev = nil
	b.chargedThrough = Date{}

	// Periods past the end date only hold the closure transaction.
	if b.acct.pastEnd(p.Start) {
		return
	}

	end := txDate.AddDays(-1)
	if limit, capped := b.acct.accrualLimit(p.Start); capped && limit.Before(end) {
		end = limit
	}

	base := b.base()
	c := b.charge(base, p.Start, end, false)
	e := Entry{
		Date:        p.Start,
		Description: "Opening Balance",
		Kind:        KindOpening,
		Period:      p.Name,
		Outstanding: b.outstanding,
		Principal:   b.principal,
	}
	c.applyTo(&e)

	b.prev = &window{index: len(b.entries), from: p.Start, to: end, base: base, charge: c}
	b.entries = append(b.entries, e)
	b.periodCharge = c
	if c.days > 0 {
		b.chargedThrough = end
	}
}

// applyTransaction books tx and accrues its window. The settlement
// placeholder repays the whole balance, so its window charges nothing.
func (b *builder) applyTransaction(tx Transaction, next *Transaction, settle bool) {
	b.outstanding = b.outstanding.Add(tx.Net())
	b.principal = b.principal.Add(tx.Net())

	from := tx.Date
	to := b.windowEnd(tx, next)

	if b.inclusiveRepayment(tx, settle) && b.extendPrevious(tx.Date) {
		b.chargedThrough = tx.Date
	}
	if !b.chargedThrough.IsZero() && !b.chargedThrough.Before(from) {
		from = b.chargedThrough.AddDays(1)
	}

	penalize := b.acct.pastEnd(tx.Date)
	base := b.base()
	c := b.charge(base, from, to, penalize)
	if settle {
		c = charge{}
	}

	e := Entry{
		Date:          tx.Date,
		Description:   tx.Description,
		Kind:          KindTransaction,
		Period:        b.period.Name,
		TransactionID: tx.ID,
		Paid:          tx.Paid,
		Received:      tx.Received,
		Outstanding:   b.outstanding,
		Principal:     b.principal,
		Overdue:       penalize,
	}
	c.applyTo(&e)

	b.prev = &window{index: len(b.entries), from: from, to: to, base: base, penalize: penalize, charge: c}
	b.entries = append(b.entries, e)
	b.periodCharge = b.periodCharge.plus(c)
	if c.days > 0 {
		b.chargedThrough = to
	}

	if tx.IsRepayment() || settle {
		b.repaidInPeriod = true
	}
}

// accrueOverdue charges the post-maturity days before tx on the balance
// before tx, from the day after the end date (or after the last charged
// day) to the day before tx. An inclusive repayment also covers its own
// day. Every day up to the end date is already charged at this point.
func (b *builder) accrueOverdue(tx Transaction, settle bool) {
	from := b.acct.EndDate.AddDays(1)
	if b.chargedThrough.After(*b.acct.EndDate) {
		from = b.chargedThrough.AddDays(1)
	}
	to := tx.Date.AddDays(-1)
	if b.inclusiveRepayment(tx, settle) {
		to = tx.Date
	}
	if to.Before(from) {
		return
	}

	base := b.base()
	c := b.charge(base, from, to, true)
	e := Entry{
		Date:        from,
		Description: fmt.Sprintf("Overdue Interest %s to %s", from, to),
		Kind:        KindOverdue,
		Period:      b.period.Name,
		Outstanding: b.outstanding,
		Principal:   b.principal,
		Overdue:     true,
	}
	c.applyTo(&e)

	b.prev = &window{index: len(b.entries), from: from, to: to, base: base, penalize: true, charge: c}
	b.entries = append(b.entries, e)
	b.periodCharge = b.periodCharge.plus(c)
	b.chargedThrough = to
}

// windowEnd is the last accrual day for tx: the day before the next
// transaction when it falls in the same period and within the limit,
// otherwise the period end capped at the limit.
func (b *builder) windowEnd(tx Transaction, next *Transaction) Date {
	limit, capped := b.acct.accrualLimit(tx.Date)
	if next != nil && b.period.Contains(next.Date) && (!capped || !next.Date.After(limit)) {
		return next.Date.AddDays(-1)
	}
	end := b.period.End
	if capped && limit.Before(end) {
		end = limit
	}
	return end
}

// inclusiveRepayment reports whether the repayment day is charged on the
// pre-repayment balance. Under the exclusive convention this still applies
// to the period's first repayment when it lands on the period end date.
func (b *builder) inclusiveRepayment(tx Transaction, settle bool) bool {
	if !tx.IsRepayment() && !settle {
		return false
	}
	if b.acct.RepaymentConvention == ConventionInclusive {
		return true
	}
	return !b.repaidInPeriod && tx.Date.Equal(b.period.End)
}

// extendPrevious stretches the preceding accrual row of this period to
// cover day. Its base is the balance before this transaction, so a
// repayment that exceeds the balance still pays that day's interest.
// Returns false when no contiguous row precedes day.
func (b *builder) extendPrevious(day Date) bool {
	w := b.prev
	if w == nil || !w.to.AddDays(1).Equal(day) || w.from.After(day) {
		return false
	}
	if b.acct.pastEnd(day) && !w.penalize {
		return false
	}

	c := b.charge(w.base, w.from, day, w.penalize)
	c.applyTo(&b.entries[w.index])

	b.periodCharge = b.periodCharge.minus(w.charge).plus(c)
	w.to = day
	w.charge = c
	return true
}

// fillToEndDate adds one remainder row from the final period's end to the
// end date on the closing outstanding balance.
func (b *builder) fillToEndDate() {
	if b.acct.IsClosed() || b.acct.EndDate == nil || !b.acct.EndDate.After(b.period.End) {
		return
	}
	from := b.period.End.AddDays(1)
	to := *b.acct.EndDate

	c := b.charge(b.base(), from, to, false)
	b.outstanding = b.outstanding.Add(c.net)

	e := Entry{
		Date:        to,
		Description: fmt.Sprintf("Interest %s to %s", from, to),
		Kind:        KindRemainder,
		Outstanding: b.outstanding,
		Principal:   b.principal,
	}
	c.applyTo(&e)
	b.entries = append(b.entries, e)
}
