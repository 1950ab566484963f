package engine

import "github.com/shopspring/decimal"

// =============================================================================
// ENGINE - Numeric context and clock
// =============================================================================

const (
	// DefaultPlaces is the division precision used when none is configured.
	DefaultPlaces int32 = 28

	// MinPlaces is the floor for division precision.
	MinPlaces int32 = 28
)

// Engine carries the numeric context and the clock. It holds no other
// state, so one Engine can serve concurrent calculations.
type Engine struct {
	// Places is the decimal places kept by every division.
	Places int32

	// Now supplies "today" for status and overdue resolution.
	Now func() Date
}

// New returns an engine with default precision and the wall clock.
func New() *Engine {
	return &Engine{Places: DefaultPlaces, Now: Today}
}

func (e *Engine) places() int32 {
	if e == nil || e.Places < MinPlaces {
		return MinPlaces
	}
	return e.Places
}

// Today is the engine's notion of the current date.
func (e *Engine) Today() Date {
	if e == nil || e.Now == nil {
		return Today()
	}
	return e.Now()
}

// =============================================================================
// TIMELINE - Engine output
// =============================================================================

type EntryKind string

const (
	KindTransaction EntryKind = "transaction"
	KindOpening     EntryKind = "opening"   // Interest from period start to first transaction
	KindSummary     EntryKind = "summary"   // Period close: capitalizes the period's net interest
	KindMissing     EntryKind = "missing"   // Filler for a period with no transactions
	KindRemainder   EntryKind = "remainder" // Yearly-compound stub up to the end date
	KindOverdue     EntryKind = "overdue"   // Post-maturity days before a closure
)

// Entry is one Timeline row. TDS is always TotalInterest - NetInterest and
// TotalInterest is always Interest + PenaltyInterest.
type Entry struct {
	Date          Date
	Description   string
	Kind          EntryKind
	Period        string
	TransactionID string

	Paid     decimal.Decimal
	Received decimal.Decimal

	Days            int
	Interest        decimal.Decimal
	PenaltyInterest decimal.Decimal
	TotalInterest   decimal.Decimal
	TDS             decimal.Decimal
	NetInterest     decimal.Decimal

	Outstanding decimal.Decimal
	Principal   decimal.Decimal

	// Overdue is set on rows dated after the end date.
	Overdue bool
}

// Capitalized is the net interest this row adds to outstanding.
func (e Entry) Capitalized() decimal.Decimal {
	switch e.Kind {
	case KindSummary, KindMissing, KindRemainder:
		return e.NetInterest
	default:
		return decimal.Zero
	}
}

func (e Entry) IsTransaction() bool { return e.Kind == KindTransaction }
func (e Entry) IsSummary() bool     { return e.Kind == KindSummary }
func (e Entry) IsOpening() bool     { return e.Kind == KindOpening }

// Timeline is the ordered ledger for one account, plus the status the
// engine resolved while building it.
type Timeline struct {
	Entries     []Entry
	Strategy    string
	Status      Status
	OverdueDays int
	AsOf        Date
}

// Last returns the final entry.
func (t Timeline) Last() (Entry, bool) {
	if len(t.Entries) == 0 {
		return Entry{}, false
	}
	return t.Entries[len(t.Entries)-1], true
}

// ClosingBalance is the outstanding balance of the final entry.
func (t Timeline) ClosingBalance() decimal.Decimal {
	last, ok := t.Last()
	if !ok {
		return decimal.Zero
	}
	return last.Outstanding
}

// Totals sums the full timeline the same way BalanceAt does.
func (t Timeline) Totals() Totals {
	var tot Totals
	for _, e := range t.Entries {
		tot.add(e)
	}
	return tot
}

// Totals aggregates a run of entries. Paid/Received count transaction rows
// only; interest counts every row except period summaries, which repeat
// their rows' interest.
type Totals struct {
	Paid          decimal.Decimal
	Received      decimal.Decimal
	Interest      decimal.Decimal
	Penalty       decimal.Decimal
	TotalInterest decimal.Decimal
	TDS           decimal.Decimal
	NetInterest   decimal.Decimal
}

func (t *Totals) add(e Entry) {
	if e.IsTransaction() {
		t.Paid = t.Paid.Add(e.Paid)
		t.Received = t.Received.Add(e.Received)
	}
	if e.IsSummary() {
		return
	}
	t.Interest = t.Interest.Add(e.Interest)
	t.Penalty = t.Penalty.Add(e.PenaltyInterest)
	t.TotalInterest = t.TotalInterest.Add(e.TotalInterest)
	t.TDS = t.TDS.Add(e.TDS)
	t.NetInterest = t.NetInterest.Add(e.NetInterest)
}
