package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/icl-engine/engine"
)

// =============================================================================
// SCENARIO TESTS
// =============================================================================

func TestBuild_QuarterCompound_SingleDisbursement(t *testing.T) {
	// GIVEN: 100,000 disbursed on the start date, 12% compound quarterly, 10% TDS
	// WHEN: Building the timeline
	// THEN: Q1 accrues 90 days on a 365 basis and closes at 102,663.01

	e := fixedEngine("2023-06-01")
	tl, err := e.Build(baseAccount(), []engine.Transaction{paid("2023-01-01", "100000")})
	require.NoError(t, err)
	require.Len(t, tl.Entries, 2)

	tx := tl.Entries[0]
	assert.Equal(t, engine.KindTransaction, tx.Kind)
	assert.Equal(t, 90, tx.Days)
	assert.Equal(t, "2958.90", tx.Interest.StringFixed(2))
	assert.Equal(t, "2663.01", tx.NetInterest.StringFixed(2))
	assertDecimal(t, dec("100000"), tx.Outstanding)

	summary := tl.Entries[1]
	assert.Equal(t, engine.KindSummary, summary.Kind)
	assert.Equal(t, "Q1 2023 Net Interest", summary.Description)
	assert.Equal(t, d("2023-03-31"), summary.Date)
	assert.Equal(t, "102663.01", summary.Outstanding.StringFixed(2))
	assertDecimal(t, dec("100000"), summary.Principal)

	assert.Equal(t, "compound/quarterly", tl.Strategy)
	assert.Equal(t, engine.StatusActive, tl.Status)
}

func TestBuild_EmptyTransactions_EmptyTimeline(t *testing.T) {
	tl, err := fixedEngine("2023-06-01").Build(baseAccount(), nil)
	require.NoError(t, err)
	assert.Empty(t, tl.Entries)
	assert.True(t, tl.ClosingBalance().IsZero())
	assert.Equal(t, engine.StatusActive, tl.Status)
}

func TestBuild_UnknownInterestType_Errors(t *testing.T) {
	acct := baseAccount()
	acct.InterestType = "flat"

	_, err := fixedEngine("2023-06-01").Build(acct, []engine.Transaction{paid("2023-01-01", "1")})
	assert.ErrorIs(t, err, engine.ErrUnknownInterestType)
}

// =============================================================================
// INVARIANT TESTS
// =============================================================================

func busyHistory() []engine.Transaction {
	return []engine.Transaction{
		received("2023-08-20", "15000"),
		paid("2023-01-01", "100000"),
		paid("2023-02-10", "25000"),
		received("2023-03-31", "10000"),
		paid("2023-05-01", "5000"),
		received("2024-02-29", "20000"),
		paid("2023-05-01", "7500"),
	}
}

func TestBuild_BalanceContinuity(t *testing.T) {
	// GIVEN: Irregular, unsorted history across many periods, every variant
	// WHEN: Building the timeline
	// THEN: Each row's outstanding is the previous plus paid - received + capitalized net

	for _, it := range []engine.InterestType{engine.InterestSimple, engine.InterestCompound} {
		for _, freq := range []engine.Frequency{engine.FrequencyMonthly, engine.FrequencyQuarterly, engine.FrequencyYearly} {
			for _, conv := range []engine.RepaymentConvention{engine.ConventionInclusive, engine.ConventionExclusive} {
				acct := baseAccount()
				acct.InterestType = it
				acct.Frequency = freq
				acct.RepaymentConvention = conv

				t.Run(string(it)+"/"+string(freq)+"/"+string(conv), func(t *testing.T) {
					tl, err := fixedEngine("2024-06-01").Build(acct, busyHistory())
					require.NoError(t, err)
					require.NotEmpty(t, tl.Entries)

					prevOut, prevPrin := decimal.Zero, decimal.Zero
					for i, e := range tl.Entries {
						wantOut := prevOut.Add(e.Paid).Sub(e.Received).Add(e.Capitalized())
						assert.Truef(t, wantOut.Equal(e.Outstanding), "row %d (%s) outstanding: want %s, got %s", i, e.Description, wantOut, e.Outstanding)

						wantPrin := prevPrin.Add(e.Paid).Sub(e.Received)
						assert.Truef(t, wantPrin.Equal(e.Principal), "row %d principal", i)

						if i > 0 {
							assert.False(t, e.Date.Before(tl.Entries[i-1].Date), "row %d out of order", i)
						}
						prevOut, prevPrin = e.Outstanding, e.Principal
					}
				})
			}
		}
	}
}

func TestBuild_TDSIdentity(t *testing.T) {
	// GIVEN: A history that reaches past the end date (penalty rows)
	// WHEN: Building the timeline
	// THEN: tds == total - net and total == interest + penalty on every row

	acct := baseAccount()
	acct.EndDate = datePtr("2023-06-30")
	acct.GracePeriodDays = 0
	acct.Status = engine.StatusClosed
	acct.ClosureDate = datePtr("2023-09-15")
	acct.TDSRate = dec("7.5")

	txs := []engine.Transaction{
		paid("2023-01-01", "100000"),
		received("2023-03-15", "33333.33"),
		received("2023-09-15", "1000"),
	}

	tl, err := fixedEngine("2023-10-01").Build(acct, txs)
	require.NoError(t, err)

	sawPenalty := false
	for i, e := range tl.Entries {
		assert.Truef(t, e.TDS.Equal(e.TotalInterest.Sub(e.NetInterest)), "row %d tds", i)
		assert.Truef(t, e.TotalInterest.Equal(e.Interest.Add(e.PenaltyInterest)), "row %d total", i)
		if e.PenaltyInterest.IsPositive() {
			sawPenalty = true
		}
	}
	assert.True(t, sawPenalty, "post-maturity rows should carry penalty")
}

func TestBuild_StableSortOnEqualDates(t *testing.T) {
	txs := []engine.Transaction{
		{ID: "b", Date: d("2023-02-01"), Paid: dec("10")},
		{ID: "a", Date: d("2023-01-01"), Paid: dec("10")},
		{ID: "c", Date: d("2023-02-01"), Paid: dec("20")},
	}

	tl, err := fixedEngine("2023-06-01").Build(baseAccount(), txs)
	require.NoError(t, err)

	var ids []string
	for _, e := range entriesOfKind(tl, engine.KindTransaction) {
		ids = append(ids, e.TransactionID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
	assert.Equal(t, "b", txs[0].ID, "input must not be reordered")
}

// =============================================================================
// GAP FILLING TESTS
// =============================================================================

func TestBuild_FillsTransactionFreeQuarters(t *testing.T) {
	// GIVEN: Transactions only in Q1 and Q4 2023
	// WHEN: Building the timeline
	// THEN: Q2 and Q3 get filler rows, Q2 compounding on the Q1 closing balance

	txs := []engine.Transaction{
		paid("2023-01-01", "100000"),
		paid("2023-10-15", "10000"),
	}

	tl, err := fixedEngine("2024-01-15").Build(baseAccount(), txs)
	require.NoError(t, err)

	missing := entriesOfKind(tl, engine.KindMissing)
	require.Len(t, missing, 2)

	q1Close := tl.Entries[1].Outstanding
	q2 := missing[0]
	assert.Equal(t, "Q2 2023 Net Interest (No Transactions)", q2.Description)
	assert.Equal(t, d("2023-06-30"), q2.Date)
	assert.Equal(t, 91, q2.Days)
	assertDecimal(t, interest(q1Close, 12, 91, 365), q2.Interest)
	assertDecimal(t, q1Close.Add(net(q2.Interest)), q2.Outstanding)

	q3 := missing[1]
	assert.Equal(t, "Q3 2023", q3.Period)
	assert.Equal(t, 92, q3.Days)
	assertDecimal(t, interest(q2.Outstanding, 12, 92, 365), q3.Interest)

	opening := entriesOfKind(tl, engine.KindOpening)
	require.Len(t, opening, 1)
	assert.Equal(t, d("2023-10-01"), opening[0].Date)
	assert.Equal(t, 14, opening[0].Days)
	assertDecimal(t, q3.Outstanding, opening[0].Outstanding)

	kinds := make([]engine.EntryKind, len(tl.Entries))
	for i, e := range tl.Entries {
		kinds[i] = e.Kind
	}
	assert.Equal(t, []engine.EntryKind{
		engine.KindTransaction, engine.KindSummary,
		engine.KindMissing, engine.KindMissing,
		engine.KindOpening, engine.KindTransaction, engine.KindSummary,
	}, kinds)
}

func TestBuild_GapFillingStopsAtEndDate(t *testing.T) {
	// GIVEN: End date mid-Q2 and a closure settled after maturity in Q4
	// WHEN: Building the timeline
	// THEN: Q2 filler stops at the end date, no quarter after it is filled and
	//       the overdue stretch up to closure accrues in a single row

	acct := baseAccount()
	acct.EndDate = datePtr("2023-05-15")
	acct.Status = engine.StatusClosed
	acct.ClosureDate = datePtr("2023-11-01")

	txs := []engine.Transaction{
		paid("2023-01-01", "100000"),
		received("2023-11-01", "50000"),
	}

	tl, err := fixedEngine("2023-12-01").Build(acct, txs)
	require.NoError(t, err)

	missing := entriesOfKind(tl, engine.KindMissing)
	require.Len(t, missing, 1)
	assert.Equal(t, d("2023-05-15"), missing[0].Date)
	assert.Equal(t, 45, missing[0].Days)
	assert.Empty(t, entriesOfKind(tl, engine.KindOpening), "periods past the end date have no opening row")

	overdue := entriesOfKind(tl, engine.KindOverdue)
	require.Len(t, overdue, 1, "post-maturity days before the closure accrue in one row")
	assert.Equal(t, d("2023-05-16"), overdue[0].Date)
	assert.Equal(t, 169, overdue[0].Days)
	assert.True(t, overdue[0].Overdue)
	assert.True(t, overdue[0].PenaltyInterest.IsPositive())

	closing := entriesOfKind(tl, engine.KindTransaction)[1]
	assert.True(t, closing.Overdue)
	assert.Equal(t, 1, closing.Days)

	last, _ := tl.Last()
	assert.Equal(t, d("2023-11-01"), last.Date)
	assert.Equal(t, engine.StatusClosed, tl.Status)
}

// =============================================================================
// REPAYMENT CONVENTION TESTS
// =============================================================================

func TestBuild_ExclusiveOverrideOnPeriodEnd(t *testing.T) {
	// GIVEN: Exclusive convention, 50,000 repaid on Mar 31 (Q1 end)
	// WHEN: Building the timeline
	// THEN: Mar 31 is charged on the pre-repayment balance; the repayment row accrues nothing

	txs := []engine.Transaction{
		paid("2023-01-01", "100000"),
		received("2023-03-31", "50000"),
	}

	tl, err := fixedEngine("2023-06-01").Build(baseAccount(), txs)
	require.NoError(t, err)
	require.Len(t, tl.Entries, 3)

	disb := tl.Entries[0]
	assert.Equal(t, 90, disb.Days)
	assertDecimal(t, interest(dec("100000"), 12, 90, 365), disb.Interest)

	repay := tl.Entries[1]
	assert.Equal(t, 0, repay.Days)
	assert.True(t, repay.Interest.IsZero())

	assert.Equal(t, "52663.01", tl.ClosingBalance().StringFixed(2))
}

func TestBuild_ExclusiveMidPeriodRepayment(t *testing.T) {
	// GIVEN: Exclusive convention, repayment on Mar 15
	// WHEN: Building the timeline
	// THEN: Mar 15 accrues on the reduced balance

	txs := []engine.Transaction{
		paid("2023-01-01", "100000"),
		received("2023-03-15", "50000"),
	}

	tl, err := fixedEngine("2023-06-01").Build(baseAccount(), txs)
	require.NoError(t, err)

	assert.Equal(t, 73, tl.Entries[0].Days)
	assert.Equal(t, 17, tl.Entries[1].Days)
	assertDecimal(t, interest(dec("50000"), 12, 17, 365), tl.Entries[1].Interest)
}

func TestBuild_InclusiveRepayment(t *testing.T) {
	// GIVEN: Inclusive convention, repayment on Mar 15
	// WHEN: Building the timeline
	// THEN: Mar 15 moves onto the disbursement row

	acct := baseAccount()
	acct.RepaymentConvention = engine.ConventionInclusive

	txs := []engine.Transaction{
		paid("2023-01-01", "100000"),
		received("2023-03-15", "50000"),
	}

	tl, err := fixedEngine("2023-06-01").Build(acct, txs)
	require.NoError(t, err)

	assert.Equal(t, 74, tl.Entries[0].Days)
	assertDecimal(t, interest(dec("100000"), 12, 74, 365), tl.Entries[0].Interest)
	assert.Equal(t, 16, tl.Entries[1].Days)

	summary := tl.Entries[2]
	assertDecimal(t, tl.Entries[0].NetInterest.Add(tl.Entries[1].NetInterest), summary.NetInterest)
}

func TestBuild_InclusiveRepaymentExceedingBalance(t *testing.T) {
	// GIVEN: A repayment larger than the outstanding balance
	// WHEN: Building the timeline
	// THEN: The repayment day accrues on the pre-repayment balance, then accrual stops

	acct := baseAccount()
	acct.RepaymentConvention = engine.ConventionInclusive

	txs := []engine.Transaction{
		paid("2023-01-01", "100000"),
		received("2023-02-01", "150000"),
	}

	tl, err := fixedEngine("2023-06-01").Build(acct, txs)
	require.NoError(t, err)

	assert.Equal(t, 32, tl.Entries[0].Days)
	assertDecimal(t, interest(dec("100000"), 12, 32, 365), tl.Entries[0].Interest)

	repay := tl.Entries[1]
	assert.True(t, repay.Outstanding.IsNegative())
	assert.True(t, repay.Interest.IsZero(), "negative balance earns nothing")
}

func TestBuild_SameDayRepaymentsChargeDayOnce(t *testing.T) {
	acct := baseAccount()
	acct.RepaymentConvention = engine.ConventionInclusive

	txs := []engine.Transaction{
		paid("2023-01-01", "100000"),
		received("2023-02-01", "10000"),
		received("2023-02-01", "10000"),
	}

	tl, err := fixedEngine("2023-06-01").Build(acct, txs)
	require.NoError(t, err)

	total := 0
	for _, e := range entriesOfKind(tl, engine.KindTransaction) {
		total += e.Days
	}
	assert.Equal(t, 90, total, "every day of Q1 is charged exactly once")
}

// =============================================================================
// STRATEGY TESTS
// =============================================================================

func TestBuild_SimpleVsCompound(t *testing.T) {
	// GIVEN: Identical histories with a transaction-free Q2
	// WHEN: Building simple and compound timelines
	// THEN: Simple accrues Q2 on principal; compound on the capitalized balance

	txs := []engine.Transaction{
		paid("2023-01-01", "100000"),
		paid("2023-07-01", "1000"),
	}

	simple := baseAccount()
	simple.InterestType = engine.InterestSimple

	st, err := fixedEngine("2023-12-01").Build(simple, txs)
	require.NoError(t, err)
	ct, err := fixedEngine("2023-12-01").Build(baseAccount(), txs)
	require.NoError(t, err)

	sq2 := entriesOfKind(st, engine.KindMissing)[0]
	cq2 := entriesOfKind(ct, engine.KindMissing)[0]

	assertDecimal(t, interest(dec("100000"), 12, 91, 365), sq2.Interest)
	assert.True(t, cq2.Interest.GreaterThan(sq2.Interest))
	assertDecimal(t, dec("100000"), sq2.Principal)
	assert.True(t, sq2.Outstanding.GreaterThan(sq2.Principal), "simple still capitalizes into outstanding")
	assert.Equal(t, "simple/quarterly", st.Strategy)
}

func TestBuild_MonthlyCompound(t *testing.T) {
	acct := baseAccount()
	acct.StartDate = d("2023-01-15")
	acct.Frequency = engine.FrequencyMonthly

	tl, err := fixedEngine("2023-06-01").Build(acct, []engine.Transaction{
		paid("2023-01-15", "100000"),
		paid("2023-03-20", "1000"),
	})
	require.NoError(t, err)

	first := tl.Entries[0]
	assert.Equal(t, "Jan 2023", first.Period)
	assert.Equal(t, 31, first.Days)

	missing := entriesOfKind(tl, engine.KindMissing)
	require.Len(t, missing, 1)
	assert.Equal(t, "Feb 2023", missing[0].Period)
	assert.Equal(t, 28, missing[0].Days)
}

func TestBuild_YearlyCompoundRemainder(t *testing.T) {
	// GIVEN: Yearly compound, end date three months past the last FY
	// WHEN: Building the timeline
	// THEN: One remainder row accrues from Apr 1 to the end date on the FY close

	acct := baseAccount()
	acct.StartDate = d("2023-04-01")
	acct.EndDate = datePtr("2024-06-30")
	acct.Frequency = engine.FrequencyYearly

	tl, err := fixedEngine("2024-07-01").Build(acct, []engine.Transaction{paid("2023-04-01", "100000")})
	require.NoError(t, err)
	require.Len(t, tl.Entries, 3)

	tx := tl.Entries[0]
	assert.Equal(t, 366, tx.Days)
	assertDecimal(t, dec("12000"), tx.Interest)

	fy := tl.Entries[1]
	assert.Equal(t, "FY2023-2024 Net Interest", fy.Description)
	assertDecimal(t, dec("110800"), fy.Outstanding)

	rem := tl.Entries[2]
	assert.Equal(t, engine.KindRemainder, rem.Kind)
	assert.Equal(t, d("2024-06-30"), rem.Date)
	assert.Equal(t, 91, rem.Days)
	assertDecimal(t, interest(dec("110800"), 12, 91, 365), rem.Interest)
	assertDecimal(t, dec("110800").Add(net(rem.Interest)), rem.Outstanding)
}

func TestBuild_YearlySimpleHasNoRemainder(t *testing.T) {
	acct := baseAccount()
	acct.StartDate = d("2023-04-01")
	acct.EndDate = datePtr("2024-06-30")
	acct.Frequency = engine.FrequencyYearly
	acct.InterestType = engine.InterestSimple

	tl, err := fixedEngine("2024-07-01").Build(acct, []engine.Transaction{paid("2023-04-01", "100000")})
	require.NoError(t, err)
	assert.Empty(t, entriesOfKind(tl, engine.KindRemainder))
}

// =============================================================================
// CLOSED ACCOUNT TESTS
// =============================================================================

func TestBuild_ClosedAccountStopsAtClosure(t *testing.T) {
	// GIVEN: A loan closed on Jun 15 with a stray transaction after it
	// WHEN: Building the timeline
	// THEN: Nothing is computed past the closure date

	acct := baseAccount()
	acct.EndDate = datePtr("2023-12-31")
	acct.Status = engine.StatusClosed
	acct.ClosureDate = datePtr("2023-06-15")

	txs := []engine.Transaction{
		paid("2023-01-01", "100000"),
		received("2023-06-15", "106000"),
		paid("2023-08-01", "5000"),
	}

	tl, err := fixedEngine("2024-01-01").Build(acct, txs)
	require.NoError(t, err)

	for _, e := range tl.Entries {
		assert.False(t, e.Date.After(d("2023-06-15")), "%s dated %s", e.Description, e.Date)
	}
	assert.Len(t, entriesOfKind(tl, engine.KindTransaction), 2)
	assert.Empty(t, entriesOfKind(tl, engine.KindMissing))

	closure := entriesOfKind(tl, engine.KindTransaction)[1]
	assert.Equal(t, 1, closure.Days)
	assert.Equal(t, engine.StatusClosed, tl.Status)
	assert.Equal(t, 0, tl.OverdueDays)
}
