package engine_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/warp/icl-engine/engine"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var d = engine.MustParseDate

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// fixedEngine pins "today" so status resolution is deterministic.
func fixedEngine(today string) *engine.Engine {
	e := engine.New()
	e.Now = func() engine.Date { return d(today) }
	return e
}

// baseAccount: 2023-01-01 start, 12% rate, 10% TDS, quarterly compound.
func baseAccount() engine.Account {
	return engine.Account{
		ID:                  "icl-1",
		Name:                "Acme Pvt Ltd",
		StartDate:           d("2023-01-01"),
		AnnualRate:          dec("12"),
		TDSRate:             dec("10"),
		PenaltyRate:         dec("2"),
		InterestType:        engine.InterestCompound,
		Frequency:           engine.FrequencyQuarterly,
		RepaymentConvention: engine.ConventionExclusive,
		GracePeriodDays:     30,
		Status:              engine.StatusActive,
	}
}

func paid(date string, amount string) engine.Transaction {
	return engine.Transaction{Date: d(date), Description: "Disbursement", Paid: dec(amount)}
}

func received(date string, amount string) engine.Transaction {
	return engine.Transaction{Date: d(date), Description: "Repayment", Received: dec(amount)}
}

func datePtr(s string) *engine.Date {
	v := d(s)
	return &v
}

// interest mirrors the engine formula: base × rate × days / (basis × 100).
func interest(base decimal.Decimal, rate int64, days int64, basis int64) decimal.Decimal {
	return base.Mul(decimal.NewFromInt(rate)).Mul(decimal.NewFromInt(days)).
		DivRound(decimal.NewFromInt(basis*100), engine.DefaultPlaces)
}

// net applies 10% TDS.
func net(gross decimal.Decimal) decimal.Decimal {
	return gross.Mul(dec("0.9"))
}

func assertDecimal(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, want.Equal(got), "want %s, got %s", want, got)
}

func entriesOfKind(tl engine.Timeline, kind engine.EntryKind) []engine.Entry {
	var out []engine.Entry
	for _, e := range tl.Entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}
