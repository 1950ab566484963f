package engine

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STRATEGY - The two axes that distinguish the six accrual variants
// =============================================================================

// Balances is the pair of running balances the builder maintains.
type Balances struct {
	Outstanding decimal.Decimal // principal + capitalized net interest
	Principal   decimal.Decimal // paid - received only
}

// BaseSelector picks the balance interest accrues on.
type BaseSelector func(Balances) decimal.Decimal

var (
	// OutstandingBase compounds: capitalized interest earns interest.
	OutstandingBase BaseSelector = func(b Balances) decimal.Decimal { return b.Outstanding }

	// PrincipalBase is simple interest: only paid - received earns interest.
	PrincipalBase BaseSelector = func(b Balances) decimal.Decimal { return b.Principal }
)

// Strategy parameterizes the single accrual algorithm.
//
//	simple   × monthly|quarterly|yearly -> PrincipalBase
//	compound × monthly|quarterly|yearly -> OutstandingBase
//
// FillToEndDate is set for compound × yearly only: an end date past the
// final financial year gets one remainder row.
type Strategy struct {
	Name          string
	Resolver      PeriodResolver
	Base          BaseSelector
	FillToEndDate bool
}

// StrategyFor dispatches on the account's interest type and frequency.
func StrategyFor(a Account) (Strategy, error) {
	resolver, err := ResolverFor(a.Frequency, a.StartDate)
	if err != nil {
		return Strategy{}, err
	}

	var base BaseSelector
	switch a.InterestType {
	case InterestSimple:
		base = PrincipalBase
	case InterestCompound:
		base = OutstandingBase
	default:
		return Strategy{}, fmt.Errorf("%w: %q", ErrUnknownInterestType, a.InterestType)
	}

	return Strategy{
		Name:          string(a.InterestType) + "/" + string(a.Frequency),
		Resolver:      resolver,
		Base:          base,
		FillToEndDate: a.InterestType == InterestCompound && a.Frequency == FrequencyYearly,
	}, nil
}
