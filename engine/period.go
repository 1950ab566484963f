package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Compounding window
// =============================================================================

// Period is a compounding window [Start, End], both inclusive.
//
// Quarterly and monthly periods are anchored to the loan's start date
// (anniversary-aligned, not calendar-aligned). Yearly periods are the
// Indian financial year, Apr 1 - Mar 31.
type Period struct {
	Name  string
	Start Date
	End   Date
}

// Contains returns true if d is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Days returns the inclusive length of the period.
func (p Period) Days() int {
	return windowDays(p.Start, p.End)
}

// Same reports whether p and o are the same window.
func (p Period) Same(o Period) bool {
	return p.Start.Equal(o.Start) && p.End.Equal(o.End)
}

func (p Period) String() string {
	return p.Name + " [" + p.Start.String() + ", " + p.End.String() + "]"
}

// PeriodResolver maps a date to the period containing it. Walking Next from
// any period tiles the calendar with no gaps and no overlaps.
type PeriodResolver interface {
	Resolve(d Date) Period
	Next(p Period) Period
}

// =============================================================================
// ANCHORED RESOLVERS - Quarter and month windows from the start date
// =============================================================================

type anchoredResolver struct {
	anchor Date
	months int
	name   func(index int, start Date) string
}

// QuarterlyResolver returns 3-month windows anchored to the loan start
// month/day. Quarter names cycle Q1..Q4 from the anchor.
func QuarterlyResolver(anchor Date) PeriodResolver {
	return anchoredResolver{
		anchor: anchor,
		months: 3,
		name: func(index int, start Date) string {
			return fmt.Sprintf("Q%d %d", floorMod(index, 4)+1, start.Year())
		},
	}
}

// MonthlyResolver returns windows from the anchor day-of-month to the day
// before next month's anchor day.
func MonthlyResolver(anchor Date) PeriodResolver {
	return anchoredResolver{
		anchor: anchor,
		months: 1,
		name: func(_ int, start Date) string {
			return start.Format("Jan 2006")
		},
	}
}

func (r anchoredResolver) Resolve(d Date) Period {
	return r.period(floorDiv(monthsSinceAnchor(r.anchor, d), r.months))
}

func (r anchoredResolver) Next(p Period) Period {
	return r.Resolve(p.End.AddDays(1))
}

func (r anchoredResolver) period(index int) Period {
	start := anchorPlusMonths(r.anchor, index*r.months)
	end := anchorPlusMonths(r.anchor, (index+1)*r.months).AddDays(-1)
	return Period{Name: r.name(index, start), Start: start, End: end}
}

// monthsSinceAnchor counts whole anchored months from anchor to d.
// A date before this month's anchor day belongs to the previous month.
func monthsSinceAnchor(anchor, d Date) int {
	months := (d.Year()-anchor.Year())*12 + int(d.Month()) - int(anchor.Month())
	if d.Before(anchorPlusMonths(anchor, months)) {
		months--
	}
	return months
}

// anchorPlusMonths returns the anchor day, clamped to month length,
// offset months after the anchor month.
func anchorPlusMonths(anchor Date, offset int) Date {
	total := int(anchor.Month()-1) + offset
	year := anchor.Year() + floorDiv(total, 12)
	month := time.Month(floorMod(total, 12) + 1)
	return clampedDate(year, month, anchor.Day())
}

// =============================================================================
// FINANCIAL YEAR - Apr 1 to Mar 31, independent of the anchor
// =============================================================================

type financialYearResolver struct{}

// FinancialYearResolver returns Indian financial years named FY{start}-{end}.
func FinancialYearResolver() PeriodResolver {
	return financialYearResolver{}
}

func (financialYearResolver) Resolve(d Date) Period {
	year := d.Year()
	if d.Month() < time.April {
		year--
	}
	return Period{
		Name:  fmt.Sprintf("FY%d-%d", year, year+1),
		Start: NewDate(year, time.April, 1),
		End:   NewDate(year+1, time.March, 31),
	}
}

func (r financialYearResolver) Next(p Period) Period {
	return r.Resolve(p.End.AddDays(1))
}

// ResolverFor returns the period resolver for a compounding frequency.
func ResolverFor(freq Frequency, anchor Date) (PeriodResolver, error) {
	switch freq {
	case FrequencyMonthly:
		return MonthlyResolver(anchor), nil
	case FrequencyQuarterly:
		return QuarterlyResolver(anchor), nil
	case FrequencyYearly:
		return FinancialYearResolver(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFrequency, freq)
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
