package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/icl-engine/engine"
)

// =============================================================================
// DAY COUNT TESTS
// =============================================================================

func TestDaysInYear_LeapSensitivity(t *testing.T) {
	// GIVEN: Windows around Feb 29
	// WHEN: Resolving the year basis
	// THEN: 366 only when the window encloses a real Feb 29

	tests := []struct {
		name     string
		from, to string
		want     int
	}{
		{"non-leap Feb to Mar", "2023-02-01", "2023-03-01", 365},
		{"leap Feb to Mar spans Feb 29", "2024-02-01", "2024-03-01", 366},
		{"leap year window missing Feb 29", "2024-03-01", "2024-04-01", 365},
		{"window ending on Feb 29", "2024-01-01", "2024-02-29", 366},
		{"window starting on Feb 29", "2024-02-29", "2024-03-10", 366},
		{"multi-year window through 2024", "2022-06-01", "2024-06-01", 366},
		{"century non-leap", "2100-02-01", "2100-03-01", 365},
		{"quad-century leap", "2000-02-01", "2000-03-01", 366},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, engine.DaysInYear(d(tt.from), d(tt.to)))
		})
	}
}

func TestIsLeap(t *testing.T) {
	assert.True(t, engine.IsLeap(2024))
	assert.True(t, engine.IsLeap(2000))
	assert.False(t, engine.IsLeap(2023))
	assert.False(t, engine.IsLeap(1900))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 90, engine.DaysBetween(d("2023-01-01"), d("2023-04-01")))
	assert.Equal(t, -1, engine.DaysBetween(d("2023-01-02"), d("2023-01-01")))
	assert.Equal(t, 0, engine.DaysBetween(d("2023-01-01"), d("2023-01-01")))
}

// =============================================================================
// PERIOD RESOLVER TESTS
// =============================================================================

func TestQuarterlyResolver_AnchoredToStart(t *testing.T) {
	// GIVEN: A loan starting Jan 1
	// WHEN: Resolving a May date
	// THEN: The second quarter, Apr 1 - Jun 30

	r := engine.QuarterlyResolver(d("2023-01-01"))
	p := r.Resolve(d("2023-05-10"))

	assert.Equal(t, "Q2 2023", p.Name)
	assert.Equal(t, d("2023-04-01"), p.Start)
	assert.Equal(t, d("2023-06-30"), p.End)
	assert.Equal(t, 91, p.Days())
}

func TestQuarterlyResolver_MidMonthAnchor(t *testing.T) {
	// GIVEN: A loan starting Feb 15
	// WHEN: Resolving dates around the anchor
	// THEN: Quarters run 15th to 14th; dates before the anchor fall in the prior quarter

	r := engine.QuarterlyResolver(d("2023-02-15"))

	first := r.Resolve(d("2023-02-15"))
	assert.Equal(t, "Q1 2023", first.Name)
	assert.Equal(t, d("2023-02-15"), first.Start)
	assert.Equal(t, d("2023-05-14"), first.End)

	before := r.Resolve(d("2023-02-10"))
	assert.Equal(t, "Q4 2022", before.Name)
	assert.Equal(t, d("2022-11-15"), before.Start)
	assert.Equal(t, d("2023-02-14"), before.End)
}

func TestMonthlyResolver_ClampsAnchorDay(t *testing.T) {
	// GIVEN: A loan starting on the 31st
	// WHEN: Resolving February
	// THEN: The anchor clamps to Feb 28 and the next window starts there

	r := engine.MonthlyResolver(d("2023-01-31"))

	jan := r.Resolve(d("2023-02-15"))
	assert.Equal(t, "Jan 2023", jan.Name)
	assert.Equal(t, d("2023-01-31"), jan.Start)
	assert.Equal(t, d("2023-02-27"), jan.End)

	feb := r.Next(jan)
	assert.Equal(t, "Feb 2023", feb.Name)
	assert.Equal(t, d("2023-02-28"), feb.Start)
	assert.Equal(t, d("2023-03-30"), feb.End)
}

func TestResolvers_TileWithoutGaps(t *testing.T) {
	// GIVEN: Each resolver kind, with awkward anchors
	// WHEN: Walking Next for several years
	// THEN: Each period starts the day after the previous one ends and resolves to itself

	resolvers := map[string]engine.PeriodResolver{
		"monthly-31st":   engine.MonthlyResolver(d("2023-01-31")),
		"monthly-29th":   engine.MonthlyResolver(d("2024-02-29")),
		"quarterly-30th": engine.QuarterlyResolver(d("2023-11-30")),
		"quarterly-1st":  engine.QuarterlyResolver(d("2023-01-01")),
		"financial-year": engine.FinancialYearResolver(),
	}

	for name, r := range resolvers {
		t.Run(name, func(t *testing.T) {
			p := r.Resolve(d("2023-01-15"))
			for i := 0; i < 60; i++ {
				next := r.Next(p)
				require.Equal(t, p.End.AddDays(1), next.Start, "gap after %s", p)
				require.True(t, next.End.After(next.Start) || next.End.Equal(next.Start))
				require.True(t, r.Resolve(next.Start).Same(next), "start of %s", next)
				require.True(t, r.Resolve(next.End).Same(next), "end of %s", next)
				p = next
			}
		})
	}
}

func TestFinancialYearResolver(t *testing.T) {
	r := engine.FinancialYearResolver()

	march := r.Resolve(d("2024-03-31"))
	assert.Equal(t, "FY2023-2024", march.Name)
	assert.Equal(t, d("2023-04-01"), march.Start)
	assert.Equal(t, d("2024-03-31"), march.End)

	april := r.Resolve(d("2024-04-01"))
	assert.Equal(t, "FY2024-2025", april.Name)
	assert.True(t, r.Next(march).Same(april))
}

func TestResolverFor_UnknownFrequency(t *testing.T) {
	_, err := engine.ResolverFor(engine.Frequency("weekly"), d("2023-01-01"))
	assert.ErrorIs(t, err, engine.ErrUnknownFrequency)
}

func TestDate_JSON(t *testing.T) {
	b, err := d("2023-03-31").MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2023-03-31"`, string(b))

	var got engine.Date
	require.NoError(t, got.UnmarshalJSON([]byte(`"2024-02-29"`)))
	assert.Equal(t, d("2024-02-29"), got)

	require.NoError(t, got.UnmarshalJSON([]byte(`null`)))
	assert.True(t, got.IsZero())

	assert.Error(t, got.UnmarshalJSON([]byte(`"31/03/2023"`)))
}
