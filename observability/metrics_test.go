package observability_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/icl-engine/observability"
)

func TestMetrics_Record(t *testing.T) {
	m := observability.NewMetrics()

	m.ObserveCalculation("timeline", 15*time.Millisecond)
	m.ObserveTimeline(12)
	m.IncrClosure()
	m.IncrClosure()
	m.IncrError("settlement")
	m.SetAccountsByStatus(map[string]int{"active": 3, "npa": 1})

	families, err := m.Registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["icl_calculation_duration_seconds"])
	assert.True(t, names["icl_timeline_entries"])
	assert.True(t, names["icl_loan_closures_total"])
	assert.True(t, names["icl_errors_total"])
	assert.True(t, names["icl_accounts_by_status"])

	count, err := testutil.GatherAndCount(m.Registry, "icl_accounts_by_status")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *observability.Metrics
	assert.NotPanics(t, func() {
		m.ObserveCalculation("timeline", time.Second)
		m.ObserveTimeline(1)
		m.IncrClosure()
		m.IncrError("x")
		m.SetAccountsByStatus(map[string]int{"active": 1})
	})
}

func TestNewMetrics_Independent(t *testing.T) {
	assert.NotPanics(t, func() {
		observability.NewMetrics()
		observability.NewMetrics()
	})
}
