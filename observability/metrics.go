package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the ICL service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Registry owns these metrics; the /metrics endpoint serves it.
	Registry *prometheus.Registry

	calculationDuration *prometheus.HistogramVec
	timelineEntries     prometheus.Histogram
	accountsByStatus    *prometheus.GaugeVec
	loanClosures        prometheus.Counter
	errors              *prometheus.CounterVec
}

// NewMetrics registers every collector in a private registry, so tests can
// build as many as they like without duplicate-collector panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		calculationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "icl_calculation_duration_seconds",
				Help:    "Duration of engine calculations by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		timelineEntries: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "icl_timeline_entries",
				Help:    "Number of rows in computed timelines.",
				Buckets: prometheus.ExponentialBuckets(4, 2, 10),
			},
		),
		accountsByStatus: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "icl_accounts_by_status",
				Help: "Accounts per status after the last refresh.",
			},
			[]string{"status"},
		),
		loanClosures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "icl_loan_closures_total",
				Help: "Total loans closed.",
			},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "icl_errors_total",
				Help: "Total failed operations.",
			},
			[]string{"operation"},
		),
	}
}

// ObserveCalculation records how long an engine call took.
func (m *Metrics) ObserveCalculation(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.calculationDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveTimeline records a timeline's row count.
func (m *Metrics) ObserveTimeline(entries int) {
	if m == nil {
		return
	}
	m.timelineEntries.Observe(float64(entries))
}

// SetAccountsByStatus replaces the status gauge with counts.
func (m *Metrics) SetAccountsByStatus(counts map[string]int) {
	if m == nil {
		return
	}
	m.accountsByStatus.Reset()
	for status, n := range counts {
		m.accountsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

// IncrClosure counts a closed loan.
func (m *Metrics) IncrClosure() {
	if m == nil {
		return
	}
	m.loanClosures.Inc()
}

// IncrError counts a failed operation.
func (m *Metrics) IncrError(operation string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(operation).Inc()
}
