package optimizer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// optimizationDuration tracks the time taken for allocation runs.
	optimizationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mix_optimizer_run_duration_seconds",
		Help:    "Time taken for an allocation run by mode",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"mode"}) // mode: single_type, multi_type_solver, multi_type_greedy

	// optimizationErrors tracks allocation run errors.
	optimizationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mix_optimizer_run_errors_total",
		Help: "Total number of allocation run errors by mode",
	}, []string{"mode"})

	// productCount tracks the distribution of run sizes.
	productCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mix_optimizer_products_count",
		Help:    "Number of products in allocation runs",
		Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000},
	})

	// groupCount tracks the number of capacity groups per run.
	groupCount = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mix_optimizer_capacity_groups_count",
		Help:    "Number of capacity groups touched by allocation runs",
		Buckets: []float64{1, 2, 5, 10, 20, 50},
	})

	// solverFallbacks counts groups that fell back to the greedy waterfall.
	solverFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mix_optimizer_solver_fallbacks_total",
		Help: "Total number of groups resolved by the greedy waterfall after solver non-convergence",
	})

	// capacityViolations counts groups finishing outside their bounds.
	capacityViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mix_optimizer_capacity_violations_total",
		Help: "Total number of groups finishing below minimum or above maximum capacity",
	}, []string{"kind"}) // kind: below_minimum, above_maximum

	// rescaleCorrections counts post-solve proportional rescales.
	rescaleCorrections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mix_optimizer_rescale_corrections_total",
		Help: "Total number of groups whose volumes were rescaled to respect maximum capacity",
	})

	// improvementPct tracks the profit improvement over the demand baseline.
	improvementPct = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "mix_optimizer_profit_improvement_pct",
		Help:    "Profit improvement over the demand baseline in percent",
		Buckets: []float64{-10, 0, 1, 2, 5, 10, 20, 50},
	})
)

// MetricsRecorder provides methods to record optimizer metrics.
type MetricsRecorder struct{}

// NewMetricsRecorder creates a new metrics recorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{}
}

// RecordRun records the duration and outcome of an allocation run.
func (m *MetricsRecorder) RecordRun(mode string, duration time.Duration, success bool) {
	optimizationDuration.WithLabelValues(mode).Observe(duration.Seconds())
	if !success {
		optimizationErrors.WithLabelValues(mode).Inc()
	}
}

// RecordRunSize records the number of products and groups in a run.
func (m *MetricsRecorder) RecordRunSize(products, groups int) {
	productCount.Observe(float64(products))
	groupCount.Observe(float64(groups))
}

// RecordSolverFallback records a group resolved by the greedy waterfall.
func (m *MetricsRecorder) RecordSolverFallback() {
	solverFallbacks.Inc()
}

// RecordCapacityViolation records a group finishing outside its bounds.
func (m *MetricsRecorder) RecordCapacityViolation(status GroupStatus) {
	switch status {
	case StatusBelowMinimum:
		capacityViolations.WithLabelValues("below_minimum").Inc()
	case StatusAboveMaximum:
		capacityViolations.WithLabelValues("above_maximum").Inc()
	}
}

// RecordRescaleCorrection records a post-solve proportional rescale.
func (m *MetricsRecorder) RecordRescaleCorrection() {
	rescaleCorrections.Inc()
}

// RecordImprovement records the profit improvement of a completed run.
func (m *MetricsRecorder) RecordImprovement(pct float64) {
	improvementPct.Observe(pct)
}
