package metrics

import (
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var totalDecisions atomic.Int64

var (
	RoundingDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rounding_decisions_total",
		Help: "Total rounding decisions, labeled by policy and selected candidate",
	}, []string{"policy", "choice"})

	ElementsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "array_elements_processed_total",
		Help: "Total array elements processed per elementwise operation",
	}, []string{"operation"})

	ResidualMagnitude = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "residual_magnitude",
		Help:    "Absolute rounding residual of additions",
		Buckets: prometheus.ExponentialBuckets(1e-12, 10, 14),
	})

	ResidualUlpRatio = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "residual_ulp_ratio",
		Help:    "Absolute residual over the candidate interval width (0 to 0.5 for round-to-nearest results)",
		Buckets: []float64{0.05, 0.1, 0.15, 0.2, 0.25, 0.3, 0.35, 0.4, 0.45, 0.5},
	})

	ZeroResiduals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zero_residuals_total",
		Help: "Count of additions whose rounded result was already exact",
	})

	SaturatedCandidates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "saturated_candidates_total",
		Help: "Count of misrounded candidates that saturated to an infinity",
	})

	MixedPrecisionAdds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mixed_precision_adds_total",
		Help: "Total mixed-precision additions",
	})

	FusedDivideAdds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fused_divide_adds_total",
		Help: "Total fused divide-add operations",
	})

	HashDraws = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hash_draws_total",
		Help: "Pseudo-random draws produced by the deterministic decision source",
	})

	TrialDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "accumulation_trial_duration_seconds",
		Help:    "Wall-clock duration of accumulation trials",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
	})

	ValidationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_errors_total",
		Help: "Total number of validation errors",
	}, []string{"operation", "error_type"})

	NonFiniteValues = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "non_finite_values_total",
		Help: "NaN and Inf elements observed during debug scans",
	}, []string{"kind", "class"})

	AccumulationSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accumulation_steps_total",
		Help: "Accumulation steps performed per policy",
	}, []string{"policy"})

	AccumulationBias = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "accumulation_bias",
		Help: "Signed deviation of a running accumulation from its analytic sum",
	}, []string{"policy"})
)

// RecordDecisions counts one batch of rounding decisions: how many elements
// kept the round-to-nearest result and how many took the misrounded
// candidate.
func RecordDecisions(policy string, resultCount, alternativeCount int) {
	if resultCount > 0 {
		RoundingDecisions.WithLabelValues(policy, "result").Add(float64(resultCount))
	}
	if alternativeCount > 0 {
		RoundingDecisions.WithLabelValues(policy, "alternative").Add(float64(alternativeCount))
	}
	totalDecisions.Add(int64(resultCount + alternativeCount))
}

// TotalDecisions returns the process-lifetime decision count, for health
// reporting.
func TotalDecisions() int64 {
	return totalDecisions.Load()
}

func RecordElements(operation string, n int) {
	ElementsProcessed.WithLabelValues(operation).Add(float64(n))
}

func RecordValidationError(operation, errorType string) {
	ValidationErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordNonFinite counts NaN and Inf elements seen in an array scan.
func RecordNonFinite(kind string, nanCount, infCount int) {
	if nanCount > 0 {
		NonFiniteValues.WithLabelValues(kind, "nan").Add(float64(nanCount))
	}
	if infCount > 0 {
		NonFiniteValues.WithLabelValues(kind, "inf").Add(float64(infCount))
	}
}

// ObserveResidual feeds the residual histograms. ratio is |residual| divided
// by the candidate interval width; callers pass 0 when the interval is
// degenerate or infinite.
func ObserveResidual(absResidual, ratio float64) {
	ResidualMagnitude.Observe(absResidual)
	ResidualUlpRatio.Observe(ratio)
}

func RecordZeroResiduals(n int) {
	ZeroResiduals.Add(float64(n))
}

func RecordSaturation(n int) {
	SaturatedCandidates.Add(float64(n))
}

func RecordMixedPrecisionAdd() {
	MixedPrecisionAdds.Inc()
}

func RecordFusedDivideAdd() {
	FusedDivideAdds.Inc()
}

func RecordHashDraws(n int) {
	HashDraws.Add(float64(n))
}

func RecordTrialDuration(seconds float64) {
	TrialDuration.Observe(seconds)
}

// RecordAccumulation tracks the progress of a long accumulation experiment.
func RecordAccumulation(policy string, steps int) {
	AccumulationSteps.WithLabelValues(policy).Add(float64(steps))
}

// RecordAccumulationBias publishes the signed distance between a running
// total and its analytic value.
func RecordAccumulationBias(policy string, bias float64) {
	AccumulationBias.WithLabelValues(policy).Set(bias)
}
