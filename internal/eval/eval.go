package eval

import (
	"fmt"
	"math"
)

// #region eval-harness
// EvalHarness validates estimator output after a parameter update.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks the scores predicted after an update.
func (h *EvalHarness) Run(scores []float64) EvalResult {
	var metrics []EvalMetric
	var failReasons []string

	// 1. Every score must be finite
	nonFinite := 0
	for _, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			nonFinite++
		}
	}
	metrics = append(metrics, EvalMetric{
		Name:  "non_finite_scores",
		Value: float64(nonFinite),
		Pass:  nonFinite == 0,
	})
	if nonFinite > 0 {
		failReasons = append(failReasons, fmt.Sprintf("%d non-finite scores", nonFinite))
	}

	// 2. Magnitude bound on the largest finite score
	var maxAbs float64
	for _, s := range scores {
		if a := math.Abs(s); !math.IsNaN(a) && !math.IsInf(a, 0) && a > maxAbs {
			maxAbs = a
		}
	}
	magPass := h.config.MaxScoreMagnitude <= 0 || maxAbs <= h.config.MaxScoreMagnitude
	metrics = append(metrics, EvalMetric{
		Name:  "max_abs_score",
		Value: maxAbs,
		Pass:  magPass,
	})
	if !magPass {
		failReasons = append(failReasons, fmt.Sprintf("max |score| %.4f exceeds %.4f", maxAbs, h.config.MaxScoreMagnitude))
	}

	if len(scores) == 0 {
		failReasons = append(failReasons, "no scores")
	}

	reason := "all checks passed"
	if len(failReasons) > 0 {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  len(failReasons) == 0,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness
