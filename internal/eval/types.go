package eval

// #region eval-config
// EvalConfig holds thresholds for post-update validation.
type EvalConfig struct {
	MaxScoreMagnitude float64 `yaml:"max_score_magnitude"` // fail if any |score| exceeds this; 0 disables
}

// DefaultEvalConfig returns the tutor defaults.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxScoreMagnitude: 1e4,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of post-update validation.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// #endregion eval-result
