package update

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// #region reward
// Reward scores an answer. Correct answers earn 1 plus a speed bonus that
// decays linearly to 0 at the latency window; incorrect answers earn the
// fixed penalty.
func Reward(isCorrect bool, responseTimeMs float64, cfg TDConfig) float64 {
	if !isCorrect {
		return cfg.IncorrectPenalty
	}
	window := cfg.LatencyWindowMs
	if window <= 0 {
		return 1
	}
	return 1 + math.Max(0, (window-responseTimeMs)/window)
}

// #endregion reward

// #region td-target
// TDTarget copies current and replaces the acted-upon coordinate with
// reward + discount*max(next). All other coordinates are left bit-identical.
func TDTarget(current, next []float64, topicIndex int, reward, discount float64) ([]float64, error) {
	if topicIndex < 0 || topicIndex >= len(current) {
		return nil, fmt.Errorf("topic index %d out of range [0,%d)", topicIndex, len(current))
	}
	if len(next) == 0 {
		return nil, fmt.Errorf("empty next-state scores")
	}
	target := make([]float64, len(current))
	copy(target, current)
	target[topicIndex] = reward + discount*floats.Max(next)
	return target, nil
}

// #endregion td-target

// #region compute
// Compute is the pure single-step TD(0) update for one outcome: reward from
// correctness and latency, then the target vector for the estimator.
func Compute(current, next []float64, topicIndex int, isCorrect bool, responseTimeMs float64, cfg TDConfig) (TDResult, error) {
	r := Reward(isCorrect, responseTimeMs, cfg)
	target, err := TDTarget(current, next, topicIndex, r, cfg.Discount)
	if err != nil {
		return TDResult{}, err
	}
	return TDResult{
		Reward:     r,
		BestNext:   floats.Max(next),
		Target:     target,
		TopicIndex: topicIndex,
		TDError:    target[topicIndex] - current[topicIndex],
	}, nil
}

// #endregion compute
