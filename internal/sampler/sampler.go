// Package sampler turns estimator scores into a topic distribution and draws
// from it.
package sampler

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// DefaultDampingRate is the exponential damping applied to scores.
const DefaultDampingRate = 0.1

// ErrInvalidScores is returned for empty or non-finite score vectors.
var ErrInvalidScores = errors.New("invalid score vector")

// Distribution is a probability vector over topics.
type Distribution []float64

// #region to-distribution
// ToDistribution computes p_i = exp(-rate*s_i) / sum_j exp(-rate*s_j).
//
// Lower scores get more weight, so topics the estimator rates poorly are
// favored. Exponents are shifted by their maximum before exponentiation and
// floored at the smallest positive float, so every entry stays strictly
// positive for any finite input. Scores whose damped exponent overflows are
// rejected with ErrInvalidScores.
func ToDistribution(scores []float64, rate float64) (Distribution, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrInvalidScores)
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, fmt.Errorf("damping rate %v is not finite", rate)
	}
	for i, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return nil, fmt.Errorf("%w: score %d is %v", ErrInvalidScores, i, s)
		}
	}

	w := make([]float64, len(scores))
	copy(w, scores)
	floats.Scale(-rate, w)
	for i, x := range w {
		if math.IsInf(x, 0) {
			return nil, fmt.Errorf("%w: score %d overflows at rate %v", ErrInvalidScores, i, rate)
		}
	}
	floats.AddConst(-floats.Max(w), w)
	for i, x := range w {
		w[i] = math.Exp(x)
		if w[i] == 0 {
			w[i] = math.SmallestNonzeroFloat64
		}
	}
	floats.Scale(1/floats.Sum(w), w)
	return Distribution(w), nil
}

// Uniform returns the equal-weight distribution over n topics.
func Uniform(n int) Distribution {
	if n <= 0 {
		return nil
	}
	d := make(Distribution, n)
	for i := range d {
		d[i] = 1 / float64(n)
	}
	return d
}

// #endregion to-distribution

// #region sample
// Sample returns the smallest index whose cumulative probability exceeds u,
// for u in [0,1). Round-off that leaves u above the final cumulative sum falls
// back to the last index.
func Sample(d Distribution, u float64) int {
	if len(d) == 0 {
		return -1
	}
	var acc float64
	for i, p := range d {
		acc += p
		if u < acc {
			return i
		}
	}
	return len(d) - 1
}

// #endregion sample
