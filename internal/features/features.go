// Package features encodes learner state into the estimator's input vector.
package features

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
)

// #region vector
// Arity is the fixed length of every feature vector.
const Arity = 6

// Slot positions within a Vector.
const (
	SlotMastery = iota
	SlotStreak
	SlotTotalQuestions
	SlotCorrectAnswers
	SlotAverageResponseTime
	SlotDifficulty
)

// Vector is the estimator input: mastery, streak, total, correct,
// average response time (ms, or 0), difficulty.
type Vector [Arity]float64

// Slice returns a copy of v as a slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, Arity)
	copy(out, v[:])
	return out
}

// FromSlice builds a Vector, rejecting any other length.
func FromSlice(xs []float64) (Vector, error) {
	var v Vector
	if len(xs) != Arity {
		return v, fmt.Errorf("feature vector length %d, want %d", len(xs), Arity)
	}
	copy(v[:], xs)
	return v, nil
}

// #endregion vector

// #region encode
// Encode converts a learner state into a feature vector. It is pure and fails
// only for a state that breaks the counter invariants.
func Encode(s learner.State, difficulty, averageResponseTimeMs float64) (Vector, error) {
	if err := s.Validate(); err != nil {
		return Vector{}, err
	}
	if averageResponseTimeMs < 0 {
		return Vector{}, fmt.Errorf("%w: negative average response time %.2f",
			learner.ErrInvalidState, averageResponseTimeMs)
	}
	return Vector{
		SlotMastery:             float64(s.MasteryLevel),
		SlotStreak:              float64(s.Streak),
		SlotTotalQuestions:      float64(s.TotalQuestions),
		SlotCorrectAnswers:      float64(s.CorrectAnswers),
		SlotAverageResponseTime: averageResponseTimeMs,
		SlotDifficulty:          difficulty,
	}, nil
}

// EncodeState is Encode using the state's own running average response time.
func EncodeState(s learner.State, difficulty float64) (Vector, error) {
	return Encode(s, difficulty, s.AverageResponseTimeMs)
}

// #endregion encode
