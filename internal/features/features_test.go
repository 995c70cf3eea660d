package features

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
)

func TestEncodeOrder(t *testing.T) {
	s := learner.State{MasteryLevel: 3, Streak: 2, TotalQuestions: 7, CorrectAnswers: 5}
	v, err := Encode(s, 1.25, 4200)
	require.NoError(t, err)
	assert.Equal(t, Vector{3, 2, 7, 5, 4200, 1.25}, v)
}

func TestEncodeDefaultsAverageToZero(t *testing.T) {
	v, err := EncodeState(learner.New(), 1)
	require.NoError(t, err)
	assert.Equal(t, Vector{1, 0, 0, 0, 0, 1}, v)
}

func TestEncodeDeterministic(t *testing.T) {
	s := learner.State{MasteryLevel: 4, Streak: 1, TotalQuestions: 9, CorrectAnswers: 6, AverageResponseTimeMs: 3100}
	a, err := EncodeState(s, 1.4)
	require.NoError(t, err)
	b, err := EncodeState(s, 1.4)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a.Slice(), Arity)
}

func TestEncodeRejectsInvalidState(t *testing.T) {
	_, err := Encode(learner.State{MasteryLevel: 1, TotalQuestions: 1, CorrectAnswers: 2}, 1, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, learner.ErrInvalidState))

	_, err = Encode(learner.New(), 1, -1)
	assert.True(t, errors.Is(err, learner.ErrInvalidState))
}

func TestFromSlice(t *testing.T) {
	v, err := FromSlice([]float64{1, 2, 3, 4, 5, 6})
	require.NoError(t, err)
	assert.Equal(t, 6.0, v[SlotDifficulty])

	_, err = FromSlice([]float64{1, 2})
	assert.Error(t, err)
}
