package orchestrator

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/adaptive-tutor/internal/estimator"
	"github.com/danielpatrickdp/adaptive-tutor/internal/features"
	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
	"github.com/danielpatrickdp/adaptive-tutor/internal/questionbank"
)

// seqSource replays a fixed list of draws, cycling when exhausted.
type seqSource struct {
	mu   sync.Mutex
	vals []float64
	i    int
}

func (s *seqSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[s.i%len(s.vals)]
	s.i++
	return v
}

type fakeEstimator struct {
	mu         sync.Mutex
	predict    func(v features.Vector) []float64
	offset     float64
	predictErr error
	updateErr  error
	blowUp     bool // updates push every score to 1e6
	delay      time.Duration

	updates     []fakeUpdate
	inflight    atomic.Int32
	maxInflight atomic.Int32
}

type fakeUpdate struct {
	v      features.Vector
	target []float64
}

func (f *fakeEstimator) Predict(_ context.Context, v features.Vector) ([]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.predictErr != nil {
		return nil, f.predictErr
	}
	var base []float64
	if f.predict != nil {
		base = f.predict(v)
	} else {
		base = make([]float64, learner.TopicCount)
	}
	out := make([]float64, len(base))
	for i, x := range base {
		out[i] = x + f.offset
	}
	return out, nil
}

func (f *fakeEstimator) Update(_ context.Context, v features.Vector, target []float64) error {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		m := f.maxInflight.Load()
		if n <= m || f.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, fakeUpdate{v: v, target: append([]float64(nil), target...)})
	if f.blowUp {
		f.offset = 1e6
	}
	return nil
}

func (f *fakeEstimator) updateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.updates)
}

// snapEstimator adds snapshot support over the offset parameter.
type snapEstimator struct {
	*fakeEstimator
	restores int
}

func (s *snapEstimator) Snapshot() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []float64{s.offset}
}

func (s *snapEstimator) Restore(p []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offset = p[0]
	s.restores++
	return nil
}

func guarded(e estimator.ValueEstimator) *estimator.Guarded {
	return estimator.NewGuarded(e, estimator.GuardedOptions{Outputs: learner.TopicCount})
}

// fullBank has one item per topic whose correct option is "A".
func fullBank(t *testing.T) *questionbank.Bank {
	t.Helper()
	b, err := questionbank.New(0)
	require.NoError(t, err)
	for _, topic := range learner.Topics {
		b.Add(questionbank.Question{
			ID:      "q-" + string(topic),
			Topic:   topic,
			Prompt:  "practice " + string(topic),
			Options: []string{"A) 3", "B) 4"},
			Answer:  "A",
		})
	}
	return b
}
