package estimator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/danielpatrickdp/adaptive-tutor/internal/features"
)

// #region guarded
// GuardedOptions configures a Guarded handle.
type GuardedOptions struct {
	Timeout time.Duration // per-call deadline; 0 = caller's context only
	Outputs int           // expected score count; 0 = unchecked
}

// Guarded is the process-wide handle around one estimator instance. Predict
// calls share a read lock; Update and Exclusive hold the write lock, so
// read-modify-write cycles on the parameters never interleave.
type Guarded struct {
	mu    sync.RWMutex
	inner ValueEstimator
	opts  GuardedOptions
}

// NewGuarded wraps inner. The wrapped estimator must not be used directly
// afterwards.
func NewGuarded(inner ValueEstimator, opts GuardedOptions) *Guarded {
	return &Guarded{inner: inner, opts: opts}
}

// Predict returns scores for v under the shared lock.
func (g *Guarded) Predict(ctx context.Context, v features.Vector) ([]float64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return predict(ctx, g.inner, v, g.opts)
}

// Update applies one parameter update under the exclusive lock.
func (g *Guarded) Update(ctx context.Context, v features.Vector, target []float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return update(ctx, g.inner, v, target, g.opts)
}

// Exclusive runs fn while holding the write lock. The estimator passed to fn
// applies the same timeout and error mapping but takes no further locks.
func (g *Guarded) Exclusive(ctx context.Context, fn func(ctx context.Context, e ValueEstimator) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(ctx, unlocked{inner: g.inner, opts: g.opts})
}

// Snapshot captures the parameters if the wrapped estimator supports it.
func (g *Guarded) Snapshot() ([]float64, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	s, ok := AsSnapshotter(g.inner)
	if !ok {
		return nil, false
	}
	return s.Snapshot(), true
}

// Restore replaces the parameters under the exclusive lock.
func (g *Guarded) Restore(params []float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := AsSnapshotter(g.inner)
	if !ok {
		return fmt.Errorf("estimator %T does not support snapshots", g.inner)
	}
	return s.Restore(params)
}

// Inner returns the wrapped estimator for callers that need its concrete type,
// for example to marshal parameters. Callers must not mutate it.
func (g *Guarded) Inner() ValueEstimator {
	return g.inner
}

// #endregion guarded

// #region unlocked
// unlocked is the view handed to Exclusive callbacks.
type unlocked struct {
	inner ValueEstimator
	opts  GuardedOptions
}

func (u unlocked) Predict(ctx context.Context, v features.Vector) ([]float64, error) {
	return predict(ctx, u.inner, v, u.opts)
}

func (u unlocked) Update(ctx context.Context, v features.Vector, target []float64) error {
	return update(ctx, u.inner, v, target, u.opts)
}

func (u unlocked) Snapshot() []float64 {
	if s, ok := AsSnapshotter(u.inner); ok {
		return s.Snapshot()
	}
	return nil
}

func (u unlocked) Restore(params []float64) error {
	s, ok := AsSnapshotter(u.inner)
	if !ok {
		return fmt.Errorf("estimator %T does not support snapshots", u.inner)
	}
	return s.Restore(params)
}

// #endregion unlocked

// #region calls
func predict(ctx context.Context, e ValueEstimator, v features.Vector, opts GuardedOptions) ([]float64, error) {
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	scores, err := e.Predict(ctx, v)
	if err != nil {
		return nil, unavailable("predict", err)
	}
	if opts.Outputs > 0 && len(scores) != opts.Outputs {
		return nil, fmt.Errorf("%w: predict returned %d scores, want %d", ErrUnavailable, len(scores), opts.Outputs)
	}
	return scores, nil
}

func update(ctx context.Context, e ValueEstimator, v features.Vector, target []float64, opts GuardedOptions) error {
	if opts.Outputs > 0 && len(target) != opts.Outputs {
		return fmt.Errorf("update target has %d scores, want %d", len(target), opts.Outputs)
	}
	ctx, cancel := withTimeout(ctx, opts.Timeout)
	defer cancel()

	if err := e.Update(ctx, v, target); err != nil {
		return unavailable("update", err)
	}
	return nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}

func unavailable(op string, err error) error {
	if errors.Is(err, ErrUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

// #endregion calls
