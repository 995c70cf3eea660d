// Package estimator defines the value-estimator contract consumed by the
// orchestrator, the exclusive-access handle that serializes parameter
// updates, and a default dense-network implementation.
package estimator

import (
	"context"
	"errors"

	"github.com/danielpatrickdp/adaptive-tutor/internal/features"
)

// ErrUnavailable marks a predict or update call that failed or timed out.
var ErrUnavailable = errors.New("estimator unavailable")

// #region contract
// ValueEstimator maps a feature vector to one score per topic and can be
// nudged toward a target score vector.
type ValueEstimator interface {
	Predict(ctx context.Context, v features.Vector) ([]float64, error)
	Update(ctx context.Context, v features.Vector, target []float64) error
}

// Snapshotter is implemented by estimators whose parameters can be captured
// and restored, used for rollback and persistence.
type Snapshotter interface {
	Snapshot() []float64
	Restore(params []float64) error
}

// AsSnapshotter reports whether e supports snapshots.
func AsSnapshotter(e ValueEstimator) (Snapshotter, bool) {
	s, ok := e.(Snapshotter)
	return s, ok
}

// #endregion contract

// Source supplies uniform reals in [0,1).
type Source interface {
	Float64() float64
}
