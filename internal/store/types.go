package store

import (
	"errors"
	"time"

	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
)

// ErrNotFound is returned when a version or session does not exist.
var ErrNotFound = errors.New("not found")

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region shape
// Shape records the layer sizes a parameter blob was produced for.
type Shape struct {
	Inputs  int `json:"inputs"`
	Hidden  int `json:"hidden"`
	Outputs int `json:"outputs"`
}

// #endregion shape

// #region estimator-version
// EstimatorVersion is a persisted snapshot of estimator parameters.
type EstimatorVersion struct {
	VersionID   string
	ParentID    string
	Params      []byte
	Shape       Shape
	CreatedAt   time.Time
	MetricsJSON string
}

// #endregion estimator-version

// #region session-record
// SessionRecord is the persisted learner state of one session.
type SessionRecord struct {
	SessionID string
	State     learner.State
	CreatedAt time.Time
	UpdatedAt time.Time
}

// #endregion session-record
