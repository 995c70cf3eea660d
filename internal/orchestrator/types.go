package orchestrator

// #region imports
import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/adaptive-tutor/internal/eval"
	"github.com/danielpatrickdp/adaptive-tutor/internal/gate"
	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
	"github.com/danielpatrickdp/adaptive-tutor/internal/questionbank"
	"github.com/danielpatrickdp/adaptive-tutor/internal/sampler"
	"github.com/danielpatrickdp/adaptive-tutor/internal/update"
)

// #endregion

// #region errors

// ErrNoQuestionAvailable matches any NoQuestionAvailableError.
var ErrNoQuestionAvailable = errors.New("no question available")

// ErrSessionState is returned when a session operation does not fit the
// current phase.
var ErrSessionState = errors.New("invalid session state")

// NoQuestionAvailableError reports that the sampled topic had no item.
type NoQuestionAvailableError struct {
	Topic learner.Topic
	Err   error
}

func (e *NoQuestionAvailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no question available for topic %s: %v", e.Topic, e.Err)
	}
	return fmt.Sprintf("no question available for topic %s", e.Topic)
}

func (e *NoQuestionAvailableError) Is(target error) bool {
	return target == ErrNoQuestionAvailable
}

func (e *NoQuestionAvailableError) Unwrap() error {
	return e.Err
}

// #endregion

// #region selection

// Selection is the result of one select cycle.
type Selection struct {
	TopicIndex   int
	Topic        learner.Topic
	Difficulty   float64
	Scores       []float64 // nil when degraded
	Distribution sampler.Distribution
	Degraded     bool // estimator unavailable, distribution is uniform
	Question     questionbank.Question
}

// #endregion

// #region update-report

// UpdateReport describes what the update pipeline did with one outcome.
type UpdateReport struct {
	SessionID string
	Topic     learner.Topic
	Outcome   learner.Outcome
	Decision  string // logging.Decision* value
	Reason    string
	TD        update.TDResult
	Gate      gate.GateDecision
	Eval      eval.EvalResult
	Err       error
}

// #endregion

// #region question-source

// QuestionSource resolves a sampled topic to a concrete item.
type QuestionSource interface {
	PickOne(t learner.Topic, src questionbank.Source) (questionbank.Question, error)
}

// #endregion
