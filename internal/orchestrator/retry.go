package orchestrator

// #region imports
import (
	"context"
	"errors"

	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
)

// #endregion

// #region constants

const maxSelectAttempts = 3 // 1 draw + 2 redraws

// #endregion

// #region select-with-retry

// selectWithRetry redraws a topic when the sampled one has no item. It stops
// after maxSelectAttempts and returns the last NoQuestionAvailableError, so a
// systematically empty bank cannot loop.
func selectWithRetry(ctx context.Context, o *Orchestrator, state learner.State) (Selection, int, error) {
	var (
		sel Selection
		err error
	)
	for attempt := 1; attempt <= maxSelectAttempts; attempt++ {
		sel, err = o.SelectNext(ctx, state)
		if err == nil || !errors.Is(err, ErrNoQuestionAvailable) {
			return sel, attempt, err
		}
		o.log.Debug("redrawing topic", "topic", sel.Topic, "attempt", attempt)
	}
	return sel, maxSelectAttempts, err
}

// #endregion
