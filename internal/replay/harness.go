// Package replay drives recorded answers back through the selection and TD
// update pipeline offline, for regression fixtures and post-hoc inspection of
// a logged session.
package replay

import (
	"context"
	"fmt"

	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
	"github.com/danielpatrickdp/adaptive-tutor/internal/logging"
	"github.com/danielpatrickdp/adaptive-tutor/internal/orchestrator"
)

// #region types
// Answer is one recorded response. Topic and Difficulty pin what was served;
// when empty the topic is sampled and the sampled difficulty used.
type Answer struct {
	TurnID         string        `json:"turn_id" yaml:"turn_id"`
	Topic          learner.Topic `json:"topic,omitempty" yaml:"topic,omitempty"`
	Difficulty     float64       `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
	IsCorrect      bool          `json:"is_correct" yaml:"is_correct"`
	ResponseTimeMs float64       `json:"response_time_ms" yaml:"response_time_ms"`
}

// Result captures what the pipeline did with one answer.
type Result struct {
	TurnID     string
	Topic      learner.Topic
	Sampled    bool
	Degraded   bool
	Difficulty float64
	Action     string // logging.Decision* value
	Reason     string
	Reward     float64
	TDError    float64
	State      learner.State // learner state after this answer
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	TotalTurns    int
	Commits       int
	GateRejects   int
	EvalRollbacks int
	Failures      int
	Degraded      int
	TopicCounts   map[learner.Topic]int
	FinalState    learner.State
}

// #endregion types

// #region replay
// Replay applies each answer in order: select (or pin) the topic, apply the
// learner transition, then run the TD update synchronously. Estimator
// failures are recorded per turn; only a malformed start state or an unknown
// pinned topic stops the run.
func Replay(ctx context.Context, o *orchestrator.Orchestrator, start learner.State, answers []Answer, th learner.Thresholds) ([]Result, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}
	current := start.Clone()
	results := make([]Result, 0, len(answers))

	for _, a := range answers {
		r := Result{TurnID: a.TurnID}

		sel, err := o.SelectTopic(ctx, current)
		if err != nil {
			return results, fmt.Errorf("turn %s: %w", a.TurnID, err)
		}
		r.Degraded = sel.Degraded
		r.Topic, r.Difficulty, r.Sampled = sel.Topic, sel.Difficulty, true
		idx := sel.TopicIndex
		if a.Topic != "" {
			idx = learner.IndexOf(a.Topic)
			if idx < 0 {
				return results, fmt.Errorf("turn %s: unknown topic %q", a.TurnID, a.Topic)
			}
			r.Topic, r.Sampled = a.Topic, false
		}
		if a.Difficulty > 0 {
			r.Difficulty = a.Difficulty
		}

		outcome := learner.Outcome{
			TopicIndex:     idx,
			IsCorrect:      a.IsCorrect,
			ResponseTimeMs: a.ResponseTimeMs,
			Difficulty:     r.Difficulty,
		}
		next := learner.Apply(current, outcome, th)

		report, _ := o.RecordOutcome(ctx, current, next, outcome)
		r.Action = report.Decision
		r.Reason = report.Reason
		r.Reward = report.TD.Reward
		r.TDError = report.TD.TDError
		r.State = next

		current = next
		results = append(results, r)
	}
	return results, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result, finalState learner.State) Summary {
	s := Summary{
		TotalTurns:  len(results),
		TopicCounts: make(map[learner.Topic]int),
		FinalState:  finalState,
	}
	for _, r := range results {
		s.TopicCounts[r.Topic]++
		if r.Degraded {
			s.Degraded++
		}
		switch r.Action {
		case logging.DecisionApplied:
			s.Commits++
		case logging.DecisionRejected:
			s.GateRejects++
		case logging.DecisionRolledBack:
			s.EvalRollbacks++
		case logging.DecisionFailed:
			s.Failures++
		}
	}
	return s
}

// #endregion replay

// #region from-log
// FromOutcomes turns outcome_log rows into pinned answers.
func FromOutcomes(entries []logging.OutcomeEntry) []Answer {
	out := make([]Answer, len(entries))
	for i, e := range entries {
		out[i] = Answer{
			TurnID:         fmt.Sprintf("log-%d", e.ID),
			Topic:          learner.Topic(e.Topic),
			Difficulty:     e.Difficulty,
			IsCorrect:      e.IsCorrect,
			ResponseTimeMs: e.ResponseTimeMs,
		}
	}
	return out
}

// #endregion from-log
