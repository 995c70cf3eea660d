package orchestrator

// #region imports
import (
	"sort"

	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
)

// #endregion

// #region action

// Action is a coaching recommendation derived from the learner state.
type Action string

const (
	ActionIncreaseDifficulty Action = "increase_difficulty"
	ActionFocusWeakTopics    Action = "focus_weak_topics"
	ActionMaintainLevel      Action = "maintain_level"
	ActionDecreaseDifficulty Action = "decrease_difficulty"
)

var actionMessages = map[Action]string{
	ActionIncreaseDifficulty: "increase difficulty: high performance detected",
	ActionFocusWeakTopics:    "target weak areas for optimal learning",
	ActionMaintainLevel:      "maintain the current difficulty level",
	ActionDecreaseDifficulty: "reduce difficulty to build confidence",
}

// #endregion

// #region advice

// ActionValue is the heuristic value of one action for a state.
type ActionValue struct {
	Action     Action
	Value      float64
	Confidence float64
}

// Advice is the ranked action list and the best action's message.
type Advice struct {
	Best    Action
	Message string
	Ranked  []ActionValue
}

// Advise scores each action with fixed rules and ranks them by value. Ties
// keep declaration order.
func Advise(s learner.State) Advice {
	acc := s.Accuracy()
	ranked := []ActionValue{
		{ActionIncreaseDifficulty, pick(acc > 0.8, 0.9, 0.2), 0.85},
		{ActionFocusWeakTopics, pick(len(s.WeakTopics) > 0, 0.95, 0.1), 0.92},
		{ActionMaintainLevel, pick(s.Streak > 3, 0.7, 0.3), 0.75},
		{ActionDecreaseDifficulty, pick(acc < 0.5, 0.8, 0.1), 0.88},
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Value > ranked[j].Value })
	return Advice{
		Best:    ranked[0].Action,
		Message: actionMessages[ranked[0].Action],
		Ranked:  ranked,
	}
}

// ApplyRecommendation moves mastery one step for the difficulty actions and
// leaves the state unchanged otherwise.
func ApplyRecommendation(s learner.State, a Action) learner.State {
	out := s.Clone()
	switch a {
	case ActionIncreaseDifficulty:
		out.MasteryLevel = min(out.MasteryLevel+1, learner.MaxMastery)
	case ActionDecreaseDifficulty:
		out.MasteryLevel = max(out.MasteryLevel-1, learner.MinMastery)
	}
	return out
}

func pick(cond bool, yes, no float64) float64 {
	if cond {
		return yes
	}
	return no
}

// #endregion
