package learner

import (
	"errors"
	"sort"
)

// #region topic
// Topic identifies one of the fixed subject categories shared with the question bank.
type Topic string

const (
	TopicAlgebra      Topic = "algebra"
	TopicGeometry     Topic = "geometry"
	TopicCalculus     Topic = "calculus"
	TopicStatistics   Topic = "statistics"
	TopicTrigonometry Topic = "trigonometry"
)

// Topics is the closed enumeration in estimator output order.
var Topics = []Topic{
	TopicAlgebra,
	TopicGeometry,
	TopicCalculus,
	TopicStatistics,
	TopicTrigonometry,
}

// TopicCount is the length of every score vector and distribution.
var TopicCount = len(Topics)

// TopicAt returns the topic at index i of the enumeration.
func TopicAt(i int) (Topic, bool) {
	if i < 0 || i >= len(Topics) {
		return "", false
	}
	return Topics[i], true
}

// IndexOf returns the enumeration index of t, or -1.
func IndexOf(t Topic) int {
	for i, x := range Topics {
		if x == t {
			return i
		}
	}
	return -1
}

// #endregion topic

// #region errors
// ErrInvalidState marks a learner state that violates the counter invariants.
var ErrInvalidState = errors.New("invalid learner state")

// #endregion errors

// #region state
// MinMastery and MaxMastery bound MasteryLevel.
const (
	MinMastery = 1
	MaxMastery = 10
)

// TopicStats holds per-topic answer counters.
type TopicStats struct {
	Attempts int `json:"attempts" yaml:"attempts"`
	Correct  int `json:"correct" yaml:"correct"`
}

// Accuracy returns Correct/Attempts, or 0 with no attempts.
func (s TopicStats) Accuracy() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Attempts)
}

// State is a snapshot of one learner's progress within a session.
// Values are treated as immutable; Apply returns a new State.
type State struct {
	MasteryLevel          int                  `json:"mastery_level" yaml:"mastery_level"`
	Streak                int                  `json:"streak" yaml:"streak"`
	TotalQuestions        int                  `json:"total_questions" yaml:"total_questions"`
	CorrectAnswers        int                  `json:"correct_answers" yaml:"correct_answers"`
	AverageResponseTimeMs float64              `json:"average_response_time_ms" yaml:"average_response_time_ms"`
	WeakTopics            []Topic              `json:"weak_topics" yaml:"weak_topics"`
	StrongTopics          []Topic              `json:"strong_topics" yaml:"strong_topics"`
	TopicStats            map[Topic]TopicStats `json:"topic_stats,omitempty" yaml:"topic_stats,omitempty"`
}

// New returns the session-start state.
func New() State {
	return State{MasteryLevel: MinMastery}
}

// Accuracy returns the overall fraction of correct answers.
func (s State) Accuracy() float64 {
	if s.TotalQuestions == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalQuestions)
}

// Clone returns a deep copy so callers can mutate the result freely.
func (s State) Clone() State {
	out := s
	out.WeakTopics = append([]Topic(nil), s.WeakTopics...)
	out.StrongTopics = append([]Topic(nil), s.StrongTopics...)
	if s.TopicStats != nil {
		out.TopicStats = make(map[Topic]TopicStats, len(s.TopicStats))
		for k, v := range s.TopicStats {
			out.TopicStats[k] = v
		}
	}
	return out
}

// #endregion state

// #region outcome
// Outcome is the observed result of answering one selected item.
type Outcome struct {
	TopicIndex     int     `json:"topic_index" yaml:"topic_index"`
	IsCorrect      bool    `json:"is_correct" yaml:"is_correct"`
	ResponseTimeMs float64 `json:"response_time_ms" yaml:"response_time_ms"`
	// Difficulty the item was selected at; 0 means the minimum of 1.
	Difficulty float64 `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
}

// #endregion outcome

// #region thresholds
// Thresholds control how per-topic accuracy sorts topics into weak and strong.
type Thresholds struct {
	MinAttempts    int     `yaml:"min_attempts"`
	StrongAccuracy float64 `yaml:"strong_accuracy"`
	WeakAccuracy   float64 `yaml:"weak_accuracy"`
}

// DefaultThresholds returns the classification used when none is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAttempts:    3,
		StrongAccuracy: 0.8,
		WeakAccuracy:   0.5,
	}
}

// #endregion thresholds

func sortTopics(ts []Topic) {
	sort.Slice(ts, func(i, j int) bool { return IndexOf(ts[i]) < IndexOf(ts[j]) })
}
