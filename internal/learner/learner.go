package learner

import "fmt"

// #region validate
// Validate reports ErrInvalidState for mastery outside [MinMastery, MaxMastery],
// negative counters, more correct answers than questions, or a negative
// average response time.
func (s State) Validate() error {
	switch {
	case s.MasteryLevel < MinMastery || s.MasteryLevel > MaxMastery:
		return fmt.Errorf("%w: mastery level %d outside [%d,%d]", ErrInvalidState, s.MasteryLevel, MinMastery, MaxMastery)
	case s.Streak < 0:
		return fmt.Errorf("%w: negative streak %d", ErrInvalidState, s.Streak)
	case s.TotalQuestions < 0:
		return fmt.Errorf("%w: negative total questions %d", ErrInvalidState, s.TotalQuestions)
	case s.CorrectAnswers < 0:
		return fmt.Errorf("%w: negative correct answers %d", ErrInvalidState, s.CorrectAnswers)
	case s.CorrectAnswers > s.TotalQuestions:
		return fmt.Errorf("%w: correct answers %d exceed total questions %d",
			ErrInvalidState, s.CorrectAnswers, s.TotalQuestions)
	case s.AverageResponseTimeMs < 0:
		return fmt.Errorf("%w: negative average response time %.2f", ErrInvalidState, s.AverageResponseTimeMs)
	}
	return nil
}

// #endregion validate

// #region apply
// Apply computes the learner-visible state after an answer. The prior state is
// not modified.
func Apply(prior State, outcome Outcome, th Thresholds) State {
	next := prior.Clone()

	next.TotalQuestions++
	if outcome.IsCorrect {
		next.CorrectAnswers++
		next.Streak++
	} else {
		next.Streak = 0
	}
	next.MasteryLevel = clamp(next.CorrectAnswers, MinMastery, MaxMastery)

	// running mean over all answered questions
	n := float64(next.TotalQuestions)
	next.AverageResponseTimeMs += (outcome.ResponseTimeMs - next.AverageResponseTimeMs) / n

	topic, ok := TopicAt(outcome.TopicIndex)
	if !ok {
		return next
	}
	if next.TopicStats == nil {
		next.TopicStats = make(map[Topic]TopicStats)
	}
	ts := next.TopicStats[topic]
	ts.Attempts++
	if outcome.IsCorrect {
		ts.Correct++
	}
	next.TopicStats[topic] = ts

	next.WeakTopics, next.StrongTopics = classify(next, th)
	return next
}

// #endregion apply

// #region classify
// classify re-sorts topics with enough attempts into weak or strong. Topics
// below the attempt floor keep their prior membership.
func classify(s State, th Thresholds) (weak, strong []Topic) {
	inWeak := make(map[Topic]bool, len(s.WeakTopics))
	for _, t := range s.WeakTopics {
		inWeak[t] = true
	}
	inStrong := make(map[Topic]bool, len(s.StrongTopics))
	for _, t := range s.StrongTopics {
		inStrong[t] = true
	}

	for topic, ts := range s.TopicStats {
		if ts.Attempts < th.MinAttempts {
			continue
		}
		acc := ts.Accuracy()
		inWeak[topic] = acc < th.WeakAccuracy
		inStrong[topic] = acc >= th.StrongAccuracy
	}

	for t, ok := range inWeak {
		if ok {
			weak = append(weak, t)
		}
	}
	for t, ok := range inStrong {
		if ok && !inWeak[t] {
			strong = append(strong, t)
		}
	}
	sortTopics(weak)
	sortTopics(strong)
	return weak, strong
}

// #endregion classify

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
