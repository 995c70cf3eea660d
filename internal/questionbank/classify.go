package questionbank

import (
	"regexp"
	"strings"

	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
)

// #region keywords
// topicPatterns routes imported items to topics by keyword. An item may match
// several topics; "x" sends most word problems with an unknown to algebra.
var topicPatterns = map[learner.Topic]*regexp.Regexp{
	learner.TopicAlgebra:      regexp.MustCompile(`solve|equation|x`),
	learner.TopicGeometry:     regexp.MustCompile(`area|circle|square|perimeter`),
	learner.TopicCalculus:     regexp.MustCompile(`derivative|integral|maxim|profit`),
	learner.TopicStatistics:   regexp.MustCompile(`mean|probability|variance|expectation`),
	learner.TopicTrigonometry: regexp.MustCompile(`sin|cos|tan|angle`),
}

// Classify returns every topic whose keywords occur in the prompt, in
// enumeration order.
func Classify(prompt string) []learner.Topic {
	lower := strings.ToLower(prompt)
	var out []learner.Topic
	for _, t := range learner.Topics {
		if topicPatterns[t].MatchString(lower) {
			out = append(out, t)
		}
	}
	return out
}

// #endregion keywords
