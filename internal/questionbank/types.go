package questionbank

import (
	"errors"
	"strings"

	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
)

// ErrNotFound is returned when a topic has no questions.
var ErrNotFound = errors.New("no question found")

// #region question
// Question is one multiple-choice practice item.
type Question struct {
	ID          string        `json:"id"`
	Topic       learner.Topic `json:"topic"`
	Prompt      string        `json:"question"`
	Options     []string      `json:"options"`
	Answer      string        `json:"answer"`
	Explanation string        `json:"explanation"`
}

// IsCorrect grades a learner's choice. A choice matches when it equals the
// answer or the full option text the answer refers to, or when both start
// with the same option letter (AquaRAT options look like "A)21").
func (q Question) IsCorrect(choice string) bool {
	choice = strings.TrimSpace(choice)
	if choice == "" {
		return false
	}
	answer := strings.TrimSpace(q.Answer)
	if strings.EqualFold(choice, answer) {
		return true
	}
	if opt, ok := q.answerOption(); ok && strings.EqualFold(choice, opt) {
		return true
	}
	cl, cok := optionLetter(choice)
	al, aok := optionLetter(answer)
	return cok && aok && cl == al
}

// CorrectOption returns the option text for the answer, or the answer itself.
func (q Question) CorrectOption() string {
	if opt, ok := q.answerOption(); ok {
		return opt
	}
	return q.Answer
}

func (q Question) answerOption() (string, bool) {
	answer := strings.TrimSpace(q.Answer)
	for _, opt := range q.Options {
		if strings.EqualFold(strings.TrimSpace(opt), answer) {
			return opt, true
		}
	}
	if l, ok := optionLetter(answer); ok && len(answer) == 1 {
		for _, opt := range q.Options {
			if ol, ok := optionLetter(opt); ok && ol == l {
				return opt, true
			}
		}
	}
	return "", false
}

// optionLetter extracts a leading A-E option label: "B", "b", "B)", "B) 12", "B. 12".
func optionLetter(s string) (byte, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	c := s[0]
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'E' {
		return 0, false
	}
	if len(s) == 1 {
		return c, true
	}
	switch s[1] {
	case ')', '.', ':':
		return c, true
	}
	return 0, false
}

// #endregion question
