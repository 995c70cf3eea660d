// Package questionbank holds the static practice items, routes imported items
// to topics by keyword and picks one item per topic, avoiding recent repeats.
package questionbank

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
)

// Source supplies uniform reals in [0,1).
type Source interface {
	Float64() float64
}

// #region bank
// Bank is an in-memory question bank keyed by topic. It is safe for
// concurrent use.
type Bank struct {
	mu      sync.RWMutex
	byTopic map[learner.Topic][]Question
	recent  *lru.Cache[string, struct{}]
}

// New creates an empty bank. recentWindow is how many recently served item
// ids PickOne avoids; 0 disables the window.
func New(recentWindow int) (*Bank, error) {
	b := &Bank{byTopic: make(map[learner.Topic][]Question)}
	if recentWindow > 0 {
		c, err := lru.New[string, struct{}](recentWindow)
		if err != nil {
			return nil, fmt.Errorf("recent window: %w", err)
		}
		b.recent = c
	}
	return b, nil
}

// Add stores q under its topic, assigning an id when empty.
func (b *Bank) Add(q Question) {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byTopic[q.Topic] = append(b.byTopic[q.Topic], q)
}

// Import classifies untagged items by keyword and adds a copy under every
// matching topic. It returns the number of (item, topic) pairs added.
func (b *Bank) Import(items []Question) int {
	added := 0
	for _, q := range items {
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		for _, t := range Classify(q.Prompt) {
			c := q
			c.Topic = t
			b.Add(c)
			added++
		}
	}
	return added
}

// QuestionsForTopic returns a copy of the items for t.
func (b *Bank) QuestionsForTopic(t learner.Topic) []Question {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Question(nil), b.byTopic[t]...)
}

// Counts returns the number of items per topic.
func (b *Bank) Counts() map[learner.Topic]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[learner.Topic]int, len(b.byTopic))
	for t, qs := range b.byTopic {
		out[t] = len(qs)
	}
	return out
}

// PickOne draws one item for t, preferring items outside the recent window.
// It returns ErrNotFound when the topic is empty.
func (b *Bank) PickOne(t learner.Topic, src Source) (Question, error) {
	all := b.QuestionsForTopic(t)
	if len(all) == 0 {
		return Question{}, fmt.Errorf("%w: topic %s", ErrNotFound, t)
	}

	candidates := all
	if b.recent != nil {
		fresh := make([]Question, 0, len(all))
		for _, q := range all {
			if !b.recent.Contains(q.ID) {
				fresh = append(fresh, q)
			}
		}
		if len(fresh) > 0 {
			candidates = fresh
		}
	}

	i := int(src.Float64() * float64(len(candidates)))
	if i >= len(candidates) {
		i = len(candidates) - 1
	}
	q := candidates[i]
	if b.recent != nil {
		b.recent.Add(q.ID, struct{}{})
	}
	return q, nil
}

// #endregion bank

// #region loader
// rawItem accepts the field spellings found in AquaRAT dumps.
type rawItem struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	Answer        any      `json:"answer"`
	Correct       any      `json:"correct"`
	AnswerKey     any      `json:"answerKey"`
	AnswerKeySnk  any      `json:"answer_key"`
	CorrectAnswer any      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	Rationale     string   `json:"rationale"`
}

func (r rawItem) answer() string {
	for _, v := range []any{r.Answer, r.Correct, r.AnswerKey, r.AnswerKeySnk, r.CorrectAnswer} {
		if v == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return ""
}

// ParseItems decodes a JSON array of untagged items.
func ParseItems(data []byte) ([]Question, error) {
	var raw []rawItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse question items: %w", err)
	}
	out := make([]Question, 0, len(raw))
	for _, r := range raw {
		explanation := strings.TrimSpace(r.Explanation)
		if explanation == "" {
			explanation = strings.TrimSpace(r.Rationale)
		}
		out = append(out, Question{
			ID:          r.ID,
			Prompt:      r.Question,
			Options:     append([]string(nil), r.Options...),
			Answer:      r.answer(),
			Explanation: explanation,
		})
	}
	return out, nil
}

// LoadFile reads a JSON dump from path.
func LoadFile(path string) ([]Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question bank %s: %w", path, err)
	}
	return ParseItems(data)
}

// Handcrafted returns the built-in items.
func Handcrafted() []Question {
	return []Question{
		{
			ID:          "handcrafted-algebra-1",
			Topic:       learner.TopicAlgebra,
			Prompt:      "Solve 3x + 6 = 15",
			Options:     []string{"x = 2", "x = 3", "x = 4", "x = 5"},
			Answer:      "x = 3",
			Explanation: "Subtract 6 then divide by 3.",
		},
	}
}

// NewDefault builds a bank from the handcrafted items plus the optional
// dump at path.
func NewDefault(path string, recentWindow int) (*Bank, error) {
	b, err := New(recentWindow)
	if err != nil {
		return nil, err
	}
	for _, q := range Handcrafted() {
		b.Add(q)
	}
	if path == "" {
		return b, nil
	}
	items, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	b.Import(items)
	return b, nil
}

// #endregion loader
