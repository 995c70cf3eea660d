package orchestrator

// #region imports
import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
	"github.com/danielpatrickdp/adaptive-tutor/internal/logging"
	"github.com/danielpatrickdp/adaptive-tutor/internal/questionbank"
	"github.com/danielpatrickdp/adaptive-tutor/internal/store"
)

// #endregion

// #region phase

// Phase is a session's position in the ask/answer cycle.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaitingAnswer
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingAnswer:
		return "awaiting_answer"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// #endregion

// #region session-options

// SessionSaver persists learner state after every answer.
type SessionSaver interface {
	SaveSession(rec store.SessionRecord) error
}

// SessionOptions configures a Session. All fields are optional.
type SessionOptions struct {
	ID         string // generated when empty
	Thresholds learner.Thresholds
	Saver      SessionSaver
	// Journal receives one outcome_log row per answer.
	Journal *sql.DB
	// VersionID names the active estimator version in journal rows.
	VersionID func() string
	OnReport  func(UpdateReport)
	// AllowOverlap lets Next start while this session's previous update is
	// still running. By default Next waits for it.
	AllowOverlap bool
}

// #endregion

// #region session-struct

// AnswerResult is returned by Session.Answer.
type AnswerResult struct {
	Correct  bool
	Question questionbank.Question
	Outcome  learner.Outcome
	State    learner.State
	Advice   Advice
}

// Session is one learner's sequential ask/answer loop over a shared
// orchestrator. Its methods are safe to call from multiple goroutines but a
// session is logically sequential.
type Session struct {
	mu      sync.Mutex
	id      string
	orch    *Orchestrator
	opts    SessionOptions
	state   learner.State
	phase   Phase
	current Selection
	pending chan struct{}
	log     *logging.Logger
}

// NewSession starts a session at state start.
func (o *Orchestrator) NewSession(start learner.State, opts SessionOptions) (*Session, error) {
	if err := start.Validate(); err != nil {
		return nil, err
	}
	if opts.ID == "" {
		opts.ID = uuid.New().String()
	}
	if opts.Thresholds == (learner.Thresholds{}) {
		opts.Thresholds = learner.DefaultThresholds()
	}
	return &Session{
		id:    opts.ID,
		orch:  o,
		opts:  opts,
		state: start.Clone(),
		log:   o.log.With("session", opts.ID),
	}, nil
}

// #endregion

// #region accessors

func (s *Session) ID() string { return s.id }

// State returns a copy of the learner state.
func (s *Session) State() learner.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Pending returns the selection awaiting an answer.
func (s *Session) Pending() (Selection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.phase == PhaseAwaitingAnswer
}

// #endregion

// #region next

// Next selects the next item. It fails with ErrSessionState while an answer is
// pending and with a NoQuestionAvailableError when redraws are exhausted.
func (s *Session) Next(ctx context.Context) (Selection, error) {
	if !s.opts.AllowOverlap {
		if err := s.awaitPending(ctx); err != nil {
			return Selection{}, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseIdle {
		return Selection{}, fmt.Errorf("%w: next while %s", ErrSessionState, s.phase)
	}

	sel, attempts, err := selectWithRetry(ctx, s.orch, s.state)
	if err != nil {
		s.log.Warn("selection failed", "attempts", attempts, "error", err)
		return sel, err
	}
	s.current = sel
	s.phase = PhaseAwaitingAnswer
	return sel, nil
}

// awaitPending blocks until the session's last update has finished. The lock
// is not held while waiting so OnReport and accessors stay usable.
func (s *Session) awaitPending(ctx context.Context) error {
	s.mu.Lock()
	pending, phase := s.pending, s.phase
	s.mu.Unlock()
	if phase != PhaseIdle {
		return fmt.Errorf("%w: next while %s", ErrSessionState, phase)
	}
	if pending == nil {
		return nil
	}
	select {
	case <-pending:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// #endregion

// #region answer

// Answer grades choice against the pending item, applies the learner
// transition immediately and starts the estimator update in the background.
func (s *Session) Answer(ctx context.Context, choice string, elapsed time.Duration) (AnswerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseAwaitingAnswer {
		return AnswerResult{}, fmt.Errorf("%w: answer while %s", ErrSessionState, s.phase)
	}

	q := s.current.Question
	correct := q.IsCorrect(choice)
	outcome := learner.Outcome{
		TopicIndex:     s.current.TopicIndex,
		IsCorrect:      correct,
		ResponseTimeMs: float64(max(elapsed, 0).Milliseconds()),
		Difficulty:     s.current.Difficulty,
	}

	prior := s.state
	next := learner.Apply(prior, outcome, s.opts.Thresholds)
	s.state = next
	s.phase = PhaseIdle
	s.current = Selection{}

	if s.opts.Saver != nil {
		if err := s.opts.Saver.SaveSession(store.SessionRecord{SessionID: s.id, State: next}); err != nil {
			s.log.Error("save session failed", "error", err)
		}
	}

	done := make(chan struct{})
	s.pending = done
	s.orch.RecordOutcomeAsync(ctx, prior, next, outcome, func(r UpdateReport) {
		defer close(done)
		r.SessionID = s.id
		s.journal(r)
		if s.opts.OnReport != nil {
			s.opts.OnReport(r)
		}
	})

	return AnswerResult{
		Correct:  correct,
		Question: q,
		Outcome:  outcome,
		State:    next.Clone(),
		Advice:   Advise(next),
	}, nil
}

// Skip drops the pending item without recording an outcome.
func (s *Session) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != PhaseAwaitingAnswer {
		return fmt.Errorf("%w: skip while %s", ErrSessionState, s.phase)
	}
	s.phase = PhaseIdle
	s.current = Selection{}
	return nil
}

// ApplyAdvice applies the current best recommendation to the learner state.
func (s *Session) ApplyAdvice() Advice {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := Advise(s.state)
	s.state = ApplyRecommendation(s.state, a.Best)
	return a
}

// #endregion

// #region journal

func (s *Session) journal(r UpdateReport) {
	if s.opts.Journal == nil {
		return
	}
	var target string
	if r.TD.Target != nil {
		if b, err := json.Marshal(r.TD.Target); err == nil {
			target = string(b)
		}
	}
	var version string
	if s.opts.VersionID != nil {
		version = s.opts.VersionID()
	}
	err := logging.LogOutcome(s.opts.Journal, logging.OutcomeEntry{
		SessionID:      r.SessionID,
		VersionID:      version,
		Topic:          string(r.Topic),
		TopicIndex:     r.Outcome.TopicIndex,
		IsCorrect:      r.Outcome.IsCorrect,
		ResponseTimeMs: r.Outcome.ResponseTimeMs,
		Difficulty:     r.Outcome.Difficulty,
		Reward:         r.TD.Reward,
		TargetJSON:     target,
		Decision:       r.Decision,
		Reason:         r.Reason,
	})
	if err != nil {
		s.log.Error("journal outcome failed", "error", err)
	}
}

// #endregion
