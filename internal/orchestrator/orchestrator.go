// Package orchestrator runs the adaptive select/observe/update loop: it
// samples the next topic from the estimator's scores and turns each answer
// into a temporal-difference update of the estimator.
package orchestrator

// #region imports
import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/adaptive-tutor/internal/estimator"
	"github.com/danielpatrickdp/adaptive-tutor/internal/eval"
	"github.com/danielpatrickdp/adaptive-tutor/internal/features"
	"github.com/danielpatrickdp/adaptive-tutor/internal/gate"
	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
	"github.com/danielpatrickdp/adaptive-tutor/internal/logging"
	"github.com/danielpatrickdp/adaptive-tutor/internal/sampler"
	"github.com/danielpatrickdp/adaptive-tutor/internal/update"
)

// #endregion

// #region options

// Options tunes selection and the update pipeline.
type Options struct {
	DampingRate float64
	TD          update.TDConfig
	Gate        gate.GateConfig
	Eval        eval.EvalConfig
	Logger      *logging.Logger
}

// DefaultOptions returns the tutor defaults with a discard logger.
func DefaultOptions() Options {
	return Options{
		DampingRate: sampler.DefaultDampingRate,
		TD:          update.DefaultTDConfig(),
		Gate:        gate.DefaultGateConfig(),
		Eval:        eval.DefaultEvalConfig(),
	}
}

// #endregion

// #region orchestrator-struct

// Orchestrator sequences encoding, prediction, sampling and TD updates around
// one shared estimator. It is safe for concurrent use by many sessions.
type Orchestrator struct {
	est     *estimator.Guarded
	bank    QuestionSource
	rng     *lockedSource
	opts    Options
	gate    *gate.Gate
	eval    *eval.EvalHarness
	log     *logging.Logger
	pending sync.WaitGroup
}

// #endregion

// #region constructor

// New wires an orchestrator. bank may be nil when only SelectTopic and
// RecordOutcome are used.
func New(est *estimator.Guarded, bank QuestionSource, src estimator.Source, opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Orchestrator{
		est:  est,
		bank: bank,
		rng:  &lockedSource{src: src},
		opts: opts,
		gate: gate.NewGate(opts.Gate),
		eval: eval.NewEvalHarness(opts.Eval),
		log:  log,
	}
}

// #endregion

// #region select

// SelectTopic draws the next topic for state. When the estimator cannot be
// queried the draw falls back to a uniform distribution and the selection is
// marked Degraded; only a malformed state is an error.
func (o *Orchestrator) SelectTopic(ctx context.Context, state learner.State) (Selection, error) {
	d := Difficulty(state, o.rng.Float64())
	v, err := features.EncodeState(state, d)
	if err != nil {
		return Selection{}, err
	}

	sel := Selection{Difficulty: d}
	scores, err := o.est.Predict(ctx, v)
	if err == nil && len(scores) != learner.TopicCount {
		err = fmt.Errorf("%w: %d scores for %d topics", estimator.ErrUnavailable, len(scores), learner.TopicCount)
	}
	if err == nil {
		sel.Distribution, err = sampler.ToDistribution(scores, o.opts.DampingRate)
	}
	if err != nil {
		o.log.Warn("estimator unavailable, sampling uniformly", "error", err)
		sel.Distribution = sampler.Uniform(learner.TopicCount)
		sel.Degraded = true
	} else {
		sel.Scores = scores
	}

	sel.TopicIndex = sampler.Sample(sel.Distribution, o.rng.Float64())
	sel.Topic, _ = learner.TopicAt(sel.TopicIndex)

	o.log.Debug("topic selected",
		"topic", sel.Topic, "difficulty", sel.Difficulty, "degraded", sel.Degraded)
	return sel, nil
}

// SelectNext draws a topic and resolves one item for it. An empty topic is
// reported as a NoQuestionAvailableError and not retried.
func (o *Orchestrator) SelectNext(ctx context.Context, state learner.State) (Selection, error) {
	sel, err := o.SelectTopic(ctx, state)
	if err != nil {
		return Selection{}, err
	}
	if o.bank == nil {
		return sel, &NoQuestionAvailableError{Topic: sel.Topic}
	}
	q, err := o.bank.PickOne(sel.Topic, o.rng)
	if err != nil {
		return sel, &NoQuestionAvailableError{Topic: sel.Topic, Err: err}
	}
	sel.Question = q
	return sel, nil
}

// Difficulty is 1 + 0.1*(|weak| - |strong|) jittered by u-0.5, rounded to two
// decimals and floored at 1.
func Difficulty(state learner.State, u float64) float64 {
	raw := 1 + float64(len(state.WeakTopics)-len(state.StrongTopics))*0.1 + (u - 0.5)
	return math.Max(1, math.Round(raw*100)/100)
}

// #endregion

// #region record-outcome

// RecordOutcome runs the TD update for one answered question. prior and next
// are the learner states before and after the answer; both are encoded with
// the difficulty the question was served at. The whole predict, gate, update
// and eval sequence holds the estimator's exclusive lock.
func (o *Orchestrator) RecordOutcome(ctx context.Context, prior, next learner.State, outcome learner.Outcome) (UpdateReport, error) {
	report := UpdateReport{Outcome: outcome}
	topic, ok := learner.TopicAt(outcome.TopicIndex)
	if !ok {
		return o.fail(report, fmt.Errorf("topic index %d outside [0,%d)", outcome.TopicIndex, learner.TopicCount))
	}
	report.Topic = topic

	curVec, err := features.Encode(prior, outcome.Difficulty, prior.AverageResponseTimeMs)
	if err != nil {
		return o.fail(report, fmt.Errorf("encode prior: %w", err))
	}
	nextVec, err := features.Encode(next, outcome.Difficulty, next.AverageResponseTimeMs)
	if err != nil {
		return o.fail(report, fmt.Errorf("encode next: %w", err))
	}

	err = o.est.Exclusive(ctx, func(ctx context.Context, e estimator.ValueEstimator) error {
		var current, nextScores []float64
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			s, err := e.Predict(gctx, curVec)
			current = s
			return err
		})
		g.Go(func() error {
			s, err := e.Predict(gctx, nextVec)
			nextScores = s
			return err
		})
		if err := g.Wait(); err != nil {
			return err
		}

		td, err := update.Compute(current, nextScores, outcome.TopicIndex, outcome.IsCorrect, outcome.ResponseTimeMs, o.opts.TD)
		if err != nil {
			return err
		}
		report.TD = td

		report.Gate = o.gate.Evaluate(current, td.Target, outcome.TopicIndex)
		if report.Gate.Vetoed {
			report.Decision = logging.DecisionRejected
			report.Reason = report.Gate.Reason
			return nil
		}

		var snapshot []float64
		snap, canSnap := estimator.AsSnapshotter(e)
		if canSnap {
			snapshot = snap.Snapshot()
		}
		if err := e.Update(ctx, curVec, td.Target); err != nil {
			return err
		}

		after, err := e.Predict(ctx, curVec)
		if err != nil {
			return err
		}
		report.Eval = o.eval.Run(after)
		switch {
		case report.Eval.Passed:
			report.Decision = logging.DecisionApplied
			report.Reason = report.Gate.Reason
		case snapshot != nil:
			if err := snap.Restore(snapshot); err != nil {
				return fmt.Errorf("eval rollback: %w", err)
			}
			report.Decision = logging.DecisionRolledBack
			report.Reason = "eval_rollback: " + report.Eval.Reason
		default:
			report.Decision = logging.DecisionApplied
			report.Reason = "eval failed, rollback unsupported: " + report.Eval.Reason
		}
		return nil
	})
	if err != nil {
		return o.fail(report, err)
	}

	switch report.Decision {
	case logging.DecisionApplied:
		o.log.Debug("update applied",
			"topic", topic, "reward", report.TD.Reward, "td_error", report.TD.TDError)
	default:
		o.log.Warn("update not applied",
			"topic", topic, "decision", report.Decision, "reason", report.Reason)
	}
	return report, nil
}

// RecordOutcomeAsync runs RecordOutcome in the background and hands the
// report to done, which may be nil. Cancelling ctx after the call returns does
// not abort the update; the estimator handle's own timeout still applies.
func (o *Orchestrator) RecordOutcomeAsync(ctx context.Context, prior, next learner.State, outcome learner.Outcome, done func(UpdateReport)) {
	ctx = context.WithoutCancel(ctx)
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		report, _ := o.RecordOutcome(ctx, prior, next, outcome)
		if done != nil {
			done(report)
		}
	}()
}

// Wait blocks until every background update has finished.
func (o *Orchestrator) Wait() {
	o.pending.Wait()
}

func (o *Orchestrator) fail(report UpdateReport, err error) (UpdateReport, error) {
	report.Decision = logging.DecisionFailed
	report.Reason = err.Error()
	report.Err = err
	o.log.Error("estimator update failed", "topic", report.Topic, "error", err)
	return report, err
}

// #endregion

// #region locked-source

// lockedSource serializes draws from a non-concurrent source.
type lockedSource struct {
	mu  sync.Mutex
	src estimator.Source
}

func (l *lockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}

// #endregion
