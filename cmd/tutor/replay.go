package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
	"github.com/danielpatrickdp/adaptive-tutor/internal/logging"
	"github.com/danielpatrickdp/adaptive-tutor/internal/replay"
	"github.com/danielpatrickdp/adaptive-tutor/internal/store"
)

var (
	replayFromDB  bool
	replaySession string
	replayJSON    bool
)

var replayCmd = &cobra.Command{
	Use:   "replay [fixture]",
	Short: "Replay a fixture, or the logged outcomes with --from-db, through a fresh estimator",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().BoolVar(&replayFromDB, "from-db", false, "replay outcome_log from the configured database")
	replayCmd.Flags().StringVar(&replaySession, "session", "", "with --from-db, replay only this session")
	replayCmd.Flags().BoolVar(&replayJSON, "json", false, "print results as JSON")
}

// #region replay
func runReplay(cmd *cobra.Command, args []string) error {
	switch {
	case replayFromDB && len(args) == 0:
		return runDBReplay(cmd)
	case !replayFromDB && len(args) == 1:
		return runFixtureReplay(cmd, args[0])
	default:
		return fmt.Errorf("usage: tutor replay <fixture.json|yaml> | tutor replay --from-db [--session id]")
	}
}

func runFixtureReplay(cmd *cobra.Command, path string) error {
	f, err := replay.LoadFixture(path)
	if err != nil {
		return err
	}
	o, err := f.Build(log)
	if err != nil {
		return err
	}
	results, err := replay.Replay(cmd.Context(), o, f.Start(), f.Answers, cfg.Thresholds())
	if err != nil {
		return err
	}
	if err := report(cmd.OutOrStdout(), f.Description, results, f.Start()); err != nil {
		return err
	}

	mismatches := f.Mismatches(results)
	for _, m := range mismatches {
		fmt.Fprintf(cmd.ErrOrStderr(), "MISMATCH: %s\n", m)
	}
	if len(mismatches) > 0 {
		return fmt.Errorf("%d mismatches", len(mismatches))
	}
	fmt.Fprintln(cmd.OutOrStdout(), "PASS")
	return nil
}

// runDBReplay re-drives the journaled answers through an estimator built from
// the configured seed, showing which decisions a fresh network would make.
func runDBReplay(cmd *cobra.Command) error {
	st, err := store.NewStore(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	entries, err := logging.ListOutcomes(st.DB(), replaySession, 0)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no outcomes logged")
	}

	f := &replay.Fixture{
		Seed:   cfg.Estimator.Seed,
		Hidden: cfg.Estimator.Hidden,
		Config: replay.FixtureConfig{
			DampingRate:       cfg.Selection.DampingRate,
			Discount:          cfg.Selection.Discount,
			MaxTDError:        cfg.Gate.MaxTDError,
			MaxScoreMagnitude: cfg.Eval.MaxScoreMagnitude,
		},
	}
	o, err := f.Build(log)
	if err != nil {
		return err
	}
	start := learner.New()
	results, err := replay.Replay(cmd.Context(), o, start, replay.FromOutcomes(entries), cfg.Thresholds())
	if err != nil {
		return err
	}

	changed := 0
	for i, r := range results {
		if r.Action != entries[i].Decision {
			changed++
		}
	}
	if err := report(cmd.OutOrStdout(), fmt.Sprintf("%d logged outcomes", len(entries)), results, start); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d of %d decisions differ from the log\n", changed, len(results))
	return nil
}

func report(w io.Writer, title string, results []replay.Result, start learner.State) error {
	final := start
	if len(results) > 0 {
		final = results[len(results)-1].State
	}
	summary := replay.Summarize(results, final)
	if replayJSON {
		return printJSON(w, map[string]any{"results": results, "summary": summary})
	}

	fmt.Fprintf(w, "Replay: %s\n", title)
	fmt.Fprintf(w, "%-8s  %-12s  %-7s  %5s  %7s  %9s  %s\n", "Turn", "Topic", "Sampled", "Diff", "Reward", "TD err", "Action")
	for _, r := range results {
		fmt.Fprintf(w, "%-8s  %-12s  %-7v  %5.2f  %7.3f  %9.4f  %s\n",
			r.TurnID, r.Topic, r.Sampled, r.Difficulty, r.Reward, r.TDError, r.Action)
	}
	fmt.Fprintf(w, "\n%d turns: %d applied, %d rejected, %d rolled back, %d failed, %d degraded\n",
		summary.TotalTurns, summary.Commits, summary.GateRejects, summary.EvalRollbacks, summary.Failures, summary.Degraded)
	fmt.Fprintf(w, "final: answered %d, correct %d, mastery %d\n",
		final.TotalQuestions, final.CorrectAnswers, final.MasteryLevel)
	return nil
}

// #endregion replay
