package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
	"github.com/danielpatrickdp/adaptive-tutor/internal/logging"
	"github.com/danielpatrickdp/adaptive-tutor/internal/orchestrator"
	"github.com/danielpatrickdp/adaptive-tutor/internal/store"
)

var (
	resumeID    string
	commitEvery int
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run an interactive practice session in the terminal",
	RunE:  runPractice,
}

func init() {
	practiceCmd.Flags().StringVar(&resumeID, "session", "", "resume a saved session by id")
	practiceCmd.Flags().IntVar(&commitEvery, "commit-every", 5, "persist the estimator after this many applied updates (0 = only on exit)")
}

// #region practice
func runPractice(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	rt, err := openRuntime(cfg, log)
	if err != nil {
		return err
	}
	defer rt.Close()

	bank, err := rt.bank()
	if err != nil {
		return err
	}
	orch := rt.orchestrator(bank)

	start := learner.New()
	if resumeID != "" {
		rec, err := rt.store.LoadSession(resumeID)
		if err != nil {
			return fmt.Errorf("resume %s: %w", resumeID, err)
		}
		start = rec.State
	}

	var applied atomic.Int64
	sess, err := orch.NewSession(start, orchestrator.SessionOptions{
		ID:         resumeID,
		Thresholds: cfg.Thresholds(),
		Saver:      rt.store,
		Journal:    rt.store.DB(),
		VersionID:  rt.currentVersion,
		OnReport: func(r orchestrator.UpdateReport) {
			if r.Decision != logging.DecisionApplied || commitEvery <= 0 {
				return
			}
			if applied.Add(1)%int64(commitEvery) == 0 {
				if err := rt.commit(context.Background(), r.Eval.Metrics); err != nil {
					log.Error("commit estimator failed", "error", err)
				}
			}
		},
	})
	if err != nil {
		return err
	}
	if err := rt.store.SaveSession(store.SessionRecord{SessionID: sess.ID(), State: sess.State()}); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Adaptive tutor ready. Session %s | DB: %s | estimator: %s\n",
		sess.ID(), cfg.Store.Path, cfg.Estimator.Mode)
	fmt.Fprintln(out, "Answer with an option letter; 's' skips, 'a' applies advice, 'q' quits.")

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(cmd.InOrStdin())
		for sc.Scan() {
			lines <- strings.TrimSpace(sc.Text())
		}
	}()

	err = practiceLoop(ctx, out, sess, lines)

	orch.Wait()
	if cerr := rt.commit(context.Background(), sessionSummary(sess.State())); cerr != nil {
		log.Error("final commit failed", "error", cerr)
	}
	printState(out, sess.State())
	return err
}

func practiceLoop(ctx context.Context, out io.Writer, sess *orchestrator.Session, lines <-chan string) error {
	for {
		sel, err := sess.Next(ctx)
		if errors.Is(err, orchestrator.ErrNoQuestionAvailable) {
			fmt.Fprintf(out, "no question available: %v\n", err)
			return nil
		}
		if err != nil {
			return err
		}
		printQuestion(out, sel)
		asked := time.Now()

		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		switch strings.ToLower(line) {
		case "q", "quit", "exit":
			return sess.Skip()
		case "s", "skip":
			if err := sess.Skip(); err != nil {
				return err
			}
			continue
		case "a", "advice":
			if err := sess.Skip(); err != nil {
				return err
			}
			a := sess.ApplyAdvice()
			fmt.Fprintf(out, "applied %s: mastery now %d\n", a.Best, sess.State().MasteryLevel)
			continue
		}

		res, err := sess.Answer(ctx, resolveChoice(sel.Question.Options, line), time.Since(asked))
		if err != nil {
			return err
		}
		if res.Correct {
			fmt.Fprintln(out, "Correct!")
		} else {
			fmt.Fprintf(out, "Incorrect. The answer is %s\n", res.Question.CorrectOption())
		}
		if res.Question.Explanation != "" {
			fmt.Fprintf(out, "  %s\n", res.Question.Explanation)
		}
		fmt.Fprintf(out, "  mastery %d | streak %d | accuracy %.0f%% | advice: %s\n\n",
			res.State.MasteryLevel, res.State.Streak, 100*res.State.Accuracy(), res.Advice.Message)
	}
}

// #endregion practice

// #region output
func printQuestion(out io.Writer, sel orchestrator.Selection) {
	tag := ""
	if sel.Degraded {
		tag = " (estimator offline, uniform pick)"
	}
	fmt.Fprintf(out, "[%s | difficulty %.2f]%s\n%s\n", sel.Topic, sel.Difficulty, tag, sel.Question.Prompt)
	for i, opt := range sel.Question.Options {
		if strings.Contains(opt, ")") {
			fmt.Fprintf(out, "  %s\n", opt)
			continue
		}
		fmt.Fprintf(out, "  %c) %s\n", 'A'+i, opt)
	}
	fmt.Fprint(out, "> ")
}

func printState(out io.Writer, s learner.State) {
	fmt.Fprintf(out, "\nAnswered %d, correct %d, mastery %d, avg %.0f ms\n",
		s.TotalQuestions, s.CorrectAnswers, s.MasteryLevel, s.AverageResponseTimeMs)
	if len(s.WeakTopics) > 0 {
		fmt.Fprintf(out, "Weak topics: %v\n", s.WeakTopics)
	}
	if len(s.StrongTopics) > 0 {
		fmt.Fprintf(out, "Strong topics: %v\n", s.StrongTopics)
	}
}

// resolveChoice maps a bare option letter onto unlabeled option text.
func resolveChoice(options []string, line string) string {
	if len(line) != 1 {
		return line
	}
	i := int(strings.ToUpper(line)[0]) - 'A'
	if i < 0 || i >= len(options) || strings.Contains(options[i], ")") {
		return line
	}
	return options[i]
}

func sessionSummary(s learner.State) map[string]any {
	return map[string]any{
		"total_questions": s.TotalQuestions,
		"accuracy":        s.Accuracy(),
		"mastery_level":   s.MasteryLevel,
	}
}

// #endregion output
