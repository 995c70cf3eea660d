package replay

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
	"github.com/danielpatrickdp/adaptive-tutor/internal/logging"
)

func loadAndBuild(t *testing.T, name string) (*Fixture, []Result) {
	t.Helper()
	f, err := LoadFixture(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	o, err := f.Build(logging.Nop())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	results, err := Replay(context.Background(), o, f.Start(), f.Answers, learner.DefaultThresholds())
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	return f, results
}

func TestFixture_SteadyLearner(t *testing.T) {
	f, results := loadAndBuild(t, "steady_learner.json")
	for _, m := range f.Mismatches(results) {
		t.Error(m)
	}
	s := Summarize(results, results[len(results)-1].State)
	if s.Commits != 5 || s.GateRejects != 0 {
		t.Fatalf("summary = %+v, want 5 commits", s)
	}
	if s.FinalState.TotalQuestions != 5 || s.FinalState.CorrectAnswers != 3 {
		t.Fatalf("final state = %+v", s.FinalState)
	}
}

func TestFixture_StrictGate(t *testing.T) {
	f, results := loadAndBuild(t, "strict_gate.json")
	for _, m := range f.Mismatches(results) {
		t.Error(m)
	}
	s := Summarize(results, results[len(results)-1].State)
	if s.GateRejects != 3 || s.Commits != 0 {
		t.Fatalf("summary = %+v, want 3 rejects", s)
	}
	// rejected updates still advance the learner
	if s.FinalState.TotalQuestions != 3 {
		t.Fatalf("TotalQuestions = %d, want 3", s.FinalState.TotalQuestions)
	}
}

func TestFixture_ReturningLearnerYAML(t *testing.T) {
	f, results := loadAndBuild(t, "returning_learner.yaml")
	if f.StartState == nil || f.StartState.MasteryLevel != 4 {
		t.Fatalf("start state not loaded: %+v", f.StartState)
	}
	if f.Config.Discount != 0.9 {
		t.Fatalf("discount = %v, want 0.9", f.Config.Discount)
	}
	for _, m := range f.Mismatches(results) {
		t.Error(m)
	}
	final := results[len(results)-1].State
	if final.TotalQuestions != 9 {
		t.Fatalf("TotalQuestions = %d, want 9", final.TotalQuestions)
	}
	if got := final.TopicStats[learner.TopicGeometry].Attempts; got < 5 {
		t.Fatalf("geometry attempts = %d, want >= 5", got)
	}
}

func TestReplay_Deterministic(t *testing.T) {
	_, a := loadAndBuild(t, "steady_learner.json")
	_, b := loadAndBuild(t, "steady_learner.json")
	if len(a) != len(b) {
		t.Fatalf("lengths differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].Topic != b[i].Topic || a[i].TDError != b[i].TDError || a[i].Difficulty != b[i].Difficulty {
			t.Fatalf("turn %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestReplay_PinnedAndSampled(t *testing.T) {
	_, results := loadAndBuild(t, "steady_learner.json")
	if results[0].Sampled || results[0].Topic != learner.TopicAlgebra {
		t.Fatalf("turn 1 = %+v, want pinned algebra", results[0])
	}
	if !results[2].Sampled {
		t.Fatal("turn 3 should be sampled")
	}
	if results[3].Difficulty != 1.2 {
		t.Fatalf("turn 4 difficulty = %v, want pinned 1.2", results[3].Difficulty)
	}
	if results[0].Reward <= 1 {
		t.Fatalf("fast correct reward = %v, want > 1", results[0].Reward)
	}
	if results[1].Reward != -0.5 {
		t.Fatalf("incorrect reward = %v, want -0.5", results[1].Reward)
	}
}

func TestReplay_UnknownTopic(t *testing.T) {
	f := &Fixture{Seed: 1, Hidden: 4}
	o, err := f.Build(nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	answers := []Answer{
		{TurnID: "ok", IsCorrect: true, ResponseTimeMs: 1000},
		{TurnID: "bad", Topic: "astronomy", IsCorrect: true, ResponseTimeMs: 1000},
	}
	results, err := Replay(context.Background(), o, f.Start(), answers, learner.DefaultThresholds())
	if err == nil {
		t.Fatal("expected error for unknown topic")
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1 before the failure", len(results))
	}
}

func TestReplay_InvalidStart(t *testing.T) {
	f := &Fixture{Seed: 1, Hidden: 4}
	o, err := f.Build(nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	bad := learner.State{TotalQuestions: 1, CorrectAnswers: 2}
	_, err = Replay(context.Background(), o, bad, nil, learner.DefaultThresholds())
	if !errors.Is(err, learner.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestSummarize_Counts(t *testing.T) {
	results := []Result{
		{Topic: learner.TopicAlgebra, Action: logging.DecisionApplied},
		{Topic: learner.TopicAlgebra, Action: logging.DecisionRejected, Degraded: true},
		{Topic: learner.TopicCalculus, Action: logging.DecisionRolledBack},
		{Topic: learner.TopicCalculus, Action: logging.DecisionFailed},
	}
	s := Summarize(results, learner.New())
	if s.TotalTurns != 4 || s.Commits != 1 || s.GateRejects != 1 || s.EvalRollbacks != 1 || s.Failures != 1 {
		t.Fatalf("summary = %+v", s)
	}
	if s.Degraded != 1 {
		t.Fatalf("Degraded = %d, want 1", s.Degraded)
	}
	if s.TopicCounts[learner.TopicAlgebra] != 2 || s.TopicCounts[learner.TopicCalculus] != 2 {
		t.Fatalf("TopicCounts = %v", s.TopicCounts)
	}
}

func TestFromOutcomes(t *testing.T) {
	entries := []logging.OutcomeEntry{
		{ID: 4, Topic: "geometry", TopicIndex: 1, IsCorrect: true, ResponseTimeMs: 1200, Difficulty: 1.1},
		{ID: 5, Topic: "algebra", TopicIndex: 0, ResponseTimeMs: 8000, Difficulty: 1},
	}
	answers := FromOutcomes(entries)
	if len(answers) != 2 {
		t.Fatalf("len = %d, want 2", len(answers))
	}
	if answers[0].TurnID != "log-4" || answers[0].Topic != learner.TopicGeometry || !answers[0].IsCorrect {
		t.Fatalf("answers[0] = %+v", answers[0])
	}
	if answers[1].Difficulty != 1 || answers[1].ResponseTimeMs != 8000 {
		t.Fatalf("answers[1] = %+v", answers[1])
	}
}

func TestMismatches_Reports(t *testing.T) {
	f := &Fixture{ExpectedResults: []FixtureExpectedResult{
		{TurnID: "t1", Topic: learner.TopicAlgebra, Action: logging.DecisionApplied},
		{TurnID: "t2", Action: logging.DecisionApplied},
	}}
	got := f.Mismatches([]Result{{TurnID: "t1", Topic: learner.TopicGeometry, Action: logging.DecisionRejected}})
	if len(got) != 3 {
		t.Fatalf("mismatches = %v, want length, action and topic", got)
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := LoadFixture(filepath.Join("testdata", "nope.json")); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}
