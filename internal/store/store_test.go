package store

import (
	"errors"
	"math/rand/v2"
	"path/filepath"
	"testing"
	"time"

	"github.com/danielpatrickdp/adaptive-tutor/internal/estimator"
	"github.com/danielpatrickdp/adaptive-tutor/internal/learner"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newMLP(t *testing.T, seed uint64) *estimator.MLP {
	t.Helper()
	cfg := estimator.DefaultMLPConfig()
	cfg.Hidden = 4
	m, err := estimator.NewMLP(cfg, rand.New(rand.NewPCG(seed, 1)))
	if err != nil {
		t.Fatalf("NewMLP: %v", err)
	}
	return m
}

func TestActiveEstimatorEmpty(t *testing.T) {
	s := tempDB(t)
	_, err := s.ActiveEstimator()
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCommitAndLoad(t *testing.T) {
	s := tempDB(t)
	m := newMLP(t, 1)

	rec, err := VersionFromMLP("", m, `{"td_error":0}`)
	if err != nil {
		t.Fatalf("VersionFromMLP: %v", err)
	}
	if err := s.CommitEstimator(rec); err != nil {
		t.Fatalf("CommitEstimator: %v", err)
	}

	active, err := s.ActiveEstimator()
	if err != nil {
		t.Fatalf("ActiveEstimator: %v", err)
	}
	if active.VersionID != rec.VersionID {
		t.Fatalf("active %s, want %s", active.VersionID, rec.VersionID)
	}
	if active.Shape.Hidden != 4 || active.Shape.Outputs != learner.TopicCount {
		t.Fatalf("unexpected shape %+v", active.Shape)
	}
	if active.MetricsJSON != `{"td_error":0}` {
		t.Fatalf("unexpected metrics %q", active.MetricsJSON)
	}

	other := newMLP(t, 99)
	if err := LoadInto(active, other); err != nil {
		t.Fatalf("LoadInto: %v", err)
	}
	want := m.Snapshot()
	got := other.Snapshot()
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("param %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestLoadIntoShapeMismatch(t *testing.T) {
	s := tempDB(t)
	rec, err := VersionFromMLP("", newMLP(t, 1), "")
	if err != nil {
		t.Fatalf("VersionFromMLP: %v", err)
	}
	if err := s.CommitEstimator(rec); err != nil {
		t.Fatalf("CommitEstimator: %v", err)
	}
	wide, err := estimator.NewMLP(estimator.DefaultMLPConfig(), rand.New(rand.NewPCG(2, 2)))
	if err != nil {
		t.Fatalf("NewMLP: %v", err)
	}
	if err := LoadInto(rec, wide); err == nil {
		t.Fatal("expected shape mismatch error")
	}
}

func TestCommitAndRollback(t *testing.T) {
	s := tempDB(t)
	m := newMLP(t, 1)

	v1, _ := VersionFromMLP("", m, "")
	if err := s.CommitEstimator(v1); err != nil {
		t.Fatalf("commit v1: %v", err)
	}
	v2, _ := VersionFromMLP(v1.VersionID, m, "")
	if err := s.CommitEstimator(v2); err != nil {
		t.Fatalf("commit v2: %v", err)
	}

	active, _ := s.ActiveEstimator()
	if active.VersionID != v2.VersionID {
		t.Fatalf("expected v2 active, got %s", active.VersionID)
	}
	if active.ParentID != v1.VersionID {
		t.Fatalf("expected parent %s, got %s", v1.VersionID, active.ParentID)
	}

	if err := s.RollbackEstimator(v1.VersionID); err != nil {
		t.Fatalf("RollbackEstimator: %v", err)
	}
	active, _ = s.ActiveEstimator()
	if active.VersionID != v1.VersionID {
		t.Fatalf("expected v1 after rollback, got %s", active.VersionID)
	}
}

func TestRollbackNonExistent(t *testing.T) {
	s := tempDB(t)
	err := s.RollbackEstimator("nonexistent-id")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetVersionNotFound(t *testing.T) {
	s := tempDB(t)
	_, err := s.GetEstimatorVersion("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListVersions(t *testing.T) {
	s := tempDB(t)
	m := newMLP(t, 1)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	parent := ""
	var ids []string
	for i := 0; i < 3; i++ {
		rec, _ := VersionFromMLP(parent, m, "")
		rec.CreatedAt = base.Add(time.Duration(i) * time.Second)
		if err := s.CommitEstimator(rec); err != nil {
			t.Fatalf("commit %d: %v", i, err)
		}
		parent = rec.VersionID
		ids = append(ids, rec.VersionID)
	}

	list, err := s.ListEstimatorVersions(10)
	if err != nil {
		t.Fatalf("ListEstimatorVersions: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 versions, got %d", len(list))
	}
	if list[0].VersionID != ids[2] || list[2].VersionID != ids[0] {
		t.Fatal("expected newest first")
	}

	limited, _ := s.ListEstimatorVersions(2)
	if len(limited) != 2 {
		t.Fatalf("expected 2 versions with limit, got %d", len(limited))
	}
}

func TestSaveAndLoadSession(t *testing.T) {
	s := tempDB(t)

	st := learner.Apply(learner.New(), learner.Outcome{TopicIndex: 0, IsCorrect: true, ResponseTimeMs: 1200, Difficulty: 1}, learner.DefaultThresholds())
	if err := s.SaveSession(SessionRecord{SessionID: "s1", State: st}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := s.LoadSession("s1")
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if got.State.TotalQuestions != 1 || got.State.CorrectAnswers != 1 || got.State.Streak != 1 {
		t.Fatalf("unexpected state %+v", got.State)
	}
	if got.State.AverageResponseTimeMs != 1200 {
		t.Fatalf("expected avg 1200, got %v", got.State.AverageResponseTimeMs)
	}

	st = learner.Apply(st, learner.Outcome{TopicIndex: 1, IsCorrect: false, ResponseTimeMs: 800, Difficulty: 1}, learner.DefaultThresholds())
	if err := s.SaveSession(SessionRecord{SessionID: "s1", State: st}); err != nil {
		t.Fatalf("SaveSession update: %v", err)
	}
	got, _ = s.LoadSession("s1")
	if got.State.TotalQuestions != 2 || got.State.Streak != 0 {
		t.Fatalf("expected updated state, got %+v", got.State)
	}

	list, err := s.ListSessions(10)
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 session, got %d", len(list))
	}
}

func TestLoadSessionNotFound(t *testing.T) {
	s := tempDB(t)
	_, err := s.LoadSession("nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestClosedDBErrors(t *testing.T) {
	s := tempDB(t)
	s.Close()

	if _, err := s.ListEstimatorVersions(5); err == nil {
		t.Fatal("expected error on closed db")
	}
	if err := s.SaveSession(SessionRecord{SessionID: "x", State: learner.New()}); err == nil {
		t.Fatal("expected error on closed db")
	}
}
