package logging

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/danielpatrickdp/adaptive-tutor/internal/store"
)

// #region helpers
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "outcomes.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s.DB()
}

// #endregion helpers

// #region logger-tests
func TestNewModes(t *testing.T) {
	for _, mode := range []string{"dev", "production", "nop", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		if l.SugaredLogger == nil {
			t.Fatalf("New(%q): nil logger", mode)
		}
	}
}

func TestWithCarriesFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).With("session", "s1")

	l.Info("topic selected", "topic", "algebra")
	l.Debug("scores", "n", 5)

	if logs.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", logs.Len())
	}
	first := logs.All()[0]
	if first.Message != "topic selected" {
		t.Errorf("unexpected message %q", first.Message)
	}
	fields := first.ContextMap()
	if fields["session"] != "s1" || fields["topic"] != "algebra" {
		t.Errorf("unexpected fields %v", fields)
	}
}

// #endregion logger-tests

// #region log-outcome-tests
func TestLogOutcome_Success(t *testing.T) {
	db := setupDB(t)

	entry := OutcomeEntry{
		SessionID:      "s1",
		Topic:          "algebra",
		TopicIndex:     0,
		IsCorrect:      true,
		ResponseTimeMs: 1500,
		Difficulty:     1.02,
		Reward:         1.85,
		TargetJSON:     "[1,4.85,1,1,1]",
		Decision:       DecisionApplied,
		CreatedAt:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	if err := LogOutcome(db, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := ListOutcomes(db, "s1", 0)
	if err != nil {
		t.Fatalf("ListOutcomes: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	e := got[0]
	if e.Topic != "algebra" || !e.IsCorrect || e.Reward != 1.85 || e.Decision != DecisionApplied {
		t.Errorf("unexpected entry %+v", e)
	}
	if !e.CreatedAt.Equal(entry.CreatedAt) {
		t.Errorf("expected created_at %v, got %v", entry.CreatedAt, e.CreatedAt)
	}
}

func TestLogOutcome_ZeroCreatedAt(t *testing.T) {
	db := setupDB(t)

	before := time.Now().UTC().Add(-time.Second)
	if err := LogOutcome(db, OutcomeEntry{Topic: "geometry", TopicIndex: 1, Decision: DecisionFailed}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := ListOutcomes(db, "", 0)
	if len(got) != 1 {
		t.Fatalf("expected 1 row, got %d", len(got))
	}
	if got[0].CreatedAt.Before(before) {
		t.Error("expected auto-filled created_at to be >= test start time")
	}
}

func TestLogOutcome_EmptyOptionalFields(t *testing.T) {
	db := setupDB(t)

	if err := LogOutcome(db, OutcomeEntry{Topic: "calculus", TopicIndex: 2, Decision: DecisionRejected}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sessionID, target, reason sql.NullString
	db.QueryRow("SELECT session_id, target_json, reason FROM outcome_log").Scan(&sessionID, &target, &reason)
	if sessionID.Valid || target.Valid || reason.Valid {
		t.Error("expected NULL for empty optional fields")
	}
}

func TestListOutcomes_FilterAndLimit(t *testing.T) {
	db := setupDB(t)

	for i, sid := range []string{"a", "b", "a", "a"} {
		err := LogOutcome(db, OutcomeEntry{SessionID: sid, Topic: "algebra", TopicIndex: i, Decision: DecisionApplied})
		if err != nil {
			t.Fatalf("LogOutcome %d: %v", i, err)
		}
	}

	all, _ := ListOutcomes(db, "", 0)
	if len(all) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(all))
	}
	a, _ := ListOutcomes(db, "a", 0)
	if len(a) != 3 {
		t.Fatalf("expected 3 rows for session a, got %d", len(a))
	}
	if a[0].TopicIndex != 0 || a[2].TopicIndex != 3 {
		t.Error("expected insertion order")
	}
	limited, _ := ListOutcomes(db, "a", 2)
	if len(limited) != 2 {
		t.Fatalf("expected 2 rows with limit, got %d", len(limited))
	}
}

func TestLogOutcome_Error(t *testing.T) {
	db := setupDB(t)
	db.Close()

	if err := LogOutcome(db, OutcomeEntry{Topic: "algebra", Decision: DecisionApplied}); err == nil {
		t.Fatal("expected error on closed db")
	}
}

// #endregion log-outcome-tests

// #region null-if-empty-tests
func TestNullIfEmpty(t *testing.T) {
	if nullIfEmpty("") != nil {
		t.Error("expected nil for empty string")
	}
	if nullIfEmpty("x") != "x" {
		t.Error("expected passthrough for non-empty string")
	}
}

// #endregion null-if-empty-tests
