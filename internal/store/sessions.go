package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// #region save-session
// SaveSession inserts or replaces the stored state of a session.
func (s *Store) SaveSession(rec SessionRecord) error {
	stateJSON, err := json.Marshal(rec.State)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}

	_, err = s.db.Exec(
		`INSERT INTO learner_sessions (session_id, state_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET state_json = excluded.state_json, updated_at = excluded.updated_at`,
		rec.SessionID, string(stateJSON),
		rec.CreatedAt.UTC().Format(timeLayout), rec.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("save session %s: %w", rec.SessionID, err)
	}
	return nil
}

// #endregion save-session

// #region load-session
// LoadSession reads a session's stored state.
func (s *Store) LoadSession(id string) (SessionRecord, error) {
	row := s.db.QueryRow(
		`SELECT session_id, state_json, created_at, updated_at
		 FROM learner_sessions WHERE session_id = ?`, id,
	)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return SessionRecord{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return SessionRecord{}, fmt.Errorf("load session %s: %w", id, err)
	}
	return rec, nil
}

// ListSessions returns the most recently updated sessions.
func (s *Store) ListSessions(limit int) ([]SessionRecord, error) {
	rows, err := s.db.Query(
		`SELECT session_id, state_json, created_at, updated_at
		 FROM learner_sessions ORDER BY updated_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion load-session

func scanSession(sc scanner) (SessionRecord, error) {
	var rec SessionRecord
	var stateJSON, createdStr, updatedStr string
	if err := sc.Scan(&rec.SessionID, &stateJSON, &createdStr, &updatedStr); err != nil {
		return SessionRecord{}, err
	}
	if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
		return SessionRecord{}, fmt.Errorf("unmarshal state: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	rec.UpdatedAt, _ = time.Parse(timeLayout, updatedStr)
	return rec, nil
}
