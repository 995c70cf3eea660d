package logging

import (
	"database/sql"
	"fmt"
	"time"
)

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region log-outcome
// LogOutcome writes an entry to the outcome_log table.
func LogOutcome(db *sql.DB, entry OutcomeEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO outcome_log (session_id, version_id, topic, topic_index, is_correct, response_time_ms,
		   difficulty, reward, target_json, decision, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		nullIfEmpty(entry.SessionID),
		nullIfEmpty(entry.VersionID),
		entry.Topic,
		entry.TopicIndex,
		boolToInt(entry.IsCorrect),
		entry.ResponseTimeMs,
		entry.Difficulty,
		entry.Reward,
		nullIfEmpty(entry.TargetJSON),
		entry.Decision,
		nullIfEmpty(entry.Reason),
		entry.CreatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("log outcome: %w", err)
	}
	return nil
}

// #endregion log-outcome

// #region list-outcomes
// ListOutcomes returns logged outcomes in insertion order. An empty sessionID
// selects all sessions; limit <= 0 means no limit.
func ListOutcomes(db *sql.DB, sessionID string, limit int) ([]OutcomeEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.Query(
		`SELECT id, session_id, version_id, topic, topic_index, is_correct, response_time_ms,
		   difficulty, reward, target_json, decision, reason, created_at
		 FROM outcome_log
		 WHERE (? = '' OR session_id = ?)
		 ORDER BY id ASC LIMIT ?`,
		sessionID, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list outcomes: %w", err)
	}
	defer rows.Close()

	var out []OutcomeEntry
	for rows.Next() {
		var e OutcomeEntry
		var session, version, target, reason sql.NullString
		var difficulty, reward sql.NullFloat64
		var correct int
		var created string
		if err := rows.Scan(&e.ID, &session, &version, &e.Topic, &e.TopicIndex, &correct, &e.ResponseTimeMs,
			&difficulty, &reward, &target, &e.Decision, &reason, &created); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		e.SessionID = session.String
		e.VersionID = version.String
		e.TargetJSON = target.String
		e.Reason = reason.String
		e.Difficulty = difficulty.Float64
		e.Reward = reward.Float64
		e.IsCorrect = correct != 0
		e.CreatedAt, _ = time.Parse(timeLayout, created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// #endregion list-outcomes

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// #endregion helpers
