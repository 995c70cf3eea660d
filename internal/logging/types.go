package logging

import "time"

// #region decisions
// Decision values recorded for each outcome.
const (
	DecisionApplied    = "applied"
	DecisionRejected   = "rejected"
	DecisionRolledBack = "rolled_back"
	DecisionFailed     = "failed"
)

// #endregion decisions

// #region outcome-entry
// OutcomeEntry is a single row in the outcome_log table.
type OutcomeEntry struct {
	ID             int64
	SessionID      string
	VersionID      string
	Topic          string
	TopicIndex     int
	IsCorrect      bool
	ResponseTimeMs float64
	Difficulty     float64
	Reward         float64
	TargetJSON     string
	Decision       string // "applied" | "rejected" | "rolled_back" | "failed"
	Reason         string
	CreatedAt      time.Time
}

// #endregion outcome-entry
