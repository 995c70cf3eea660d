// Package store persists estimator parameter versions and learner sessions
// in SQLite.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/adaptive-tutor/internal/estimator"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS estimator_versions (
	version_id    TEXT PRIMARY KEY,
	parent_id     TEXT,
	params        BLOB NOT NULL,
	shape         TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	metrics_json  TEXT,
	FOREIGN KEY (parent_id) REFERENCES estimator_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_estimator (
	id            INTEGER PRIMARY KEY CHECK (id = 1),
	version_id    TEXT NOT NULL,
	FOREIGN KEY (version_id) REFERENCES estimator_versions(version_id)
);

CREATE TABLE IF NOT EXISTS learner_sessions (
	session_id    TEXT PRIMARY KEY,
	state_json    TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS outcome_log (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id       TEXT,
	version_id       TEXT,
	topic            TEXT NOT NULL,
	topic_index      INTEGER NOT NULL,
	is_correct       INTEGER NOT NULL,
	response_time_ms REAL NOT NULL,
	difficulty       REAL,
	reward           REAL,
	target_json      TEXT,
	decision         TEXT NOT NULL,
	reason           TEXT,
	created_at       TEXT NOT NULL
);
`

// #endregion schema

// #region store-struct
// Store manages estimator versions and sessions in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region commit-estimator
// CommitEstimator inserts a new parameter version and makes it active
// atomically.
func (s *Store) CommitEstimator(rec EstimatorVersion) error {
	shapeJSON, err := json.Marshal(rec.Shape)
	if err != nil {
		return fmt.Errorf("marshal shape: %w", err)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO estimator_versions (version_id, parent_id, params, shape, created_at, metrics_json)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.VersionID, nullIfEmpty(rec.ParentID), rec.Params, string(shapeJSON),
		rec.CreatedAt.UTC().Format(timeLayout), nullIfEmpty(rec.MetricsJSON),
	)
	if err != nil {
		return fmt.Errorf("insert version: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_estimator (id, version_id) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET version_id = excluded.version_id`,
		rec.VersionID,
	)
	if err != nil {
		return fmt.Errorf("set active: %w", err)
	}

	return tx.Commit()
}

// #endregion commit-estimator

// #region get-active
// ActiveEstimator reads the active parameter version. It returns ErrNotFound
// when nothing has been committed yet.
func (s *Store) ActiveEstimator() (EstimatorVersion, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_estimator WHERE id = 1`).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return EstimatorVersion{}, fmt.Errorf("active estimator: %w", ErrNotFound)
	}
	if err != nil {
		return EstimatorVersion{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetEstimatorVersion(versionID)
}

// #endregion get-active

// #region get-version
// GetEstimatorVersion retrieves a specific parameter version by ID.
func (s *Store) GetEstimatorVersion(id string) (EstimatorVersion, error) {
	row := s.db.QueryRow(
		`SELECT version_id, parent_id, params, shape, created_at, metrics_json
		 FROM estimator_versions WHERE version_id = ?`, id,
	)
	rec, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return EstimatorVersion{}, fmt.Errorf("version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return EstimatorVersion{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}

// #endregion get-version

// #region rollback
// RollbackEstimator points the active pointer at a previous version.
func (s *Store) RollbackEstimator(targetVersionID string) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM estimator_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("version %s: %w", targetVersionID, ErrNotFound)
	}

	_, err = s.db.Exec(`UPDATE active_estimator SET version_id = ? WHERE id = 1`, targetVersionID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-versions
// ListEstimatorVersions returns the most recent parameter versions, newest first.
func (s *Store) ListEstimatorVersions(limit int) ([]EstimatorVersion, error) {
	rows, err := s.db.Query(
		`SELECT version_id, parent_id, params, shape, created_at, metrics_json
		 FROM estimator_versions ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []EstimatorVersion
	for rows.Next() {
		rec, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-versions

// #region mlp-helpers
// VersionFromMLP snapshots m as a new version whose parent is parentID.
func VersionFromMLP(parentID string, m *estimator.MLP, metricsJSON string) (EstimatorVersion, error) {
	params, err := m.MarshalBinary()
	if err != nil {
		return EstimatorVersion{}, fmt.Errorf("marshal params: %w", err)
	}
	cfg := m.Config()
	return EstimatorVersion{
		VersionID:   uuid.New().String(),
		ParentID:    parentID,
		Params:      params,
		Shape:       Shape{Inputs: cfg.Inputs, Hidden: cfg.Hidden, Outputs: cfg.Outputs},
		CreatedAt:   time.Now().UTC(),
		MetricsJSON: metricsJSON,
	}, nil
}

// LoadInto restores rec's parameters into m.
func LoadInto(rec EstimatorVersion, m *estimator.MLP) error {
	if err := m.UnmarshalBinary(rec.Params); err != nil {
		return fmt.Errorf("load version %s: %w", rec.VersionID, err)
	}
	return nil
}

// #endregion mlp-helpers

// #region scan
type scanner interface {
	Scan(dest ...any) error
}

func scanVersion(sc scanner) (EstimatorVersion, error) {
	var rec EstimatorVersion
	var parentID sql.NullString
	var shapeJSON string
	var createdStr string
	var metricsJSON sql.NullString

	if err := sc.Scan(&rec.VersionID, &parentID, &rec.Params, &shapeJSON, &createdStr, &metricsJSON); err != nil {
		return EstimatorVersion{}, err
	}
	if parentID.Valid {
		rec.ParentID = parentID.String
	}
	if err := json.Unmarshal([]byte(shapeJSON), &rec.Shape); err != nil {
		return EstimatorVersion{}, fmt.Errorf("unmarshal shape: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	if metricsJSON.Valid {
		rec.MetricsJSON = metricsJSON.String
	}
	return rec, nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion scan
