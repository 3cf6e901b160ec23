package crew

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"bankcrew/pkg/core"
	"bankcrew/pkg/errors"
)

// Store persists crew runs and their task outputs in SQLite. Replay reads
// prior outputs from it, train and test record their iterations in it.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the run store at path and ensures the schema.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.New(errors.CodeInternal, "opening run store", err).
			WithContext("path", path)
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, errors.New(errors.CodeInternal, "ensuring run store schema", err).
			WithContext("path", path)
	}
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing database handle, ensuring the schema.
func NewStoreWithDB(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New(errors.CodeInvalidInput, "db is nil", nil)
	}
	if err := ensureSchema(db); err != nil {
		return nil, errors.New(errors.CodeInternal, "ensuring run store schema", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS crew_runs (
			run_id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			topic TEXT,
			status TEXT NOT NULL,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS task_outputs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			task_name TEXT NOT NULL,
			agent TEXT NOT NULL,
			status TEXT NOT NULL,
			output TEXT,
			error_text TEXT,
			created_at TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS training_feedback (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			iteration INTEGER NOT NULL,
			task_name TEXT NOT NULL,
			output TEXT,
			feedback TEXT,
			created_at TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS test_scores (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			iteration INTEGER NOT NULL,
			task_name TEXT NOT NULL,
			score REAL NOT NULL,
			comment TEXT,
			created_at TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_task_outputs_run ON task_outputs(run_id);
		CREATE INDEX IF NOT EXISTS idx_training_feedback_run ON training_feedback(run_id);
		CREATE INDEX IF NOT EXISTS idx_test_scores_run ON test_scores(run_id);
	`)
	return err
}

// BeginRun records the start of a crew run.
func (s *Store) BeginRun(ctx context.Context, runID, kind, topic string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crew_runs (run_id, kind, topic, status, started_at)
		VALUES (?, ?, ?, 'running', ?)
	`, runID, kind, topic, time.Now().UTC())
	return err
}

// FinishRun records the terminal status of a crew run.
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE crew_runs SET status = ?, finished_at = ? WHERE run_id = ?
	`, status, time.Now().UTC(), runID)
	return err
}

// SaveTaskOutput persists one executed task.
func (s *Store) SaveTaskOutput(ctx context.Context, runID string, position int, task *core.Task) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO task_outputs (run_id, position, task_name, agent, status, output, error_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, position, task.Name, task.AssignedTo, string(task.Status), task.Result, task.Error, time.Now().UTC())
	return err
}

// TaskRecord is a stored task output.
type TaskRecord struct {
	RunID    string
	Position int
	TaskName string
	Agent    string
	Status   string
	Output   string
	Error    string
}

// TaskOutputs returns the stored outputs of a run in execution order.
func (s *Store) TaskOutputs(ctx context.Context, runID string) ([]TaskRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, position, task_name, agent, status, output, error_text
		FROM task_outputs WHERE run_id = ? ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []TaskRecord
	for rows.Next() {
		var r TaskRecord
		if err := rows.Scan(&r.RunID, &r.Position, &r.TaskName, &r.Agent, &r.Status, &r.Output, &r.Error); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// LatestRunID returns the most recent run of the given kind, or empty when
// none exists.
func (s *Store) LatestRunID(ctx context.Context, kind string) (string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id FROM crew_runs WHERE kind = ? ORDER BY started_at DESC, rowid DESC LIMIT 1
	`, kind).Scan(&runID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return runID, err
}

// SaveFeedback records human feedback on a training iteration.
func (s *Store) SaveFeedback(ctx context.Context, runID string, iteration int, taskName, output, feedback string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO training_feedback (run_id, iteration, task_name, output, feedback, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, iteration, taskName, output, feedback, time.Now().UTC())
	return err
}

// SaveScore records an evaluator score for a test iteration.
func (s *Store) SaveScore(ctx context.Context, runID string, iteration int, taskName string, score float64, comment string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO test_scores (run_id, iteration, task_name, score, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, runID, iteration, taskName, score, comment, time.Now().UTC())
	return err
}

// Score is one stored evaluation.
type Score struct {
	Iteration int
	TaskName  string
	Score     float64
	Comment   string
}

// Scores returns the evaluations of a test run in insertion order.
func (s *Store) Scores(ctx context.Context, runID string) ([]Score, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT iteration, task_name, score, comment FROM test_scores
		WHERE run_id = ? ORDER BY rowid ASC
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []Score
	for rows.Next() {
		var sc Score
		if err := rows.Scan(&sc.Iteration, &sc.TaskName, &sc.Score, &sc.Comment); err != nil {
			return nil, err
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}
