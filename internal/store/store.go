// Package store handles SQLite persistence of the run history.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/lstmtune/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps SQLite access for run history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			stage INTEGER NOT NULL,
			lang TEXT NOT NULL,
			new_lang TEXT NOT NULL,
			output_dir TEXT NOT NULL,
			started_at TEXT NOT NULL,
			ended_at TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			error TEXT NOT NULL DEFAULT '',
			log_file TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS run_progress (
			run_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			iteration INTEGER NOT NULL,
			learning_iteration INTEGER NOT NULL,
			training_iteration INTEGER NOT NULL,
			mean_rms REAL NOT NULL,
			delta REAL NOT NULL,
			bcer REAL NOT NULL,
			bwer REAL NOT NULL,
			skip_ratio REAL NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// StartRun records a stage run as running and returns it with its new ID.
func (s *Store) StartRun(ctx context.Context, run model.Run) (model.Run, error) {
	run.ID = uuid.NewString()
	if run.StartedAt.IsZero() {
		run.StartedAt = s.now()
	}
	run.Status = model.RunRunning
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, stage, lang, new_lang, output_dir, started_at, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		int(run.Stage),
		run.Lang,
		run.NewLang,
		run.OutputDir,
		run.StartedAt.UTC().Format(timeLayout),
		string(run.Status),
	)
	if err != nil {
		return model.Run{}, err
	}
	return run, nil
}

// FinishRun stores the outcome of a run started with StartRun.
func (s *Store) FinishRun(ctx context.Context, run model.Run) error {
	if run.EndedAt.IsZero() {
		run.EndedAt = s.now()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET ended_at = ?, status = ?, error = ?, log_file = ? WHERE id = ?`,
		run.EndedAt.UTC().Format(timeLayout),
		string(run.Status),
		run.Error,
		run.LogFile,
		run.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s not found", run.ID)
	}
	return nil
}

// AddProgress appends a training progress report to a run.
func (s *Store) AddProgress(ctx context.Context, runID string, p model.Progress) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO run_progress (run_id, seq, iteration, learning_iteration, training_iteration, mean_rms, delta, bcer, bwer, skip_ratio)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM run_progress WHERE run_id = ?), ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, runID,
		p.Iteration, p.LearningIteration, p.TrainingIteration,
		p.MeanRMS, p.Delta, p.BCER, p.BWER, p.SkipRatio,
	)
	return err
}

// ListRuns returns runs matching filter, oldest first.
func (s *Store) ListRuns(ctx context.Context, filter model.RunFilter) ([]model.Run, error) {
	clauses := []string{"1=1"}
	args := []any{}
	if filter.Stage != nil {
		clauses = append(clauses, "stage = ?")
		args = append(args, int(*filter.Stage))
	}
	if filter.Lang != "" {
		clauses = append(clauses, "(lang = ? OR new_lang = ?)")
		args = append(args, filter.Lang, filter.Lang)
	}
	if filter.Since != nil {
		clauses = append(clauses, "started_at >= ?")
		args = append(args, filter.Since.UTC().Format(timeLayout))
	}
	query := fmt.Sprintf(`SELECT id, stage, lang, new_lang, output_dir, started_at, ended_at, status, error, log_file
		FROM runs
		WHERE %s
		ORDER BY started_at ASC`, strings.Join(clauses, " AND "))
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		var stage int
		var startedAt, endedAt, status string
		if err := rows.Scan(&run.ID, &stage, &run.Lang, &run.NewLang, &run.OutputDir, &startedAt, &endedAt, &status, &run.Error, &run.LogFile); err != nil {
			return nil, err
		}
		run.Stage = model.Stage(stage)
		run.Status = model.RunStatus(status)
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, startedAt); err != nil {
			return nil, err
		}
		if endedAt != "" {
			if run.EndedAt, err = time.Parse(time.RFC3339Nano, endedAt); err != nil {
				return nil, err
			}
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if filter.Last > 0 && len(runs) > filter.Last {
		runs = runs[len(runs)-filter.Last:]
	}
	return runs, nil
}

// ListProgress returns the progress reports of a run in arrival order.
func (s *Store) ListProgress(ctx context.Context, runID string) ([]model.Progress, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT iteration, learning_iteration, training_iteration, mean_rms, delta, bcer, bwer, skip_ratio
		 FROM run_progress
		 WHERE run_id = ?
		 ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.Progress
	for rows.Next() {
		var p model.Progress
		if err := rows.Scan(&p.Iteration, &p.LearningIteration, &p.TrainingIteration, &p.MeanRMS, &p.Delta, &p.BCER, &p.BWER, &p.SkipRatio); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
