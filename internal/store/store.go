// Package store keeps a history of download runs in a SQLite database.
//
// The ledger is informational only: whether a file needs downloading is
// always decided by its presence on disk, never by this database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/iamfaazi/savemyexam-downloader/internal/download"
	_ "modernc.org/sqlite"
)

// ErrRunNotFound is returned by Run for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Store is the run ledger.
type Store struct {
	db *sql.DB
}

// RunRecord is one stored run.
type RunRecord struct {
	ID         string
	Root       string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Downloaded int

	// Subjects and Failures are only filled by Run.
	Subjects []SubjectRecord
	Failures []FailureRecord
}

// Duration returns how long the run took.
func (r RunRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// SubjectRecord is a subject's final state within a run.
type SubjectRecord struct {
	SubjectID     string
	Title         string
	Level         string
	ResourceURL   string
	Total         int
	Downloaded    int
	SavedLocation string
	Completed     bool
}

// FailureRecord is a leaf that never downloaded.
type FailureRecord struct {
	SubjectID string
	Title     string
	Path      string
	Error     string
	Passes    int
}

// Open opens (or creates) the ledger at dbPath and applies migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.RunMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a finished run with its subjects and permanent failures.
func (s *Store) SaveRun(ctx context.Context, sum *download.Summary) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs (id, root, started_at, finished_at, total, downloaded)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sum.RunID, sum.Root, sum.StartedAt.UnixMilli(), sum.FinishedAt.UnixMilli(), sum.Total(), sum.Downloaded(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, sub := range sum.Subjects {
		_, err := tx.ExecContext(ctx,
			`INSERT OR REPLACE INTO run_subjects
			 (run_id, subject_id, title, level, resource_url, total, downloaded, saved_location, completed)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sum.RunID, sub.ID, sub.Title, sub.Level, sub.ResourceURL,
			sub.TotalCount, sub.DownloadedCount, sub.SavedLocation, sub.Completed,
		)
		if err != nil {
			return fmt.Errorf("insert subject %s: %w", sub.Title, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM run_failures WHERE run_id = ?`, sum.RunID); err != nil {
		return fmt.Errorf("clear failures: %w", err)
	}
	for _, f := range sum.Failures {
		msg := ""
		if f.Err != nil {
			msg = f.Err.Error()
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_failures (run_id, subject_id, title, path, error, passes)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sum.RunID, f.SubjectID, f.Leaf.Title, f.DestPath(), msg, f.Passes,
		)
		if err != nil {
			return fmt.Errorf("insert failure %s: %w", f.Leaf.Title, err)
		}
	}

	return tx.Commit()
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT id, root, started_at, finished_at, total, downloaded FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Run returns one run with its subjects and failures.
func (s *Store) Run(ctx context.Context, id string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, root, started_at, finished_at, total, downloaded FROM runs WHERE id = ? LIMIT 1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	if r.Subjects, err = s.subjects(ctx, id); err != nil {
		return nil, err
	}
	if r.Failures, err = s.failures(ctx, id); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) subjects(ctx context.Context, runID string) ([]SubjectRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject_id, title, level, resource_url, total, downloaded, saved_location, completed
		 FROM run_subjects WHERE run_id = ? ORDER BY title`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SubjectRecord
	for rows.Next() {
		var sub SubjectRecord
		if err := rows.Scan(&sub.SubjectID, &sub.Title, &sub.Level, &sub.ResourceURL,
			&sub.Total, &sub.Downloaded, &sub.SavedLocation, &sub.Completed); err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) failures(ctx context.Context, runID string) ([]FailureRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subject_id, title, path, error, passes FROM run_failures WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FailureRecord
	for rows.Next() {
		var f FailureRecord
		if err := rows.Scan(&f.SubjectID, &f.Title, &f.Path, &f.Error, &f.Passes); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunRecord, error) {
	var (
		r                 RunRecord
		started, finished int64
	)
	if err := sc.Scan(&r.ID, &r.Root, &started, &finished, &r.Total, &r.Downloaded); err != nil {
		return RunRecord{}, err
	}
	r.StartedAt = time.UnixMilli(started)
	r.FinishedAt = time.UnixMilli(finished)
	return r, nil
}
