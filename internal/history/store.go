package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"batchmux/internal/batch"
	"batchmux/internal/services"
)

// Store persists batch runs.
type Store struct {
	db   *sql.DB
	path string
}

// Batch is an archived run.
type Batch struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	OutputDir  string
	Extension  string
	Naming     string
	Total      int
	Completed  int
	Failed     int
	Canceled   bool
	Jobs       []Job
}

// Job is an archived job outcome.
type Job struct {
	Index    int
	Input    string
	Output   string
	Status   string
	Error    string
	Duration time.Duration
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open creates or opens the archive at path.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: history path is empty", services.ErrConfiguration)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record archives a finished run. Runs that never started are ignored.
func (s *Store) Record(ctx context.Context, req batch.Request, result batch.Result) error {
	if result.State == batch.StateNotStarted {
		return nil
	}
	if strings.TrimSpace(result.BatchID) == "" {
		return fmt.Errorf("%w: batch id is required", services.ErrValidation)
	}
	return retryOnBusy(ctx, func() error {
		return s.insertRun(ctx, req, result)
	})
}

func (s *Store) insertRun(ctx context.Context, req batch.Request, result batch.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO batches
		(id, started_at, finished_at, output_dir, extension, naming, total, completed, failed, canceled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.BatchID,
		formatTime(result.StartedAt),
		formatTime(result.FinishedAt),
		req.OutputDirectory,
		req.Extension,
		req.Policy.String(),
		result.Total,
		result.Completed,
		len(result.Failures),
		boolToInt(result.Canceled),
	); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for _, outcome := range result.Outcomes {
		errText := ""
		if outcome.Err != nil {
			errText = outcome.Err.Error()
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO jobs
			(batch_id, job_index, input_path, output_path, status, error, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			result.BatchID,
			outcome.Job.Index,
			outcome.Job.InputPath,
			outcome.Job.OutputPath,
			string(outcome.Status),
			errText,
			outcome.Duration.Milliseconds(),
		); err != nil {
			return fmt.Errorf("insert job %d: %w", outcome.Job.Index, err)
		}
	}
	return tx.Commit()
}

const batchColumns = `id, started_at, finished_at, output_dir, extension, naming, total, completed, failed, canceled`

// List returns the most recent runs, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Batch, error) {
	query := "SELECT " + batchColumns + " FROM batches ORDER BY started_at DESC, id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var batches []Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

// Get returns one run with its jobs. A unique ID prefix is accepted.
func (s *Store) Get(ctx context.Context, id string) (*Batch, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: batch id is required", services.ErrValidation)
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+batchColumns+" FROM batches WHERE id = ? OR id LIKE ? ORDER BY id = ? DESC LIMIT 2",
		id, stripLikeWildcards(id)+"%", id)
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	var matches []Batch
	for rows.Next() {
		b, scanErr := scanBatch(rows)
		if scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		matches = append(matches, b)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: batch %s", services.ErrNotFound, id)
	case len(matches) > 1 && matches[0].ID != id:
		return nil, fmt.Errorf("%w: batch id prefix %q is ambiguous", services.ErrValidation, id)
	}

	b := matches[0]
	jobs, err := s.jobs(ctx, b.ID)
	if err != nil {
		return nil, err
	}
	b.Jobs = jobs
	return &b, nil
}

func (s *Store) jobs(ctx context.Context, batchID string) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT job_index, input_path, output_path, status, error, duration_ms
		FROM jobs WHERE batch_id = ? ORDER BY job_index`, batchID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			j          Job
			durationMS int64
		)
		if err := rows.Scan(&j.Index, &j.Input, &j.Output, &j.Status, &j.Error, &durationMS); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		j.Duration = time.Duration(durationMS) * time.Millisecond
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(row scanner) (Batch, error) {
	var (
		b                 Batch
		started, finished string
		canceled          int
	)
	if err := row.Scan(&b.ID, &started, &finished, &b.OutputDir, &b.Extension, &b.Naming,
		&b.Total, &b.Completed, &b.Failed, &canceled); err != nil {
		return Batch{}, fmt.Errorf("scan batch: %w", err)
	}
	b.StartedAt = parseTime(started)
	b.FinishedAt = parseTime(finished)
	b.Canceled = canceled != 0
	return b, nil
}

// timeLayout is fixed width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func stripLikeWildcards(s string) string {
	r := strings.NewReplacer("%", "", "_", "")
	return r.Replace(s)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
