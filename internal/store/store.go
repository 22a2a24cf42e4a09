package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rezkam/queuectl/internal/clock"
	"github.com/rezkam/queuectl/internal/domain"
)

// Store implements the durable job table described in spec.md §4.1. All
// mutating methods are durable before returning (database/sql commits
// synchronously) and a single pooled connection (see Config.MaxOpenConns)
// gives the "serialized, single-writer" guarantee spec.md §5 requires
// without an explicit in-process lock.
type Store struct {
	db *sql.DB
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a new pending job. If run_at is the zero time it defaults to
// clk.NowUTC() (spec.md §4.1).
func (s *Store) Add(ctx context.Context, clk clock.Clock, job *domain.Job) error {
	now := clk.NowUTC()
	runAt := job.RunAt
	if runAt.IsZero() {
		runAt = now
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, command, status, attempts, max_retries, priority, run_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, job.ID, job.Command, domain.StatusPending, 0, job.MaxRetries, job.Priority,
		domain.FormatTime(runAt), domain.FormatTime(now), domain.FormatTime(now))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateID
		}
		return domain.NewStoreError("add", err)
	}
	return nil
}

// Get retrieves a job by id.
func (s *Store) Get(ctx context.Context, id string) (*domain.Job, error) {
	row := s.db.QueryRowContext(ctx, jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStoreError("get", err)
	}
	return job, nil
}

// ListByStatus returns jobs in the given status (or all of them when status
// is domain.StatusAll), newest created_at first.
func (s *Store) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Job, error) {
	var rows *sql.Rows
	var err error
	if status == domain.StatusAll {
		rows, err = s.db.QueryContext(ctx, jobColumns+` FROM jobs ORDER BY created_at DESC`)
	} else {
		rows, err = s.db.QueryContext(ctx, jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at DESC`, status)
	}
	if err != nil {
		return nil, domain.NewStoreError("list_by_status", err)
	}
	defer rows.Close()

	var jobs []*domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, domain.NewStoreError("list_by_status", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("list_by_status", err)
	}
	return jobs, nil
}

// ClaimNext atomically selects the single highest-priority eligible pending
// job (priority DESC, run_at ASC, created_at ASC), transitions it to
// processing, and returns it. Returns (nil, nil) if no job is eligible.
//
// SQLite has no SKIP LOCKED; the single-writer connection pool (Config) plus
// an explicit transaction around the SELECT of the next id and the UPDATE of
// that row gives the same atomicity the teacher achieves with Postgres SKIP
// LOCKED in internal/infrastructure/persistence/postgres/worker_repository.go.
// The ordering of the SELECT mirrors original_source/core/storage.py's
// fetch_next_pending_job.
func (s *Store) ClaimNext(ctx context.Context, clk clock.Clock) (*domain.Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.NewStoreError("claim_next", err)
	}
	defer tx.Rollback()

	now := domain.FormatTime(clk.NowUTC())

	var id string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM jobs
		WHERE status = ? AND run_at <= ?
		ORDER BY priority DESC, run_at ASC, created_at ASC
		LIMIT 1
	`, domain.StatusPending, now).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewStoreError("claim_next", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?
	`, domain.StatusProcessing, now, id); err != nil {
		return nil, domain.NewStoreError("claim_next", err)
	}

	row := tx.QueryRowContext(ctx, jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if err != nil {
		return nil, domain.NewStoreError("claim_next", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.NewStoreError("claim_next", err)
	}
	return job, nil
}

// MarkCompleted transitions a job to completed (spec.md §4.1). Transitions
// are applied unconditionally regardless of current status, per spec.md §4.1
// ("invalid-state transitions ... are tolerated but idempotent").
func (s *Store) MarkCompleted(ctx context.Context, clk clock.Clock, id string) error {
	return s.setStatus(ctx, clk, id, domain.StatusCompleted)
}

// MarkDead transitions a job to dead (the DLQ).
func (s *Store) MarkDead(ctx context.Context, clk clock.Clock, id string) error {
	return s.setStatus(ctx, clk, id, domain.StatusDead)
}

func (s *Store) setStatus(ctx context.Context, clk clock.Clock, id string, status domain.Status) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, updated_at = ? WHERE id = ?
	`, status, domain.FormatTime(clk.NowUTC()), id)
	if err != nil {
		return domain.NewStoreError("set_status", err)
	}
	return nil
}

// Reschedule moves a job back to pending with a new run_at, after a failed
// attempt that still has retries remaining.
func (s *Store) Reschedule(ctx context.Context, clk clock.Clock, id string, nextRunAt time.Time) error {
	now := clk.NowUTC()
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, run_at = ?, updated_at = ? WHERE id = ?
	`, domain.StatusPending, domain.FormatTime(nextRunAt), domain.FormatTime(now), id)
	if err != nil {
		return domain.NewStoreError("reschedule", err)
	}
	return nil
}

// IncrementAttempts bumps a job's attempts counter by one.
func (s *Store) IncrementAttempts(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE jobs SET attempts = attempts + 1 WHERE id = ?`, id)
	if err != nil {
		return domain.NewStoreError("increment_attempts", err)
	}
	return nil
}

// ResetAttempts resets a job's attempts counter to zero and returns it to
// pending. Used by "dlq retry" (spec.md §4.1, §6).
func (s *Store) ResetAttempts(ctx context.Context, clk clock.Clock, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET attempts = 0, status = ?, run_at = ?, updated_at = ? WHERE id = ?
	`, domain.StatusPending, domain.FormatTime(clk.NowUTC()), domain.FormatTime(clk.NowUTC()), id)
	if err != nil {
		return domain.NewStoreError("reset_attempts", err)
	}
	return nil
}

// RecoverOrphans reverts every processing row to pending and stamps
// updated_at with the current time; updated_at is not cleared. Invoked once
// at manager startup to reclaim jobs left processing by a prior crash.
func (s *Store) RecoverOrphans(ctx context.Context, clk clock.Clock) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = ?, updated_at = ? WHERE status = ?
	`, domain.StatusPending, domain.FormatTime(clk.NowUTC()), domain.StatusProcessing)
	if err != nil {
		return 0, domain.NewStoreError("recover_orphans", err)
	}
	return res.RowsAffected()
}

// Summary returns a count of jobs grouped by status.
func (s *Store) Summary(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, domain.NewStoreError("summary", err)
	}
	defer rows.Close()

	out := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, domain.NewStoreError("summary", err)
		}
		out[status] = count
	}
	return out, rows.Err()
}

// PurgeDead deletes every job currently in the dead letter queue.
func (s *Store) PurgeDead(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE status = ?`, domain.StatusDead)
	if err != nil {
		return 0, domain.NewStoreError("purge_dead", err)
	}
	return res.RowsAffected()
}

const jobColumns = `SELECT id, command, status, attempts, max_retries, priority, run_at, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*domain.Job, error) {
	var job domain.Job
	var runAt, createdAt, updatedAt string
	if err := row.Scan(&job.ID, &job.Command, &job.Status, &job.Attempts, &job.MaxRetries,
		&job.Priority, &runAt, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	var err error
	if job.RunAt, err = domain.ParseTime(runAt); err != nil {
		return nil, fmt.Errorf("parse run_at: %w", err)
	}
	if job.CreatedAt, err = domain.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = domain.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &job, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "constraint failed: UNIQUE")
}
