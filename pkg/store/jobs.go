package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solyn-ai/solyn/pkg/models"
)

// JobStore is the durable queue table. Workers claim due jobs with
// FOR UPDATE SKIP LOCKED so concurrent pollers never double-claim.
type JobStore struct {
	pool *pgxpool.Pool
}

// Enqueue inserts a pending job. Returns 0 when a unique constraint made the
// insert a no-op (a live preservation job for the thread, or an already
// pending schedule row).
func (s *JobStore) Enqueue(ctx context.Context, job *models.Job) (int64, error) {
	payload := job.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO jobs (kind, tenant_id, thread_id, payload, status, run_at, max_attempts, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, 'pending', $5, $6, now(), now())
		 ON CONFLICT DO NOTHING
		 RETURNING id`,
		job.Kind, job.TenantID, job.ThreadID, payload, job.RunAt, job.MaxAttempts).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to enqueue %s job: %w", job.Kind, err)
	}
	return id, nil
}

// ClaimDue atomically claims up to limit due pending jobs, bumping their
// attempt counters. The inner SELECT uses SKIP LOCKED so parallel workers
// partition the queue instead of contending.
func (s *JobStore) ClaimDue(ctx context.Context, limit int) ([]models.Job, error) {
	rows, err := s.pool.Query(ctx,
		`UPDATE jobs
		 SET status = 'claimed', claimed_at = now(), attempts = attempts + 1, updated_at = now()
		 WHERE id IN (
		     SELECT id FROM jobs
		     WHERE status = 'pending' AND run_at <= now()
		     ORDER BY run_at
		     LIMIT $1
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING id, kind, tenant_id, thread_id, payload, status, run_at,
		           attempts, max_attempts, last_error, created_at, updated_at`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.Job
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.Kind, &j.TenantID, &j.ThreadID, &j.Payload, &j.Status,
			&j.RunAt, &j.Attempts, &j.MaxAttempts, &j.LastError, &j.CreatedAt, &j.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Complete marks a claimed job done.
func (s *JobStore) Complete(ctx context.Context, id int64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'completed', last_error = '', updated_at = now() WHERE id = $1`,
		id)
	if err != nil {
		return fmt.Errorf("failed to complete job %d: %w", id, err)
	}
	return nil
}

// Retry releases a claimed job back to pending with a new due time after a
// recoverable failure.
func (s *JobStore) Retry(ctx context.Context, id int64, jobErr string, runAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'pending', last_error = $2, run_at = $3, claimed_at = NULL, updated_at = now()
		 WHERE id = $1`,
		id, jobErr, runAt)
	if err != nil {
		return fmt.Errorf("failed to retry job %d: %w", id, err)
	}
	return nil
}

// Fail marks a job permanently failed.
func (s *JobStore) Fail(ctx context.Context, id int64, jobErr string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE jobs SET status = 'failed', last_error = $2, updated_at = now() WHERE id = $1`,
		id, jobErr)
	if err != nil {
		return fmt.Errorf("failed to fail job %d: %w", id, err)
	}
	return nil
}

// ReleaseStale returns claimed jobs whose worker died back to pending.
// Called by the cleanup loop.
func (s *JobStore) ReleaseStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE jobs
		 SET status = 'pending', claimed_at = NULL, updated_at = now()
		 WHERE status = 'claimed' AND claimed_at < now() - ($1 * interval '1 second')`,
		olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("failed to release stale jobs: %w", err)
	}
	return tag.RowsAffected(), nil
}
