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

// ThreadStore persists conversation threads.
type ThreadStore struct {
	pool *pgxpool.Pool
}

// Create inserts a new thread.
func (s *ThreadStore) Create(ctx context.Context, t *models.Thread) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO threads (id, tenant_id, assistant_id, status, customer_name, customer_phone, created_at, updated_at)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, now(), now())`,
		t.ID, t.TenantID, t.AssistantID, t.Status, t.CustomerName, t.CustomerPhone)
	if err != nil {
		return fmt.Errorf("failed to create thread %s: %w", t.ID, err)
	}
	return nil
}

// Get loads a thread by id.
func (s *ThreadStore) Get(ctx context.Context, threadID string) (*models.Thread, error) {
	var t models.Thread
	var assistantID *string
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, assistant_id, status, customer_name, customer_phone,
		        last_awakening_at, awakening_attempt_count, created_at, updated_at
		 FROM threads WHERE id = $1`,
		threadID).Scan(&t.ID, &t.TenantID, &assistantID, &t.Status, &t.CustomerName,
		&t.CustomerPhone, &t.LastAwakeningAt, &t.AwakeningAttemptCount, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get thread %s: %w", threadID, err)
	}
	if assistantID != nil {
		t.AssistantID = *assistantID
	}
	return &t, nil
}

// TryMarkBusy atomically transitions a thread to busy, binding the assistant
// when one is given. The conditional WHERE makes this the mutual-exclusion
// point: only one caller wins when several race on the same thread. A failed
// thread is claimable, so the next user turn recovers it. Returns false only
// while the thread is busy.
func (s *ThreadStore) TryMarkBusy(ctx context.Context, threadID, assistantID string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE threads
		 SET status = 'busy',
		     assistant_id = COALESCE(NULLIF($2, ''), assistant_id),
		     updated_at = now()
		 WHERE id = $1 AND status IN ('idle', 'active', 'failed')`,
		threadID, assistantID)
	if err != nil {
		return false, fmt.Errorf("failed to mark thread %s busy: %w", threadID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetStatus unconditionally updates the thread status.
func (s *ThreadStore) SetStatus(ctx context.Context, threadID string, status models.ThreadStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE threads SET status = $2, updated_at = now() WHERE id = $1`,
		threadID, status)
	if err != nil {
		return fmt.Errorf("failed to set thread %s status: %w", threadID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AwakeningCandidates returns up to limit threads eligible for a proactive
// wake-up: assistant bound, attempts below the cap, and no awakening within
// the retry interval. Busy and failed threads are skipped.
func (s *ThreadStore) AwakeningCandidates(ctx context.Context, olderThan time.Time, maxAttempts, limit int) ([]models.AwakeningCandidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, assistant_id, awakening_attempt_count, last_awakening_at
		 FROM threads
		 WHERE assistant_id IS NOT NULL
		   AND status IN ('idle', 'active')
		   AND awakening_attempt_count < $1
		   AND (last_awakening_at IS NULL OR last_awakening_at < $2)
		 ORDER BY last_awakening_at ASC NULLS FIRST
		 LIMIT $3`,
		maxAttempts, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list awakening candidates: %w", err)
	}
	defer rows.Close()

	var out []models.AwakeningCandidate
	for rows.Next() {
		var c models.AwakeningCandidate
		if err := rows.Scan(&c.ThreadID, &c.TenantID, &c.AssistantID, &c.AwakeningAttemptCount, &c.LastAwakeningAt); err != nil {
			return nil, fmt.Errorf("failed to scan awakening candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecordAwakening bumps the attempt counter and timestamp after a delivered
// wake-up.
func (s *ThreadStore) RecordAwakening(ctx context.Context, threadID string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE threads
		 SET awakening_attempt_count = awakening_attempt_count + 1,
		     last_awakening_at = now(),
		     updated_at = now()
		 WHERE id = $1`,
		threadID)
	if err != nil {
		return fmt.Errorf("failed to record awakening for thread %s: %w", threadID, err)
	}
	return nil
}
