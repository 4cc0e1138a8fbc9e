package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solyn-ai/solyn/pkg/models"
)

// RunStore records workflow executions for status lookups and async
// completion callbacks.
type RunStore struct {
	pool *pgxpool.Pool
}

// Create inserts a run in its initial status.
func (s *RunStore) Create(ctx context.Context, r *models.WorkflowRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO workflow_runs (id, tenant_id, thread_id, assistant_id, status, started_at)
		 VALUES ($1, $2, $3, $4, $5, now())`,
		r.ID, r.TenantID, r.ThreadID, r.AssistantID, r.Status)
	if err != nil {
		return fmt.Errorf("failed to create run %s: %w", r.ID, err)
	}
	return nil
}

// MarkRunning transitions a pending run to running when a worker picks it up.
func (s *RunStore) MarkRunning(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE workflow_runs SET status = $2 WHERE id = $1 AND status = $3`,
		runID, models.RunRunning, models.RunPending)
	if err != nil {
		return fmt.Errorf("failed to mark run %s running: %w", runID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Finish records the terminal outcome of a run.
func (s *RunStore) Finish(ctx context.Context, r *models.WorkflowRun) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE workflow_runs
		 SET status = $2, output = $3, error_message = $4,
		     input_tokens = $5, output_tokens = $6, finished_at = now()
		 WHERE id = $1`,
		r.ID, r.Status, r.Output, r.ErrorMessage, r.InputTokens, r.OutputTokens)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get loads a run scoped by tenant.
func (s *RunStore) Get(ctx context.Context, tenantID, runID string) (*models.WorkflowRun, error) {
	var r models.WorkflowRun
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, thread_id, assistant_id, status, output, error_message,
		        input_tokens, output_tokens, started_at, finished_at
		 FROM workflow_runs WHERE id = $1 AND tenant_id = $2`,
		runID, tenantID).Scan(&r.ID, &r.TenantID, &r.ThreadID, &r.AssistantID, &r.Status,
		&r.Output, &r.ErrorMessage, &r.InputTokens, &r.OutputTokens, &r.StartedAt, &r.FinishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return &r, nil
}
