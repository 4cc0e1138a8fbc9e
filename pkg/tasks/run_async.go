package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/services"
)

// runExecutor is the run service surface the handler needs, implemented by
// services.RunService.
type runExecutor interface {
	ExecuteExisting(ctx context.Context, runID string, req services.RunRequest) (*services.RunResult, error)
	FailRun(ctx context.Context, runID, errMsg string) error
}

// AsyncRunner executes run_async jobs: the deferred half of the
// POST /runs/async path. The workflow result, success or failure, is
// delivered to the upstream system via callback.
type AsyncRunner struct {
	runs   runExecutor
	sender *CallbackSender
}

// NewAsyncRunner creates the run_async job handler.
func NewAsyncRunner(runs runExecutor, sender *CallbackSender) *AsyncRunner {
	return &AsyncRunner{runs: runs, sender: sender}
}

// Handle executes the deferred run. A busy thread retries the job until its
// attempts run out; any terminal outcome marks the run failed and notifies
// upstream. Workflow failures deliver a failed callback and complete the
// job, since the run outcome is already durable.
func (a *AsyncRunner) Handle(ctx context.Context, job *models.Job) error {
	var payload models.RunAsyncPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return services.NewValidationError("payload", fmt.Sprintf("malformed run payload: %v", err))
	}

	result, err := a.runs.ExecuteExisting(ctx, payload.RunID, services.RunRequest{
		TenantID:    job.TenantID,
		ThreadID:    job.ThreadID,
		AssistantID: payload.AssistantID,
		Messages:    payload.Messages,
	})
	if err != nil && result == nil {
		if errors.Is(err, services.ErrThreadBusy) && !finalAttempt(job) {
			return err
		}
		// The run never started and will not be retried again; record the
		// failure, tell upstream, then surface the error so the runner can
		// settle the job.
		if ferr := a.runs.FailRun(ctx, payload.RunID, err.Error()); ferr != nil {
			slog.Error("Failed to fail run", "run_id", payload.RunID, "error", ferr)
		}
		a.deliver(ctx, failedRun(job, payload, err))
		return err
	}

	a.deliver(ctx, result.Run)
	return nil
}

// finalAttempt reports whether the runner will fail this job instead of
// retrying it once the handler returns an error.
func finalAttempt(job *models.Job) bool {
	return job.MaxAttempts > 0 && job.Attempts >= job.MaxAttempts
}

// deliver posts the run outcome. Exhausted callback retries are logged, not
// propagated: re-running the job would re-execute the workflow.
func (a *AsyncRunner) deliver(ctx context.Context, run *models.WorkflowRun) {
	if err := a.sender.Send(ctx, EndpointRun, runEnvelope(run, "run_async")); err != nil {
		slog.Error("Run callback delivery failed",
			"run_id", run.ID, "thread_id", run.ThreadID, "error", err)
	}
}

// failedRun synthesizes a terminal run record for failures before execution
// started (the stored row is finished separately by the run service when it
// got that far).
func failedRun(job *models.Job, payload models.RunAsyncPayload, err error) *models.WorkflowRun {
	return &models.WorkflowRun{
		ID:           payload.RunID,
		TenantID:     job.TenantID,
		ThreadID:     job.ThreadID,
		AssistantID:  payload.AssistantID,
		Status:       models.RunFailed,
		ErrorMessage: err.Error(),
	}
}
