package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/solyn-ai/solyn/pkg/agent"
	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/memory"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/store"
	"github.com/solyn-ai/solyn/pkg/workflow"
)

// SpeechSynthesizer turns a reply into an audio artifact and returns its URL.
// Wired in when a TTS backend is configured; nil disables audio output.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voiceID string) (string, error)
}

// RunService orchestrates one conversation turn: take the busy lock, record
// the run, feed the turn into short-term memory, execute the workflow graph,
// and release the thread. The async variant defers execution to a durable
// job so the HTTP request returns immediately.
type RunService struct {
	guard        *RunGuard
	engine       *workflow.Engine
	mem          *memory.Manager
	runs         *store.RunStore
	jobs         *store.JobStore
	speech       SpeechSynthesizer
	preservation *config.PreservationConfig
	jobAttempts  int
}

// NewRunService creates a RunService. speech may be nil.
func NewRunService(guard *RunGuard, engine *workflow.Engine, mem *memory.Manager,
	runs *store.RunStore, jobs *store.JobStore, speech SpeechSynthesizer,
	preservation *config.PreservationConfig, tasks *config.TasksConfig) *RunService {
	return &RunService{
		guard:        guard,
		engine:       engine,
		mem:          mem,
		runs:         runs,
		jobs:         jobs,
		speech:       speech,
		preservation: preservation,
		jobAttempts:  tasks.MaxAttempts,
	}
}

// RunRequest is one conversation turn to execute.
type RunRequest struct {
	TenantID    string
	ThreadID    string
	AssistantID string // optional, falls back to the thread's bound assistant
	Messages    []models.Message
}

func (r RunRequest) validate() error {
	if len(r.Messages) == 0 {
		return NewValidationError("messages", "at least one message is required")
	}
	for _, m := range r.Messages {
		if m.Role != models.RoleUser {
			return NewValidationError("messages", "run input must be user messages")
		}
	}
	return nil
}

// RunResult pairs the recorded run with the final workflow state.
type RunResult struct {
	Run   *models.WorkflowRun
	State *workflow.State
}

// Execute runs one turn synchronously and returns when the workflow
// finishes. The run row is recorded either way; on a workflow failure the
// thread is left in failed status and the workflow error is returned
// alongside the partial result.
func (s *RunService) Execute(ctx context.Context, req RunRequest) (*RunResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	thread, assistant, err := s.guard.Acquire(ctx, req.TenantID, req.ThreadID, req.AssistantID)
	if err != nil {
		return nil, err
	}

	run := &models.WorkflowRun{
		ID:          uuid.NewString(),
		TenantID:    req.TenantID,
		ThreadID:    thread.ID,
		AssistantID: assistant.ID,
		Status:      models.RunRunning,
		StartedAt:   time.Now(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.guard.Release(thread.ID, false)
		return nil, err
	}
	return s.run(ctx, run, assistant, req.Messages)
}

// ExecuteAsync validates the turn, records a pending run, and enqueues a
// durable job that will execute it and deliver the result via callback.
func (s *RunService) ExecuteAsync(ctx context.Context, req RunRequest) (*models.WorkflowRun, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	thread, assistant, err := s.guard.Validate(ctx, req.TenantID, req.ThreadID, req.AssistantID)
	if err != nil {
		return nil, err
	}

	run := &models.WorkflowRun{
		ID:          uuid.NewString(),
		TenantID:    req.TenantID,
		ThreadID:    thread.ID,
		AssistantID: assistant.ID,
		Status:      models.RunPending,
		StartedAt:   time.Now(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(models.RunAsyncPayload{
		RunID:       run.ID,
		AssistantID: assistant.ID,
		Messages:    req.Messages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode run payload: %w", err)
	}
	_, err = s.jobs.Enqueue(ctx, &models.Job{
		Kind:        models.JobRunAsync,
		TenantID:    req.TenantID,
		ThreadID:    thread.ID,
		Payload:     payload,
		RunAt:       time.Now(),
		MaxAttempts: s.jobAttempts,
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ExecuteExisting executes a turn against a run row created by ExecuteAsync.
// Called from the run_async job handler.
func (s *RunService) ExecuteExisting(ctx context.Context, runID string, req RunRequest) (*RunResult, error) {
	thread, assistant, err := s.guard.Acquire(ctx, req.TenantID, req.ThreadID, req.AssistantID)
	if err != nil {
		return nil, err
	}
	if err := s.runs.MarkRunning(ctx, runID); err != nil {
		s.guard.Release(thread.ID, false)
		return nil, err
	}

	run := &models.WorkflowRun{
		ID:          runID,
		TenantID:    req.TenantID,
		ThreadID:    thread.ID,
		AssistantID: assistant.ID,
		Status:      models.RunRunning,
		StartedAt:   time.Now(),
	}
	return s.run(ctx, run, assistant, req.Messages)
}

// FailRun records a terminal failure for a run that never executed, e.g.
// when the deferred job exhausted its busy-wait retries.
func (s *RunService) FailRun(ctx context.Context, runID, errMsg string) error {
	now := time.Now()
	return s.runs.Finish(ctx, &models.WorkflowRun{
		ID:           runID,
		Status:       models.RunFailed,
		ErrorMessage: errMsg,
		FinishedAt:   &now,
	})
}

// GetRun loads a run scoped by tenant.
func (s *RunService) GetRun(ctx context.Context, tenantID, runID string) (*models.WorkflowRun, error) {
	run, err := s.runs.Get(ctx, tenantID, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// run executes the workflow with the busy lock already held. It always
// finishes the run row and releases the thread.
func (s *RunService) run(ctx context.Context, run *models.WorkflowRun,
	assistant *models.Assistant, msgs []models.Message) (*RunResult, error) {
	if _, err := s.mem.Append(ctx, run.TenantID, run.ThreadID, msgs...); err != nil {
		s.finish(run, models.RunFailed, nil, err.Error())
		s.guard.Release(run.ThreadID, true)
		return nil, fmt.Errorf("failed to buffer turn input: %w", err)
	}
	s.schedulePreservation(ctx, run.TenantID, run.ThreadID)

	state := workflow.NewState(run.ID, run.TenantID, run.ThreadID, assistant.ID, msgs)
	state, runErr := s.engine.Run(ctx, state)
	if runErr != nil {
		s.finish(run, models.RunFailed, state, state.ErrorMessage)
		s.guard.Release(run.ThreadID, true)
		return &RunResult{Run: run, State: state}, runErr
	}

	s.synthesizeAudio(ctx, assistant, state)
	s.finish(run, models.RunCompleted, state, "")
	s.guard.Release(run.ThreadID, false)
	return &RunResult{Run: run, State: state}, nil
}

func (s *RunService) finish(run *models.WorkflowRun, status models.RunStatus,
	state *workflow.State, errMsg string) {
	run.Status = status
	run.ErrorMessage = errMsg
	if state != nil {
		run.Output = state.Output
		run.InputTokens = state.InputTokens
		run.OutputTokens = state.OutputTokens
	}
	now := time.Now()
	run.FinishedAt = &now

	// Detached context: a cancelled request must not lose the run record.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.runs.Finish(ctx, run); err != nil {
		slog.Error("Failed to record run outcome", "run_id", run.ID, "error", err)
	}
}

// schedulePreservation defers a preservation check for this thread. The
// partial unique index makes repeat scheduling a no-op while one is live.
func (s *RunService) schedulePreservation(ctx context.Context, tenantID, threadID string) {
	id, err := s.jobs.Enqueue(ctx, &models.Job{
		Kind:        models.JobPreservation,
		TenantID:    tenantID,
		ThreadID:    threadID,
		RunAt:       time.Now().Add(s.preservation.Wait),
		MaxAttempts: s.jobAttempts,
	})
	if err != nil {
		slog.Warn("Failed to schedule preservation", "thread_id", threadID, "error", err)
		return
	}
	if id != 0 {
		slog.Debug("Scheduled preservation", "thread_id", threadID, "job_id", id)
	}
}

// synthesizeAudio voices the reply when the intent agent asked for it.
// Synthesis failures degrade to text-only output.
func (s *RunService) synthesizeAudio(ctx context.Context, assistant *models.Assistant, state *workflow.State) {
	if s.speech == nil || assistant.VoiceID == "" || state.Output == "" {
		return
	}
	if !slices.Contains(state.Actions, agent.ActionEmitAudio) {
		return
	}
	url, err := s.speech.Synthesize(ctx, state.Output, assistant.VoiceID)
	if err != nil {
		slog.Warn("Speech synthesis failed", "workflow_id", state.WorkflowID, "error", err)
		return
	}
	state.MultimodalOutputs = append(state.MultimodalOutputs,
		models.MultimodalOutput{Type: models.PartAudioURL, URL: url})
}
