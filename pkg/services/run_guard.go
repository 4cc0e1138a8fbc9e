package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/solyn-ai/solyn/pkg/cache"
	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/models"
)

// ThreadClaimer is the busy-lock half of the thread store: the atomic
// claim that admits a thread from idle, active, or failed and blocks it
// while busy.
type ThreadClaimer interface {
	TryMarkBusy(ctx context.Context, threadID, assistantID string) (bool, error)
}

// RunGuard is the permission prelude in front of every workflow dispatch:
// it verifies tenant, thread, and assistant, then takes the per-thread busy
// lock. A thread holds at most one in-flight workflow; contenders wait a
// bounded interval before giving up with ErrThreadBusy.
type RunGuard struct {
	threads      ThreadClaimer
	threadSvc    *ThreadService
	tenants      *TenantService
	assistants   *AssistantService
	cache        *cache.Client
	busyWait     time.Duration
	pollInterval time.Duration
}

// NewRunGuard creates a new RunGuard
func NewRunGuard(threads ThreadClaimer, threadSvc *ThreadService, tenants *TenantService,
	assistants *AssistantService, c *cache.Client, cfg *config.WorkflowConfig) *RunGuard {
	return &RunGuard{
		threads:      threads,
		threadSvc:    threadSvc,
		tenants:      tenants,
		assistants:   assistants,
		cache:        c,
		busyWait:     cfg.BusyWait,
		pollInterval: cfg.BusyPollInterval,
	}
}

// Validate checks tenant, thread, and assistant without touching the busy
// lock. Used on its own by the async enqueue path, which defers the lock to
// the worker.
func (g *RunGuard) Validate(ctx context.Context, tenantID, threadID, assistantID string) (*models.Thread, *models.Assistant, error) {
	if _, err := g.tenants.RequireActive(ctx, tenantID); err != nil {
		return nil, nil, err
	}
	thread, err := g.threadSvc.Get(ctx, tenantID, threadID)
	if err != nil {
		return nil, nil, err
	}

	resolvedAssistant := assistantID
	if resolvedAssistant == "" {
		resolvedAssistant = thread.AssistantID
	}
	if resolvedAssistant == "" {
		return nil, nil, NewValidationError("assistant_id", "thread has no bound assistant")
	}
	assistant, err := g.assistants.RequireActive(ctx, tenantID, resolvedAssistant)
	if err != nil {
		return nil, nil, err
	}
	return thread, assistant, nil
}

// Acquire validates the run request and transitions the thread to busy,
// binding the assistant. When the thread is busy it polls until the bounded
// wait elapses. On success the caller must pair it with Release.
func (g *RunGuard) Acquire(ctx context.Context, tenantID, threadID, assistantID string) (*models.Thread, *models.Assistant, error) {
	thread, assistant, err := g.Validate(ctx, tenantID, threadID, assistantID)
	if err != nil {
		return nil, nil, err
	}

	if err := g.waitMarkBusy(ctx, threadID, assistantID); err != nil {
		return nil, nil, err
	}

	// The row changed under the cached copy.
	if err := g.cache.Delete(ctx, cache.ThreadKey(threadID)); err != nil {
		slog.Warn("Failed to invalidate thread cache", "thread_id", threadID, "error", err)
	}
	thread.Status = models.ThreadBusy
	thread.AssistantID = assistant.ID
	return thread, assistant, nil
}

// Release returns the thread to active, or failed after a workflow error.
// Uses a detached context so a cancelled request cannot leave the thread
// stuck busy.
func (g *RunGuard) Release(threadID string, failed bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	status := models.ThreadActive
	if failed {
		status = models.ThreadFailed
	}
	if err := g.threadSvc.SetStatus(ctx, threadID, status); err != nil {
		slog.Error("Failed to release thread", "thread_id", threadID, "status", status, "error", err)
	}
}

// WaitNotBusy blocks until the thread leaves busy or the bounded wait
// elapses. Used by writers (memory append) that must not interleave with an
// in-flight workflow but do not take the lock themselves.
func (g *RunGuard) WaitNotBusy(ctx context.Context, tenantID, threadID string) (*models.Thread, error) {
	deadline := time.Now().Add(g.busyWait)
	for {
		thread, err := g.threadSvc.Get(ctx, tenantID, threadID)
		if err != nil {
			return nil, err
		}
		if thread.Status != models.ThreadBusy {
			return thread, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrThreadBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(g.pollInterval):
		}
	}
}

func (g *RunGuard) waitMarkBusy(ctx context.Context, threadID, assistantID string) error {
	deadline := time.Now().Add(g.busyWait)
	for {
		ok, err := g.threads.TryMarkBusy(ctx, threadID, assistantID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrThreadBusy
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.pollInterval):
		}
	}
}
