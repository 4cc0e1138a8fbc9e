// Package tasks is the durable background job runner: a Postgres-backed
// queue drained by a worker pool, plus the job handlers built on it
// (awakening scan, conversation preservation, async runs, greetings,
// callback delivery).
package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/services"
	"github.com/solyn-ai/solyn/pkg/store"
)

// Queue is the durable job queue contract, implemented by store.JobStore.
type Queue interface {
	Enqueue(ctx context.Context, job *models.Job) (int64, error)
	ClaimDue(ctx context.Context, limit int) ([]models.Job, error)
	Complete(ctx context.Context, id int64) error
	Retry(ctx context.Context, id int64, jobErr string, runAt time.Time) error
	Fail(ctx context.Context, id int64, jobErr string) error
}

// Handler executes one claimed job. A nil return completes the job; an
// error retries it with backoff unless the error is terminal.
type Handler func(ctx context.Context, job *models.Job) error

// Runner polls the queue and dispatches claimed jobs to a worker pool.
// Claimed jobs survive process death: the cleanup loop releases stale
// claims back to pending.
type Runner struct {
	queue    Queue
	cfg      *config.TasksConfig
	handlers map[models.JobKind]Handler

	ctx    context.Context
	cancel context.CancelFunc
	jobs   chan models.Job
	wg     sync.WaitGroup
}

// NewRunner creates a Runner. Handlers are registered before Start.
func NewRunner(queue Queue, cfg *config.TasksConfig) *Runner {
	return &Runner{
		queue:    queue,
		cfg:      cfg,
		handlers: make(map[models.JobKind]Handler),
	}
}

// Register binds a handler to a job kind.
func (r *Runner) Register(kind models.JobKind, h Handler) {
	r.handlers[kind] = h
}

// Start launches the dispatcher and worker goroutines.
func (r *Runner) Start() {
	r.ctx, r.cancel = context.WithCancel(context.Background())
	r.jobs = make(chan models.Job, r.cfg.MaxConcurrentActivities)

	for i := 0; i < r.cfg.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	r.wg.Add(1)
	go r.dispatch()

	slog.Info("Task runner started",
		"queue", r.cfg.TaskQueue, "workers", r.cfg.WorkerCount)
}

// Stop halts polling and drains in-flight jobs, bounded by the graceful
// shutdown timeout.
func (r *Runner) Stop() {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		slog.Info("Task runner stopped")
	case <-time.After(r.cfg.GracefulShutdownTimeout):
		slog.Warn("Task runner shutdown timed out with jobs in flight")
	}
}

// dispatch claims due jobs on a jittered cadence and feeds the worker pool.
func (r *Runner) dispatch() {
	defer r.wg.Done()
	defer close(r.jobs)

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-time.After(r.pollInterval()):
		}

		claimed, err := r.queue.ClaimDue(r.ctx, r.cfg.MaxConcurrentActivities)
		if err != nil {
			if r.ctx.Err() == nil {
				slog.Error("Failed to claim jobs", "error", err)
			}
			continue
		}
		for _, job := range claimed {
			select {
			case r.jobs <- job:
			case <-r.ctx.Done():
				return
			}
		}
	}
}

// pollInterval returns the base cadence plus random jitter so replicas do
// not poll in lockstep.
func (r *Runner) pollInterval() time.Duration {
	interval := r.cfg.PollInterval
	if r.cfg.PollIntervalJitter > 0 {
		interval += time.Duration(rand.Int63n(int64(r.cfg.PollIntervalJitter)))
	}
	return interval
}

func (r *Runner) worker() {
	defer r.wg.Done()
	for job := range r.jobs {
		r.execute(job)
	}
}

// execute runs one claimed job. The job context is detached from the runner
// context so shutdown does not abort work already in flight.
func (r *Runner) execute(job models.Job) {
	handler, ok := r.handlers[job.Kind]
	if !ok {
		r.settle(job, fmt.Errorf("no handler registered for kind %q", job.Kind), true)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.ActivityTimeout)
	err := handler(ctx, &job)
	cancel()
	r.settle(job, err, false)
}

// settle records the job outcome: complete, retry with backoff, or fail
// terminally once attempts are exhausted or the error cannot be cured by
// retrying.
func (r *Runner) settle(job models.Job, jobErr error, forceFail bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if jobErr == nil {
		if err := r.queue.Complete(ctx, job.ID); err != nil {
			slog.Error("Failed to complete job", "job_id", job.ID, "error", err)
		}
		return
	}

	maxAttempts := job.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = r.cfg.MaxAttempts
	}
	if forceFail || terminal(jobErr) || job.Attempts >= maxAttempts {
		slog.Error("Job failed permanently",
			"job_id", job.ID, "kind", job.Kind, "attempts", job.Attempts, "error", jobErr)
		if err := r.queue.Fail(ctx, job.ID, jobErr.Error()); err != nil {
			slog.Error("Failed to mark job failed", "job_id", job.ID, "error", err)
		}
		return
	}

	delay := r.backoff(job.Attempts)
	slog.Warn("Job failed, will retry",
		"job_id", job.ID, "kind", job.Kind, "attempts", job.Attempts, "delay", delay, "error", jobErr)
	if err := r.queue.Retry(ctx, job.ID, jobErr.Error(), time.Now().Add(delay)); err != nil {
		slog.Error("Failed to reschedule job", "job_id", job.ID, "error", err)
	}
}

// backoff doubles the initial delay per attempt, capped at the maximum.
func (r *Runner) backoff(attempts int) time.Duration {
	delay := r.cfg.RetryInitial
	for i := 1; i < attempts && delay < r.cfg.RetryMax; i++ {
		delay *= 2
	}
	if delay > r.cfg.RetryMax {
		delay = r.cfg.RetryMax
	}
	return delay
}

// terminal reports whether retrying cannot cure the error.
func terminal(err error) bool {
	return services.IsValidationError(err) ||
		errors.Is(err, services.ErrNotFound) ||
		errors.Is(err, store.ErrNotFound) ||
		errors.Is(err, services.ErrTenantMismatch) ||
		errors.Is(err, services.ErrTenantDisabled) ||
		errors.Is(err, services.ErrAssistantInactive)
}
