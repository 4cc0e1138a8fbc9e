package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/solyn-ai/solyn/pkg/cache"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/store"
)

// ThreadService manages thread lifecycle and resolution.
type ThreadService struct {
	threads    *store.ThreadStore
	tenants    *TenantService
	assistants *AssistantService
	jobs       *store.JobStore
	cache      *cache.Client
}

// NewThreadService creates a new ThreadService
func NewThreadService(threads *store.ThreadStore, tenants *TenantService, assistants *AssistantService,
	jobs *store.JobStore, c *cache.Client) *ThreadService {
	return &ThreadService{threads: threads, tenants: tenants, assistants: assistants, jobs: jobs, cache: c}
}

// CreateThreadRequest is the thread creation payload.
type CreateThreadRequest struct {
	ThreadID      string `json:"thread_id,omitempty"`
	AssistantID   string `json:"assistant_id,omitempty"`
	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
}

// Create registers a new thread under an active tenant. When an assistant is
// given it must be active and owned by the same tenant.
func (s *ThreadService) Create(ctx context.Context, tenantID string, req CreateThreadRequest) (*models.Thread, error) {
	if _, err := s.tenants.RequireActive(ctx, tenantID); err != nil {
		return nil, err
	}
	if req.AssistantID != "" {
		if _, err := s.assistants.RequireActive(ctx, tenantID, req.AssistantID); err != nil {
			return nil, err
		}
	}

	thread := &models.Thread{
		ID:            req.ThreadID,
		TenantID:      tenantID,
		AssistantID:   req.AssistantID,
		Status:        models.ThreadIdle,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
	}
	if thread.ID == "" {
		thread.ID = uuid.NewString()
	}
	if err := s.threads.Create(ctx, thread); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	s.cacheThread(ctx, thread)
	s.enqueueGreeting(ctx, thread)
	return thread, nil
}

// enqueueGreeting schedules the persona greeting workflow for a freshly
// created thread with a bound assistant. Failures are not fatal to creation.
func (s *ThreadService) enqueueGreeting(ctx context.Context, thread *models.Thread) {
	if thread.AssistantID == "" {
		return
	}
	payload, err := json.Marshal(models.GreetingPayload{AssistantID: thread.AssistantID})
	if err != nil {
		slog.Warn("Failed to encode greeting payload", "thread_id", thread.ID, "error", err)
		return
	}
	_, err = s.jobs.Enqueue(ctx, &models.Job{
		Kind:        models.JobGreeting,
		TenantID:    thread.TenantID,
		ThreadID:    thread.ID,
		Payload:     payload,
		RunAt:       time.Now(),
		MaxAttempts: 3,
	})
	if err != nil {
		slog.Warn("Failed to enqueue greeting", "thread_id", thread.ID, "error", err)
	}
}

// Get resolves a thread, cache first, enforcing tenant ownership.
func (s *ThreadService) Get(ctx context.Context, tenantID, threadID string) (*models.Thread, error) {
	if threadID == "" {
		return nil, NewValidationError("thread_id", "required")
	}
	var cached models.Thread
	ok, err := s.cache.GetMsgpack(ctx, cache.ThreadKey(threadID), &cached)
	if err != nil {
		slog.Warn("Thread cache read failed", "thread_id", threadID, "error", err)
	}

	var thread *models.Thread
	if ok {
		thread = &cached
	} else {
		thread, err = s.threads.Get(ctx, threadID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		s.cacheThread(ctx, thread)
	}
	if thread.TenantID != tenantID {
		return nil, ErrTenantMismatch
	}
	return thread, nil
}

// SetStatus updates a thread's status and invalidates its cache entry. The
// cached copy goes stale on every transition, so dropping it is simpler than
// rewriting it.
func (s *ThreadService) SetStatus(ctx context.Context, threadID string, status models.ThreadStatus) error {
	if err := s.threads.SetStatus(ctx, threadID, status); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	if err := s.cache.Delete(ctx, cache.ThreadKey(threadID)); err != nil {
		slog.Warn("Failed to invalidate thread cache", "thread_id", threadID, "error", err)
	}
	return nil
}

func (s *ThreadService) cacheThread(ctx context.Context, t *models.Thread) {
	if err := s.cache.SetMsgpack(ctx, cache.ThreadKey(t.ID), t, cache.EntityTTL); err != nil {
		slog.Warn("Failed to cache thread", "thread_id", t.ID, "error", err)
	}
}
