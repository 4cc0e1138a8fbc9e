package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/solyn-ai/solyn/pkg/cache"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/store"
)

// AssistantService manages assistant persona resolution.
type AssistantService struct {
	assistants *store.AssistantStore
	cache      *cache.Client
}

// NewAssistantService creates a new AssistantService
func NewAssistantService(assistants *store.AssistantStore, c *cache.Client) *AssistantService {
	return &AssistantService{assistants: assistants, cache: c}
}

// Upsert writes an assistant and refreshes its cache entry.
func (s *AssistantService) Upsert(ctx context.Context, a *models.Assistant) error {
	if a.ID == "" {
		return NewValidationError("assistant_id", "required")
	}
	if a.TenantID == "" {
		return NewValidationError("tenant_id", "required")
	}
	if a.Status == "" {
		a.Status = models.AssistantActive
	}
	if err := s.assistants.Upsert(ctx, a); err != nil {
		return fmt.Errorf("failed to upsert assistant: %w", err)
	}
	if err := s.cache.SetMsgpack(ctx, cache.AssistantKey(a.ID), a, cache.EntityTTL); err != nil {
		slog.Warn("Failed to cache assistant", "assistant_id", a.ID, "error", err)
	}
	return nil
}

// Get resolves an assistant, cache first.
func (s *AssistantService) Get(ctx context.Context, assistantID string) (*models.Assistant, error) {
	if assistantID == "" {
		return nil, NewValidationError("assistant_id", "required")
	}
	var cached models.Assistant
	if ok, err := s.cache.GetMsgpack(ctx, cache.AssistantKey(assistantID), &cached); err != nil {
		slog.Warn("Assistant cache read failed", "assistant_id", assistantID, "error", err)
	} else if ok {
		return &cached, nil
	}

	assistant, err := s.assistants.Get(ctx, assistantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.cache.SetMsgpack(ctx, cache.AssistantKey(assistantID), assistant, cache.EntityTTL); err != nil {
		slog.Warn("Failed to cache assistant", "assistant_id", assistantID, "error", err)
	}
	return assistant, nil
}

// RequireActive resolves an assistant, verifying tenant ownership and that
// the persona is active.
func (s *AssistantService) RequireActive(ctx context.Context, tenantID, assistantID string) (*models.Assistant, error) {
	assistant, err := s.Get(ctx, assistantID)
	if err != nil {
		return nil, err
	}
	if assistant.TenantID != tenantID {
		return nil, ErrTenantMismatch
	}
	if assistant.Status != models.AssistantActive {
		return nil, ErrAssistantInactive
	}
	return assistant, nil
}
