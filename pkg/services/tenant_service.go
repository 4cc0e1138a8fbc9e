// Package services implements the domain layer: tenant/assistant/thread
// resolution with cache-through reads, the run guard, and the shared error
// taxonomy.
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

// TenantService manages tenant sync and resolution.
type TenantService struct {
	tenants *store.TenantStore
	cache   *cache.Client
}

// NewTenantService creates a new TenantService
func NewTenantService(tenants *store.TenantStore, c *cache.Client) *TenantService {
	return &TenantService{tenants: tenants, cache: c}
}

// SyncRequest is the payload of the management-plane tenant sync.
type SyncRequest struct {
	TenantID   string              `json:"tenant_id"`
	Name       string              `json:"name"`
	Status     models.TenantStatus `json:"status"`
	Deleted    bool                `json:"deleted,omitempty"`
	Assistants []models.Assistant  `json:"assistants,omitempty"`
}

// Sync upserts (or soft-deletes) a tenant and its assistants from the
// upstream management system. Write-through: the cache is refreshed after
// the database write.
func (s *TenantService) Sync(ctx context.Context, req SyncRequest) error {
	if req.TenantID == "" {
		return NewValidationError("tenant_id", "required")
	}
	if req.Deleted {
		if err := s.tenants.SoftDelete(ctx, req.TenantID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := s.cache.Delete(ctx, cache.TenantKey(req.TenantID)); err != nil {
			slog.Warn("Failed to invalidate tenant cache", "tenant_id", req.TenantID, "error", err)
		}
		return nil
	}

	status := req.Status
	if status == "" {
		status = models.TenantActive
	}
	if status != models.TenantActive && status != models.TenantInactive {
		return NewValidationError("status", "must be active or inactive")
	}

	tenant := &models.Tenant{ID: req.TenantID, Name: req.Name, Status: status}
	if err := s.tenants.Upsert(ctx, tenant); err != nil {
		return fmt.Errorf("failed to sync tenant: %w", err)
	}
	if err := s.cache.SetMsgpack(ctx, cache.TenantKey(tenant.ID), tenant, cache.EntityTTL); err != nil {
		slog.Warn("Failed to cache tenant", "tenant_id", tenant.ID, "error", err)
	}
	return nil
}

// Get resolves a tenant, cache first.
func (s *TenantService) Get(ctx context.Context, tenantID string) (*models.Tenant, error) {
	if tenantID == "" {
		return nil, NewValidationError("tenant_id", "required")
	}
	var cached models.Tenant
	if ok, err := s.cache.GetMsgpack(ctx, cache.TenantKey(tenantID), &cached); err != nil {
		slog.Warn("Tenant cache read failed", "tenant_id", tenantID, "error", err)
	} else if ok {
		return &cached, nil
	}

	tenant, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := s.cache.SetMsgpack(ctx, cache.TenantKey(tenantID), tenant, cache.EntityTTL); err != nil {
		slog.Warn("Failed to cache tenant", "tenant_id", tenantID, "error", err)
	}
	return tenant, nil
}

// RequireActive resolves a tenant and rejects disabled ones.
func (s *TenantService) RequireActive(ctx context.Context, tenantID string) (*models.Tenant, error) {
	tenant, err := s.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if tenant.Status != models.TenantActive || tenant.DeletedAt != nil {
		return nil, ErrTenantDisabled
	}
	return tenant, nil
}
