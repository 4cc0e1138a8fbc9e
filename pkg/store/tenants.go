package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solyn-ai/solyn/pkg/models"
)

// TenantStore persists tenants.
type TenantStore struct {
	pool *pgxpool.Pool
}

// Upsert creates or updates a tenant from the management sync payload.
// Soft-deleted tenants are revived when resynced as active.
func (s *TenantStore) Upsert(ctx context.Context, t *models.Tenant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tenants (id, name, status, created_at, updated_at)
		 VALUES ($1, $2, $3, now(), now())
		 ON CONFLICT (id) DO UPDATE
		 SET name = EXCLUDED.name,
		     status = EXCLUDED.status,
		     deleted_at = CASE WHEN EXCLUDED.status = 'active' THEN NULL ELSE tenants.deleted_at END,
		     updated_at = now()`,
		t.ID, t.Name, t.Status)
	if err != nil {
		return fmt.Errorf("failed to upsert tenant %s: %w", t.ID, err)
	}
	return nil
}

// Get loads a tenant by id. Soft-deleted tenants are not returned.
func (s *TenantStore) Get(ctx context.Context, tenantID string) (*models.Tenant, error) {
	var t models.Tenant
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, status, created_at, updated_at, deleted_at
		 FROM tenants WHERE id = $1 AND deleted_at IS NULL`,
		tenantID).Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt, &t.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tenant %s: %w", tenantID, err)
	}
	return &t, nil
}

// SoftDelete marks a tenant deleted and inactive without removing its data.
func (s *TenantStore) SoftDelete(ctx context.Context, tenantID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tenants SET status = 'inactive', deleted_at = now(), updated_at = now()
		 WHERE id = $1 AND deleted_at IS NULL`,
		tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete tenant %s: %w", tenantID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
