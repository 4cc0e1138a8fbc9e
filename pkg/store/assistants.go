package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solyn-ai/solyn/pkg/models"
)

// AssistantStore persists assistant personas.
type AssistantStore struct {
	pool *pgxpool.Pool
}

// Upsert creates or updates an assistant from the management sync payload.
func (s *AssistantStore) Upsert(ctx context.Context, a *models.Assistant) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO assistants (id, tenant_id, name, status, occupation, personality, industry, voice_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
		 ON CONFLICT (id) DO UPDATE
		 SET tenant_id = EXCLUDED.tenant_id,
		     name = EXCLUDED.name,
		     status = EXCLUDED.status,
		     occupation = EXCLUDED.occupation,
		     personality = EXCLUDED.personality,
		     industry = EXCLUDED.industry,
		     voice_id = EXCLUDED.voice_id,
		     updated_at = now()`,
		a.ID, a.TenantID, a.Name, a.Status, a.Occupation, a.Personality, a.Industry, a.VoiceID)
	if err != nil {
		return fmt.Errorf("failed to upsert assistant %s: %w", a.ID, err)
	}
	return nil
}

// Get loads an assistant by id.
func (s *AssistantStore) Get(ctx context.Context, assistantID string) (*models.Assistant, error) {
	var a models.Assistant
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, name, status, occupation, personality, industry, voice_id, created_at, updated_at
		 FROM assistants WHERE id = $1`,
		assistantID).Scan(&a.ID, &a.TenantID, &a.Name, &a.Status, &a.Occupation,
		&a.Personality, &a.Industry, &a.VoiceID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get assistant %s: %w", assistantID, err)
	}
	return &a, nil
}
