package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solyn-ai/solyn/pkg/models"
)

// MemoryStore persists long-term and episodic memory entries. Keyword
// retrieval uses Postgres full-text search over the content column (GIN
// tsvector index, 'simple' config so CJK text degrades to exact-token match).
type MemoryStore struct {
	pool *pgxpool.Pool
}

// Insert stores one memory entry.
func (s *MemoryStore) Insert(ctx context.Context, e *models.MemoryEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO memories (id, tenant_id, thread_id, content, memory_type, tags,
		                       importance_score, access_count, created_at, last_accessed_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 0, now(), now(), $8)`,
		e.ID, e.TenantID, e.ThreadID, e.Content, e.MemoryType, e.Tags,
		e.ImportanceScore, e.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert memory %s: %w", e.ID, err)
	}
	return nil
}

// Get loads one memory entry scoped by tenant.
func (s *MemoryStore) Get(ctx context.Context, tenantID, memoryID string) (*models.MemoryEntry, error) {
	var e models.MemoryEntry
	err := s.pool.QueryRow(ctx,
		`SELECT id, tenant_id, thread_id, content, memory_type, tags,
		        importance_score, access_count, created_at, last_accessed_at, expires_at
		 FROM memories WHERE id = $1 AND tenant_id = $2`,
		memoryID, tenantID).Scan(&e.ID, &e.TenantID, &e.ThreadID, &e.Content, &e.MemoryType,
		&e.Tags, &e.ImportanceScore, &e.AccessCount, &e.CreatedAt, &e.LastAccessedAt, &e.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get memory %s: %w", memoryID, err)
	}
	return &e, nil
}

// Delete removes one memory entry scoped by tenant.
func (s *MemoryStore) Delete(ctx context.Context, tenantID, memoryID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM memories WHERE id = $1 AND tenant_id = $2`,
		memoryID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete memory %s: %w", memoryID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Search returns non-expired entries for the thread ranked by full-text
// relevance against the query, bumping access counters on the way out.
func (s *MemoryStore) Search(ctx context.Context, tenantID, threadID, query string, limit int) ([]models.MemoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, thread_id, content, memory_type, tags,
		        importance_score, access_count, created_at, last_accessed_at, expires_at
		 FROM memories
		 WHERE tenant_id = $1 AND thread_id = $2
		   AND expires_at > now()
		   AND to_tsvector('simple', content) @@ plainto_tsquery('simple', $3)
		 ORDER BY ts_rank(to_tsvector('simple', content), plainto_tsquery('simple', $3)) DESC,
		          importance_score DESC
		 LIMIT $4`,
		tenantID, threadID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	entries, err := scanMemories(rows)
	if err != nil {
		return nil, err
	}
	return entries, s.touch(ctx, entries)
}

// Recent returns the newest non-expired entries for the thread, bumping
// access counters. Used when no query keywords are available.
func (s *MemoryStore) Recent(ctx context.Context, tenantID, threadID string, limit int) ([]models.MemoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, tenant_id, thread_id, content, memory_type, tags,
		        importance_score, access_count, created_at, last_accessed_at, expires_at
		 FROM memories
		 WHERE tenant_id = $1 AND thread_id = $2 AND expires_at > now()
		 ORDER BY created_at DESC
		 LIMIT $3`,
		tenantID, threadID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent memories: %w", err)
	}
	entries, err := scanMemories(rows)
	if err != nil {
		return nil, err
	}
	return entries, s.touch(ctx, entries)
}

// DeleteExpired removes entries past their TTL. Returns the number removed.
func (s *MemoryStore) DeleteExpired(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM memories WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired memories: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByThread removes all entries of one type for a thread. Used by the
// episodic cleanup path.
func (s *MemoryStore) DeleteByThread(ctx context.Context, tenantID, threadID string, memoryType models.MemoryType) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM memories WHERE tenant_id = $1 AND thread_id = $2 AND memory_type = $3`,
		tenantID, threadID, memoryType)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s memories for thread %s: %w", memoryType, threadID, err)
	}
	return tag.RowsAffected(), nil
}

func (s *MemoryStore) touch(ctx context.Context, entries []models.MemoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE memories SET access_count = access_count + 1, last_accessed_at = now()
		 WHERE id = ANY($1)`,
		ids)
	if err != nil {
		return fmt.Errorf("failed to bump memory access counters: %w", err)
	}
	return nil
}

func scanMemories(rows pgx.Rows) ([]models.MemoryEntry, error) {
	defer rows.Close()
	var out []models.MemoryEntry
	for rows.Next() {
		var e models.MemoryEntry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.ThreadID, &e.Content, &e.MemoryType,
			&e.Tags, &e.ImportanceScore, &e.AccessCount, &e.CreatedAt, &e.LastAccessedAt, &e.ExpiresAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
