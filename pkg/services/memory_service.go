package services

import (
	"context"
	"errors"

	"github.com/solyn-ai/solyn/pkg/memory"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/store"
)

// MemoryService fronts the memory manager for the HTTP surface: bulk
// episodic inserts, deletes, and raw short-term appends.
type MemoryService struct {
	mem     *memory.Manager
	tenants *TenantService
	guard   *RunGuard
}

// NewMemoryService creates a MemoryService.
func NewMemoryService(mem *memory.Manager, tenants *TenantService, guard *RunGuard) *MemoryService {
	return &MemoryService{mem: mem, tenants: tenants, guard: guard}
}

// BulkInsert stores episodic entries one by one, reporting a per-item
// outcome. A bad item never aborts the batch.
func (s *MemoryService) BulkInsert(ctx context.Context, tenantID string, items []models.InsertMemoryItem) ([]models.InsertMemoryResult, error) {
	if _, err := s.tenants.RequireActive(ctx, tenantID); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, NewValidationError("items", "at least one item is required")
	}

	results := make([]models.InsertMemoryResult, len(items))
	for i, item := range items {
		results[i].Index = i
		if item.ThreadID == "" {
			results[i].Error = "thread_id is required"
			continue
		}
		entry, err := s.mem.StoreLongTerm(ctx, tenantID, item.ThreadID, item.Content,
			models.MemoryEpisodic, item.Tags, item.ImportanceScore, item.TTLDays)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		results[i].Success = true
		results[i].MemoryID = entry.ID
	}
	return results, nil
}

// Delete removes one episodic entry scoped by tenant.
func (s *MemoryService) Delete(ctx context.Context, tenantID, memoryID string) error {
	if memoryID == "" {
		return NewValidationError("memory_id", "required")
	}
	if _, err := s.tenants.RequireActive(ctx, tenantID); err != nil {
		return err
	}
	if err := s.mem.DeleteEntry(ctx, tenantID, memoryID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMemoryNotFound
		}
		return err
	}
	return nil
}

// AppendMessages writes raw messages into the thread's short-term buffer.
// A busy thread is waited out within the bounded window so the append never
// interleaves with an in-flight workflow.
func (s *MemoryService) AppendMessages(ctx context.Context, tenantID, threadID string, msgs []models.Message) (int, error) {
	if len(msgs) == 0 {
		return 0, NewValidationError("messages", "at least one message is required")
	}
	if _, err := s.guard.WaitNotBusy(ctx, tenantID, threadID); err != nil {
		return 0, err
	}
	return s.mem.Append(ctx, tenantID, threadID, msgs...)
}
