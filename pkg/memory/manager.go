package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/models"
)

// Summarizer condenses a message window into one summary string. The
// production implementation lives in pkg/llm.
type Summarizer interface {
	Summarize(ctx context.Context, msgs []models.Message) (string, error)
}

// LongTermStore is the durable side of the memory manager, implemented by
// store.MemoryStore.
type LongTermStore interface {
	Insert(ctx context.Context, e *models.MemoryEntry) error
	Get(ctx context.Context, tenantID, memoryID string) (*models.MemoryEntry, error)
	Delete(ctx context.Context, tenantID, memoryID string) error
	Search(ctx context.Context, tenantID, threadID, query string, limit int) ([]models.MemoryEntry, error)
	Recent(ctx context.Context, tenantID, threadID string, limit int) ([]models.MemoryEntry, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// ContextBundle is the combined retrieval result handed to agents.
type ContextBundle struct {
	ShortTerm []models.Message
	LongTerm  []models.MemoryEntry
}

// Manager is the memory facade: short-term ring plus long-term store, with
// background summarization bridging them when the ring grows past the
// trigger threshold.
type Manager struct {
	buffer     ConversationBuffer
	longTerm   LongTermStore
	summarizer Summarizer
	cfg        *config.MemoryConfig

	mu       sync.Mutex
	inflight map[string]struct{}

	// test seam, invoked after an async summarization finishes
	onSummarizeDone func(threadID string, err error)
}

// NewManager creates a memory Manager.
func NewManager(buffer ConversationBuffer, longTerm LongTermStore, summarizer Summarizer, cfg *config.MemoryConfig) *Manager {
	return &Manager{
		buffer:     buffer,
		longTerm:   longTerm,
		summarizer: summarizer,
		cfg:        cfg,
		inflight:   make(map[string]struct{}),
	}
}

// Append adds messages to the thread's short-term ring. When the resulting
// length reaches the summary trigger it starts one background summarization
// for the thread; appends while one is in flight do not start another.
func (m *Manager) Append(ctx context.Context, tenantID, threadID string, msgs ...models.Message) (int, error) {
	n, err := m.buffer.Append(ctx, threadID, msgs...)
	if err != nil {
		return 0, err
	}
	if n >= m.cfg.SummaryTrigger {
		m.startSummarization(tenantID, threadID)
	}
	return n, nil
}

// Recent returns the last n short-term messages (n <= 0 for all).
func (m *Manager) Recent(ctx context.Context, threadID string, n int) ([]models.Message, error) {
	return m.buffer.Recent(ctx, threadID, n)
}

// Len returns the short-term ring length.
func (m *Manager) Len(ctx context.Context, threadID string) (int, error) {
	return m.buffer.Len(ctx, threadID)
}

// RetrieveContext returns the short-term window plus relevant long-term
// entries: keyword-ranked when query keywords are given, newest-first
// otherwise. Long-term access counters are bumped by the store.
func (m *Manager) RetrieveContext(ctx context.Context, tenantID, threadID, query string, limit int) (*ContextBundle, error) {
	short, err := m.buffer.Recent(ctx, threadID, 0)
	if err != nil {
		return nil, err
	}
	var long []models.MemoryEntry
	if strings.TrimSpace(query) != "" {
		long, err = m.longTerm.Search(ctx, tenantID, threadID, query, limit)
	} else {
		long, err = m.longTerm.Recent(ctx, tenantID, threadID, limit)
	}
	if err != nil {
		return nil, err
	}
	return &ContextBundle{ShortTerm: short, LongTerm: long}, nil
}

// StoreLongTerm writes one durable memory entry with a TTL in days.
func (m *Manager) StoreLongTerm(ctx context.Context, tenantID, threadID, content string,
	memType models.MemoryType, tags []string, importance float64, ttlDays int) (*models.MemoryEntry, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("memory content is empty")
	}
	if ttlDays <= 0 {
		ttlDays = m.cfg.LongTermTTLDays
	}
	expires := time.Now().Add(time.Duration(ttlDays) * 24 * time.Hour)
	entry := &models.MemoryEntry{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		ThreadID:        threadID,
		Content:         content,
		MemoryType:      memType,
		Tags:            tags,
		ImportanceScore: importance,
		CreatedAt:       time.Now(),
		ExpiresAt:       &expires,
	}
	if err := m.longTerm.Insert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// DeleteEntry removes one long-term entry scoped by tenant.
func (m *Manager) DeleteEntry(ctx context.Context, tenantID, memoryID string) error {
	return m.longTerm.Delete(ctx, tenantID, memoryID)
}

// DeleteExpired removes entries past their TTL.
func (m *Manager) DeleteExpired(ctx context.Context) (int64, error) {
	return m.longTerm.DeleteExpired(ctx)
}

// ShrinkContext keeps only the most recent configured window of the ring.
func (m *Manager) ShrinkContext(ctx context.Context, threadID string) error {
	return m.buffer.Shrink(ctx, threadID, m.cfg.KeepAfterSummary)
}

// startSummarization begins one background summarization for the thread
// unless one is already in flight.
func (m *Manager) startSummarization(tenantID, threadID string) {
	m.mu.Lock()
	if _, busy := m.inflight[threadID]; busy {
		m.mu.Unlock()
		return
	}
	m.inflight[threadID] = struct{}{}
	m.mu.Unlock()

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		err := m.summarize(ctx, tenantID, threadID)
		if err != nil {
			slog.Error("Conversation summarization failed", "thread_id", threadID, "error", err)
		}

		m.mu.Lock()
		delete(m.inflight, threadID)
		m.mu.Unlock()

		if m.onSummarizeDone != nil {
			m.onSummarizeDone(threadID, err)
		}
	}()
}

// summarize runs the summarization protocol: read the window, produce a
// summary, persist it as a long-term entry, then shrink the ring. Any
// failure leaves the ring untouched so a later append retries.
func (m *Manager) summarize(ctx context.Context, tenantID, threadID string) error {
	msgs, err := m.buffer.Recent(ctx, threadID, 0)
	if err != nil {
		return err
	}
	if len(msgs) < m.cfg.SummaryTrigger {
		return nil
	}
	summary, err := m.summarizer.Summarize(ctx, msgs)
	if err != nil {
		return fmt.Errorf("summarizer failed: %w", err)
	}
	if _, err := m.StoreLongTerm(ctx, tenantID, threadID, summary,
		models.MemoryLongTerm, []string{"conversation_summary"}, 0.7, m.cfg.LongTermTTLDays); err != nil {
		return fmt.Errorf("failed to persist summary: %w", err)
	}
	return m.ShrinkContext(ctx, threadID)
}
