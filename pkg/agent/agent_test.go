package agent

import (
	"context"
	"fmt"
	"sync"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/llm"
	"github.com/solyn-ai/solyn/pkg/memory"
	"github.com/solyn-ai/solyn/pkg/models"
)

// scriptClient replays scripted provider responses.
type scriptClient struct {
	mu        sync.Mutex
	responses []*llm.CompletionResponse
	errs      []error
	requests  []llm.CompletionRequest
}

func (c *scriptClient) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	i := len(c.requests) - 1
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i >= len(c.responses) {
		return nil, fmt.Errorf("scriptClient ran out of responses at call %d", i+1)
	}
	return c.responses[i], nil
}

func jsonResponse(content string, in, out int) *llm.CompletionResponse {
	return &llm.CompletionResponse{
		Message: models.Message{Role: models.RoleAssistant, Content: content},
		Usage:   llm.Usage{InputTokens: in, OutputTokens: out},
	}
}

func newTestGateway(client llm.Client) *llm.Gateway {
	cfg := config.DefaultLLMConfig()
	cfg.Model = "test-model"
	return llm.NewGateway(client, llm.NewRegistry(), cfg)
}

// stubLongTerm is a minimal memory.LongTermStore for agent tests.
type stubLongTerm struct {
	mu      sync.Mutex
	entries []models.MemoryEntry
}

func (s *stubLongTerm) Insert(_ context.Context, e *models.MemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *e)
	return nil
}

func (s *stubLongTerm) Get(_ context.Context, _, _ string) (*models.MemoryEntry, error) {
	return nil, fmt.Errorf("not found")
}

func (s *stubLongTerm) Delete(_ context.Context, _, _ string) error { return nil }

func (s *stubLongTerm) Search(_ context.Context, _, _, _ string, _ int) ([]models.MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MemoryEntry(nil), s.entries...), nil
}

func (s *stubLongTerm) Recent(_ context.Context, _, _ string, _ int) ([]models.MemoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.MemoryEntry(nil), s.entries...), nil
}

func (s *stubLongTerm) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

type noopSummarizer struct{}

func (noopSummarizer) Summarize(_ context.Context, _ []models.Message) (string, error) {
	return "summary", nil
}

func newTestManager() (*memory.Manager, *memory.InMemBuffer, *stubLongTerm) {
	buf := memory.NewInMemBuffer(50)
	long := &stubLongTerm{}
	cfg := config.DefaultMemoryConfig()
	cfg.ShortTermCapacity = 50
	cfg.SummaryTrigger = 49
	m := memory.NewManager(buf, long, noopSummarizer{}, cfg)
	return m, buf, long
}
