package tasks

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/memory"
	"github.com/solyn-ai/solyn/pkg/models"
)

type capturingLongTerm struct {
	mu      sync.Mutex
	entries []models.MemoryEntry
}

func (s *capturingLongTerm) Insert(_ context.Context, e *models.MemoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *e)
	return nil
}

func (s *capturingLongTerm) Get(_ context.Context, _, _ string) (*models.MemoryEntry, error) {
	return nil, fmt.Errorf("not found")
}

func (s *capturingLongTerm) Delete(_ context.Context, _, _ string) error { return nil }

func (s *capturingLongTerm) Search(_ context.Context, _, _, _ string, _ int) ([]models.MemoryEntry, error) {
	return nil, nil
}

func (s *capturingLongTerm) Recent(_ context.Context, _, _ string, _ int) ([]models.MemoryEntry, error) {
	return nil, nil
}

func (s *capturingLongTerm) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

type fixedSummarizer struct {
	summary string
	err     error
}

func (s fixedSummarizer) Summarize(_ context.Context, _ []models.Message) (string, error) {
	return s.summary, s.err
}

func newPreserverFixture(summarizer memory.Summarizer) (*Preserver, *memory.InMemBuffer, *capturingLongTerm) {
	buf := memory.NewInMemBuffer(20)
	long := &capturingLongTerm{}
	memCfg := config.DefaultMemoryConfig()
	mem := memory.NewManager(buf, long, summarizer, memCfg)
	p := NewPreserver(mem, summarizer, config.DefaultPreservationConfig(memCfg.ConversationTTL), memCfg)
	return p, buf, long
}

func seedConversation(t *testing.T, buf *memory.InMemBuffer, threadID string, turns int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < turns; i++ {
		_, err := buf.Append(ctx, threadID,
			models.NewUserText(fmt.Sprintf("I am looking for a two bedroom place, turn %d", i)),
			models.NewAssistantText("Let me check what we have."))
		require.NoError(t, err)
	}
}

func preservationJob(threadID string) *models.Job {
	return &models.Job{Kind: models.JobPreservation, TenantID: "tenant", ThreadID: threadID}
}

func TestPreserverSummarizesAndShrinks(t *testing.T) {
	p, buf, long := newPreserverFixture(fixedSummarizer{summary: "customer wants two bedrooms"})
	seedConversation(t, buf, "thread", 3) // 6 messages, under the auto-summary trigger

	require.NoError(t, p.Handle(context.Background(), preservationJob("thread")))

	require.Len(t, long.entries, 1)
	entry := long.entries[0]
	assert.Equal(t, "customer wants two bedrooms", entry.Content)
	assert.Equal(t, []string{"auto_preserved_short"}, entry.Tags)
	assert.Equal(t, 0.6, entry.ImportanceScore)
	require.NotNil(t, entry.ExpiresAt)

	n, err := buf.Len(context.Background(), "thread")
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestPreserverSkipsWhenAutoSummaryWillRun(t *testing.T) {
	p, buf, long := newPreserverFixture(fixedSummarizer{summary: "unused"})
	seedConversation(t, buf, "thread", 8) // 16 messages, at/over the trigger

	require.NoError(t, p.Handle(context.Background(), preservationJob("thread")))
	assert.Empty(t, long.entries)

	n, err := buf.Len(context.Background(), "thread")
	require.NoError(t, err)
	assert.Equal(t, 16, n)
}

func TestPreserverSkipsShortConversations(t *testing.T) {
	p, buf, long := newPreserverFixture(fixedSummarizer{summary: "unused"})
	seedConversation(t, buf, "thread", 1) // 2 messages

	require.NoError(t, p.Handle(context.Background(), preservationJob("thread")))
	assert.Empty(t, long.entries)
}

func TestPreserverSkipsLowQualityConversations(t *testing.T) {
	p, buf, long := newPreserverFixture(fixedSummarizer{summary: "unused"})
	ctx := context.Background()

	// Enough messages, but only one is from the user.
	_, err := buf.Append(ctx, "thread",
		models.NewUserText("ok then"),
		models.NewAssistantText("Anything else I can help with?"),
		models.NewAssistantText("Are you still there?"),
		models.NewAssistantText("Feel free to reach out anytime."))
	require.NoError(t, err)

	require.NoError(t, p.Handle(ctx, preservationJob("thread")))
	assert.Empty(t, long.entries)

	// Two user messages, but too terse on average.
	_, err = buf.Append(ctx, "other",
		models.NewUserText("hi"),
		models.NewAssistantText("Hello! What are you looking for?"),
		models.NewUserText("ok"),
		models.NewAssistantText("Take your time."))
	require.NoError(t, err)

	require.NoError(t, p.Handle(ctx, preservationJob("other")))
	assert.Empty(t, long.entries)
}

func TestPreserverSkipsAssistantOnlyConversations(t *testing.T) {
	buf := memory.NewInMemBuffer(20)
	long := &capturingLongTerm{}
	memCfg := config.DefaultMemoryConfig()
	mem := memory.NewManager(buf, long, fixedSummarizer{summary: "unused"}, memCfg)

	// Even with the user-message floor lowered to zero, a conversation the
	// customer never joined is not preserved.
	cfg := config.DefaultPreservationConfig(memCfg.ConversationTTL)
	cfg.MinUserMessages = 0
	p := NewPreserver(mem, fixedSummarizer{summary: "unused"}, cfg, memCfg)

	ctx := context.Background()
	_, err := buf.Append(ctx, "thread",
		models.NewAssistantText("Welcome! How can I help today?"),
		models.NewAssistantText("Are you still there?"),
		models.NewAssistantText("Feel free to reach out anytime."))
	require.NoError(t, err)

	require.NoError(t, p.Handle(ctx, preservationJob("thread")))
	assert.Empty(t, long.entries)
}

func TestPreserverSummarizerFailureIsRetryable(t *testing.T) {
	p, buf, long := newPreserverFixture(fixedSummarizer{err: fmt.Errorf("provider down")})
	seedConversation(t, buf, "thread", 3)

	err := p.Handle(context.Background(), preservationJob("thread"))
	require.Error(t, err)
	assert.Empty(t, long.entries)

	// The buffer is untouched so a retry sees the same conversation.
	n, lerr := buf.Len(context.Background(), "thread")
	require.NoError(t, lerr)
	assert.Equal(t, 6, n)
}
