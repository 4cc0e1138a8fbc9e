package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/models"
)

type fakeSummarizer struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	summary string
	err     error
}

func (f *fakeSummarizer) Summarize(_ context.Context, _ []models.Message) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return f.summary, f.err
}

func (f *fakeSummarizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeLongTerm struct {
	mu        sync.Mutex
	entries   []models.MemoryEntry
	searched  []string
	insertErr error
}

func (f *fakeLongTerm) Insert(_ context.Context, e *models.MemoryEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeLongTerm) Get(_ context.Context, _, memoryID string) (*models.MemoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		if f.entries[i].ID == memoryID {
			return &f.entries[i], nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (f *fakeLongTerm) Delete(_ context.Context, _, memoryID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.entries {
		if f.entries[i].ID == memoryID {
			f.entries = append(f.entries[:i], f.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("not found")
}

func (f *fakeLongTerm) Search(_ context.Context, _, _, query string, _ int) ([]models.MemoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searched = append(f.searched, query)
	return f.entries, nil
}

func (f *fakeLongTerm) Recent(_ context.Context, _, _ string, _ int) ([]models.MemoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, nil
}

func (f *fakeLongTerm) DeleteExpired(_ context.Context) (int64, error) { return 0, nil }

func (f *fakeLongTerm) stored() []models.MemoryEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.MemoryEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

func testConfig() *config.MemoryConfig {
	cfg := config.DefaultMemoryConfig()
	cfg.ShortTermCapacity = 20
	cfg.SummaryTrigger = 15
	cfg.KeepAfterSummary = 5
	return cfg
}

func userMessages(n int) []models.Message {
	msgs := make([]models.Message, n)
	for i := range msgs {
		msgs[i] = models.NewUserText(fmt.Sprintf("message %d", i))
	}
	return msgs
}

func TestInMemBufferTrimsToCapacityFromHead(t *testing.T) {
	buf := NewInMemBuffer(5)
	ctx := context.Background()

	n, err := buf.Append(ctx, "t1", userMessages(8)...)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	msgs, err := buf.Recent(ctx, "t1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 5)
	// Oldest messages are dropped; the tail survives.
	assert.Equal(t, "message 3", msgs[0].Content)
	assert.Equal(t, "message 7", msgs[4].Content)
}

func TestInMemBufferThreadsAreIsolated(t *testing.T) {
	buf := NewInMemBuffer(10)
	ctx := context.Background()

	_, err := buf.Append(ctx, "a", models.NewUserText("hello"))
	require.NoError(t, err)

	n, err := buf.Len(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestAppendBelowTriggerDoesNotSummarize(t *testing.T) {
	summarizer := &fakeSummarizer{summary: "s"}
	m := NewManager(NewInMemBuffer(20), &fakeLongTerm{}, summarizer, testConfig())

	n, err := m.Append(context.Background(), "tenant", "thread", userMessages(14)...)
	require.NoError(t, err)
	assert.Equal(t, 14, n)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, summarizer.callCount())
}

func TestAppendAtTriggerSummarizesAndShrinks(t *testing.T) {
	summarizer := &fakeSummarizer{summary: "the customer asked about pricing"}
	longTerm := &fakeLongTerm{}
	m := NewManager(NewInMemBuffer(20), longTerm, summarizer, testConfig())

	done := make(chan error, 1)
	m.onSummarizeDone = func(_ string, err error) { done <- err }

	ctx := context.Background()
	n, err := m.Append(ctx, "tenant", "thread", userMessages(15)...)
	require.NoError(t, err)
	assert.Equal(t, 15, n)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("summarization did not finish")
	}

	entries := longTerm.stored()
	require.Len(t, entries, 1)
	assert.Equal(t, "the customer asked about pricing", entries[0].Content)
	assert.Equal(t, models.MemoryLongTerm, entries[0].MemoryType)
	assert.Contains(t, entries[0].Tags, "conversation_summary")
	require.NotNil(t, entries[0].ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *entries[0].ExpiresAt, time.Minute)

	remaining, err := m.Len(ctx, "thread")
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
}

func TestOnlyOneSummarizationInFlightPerThread(t *testing.T) {
	summarizer := &fakeSummarizer{summary: "s", release: make(chan struct{})}
	m := NewManager(NewInMemBuffer(50), &fakeLongTerm{}, summarizer, testConfig())

	done := make(chan error, 4)
	m.onSummarizeDone = func(_ string, err error) { done <- err }

	ctx := context.Background()
	_, err := m.Append(ctx, "tenant", "thread", userMessages(15)...)
	require.NoError(t, err)

	// Further appends while the first summarization is blocked must not
	// start another one.
	for i := 0; i < 3; i++ {
		_, err := m.Append(ctx, "tenant", "thread", models.NewUserText("more"))
		require.NoError(t, err)
	}

	close(summarizer.release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("summarization did not finish")
	}
	assert.Equal(t, 1, summarizer.callCount())
}

func TestSummarizationFailureLeavesBufferUntouched(t *testing.T) {
	summarizer := &fakeSummarizer{err: fmt.Errorf("provider unavailable")}
	longTerm := &fakeLongTerm{}
	m := NewManager(NewInMemBuffer(20), longTerm, summarizer, testConfig())

	done := make(chan error, 1)
	m.onSummarizeDone = func(_ string, err error) { done <- err }

	ctx := context.Background()
	_, err := m.Append(ctx, "tenant", "thread", userMessages(15)...)
	require.NoError(t, err)

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("summarization did not finish")
	}

	n, err := m.Len(ctx, "thread")
	require.NoError(t, err)
	assert.Equal(t, 15, n)
	assert.Empty(t, longTerm.stored())
}

func TestRetrieveContextUsesSearchOnlyWithKeywords(t *testing.T) {
	longTerm := &fakeLongTerm{entries: []models.MemoryEntry{{ID: "m1", Content: "prefers mornings"}}}
	m := NewManager(NewInMemBuffer(20), longTerm, &fakeSummarizer{}, testConfig())

	ctx := context.Background()
	_, err := m.Append(ctx, "tenant", "thread", models.NewUserText("hi"))
	require.NoError(t, err)

	bundle, err := m.RetrieveContext(ctx, "tenant", "thread", "morning availability", 5)
	require.NoError(t, err)
	assert.Len(t, bundle.ShortTerm, 1)
	assert.Len(t, bundle.LongTerm, 1)
	assert.Equal(t, []string{"morning availability"}, longTerm.searched)

	_, err = m.RetrieveContext(ctx, "tenant", "thread", "   ", 5)
	require.NoError(t, err)
	// Blank query falls back to recency, not search.
	assert.Len(t, longTerm.searched, 1)
}

func TestStoreLongTermDefaultsTTL(t *testing.T) {
	longTerm := &fakeLongTerm{}
	m := NewManager(NewInMemBuffer(20), longTerm, &fakeSummarizer{}, testConfig())

	entry, err := m.StoreLongTerm(context.Background(), "tenant", "thread",
		"customer is vegetarian", models.MemoryEpisodic, []string{"diet"}, 0.9, 0)
	require.NoError(t, err)
	require.NotNil(t, entry.ExpiresAt)
	assert.WithinDuration(t, time.Now().Add(30*24*time.Hour), *entry.ExpiresAt, time.Minute)

	_, err = m.StoreLongTerm(context.Background(), "tenant", "thread", "   ",
		models.MemoryEpisodic, nil, 0.5, 0)
	assert.Error(t, err)
}
