package memory

import (
	"context"
	"sync"

	"github.com/solyn-ai/solyn/pkg/models"
)

// InMemBuffer is a process-local ConversationBuffer with the same trim
// semantics as RedisBuffer. Used in tests and single-node development; TTL
// expiry is not modeled.
type InMemBuffer struct {
	mu       sync.Mutex
	capacity int
	threads  map[string][]models.Message
}

var _ ConversationBuffer = (*InMemBuffer)(nil)

// NewInMemBuffer creates an empty in-memory buffer.
func NewInMemBuffer(capacity int) *InMemBuffer {
	return &InMemBuffer{capacity: capacity, threads: make(map[string][]models.Message)}
}

func (b *InMemBuffer) Append(_ context.Context, threadID string, msgs ...models.Message) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := append(b.threads[threadID], msgs...)
	if len(buf) > b.capacity {
		buf = buf[len(buf)-b.capacity:]
	}
	b.threads[threadID] = buf
	return len(buf), nil
}

func (b *InMemBuffer) Recent(_ context.Context, threadID string, n int) ([]models.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := b.threads[threadID]
	if n > 0 && len(buf) > n {
		buf = buf[len(buf)-n:]
	}
	out := make([]models.Message, len(buf))
	copy(out, buf)
	return out, nil
}

func (b *InMemBuffer) Len(_ context.Context, threadID string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.threads[threadID]), nil
}

func (b *InMemBuffer) Shrink(_ context.Context, threadID string, keep int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf := b.threads[threadID]
	if len(buf) > keep {
		b.threads[threadID] = append([]models.Message(nil), buf[len(buf)-keep:]...)
	}
	return nil
}

func (b *InMemBuffer) Clear(_ context.Context, threadID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.threads, threadID)
	return nil
}
