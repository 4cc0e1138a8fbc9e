// Package memory implements the hybrid memory manager: a short-term
// per-thread conversation ring with TTL, durable long-term entries with
// keyword retrieval, and background summarization bridging the two.
package memory

import (
	"context"

	"github.com/solyn-ai/solyn/pkg/models"
)

// ConversationBuffer is the short-term per-thread message ring. Appends are
// atomic with capacity trimming and TTL refresh; ordering is per-thread FIFO
// and a successful append is visible to the next read.
type ConversationBuffer interface {
	// Append pushes messages onto the tail, trims to capacity from the
	// head, refreshes the TTL, and returns the resulting length.
	Append(ctx context.Context, threadID string, msgs ...models.Message) (int, error)

	// Recent returns the last n messages in order. n <= 0 returns all.
	Recent(ctx context.Context, threadID string, n int) ([]models.Message, error)

	// Len returns the current buffer length.
	Len(ctx context.Context, threadID string) (int, error)

	// Shrink keeps only the most recent keep messages.
	Shrink(ctx context.Context, threadID string, keep int) error

	// Clear drops the buffer entirely.
	Clear(ctx context.Context, threadID string) error
}
