package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/solyn-ai/solyn/pkg/cache"
	"github.com/solyn-ai/solyn/pkg/models"
)

// RedisBuffer is the production ConversationBuffer: one Redis list per
// thread (conversation:{thread_id}), msgpack-encoded messages, trimmed to
// capacity on every append, TTL refreshed from the last append.
type RedisBuffer struct {
	rdb      *redis.Client
	capacity int
	ttl      time.Duration
}

var _ ConversationBuffer = (*RedisBuffer)(nil)

// NewRedisBuffer creates a RedisBuffer over the shared cache client.
func NewRedisBuffer(c *cache.Client, capacity int, ttl time.Duration) *RedisBuffer {
	return &RedisBuffer{rdb: c.Redis(), capacity: capacity, ttl: ttl}
}

// Append pushes, trims, and refreshes TTL in one pipeline so concurrent
// appenders interleave whole messages, never partial state.
func (b *RedisBuffer) Append(ctx context.Context, threadID string, msgs ...models.Message) (int, error) {
	if len(msgs) == 0 {
		return b.Len(ctx, threadID)
	}
	key := cache.ConversationKey(threadID)
	encoded := make([]any, len(msgs))
	for i, m := range msgs {
		data, err := msgpack.Marshal(m)
		if err != nil {
			return 0, fmt.Errorf("failed to encode message: %w", err)
		}
		encoded[i] = data
	}

	pipe := b.rdb.TxPipeline()
	pipe.RPush(ctx, key, encoded...)
	pipe.LTrim(ctx, key, int64(-b.capacity), -1)
	pipe.Expire(ctx, key, b.ttl)
	lenCmd := pipe.LLen(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to append to conversation %s: %w", threadID, err)
	}
	return int(lenCmd.Val()), nil
}

// Recent returns the last n messages, oldest first.
func (b *RedisBuffer) Recent(ctx context.Context, threadID string, n int) ([]models.Message, error) {
	key := cache.ConversationKey(threadID)
	start := int64(0)
	if n > 0 {
		start = int64(-n)
	}
	raw, err := b.rdb.LRange(ctx, key, start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read conversation %s: %w", threadID, err)
	}
	msgs := make([]models.Message, 0, len(raw))
	for _, item := range raw {
		var m models.Message
		if err := msgpack.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("failed to decode message in conversation %s: %w", threadID, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// Len returns the buffer length.
func (b *RedisBuffer) Len(ctx context.Context, threadID string) (int, error) {
	n, err := b.rdb.LLen(ctx, cache.ConversationKey(threadID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get conversation %s length: %w", threadID, err)
	}
	return int(n), nil
}

// Shrink keeps only the most recent keep messages.
func (b *RedisBuffer) Shrink(ctx context.Context, threadID string, keep int) error {
	if err := b.rdb.LTrim(ctx, cache.ConversationKey(threadID), int64(-keep), -1).Err(); err != nil {
		return fmt.Errorf("failed to shrink conversation %s: %w", threadID, err)
	}
	return nil
}

// Clear drops the buffer.
func (b *RedisBuffer) Clear(ctx context.Context, threadID string) error {
	if err := b.rdb.Del(ctx, cache.ConversationKey(threadID)).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation %s: %w", threadID, err)
	}
	return nil
}
