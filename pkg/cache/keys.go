package cache

import "fmt"

// Key builders. Keeping these in one place makes the keyspace auditable.

// TenantKey caches the tenant entity (msgpack).
func TenantKey(tenantID string) string { return fmt.Sprintf("tenant:%s", tenantID) }

// AssistantKey caches the assistant entity (msgpack).
func AssistantKey(assistantID string) string { return fmt.Sprintf("assistant:%s", assistantID) }

// ThreadKey caches the thread entity (msgpack).
func ThreadKey(threadID string) string { return fmt.Sprintf("thread:%s", threadID) }

// AssetsKey caches the tenant's asset catalog (JSON).
func AssetsKey(tenantID string) string { return fmt.Sprintf("assets:%s", tenantID) }

// VideoSessionKey tracks a pending external video task (JSON).
func VideoSessionKey(sessionID string) string { return fmt.Sprintf("video_session:%s", sessionID) }

// AudioKey holds a synthesized speech artifact (raw bytes) until the
// client fetches it.
func AudioKey(audioID string) string { return fmt.Sprintf("audio:%s", audioID) }

// ConversationKey is the short-term message ring for one thread (list of
// msgpack messages).
func ConversationKey(threadID string) string { return fmt.Sprintf("conversation:%s", threadID) }
