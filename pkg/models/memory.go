package models

import "time"

// MemoryType distinguishes summarized long-term memory from externally
// inserted episodic facts.
type MemoryType string

// Memory types.
const (
	MemoryLongTerm MemoryType = "long_term"
	MemoryEpisodic MemoryType = "episodic"
)

// MemoryEntry is a durable per-thread memory record, keyword-searchable and
// TTL-bounded via ExpiresAt.
type MemoryEntry struct {
	ID              string     `json:"memory_id"`
	TenantID        string     `json:"tenant_id"`
	ThreadID        string     `json:"thread_id"`
	Content         string     `json:"content"`
	MemoryType      MemoryType `json:"memory_type"`
	Tags            []string   `json:"tags,omitempty"`
	ImportanceScore float64    `json:"importance_score"`
	AccessCount     int        `json:"access_count"`
	CreatedAt       time.Time  `json:"created_at"`
	LastAccessedAt  *time.Time `json:"last_accessed_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// InsertMemoryItem is one element of a bulk episodic insert request.
type InsertMemoryItem struct {
	ThreadID        string   `json:"thread_id"`
	Content         string   `json:"content"`
	Tags            []string `json:"tags,omitempty"`
	ImportanceScore float64  `json:"importance_score,omitempty"`
	TTLDays         int      `json:"ttl_days,omitempty"`
}

// InsertMemoryResult is the per-item outcome of a bulk episodic insert.
type InsertMemoryResult struct {
	Index    int    `json:"index"`
	Success  bool   `json:"success"`
	MemoryID string `json:"memory_id,omitempty"`
	Error    string `json:"error,omitempty"`
}
