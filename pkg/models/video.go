package models

import "time"

// VideoSession tracks an enqueued external video generation task. The
// session lives in the cache for a day; actual generation happens upstream.
type VideoSession struct {
	ID        string    `json:"session_id"`
	TenantID  string    `json:"tenant_id"`
	ThreadID  string    `json:"thread_id,omitempty"`
	Prompt    string    `json:"prompt"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Video session statuses.
const (
	VideoQueued = "queued"
)
