package models

import "time"

// TenantStatus is the lifecycle status of a tenant.
type TenantStatus string

// Tenant statuses.
const (
	TenantActive   TenantStatus = "active"
	TenantInactive TenantStatus = "inactive"
)

// Tenant scopes every other entity. Created and updated by the upstream
// management API via /tenants/sync; soft-deleted, never hard-deleted.
type Tenant struct {
	ID        string       `json:"tenant_id"`
	Name      string       `json:"name"`
	Status    TenantStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	DeletedAt *time.Time   `json:"deleted_at,omitempty"`
}

// AssistantStatus is the lifecycle status of an assistant persona.
type AssistantStatus string

// Assistant statuses.
const (
	AssistantActive   AssistantStatus = "active"
	AssistantInactive AssistantStatus = "inactive"
)

// Assistant is a configured AI persona bound to a tenant. Consumed
// read-only by the agent runtime when composing the role prompt.
type Assistant struct {
	ID          string          `json:"assistant_id"`
	TenantID    string          `json:"tenant_id"`
	Status      AssistantStatus `json:"status"`
	Name        string          `json:"name"`
	Occupation  string          `json:"occupation,omitempty"`
	Personality string          `json:"personality,omitempty"`
	Industry    string          `json:"industry,omitempty"`
	VoiceID     string          `json:"voice_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ThreadStatus is the execution status of a conversation thread.
type ThreadStatus string

// Thread statuses. A thread holds at most one in-flight workflow: it is
// transitioned to busy before dispatch and back to active (or failed) on
// completion.
const (
	ThreadIdle   ThreadStatus = "idle"
	ThreadActive ThreadStatus = "active"
	ThreadBusy   ThreadStatus = "busy"
	ThreadFailed ThreadStatus = "failed"
)

// Thread is one long-lived conversation with one end user under one tenant.
type Thread struct {
	ID                    string       `json:"thread_id"`
	TenantID              string       `json:"tenant_id"`
	AssistantID           string       `json:"assistant_id,omitempty"`
	Status                ThreadStatus `json:"status"`
	CustomerName          string       `json:"customer_name,omitempty"`
	CustomerPhone         string       `json:"customer_phone,omitempty"`
	LastAwakeningAt       *time.Time   `json:"last_awakening_at,omitempty"`
	AwakeningAttemptCount int          `json:"awakening_attempt_count"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// AwakeningCandidate is the projection of Thread used by the awakening scan.
type AwakeningCandidate struct {
	ThreadID              string
	TenantID              string
	AssistantID           string
	AwakeningAttemptCount int
	LastAwakeningAt       *time.Time
}
