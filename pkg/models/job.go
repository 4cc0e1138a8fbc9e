package models

import (
	"encoding/json"
	"time"
)

// JobKind names a durable background job type.
type JobKind string

// Job kinds.
const (
	JobAwakeningScan JobKind = "awakening_scan"
	JobPreservation  JobKind = "preservation"
	JobCallback      JobKind = "callback"
	JobGreeting      JobKind = "greeting"
	JobRunAsync      JobKind = "run_async"
)

// JobStatus is the lifecycle status of a durable job.
type JobStatus string

// Job statuses. Claimed jobs that outlive their worker are released back to
// pending by the cleanup loop.
const (
	JobPending   JobStatus = "pending"
	JobClaimed   JobStatus = "claimed"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Job is one durable unit of background work, persisted in Postgres and
// claimed by workers with FOR UPDATE SKIP LOCKED.
type Job struct {
	ID          int64           `json:"id"`
	Kind        JobKind         `json:"kind"`
	TenantID    string          `json:"tenant_id,omitempty"`
	ThreadID    string          `json:"thread_id,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
	Status      JobStatus       `json:"status"`
	RunAt       time.Time       `json:"run_at"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
	LastError   string          `json:"last_error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
