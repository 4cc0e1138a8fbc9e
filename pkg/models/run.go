package models

import "time"

// RunStatus is the lifecycle status of one workflow run.
type RunStatus string

// Run statuses.
const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// WorkflowRun records one execution of the conversation workflow for one
// turn. Powers run status lookups and async completion callbacks.
type WorkflowRun struct {
	ID           string     `json:"run_id"`
	ThreadID     string     `json:"thread_id"`
	TenantID     string     `json:"tenant_id"`
	AssistantID  string     `json:"assistant_id,omitempty"`
	Status       RunStatus  `json:"status"`
	Output       string     `json:"output,omitempty"`
	InputTokens  int        `json:"input_tokens"`
	OutputTokens int        `json:"output_tokens"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// BusinessOutputs is the appointment projection synthesized by the intent
// agent. Status is 1 only when the appointment intent is strong enough and
// the time expression resolves to a parseable future timestamp.
type BusinessOutputs struct {
	Status  int    `json:"status"`
	Time    int64  `json:"time,omitempty"` // epoch millis
	Service string `json:"service,omitempty"`
	Name    string `json:"name,omitempty"`
	Phone   string `json:"phone,omitempty"`
}
