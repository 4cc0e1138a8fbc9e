package models

// RunAsyncPayload is the payload of a run_async job: the turn to execute
// against an already-created pending run row.
type RunAsyncPayload struct {
	RunID       string    `json:"run_id"`
	AssistantID string    `json:"assistant_id,omitempty"`
	Messages    []Message `json:"messages"`
}

// GreetingPayload is the payload of a greeting job enqueued on thread
// creation.
type GreetingPayload struct {
	AssistantID string `json:"assistant_id"`
}

// CallbackJobPayload is the payload of a durable callback job: an envelope
// to deliver and the endpoint to deliver it to.
type CallbackJobPayload struct {
	Endpoint string           `json:"endpoint"`
	Envelope CallbackEnvelope `json:"envelope"`
}

// AwakeningSchedulePayload identifies the self-rescheduling awakening scan.
// The schedule_id key dedupes pending rows through the jobs table's unique
// schedule index, making schedule creation an idempotent upsert.
type AwakeningSchedulePayload struct {
	ScheduleID string `json:"schedule_id"`
}
