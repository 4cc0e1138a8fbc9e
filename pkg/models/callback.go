package models

// CallbackData carries the user-facing result inside a callback event.
type CallbackData struct {
	Output       string `json:"output"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// CallbackEventContent is the eventContent object of a callback envelope.
type CallbackEventContent struct {
	RunID          string        `json:"run_id"`
	Status         string        `json:"status"` // "completed" | "failed"
	Data           *CallbackData `json:"data,omitempty"`
	Error          *string       `json:"error"`
	ProcessingTime int64         `json:"processing_time"` // ms
	FinishedAt     int64         `json:"finished_at"`     // epoch ms
}

// CallbackEnvelope is the JSON body POSTed to the upstream callback URL.
type CallbackEnvelope struct {
	AssistantID  string               `json:"assistantId"`
	ThreadID     string               `json:"threadId"`
	EventID      string               `json:"eventId"`
	EventTime    int64                `json:"eventTime"` // epoch ms
	EventContent CallbackEventContent `json:"eventContent"`
}

// CallbackAck is the body shape expected back from the upstream system.
// A non-2xx response or a Code other than 200 is a retryable failure.
type CallbackAck struct {
	Code int `json:"code"`
}
