package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/services"
	"github.com/solyn-ai/solyn/pkg/version"
)

// Callback endpoints, joined onto the configured base URL per delivery.
const (
	EndpointRun       = "/events/run"
	EndpointAwakening = "/events/awakening"
	EndpointGreeting  = "/events/greeting"
)

// CallbackSender delivers event envelopes to the upstream system with
// bounded exponential-backoff retries. A non-2xx response or an ack body
// with code != 200 both count as delivery failures.
type CallbackSender struct {
	httpClient *http.Client
	baseURL    string
	maxRetries int
}

// NewCallbackSender creates a sender. An empty base URL disables delivery.
func NewCallbackSender(cfg *config.CallbackConfig) *CallbackSender {
	return &CallbackSender{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		maxRetries: cfg.MaxRetries,
	}
}

// Enabled reports whether a callback target is configured.
func (s *CallbackSender) Enabled() bool { return s.baseURL != "" }

// Send posts the envelope to baseURL+endpoint, retrying on failure. Returns
// nil immediately when no target is configured.
func (s *CallbackSender) Send(ctx context.Context, endpoint string, env *models.CallbackEnvelope) error {
	if !s.Enabled() {
		return nil
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to encode callback envelope: %w", err)
	}

	url := s.baseURL + endpoint
	return retry.Do(
		func() error { return s.post(ctx, url, body) },
		retry.Context(ctx),
		retry.Attempts(uint(s.maxRetries)),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
}

func (s *CallbackSender) post(ctx context.Context, url string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", version.Full())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	var ack models.CallbackAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("failed to decode callback ack: %w", err)
	}
	if ack.Code != 200 {
		return fmt.Errorf("callback rejected with code %d", ack.Code)
	}
	return nil
}

// HandleJob delivers a durable callback job. The sender retries inline; a
// returned error lets the job runner retry again later.
func (s *CallbackSender) HandleJob(ctx context.Context, job *models.Job) error {
	var payload models.CallbackJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return services.NewValidationError("payload", fmt.Sprintf("malformed callback payload: %v", err))
	}
	return s.Send(ctx, payload.Endpoint, &payload.Envelope)
}

// runEnvelope builds the run-completion envelope shared by the async run
// path and its failure branch.
func runEnvelope(run *models.WorkflowRun, taskName string) *models.CallbackEnvelope {
	content := models.CallbackEventContent{
		RunID:  run.ID,
		Status: string(run.Status),
	}
	if run.Status == models.RunCompleted {
		content.Data = &models.CallbackData{
			Output:       run.Output,
			InputTokens:  run.InputTokens,
			OutputTokens: run.OutputTokens,
		}
	}
	if run.ErrorMessage != "" {
		msg := run.ErrorMessage
		content.Error = &msg
	}
	if run.FinishedAt != nil {
		content.FinishedAt = run.FinishedAt.UnixMilli()
		content.ProcessingTime = run.FinishedAt.Sub(run.StartedAt).Milliseconds()
	}
	return &models.CallbackEnvelope{
		AssistantID:  run.AssistantID,
		ThreadID:     run.ThreadID,
		EventID:      taskName,
		EventTime:    time.Now().UnixMilli(),
		EventContent: content,
	}
}
