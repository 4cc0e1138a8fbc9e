package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/llm"
	"github.com/solyn-ai/solyn/pkg/memory"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/services"
	"github.com/solyn-ai/solyn/pkg/store"
)

// awakeningScheduleID keys the self-rescheduling scan job. The jobs table's
// unique schedule index makes re-creating the schedule an idempotent upsert.
const awakeningScheduleID = "awakening-scan"

const awakeningInstruction = `The customer has gone quiet. Write one short,
friendly message (1-2 sentences) to re-engage them, referencing the
conversation so far if there is one. Answer with the message only.`

// AwakeningScanner proactively re-engages threads that went quiet: on each
// scheduled scan it picks a bounded batch of eligible threads, produces a
// short persona wake-up line, and delivers it via callback.
type AwakeningScanner struct {
	threads    *store.ThreadStore
	queue      Queue
	assistants *services.AssistantService
	mem        *memory.Manager
	gateway    *llm.Gateway
	sender     *CallbackSender
	cfg        *config.AwakeningConfig
	model      string
}

// NewAwakeningScanner creates the scanner. model is the cheap summary model.
func NewAwakeningScanner(threads *store.ThreadStore, queue Queue, assistants *services.AssistantService,
	mem *memory.Manager, gateway *llm.Gateway, sender *CallbackSender,
	cfg *config.AwakeningConfig, llmCfg *config.LLMConfig) *AwakeningScanner {
	model := llmCfg.SummaryModel
	if model == "" {
		model = llmCfg.Model
	}
	return &AwakeningScanner{
		threads:    threads,
		queue:      queue,
		assistants: assistants,
		mem:        mem,
		gateway:    gateway,
		sender:     sender,
		cfg:        cfg,
		model:      model,
	}
}

// EnsureSchedule enqueues the first scan. Safe to call on every boot: a
// pending scan with the same schedule id dedupes to a no-op.
func (s *AwakeningScanner) EnsureSchedule(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}
	return s.schedule(ctx, time.Now())
}

// Handle processes one scan batch. Per-thread failures are logged and the
// batch continues; the next scan is always scheduled, so the handler never
// asks the runner to retry.
func (s *AwakeningScanner) Handle(ctx context.Context, _ *models.Job) error {
	defer func() {
		// Detached context: scheduling the next tick must survive a timeout
		// of this one.
		schedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.schedule(schedCtx, time.Now().Add(s.cfg.ScanInterval)); err != nil {
			slog.Error("Failed to schedule next awakening scan", "error", err)
		}
	}()

	cutoff := time.Now().Add(-s.cfg.RetryInterval)
	candidates, err := s.threads.AwakeningCandidates(ctx, cutoff, s.cfg.MaxAttempts, s.cfg.BatchSize)
	if err != nil {
		slog.Error("Awakening candidate query failed", "error", err)
		return nil
	}

	woken := 0
	for _, c := range candidates {
		if err := s.wake(ctx, c); err != nil {
			slog.Warn("Failed to awaken thread", "thread_id", c.ThreadID, "error", err)
			continue
		}
		woken++
	}
	if len(candidates) > 0 {
		slog.Info("Awakening scan finished", "eligible", len(candidates), "woken", woken)
	}
	return nil
}

func (s *AwakeningScanner) schedule(ctx context.Context, runAt time.Time) error {
	payload, err := json.Marshal(models.AwakeningSchedulePayload{ScheduleID: awakeningScheduleID})
	if err != nil {
		return err
	}
	_, err = s.queue.Enqueue(ctx, &models.Job{
		Kind:        models.JobAwakeningScan,
		Payload:     payload,
		RunAt:       runAt,
		MaxAttempts: 1,
	})
	return err
}

// wake produces and delivers one wake-up line, then records the attempt.
func (s *AwakeningScanner) wake(ctx context.Context, c models.AwakeningCandidate) error {
	assistant, err := s.assistants.RequireActive(ctx, c.TenantID, c.AssistantID)
	if err != nil {
		return err
	}

	bundle, err := s.mem.RetrieveContext(ctx, c.TenantID, c.ThreadID, "", 3)
	if err != nil {
		return err
	}

	result, err := s.gateway.CompleteWithTools(ctx, llm.ToolLoopRequest{
		Scope:         llm.ToolScope{TenantID: c.TenantID, ThreadID: c.ThreadID},
		Messages:      s.composeMessages(assistant, bundle),
		Model:         s.model,
		MaxIterations: 1,
	})
	if err != nil {
		return err
	}
	line := strings.TrimSpace(result.Content)
	if line == "" {
		return fmt.Errorf("awakening produced empty message")
	}

	env := &models.CallbackEnvelope{
		AssistantID: assistant.ID,
		ThreadID:    c.ThreadID,
		EventID:     "awakening",
		EventTime:   time.Now().UnixMilli(),
		EventContent: models.CallbackEventContent{
			Status:     "completed",
			Data:       &models.CallbackData{Output: line},
			FinishedAt: time.Now().UnixMilli(),
		},
	}
	if err := s.sender.Send(ctx, EndpointAwakening, env); err != nil {
		return fmt.Errorf("callback delivery failed: %w", err)
	}

	if _, err := s.mem.Append(ctx, c.TenantID, c.ThreadID, models.NewAssistantText(line)); err != nil {
		slog.Warn("Failed to buffer awakening message", "thread_id", c.ThreadID, "error", err)
	}
	return s.threads.RecordAwakening(ctx, c.ThreadID)
}

func (s *AwakeningScanner) composeMessages(assistant *models.Assistant, bundle *memory.ContextBundle) []models.Message {
	var system strings.Builder
	fmt.Fprintf(&system, "You are %s", assistant.Name)
	if assistant.Occupation != "" {
		fmt.Fprintf(&system, ", a %s", assistant.Occupation)
	}
	system.WriteString(".")
	if assistant.Personality != "" {
		fmt.Fprintf(&system, " Personality: %s.", assistant.Personality)
	}
	system.WriteString("\n\n")
	system.WriteString(awakeningInstruction)

	messages := []models.Message{{Role: models.RoleSystem, Content: system.String()}}
	for _, m := range bundle.ShortTerm {
		if m.Role == models.RoleUser || m.Role == models.RoleAssistant {
			messages = append(messages, m)
		}
	}
	if len(messages) == 1 {
		messages = append(messages, models.NewUserText("(no prior conversation)"))
	}
	return messages
}
