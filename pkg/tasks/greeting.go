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
)

const greetingInstruction = `Write a short, warm opening message (1-2
sentences) to greet a new customer and invite them to share what they are
looking for. Answer with the message only.`

// Greeter handles the greeting job scheduled on thread creation: a persona
// opening line produced with the cheap model and delivered via callback.
type Greeter struct {
	assistants *services.AssistantService
	mem        *memory.Manager
	gateway    *llm.Gateway
	sender     *CallbackSender
	model      string
}

// NewGreeter creates the greeting job handler.
func NewGreeter(assistants *services.AssistantService, mem *memory.Manager,
	gateway *llm.Gateway, sender *CallbackSender, llmCfg *config.LLMConfig) *Greeter {
	model := llmCfg.SummaryModel
	if model == "" {
		model = llmCfg.Model
	}
	return &Greeter{assistants: assistants, mem: mem, gateway: gateway, sender: sender, model: model}
}

// Handle produces and delivers the greeting. Inactive assistants are
// terminal; provider errors retry.
func (g *Greeter) Handle(ctx context.Context, job *models.Job) error {
	var payload models.GreetingPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return services.NewValidationError("payload", fmt.Sprintf("malformed greeting payload: %v", err))
	}

	assistant, err := g.assistants.RequireActive(ctx, job.TenantID, payload.AssistantID)
	if err != nil {
		return err
	}

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
	system.WriteString(greetingInstruction)

	result, err := g.gateway.CompleteWithTools(ctx, llm.ToolLoopRequest{
		Scope: llm.ToolScope{TenantID: job.TenantID, ThreadID: job.ThreadID},
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: system.String()},
			models.NewUserText("(new conversation)"),
		},
		Model:         g.model,
		MaxIterations: 1,
	})
	if err != nil {
		return err
	}
	greeting := strings.TrimSpace(result.Content)
	if greeting == "" {
		return fmt.Errorf("greeting produced empty message")
	}

	env := &models.CallbackEnvelope{
		AssistantID: assistant.ID,
		ThreadID:    job.ThreadID,
		EventID:     "greeting",
		EventTime:   time.Now().UnixMilli(),
		EventContent: models.CallbackEventContent{
			Status:     "completed",
			Data:       &models.CallbackData{Output: greeting},
			FinishedAt: time.Now().UnixMilli(),
		},
	}
	if err := g.sender.Send(ctx, EndpointGreeting, env); err != nil {
		return fmt.Errorf("callback delivery failed: %w", err)
	}

	if _, err := g.mem.Append(ctx, job.TenantID, job.ThreadID, models.NewAssistantText(greeting)); err != nil {
		slog.Warn("Failed to buffer greeting", "thread_id", job.ThreadID, "error", err)
	}
	return nil
}
