package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/solyn-ai/solyn/pkg/llm"
	"github.com/solyn-ai/solyn/pkg/memory"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/workflow"
)

// AssistantResolver resolves the persona for prompt composition.
// Implemented by services.AssistantService.
type AssistantResolver interface {
	Get(ctx context.Context, assistantID string) (*models.Assistant, error)
}

// SalesAgent composes the final reply: persona role prompt, the matched
// prompt fragment, conversation context, and long-term memory, sent through
// the gateway with tools enabled. The reply is persisted back into
// short-term memory.
type SalesAgent struct {
	gateway    *llm.Gateway
	mem        *memory.Manager
	assistants AssistantResolver
}

var _ workflow.Agent = (*SalesAgent)(nil)

// NewSalesAgent creates a SalesAgent.
func NewSalesAgent(gateway *llm.Gateway, mem *memory.Manager, assistants AssistantResolver) *SalesAgent {
	return &SalesAgent{gateway: gateway, mem: mem, assistants: assistants}
}

// Name implements workflow.Agent.
func (a *SalesAgent) Name() string { return workflow.NodeSales }

// Execute implements workflow.Agent.
func (a *SalesAgent) Execute(ctx context.Context, state *workflow.State) (*workflow.Delta, error) {
	assistant, err := a.assistants.Get(ctx, state.AssistantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve assistant: %w", err)
	}

	bundle, err := a.mem.RetrieveContext(ctx, state.TenantID, state.ThreadID, state.UserText(), 5)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve memory context: %w", err)
	}

	messages := a.composeMessages(assistant, state, bundle)
	result, err := a.gateway.CompleteWithTools(ctx, llm.ToolLoopRequest{
		Scope:     llm.ToolScope{TenantID: state.TenantID, ThreadID: state.ThreadID},
		Messages:  messages,
		WithTools: true,
	})
	if err != nil {
		return nil, err
	}

	reply := strings.TrimSpace(result.Content)
	if reply == "" {
		return nil, fmt.Errorf("sales agent produced empty reply")
	}

	// Persist the reply so the next turn and the summarizer see it.
	if _, err := a.mem.Append(ctx, state.TenantID, state.ThreadID, models.NewAssistantText(reply)); err != nil {
		slog.Error("Failed to persist assistant reply", "thread_id", state.ThreadID, "error", err)
	}

	return &workflow.Delta{
		Output:       &reply,
		ActiveAgents: []string{a.Name()},
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
		Values: map[string]any{
			a.Name(): map[string]any{"iterations": result.Iterations},
		},
	}, nil
}

func (a *SalesAgent) composeMessages(assistant *models.Assistant, state *workflow.State, bundle *memory.ContextBundle) []models.Message {
	var system strings.Builder
	fmt.Fprintf(&system, "You are %s", assistant.Name)
	if assistant.Occupation != "" {
		fmt.Fprintf(&system, ", a %s", assistant.Occupation)
	}
	if assistant.Industry != "" {
		fmt.Fprintf(&system, " in the %s industry", assistant.Industry)
	}
	system.WriteString(".")
	if assistant.Personality != "" {
		fmt.Fprintf(&system, " Personality: %s.", assistant.Personality)
	}

	if mp := state.MatchedPrompt; mp != nil {
		fmt.Fprintf(&system, "\n\n%s", mp.SystemPrompt)
		if mp.Tone != "" {
			fmt.Fprintf(&system, "\nTone: %s.", mp.Tone)
		}
		if mp.Strategy != "" {
			fmt.Fprintf(&system, " Strategy: %s.", mp.Strategy)
		}
	}

	if len(bundle.LongTerm) > 0 {
		system.WriteString("\n\nWhat you remember about this customer:")
		for _, e := range bundle.LongTerm {
			fmt.Fprintf(&system, "\n- %s", e.Content)
		}
	}

	if len(state.AssetsData) > 0 {
		system.WriteString("\n\nRelevant catalog items:")
		for _, asset := range state.AssetsData {
			fmt.Fprintf(&system, "\n- %s: %s", asset.Name, asset.Content)
		}
	}

	messages := []models.Message{{Role: models.RoleSystem, Content: system.String()}}
	if len(bundle.ShortTerm) > 0 {
		for _, m := range bundle.ShortTerm {
			if m.Role == models.RoleUser || m.Role == models.RoleAssistant {
				messages = append(messages, m)
			}
		}
	} else {
		messages = append(messages, state.Input...)
	}
	return messages
}
