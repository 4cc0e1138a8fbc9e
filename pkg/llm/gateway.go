package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/models"
)

// Gateway drives the bounded tool-call loop over a provider client.
type Gateway struct {
	client        Client
	tools         *Registry
	model         string
	maxIterations int
}

// NewGateway creates a Gateway.
func NewGateway(client Client, tools *Registry, cfg *config.LLMConfig) *Gateway {
	return &Gateway{
		client:        client,
		tools:         tools,
		model:         cfg.Model,
		maxIterations: cfg.MaxToolIterations,
	}
}

// ToolLoopRequest is one gateway conversation turn.
type ToolLoopRequest struct {
	Scope         ToolScope
	Messages      []models.Message
	WithTools     bool
	JSONResponse  bool
	Model         string
	MaxIterations int
}

// ToolLoopResult is the final outcome of a tool loop.
type ToolLoopResult struct {
	Content    string
	Usage      Usage
	Iterations int
}

// CompleteWithTools runs the provider loop: each iteration sends the
// transcript, executes any requested tool calls in order (one tool message
// per call), and feeds the results back. Token usage accumulates across
// iterations. When the iteration cap is reached the last response's content
// is returned; if that content is empty the sanitized first-iteration
// content is used instead.
func (g *Gateway) CompleteWithTools(ctx context.Context, req ToolLoopRequest) (*ToolLoopResult, error) {
	maxIterations := req.MaxIterations
	if maxIterations <= 0 {
		maxIterations = g.maxIterations
	}
	model := req.Model
	if model == "" {
		model = g.model
	}
	var tools []ToolDefinition
	if req.WithTools && g.tools != nil {
		tools = g.tools.Definitions()
	}

	transcript := append([]models.Message(nil), req.Messages...)
	result := &ToolLoopResult{}
	var firstContent, lastContent string

	for iteration := 0; iteration < maxIterations; iteration++ {
		resp, err := g.client.Complete(ctx, CompletionRequest{
			Model:        model,
			Messages:     transcript,
			Tools:        tools,
			JSONResponse: req.JSONResponse,
		})
		if err != nil {
			return nil, err
		}
		result.Usage.Add(resp.Usage)
		result.Iterations = iteration + 1

		content := resp.Message.Content
		if iteration == 0 {
			content = Sanitize(content)
			firstContent = content
		}
		lastContent = content

		if len(resp.Message.ToolCalls) == 0 {
			result.Content = content
			return result, nil
		}

		transcript = append(transcript, resp.Message)
		for _, call := range resp.Message.ToolCalls {
			output, err := g.tools.Dispatch(ctx, req.Scope, call)
			if err != nil {
				slog.Warn("Tool call failed", "tool", call.Name, "thread_id", req.Scope.ThreadID, "error", err)
				output = fmt.Sprintf("tool %s failed: %v", call.Name, err)
			}
			transcript = append(transcript, models.Message{
				Role:       models.RoleTool,
				Content:    output,
				ToolCallID: call.ID,
				ToolName:   call.Name,
			})
		}
	}

	if strings.TrimSpace(lastContent) == "" {
		lastContent = firstContent
	}
	result.Content = lastContent
	return result, nil
}
