// Package llm implements the tool & LLM gateway: a provider-agnostic client
// interface, the go-openai implementation with retries, the bounded
// tool-call loop, and the tool handler registry.
package llm

import (
	"context"
	"encoding/json"

	"github.com/solyn-ai/solyn/pkg/models"
)

// ToolDefinition describes one callable tool advertised to the provider.
// Parameters is a raw JSON schema object.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// CompletionRequest is one provider round trip.
type CompletionRequest struct {
	Model        string
	Messages     []models.Message
	Tools        []ToolDefinition
	JSONResponse bool
	Temperature  float32
	MaxTokens    int
}

// Usage is the token accounting for one or more provider calls.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Add accumulates another usage report.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
}

// CompletionResponse is the provider's reply: an assistant message that may
// carry tool calls, plus token usage.
type CompletionResponse struct {
	Message models.Message
	Usage   Usage
}

// Client is the provider abstraction. Implementations must return *Error
// for upstream failures so callers can map them to the gateway taxonomy.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
