package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/solyn-ai/solyn/pkg/models"
)

// ToolScope carries the tenant and thread identity into tool handlers so
// every tool stays scoped to the conversation that invoked it.
type ToolScope struct {
	TenantID string
	ThreadID string
}

// ToolHandler executes one tool call and returns the content of the tool
// result message. A returned error is recoverable: the gateway feeds it
// back to the model as the tool result instead of aborting the loop.
type ToolHandler func(ctx context.Context, scope ToolScope, args json.RawMessage) (string, error)

// Registry maps tool names to definitions and handlers.
type Registry struct {
	mu       sync.RWMutex
	defs     []ToolDefinition
	handlers map[string]ToolHandler
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]ToolHandler)}
}

// Register adds a tool. Re-registering a name replaces its handler.
func (r *Registry) Register(def ToolDefinition, handler ToolHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[def.Name]; !exists {
		r.defs = append(r.defs, def)
	} else {
		for i := range r.defs {
			if r.defs[i].Name == def.Name {
				r.defs[i] = def
				break
			}
		}
	}
	r.handlers[def.Name] = handler
}

// Definitions returns the registered tool definitions in registration order.
func (r *Registry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolDefinition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Dispatch runs the handler for one tool call.
func (r *Registry) Dispatch(ctx context.Context, scope ToolScope, call models.ToolCall) (string, error) {
	r.mu.RLock()
	handler, ok := r.handlers[call.Name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown tool %q", call.Name)
	}
	return handler(ctx, scope, json.RawMessage(call.Arguments))
}
