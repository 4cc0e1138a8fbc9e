package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/solyn-ai/solyn/pkg/memory"
	"github.com/solyn-ai/solyn/pkg/models"
)

// Tool names exposed to the model.
const (
	ToolLongTermMemoryLookup = "long_term_memory_lookup"
	ToolStoreEpisodicMemory  = "store_episodic_memory"
)

// RegisterMemoryTools wires the memory manager into the tool registry.
func RegisterMemoryTools(r *Registry, mem *memory.Manager) {
	r.Register(ToolDefinition{
		Name:        ToolLongTermMemoryLookup,
		Description: "Search the customer's long-term memory for facts relevant to the given keywords.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"query": {"type": "string", "description": "Keywords to search for"},
				"limit": {"type": "integer", "description": "Maximum entries to return"}
			},
			"required": ["query"]
		}`),
	}, longTermLookupHandler(mem))

	r.Register(ToolDefinition{
		Name:        ToolStoreEpisodicMemory,
		Description: "Store an important fact about the customer for future conversations.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"content": {"type": "string", "description": "The fact to remember"},
				"tags": {"type": "array", "items": {"type": "string"}},
				"importance_score": {"type": "number", "description": "0 to 1"}
			},
			"required": ["content"]
		}`),
	}, storeEpisodicHandler(mem))
}

func longTermLookupHandler(mem *memory.Manager) ToolHandler {
	return func(ctx context.Context, scope ToolScope, args json.RawMessage) (string, error) {
		var params struct {
			Query string `json:"query"`
			Limit int    `json:"limit"`
		}
		if err := json.Unmarshal(args, &params); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		if params.Limit <= 0 {
			params.Limit = 5
		}
		bundle, err := mem.RetrieveContext(ctx, scope.TenantID, scope.ThreadID, params.Query, params.Limit)
		if err != nil {
			return "", err
		}
		if len(bundle.LongTerm) == 0 {
			return "No relevant memories found.", nil
		}
		type hit struct {
			Content    string   `json:"content"`
			Tags       []string `json:"tags,omitempty"`
			Importance float64  `json:"importance_score"`
		}
		hits := make([]hit, 0, len(bundle.LongTerm))
		for _, e := range bundle.LongTerm {
			hits = append(hits, hit{Content: e.Content, Tags: e.Tags, Importance: e.ImportanceScore})
		}
		data, err := json.Marshal(hits)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
}

func storeEpisodicHandler(mem *memory.Manager) ToolHandler {
	return func(ctx context.Context, scope ToolScope, args json.RawMessage) (string, error) {
		var params struct {
			Content    string   `json:"content"`
			Tags       []string `json:"tags"`
			Importance float64  `json:"importance_score"`
		}
		if err := json.Unmarshal(args, &params); err != nil {
			return "", fmt.Errorf("invalid arguments: %w", err)
		}
		if params.Importance <= 0 {
			params.Importance = 0.5
		}
		entry, err := mem.StoreLongTerm(ctx, scope.TenantID, scope.ThreadID,
			params.Content, models.MemoryEpisodic, params.Tags, params.Importance, 0)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Stored memory %s.", entry.ID), nil
	}
}
