package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/memory"
	"github.com/solyn-ai/solyn/pkg/models"
)

const summarySystemPrompt = `You condense sales conversations. Summarize the
conversation below in a few sentences, keeping customer facts, preferences,
stated needs, and any commitments made. Answer with the summary only.`

// ConversationSummarizer implements memory.Summarizer on the provider
// client, using the cheaper summary model.
type ConversationSummarizer struct {
	client Client
	model  string
}

var _ memory.Summarizer = (*ConversationSummarizer)(nil)

// NewConversationSummarizer creates a summarizer from configuration.
func NewConversationSummarizer(client Client, cfg *config.LLMConfig) *ConversationSummarizer {
	model := cfg.SummaryModel
	if model == "" {
		model = cfg.Model
	}
	return &ConversationSummarizer{client: client, model: model}
}

// Summarize produces one summary string for the message window.
func (s *ConversationSummarizer) Summarize(ctx context.Context, msgs []models.Message) (string, error) {
	var transcript strings.Builder
	for _, m := range msgs {
		if m.Role != models.RoleUser && m.Role != models.RoleAssistant {
			continue
		}
		fmt.Fprintf(&transcript, "%s: %s\n", m.Role, m.Text())
	}

	resp, err := s.client.Complete(ctx, CompletionRequest{
		Model: s.model,
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: summarySystemPrompt},
			{Role: models.RoleUser, Content: transcript.String()},
		},
	})
	if err != nil {
		return "", err
	}
	summary := strings.TrimSpace(resp.Message.Content)
	if summary == "" {
		return "", fmt.Errorf("summarizer returned empty content")
	}
	return summary, nil
}
