package agent

import (
	"context"
	"fmt"

	"github.com/solyn-ai/solyn/pkg/llm"
	"github.com/solyn-ai/solyn/pkg/memory"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/workflow"
)

const sentimentSystemPrompt = `You are a sentiment classifier for sales
conversations. Rate the customer's latest message from -1 (very negative)
to 1 (very positive). Respond with JSON: {"score": <number>}`

// SentimentAgent classifies the turn's sentiment, derives the customer's
// journey stage from their user-turn count, and selects the persona prompt
// fragment from the (level x stage) matrix.
type SentimentAgent struct {
	gateway *llm.Gateway
	mem     *memory.Manager
	matrix  PromptMatrix
}

var _ workflow.Agent = (*SentimentAgent)(nil)

// NewSentimentAgent creates a SentimentAgent.
func NewSentimentAgent(gateway *llm.Gateway, mem *memory.Manager, matrix PromptMatrix) *SentimentAgent {
	if matrix == nil {
		matrix = DefaultPromptMatrix()
	}
	return &SentimentAgent{gateway: gateway, mem: mem, matrix: matrix}
}

// Name implements workflow.Agent.
func (a *SentimentAgent) Name() string { return workflow.NodeSentiment }

// Execute implements workflow.Agent.
func (a *SentimentAgent) Execute(ctx context.Context, state *workflow.State) (*workflow.Delta, error) {
	result, err := a.gateway.CompleteWithTools(ctx, llm.ToolLoopRequest{
		Scope: llm.ToolScope{TenantID: state.TenantID, ThreadID: state.ThreadID},
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: sentimentSystemPrompt},
			{Role: models.RoleUser, Content: state.UserText()},
		},
		JSONResponse:  true,
		MaxIterations: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("sentiment classification failed: %w", err)
	}

	var parsed struct {
		Score float64 `json:"score"`
	}
	if err := llm.DecodeStructured(result.Content, &parsed); err != nil {
		return nil, fmt.Errorf("sentiment response unparseable: %w", err)
	}
	if parsed.Score < -1 {
		parsed.Score = -1
	}
	if parsed.Score > 1 {
		parsed.Score = 1
	}

	turns, err := a.userTurns(ctx, state.ThreadID)
	if err != nil {
		return nil, err
	}

	level := levelFromScore(parsed.Score)
	stage := stageFromUserTurns(turns)
	matched := a.matrix.Lookup(level, stage)

	return &workflow.Delta{
		Sentiment: &workflow.SentimentAnalysis{
			Score:        parsed.Score,
			Level:        level,
			JourneyStage: stage,
		},
		MatchedPrompt: &matched,
		ActiveAgents:  []string{a.Name()},
		InputTokens:   result.Usage.InputTokens,
		OutputTokens:  result.Usage.OutputTokens,
		Values: map[string]any{
			a.Name(): map[string]any{
				"score":         parsed.Score,
				"level":         level,
				"journey_stage": stage,
			},
		},
	}, nil
}

func (a *SentimentAgent) userTurns(ctx context.Context, threadID string) (int, error) {
	msgs, err := a.mem.Recent(ctx, threadID, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to read short-term memory: %w", err)
	}
	turns := 0
	for _, m := range msgs {
		if m.Role == models.RoleUser {
			turns++
		}
	}
	return turns, nil
}
