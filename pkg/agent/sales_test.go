package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyn-ai/solyn/pkg/llm"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/workflow"
)

type stubResolver struct {
	assistant *models.Assistant
	err       error
}

func (r *stubResolver) Get(_ context.Context, _ string) (*models.Assistant, error) {
	return r.assistant, r.err
}

func testAssistant() *models.Assistant {
	return &models.Assistant{
		ID:          "assistant",
		TenantID:    "tenant",
		Status:      models.AssistantActive,
		Name:        "Lily",
		Occupation:  "real estate consultant",
		Personality: "warm and direct",
		Industry:    "property",
	}
}

func TestSalesAgentProducesReplyAndPersistsIt(t *testing.T) {
	mem, buf, _ := newTestManager()
	ctx := context.Background()
	_, err := buf.Append(ctx, "thread", models.NewUserText("有海景房吗"))
	require.NoError(t, err)

	client := &scriptClient{responses: []*llm.CompletionResponse{
		jsonResponse("有的，我们有几套海景房源。", 100, 30),
	}}
	a := NewSalesAgent(newTestGateway(client), mem, &stubResolver{assistant: testAssistant()})

	state := workflow.NewState("wf", "tenant", "thread", "assistant",
		[]models.Message{models.NewUserText("有海景房吗")})
	state.MatchedPrompt = &workflow.MatchedPrompt{
		SystemPrompt: "The customer is exploring.",
		Tone:         "friendly",
		Strategy:     "educate",
	}

	delta, err := a.Execute(ctx, state)
	require.NoError(t, err)
	require.NotNil(t, delta.Output)
	assert.Equal(t, "有的，我们有几套海景房源。", *delta.Output)
	assert.Equal(t, []string{workflow.NodeSales}, delta.ActiveAgents)
	assert.Equal(t, 100, delta.InputTokens)
	assert.Equal(t, 30, delta.OutputTokens)

	// The reply lands in short-term memory for the next turn.
	msgs, err := buf.Recent(ctx, "thread", 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, models.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "有的，我们有几套海景房源。", msgs[1].Content)

	// The system prompt carries persona and matched fragment.
	system := client.requests[0].Messages[0]
	assert.Equal(t, models.RoleSystem, system.Role)
	assert.Contains(t, system.Content, "Lily")
	assert.Contains(t, system.Content, "real estate consultant")
	assert.Contains(t, system.Content, "The customer is exploring.")
	assert.Contains(t, system.Content, "Tone: friendly")
}

func TestSalesAgentIncludesLongTermMemoryAndAssets(t *testing.T) {
	mem, _, long := newTestManager()
	ctx := context.Background()
	require.NoError(t, long.Insert(ctx, &models.MemoryEntry{ID: "m1", Content: "prefers sea views"}))

	client := &scriptClient{responses: []*llm.CompletionResponse{jsonResponse("ok", 1, 1)}}
	a := NewSalesAgent(newTestGateway(client), mem, &stubResolver{assistant: testAssistant()})

	state := workflow.NewState("wf", "tenant", "thread", "assistant",
		[]models.Message{models.NewUserText("anything new?")})
	state.AssetsData = []models.Asset{{ID: "1", Name: "Sea View Apartment", Content: "two bedrooms"}}

	_, err := a.Execute(ctx, state)
	require.NoError(t, err)

	system := client.requests[0].Messages[0].Content
	assert.Contains(t, system, "prefers sea views")
	assert.Contains(t, system, "Sea View Apartment")
}

func TestSalesAgentRejectsEmptyReply(t *testing.T) {
	mem, _, _ := newTestManager()
	client := &scriptClient{responses: []*llm.CompletionResponse{jsonResponse("   ", 1, 1)}}
	a := NewSalesAgent(newTestGateway(client), mem, &stubResolver{assistant: testAssistant()})

	state := workflow.NewState("wf", "tenant", "thread", "assistant",
		[]models.Message{models.NewUserText("hi")})
	_, err := a.Execute(context.Background(), state)
	require.Error(t, err)
}
