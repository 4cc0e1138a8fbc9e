package agent

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyn-ai/solyn/pkg/llm"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/workflow"
)

func sentimentState(text string) *workflow.State {
	return workflow.NewState("wf", "tenant", "thread", "assistant",
		[]models.Message{models.NewUserText(text)})
}

func TestSentimentAgentClassifiesAndMatchesPrompt(t *testing.T) {
	tests := []struct {
		name          string
		score         string
		priorTurns    int
		expectedLevel string
		expectedStage string
	}{
		{"positive awareness", `{"score": 0.8}`, 1, LevelPositive, StageAwareness},
		{"neutral consideration", `{"score": 0.1}`, 4, LevelNeutral, StageConsideration},
		{"negative decision", `{"score": -0.7}`, 7, LevelNegative, StageDecision},
		{"boundary stays neutral", `{"score": -0.2}`, 2, LevelNeutral, StageAwareness},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mem, buf, _ := newTestManager()
			ctx := context.Background()
			for i := 0; i < tt.priorTurns; i++ {
				_, err := buf.Append(ctx, "thread", models.NewUserText(fmt.Sprintf("turn %d", i)))
				require.NoError(t, err)
			}

			client := &scriptClient{responses: []*llm.CompletionResponse{jsonResponse(tt.score, 12, 4)}}
			a := NewSentimentAgent(newTestGateway(client), mem, nil)

			delta, err := a.Execute(ctx, sentimentState("你好"))
			require.NoError(t, err)

			require.NotNil(t, delta.Sentiment)
			assert.Equal(t, tt.expectedLevel, delta.Sentiment.Level)
			assert.Equal(t, tt.expectedStage, delta.Sentiment.JourneyStage)

			require.NotNil(t, delta.MatchedPrompt)
			expected := DefaultPromptMatrix().Lookup(tt.expectedLevel, tt.expectedStage)
			assert.Equal(t, expected, *delta.MatchedPrompt)

			assert.Equal(t, []string{workflow.NodeSentiment}, delta.ActiveAgents)
			assert.Equal(t, 12, delta.InputTokens)
			assert.Equal(t, 4, delta.OutputTokens)
		})
	}
}

func TestSentimentAgentClampsScore(t *testing.T) {
	mem, _, _ := newTestManager()
	client := &scriptClient{responses: []*llm.CompletionResponse{jsonResponse(`{"score": 3.5}`, 1, 1)}}
	a := NewSentimentAgent(newTestGateway(client), mem, nil)

	delta, err := a.Execute(context.Background(), sentimentState("great!"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, delta.Sentiment.Score)
	assert.Equal(t, LevelPositive, delta.Sentiment.Level)
}

func TestSentimentAgentRejectsUnparseableResponse(t *testing.T) {
	mem, _, _ := newTestManager()
	client := &scriptClient{responses: []*llm.CompletionResponse{jsonResponse("not json at all", 1, 1)}}
	a := NewSentimentAgent(newTestGateway(client), mem, nil)

	_, err := a.Execute(context.Background(), sentimentState("hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unparseable")
}
