package agent

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solyn-ai/solyn/pkg/assets"
	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/llm"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/workflow"
)

func intentState() *workflow.State {
	return workflow.NewState("wf", "tenant", "thread", "assistant",
		[]models.Message{models.NewUserText("我想明天下午预约剪发，有没有海景房源？")})
}

func newIntentAgent(client llm.Client, assetsSvc *assets.Service, at time.Time) *IntentAgent {
	a := NewIntentAgent(newTestGateway(client), assetsSvc, config.DefaultIntentConfig())
	a.now = func() time.Time { return at }
	return a
}

func TestIntentAgentAppointmentStatusRequiresStrengthAndFutureTime(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)

	tests := []struct {
		name           string
		payload        string
		expectedStatus int
	}{
		{
			"strong intent with future time",
			`{"appointment_intent":{"detected":true,"strength":0.9,"service":"haircut","time_expression":"明天下午3点"}}`,
			1,
		},
		{
			"strength exactly at cutoff",
			`{"appointment_intent":{"detected":true,"strength":0.6,"service":"haircut","time_expression":"tomorrow"}}`,
			1,
		},
		{
			"weak intent",
			`{"appointment_intent":{"detected":true,"strength":0.55,"service":"haircut","time_expression":"tomorrow"}}`,
			0,
		},
		{
			"unparseable time",
			`{"appointment_intent":{"detected":true,"strength":0.9,"service":"haircut","time_expression":"sometime"}}`,
			0,
		},
		{
			"missing time",
			`{"appointment_intent":{"detected":true,"strength":0.9,"service":"haircut"}}`,
			0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &scriptClient{responses: []*llm.CompletionResponse{jsonResponse(tt.payload, 5, 5)}}
			a := newIntentAgent(client, nil, now)

			delta, err := a.Execute(context.Background(), intentState())
			require.NoError(t, err)
			require.NotNil(t, delta.BusinessOutputs)
			assert.Equal(t, tt.expectedStatus, delta.BusinessOutputs.Status)
			if tt.expectedStatus == 1 {
				assert.Greater(t, delta.BusinessOutputs.Time, now.UnixMilli())
			}
		})
	}
}

func TestIntentAgentThresholdOverride(t *testing.T) {
	payload := `{
		"appointment_intent":{"detected":true,"strength":0.4},
		"assets_intent":{"detected":true,"confidence":0.5,"keywords":["sea"]},
		"audio_output_intent":{"detected":true,"confidence":0.3}
	}`
	client := &scriptClient{responses: []*llm.CompletionResponse{jsonResponse(payload, 5, 5)}}
	a := newIntentAgent(client, nil, time.Now())

	delta, err := a.Execute(context.Background(), intentState())
	require.NoError(t, err)
	require.NotNil(t, delta.Intent)

	// 0.4 < 0.5 threshold clears appointment; 0.5 == 0.5 keeps assets;
	// 0.3 < 0.5 clears audio.
	assert.False(t, delta.Intent.Appointment.Detected)
	assert.True(t, delta.Intent.Assets.Detected)
	assert.False(t, delta.Intent.AudioOutput.Detected)
	assert.Empty(t, delta.Actions)
}

func TestIntentAgentEmitsAudioAction(t *testing.T) {
	payload := `{"audio_output_intent":{"detected":true,"confidence":0.9}}`
	client := &scriptClient{responses: []*llm.CompletionResponse{jsonResponse(payload, 5, 5)}}
	a := newIntentAgent(client, nil, time.Now())

	delta, err := a.Execute(context.Background(), intentState())
	require.NoError(t, err)
	assert.Equal(t, []string{ActionEmitAudio}, delta.Actions)
}

func TestIntentAgentRanksAssets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"assets":[
			{"id":"1","name":"Sea View Apartment","content":"near the beach"},
			{"id":"2","name":"Parking Spot","content":"underground"},
			{"id":"3","name":"Loft","content":"sea glimpse"},
			{"id":"4","name":"Sea House","content":"on the sea"}
		]}`))
	}))
	defer server.Close()

	assetsCfg := config.DefaultAssetsConfig()
	assetsCfg.BaseURL = server.URL
	assetsSvc := assets.NewService(assetsCfg, nil)

	payload := `{"assets_intent":{"detected":true,"confidence":0.9,"keywords":["sea"]}}`
	client := &scriptClient{responses: []*llm.CompletionResponse{jsonResponse(payload, 5, 5)}}
	a := newIntentAgent(client, assetsSvc, time.Now())

	delta, err := a.Execute(context.Background(), intentState())
	require.NoError(t, err)
	require.Len(t, delta.AssetsData, 3) // top-k default
	assert.Equal(t, "4", delta.AssetsData[0].ID)
	assert.Equal(t, "1", delta.AssetsData[1].ID)
	assert.Equal(t, "3", delta.AssetsData[2].ID)
}

func TestIntentAgentCoercesListValuedEntities(t *testing.T) {
	payload := `{"appointment_intent":{"detected":true,"strength":0.9,
		"service":["haircut","coloring"],"time_expression":"tomorrow"}}`
	client := &scriptClient{responses: []*llm.CompletionResponse{jsonResponse(payload, 5, 5)}}
	a := newIntentAgent(client, nil, time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local))

	delta, err := a.Execute(context.Background(), intentState())
	require.NoError(t, err)
	assert.Equal(t, "haircut, coloring", delta.Intent.Appointment.Service)
	assert.Equal(t, "haircut, coloring", delta.BusinessOutputs.Service)
}
