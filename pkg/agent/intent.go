package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solyn-ai/solyn/pkg/assets"
	"github.com/solyn-ai/solyn/pkg/config"
	"github.com/solyn-ai/solyn/pkg/llm"
	"github.com/solyn-ai/solyn/pkg/models"
	"github.com/solyn-ai/solyn/pkg/workflow"
)

const intentSystemPrompt = `You extract intents from a customer message in a
sales conversation. Respond with JSON:
{
  "appointment_intent": {"detected": bool, "strength": 0..1,
    "service": string, "name": string, "phone": string,
    "time_expression": string},
  "assets_intent": {"detected": bool, "confidence": 0..1, "keywords": [string]},
  "audio_output_intent": {"detected": bool, "confidence": 0..1}
}
Omit entity fields you cannot extract.`

// ActionEmitAudio asks the run layer to synthesize a voice reply.
const ActionEmitAudio = "emit_audio"

// intentWire is the provider-facing shape with tolerant scalar coercion.
type intentWire struct {
	Appointment struct {
		Detected       bool           `json:"detected"`
		Strength       float64        `json:"strength"`
		Service        llm.FlexString `json:"service"`
		Name           llm.FlexString `json:"name"`
		Phone          llm.FlexString `json:"phone"`
		TimeExpression llm.FlexString `json:"time_expression"`
	} `json:"appointment_intent"`
	Assets struct {
		Detected   bool     `json:"detected"`
		Confidence float64  `json:"confidence"`
		Keywords   []string `json:"keywords"`
	} `json:"assets_intent"`
	AudioOutput struct {
		Detected   bool    `json:"detected"`
		Confidence float64 `json:"confidence"`
	} `json:"audio_output_intent"`
}

// IntentAgent extracts the three sub-intents in one structured call, applies
// threshold overrides, ranks tenant assets for asset questions, and
// synthesizes the appointment business outputs.
type IntentAgent struct {
	gateway *llm.Gateway
	assets  *assets.Service
	cfg     *config.IntentConfig
	now     func() time.Time
}

var _ workflow.Agent = (*IntentAgent)(nil)

// NewIntentAgent creates an IntentAgent. The assets service may be nil when
// no upstream catalog is configured.
func NewIntentAgent(gateway *llm.Gateway, assetsSvc *assets.Service, cfg *config.IntentConfig) *IntentAgent {
	return &IntentAgent{gateway: gateway, assets: assetsSvc, cfg: cfg, now: time.Now}
}

// Name implements workflow.Agent.
func (a *IntentAgent) Name() string { return workflow.NodeIntent }

// Execute implements workflow.Agent.
func (a *IntentAgent) Execute(ctx context.Context, state *workflow.State) (*workflow.Delta, error) {
	result, err := a.gateway.CompleteWithTools(ctx, llm.ToolLoopRequest{
		Scope: llm.ToolScope{TenantID: state.TenantID, ThreadID: state.ThreadID},
		Messages: []models.Message{
			{Role: models.RoleSystem, Content: intentSystemPrompt},
			{Role: models.RoleUser, Content: state.UserText()},
		},
		JSONResponse:  true,
		MaxIterations: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("intent extraction failed: %w", err)
	}

	var wire intentWire
	if err := llm.DecodeStructured(result.Content, &wire); err != nil {
		return nil, fmt.Errorf("intent response unparseable: %w", err)
	}

	analysis := a.applyThresholds(wire)

	delta := &workflow.Delta{
		Intent:       &analysis,
		ActiveAgents: []string{a.Name()},
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
	}

	if analysis.Assets.Detected {
		delta.AssetsData = a.rankAssets(ctx, state.TenantID, analysis.Assets.Keywords)
	}
	delta.BusinessOutputs = a.businessOutputs(analysis.Appointment)
	if analysis.AudioOutput.Detected {
		delta.Actions = append(delta.Actions, ActionEmitAudio)
	}
	delta.Values = map[string]any{
		a.Name(): map[string]any{
			"appointment_detected": analysis.Appointment.Detected,
			"assets_detected":      analysis.Assets.Detected,
			"audio_detected":       analysis.AudioOutput.Detected,
		},
	}
	return delta, nil
}

// applyThresholds clears detected flags whose score falls below the
// configured threshold. A score exactly at the threshold stays detected.
func (a *IntentAgent) applyThresholds(wire intentWire) workflow.IntentAnalysis {
	analysis := workflow.IntentAnalysis{
		Appointment: workflow.AppointmentIntent{
			Detected:       wire.Appointment.Detected,
			Strength:       wire.Appointment.Strength,
			Service:        wire.Appointment.Service.String(),
			Name:           wire.Appointment.Name.String(),
			Phone:          wire.Appointment.Phone.String(),
			TimeExpression: wire.Appointment.TimeExpression.String(),
		},
		Assets: workflow.AssetsIntent{
			Detected: wire.Assets.Detected,
			Keywords: wire.Assets.Keywords,
		},
		AudioOutput: workflow.AudioOutputIntent{
			Detected:   wire.AudioOutput.Detected,
			Confidence: wire.AudioOutput.Confidence,
		},
	}
	if !a.cfg.ThresholdOverride {
		return analysis
	}
	if analysis.Appointment.Detected && wire.Appointment.Strength < a.cfg.AppointmentThreshold {
		analysis.Appointment.Detected = false
	}
	if analysis.Assets.Detected && wire.Assets.Confidence < a.cfg.AssetsThreshold {
		analysis.Assets.Detected = false
	}
	if analysis.AudioOutput.Detected && wire.AudioOutput.Confidence < a.cfg.AudioOutputThreshold {
		analysis.AudioOutput.Detected = false
	}
	return analysis
}

// rankAssets loads the tenant catalog and keeps the top keyword matches.
// Catalog failures degrade to an empty result; the turn continues.
func (a *IntentAgent) rankAssets(ctx context.Context, tenantID string, keywords []string) []models.Asset {
	if a.assets == nil || len(keywords) == 0 {
		return nil
	}
	catalog, err := a.assets.Catalog(ctx, tenantID)
	if err != nil {
		slog.Warn("Assets catalog unavailable", "tenant_id", tenantID, "error", err)
		return nil
	}
	return assets.Rank(catalog, keywords, a.cfg.AssetsTopK)
}

// businessOutputs synthesizes the appointment projection. Status is 1 only
// when the intent is strong enough and the time expression resolves to a
// future timestamp.
func (a *IntentAgent) businessOutputs(appt workflow.AppointmentIntent) *models.BusinessOutputs {
	out := &models.BusinessOutputs{
		Service: appt.Service,
		Name:    appt.Name,
		Phone:   appt.Phone,
	}
	if !appt.Detected {
		return out
	}
	now := a.now()
	resolved, ok := ResolveTimeExpression(appt.TimeExpression, now)
	if ok {
		out.Time = resolved.UnixMilli()
	}
	if appt.Strength >= a.cfg.AppointmentStrength && ok && resolved.After(now) {
		out.Status = 1
	}
	return out
}
