// Package workflow implements the workflow graph engine: a typed execution
// state with per-field reducers, a declared DAG of agent nodes, and a
// concurrent driver that folds agent deltas in arrival order.
package workflow

import (
	"time"

	"github.com/solyn-ai/solyn/pkg/models"
)

// SentimentAnalysis is the sentiment agent's classification result.
type SentimentAnalysis struct {
	Score        float64 `json:"score"` // -1..1
	Level        string  `json:"level"` // negative | neutral | positive
	JourneyStage string  `json:"journey_stage"`
}

// AppointmentIntent is the appointment sub-intent with extracted entities.
type AppointmentIntent struct {
	Detected       bool    `json:"detected"`
	Strength       float64 `json:"strength"`
	Service        string  `json:"service,omitempty"`
	Name           string  `json:"name,omitempty"`
	Phone          string  `json:"phone,omitempty"`
	TimeExpression string  `json:"time_expression,omitempty"`
}

// AssetsIntent flags that the customer asked about catalog items.
type AssetsIntent struct {
	Detected bool     `json:"detected"`
	Keywords []string `json:"keywords,omitempty"`
}

// AudioOutputIntent flags that the reply should be voiced.
type AudioOutputIntent struct {
	Detected   bool    `json:"detected"`
	Confidence float64 `json:"confidence"`
}

// IntentAnalysis is the intent agent's structured result.
type IntentAnalysis struct {
	Appointment AppointmentIntent `json:"appointment_intent"`
	Assets      AssetsIntent      `json:"assets_intent"`
	AudioOutput AudioOutputIntent `json:"audio_output_intent"`
}

// MatchedPrompt is the persona prompt fragment selected from the
// (sentiment level x journey stage) matrix.
type MatchedPrompt struct {
	SystemPrompt string `json:"system_prompt"`
	Tone         string `json:"tone"`
	Strategy     string `json:"strategy"`
}

// State is the workflow execution state. Agents read it and return deltas;
// only the engine's reducer loop writes it, so no field needs a lock.
type State struct {
	// identity
	WorkflowID  string
	ThreadID    string
	AssistantID string
	TenantID    string

	// inputs
	Input []models.Message

	// intermediate per-agent outputs
	Sentiment       *SentimentAnalysis
	Intent          *IntentAnalysis
	MatchedPrompt   *MatchedPrompt
	AssetsData      []models.Asset
	BusinessOutputs *models.BusinessOutputs
	Actions         []string

	// outputs
	Output            string
	MultimodalOutputs []models.MultimodalOutput
	InputTokens       int
	OutputTokens      int
	TotalTokens       int

	// diagnostics
	Values         map[string]any
	ActiveAgents   []string
	ErrorMessage   string
	ExceptionCount int
	StartedAt      time.Time
	FinishedAt     *time.Time
}

// NewState creates a fresh execution state for one turn.
func NewState(workflowID, tenantID, threadID, assistantID string, input []models.Message) *State {
	return &State{
		WorkflowID:  workflowID,
		TenantID:    tenantID,
		ThreadID:    threadID,
		AssistantID: assistantID,
		Input:       input,
		Values:      make(map[string]any),
		StartedAt:   time.Now(),
	}
}

// UserText flattens this turn's user input into plain text.
func (s *State) UserText() string {
	var out string
	for _, m := range s.Input {
		if m.Role != models.RoleUser {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += m.Text()
	}
	return out
}
