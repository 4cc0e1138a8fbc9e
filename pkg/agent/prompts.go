// Package agent hosts the standard workflow agents: sentiment/prompt
// matching, intent extraction, and the tool-enabled sales reply.
package agent

import "github.com/solyn-ai/solyn/pkg/workflow"

// Sentiment levels.
const (
	LevelNegative = "negative"
	LevelNeutral  = "neutral"
	LevelPositive = "positive"
)

// Journey stages, derived from the customer's user-turn count.
const (
	StageAwareness     = "awareness"
	StageConsideration = "consideration"
	StageDecision      = "decision"
)

// PromptMatrix maps (sentiment level, journey stage) to a pre-authored
// persona prompt fragment.
type PromptMatrix map[string]map[string]workflow.MatchedPrompt

// Lookup returns the fragment for the given cell, falling back to the
// neutral/awareness cell when the matrix has no entry.
func (m PromptMatrix) Lookup(level, stage string) workflow.MatchedPrompt {
	if byStage, ok := m[level]; ok {
		if p, ok := byStage[stage]; ok {
			return p
		}
	}
	return m[LevelNeutral][StageAwareness]
}

// DefaultPromptMatrix is the built-in persona fragment matrix.
func DefaultPromptMatrix() PromptMatrix {
	return PromptMatrix{
		LevelNegative: {
			StageAwareness: {
				SystemPrompt: "The customer seems frustrated and is just getting to know us. Acknowledge their concern before anything else.",
				Tone:         "empathetic",
				Strategy:     "de-escalate, build trust, no selling",
			},
			StageConsideration: {
				SystemPrompt: "The customer is comparing options but something bothers them. Address objections directly and honestly.",
				Tone:         "calm",
				Strategy:     "handle objections, offer proof points",
			},
			StageDecision: {
				SystemPrompt: "The customer is close to deciding but unhappy. Resolve the friction and make the next step effortless.",
				Tone:         "reassuring",
				Strategy:     "remove blockers, offer concrete guarantees",
			},
		},
		LevelNeutral: {
			StageAwareness: {
				SystemPrompt: "The customer is exploring. Be helpful and informative without pushing.",
				Tone:         "friendly",
				Strategy:     "educate, ask one clarifying question",
			},
			StageConsideration: {
				SystemPrompt: "The customer is weighing options. Highlight what fits their stated needs.",
				Tone:         "consultative",
				Strategy:     "match needs to offerings, compare honestly",
			},
			StageDecision: {
				SystemPrompt: "The customer is ready to act. Be concrete about next steps.",
				Tone:         "confident",
				Strategy:     "propose a specific next step, confirm details",
			},
		},
		LevelPositive: {
			StageAwareness: {
				SystemPrompt: "The customer is enthusiastic and new. Keep the energy while grounding expectations.",
				Tone:         "warm",
				Strategy:     "build rapport, surface needs",
			},
			StageConsideration: {
				SystemPrompt: "The customer likes what they see. Reinforce the fit and gently move forward.",
				Tone:         "upbeat",
				Strategy:     "reinforce value, suggest a concrete option",
			},
			StageDecision: {
				SystemPrompt: "The customer is ready and positive. Close warmly and confirm the arrangement.",
				Tone:         "enthusiastic",
				Strategy:     "close, confirm time and details",
			},
		},
	}
}

// levelFromScore maps a [-1,1] sentiment score onto the three levels.
func levelFromScore(score float64) string {
	switch {
	case score <= -0.25:
		return LevelNegative
	case score >= 0.25:
		return LevelPositive
	default:
		return LevelNeutral
	}
}

// stageFromUserTurns maps the count of user turns in short-term memory onto
// the journey stage.
func stageFromUserTurns(turns int) string {
	switch {
	case turns <= 2:
		return StageAwareness
	case turns <= 5:
		return StageConsideration
	default:
		return StageDecision
	}
}
