package workflow

import "github.com/solyn-ai/solyn/pkg/models"

// Delta is one agent's partial contribution to the state. Nil pointers and
// empty slices mean "no contribution" for their field; the reducer only
// touches fields the agent actually set.
type Delta struct {
	Sentiment       *SentimentAnalysis
	Intent          *IntentAnalysis
	MatchedPrompt   *MatchedPrompt
	AssetsData      []models.Asset
	BusinessOutputs *models.BusinessOutputs

	Actions           []string
	MultimodalOutputs []models.MultimodalOutput
	ActiveAgents      []string

	Output *string

	InputTokens    int
	OutputTokens   int
	ExceptionCount int

	Values map[string]any
}

// apply folds a delta into the state. Called only from the engine's reducer
// loop, one delta at a time, which is what defines concat order.
func apply(s *State, d *Delta) {
	if d == nil {
		return
	}

	// single-writer fields, last-write-wins
	if d.Sentiment != nil {
		s.Sentiment = d.Sentiment
	}
	if d.Intent != nil {
		s.Intent = d.Intent
	}
	if d.MatchedPrompt != nil {
		s.MatchedPrompt = d.MatchedPrompt
	}
	if d.AssetsData != nil {
		s.AssetsData = d.AssetsData
	}
	if d.BusinessOutputs != nil {
		s.BusinessOutputs = d.BusinessOutputs
	}
	if d.Output != nil {
		s.Output = *d.Output
	}

	// integer sums
	s.InputTokens += d.InputTokens
	s.OutputTokens += d.OutputTokens
	s.TotalTokens += d.InputTokens + d.OutputTokens
	s.ExceptionCount += d.ExceptionCount

	// ordered concat, arrival order
	s.Actions = append(s.Actions, d.Actions...)
	s.MultimodalOutputs = append(s.MultimodalOutputs, d.MultimodalOutputs...)
	s.ActiveAgents = append(s.ActiveAgents, d.ActiveAgents...)

	// recursive map merge
	if len(d.Values) > 0 {
		s.Values = mergeValues(s.Values, d.Values)
	}
}

// mergeValues merges src into dst recursively: map children recurse,
// non-map leaves are last-write-wins.
func mergeValues(dst, src map[string]any) map[string]any {
	if dst == nil {
		dst = make(map[string]any, len(src))
	}
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			if dstMap, ok := dst[k].(map[string]any); ok {
				dst[k] = mergeValues(dstMap, srcMap)
				continue
			}
		}
		dst[k] = v
	}
	return dst
}
