package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexString tolerates providers that return a JSON list where a scalar was
// requested. Lists are joined with ", "; the canonical form stays scalar.
type FlexString string

// UnmarshalJSON accepts a string, a list of strings, or a number.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*f = FlexString(strings.Join(list, ", "))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexString(n.String())
		return nil
	}
	return fmt.Errorf("cannot decode %s as string", string(data))
}

func (f FlexString) String() string { return string(f) }

// DecodeStructured parses a structured completion, stripping markdown code
// fences and leading prose some models wrap around the JSON object.
func DecodeStructured(content string, out any) error {
	cleaned := strings.TrimSpace(content)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		if idx := strings.LastIndex(cleaned, "```"); idx >= 0 {
			cleaned = cleaned[:idx]
		}
		cleaned = strings.TrimSpace(cleaned)
	}
	if start := strings.Index(cleaned, "{"); start > 0 {
		cleaned = cleaned[start:]
	}
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return fmt.Errorf("failed to parse structured response: %w", err)
	}
	return nil
}
