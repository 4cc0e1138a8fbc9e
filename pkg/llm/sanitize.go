package llm

import "strings"

// boundaryMarkers are chat-template control tokens that some backends leak
// into the first completion of a conversation. Anything from the first
// marker onward is injected continuation, not the reply.
var boundaryMarkers = []string{"<|im_start|>", "<|im_end|>", "[INST]"}

// Sanitize truncates content at the first boundary marker and trims
// whitespace. Applied to the first iteration of every tool loop.
func Sanitize(content string) string {
	cut := len(content)
	for _, marker := range boundaryMarkers {
		if idx := strings.Index(content, marker); idx >= 0 && idx < cut {
			cut = idx
		}
	}
	return strings.TrimSpace(content[:cut])
}
