// Package models contains the domain and wire types shared across services.
package models

import "strings"

// Role identifies the author of a conversation message.
type Role string

// Conversation roles.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType identifies the kind of a multimodal message part.
type PartType string

// Message part types.
const (
	PartText     PartType = "text"
	PartImageURL PartType = "image_url"
	PartAudioURL PartType = "audio_url"
	PartVideoURL PartType = "video_url"
)

// MessagePart is one element of a multimodal message content sequence.
type MessagePart struct {
	Type PartType `json:"type"`
	Text string   `json:"text,omitempty"`
	URL  string   `json:"url,omitempty"`
}

// ToolCall represents an LLM's request to invoke a named tool handler.
// Arguments is the raw JSON string produced by the provider.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single conversation message. Content is either plain text
// (Content set, Parts empty) or an ordered sequence of typed parts.
// Assistant messages may carry ToolCalls; tool messages carry the
// ToolCallID correlating them back to the inducing assistant message.
type Message struct {
	Role       Role          `json:"role"`
	Content    string        `json:"content,omitempty"`
	Parts      []MessagePart `json:"parts,omitempty"`
	ToolCalls  []ToolCall    `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
	ToolName   string        `json:"tool_name,omitempty"`
}

// NewUserText builds a plain-text user message.
func NewUserText(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// NewAssistantText builds a plain-text assistant message.
func NewAssistantText(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// Text flattens the message content into plain text. Multimodal parts
// contribute their text segments; media parts contribute their URLs so the
// message stays representable in prompts and logs.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		if p.Type == PartText {
			b.WriteString(p.Text)
		} else {
			b.WriteString(p.URL)
		}
	}
	return b.String()
}

// HasAudio reports whether the message contains an audio part.
func (m Message) HasAudio() bool {
	for _, p := range m.Parts {
		if p.Type == PartAudioURL {
			return true
		}
	}
	return false
}

// MultimodalOutput is a produced media artifact attached to a workflow result.
type MultimodalOutput struct {
	Type PartType `json:"type"`
	URL  string   `json:"url"`
}
