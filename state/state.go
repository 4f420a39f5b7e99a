// Package state defines the conversation state threaded through every graph.
package state

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Role tags the author of a message.
type Role string

const (
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
	RoleSystem Role = "system"
	RoleTool   Role = "tool"
)

// Valid reports whether r is one of the four known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleHuman, RoleAI, RoleSystem, RoleTool:
		return true
	}
	return false
}

// ToolCall is a model request to invoke a tool.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Image is an inline image attached to a human message.
type Image struct {
	MIMEType string `json:"mime_type"`
	// Data is standard base64.
	Data string `json:"data"`
}

// DataURL returns the image as a data: URL.
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + i.Data
}

// Message is one turn of the conversation.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`

	// ToolCalls is set on ai messages that request tools.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID and Name are set on tool messages.
	ToolCallID string `json:"tool_call_id,omitempty"`
	Name       string `json:"name,omitempty"`

	Images []Image `json:"images,omitempty"`

	// Reasoning holds thought summaries when the provider returns them.
	Reasoning string `json:"reasoning,omitempty"`
}

// HasToolCalls reports whether the message requests at least one tool.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// ConversationState is the per-run working state of a graph.
type ConversationState struct {
	SessionID      string `json:"session_id"`
	UserID         string `json:"user_id,omitempty"`
	ConversationID string `json:"conversation_id"`
	ThreadID       string `json:"thread_id,omitempty"`

	// Provider and MainLLM select the chat model. They cannot change within a run.
	Provider string `json:"provider"`
	MainLLM  string `json:"main_llm"`

	Messages []Message `json:"messages"`
}

// LastMessage returns the newest message, or false when there is none.
func (s ConversationState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// ErrImmutableField is returned by Merge when an update changes the provider or model of a run.
var ErrImmutableField = errors.New("field is immutable within a run")

// Merge applies update to current: identity fields take the last non-empty
// write, messages are appended in order. Messages without an ID get one.
func Merge(current, update ConversationState) (ConversationState, error) {
	if err := checkImmutable("provider", current.Provider, update.Provider); err != nil {
		return current, err
	}
	if err := checkImmutable("main_llm", current.MainLLM, update.MainLLM); err != nil {
		return current, err
	}

	merged := current
	merged.SessionID = lastWrite(current.SessionID, update.SessionID)
	merged.UserID = lastWrite(current.UserID, update.UserID)
	merged.ConversationID = lastWrite(current.ConversationID, update.ConversationID)
	merged.ThreadID = lastWrite(current.ThreadID, update.ThreadID)
	merged.Provider = lastWrite(current.Provider, update.Provider)
	merged.MainLLM = lastWrite(current.MainLLM, update.MainLLM)
	merged.Messages = AppendMessages(current.Messages, update.Messages...)
	return merged, nil
}

// AppendMessages returns a new slice holding current followed by update.
func AppendMessages(current []Message, update ...Message) []Message {
	out := make([]Message, 0, len(current)+len(update))
	out = append(out, current...)
	for _, m := range update {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		out = append(out, m)
	}
	return out
}

func lastWrite(current, update string) string {
	if update != "" {
		return update
	}
	return current
}

func checkImmutable(field, current, update string) error {
	if current != "" && update != "" && current != update {
		return fmt.Errorf("%w: %s %q cannot become %q", ErrImmutableField, field, current, update)
	}
	return nil
}
