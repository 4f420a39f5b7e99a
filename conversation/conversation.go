package conversation

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/codex-mohan/autonix/state"
)

// DefaultTitle is given to conversations created without a title.
const DefaultTitle = "New Conversation"

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 50

var (
	// ErrNotFound is returned when a conversation does not exist.
	ErrNotFound = errors.New("conversation not found")
	// ErrMessageNotFound is returned when a message does not exist in the conversation.
	ErrMessageNotFound = errors.New("message not found")
)

// Conversation is the container of one message tree.
type Conversation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	ActiveLeafID string    `json:"active_leaf_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Message is one node of the tree.
type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	// ParentID is empty for a root message.
	ParentID string     `json:"parent_id,omitempty"`
	Type     state.Role `json:"type"`
	Content  string     `json:"content"`

	ToolCalls  []state.ToolCall `json:"tool_calls,omitempty"`
	ToolResult json.RawMessage  `json:"tool_result,omitempty"`

	// NodeName, Step and Checkpoint tie the message to the graph run that produced it.
	NodeName   string          `json:"node_name,omitempty"`
	Step       int             `json:"step,omitempty"`
	Checkpoint json.RawMessage `json:"checkpoint,omitempty"`

	// BranchIndex orders siblings. Depth is zero for roots.
	BranchIndex int       `json:"branch_index"`
	Depth       int       `json:"depth"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewMessage holds the caller-supplied fields of AddMessage.
type NewMessage struct {
	ConversationID string
	ParentID       string
	Type           state.Role
	Content        string
	ToolCalls      []state.ToolCall
	ToolResult     json.RawMessage
	NodeName       string
	Step           int
	Checkpoint     json.RawMessage
}

// EdgeType labels an explicit relation between two messages.
type EdgeType string

const (
	EdgeDefault EdgeType = "default"
	EdgeRetry   EdgeType = "retry"
	EdgeBranch  EdgeType = "branch"
	EdgeMerge   EdgeType = "merge"
)

// Valid reports whether t is a known edge type.
func (t EdgeType) Valid() bool {
	switch t {
	case EdgeDefault, EdgeRetry, EdgeBranch, EdgeMerge:
		return true
	}
	return false
}

// Edge links two messages of a conversation.
type Edge struct {
	ID             string         `json:"id"`
	ConversationID string         `json:"conversation_id"`
	Source         string         `json:"source"`
	Target         string         `json:"target"`
	Type           EdgeType       `json:"type"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Snapshot is a named copy of graph state taken at a message, used to rewind.
type Snapshot struct {
	ID             string          `json:"id"`
	ConversationID string          `json:"conversation_id"`
	MessageID      string          `json:"message_id"`
	Name           string          `json:"name,omitempty"`
	State          json.RawMessage `json:"state"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Tree is every message and edge of a conversation.
type Tree struct {
	Messages []Message `json:"messages"`
	Edges    []Edge    `json:"edges"`
}

// FromState converts a graph message for storage under parentID.
func FromState(conversationID, parentID string, m state.Message) NewMessage {
	nm := NewMessage{
		ConversationID: conversationID,
		ParentID:       parentID,
		Type:           m.Role,
		Content:        m.Content,
		ToolCalls:      m.ToolCalls,
	}
	if m.Role == state.RoleTool {
		result, _ := json.Marshal(map[string]string{"tool_call_id": m.ToolCallID, "name": m.Name, "output": m.Content})
		nm.ToolResult = result
	}
	return nm
}

// ToState converts stored messages back to graph messages.
func ToState(path []Message) []state.Message {
	out := make([]state.Message, 0, len(path))
	for _, m := range path {
		sm := state.Message{ID: m.ID, Role: m.Type, Content: m.Content, ToolCalls: m.ToolCalls}
		if m.Type == state.RoleTool && len(m.ToolResult) > 0 {
			var result struct {
				ToolCallID string `json:"tool_call_id"`
				Name       string `json:"name"`
			}
			if json.Unmarshal(m.ToolResult, &result) == nil {
				sm.ToolCallID, sm.Name = result.ToolCallID, result.Name
			}
		}
		out = append(out, sm)
	}
	return out
}
