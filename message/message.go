package message

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Role represents the role of the message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message represents a single message in a model conversation.
type Message struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	ToolID    string     `json:"tool_id,omitempty"` // For tool response messages
	CreatedAt time.Time  `json:"created_at"`
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Text returns the message content.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	return m.Content
}

// New creates a message with the given role and content.
func New(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewToolResponse creates a tool response message tied to a call ID.
func NewToolResponse(toolID, content string) *Message {
	msg := New(RoleTool, content)
	msg.ToolID = toolID
	return msg
}

var idCounter atomic.Int64

func generateID() string {
	return fmt.Sprintf("msg_%d_%d", time.Now().UnixNano(), idCounter.Add(1))
}
