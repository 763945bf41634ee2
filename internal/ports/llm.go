package ports

import "context"

// Message roles in a chat conversation.
const (
	RoleUser  = "user"
	RoleModel = "model"
	RoleTool  = "tool"
)

// ToolDefinition declares a function the model may call.
type ToolDefinition struct {
	Name        string
	Description string
	// Parameters is a JSON schema object describing the arguments.
	Parameters map[string]any
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// ToolResult carries the outcome of a dispatched tool call back to the model.
type ToolResult struct {
	CallID  string
	Name    string
	Content string
	IsError bool
}

// Message is one turn in a conversation.
type Message struct {
	Role        string
	Text        string
	ToolCalls   []ToolCall   // set on model turns that request tools
	ToolResults []ToolResult // set on tool turns
}

// ChatRequest is a full conversation sent to the model.
type ChatRequest struct {
	System   string
	Messages []Message
	Tools    []ToolDefinition
	// ResponseSchema, when set and Tools is empty, asks the provider to
	// enforce this JSON schema on the reply.
	ResponseSchema map[string]any
}

// ChatResponse is the model's next turn.
type ChatResponse struct {
	Text      string
	ToolCalls []ToolCall
}

// LLM is a chat-completion provider with function calling.
type LLM interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
