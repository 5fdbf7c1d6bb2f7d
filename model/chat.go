// Package model provides the LLM chat abstraction that Worker and DocEx
// Stars use to reach a model provider, grounded on the teacher's
// graph/model/chat.go.
package model

import "context"

// ChatModel abstracts the differences between LLM providers (Anthropic,
// OpenAI, Google, or a test double) behind a single call shape. A Worker
// Star's Execute method holds one and calls Chat once per invocation;
// the resulting ChatOut is wrapped in a constellation.WorkerOutput, which
// star.Normalize later turns into the stored output string.
type ChatModel interface {
	// Chat sends messages to the model and returns its response. tools
	// may be nil when the calling Star needs no tool-use capability.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message is one turn in a conversation sent to a ChatModel.
type Message struct {
	Role    string
	Content string
}

// Standard role values, shared across providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ToolSpec describes a tool a model may choose to call, using JSON Schema
// for its input shape.
type ToolSpec struct {
	Name        string
	Description string
	Schema      map[string]interface{}
}

// ChatOut is a model's response: free text, tool calls, or both. Model/
// InputTokens/OutputTokens carry the provider's reported token usage (when
// available) so callers can attribute cost (costs.Tracker.RecordCall).
type ChatOut struct {
	Text      string
	ToolCalls []ToolCall

	Model        string
	InputTokens  int
	OutputTokens int
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	Name  string
	Input map[string]interface{}
}
