// Package providers implements the client for the remote model service.
// The only wire collaborator is an OpenAI-compatible chat-completions
// endpoint; everything above this package treats it as an opaque RPC that
// answers with exactly one of a tool-call request or final text.
package providers

import "context"

// Message is one conversation turn in provider wire shape.
type Message struct {
	Role       string     `json:"role"` // system | user | assistant | tool
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant requesting tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool result correlation
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a decoded tool-call request from the model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolFunctionSchema describes one callable function to the model.
type ToolFunctionSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// ToolDefinition wraps a function schema in the provider envelope.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function ToolFunctionSchema `json:"function"`
}

// ChatRequest carries one round-trip's input: the full conversation
// history plus the static tool schema.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
}

// ChatResponse is the closed two-variant response union: either the model
// requests tool calls (ToolCalls non-empty, WantsTools true) or it is done
// and Content holds the final text. The session loop matches on WantsTools
// exhaustively; the provider guarantees the variants are mutually exclusive.
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
	Usage     Usage
}

// WantsTools reports which variant of the union this response is.
func (r *ChatResponse) WantsTools() bool { return len(r.ToolCalls) > 0 }

// Usage is the token accounting reported by the service for one round.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another round's usage.
func (u *Usage) Add(other Usage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// Provider is the remote model service abstraction.
type Provider interface {
	Name() string
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
