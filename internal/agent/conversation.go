package agent

import (
	"sync"
	"time"

	"github.com/nightwatch-astro/nightwatch/internal/providers"
)

// TurnKind discriminates conversation turns.
type TurnKind string

const (
	TurnUser       TurnKind = "user"
	TurnToolCall   TurnKind = "tool_call"
	TurnToolResult TurnKind = "tool_result"
	TurnFinal      TurnKind = "final"
)

// Turn is one entry in a conversation. Content holds the user message,
// the tool result payload, or the final answer depending on Kind.
type Turn struct {
	Kind    TurnKind
	Content string
	Tool    string
	CallID  string
	Args    map[string]any
	IsError bool
	At      time.Time
}

// Conversation is the append-only history of one session. Turns are never
// mutated or removed once added; pruning happens on the projected message
// slice, not here.
type Conversation struct {
	key   string
	mu    sync.Mutex
	turns []Turn
}

func NewConversation(key string) *Conversation {
	return &Conversation{key: key}
}

func (c *Conversation) Key() string { return c.key }

func (c *Conversation) append(t Turn) {
	t.At = time.Now()
	c.mu.Lock()
	c.turns = append(c.turns, t)
	c.mu.Unlock()
}

func (c *Conversation) AddUser(message string) {
	c.append(Turn{Kind: TurnUser, Content: message})
}

func (c *Conversation) AddToolCall(call providers.ToolCall) {
	c.append(Turn{Kind: TurnToolCall, Tool: call.Name, CallID: call.ID, Args: call.Args})
}

func (c *Conversation) AddToolResult(callID, tool, content string, isError bool) {
	c.append(Turn{Kind: TurnToolResult, Tool: tool, CallID: callID, Content: content, IsError: isError})
}

func (c *Conversation) AddFinal(answer string) {
	c.append(Turn{Kind: TurnFinal, Content: answer})
}

// Turns returns a snapshot of the history.
func (c *Conversation) Turns() []Turn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Messages projects the history into provider wire messages. The system
// prompt, when non-empty, always leads.
func (c *Conversation) Messages(systemPrompt string) []providers.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	msgs := make([]providers.Message, 0, len(c.turns)+1)
	if systemPrompt != "" {
		msgs = append(msgs, providers.Message{Role: "system", Content: systemPrompt})
	}
	for _, t := range c.turns {
		switch t.Kind {
		case TurnUser:
			msgs = append(msgs, providers.Message{Role: "user", Content: t.Content})
		case TurnToolCall:
			msgs = append(msgs, providers.Message{
				Role:      "assistant",
				ToolCalls: []providers.ToolCall{{ID: t.CallID, Name: t.Tool, Args: t.Args}},
			})
		case TurnToolResult:
			msgs = append(msgs, providers.Message{
				Role:       "tool",
				ToolCallID: t.CallID,
				Name:       t.Tool,
				Content:    t.Content,
			})
		case TurnFinal:
			msgs = append(msgs, providers.Message{Role: "assistant", Content: t.Content})
		}
	}
	return msgs
}
