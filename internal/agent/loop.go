package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nightwatch-astro/nightwatch/internal/config"
	"github.com/nightwatch-astro/nightwatch/internal/providers"
	"github.com/nightwatch-astro/nightwatch/internal/tools"
)

const defaultMaxToolRounds = 8

// EventType labels the progress events the loop emits while a turn runs.
type EventType string

const (
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventFinal      EventType = "final"
)

// Event is a progress notification for display layers.
type Event struct {
	Type    EventType
	Tool    string
	Content string
	IsError bool
}

// LoopConfig wires a loop together.
type LoopConfig struct {
	ID            string
	Provider      providers.Provider
	Model         string
	SystemPrompt  string
	MaxToolRounds int
	Tools         *tools.Registry

	// MaxHistoryTokens caps the projected history before each model
	// request; 0 disables pruning.
	MaxHistoryTokens int
	Pruning          *config.ContextPruningConfig

	// InjectionAction is one of "off", "log", "warn" (default), "block".
	InjectionAction string
	InputGuard      *InputGuard

	OnEvent func(Event)
}

// Loop owns the agent turn state machine: send history, dispatch tool
// calls, feed results back, repeat until the model answers in text.
type Loop struct {
	id              string
	provider        providers.Provider
	model           string
	systemPrompt    string
	maxToolRounds   int
	maxHistoryTok   int
	pruning         *config.ContextPruningConfig
	tools           *tools.Registry
	inputGuard      *InputGuard
	injectionAction string
	onEvent         func(Event)

	mu       sync.Mutex
	sessions map[string]*Conversation
	running  bool
}

func NewLoop(cfg LoopConfig) *Loop {
	action := cfg.InjectionAction
	switch action {
	case "off", "log", "warn", "block":
	default:
		action = "warn"
	}

	guard := cfg.InputGuard
	if action == "off" {
		guard = nil
	} else if guard == nil {
		guard = NewInputGuard()
	}

	rounds := cfg.MaxToolRounds
	if rounds <= 0 {
		rounds = defaultMaxToolRounds
	}

	reg := cfg.Tools
	if reg == nil {
		reg = tools.NewRegistry()
	}

	return &Loop{
		id:              cfg.ID,
		provider:        cfg.Provider,
		model:           cfg.Model,
		systemPrompt:    cfg.SystemPrompt,
		maxToolRounds:   rounds,
		maxHistoryTok:   cfg.MaxHistoryTokens,
		pruning:         cfg.Pruning,
		tools:           reg,
		inputGuard:      guard,
		injectionAction: action,
		onEvent:         cfg.OnEvent,
		sessions:        make(map[string]*Conversation),
	}
}

func (l *Loop) ID() string    { return l.id }
func (l *Loop) Model() string { return l.model }

func (l *Loop) IsRunning() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// RunRequest is one user message addressed to a session.
type RunRequest struct {
	SessionKey string
	Message    string
	RunID      string
}

// RunResult is the completed turn.
type RunResult struct {
	Content    string
	ToolRounds int
	Usage      providers.Usage
}

// Session returns the conversation for key, creating it on first use.
func (l *Loop) Session(key string) *Conversation {
	l.mu.Lock()
	defer l.mu.Unlock()
	conv, ok := l.sessions[key]
	if !ok {
		conv = NewConversation(key)
		l.sessions[key] = conv
	}
	return conv
}

// Run executes one full turn. Tool failures are fed back to the model as
// error results rather than aborting; provider failures end the turn with
// an error, leaving the history intact for the next attempt.
func (l *Loop) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("empty message")
	}
	if l.provider == nil {
		return nil, fmt.Errorf("agent %s has no provider", l.id)
	}

	if err := l.guardCheck(req.Message); err != nil {
		return nil, err
	}

	l.setRunning(true)
	defer l.setRunning(false)

	conv := l.Session(req.SessionKey)
	conv.AddUser(req.Message)

	var usage providers.Usage
	// Backend-specific schema cleanup happens inside the provider.
	toolDefs := l.tools.ProviderDefs()

	rounds := 0
	for {
		msgs := conv.Messages(l.systemPrompt)
		msgs = pruneHistory(msgs, l.maxHistoryTok, l.pruning)

		reqTools := toolDefs
		// Once the round budget is spent the model must answer in text.
		if rounds >= l.maxToolRounds {
			reqTools = nil
		}

		resp, err := l.provider.Chat(ctx, providers.ChatRequest{
			Model:    l.model,
			Messages: msgs,
			Tools:    reqTools,
		})
		if err != nil {
			return nil, fmt.Errorf("model request: %w", err)
		}
		usage.Add(resp.Usage)

		if !resp.WantsTools() {
			conv.AddFinal(resp.Content)
			l.emit(Event{Type: EventFinal, Content: resp.Content})
			return &RunResult{Content: resp.Content, ToolRounds: rounds, Usage: usage}, nil
		}

		if rounds >= l.maxToolRounds {
			return nil, fmt.Errorf("agent %s exceeded %d tool rounds", l.id, l.maxToolRounds)
		}
		rounds++

		for _, call := range resp.ToolCalls {
			conv.AddToolCall(call)
			l.emit(Event{Type: EventToolCall, Tool: call.Name})

			result := l.tools.InvokeForSession(ctx, call.Name, call.Args, req.SessionKey)
			content := result.ForLLM
			if result.IsError && result.Err != nil {
				content = result.Err.Error()
				slog.Warn("tool call failed", "agent", l.id, "tool", call.Name, "error", result.Err)
			}
			conv.AddToolResult(call.ID, call.Name, content, result.IsError)
			l.emit(Event{Type: EventToolResult, Tool: call.Name, Content: content, IsError: result.IsError})
		}
	}
}

// guardCheck scans the message per the configured injection action.
func (l *Loop) guardCheck(message string) error {
	if l.inputGuard == nil {
		return nil
	}
	matches := l.inputGuard.Scan(message)
	if len(matches) == 0 {
		return nil
	}
	switch l.injectionAction {
	case "block":
		return fmt.Errorf("message rejected: matched injection patterns %v", matches)
	case "log":
		slog.Info("injection patterns in user message", "agent", l.id, "patterns", matches)
	default:
		slog.Warn("injection patterns in user message", "agent", l.id, "patterns", matches)
	}
	return nil
}

func (l *Loop) setRunning(v bool) {
	l.mu.Lock()
	l.running = v
	l.mu.Unlock()
}

func (l *Loop) emit(evt Event) {
	if l.onEvent != nil {
		l.onEvent(evt)
	}
}
