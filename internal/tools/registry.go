package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nightwatch-astro/nightwatch/internal/providers"
)

// Registry manages tool registration, argument validation and execution.
type Registry struct {
	tools       map[string]Tool
	mu          sync.RWMutex
	rateLimiter *RateLimiter // nil = no rate limiting
}

func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// SetRateLimiter enables per-session tool rate limiting.
func (r *Registry) SetRateLimiter(rl *RateLimiter) {
	r.rateLimiter = rl
}

// Register adds a tool. The registry is left unchanged when the name is
// already taken.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := tool.Name()
	if _, exists := r.tools[name]; exists {
		return &DuplicateToolError{Name: name}
	}
	r.tools[name] = tool
	return nil
}

// MustRegister panics on a duplicate name; used for the fixed built-in set
// wired at process start.
func (r *Registry) MustRegister(tool Tool) {
	if err := r.Register(tool); err != nil {
		panic(err)
	}
}

// Resolve returns the tool registered under name.
func (r *Registry) Resolve(name string) (Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	if !ok {
		return nil, &UnknownToolError{Name: name}
	}
	return t, nil
}

// Invoke resolves a tool, validates the arguments against its declared
// schema, and executes the handler. Every failure mode comes back as an
// error Result so the session loop can feed it to the model instead of
// crashing the turn; Result.Err carries the classification.
func (r *Registry) Invoke(ctx context.Context, name string, args map[string]any) *Result {
	return r.InvokeForSession(ctx, name, args, "")
}

// InvokeForSession is Invoke with a session key for rate limiting.
func (r *Registry) InvokeForSession(ctx context.Context, name string, args map[string]any, sessionKey string) *Result {
	tool, err := r.Resolve(name)
	if err != nil {
		return ErrorResult(err)
	}

	if err := tool.Parameters().Validate(name, args); err != nil {
		return ErrorResult(err)
	}

	if r.rateLimiter != nil && sessionKey != "" {
		if err := r.rateLimiter.Allow(sessionKey); err != nil {
			return ErrorResult(&ExecutionError{Tool: name, Err: err})
		}
	}

	start := time.Now()
	result := safeExecute(ctx, tool, args)
	duration := time.Since(start)

	slog.Debug("tool executed",
		"tool", name,
		"duration_ms", duration.Milliseconds(),
		"is_error", result.IsError,
	)
	return result
}

// safeExecute runs the handler, converting a panic into an ExecutionError
// so one misbehaving tool cannot take down the session.
func safeExecute(ctx context.Context, tool Tool, args map[string]any) (result *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			result = ErrorResult(&ExecutionError{Tool: tool.Name(), Err: fmt.Errorf("panic: %v", rec)})
		}
	}()

	result = tool.Execute(ctx, args)
	if result == nil {
		return ErrorResult(&ExecutionError{Tool: tool.Name(), Err: fmt.Errorf("handler returned no result")})
	}
	// Handler-raised failures are classified as execution errors unless the
	// tool already produced a taxonomy error itself.
	if result.IsError {
		var ee *ExecutionError
		var ia *InvalidArgumentsError
		switch {
		case result.Err == nil:
			result.Err = &ExecutionError{Tool: tool.Name(), Err: fmt.Errorf("%s", result.ForLLM)}
		case errors.As(result.Err, &ee), errors.As(result.Err, &ia):
			// already classified
		default:
			result.Err = &ExecutionError{Tool: tool.Name(), Err: result.Err}
		}
	}
	return result
}

// ProviderDefs returns tool definitions for the model request.
func (r *Registry) ProviderDefs() []providers.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]providers.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, ToProviderDef(tool))
	}
	return defs
}

// List returns all registered tools.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
