package tools

import "fmt"

// DuplicateToolError is returned when registering a name that already exists.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("duplicate tool name: %s", e.Name)
}

// UnknownToolError is returned when resolving or invoking an unregistered
// name, typically because the model misnamed a tool.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool: %s", e.Name)
}

// InvalidArgumentsError is returned when arguments do not satisfy the tool's
// declared schema. Field names the offending parameter.
type InvalidArgumentsError struct {
	Tool   string
	Field  string
	Reason string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: field %s: %s", e.Tool, e.Field, e.Reason)
}

// ExecutionError wraps a failure (or panic) raised by a tool handler.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
