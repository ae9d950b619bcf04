package agent

import "context"

// Agent is the execution-loop abstraction. Implemented by *Loop; extracted
// as an interface for testability.
type Agent interface {
	ID() string
	Run(ctx context.Context, req RunRequest) (*RunResult, error)
	IsRunning() bool
	Model() string
}
