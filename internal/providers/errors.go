package providers

import (
	"errors"
	"fmt"
)

// ErrServiceUnavailable marks transport-level failures and server-side
// errors worth retrying later: the call itself failed.
var ErrServiceUnavailable = errors.New("model service unavailable")

// ProtocolError marks a response the loop cannot interpret: an undecodable
// body, malformed tool-call arguments, or a response carrying neither
// variant of the union.
type ProtocolError struct {
	Provider string
	Reason   string
	Err      error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s protocol error: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s protocol error: %s", e.Provider, e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// APIError is a structured error reported by the service itself.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
}
