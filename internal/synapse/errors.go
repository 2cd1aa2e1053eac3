package synapse

import (
	"errors"
	"fmt"
)

// ErrResultNotReady signals that an async Synapse job has not finished yet.
// The poll loop treats it as "spin around one more time"; any other error
// propagates immediately.
var ErrResultNotReady = errors.New("synapse result not ready")

// AsyncTimeoutError indicates a poll loop exhausted its retry budget
// without the async job completing.
type AsyncTimeoutError struct {
	Op    string
	Tries int
}

func (e *AsyncTimeoutError) Error() string {
	return fmt.Sprintf("synapse async call %s timed out after %d tries", e.Op, e.Tries)
}

// ServiceError wraps a transport or remote-side failure from the Synapse
// REST API.
type ServiceError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("synapse %s failed: status %d: %s", e.Op, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("synapse %s failed: %s", e.Op, e.Message)
}
