package session

import (
	"errors"
	"fmt"
)

// ErrConnectionExhausted is matched (via errors.Is) by every error returned
// when the store stayed unreachable for the whole retry bound.
var ErrConnectionExhausted = errors.New("database unreachable: connection attempts exhausted")

// ErrSessionClosed is returned by a Session used after its scope exited.
var ErrSessionClosed = errors.New("session is closed")

// ConnectionExhaustedError reports a failed acquisition and the last
// connection error seen.
type ConnectionExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ConnectionExhaustedError) Error() string {
	return fmt.Sprintf("connection exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ConnectionExhaustedError) Unwrap() []error {
	return []error{ErrConnectionExhausted, e.Err}
}

// TransactionError is a failure of the transaction machinery itself
// (begin or commit). Errors returned by the unit of work are passed through
// unchanged and never wrapped in a TransactionError.
type TransactionError struct {
	Op  string // "begin" or "commit"
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("transaction %s: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}
