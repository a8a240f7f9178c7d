package report

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks a request the caller must fix (empty summary, missing owner, ...).
var ErrInvalidInput = errors.New("invalid input")

// PersistenceError wraps a primary store failure. It is fatal to the request.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist analysis (%s): %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
