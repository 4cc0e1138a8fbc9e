package workflow

import (
	"errors"
	"fmt"
)

// Error is a workflow-level failure: one node raised and the turn was
// aborted. The partially reduced state is still returned alongside it.
type Error struct {
	Node string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("workflow node %s failed: %v", e.Node, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsWorkflowError checks if an error is a workflow failure.
func IsWorkflowError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
