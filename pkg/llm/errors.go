package llm

import (
	"errors"
	"fmt"
)

// Error represents an upstream provider failure after retries were
// exhausted. HTTP handlers map it to 502.
type Error struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("llm provider error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("llm provider error: %s", e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsProviderError checks if an error is an upstream provider failure.
func IsProviderError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
