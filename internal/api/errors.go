// Package api error types for audit server responses.
package api

import (
	"errors"
	"fmt"
)

// ErrJobNotFound indicates the server no longer knows the job id. A 404 on a
// status fetch means server-side state loss (typically a restart), not a
// processing failure, and callers must treat the two differently.
var ErrJobNotFound = errors.New("job not found")

// ErrNoActiveSession indicates a command that needs a tracked job was run
// without a session record.
var ErrNoActiveSession = errors.New("no active session")

// SubmissionError is a rejected upload. Message carries the server-provided
// {error} payload when present.
type SubmissionError struct {
	StatusCode int
	Message    string
}

func (e *SubmissionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upload rejected: %s", e.Message)
	}
	return fmt.Sprintf("upload rejected: status %d", e.StatusCode)
}

// CancelError is a rejected cancel request. The job is presumed still active
// and the caller resumes polling.
type CancelError struct {
	StatusCode int
	Message    string
}

func (e *CancelError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("cancel rejected: %s", e.Message)
	}
	return fmt.Sprintf("cancel rejected: status %d", e.StatusCode)
}

// IsNotFound reports whether err indicates an unknown job id.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrJobNotFound)
}
