package orchestrator

import "errors"

// ErrNotRegistered is returned when the uploading email has no account.
// It is reported distinctly from validation failures.
var ErrNotRegistered = errors.New("user not registered")

// ValidationError rejects an upload before any side effects happen.
// Reason is safe to show to the client.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// ResolveError means the submitted URL could not be fetched. There is
// nothing to analyze, so it is terminal; transport detail stays in the log.
type ResolveError struct {
	URL string
	Err error
}

func (e *ResolveError) Error() string {
	return "invalid or broken URL"
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}
