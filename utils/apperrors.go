package utils

import "fmt"

// ValidationError indicates malformed or out-of-range input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// NotFoundError indicates an absent booking, job request or provider.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

func NewNotFoundError(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ConflictError indicates a race loss, an already-assigned booking or an
// expired offer. It is an expected outcome, not a system failure.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func NewConflictError(format string, args ...any) error {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ForbiddenError indicates the caller's role may not perform the requested
// transition.
type ForbiddenError struct {
	Message string
}

func (e *ForbiddenError) Error() string { return e.Message }

func NewForbiddenError(format string, args ...any) error {
	return &ForbiddenError{Message: fmt.Sprintf(format, args...)}
}

// NoProvidersAvailableError is the terminal outcome after matching finds no
// candidates and retries are exhausted.
type NoProvidersAvailableError struct {
	Message string
}

func (e *NoProvidersAvailableError) Error() string { return e.Message }

func NewNoProvidersAvailableError(format string, args ...any) error {
	return &NoProvidersAvailableError{Message: fmt.Sprintf(format, args...)}
}

// DependencyError wraps a failure in a downstream collaborator (e.g.
// notification delivery). Callers log it and carry on; it never aborts the
// owning state transition.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s failed: %v", e.Op, e.Err)
}

func (e *DependencyError) Unwrap() error { return e.Err }

func NewDependencyError(op string, err error) error {
	return &DependencyError{Op: op, Err: err}
}
