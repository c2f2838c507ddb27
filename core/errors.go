package core

import (
	"context"
	"errors"
	"fmt"
)

// Domain validation errors
var (
	// ErrValidation indicates malformed input rejected before admission.
	// It is never retried by the engine.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyContainer indicates an object identity without a container.
	ErrEmptyContainer = errors.New("container cannot be empty")

	// ErrEmptyPath indicates an object identity without a path.
	ErrEmptyPath = errors.New("object path cannot be empty")

	// ErrInvalidTriggerSource indicates an unknown TriggerSource value.
	ErrInvalidTriggerSource = errors.New("invalid trigger source")

	// ErrUnknownStage indicates an unrecognized stage value.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrUnreachable indicates a collaborator interface is unavailable.
	ErrUnreachable = errors.New("collaborator unreachable")
)

// TransientKind classifies a transient executor failure for diagnostics.
type TransientKind string

const (
	TransientTimeout     TransientKind = "timeout"
	TransientRateLimit   TransientKind = "rate-limit"
	TransientUnreachable TransientKind = "unreachable"
)

// TransientError wraps a stage executor failure that is eligible for retry
// under the stage retry policy.
type TransientError struct {
	Kind TransientKind
	Err  error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient %s: %v", e.Kind, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as a retryable executor failure.
func Transient(kind TransientKind, err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Kind: kind, Err: err}
}

// IsTransient reports whether err should be retried by the stage policy.
// Deadline expiry counts as transient per the timeout policy; context
// cancellation does not.
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return errors.Is(err, ErrUnreachable)
}

// TransientKindOf returns the classification for a transient error, or
// "error" for anything else.
func TransientKindOf(err error) string {
	var te *TransientError
	if errors.As(err, &te) {
		return string(te.Kind)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return string(TransientTimeout)
	}
	if errors.Is(err, ErrUnreachable) {
		return string(TransientUnreachable)
	}
	return "error"
}
