package workflowsync

import "errors"

var (
	// ErrNotConfigured indicates the target action carries no concurrency
	// configuration in the external workflow definition.
	ErrNotConfigured = errors.New("action has no concurrency configuration")

	// ErrActionValidation indicates the workflow definition has no usable
	// target action node; no update is issued.
	ErrActionValidation = errors.New("action node validation failed")

	// ErrConfigurationConflict indicates the definition changed between
	// read and write. The caller should retry the whole operation.
	ErrConfigurationConflict = errors.New("workflow definition changed concurrently")

	// ErrClientRequired is returned when a management client is not provided.
	ErrClientRequired = errors.New("management client required")

	// ErrWorkflowRequired is returned when no workflow ID is configured.
	ErrWorkflowRequired = errors.New("workflow ID required")

	// ErrActionRequired is returned when no action name is configured.
	ErrActionRequired = errors.New("action name required")

	// ErrInvalidConcurrency indicates a non-positive concurrency value.
	ErrInvalidConcurrency = errors.New("concurrency value must be positive")
)
