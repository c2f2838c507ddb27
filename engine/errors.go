package engine

import "errors"

var (
	// ErrRecordStoreRequired is returned when a record store is not provided.
	ErrRecordStoreRequired = errors.New("record store required")

	// ErrObjectStoreRequired is returned when an object store is not provided.
	ErrObjectStoreRequired = errors.New("object store required")

	// ErrProviderRequired is returned when an AI provider is not provided.
	ErrProviderRequired = errors.New("AI provider required")

	// ErrSchemaRegistryRequired is returned when a schema registry is not provided.
	ErrSchemaRegistryRequired = errors.New("schema registry required")

	// ErrDuplicate indicates an identity already has an in-flight run.
	// Logged on rejection; never surfaced to the event source as a failure.
	ErrDuplicate = errors.New("duplicate in-flight run")

	// ErrInvalidConcurrency indicates a non-positive concurrency bound.
	ErrInvalidConcurrency = errors.New("concurrency bound must be positive")

	// ErrEngineClosed indicates the engine is shutting down.
	ErrEngineClosed = errors.New("engine is closed")

	// ErrInvalidAttempts indicates a non-positive retry attempt count.
	ErrInvalidAttempts = errors.New("attempt count must be positive")
)
