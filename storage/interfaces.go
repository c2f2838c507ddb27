package storage

import (
	"context"
	"time"

	"github.com/harborline/docflow/core"
)

// RecordStore persists per-document processing state.
// Implementations must be thread-safe and support concurrent access; every
// Upsert must be atomic per record so no partial-field writes are visible
// to other readers.
type RecordStore interface {
	// Get retrieves the record for an object identity.
	// Returns ErrNotFound if no record exists.
	Get(ctx context.Context, identity core.ObjectIdentity) (*core.DocumentRecord, error)

	// Upsert writes the record as a single atomic update, creating it if
	// absent. The record's UpdatedAt is the caller's responsibility.
	Upsert(ctx context.Context, record *core.DocumentRecord) error

	// ListStale returns records stuck in a non-terminal stage whose
	// UpdatedAt is older than olderThan. Used by crash recovery.
	ListStale(ctx context.Context, olderThan time.Time) ([]*core.DocumentRecord, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ObjectStore reads and writes document bytes addressed by object identity.
// Implementations must be thread-safe for concurrent use.
type ObjectStore interface {
	// Read returns the full content of the object.
	// Returns ErrNotFound if the object does not exist.
	Read(ctx context.Context, identity core.ObjectIdentity) ([]byte, error)

	// Write stores content under the identity, replacing any previous
	// content.
	Write(ctx context.Context, identity core.ObjectIdentity, content []byte) error

	// List returns the identities under a container whose paths start
	// with prefix.
	List(ctx context.Context, container, prefix string) ([]core.ObjectIdentity, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}
