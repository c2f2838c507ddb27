// Package workflowsync mirrors the engine's run concurrency bound into an
// external workflow engine's action configuration through its management
// API. It validates the target action before every write and guards writes
// with the definition version read, so concurrent external edits surface as
// conflicts instead of lost updates.
package workflowsync
