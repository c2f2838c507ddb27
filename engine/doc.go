// Package engine coordinates document pipeline runs: per-identity
// deduplication, bounded run concurrency, stage-by-stage execution with
// transient-failure retries, and crash recovery for abandoned runs.
package engine
