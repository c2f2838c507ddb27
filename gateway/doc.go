// Package gateway is the HTTP surface of the daemon: push-event ingestion,
// manual triggers, record lookup, health, and runtime concurrency
// configuration. It holds no pipeline state; accepted jobs are handed to
// the engine and acknowledged immediately.
package gateway
