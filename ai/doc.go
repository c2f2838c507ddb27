// Package ai defines the stage executor capability interfaces consumed by
// the pipeline driver: optical layout recognition, schema-guided field
// extraction, extraction evaluation, and summarization.
//
// The interfaces are pure request/response contracts so the engine never
// depends on a concrete service. Implementations live in sub-packages:
//
//   - ai/openai: extraction, evaluation, and summarization against
//     OpenAI-compatible chat APIs
//   - ai/azure: layout recognition against a Document Intelligence style
//     HTTP endpoint
//   - ai/mock: test doubles with injectable behavior
//
// Public constructors in the implementation packages return interface types
// to enforce abstraction; mock constructors return concrete types so tests
// can inject behavior and assert call counts.
//
// Implementations classify retryable service failures (timeouts, throttling,
// unreachable hosts) as core.TransientError so the engine's per-stage retry
// policy can distinguish them from permanent failures.
package ai
