package ai

import "context"

// LayoutExtractor performs optical recognition over document bytes.
// Implementations must be thread-safe for concurrent use.
type LayoutExtractor interface {
	// ExtractLayout runs layout-aware text recognition over the given page
	// range of the document content. A zero PageRange means the whole
	// document. Transient service failures (timeout, throttling) are
	// reported as core.TransientError so the pipeline retry policy applies.
	ExtractLayout(ctx context.Context, content []byte, pages PageRange) (*LayoutResult, error)
}

// FieldExtractor extracts a structured instance from recognized text,
// guided by a named extraction schema.
// Implementations must be thread-safe for concurrent use.
type FieldExtractor interface {
	// Extract produces a JSON instance of the named schema from the
	// recognized layout. The returned string is the raw instance JSON;
	// schema conformance is the caller's concern.
	Extract(ctx context.Context, layout *LayoutResult, schemaName string) (string, error)
}

// Evaluator scores an extracted instance against its expected schema.
// Implementations must be thread-safe for concurrent use.
type Evaluator interface {
	// Evaluate returns a quality score in [0, 1] for the instance.
	Evaluate(ctx context.Context, instanceJSON string, schemaName string) (float64, error)
}

// Summarizer produces a human-readable summary of an extracted instance.
// Implementations must be thread-safe for concurrent use.
type Summarizer interface {
	Summarize(ctx context.Context, instanceJSON string) (string, error)
}

// SchemaSource supplies the JSON schema text for a named extraction schema.
// Extractors embed the schema in prompts; validation of instances against
// the schema stays with the caller.
type SchemaSource interface {
	SchemaJSON(name string) (string, bool)
}

// Provider aggregates the stage executor capabilities for convenient
// initialization and lifecycle management. A provider creates and manages
// the executor instances, ensuring they share configuration and resources.
type Provider interface {
	// LayoutExtractor returns the optical recognition service.
	LayoutExtractor() LayoutExtractor

	// FieldExtractor returns the schema-guided extraction service.
	FieldExtractor() FieldExtractor

	// Evaluator returns the extraction evaluation service.
	Evaluator() Evaluator

	// Summarizer returns the summarization service.
	Summarizer() Summarizer

	// Close releases resources held by the provider and its services.
	Close() error
}
