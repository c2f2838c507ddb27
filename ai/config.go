package ai

import (
	"errors"
	"strings"
)

// Config holds configuration for the model-backed stage executors.
type Config struct {
	// Host is the base URL for the OpenAI-compatible chat API used by
	// extraction, evaluation, and summarization.
	// Example: "http://localhost:11434/v1" for a local server.
	Host string

	// ExtractionModel is the model identifier for schema-guided extraction.
	ExtractionModel string

	// EvaluationModel is the model identifier for extraction evaluation.
	// Defaults to ExtractionModel when empty.
	EvaluationModel string

	// SummaryModel is the model identifier for summarization.
	// Defaults to ExtractionModel when empty.
	SummaryModel string

	// OCREndpoint is the base URL of the document layout recognition
	// service.
	OCREndpoint string

	// OCRKey authenticates against the layout recognition service.
	// Optional for unauthenticated local services.
	OCRKey string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithHost sets the chat API host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithExtractionModel sets the extraction model identifier.
func WithExtractionModel(model string) ConfigOption {
	return func(c *Config) {
		c.ExtractionModel = model
	}
}

// WithEvaluationModel sets the evaluation model identifier.
func WithEvaluationModel(model string) ConfigOption {
	return func(c *Config) {
		c.EvaluationModel = model
	}
}

// WithSummaryModel sets the summarization model identifier.
func WithSummaryModel(model string) ConfigOption {
	return func(c *Config) {
		c.SummaryModel = model
	}
}

// WithOCREndpoint sets the layout recognition service endpoint.
func WithOCREndpoint(endpoint string) ConfigOption {
	return func(c *Config) {
		c.OCREndpoint = endpoint
	}
}

// WithOCRKey sets the layout recognition service key.
func WithOCRKey(key string) ConfigOption {
	return func(c *Config) {
		c.OCRKey = key
	}
}

// DefaultConfig returns a Config with sensible defaults for local
// OpenAI-compatible services.
func DefaultConfig() *Config {
	return &Config{
		Host:            "http://localhost:11434/v1",
		ExtractionModel: "qwen2.5:7b",
		OCREndpoint:     "http://localhost:9500",
	}
}

// NewConfig creates a Config with default values and applies the provided
// options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in canonical form: the chat host
// carries the /v1 suffix required by OpenAI-compatible APIs, and the
// fallback models are filled in.
func (c *Config) Normalize() {
	if c.Host != "" && !strings.HasSuffix(c.Host, "/v1") {
		c.Host = strings.TrimSuffix(c.Host, "/") + "/v1"
	}
	c.OCREndpoint = strings.TrimSuffix(c.OCREndpoint, "/")
	if c.EvaluationModel == "" {
		c.EvaluationModel = c.ExtractionModel
	}
	if c.SummaryModel == "" {
		c.SummaryModel = c.ExtractionModel
	}
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.ExtractionModel == "" {
		return errors.New("ai config: ExtractionModel is required")
	}
	if c.OCREndpoint == "" {
		return errors.New("ai config: OCREndpoint is required")
	}
	return nil
}
