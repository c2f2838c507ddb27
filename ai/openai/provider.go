package openai

import (
	"log/slog"

	"github.com/harborline/docflow/ai"
)

// Provider implements ai.Provider using OpenAI-compatible chat services for
// extraction, evaluation, and summarization, plus an HTTP layout service.
type Provider struct {
	config    *ai.Config
	layout    ai.LayoutExtractor
	extractor *FieldExtractor
	evaluator *Evaluator
	summarize *Summarizer
	logger    *slog.Logger
}

// NewProvider creates a provider backed by OpenAI-compatible services.
// The layout extractor is injected separately because optical recognition is
// a different service family from the chat models.
//
// Returns ai.Provider (not *Provider) to enforce abstraction.
func NewProvider(config *ai.Config, schemas ai.SchemaSource, layout ai.LayoutExtractor) (ai.Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	extractor, err := newFieldExtractor(config, schemas)
	if err != nil {
		return nil, err
	}

	evaluator, err := newEvaluator(config, schemas)
	if err != nil {
		return nil, err
	}

	summarizer, err := newSummarizer(config)
	if err != nil {
		return nil, err
	}

	return &Provider{
		config:    config,
		layout:    layout,
		extractor: extractor,
		evaluator: evaluator,
		summarize: summarizer,
		logger:    slog.Default().With("component", "openai-provider"),
	}, nil
}

// LayoutExtractor returns the optical recognition service.
func (p *Provider) LayoutExtractor() ai.LayoutExtractor {
	return p.layout
}

// FieldExtractor returns the schema-guided extraction service.
func (p *Provider) FieldExtractor() ai.FieldExtractor {
	return p.extractor
}

// Evaluator returns the extraction evaluation service.
func (p *Provider) Evaluator() ai.Evaluator {
	return p.evaluator
}

// Summarizer returns the summarization service.
func (p *Provider) Summarizer() ai.Summarizer {
	return p.summarize
}

// Close releases resources held by the provider.
// Currently a no-op as the underlying clients don't require explicit cleanup.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	return nil
}
