package mock

import (
	"github.com/harborline/docflow/ai"
)

// MockProvider aggregates the capability mocks behind the ai.Provider
// interface.
type MockProvider struct {
	layout    *MockLayoutExtractor
	extractor *MockFieldExtractor
	evaluator *MockEvaluator
	summarize *MockSummarizer
}

var _ ai.Provider = (*MockProvider)(nil)

// NewMockProvider creates a provider whose executors all use default mock
// behavior. Use the GetMock* accessors to inject behavior per test.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		layout:    NewMockLayoutExtractor(),
		extractor: NewMockFieldExtractor(),
		evaluator: NewMockEvaluator(),
		summarize: NewMockSummarizer(),
	}
}

// LayoutExtractor returns the mock optical recognition service.
func (p *MockProvider) LayoutExtractor() ai.LayoutExtractor { return p.layout }

// FieldExtractor returns the mock extraction service.
func (p *MockProvider) FieldExtractor() ai.FieldExtractor { return p.extractor }

// Evaluator returns the mock evaluation service.
func (p *MockProvider) Evaluator() ai.Evaluator { return p.evaluator }

// Summarizer returns the mock summarization service.
func (p *MockProvider) Summarizer() ai.Summarizer { return p.summarize }

// Close releases nothing; mocks hold no resources.
func (p *MockProvider) Close() error { return nil }

// GetMockLayoutExtractor returns the concrete mock for behavior injection.
func (p *MockProvider) GetMockLayoutExtractor() *MockLayoutExtractor { return p.layout }

// GetMockFieldExtractor returns the concrete mock for behavior injection.
func (p *MockProvider) GetMockFieldExtractor() *MockFieldExtractor { return p.extractor }

// GetMockEvaluator returns the concrete mock for behavior injection.
func (p *MockProvider) GetMockEvaluator() *MockEvaluator { return p.evaluator }

// GetMockSummarizer returns the concrete mock for behavior injection.
func (p *MockProvider) GetMockSummarizer() *MockSummarizer { return p.summarize }
