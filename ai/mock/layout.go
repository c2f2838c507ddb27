package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/harborline/docflow/ai"
)

// MockLayoutExtractor is a test double for ai.LayoutExtractor.
// It allows custom behavior injection via function fields and is safe for
// concurrent use.
type MockLayoutExtractor struct {
	// ExtractLayoutFunc is called by ExtractLayout if set.
	// If nil, returns deterministic text derived from the page range.
	ExtractLayoutFunc func(ctx context.Context, content []byte, pages ai.PageRange) (*ai.LayoutResult, error)

	mu        sync.Mutex
	callCount int
}

// NewMockLayoutExtractor creates a mock layout extractor with default
// behavior. Returns the concrete type to allow test assertions.
func NewMockLayoutExtractor() *MockLayoutExtractor {
	return &MockLayoutExtractor{}
}

// ExtractLayout returns deterministic recognized text for the range.
func (m *MockLayoutExtractor) ExtractLayout(ctx context.Context, content []byte, pages ai.PageRange) (*ai.LayoutResult, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.ExtractLayoutFunc != nil {
		return m.ExtractLayoutFunc(ctx, content, pages)
	}

	text := fmt.Sprintf("recognized text (%d bytes)", len(content))
	page := 1
	if !pages.IsZero() {
		text = fmt.Sprintf("recognized text pages %d-%d", pages.Start, pages.End)
		page = pages.Start
	}
	return &ai.LayoutResult{
		Text:   text,
		Blocks: []ai.LayoutBlock{{Page: page, Text: text}},
		Pages:  1,
	}, nil
}

// CallCount returns the number of times ExtractLayout was called.
func (m *MockLayoutExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockLayoutExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ExtractLayoutFunc = nil
}
