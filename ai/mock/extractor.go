package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/harborline/docflow/ai"
)

// MockFieldExtractor is a test double for ai.FieldExtractor.
// It allows custom behavior injection via function fields and is safe for
// concurrent use.
type MockFieldExtractor struct {
	// ExtractFunc is called by Extract if set.
	// If nil, returns a minimal instance naming the schema.
	ExtractFunc func(ctx context.Context, layout *ai.LayoutResult, schemaName string) (string, error)

	mu        sync.Mutex
	callCount int
}

// NewMockFieldExtractor creates a mock field extractor with default
// behavior. Returns the concrete type to allow test assertions.
func NewMockFieldExtractor() *MockFieldExtractor {
	return &MockFieldExtractor{}
}

// Extract returns a minimal JSON instance derived from the layout text.
func (m *MockFieldExtractor) Extract(ctx context.Context, layout *ai.LayoutResult, schemaName string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, layout, schemaName)
	}

	text := ""
	if layout != nil {
		text = layout.Text
	}
	return fmt.Sprintf(`{"schema":%q,"text_bytes":%d}`, schemaName, len(text)), nil
}

// CallCount returns the number of times Extract was called.
func (m *MockFieldExtractor) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockFieldExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.ExtractFunc = nil
}
