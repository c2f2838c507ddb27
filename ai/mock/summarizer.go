package mock

import (
	"context"
	"fmt"
	"sync"
)

// MockSummarizer is a test double for ai.Summarizer.
// It allows custom behavior injection via function fields and is safe for
// concurrent use.
type MockSummarizer struct {
	// SummarizeFunc is called by Summarize if set.
	// If nil, returns a short deterministic summary.
	SummarizeFunc func(ctx context.Context, instanceJSON string) (string, error)

	mu        sync.Mutex
	callCount int
}

// NewMockSummarizer creates a mock summarizer with default behavior.
// Returns the concrete type to allow test assertions.
func NewMockSummarizer() *MockSummarizer {
	return &MockSummarizer{}
}

// Summarize returns a deterministic summary of the instance.
func (m *MockSummarizer) Summarize(ctx context.Context, instanceJSON string) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.SummarizeFunc != nil {
		return m.SummarizeFunc(ctx, instanceJSON)
	}
	return fmt.Sprintf("summary of %d-byte instance", len(instanceJSON)), nil
}

// CallCount returns the number of times Summarize was called.
func (m *MockSummarizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockSummarizer) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.SummarizeFunc = nil
}
